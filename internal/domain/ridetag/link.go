package ridetag

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested link does not exist.
var ErrNotFound = errors.New("ride tag link not found")

// Link attaches one typed value to a ride under a tag descriptor. A ride
// carries at most one live link per descriptor.
type Link struct {
	ID      int64
	RideID  int64
	TagID   int64
	Order   int64
	Value   Value
	Remarks *string
}

// Repository defines persistence operations for ride-tag links.
type Repository interface {
	ListByRide(ctx context.Context, rideID int64) ([]Link, error)
	// GetByTag finds the live link for the (ride, tag) pair.
	GetByTag(ctx context.Context, rideID, tagID int64) (*Link, error)
	Get(ctx context.Context, id int64) (*Link, error)
	Create(ctx context.Context, l *Link) error
	Update(ctx context.Context, l *Link) error
	Delete(ctx context.Context, id int64) error
	// IsOwner checks the link against the owning ride's user.
	IsOwner(ctx context.Context, linkID, userID int64) error
}
