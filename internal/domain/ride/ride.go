// Package ride holds the journey aggregate: a recorded trip between two
// locations plus the tag values attached to it.
package ride

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/ptetdev/ptet/internal/domain/ridetag"
)

// ErrNotFound is returned when a ride does not exist or is not visible to
// the caller.
var ErrNotFound = errors.New("ride not found")

// Ride is one journey owned by a user. Template rides act as prefill
// sources for clients and are never part of expense sums.
type Ride struct {
	ID               int64
	UserID           int64
	JourneyDeparture time.Time
	JourneyArrival   *time.Time
	LocationFrom     string
	LocationTo       string
	Remarks          *string
	IsTemplate       bool

	// Tags carries the live links when the ride is loaded for output.
	Tags []ridetag.Link
}

// Repository defines persistence operations for rides.
type Repository interface {
	// List returns the user's rides ordered by departure descending.
	// A limit <= 0 disables pagination. The second result is the total
	// number of live rides for the user.
	List(ctx context.Context, userID int64, limit, offset int) ([]Ride, int64, error)
	Get(ctx context.Context, id int64) (*Ride, error)
	Create(ctx context.Context, r *Ride) error
	Update(ctx context.Context, r *Ride) error
	Delete(ctx context.Context, id int64) error
	// IsOwner reports ErrNotFound when the ride is absent, deleted or
	// owned by another user.
	IsOwner(ctx context.Context, rideID, userID int64) error
}
