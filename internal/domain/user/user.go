package user

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested user does not exist.
var ErrNotFound = errors.New("user not found")

// User is an API caller identified by the issuer/subject pair of its
// bearer token. Rows are created lazily on the first authenticated request.
type User struct {
	ID         int64
	JWTIssuer  string
	JWTSubject string
	Name       *string
}

// Repository defines persistence operations for users.
type Repository interface {
	// FindOrCreate returns the user for the given token identity,
	// inserting a new row when none exists yet.
	FindOrCreate(ctx context.Context, issuer, subject string) (*User, error)
	Get(ctx context.Context, id int64) (*User, error)
	UpdateName(ctx context.Context, id int64, name *string) error
}
