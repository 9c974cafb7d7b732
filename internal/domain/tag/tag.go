package tag

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for tag lookups.
var (
	ErrNotFound       = errors.New("tag not found")
	ErrOptionNotFound = errors.New("tag option not found")
)

// Type enumerates the value kinds a tag descriptor can hold.
type Type string

const (
	TypeInteger  Type = "integer"
	TypeFloat    Type = "float"
	TypeString   Type = "string"
	TypeEnum     Type = "enum"
	TypeDateTime Type = "date_time"
)

// ParseType validates a wire-format tag type string.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeInteger, TypeFloat, TypeString, TypeEnum, TypeDateTime:
		return Type(s), nil
	default:
		return "", fmt.Errorf("invalid tag type %q", s)
	}
}

// Tag is a user-defined descriptor for a value attached to rides, such as
// a price, a delay, or a ticket category. Enum tags own a set of Options.
type Tag struct {
	ID      int64
	UserID  int64
	Type    Type
	Key     string
	Name    *string
	UUID    string
	Unit    *string
	Remarks *string

	// Options is populated for enum tags only.
	Options []Option
}

// DisplayName returns the human-readable name, falling back to the key.
func (t *Tag) DisplayName() string {
	if t.Name != nil && *t.Name != "" {
		return *t.Name
	}
	return t.Key
}

// HasOption reports whether the given option ID belongs to this tag.
func (t *Tag) HasOption(optionID int64) bool {
	for _, o := range t.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}

// Option is one selectable value of an enum tag.
type Option struct {
	ID    int64
	TagID int64
	Order int64
	Value string
	UUID  string
	Name  *string
}

// DisplayName returns the option name, falling back to its value.
func (o *Option) DisplayName() string {
	if o.Name != nil && *o.Name != "" {
		return *o.Name
	}
	return o.Value
}

// Repository defines persistence operations for tag descriptors and their
// enum options. Owner checks return ErrNotFound (not a distinct error) so
// foreign resources are indistinguishable from missing ones.
type Repository interface {
	List(ctx context.Context, userID int64, limit, offset int) ([]Tag, int64, error)
	Get(ctx context.Context, id int64) (*Tag, error)
	Create(ctx context.Context, t *Tag) error
	Update(ctx context.Context, t *Tag) error
	Delete(ctx context.Context, id int64) error
	IsOwner(ctx context.Context, tagID, userID int64) error

	ListOptions(ctx context.Context, tagID int64, limit, offset int) ([]Option, int64, error)
	GetOption(ctx context.Context, id int64) (*Option, error)
	CreateOption(ctx context.Context, o *Option) error
	UpdateOption(ctx context.Context, o *Option) error
	DeleteOption(ctx context.Context, id int64) error
	IsOptionOwner(ctx context.Context, optionID, userID int64) error
}
