package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-faster/errors"
	"github.com/uptrace/bun"

	"github.com/ptetdev/ptet/internal/domain/ridetag"
)

type rideTagRow struct {
	bun.BaseModel `bun:"table:ride_tag,alias:rt"`

	ID           int64      `bun:"id,pk,autoincrement"`
	RideID       int64      `bun:"ride_id"`
	TagID        int64      `bun:"tag_id"`
	Order        int64      `bun:"order"`
	ValueInteger *int64     `bun:"value_integer"`
	ValueFloat   *float64   `bun:"value_float"`
	ValueString  *string    `bun:"value_string"`
	ValueTime    *time.Time `bun:"value_date_time"`
	ValueOption  *int64     `bun:"value_enum_option_id"`
	Remarks      *string    `bun:"remarks"`
	CreatedAt    time.Time  `bun:"created_at"`
	UpdatedAt    time.Time  `bun:"updated_at"`
	DeletedAt    *time.Time `bun:"deleted_at"`
}

// setValue spreads the typed payload over the value columns
// so that exactly one of them is non-null.
func (r *rideTagRow) setValue(v ridetag.Value) error {
	r.ValueInteger, r.ValueFloat, r.ValueString, r.ValueTime, r.ValueOption = nil, nil, nil, nil, nil
	switch v.Type {
	case ridetag.ValueInteger:
		r.ValueInteger = &v.Integer
	case ridetag.ValueFloat:
		r.ValueFloat = &v.Float
	case ridetag.ValueString:
		r.ValueString = &v.String
	case ridetag.ValueDateTime:
		t := v.DateTime.UTC()
		r.ValueTime = &t
	case ridetag.ValueEnumOption:
		r.ValueOption = &v.EnumOption
	default:
		return errors.Errorf("invalid value type %q", v.Type)
	}
	return nil
}

func (r *rideTagRow) toDomain() (ridetag.Link, error) {
	var value ridetag.Value
	switch {
	case r.ValueInteger != nil:
		value = ridetag.Value{Type: ridetag.ValueInteger, Integer: *r.ValueInteger}
	case r.ValueFloat != nil:
		value = ridetag.Value{Type: ridetag.ValueFloat, Float: *r.ValueFloat}
	case r.ValueString != nil:
		value = ridetag.Value{Type: ridetag.ValueString, String: *r.ValueString}
	case r.ValueTime != nil:
		value = ridetag.Value{Type: ridetag.ValueDateTime, DateTime: r.ValueTime.UTC()}
	case r.ValueOption != nil:
		value = ridetag.Value{Type: ridetag.ValueEnumOption, EnumOption: *r.ValueOption}
	default:
		return ridetag.Link{}, errors.Errorf("link %d has no value", r.ID)
	}
	return ridetag.Link{
		ID:      r.ID,
		RideID:  r.RideID,
		TagID:   r.TagID,
		Order:   r.Order,
		Value:   value,
		Remarks: r.Remarks,
	}, nil
}

// RideTagRepository persists the typed values linking tags to rides.
// Each value kind occupies its own nullable column, one set per row.
type RideTagRepository struct {
	db *bun.DB
}

func NewRideTagRepository(db *bun.DB) *RideTagRepository {
	return &RideTagRepository{db: db}
}

func (r *RideTagRepository) ListByRide(ctx context.Context, rideID int64) ([]ridetag.Link, error) {
	return r.listByRides(ctx, []int64{rideID})
}

func (r *RideTagRepository) listByRides(ctx context.Context, rideIDs []int64) ([]ridetag.Link, error) {
	var rows []rideTagRow
	err := r.db.NewSelect().Model(&rows).
		Where("rt.ride_id IN (?)", bun.In(rideIDs)).
		Where("rt.deleted_at IS NULL").
		OrderExpr(`rt."order" ASC, rt.id ASC`).
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list ride tags")
	}

	links := make([]ridetag.Link, 0, len(rows))
	for i := range rows {
		l, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, nil
}

// GetByTag finds the live link of the (ride, tag) pair.
func (r *RideTagRepository) GetByTag(ctx context.Context, rideID, tagID int64) (*ridetag.Link, error) {
	row := new(rideTagRow)
	err := r.db.NewSelect().Model(row).
		Where("rt.ride_id = ?", rideID).
		Where("rt.tag_id = ?", tagID).
		Where("rt.deleted_at IS NULL").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ridetag.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get ride tag")
	}
	l, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *RideTagRepository) Get(ctx context.Context, id int64) (*ridetag.Link, error) {
	row := new(rideTagRow)
	err := r.db.NewSelect().Model(row).
		Where("rt.id = ?", id).
		Where("rt.deleted_at IS NULL").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ridetag.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get ride tag")
	}
	l, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *RideTagRepository) Create(ctx context.Context, l *ridetag.Link) error {
	now := time.Now().UTC()
	row := &rideTagRow{
		RideID:    l.RideID,
		TagID:     l.TagID,
		Order:     l.Order,
		Remarks:   l.Remarks,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := row.setValue(l.Value); err != nil {
		return err
	}
	if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return errors.Wrap(err, "create ride tag")
	}
	l.ID = row.ID
	return nil
}

func (r *RideTagRepository) Update(ctx context.Context, l *ridetag.Link) error {
	row := new(rideTagRow)
	if err := row.setValue(l.Value); err != nil {
		return err
	}
	res, err := r.db.NewUpdate().Model((*rideTagRow)(nil)).
		Set(`"order" = ?`, l.Order).
		Set("value_integer = ?", row.ValueInteger).
		Set("value_float = ?", row.ValueFloat).
		Set("value_string = ?", row.ValueString).
		Set("value_date_time = ?", row.ValueTime).
		Set("value_enum_option_id = ?", row.ValueOption).
		Set("remarks = ?", l.Remarks).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", l.ID).
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "update ride tag")
	}
	return checkAffected(res, ridetag.ErrNotFound)
}

func (r *RideTagRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.NewUpdate().Model((*rideTagRow)(nil)).
		Set("deleted_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "delete ride tag")
	}
	return checkAffected(res, ridetag.ErrNotFound)
}

// IsOwner checks the link against the owning ride's user.
func (r *RideTagRepository) IsOwner(ctx context.Context, linkID, userID int64) error {
	count, err := r.db.NewSelect().Model((*rideTagRow)(nil)).
		Join("JOIN ride AS r ON r.id = rt.ride_id").
		Where("rt.id = ?", linkID).
		Where("rt.deleted_at IS NULL").
		Where("r.user_id = ?", userID).
		Where("r.deleted_at IS NULL").
		Count(ctx)
	if err != nil {
		return errors.Wrap(err, "check ride tag owner")
	}
	if count == 0 {
		return ridetag.ErrNotFound
	}
	return nil
}
