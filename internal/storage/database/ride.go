package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-faster/errors"
	"github.com/uptrace/bun"

	"github.com/ptetdev/ptet/internal/domain/ride"
	"github.com/ptetdev/ptet/internal/domain/ridetag"
)

type rideRow struct {
	bun.BaseModel `bun:"table:ride,alias:r"`

	ID               int64      `bun:"id,pk,autoincrement"`
	UserID           int64      `bun:"user_id"`
	JourneyDeparture time.Time  `bun:"journey_departure"`
	JourneyArrival   *time.Time `bun:"journey_arrival"`
	LocationFrom     string     `bun:"location_from"`
	LocationTo       string     `bun:"location_to"`
	Remarks          *string    `bun:"remarks"`
	IsTemplate       bool       `bun:"is_template"`
	CreatedAt        time.Time  `bun:"created_at"`
	UpdatedAt        time.Time  `bun:"updated_at"`
	DeletedAt        *time.Time `bun:"deleted_at"`
}

func (r *rideRow) toDomain() *ride.Ride {
	return &ride.Ride{
		ID:               r.ID,
		UserID:           r.UserID,
		JourneyDeparture: r.JourneyDeparture,
		JourneyArrival:   r.JourneyArrival,
		LocationFrom:     r.LocationFrom,
		LocationTo:       r.LocationTo,
		Remarks:          r.Remarks,
		IsTemplate:       r.IsTemplate,
	}
}

// RideRepository persists rides with their attached tag links.
type RideRepository struct {
	db    *bun.DB
	links *RideTagRepository
}

func NewRideRepository(db *bun.DB) *RideRepository {
	return &RideRepository{db: db, links: NewRideTagRepository(db)}
}

func (r *RideRepository) List(ctx context.Context, userID int64, limit, offset int) ([]ride.Ride, int64, error) {
	var rows []rideRow
	q := r.db.NewSelect().Model(&rows).
		Where("r.user_id = ?", userID).
		Where("r.deleted_at IS NULL").
		OrderExpr("r.journey_departure DESC, r.id DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list rides")
	}

	rides := make([]ride.Ride, len(rows))
	for i := range rows {
		rides[i] = *rows[i].toDomain()
	}
	if err := r.attachLinks(ctx, rides); err != nil {
		return nil, 0, err
	}
	return rides, int64(total), nil
}

func (r *RideRepository) Get(ctx context.Context, id int64) (*ride.Ride, error) {
	row := new(rideRow)
	err := r.db.NewSelect().Model(row).
		Where("r.id = ?", id).
		Where("r.deleted_at IS NULL").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ride.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get ride")
	}

	one := []ride.Ride{*row.toDomain()}
	if err := r.attachLinks(ctx, one); err != nil {
		return nil, err
	}
	return &one[0], nil
}

func (r *RideRepository) Create(ctx context.Context, rd *ride.Ride) error {
	now := time.Now().UTC()
	row := &rideRow{
		UserID:           rd.UserID,
		JourneyDeparture: rd.JourneyDeparture,
		JourneyArrival:   rd.JourneyArrival,
		LocationFrom:     rd.LocationFrom,
		LocationTo:       rd.LocationTo,
		Remarks:          rd.Remarks,
		IsTemplate:       rd.IsTemplate,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return errors.Wrap(err, "create ride")
	}
	rd.ID = row.ID
	return nil
}

func (r *RideRepository) Update(ctx context.Context, rd *ride.Ride) error {
	res, err := r.db.NewUpdate().Model((*rideRow)(nil)).
		Set("journey_departure = ?", rd.JourneyDeparture).
		Set("journey_arrival = ?", rd.JourneyArrival).
		Set("location_from = ?", rd.LocationFrom).
		Set("location_to = ?", rd.LocationTo).
		Set("remarks = ?", rd.Remarks).
		Set("is_template = ?", rd.IsTemplate).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", rd.ID).
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "update ride")
	}
	return checkAffected(res, ride.ErrNotFound)
}

func (r *RideRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.NewUpdate().Model((*rideRow)(nil)).
		Set("deleted_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "delete ride")
	}
	return checkAffected(res, ride.ErrNotFound)
}

func (r *RideRepository) IsOwner(ctx context.Context, rideID, userID int64) error {
	count, err := r.db.NewSelect().Model((*rideRow)(nil)).
		Where("r.id = ?", rideID).
		Where("r.user_id = ?", userID).
		Where("r.deleted_at IS NULL").
		Count(ctx)
	if err != nil {
		return errors.Wrap(err, "check ride owner")
	}
	if count == 0 {
		return ride.ErrNotFound
	}
	return nil
}

func (r *RideRepository) attachLinks(ctx context.Context, rides []ride.Ride) error {
	if len(rides) == 0 {
		return nil
	}
	ids := make([]int64, len(rides))
	index := make(map[int64]*ride.Ride, len(rides))
	for i := range rides {
		ids[i] = rides[i].ID
		index[rides[i].ID] = &rides[i]
	}

	links, err := r.links.listByRides(ctx, ids)
	if err != nil {
		return err
	}
	for _, l := range links {
		rd := index[l.RideID]
		rd.Tags = append(rd.Tags, l)
	}
	return nil
}

var _ ridetag.Repository = (*RideTagRepository)(nil)
var _ ride.Repository = (*RideRepository)(nil)
