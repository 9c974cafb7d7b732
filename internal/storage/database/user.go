package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-faster/errors"
	"github.com/uptrace/bun"

	"github.com/ptetdev/ptet/internal/domain/user"
)

type userRow struct {
	bun.BaseModel `bun:"table:user,alias:u"`

	ID         int64      `bun:"id,pk,autoincrement"`
	JWTIssuer  string     `bun:"jwt_issuer"`
	JWTSubject string     `bun:"jwt_subject"`
	Name       *string    `bun:"name"`
	CreatedAt  time.Time  `bun:"created_at"`
	UpdatedAt  time.Time  `bun:"updated_at"`
	DeletedAt  *time.Time `bun:"deleted_at"`
}

func (r *userRow) toDomain() *user.User {
	return &user.User{
		ID:         r.ID,
		JWTIssuer:  r.JWTIssuer,
		JWTSubject: r.JWTSubject,
		Name:       r.Name,
	}
}

// UserRepository persists users keyed by their token identity.
type UserRepository struct {
	db *bun.DB
}

var _ user.Repository = (*UserRepository)(nil)

func NewUserRepository(db *bun.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindOrCreate resolves the user for a token identity, inserting a row
// on first contact.
func (r *UserRepository) FindOrCreate(ctx context.Context, issuer, subject string) (*user.User, error) {
	row := new(userRow)
	err := r.db.NewSelect().Model(row).
		Where("jwt_issuer = ?", issuer).
		Where("jwt_subject = ?", subject).
		Where("deleted_at IS NULL").
		Scan(ctx)
	switch {
	case err == nil:
		return row.toDomain(), nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, errors.Wrap(err, "find user")
	}

	now := time.Now().UTC()
	row = &userRow{
		JWTIssuer:  issuer,
		JWTSubject: subject,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return nil, errors.Wrap(err, "create user")
	}
	return row.toDomain(), nil
}

func (r *UserRepository) Get(ctx context.Context, id int64) (*user.User, error) {
	row := new(userRow)
	err := r.db.NewSelect().Model(row).
		Where("id = ?", id).
		Where("deleted_at IS NULL").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get user")
	}
	return row.toDomain(), nil
}

func (r *UserRepository) UpdateName(ctx context.Context, id int64, name *string) error {
	res, err := r.db.NewUpdate().Model((*userRow)(nil)).
		Set("name = ?", name).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "update user")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "update user")
	}
	if affected == 0 {
		return user.ErrNotFound
	}
	return nil
}
