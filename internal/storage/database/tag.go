package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/ptetdev/ptet/internal/domain/tag"
)

type tagRow struct {
	bun.BaseModel `bun:"table:tag_descriptor,alias:td"`

	ID        int64      `bun:"id,pk,autoincrement"`
	UserID    int64      `bun:"user_id"`
	Type      string     `bun:"tag_type"`
	Key       string     `bun:"tag_key"`
	Name      *string    `bun:"tag_name"`
	Unit      *string    `bun:"unit"`
	Remarks   *string    `bun:"remarks"`
	UUID      string     `bun:"uuid"`
	CreatedAt time.Time  `bun:"created_at"`
	UpdatedAt time.Time  `bun:"updated_at"`
	DeletedAt *time.Time `bun:"deleted_at"`
}

func (r *tagRow) toDomain() *tag.Tag {
	return &tag.Tag{
		ID:      r.ID,
		UserID:  r.UserID,
		Type:    tag.Type(r.Type),
		Key:     r.Key,
		Name:    r.Name,
		Unit:    r.Unit,
		Remarks: r.Remarks,
		UUID:    r.UUID,
	}
}

type tagOptionRow struct {
	bun.BaseModel `bun:"table:tag_enum_option,alias:teo"`

	ID        int64      `bun:"id,pk,autoincrement"`
	TagID     int64      `bun:"tag_id"`
	Order     int64      `bun:"order"`
	Value     string     `bun:"value"`
	Name      *string    `bun:"name"`
	UUID      string     `bun:"uuid"`
	CreatedAt time.Time  `bun:"created_at"`
	UpdatedAt time.Time  `bun:"updated_at"`
	DeletedAt *time.Time `bun:"deleted_at"`
}

func (r *tagOptionRow) toDomain() tag.Option {
	return tag.Option{
		ID:    r.ID,
		TagID: r.TagID,
		Order: r.Order,
		Value: r.Value,
		Name:  r.Name,
		UUID:  r.UUID,
	}
}

// TagRepository persists tag descriptors and their enum options.
type TagRepository struct {
	db *bun.DB
}

var _ tag.Repository = (*TagRepository)(nil)

func NewTagRepository(db *bun.DB) *TagRepository {
	return &TagRepository{db: db}
}

func (r *TagRepository) List(ctx context.Context, userID int64, limit, offset int) ([]tag.Tag, int64, error) {
	var rows []tagRow
	q := r.db.NewSelect().Model(&rows).
		Where("td.user_id = ?", userID).
		Where("td.deleted_at IS NULL").
		Order("td.id ASC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list tags")
	}

	tags := make([]tag.Tag, len(rows))
	for i := range rows {
		tags[i] = *rows[i].toDomain()
	}
	if err := r.attachOptions(ctx, tags); err != nil {
		return nil, 0, err
	}
	return tags, int64(total), nil
}

func (r *TagRepository) Get(ctx context.Context, id int64) (*tag.Tag, error) {
	row := new(tagRow)
	err := r.db.NewSelect().Model(row).
		Where("td.id = ?", id).
		Where("td.deleted_at IS NULL").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tag.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get tag")
	}

	t := row.toDomain()
	one := []tag.Tag{*t}
	if err := r.attachOptions(ctx, one); err != nil {
		return nil, err
	}
	return &one[0], nil
}

func (r *TagRepository) Create(ctx context.Context, t *tag.Tag) error {
	now := time.Now().UTC()
	row := &tagRow{
		UserID:    t.UserID,
		Type:      string(t.Type),
		Key:       t.Key,
		Name:      t.Name,
		Unit:      t.Unit,
		Remarks:   t.Remarks,
		UUID:      uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return errors.Wrap(err, "create tag")
	}
	t.ID = row.ID
	t.UUID = row.UUID
	return nil
}

func (r *TagRepository) Update(ctx context.Context, t *tag.Tag) error {
	res, err := r.db.NewUpdate().Model((*tagRow)(nil)).
		Set("tag_type = ?", string(t.Type)).
		Set("tag_key = ?", t.Key).
		Set("tag_name = ?", t.Name).
		Set("unit = ?", t.Unit).
		Set("remarks = ?", t.Remarks).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", t.ID).
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "update tag")
	}
	return checkAffected(res, tag.ErrNotFound)
}

func (r *TagRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.NewUpdate().Model((*tagRow)(nil)).
		Set("deleted_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "delete tag")
	}
	return checkAffected(res, tag.ErrNotFound)
}

// IsOwner reports ErrNotFound unless the live tag belongs to userID.
func (r *TagRepository) IsOwner(ctx context.Context, tagID, userID int64) error {
	count, err := r.db.NewSelect().Model((*tagRow)(nil)).
		Where("td.id = ?", tagID).
		Where("td.user_id = ?", userID).
		Where("td.deleted_at IS NULL").
		Count(ctx)
	if err != nil {
		return errors.Wrap(err, "check tag owner")
	}
	if count == 0 {
		return tag.ErrNotFound
	}
	return nil
}

func (r *TagRepository) ListOptions(ctx context.Context, tagID int64, limit, offset int) ([]tag.Option, int64, error) {
	var rows []tagOptionRow
	q := r.db.NewSelect().Model(&rows).
		Where("teo.tag_id = ?", tagID).
		Where("teo.deleted_at IS NULL").
		OrderExpr(`teo."order" ASC, teo.id ASC`)
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list tag options")
	}

	opts := make([]tag.Option, len(rows))
	for i := range rows {
		opts[i] = rows[i].toDomain()
	}
	return opts, int64(total), nil
}

func (r *TagRepository) GetOption(ctx context.Context, id int64) (*tag.Option, error) {
	row := new(tagOptionRow)
	err := r.db.NewSelect().Model(row).
		Where("teo.id = ?", id).
		Where("teo.deleted_at IS NULL").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tag.ErrOptionNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get tag option")
	}
	opt := row.toDomain()
	return &opt, nil
}

func (r *TagRepository) CreateOption(ctx context.Context, o *tag.Option) error {
	now := time.Now().UTC()
	row := &tagOptionRow{
		TagID:     o.TagID,
		Order:     o.Order,
		Value:     o.Value,
		Name:      o.Name,
		UUID:      uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return errors.Wrap(err, "create tag option")
	}
	o.ID = row.ID
	o.UUID = row.UUID
	return nil
}

func (r *TagRepository) UpdateOption(ctx context.Context, o *tag.Option) error {
	res, err := r.db.NewUpdate().Model((*tagOptionRow)(nil)).
		Set("\"order\" = ?", o.Order).
		Set("value = ?", o.Value).
		Set("name = ?", o.Name).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", o.ID).
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "update tag option")
	}
	return checkAffected(res, tag.ErrOptionNotFound)
}

func (r *TagRepository) DeleteOption(ctx context.Context, id int64) error {
	res, err := r.db.NewUpdate().Model((*tagOptionRow)(nil)).
		Set("deleted_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "delete tag option")
	}
	return checkAffected(res, tag.ErrOptionNotFound)
}

// IsOptionOwner walks the option to its descriptor's owner.
func (r *TagRepository) IsOptionOwner(ctx context.Context, optionID, userID int64) error {
	count, err := r.db.NewSelect().Model((*tagOptionRow)(nil)).
		Join("JOIN tag_descriptor AS td ON td.id = teo.tag_id").
		Where("teo.id = ?", optionID).
		Where("teo.deleted_at IS NULL").
		Where("td.user_id = ?", userID).
		Where("td.deleted_at IS NULL").
		Count(ctx)
	if err != nil {
		return errors.Wrap(err, "check tag option owner")
	}
	if count == 0 {
		return tag.ErrOptionNotFound
	}
	return nil
}

func (r *TagRepository) attachOptions(ctx context.Context, tags []tag.Tag) error {
	if len(tags) == 0 {
		return nil
	}
	ids := make([]int64, len(tags))
	index := make(map[int64]*tag.Tag, len(tags))
	for i := range tags {
		ids[i] = tags[i].ID
		index[tags[i].ID] = &tags[i]
	}

	var rows []tagOptionRow
	err := r.db.NewSelect().Model(&rows).
		Where("teo.tag_id IN (?)", bun.In(ids)).
		Where("teo.deleted_at IS NULL").
		OrderExpr(`teo."order" ASC, teo.id ASC`).
		Scan(ctx)
	if err != nil {
		return errors.Wrap(err, "load tag options")
	}
	for i := range rows {
		t := index[rows[i].TagID]
		t.Options = append(t.Options, rows[i].toDomain())
	}
	return nil
}

func checkAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
