// Package database implements the repository interfaces on top of a
// relational database. SQLite and PostgreSQL are supported, selected by
// the scheme of the database URI.
package database

import (
	"context"
	"database/sql"
	"io/fs"
	"net/url"
	"sort"
	"strings"

	"github.com/go-faster/errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"

	"github.com/ptetdev/ptet/db"
)

// Open connects to the database named by uri. Supported forms are
// sqlite://<path>[?params] and postgres://... connection URIs.
func Open(uri string) (*bun.DB, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, errors.Wrap(err, "parse database uri")
	}

	switch u.Scheme {
	case "sqlite":
		dsn := "file:" + sqlitePath(u)
		if u.RawQuery != "" {
			dsn += "?" + u.RawQuery
		}
		sqldb, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, errors.Wrap(err, "open sqlite database")
		}
		// modernc sqlite serializes writes per connection.
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	case "postgres", "postgresql":
		sqldb, err := sql.Open("pgx", uri)
		if err != nil {
			return nil, errors.Wrap(err, "open postgres database")
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	}
	return nil, errors.Errorf("unsupported database scheme %q", u.Scheme)
}

// sqlitePath reassembles the path part of a sqlite URI. Both
// sqlite://relative/path and sqlite:///absolute/path are accepted.
func sqlitePath(u *url.URL) string {
	path := u.Opaque
	if path == "" {
		path = u.Host + u.Path
	}
	return path
}

// Migrate applies the embedded schema for the dialect of bdb. The
// statements are idempotent so repeated startup runs are safe.
func Migrate(ctx context.Context, bdb *bun.DB) error {
	dialect := "sqlite"
	if strings.EqualFold(bdb.Dialect().Name().String(), "pg") {
		dialect = "postgres"
	}

	dir := "migrations/" + dialect
	entries, err := fs.ReadDir(db.Migrations, dir)
	if err != nil {
		return errors.Wrap(err, "read schema directory")
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		raw, err := fs.ReadFile(db.Migrations, dir+"/"+name)
		if err != nil {
			return errors.Wrapf(err, "read schema %s", name)
		}
		if _, err := bdb.ExecContext(ctx, string(raw)); err != nil {
			return errors.Wrapf(err, "apply schema %s", name)
		}
	}
	return nil
}
