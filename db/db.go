package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"math"
	"strings"
	"time"

	//nolint:revive,nolintlint // Idiomatic way of loading DB libraries.
	_ "github.com/glebarez/go-sqlite"

	"go.hackfix.me/vocbase/db/migrator"
	"go.hackfix.me/vocbase/db/types"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps sql.DB for a single named database instance.
type DB struct {
	*sql.DB
	ctx     context.Context
	timeNow func() time.Time
	name    string
	path    string
}

var _ migrator.DB = (*DB)(nil)

// Open creates and configures a new SQLite database connection.
func Open(ctx context.Context, name, path string, timeNow func() time.Time) (*DB, error) {
	var d *DB
	if strings.Contains(path, "mode=memory") || strings.Contains(path, ":memory:") {
		defer func() {
			if d != nil {
				// See https://github.com/mattn/go-sqlite3#faq
				d.SetMaxIdleConns(10)
				d.SetConnMaxLifetime(time.Duration(math.Inf(1)))
			}
		}()
	}

	sqliteDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed opening SQLite database: %w", err)
	}

	d = &DB{DB: sqliteDB, ctx: ctx, name: name, path: path, timeNow: timeNow}

	// Enable foreign key enforcement
	_, err = d.Exec(`PRAGMA foreign_keys = ON;`)
	if err != nil {
		_ = sqliteDB.Close()
		return nil, fmt.Errorf("failed enabling foreign key enforcement: %w", err)
	}

	return d, nil
}

// Name returns the name of the database.
func (d *DB) Name() string {
	return d.name
}

// Path returns the SQLite data source the database was opened with.
func (d *DB) Path() string {
	return d.path
}

// NewContext returns the main database context.
func (d *DB) NewContext() context.Context {
	return d.ctx
}

// TimeNow returns the current system time.
func (d *DB) TimeNow() time.Time {
	return d.timeNow()
}

// Migrations returns the schema migrations every database is upgraded with.
func Migrations() ([]*migrator.Migration, error) {
	migrationsDir, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed getting migrations directory: %w", err)
	}

	return migrator.LoadMigrations(migrationsDir)
}

var _ types.Database = (*DB)(nil)
