package transaction_test

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go.hackfix.me/vocbase/db"
	"go.hackfix.me/vocbase/db/migrator"
	"go.hackfix.me/vocbase/db/types"
)

var timeNow = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func timeNowFn() time.Time {
	return timeNow
}

var discardLogger = slog.New(slog.DiscardHandler)

// fakeDB is a database that can't run queries.
type fakeDB struct {
	name string
}

var _ types.Database = (*fakeDB)(nil)

func (f *fakeDB) Name() string                { return f.name }
func (f *fakeDB) NewContext() context.Context { return context.Background() }
func (f *fakeDB) TimeNow() time.Time          { return timeNow }
func (f *fakeDB) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, sql.ErrConnDone
}

func (f *fakeDB) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, sql.ErrConnDone
}

func (f *fakeDB) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

// newMemDB returns an in-memory SQLite database with all migrations applied.
func newMemDB(t *testing.T, name string) *db.DB {
	t.Helper()

	// A unique name per database, to avoid clashing of in-memory SQLite DBs.
	rndName := make([]byte, 12)
	_, err := rand.Read(rndName)
	require.NoError(t, err)

	// Not using just :memory: to avoid 'no such table' issue.
	// See https://github.com/mattn/go-sqlite3#faq
	d, err := db.Open(t.Context(), name,
		fmt.Sprintf("file:vocbase-%x?mode=memory&cache=shared", rndName), timeNowFn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	migrations, err := db.Migrations()
	require.NoError(t, err)
	require.NoError(t, migrator.Run(t.Context(), d, migrations, "test", discardLogger))

	return d
}
