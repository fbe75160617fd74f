package upgrade_test

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"go.hackfix.me/vocbase/db/types"
	"go.hackfix.me/vocbase/script"
)

var discardLogger = slog.New(slog.DiscardHandler)

type fakeDB struct {
	name string
}

var _ types.Database = (*fakeDB)(nil)

func (f *fakeDB) Name() string                { return f.name }
func (f *fakeDB) NewContext() context.Context { return context.Background() }
func (f *fakeDB) TimeNow() time.Time          { return time.Time{} }
func (f *fakeDB) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, sql.ErrConnDone
}

func (f *fakeDB) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, sql.ErrConnDone
}

func (f *fakeDB) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

type fakeGate struct {
	err    error
	opened int
}

func (g *fakeGate) Open(context.Context) error {
	g.opened++
	return g.err
}

var errGate = errors.New("wal checkpoint failed")

type fakeRegistry struct {
	dbs                  []types.Database
	applierDisabled      bool
	upgradeEnabled       bool
	systemCalls, dbCalls int
}

func newFakeRegistry(names ...string) *fakeRegistry {
	r := &fakeRegistry{}
	for _, name := range names {
		r.dbs = append(r.dbs, &fakeDB{name: name})
	}
	return r
}

//nolint:ireturn // Implements upgrade.DatabaseRegistry.
func (r *fakeRegistry) System() types.Database {
	r.systemCalls++
	return r.dbs[0]
}

func (r *fakeRegistry) Databases() []types.Database {
	r.dbCalls++
	return r.dbs
}

func (r *fakeRegistry) DisableReplicationApplier() { r.applierDisabled = true }
func (r *fakeRegistry) EnableUpgrade()             { r.upgradeEnabled = true }

type fakeCluster struct {
	disabled bool
}

func (c *fakeCluster) Disable() { c.disabled = true }

// scriptResult is the behavior of the recording script for one database.
type scriptResult struct {
	ok      bool
	started bool
	panics  bool
}

// recordingScript records the databases it was run on, and behaves as
// configured per database name. Databases without a configured result
// succeed.
type recordingScript struct {
	results map[string]scriptResult
	calls   []string
	invs    []*script.Invocation
	global  []bool
}

func (s *recordingScript) Run(_ context.Context, inv *script.Invocation) bool {
	name := inv.Database.Name()
	s.calls = append(s.calls, name)
	s.invs = append(s.invs, inv)
	s.global = append(s.global, inv.Context.IsGlobal())

	res, ok := s.results[name]
	if !ok {
		return true
	}
	if res.started {
		inv.Scope.Set(script.GlobalUpgradeStarted, true)
	}
	if res.panics {
		panic("script failure")
	}
	return res.ok
}
