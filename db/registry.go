package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/mandelsoft/vfs/pkg/vfs"

	aerrors "go.hackfix.me/vocbase/app/errors"
	"go.hackfix.me/vocbase/db/types"
)

// ErrUpgradeRunning is returned when creating a database while the databases
// are opened for an upgrade run.
var ErrUpgradeRunning = errors.New("databases are opened for an upgrade run")

// SystemDatabase is the default name of the administrative database.
const SystemDatabase = "_system"

const fileExt = ".db"

var nameRx = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]{0,63}$`)

// Registry keeps track of all database instances stored in a data directory.
// Each database is a SQLite file in the "databases" subdirectory.
type Registry struct {
	ctx     context.Context
	fs      vfs.FileSystem
	dir     string
	system  string
	timeNow func() time.Time
	logger  *slog.Logger

	dbs                map[string]*DB
	replicationApplier bool
	upgrade            bool
}

// RegistryOption is a function that allows configuring the Registry.
type RegistryOption func(*Registry)

// WithSystemDatabase sets the name of the administrative database.
func WithSystemDatabase(name string) RegistryOption {
	return func(r *Registry) {
		r.system = name
	}
}

// WithRegistryLogger sets the logger used by the Registry.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger.With("component", "registry")
	}
}

// NewRegistry returns a new Registry for the databases stored in dataDir. The
// filesystem must be backed by the OS, since SQLite opens files directly.
func NewRegistry(
	ctx context.Context, fs vfs.FileSystem, dataDir string, timeNow func() time.Time,
	opts ...RegistryOption,
) *Registry {
	r := &Registry{
		ctx:                ctx,
		fs:                 fs,
		dir:                filepath.Join(dataDir, "databases"),
		system:             SystemDatabase,
		timeNow:            timeNow,
		logger:             slog.Default().With("component", "registry"),
		dbs:                make(map[string]*DB),
		replicationApplier: true,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Load opens every database found in the data directory, creating the
// administrative database if it doesn't exist yet.
func (r *Registry) Load() error {
	if err := r.fs.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("failed creating databases directory: %w", err)
	}

	entries, err := vfs.ReadDir(r.fs, r.dir)
	if err != nil {
		return fmt.Errorf("failed reading databases directory: %w", err)
	}

	for _, entry := range entries {
		fname := entry.Name()
		if entry.IsDir() || filepath.Ext(fname) != fileExt {
			continue
		}
		name := strings.TrimSuffix(fname, fileExt)
		if !nameRx.MatchString(name) {
			r.logger.Warn("ignoring file with invalid database name", "file", fname)
			continue
		}
		if _, err = r.open(name); err != nil {
			return err
		}
	}

	if _, ok := r.dbs[r.system]; !ok {
		r.logger.Info("creating administrative database", "database", r.system)
		if _, err = r.open(r.system); err != nil {
			return err
		}
	}

	return nil
}

// Create creates a new empty database. Names starting with an underscore are
// reserved for system databases. No database can be created during an upgrade
// run.
func (r *Registry) Create(name string) (*DB, error) {
	if r.upgrade {
		return nil, aerrors.With(ErrUpgradeRunning, "database", name)
	}
	if !nameRx.MatchString(name) || strings.HasPrefix(name, "_") {
		return nil, types.InvalidInputError{Msg: fmt.Sprintf("invalid database name '%s'", name)}
	}
	if _, ok := r.dbs[name]; ok {
		return nil, types.DuplicateError{ModelName: "database", ID: fmt.Sprintf("name '%s'", name)}
	}

	d, err := r.open(name)
	if err != nil {
		return nil, err
	}
	r.logger.Info("created database", "database", name)

	return d, nil
}

func (r *Registry) open(name string) (*DB, error) {
	path := filepath.Join(r.dir, name+fileExt)
	d, err := Open(r.ctx, name, path, r.timeNow)
	if err != nil {
		return nil, fmt.Errorf("failed opening database '%s': %w", name, err)
	}
	r.dbs[name] = d
	r.logger.Debug("opened database", "database", name, "path", path)

	return d, nil
}

// Get returns the database with the given name.
func (r *Registry) Get(name string) (*DB, bool) {
	d, ok := r.dbs[name]
	return d, ok
}

// Names returns the database names in iteration order: the administrative
// database first, followed by all others sorted by name.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.dbs))
	for name := range r.dbs {
		if name != r.system {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	if _, ok := r.dbs[r.system]; ok {
		names = slices.Insert(names, 0, r.system)
	}

	return names
}

// Databases returns all databases in the same stable order as Names.
func (r *Registry) Databases() []types.Database {
	names := r.Names()
	dbs := make([]types.Database, 0, len(names))
	for _, name := range names {
		dbs = append(dbs, r.dbs[name])
	}

	return dbs
}

// System returns the administrative database. Load must be called first.
//
//nolint:ireturn // Consumers only depend on the interface.
func (r *Registry) System() types.Database {
	return r.dbs[r.system]
}

// DisableReplicationApplier prevents the replication applier from starting
// once the database layer serves.
func (r *Registry) DisableReplicationApplier() {
	r.replicationApplier = false
	r.logger.Debug("disabled replication applier")
}

// ReplicationApplierEnabled returns true if the replication applier may start.
func (r *Registry) ReplicationApplierEnabled() bool {
	return r.replicationApplier
}

// EnableUpgrade marks the databases as opened for an exclusive upgrade run.
func (r *Registry) EnableUpgrade() {
	r.upgrade = true
	r.logger.Debug("enabled upgrade mode")
}

// UpgradeEnabled returns true if the databases were opened for an upgrade run.
func (r *Registry) UpgradeEnabled() bool {
	return r.upgrade
}

// Close closes all databases.
func (r *Registry) Close() error {
	var errs []error
	for _, name := range r.Names() {
		if err := r.dbs[name].Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed closing database '%s': %w", name, err))
		}
		delete(r.dbs, name)
	}

	return errors.Join(errs...)
}
