package upgrade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	aerrors "go.hackfix.me/vocbase/app/errors"
	"go.hackfix.me/vocbase/db/types"
	"go.hackfix.me/vocbase/script"
	"go.hackfix.me/vocbase/transaction"
)

// RecoveryGate finishes the write-ahead-log recovery.
type RecoveryGate interface {
	Open(ctx context.Context) error
}

// DatabaseRegistry provides the databases to upgrade.
type DatabaseRegistry interface {
	// System returns the administrative database.
	System() types.Database
	// Databases returns all databases, including the administrative one, in
	// a stable order.
	Databases() []types.Database
	DisableReplicationApplier()
	EnableUpgrade()
}

// Cluster is the cluster membership of the node.
type Cluster interface {
	Disable()
}

// Driver runs the upgrade script for every database at startup.
type Driver struct {
	gate     RecoveryGate
	registry DatabaseRegistry
	cluster  Cluster
	script   script.Script
	engine   *script.Engine
	contexts *transaction.Registry
	shutdown func()
	logger   *slog.Logger

	upgrade      bool
	upgradeCheck bool
	state        State
}

// New returns a new Driver. It fails if the upgrade options can't be combined.
func New(
	gate RecoveryGate, registry DatabaseRegistry, cluster Cluster, scr script.Script,
	opts ...Option,
) (*Driver, error) {
	if gate == nil || registry == nil || cluster == nil || scr == nil {
		return nil, errors.New("recovery gate, database registry, cluster and script are required")
	}

	d := &Driver{gate: gate, registry: registry, cluster: cluster, script: scr}
	for _, opt := range append(DefaultOptions(), opts...) {
		opt(d)
	}

	if err := ValidateOptions(d.upgrade, d.upgradeCheck); err != nil {
		return nil, err
	}
	if d.engine == nil {
		d.engine = script.NewEngine(d.logger)
	}
	if d.contexts == nil {
		d.contexts = transaction.NewRegistry(d.logger)
	}

	return d, nil
}

// State returns the current state of the Driver.
func (d *Driver) State() State {
	return d.state
}

// Prepare isolates the node for an exclusive upgrade run. It does nothing
// unless upgrade mode is enabled, and must be called before Start.
func (d *Driver) Prepare() {
	if !d.upgrade {
		d.logger.Debug("executing upgrade check: not disabling server features")
		return
	}

	d.logger.Debug("executing upgrade procedure: disabling server features")
	d.registry.DisableReplicationApplier()
	d.registry.EnableUpgrade()
	d.cluster.Disable()
}

// Start opens the recovery gate, and runs the upgrade scripts if the upgrade
// check is enabled. In upgrade mode a shutdown is requested afterwards.
//
// Any fatal failure is returned as an error wrapping a *FatalError, and leaves
// the Driver in StateFatalAborted.
func (d *Driver) Start(ctx context.Context) (*Result, error) {
	if d.state != StateIdle {
		return nil, fmt.Errorf("upgrade driver already started (state: %s)", d.state)
	}
	res := &Result{}

	if err := d.gate.Open(ctx); err != nil {
		return d.abort(res, &FatalError{
			Class: ClassInfrastructure,
			Msg:   "unable to finish WAL recovery procedure",
		}, err)
	}
	d.state = StateRecoveryGateOpen

	if d.upgradeCheck {
		if ferr := d.upgradeDatabases(ctx, res); ferr != nil {
			return d.abort(res, ferr, nil)
		}
	}

	d.state = StateCompleted
	res.State = d.state

	if d.upgrade {
		res.ShutdownRequested = true
		if d.shutdown != nil {
			d.shutdown()
		}
	}

	return res, nil
}

func (d *Driver) abort(res *Result, ferr *FatalError, cause error) (*Result, error) {
	d.state = StateFatalAborted
	res.State = d.state

	fields := []any{"class", ferr.Class.String()}
	if ferr.Database != "" {
		fields = append(fields, "database", ferr.Database)
	}

	return res, aerrors.WithCause(ferr, cause, fields...)
}

func (d *Driver) upgradeDatabases(ctx context.Context, res *Result) *FatalError {
	d.logger.Debug("starting database init/upgrade")
	d.state = StatePerDatabaseUpgrade

	system := d.registry.System()
	root, err := d.engine.Enter(system, true, "upgrade")
	if err != nil {
		d.logger.Error("failed entering scripting scope", "error", err)
		return &FatalError{Class: ClassInfrastructure, Msg: "failed entering scripting scope"}
	}
	defer func() {
		if err := d.engine.Exit(root); err != nil {
			d.logger.Error("failed exiting scripting scope", "error", err)
		}
	}()

	admin := d.contexts.Create(root.ID(), system, true)
	defer d.contexts.EndScope(root.ID())
	if err = admin.MakeGlobal(); err != nil {
		d.logger.Error("failed promoting administrative context", "error", err)
		return &FatalError{Class: ClassInfrastructure, Msg: "failed creating administrative context"}
	}

	for _, vocbase := range d.registry.Databases() {
		outcome, ferr := d.upgradeDatabase(ctx, root, vocbase)
		res.Databases = append(res.Databases, DatabaseResult{Database: vocbase.Name(), Outcome: outcome})
		if ferr != nil {
			return ferr
		}
	}

	if d.upgrade {
		res.UpgradePassed = true
		d.logger.Info("database upgrade passed")
	}
	d.logger.Debug("finished database init/upgrade")

	return nil
}

// upgradeDatabase runs the script for one database, and applies the outcome
// policy. The child scope is always exited before returning.
func (d *Driver) upgradeDatabase(
	ctx context.Context, root *script.Scope, vocbase types.Database,
) (Outcome, *FatalError) {
	name := vocbase.Name()
	ok, started, err := d.runScript(ctx, root, vocbase)
	if err != nil {
		d.logger.Error("scripting engine failure", "database", name, "error", err)
		return OutcomeFailedUncontrolled, &FatalError{
			Class:    ClassInfrastructure,
			Database: name,
			Msg:      "scripting engine failure during server start",
		}
	}

	outcome := Classify(ok, started)
	switch {
	case outcome == OutcomeSuccess:
		d.logger.Debug("database init/upgrade done", "database", name)
		return outcome, nil
	case outcome == OutcomeFailedUncontrolled:
		return outcome, &FatalError{
			Class:    ClassInfrastructure,
			Database: name,
			Msg:      "uncontrolled engine error during server start",
		}
	case d.upgrade:
		return outcome, &FatalError{
			Class:    ClassMigration,
			Database: name,
			Msg:      fmt.Sprintf("database '%s' upgrade failed", name),
			Remedy:   "Please inspect the logs from the upgrade procedure.",
		}
	default:
		return outcome, &FatalError{
			Class:    ClassMigration,
			Database: name,
			Msg:      fmt.Sprintf("database '%s' needs upgrade", name),
			Remedy:   "Please restart the server with the --database-upgrade option.",
		}
	}
}

// runScript enters a child scope of root, runs the script in it, and reads
// back its result and the upgrade started marker. A panicking script counts
// as a failed one.
func (d *Driver) runScript(
	ctx context.Context, root *script.Scope, vocbase types.Database,
) (ok, started bool, err error) {
	scope, err := d.engine.EnterChild(root, vocbase, "upgrade database")
	if err != nil {
		return false, false, err
	}

	inv := &script.Invocation{
		Scope:    scope,
		Context:  d.contexts.Create(scope.ID(), vocbase, true),
		Database: vocbase,
		Args:     script.Args{Upgrade: d.upgrade},
		Logger:   d.logger.With("scope", scope.ID()),
	}
	scope.Set(script.GlobalUpgradeArgs, inv.Args)

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("upgrade script panicked", "database", vocbase.Name(), "panic", r)
			ok = false
		}
		started = scope.Has(script.GlobalUpgradeStarted)
		d.contexts.Release(inv.Context)
		if exitErr := d.engine.Exit(scope); exitErr != nil {
			err = exitErr
		}
	}()

	d.logger.Debug("running database init/upgrade", "database", vocbase.Name())

	return d.script.Run(ctx, inv), false, nil
}
