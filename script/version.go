package script

import (
	"context"
	"log/slog"

	"go.hackfix.me/vocbase/db/migrator"
	"go.hackfix.me/vocbase/transaction"
)

// VersionScript is the builtin upgrade script. It brings the schema of a
// database up to date with the migrations known to this build.
//
// Brand-new databases are always initialized. Databases with pending
// migrations are only migrated if the invocation allows upgrades, and
// databases that were migrated by a newer build are rejected. Once the
// migration history of a database was read, every failure is reported with
// GlobalUpgradeStarted set.
type VersionScript struct {
	migrations []*migrator.Migration
}

var _ Script = (*VersionScript)(nil)

// NewVersionScript returns a new VersionScript for the given migrations.
func NewVersionScript(migrations []*migrator.Migration) *VersionScript {
	return &VersionScript{migrations: migrations}
}

// Run implements the Script interface.
func (vs *VersionScript) Run(ctx context.Context, inv *Invocation) bool {
	logger := inv.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("database", inv.Database.Name())

	mdb, ok := inv.Database.(migrator.DB)
	if !ok {
		logger.Error("database doesn't support migrations")
		return false
	}

	applied, err := migrator.Applied(ctx, mdb)
	if err != nil {
		logger.Error("failed reading migration history", "error", err)
		return false
	}

	inv.Scope.Set(GlobalUpgradeStarted, true)

	plan := migrator.NewPlan(vs.migrations, applied)
	if len(plan.Unknown) > 0 {
		logger.Error("database was upgraded by a newer version; downgrading is not supported",
			"unknown_migrations", len(plan.Unknown))
		return false
	}
	if len(plan.Pending) == 0 {
		logger.Debug("database is up to date", "applied", len(plan.Applied))
		return true
	}

	if !plan.Fresh() && !inv.Args.Upgrade {
		logger.Error("database needs upgrade", "pending", len(plan.Pending))
		return false
	}

	trx, err := transaction.Begin(inv.Context.Context)
	if err != nil {
		logger.Error("failed starting upgrade transaction", "error", err)
		return false
	}
	defer func() {
		if ferr := trx.Finish(); ferr != nil {
			logger.Error("failed finishing upgrade transaction", "error", ferr)
		}
	}()

	action := "upgrading"
	if plan.Fresh() {
		action = "initializing"
	}
	logger.Info(action+" database", "pending", len(plan.Pending), "trx", trx.ID())

	if err = migrator.Run(ctx, mdb, plan.Pending, trx.ID(), logger); err != nil {
		logger.Error("database migration failed", "error", err)
		return false
	}

	return true
}
