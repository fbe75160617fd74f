package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"

	actx "go.hackfix.me/vocbase/app/context"
	aerrors "go.hackfix.me/vocbase/app/errors"
	"go.hackfix.me/vocbase/cluster"
	"go.hackfix.me/vocbase/db"
	"go.hackfix.me/vocbase/script"
	"go.hackfix.me/vocbase/upgrade"
	"go.hackfix.me/vocbase/wal"
)

// Serve starts the database server. Before serving, the write-ahead logs of
// all databases are recovered, and the databases are checked or upgraded.
type Serve struct {
	Database struct {
		Upgrade bool `help:"Perform a database upgrade if necessary, and exit afterwards."`
		//nolint:lll // Long struct tags are unavoidable.
		UpgradeCheck bool `default:"true" negatable:"" hidden:"" help:"Check whether databases need an upgrade at startup."`
	} `embed:"" prefix:"database-"`
}

// Validate rejects an upgrade without an upgrade check.
func (c *Serve) Validate() error {
	if err := upgrade.ValidateOptions(c.Database.Upgrade, c.Database.UpgradeCheck); err != nil {
		return aerrors.NewRuntimeError(
			"cannot specify both '--database-upgrade' and '--no-database-upgrade-check'", err, "")
	}
	return nil
}

// Run the serve command.
func (c *Serve) Run(appCtx *actx.Context) error {
	reg, err := openRegistry(appCtx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := reg.Close(); cerr != nil {
			appCtx.Logger.Error("failed closing databases", "error", cerr)
		}
	}()

	migrations, err := db.Migrations()
	if err != nil {
		return err
	}

	cfg := appCtx.Config
	coordinator := cluster.New(
		cluster.WithEnabled(cfg.Cluster.Enabled.V),
		cluster.WithNode(cfg.Cluster.Node.V),
		cluster.WithLogger(appCtx.Logger),
	)
	if !cfg.Database.ReplicationApplier.V {
		reg.DisableReplicationApplier()
	}

	ctx, cancel := context.WithCancel(appCtx.Ctx)
	defer cancel()

	driver, err := upgrade.New(
		wal.NewManager(reg, appCtx.Logger),
		reg, coordinator,
		script.NewVersionScript(migrations),
		upgrade.WithUpgrade(c.Database.Upgrade),
		upgrade.WithUpgradeCheck(c.Database.UpgradeCheck),
		upgrade.WithLogger(appCtx.Logger),
		upgrade.WithShutdown(cancel),
	)
	if err != nil {
		return err
	}

	driver.Prepare()
	res, err := driver.Start(ctx)
	if err != nil {
		return err
	}
	if res.ShutdownRequested {
		appCtx.Logger.Info("shutting down after database upgrade",
			"databases", len(res.Databases))
		return nil
	}

	appCtx.Logger.Info("database layer ready",
		"databases", len(reg.Names()),
		"replication_applier", reg.ReplicationApplierEnabled(),
		"cluster", coordinator.Enabled(),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, unix.SIGINT, unix.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case s := <-sigCh:
		slog.Debug("process received signal", "signal", s)
	case <-ctx.Done():
		slog.Debug("app context is done")
	}

	return nil
}
