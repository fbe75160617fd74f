package script

import (
	"context"
	"log/slog"

	"go.hackfix.me/vocbase/transaction"
)

// Globals exchanged between the upgrade driver and upgrade scripts.
const (
	// GlobalUpgradeArgs holds the Args of the invocation.
	GlobalUpgradeArgs = "UPGRADE_ARGS"
	// GlobalUpgradeStarted is set by a script once a failure it reports is a
	// controlled migration failure, rather than an engine error.
	GlobalUpgradeStarted = "UPGRADE_STARTED"
)

// Args are the capabilities passed to an upgrade script.
type Args struct {
	// Upgrade allows the script to migrate the database. Without it, the script
	// may only check whether a migration is needed.
	Upgrade bool
}

// Invocation is a single run of a script against a database.
type Invocation struct {
	Scope    *Scope
	Context  *transaction.Ref
	Database transaction.Database
	Args     Args
	Logger   *slog.Logger
}

// Script is an upgrade script. It reports success or failure as a boolean
// result, and may set GlobalUpgradeStarted on the invocation's scope.
type Script interface {
	Run(ctx context.Context, inv *Invocation) bool
}
