package upgrade

import (
	"log/slog"

	"go.hackfix.me/vocbase/script"
	"go.hackfix.me/vocbase/transaction"
)

// Option is a function that allows configuring the Driver.
type Option func(*Driver)

// WithUpgrade enables upgrade mode: databases are migrated, and a shutdown is
// requested afterwards.
func WithUpgrade(upgrade bool) Option {
	return func(d *Driver) {
		d.upgrade = upgrade
	}
}

// WithUpgradeCheck enables running the upgrade scripts at startup.
func WithUpgradeCheck(check bool) Option {
	return func(d *Driver) {
		d.upgradeCheck = check
	}
}

// WithLogger sets the logger used by the Driver.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		d.logger = logger.With("component", "upgrade")
	}
}

// WithEngine sets the scripting engine scripts are run in.
func WithEngine(engine *script.Engine) Option {
	return func(d *Driver) {
		d.engine = engine
	}
}

// WithContexts sets the registry execution contexts are created in.
func WithContexts(contexts *transaction.Registry) Option {
	return func(d *Driver) {
		d.contexts = contexts
	}
}

// WithShutdown sets the function called to request a graceful shutdown.
func WithShutdown(fn func()) Option {
	return func(d *Driver) {
		d.shutdown = fn
	}
}

// DefaultOptions returns the default Driver options.
func DefaultOptions() []Option {
	return []Option{
		WithUpgradeCheck(true),
		WithLogger(slog.Default()),
	}
}
