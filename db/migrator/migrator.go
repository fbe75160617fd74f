package migrator

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"go.hackfix.me/vocbase/db/types"
)

// DB is a database migrations can be applied to.
type DB interface {
	types.Database
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Run applies the given migrations in order, each one in its own SQL
// transaction, recording trxID as the transaction that applied it. It stops at
// the first failure; migrations applied before it stay applied.
func Run(ctx context.Context, d DB, migrations []*Migration, trxID string, logger *slog.Logger) error {
	for _, m := range migrations {
		mlogger := logger.With("migration", m.String())
		mlogger.Debug("applying migration")

		if err := apply(ctx, d, m, trxID); err != nil {
			return fmt.Errorf("failed applying migration %s: %w", m, err)
		}

		mlogger.Info("applied migration")
	}

	return nil
}

func apply(ctx context.Context, d DB, m *Migration, trxID string) (err error) {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed starting transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS _migrations (
		id         INTEGER PRIMARY KEY,
		name       TEXT NOT NULL,
		trx_id     TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed creating migration history table: %w", err)
	}

	if _, err = tx.ExecContext(ctx, m.Up); err != nil {
		return err //nolint:wrapcheck // Wrapped by the caller.
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO _migrations (id, name, trx_id, applied_at) VALUES (?, ?, ?, ?)`,
		m.ID, m.Name, trxID, d.TimeNow().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return types.Err("migration", m.String(), err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed committing transaction: %w", err)
	}

	return nil
}
