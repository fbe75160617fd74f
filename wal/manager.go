package wal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	aerrors "go.hackfix.me/vocbase/app/errors"
	"go.hackfix.me/vocbase/db/types"
)

// Databases provides the databases whose write-ahead logs are recovered.
type Databases interface {
	Databases() []types.Database
}

// Manager manages the write-ahead logs of all databases.
type Manager struct {
	dbs    Databases
	opened bool
	logger *slog.Logger
}

// NewManager returns a new Manager.
func NewManager(dbs Databases, logger *slog.Logger) *Manager {
	return &Manager{dbs: dbs, logger: logger.With("component", "wal")}
}

// Open finishes the recovery of every database: it switches the database to
// WAL journaling, replays and truncates the log through a checkpoint, and
// verifies the database. Opening an already opened Manager does nothing.
func (m *Manager) Open(ctx context.Context) error {
	if m.opened {
		return nil
	}

	for _, d := range m.dbs.Databases() {
		logger := m.logger.With("database", d.Name())
		logger.Debug("recovering write-ahead log")

		if err := recoverDB(ctx, d); err != nil {
			return aerrors.NewWithCause("unable to finish WAL recovery procedure", err,
				"database", d.Name())
		}

		logger.Debug("recovered write-ahead log")
	}

	m.opened = true
	m.logger.Info("write-ahead log recovery finished")

	return nil
}

// Opened returns true once recovery finished.
func (m *Manager) Opened() bool {
	return m.opened
}

func recoverDB(ctx context.Context, d types.Querier) error {
	var mode string
	if err := d.QueryRowContext(ctx, `PRAGMA journal_mode = WAL`).Scan(&mode); err != nil {
		return fmt.Errorf("failed setting journal mode: %w", err)
	}
	// In-memory databases can't use WAL journaling.
	if !strings.EqualFold(mode, "wal") && !strings.EqualFold(mode, "memory") {
		return fmt.Errorf("unexpected journal mode '%s'", mode)
	}

	var busy, logFrames, checkpointed int
	err := d.QueryRowContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`).
		Scan(&busy, &logFrames, &checkpointed)
	if err != nil {
		return fmt.Errorf("failed checkpointing: %w", err)
	}
	if busy != 0 {
		return aerrors.NewWith("checkpoint blocked by another connection",
			"log_frames", logFrames, "checkpointed", checkpointed)
	}

	var result string
	if err = d.QueryRowContext(ctx, `PRAGMA quick_check`).Scan(&result); err != nil {
		return fmt.Errorf("failed checking database integrity: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database integrity check failed: %s", result)
	}

	return nil
}
