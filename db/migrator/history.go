package migrator

import (
	"context"
	"fmt"
	"time"

	"go.hackfix.me/vocbase/db/types"
)

const historyTable = "_migrations"

// Record is an entry in the migration history of a database.
type Record struct {
	ID        int
	Name      string
	TrxID     string
	AppliedAt time.Time
}

// Applied returns the migration history of the database, ordered by ID. A
// database without a history table has no applied migrations. It never writes
// to the database.
func Applied(ctx context.Context, q types.Querier) ([]Record, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`,
		historyTable).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("failed looking up migration history table: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	rows, err := q.QueryContext(ctx,
		`SELECT id, name, trx_id, applied_at FROM _migrations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed querying migration history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r         Record
			appliedAt string
		)
		if err = rows.Scan(&r.ID, &r.Name, &r.TrxID, &appliedAt); err != nil {
			return nil, types.ScanError{ModelName: "migration", Err: err}
		}
		r.AppliedAt, err = time.Parse(time.RFC3339Nano, appliedAt)
		if err != nil {
			return nil, types.ScanError{ModelName: "migration", Err: err}
		}
		records = append(records, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading migration history: %w", err)
	}

	return records, nil
}

// Plan is the difference between the known migrations and the history of a
// database.
type Plan struct {
	// Applied are the history records of the database.
	Applied []Record
	// Pending are known migrations that weren't applied yet, in ID order.
	Pending []*Migration
	// Unknown are applied migrations this build doesn't know about, which
	// means the database was upgraded by a newer version.
	Unknown []Record
}

// NewPlan compares the known migrations against the applied ones.
func NewPlan(migrations []*Migration, applied []Record) *Plan {
	p := &Plan{Applied: applied}

	known := make(map[int]struct{}, len(migrations))
	for _, m := range migrations {
		known[m.ID] = struct{}{}
	}
	done := make(map[int]struct{}, len(applied))
	for _, r := range applied {
		done[r.ID] = struct{}{}
		if _, ok := known[r.ID]; !ok {
			p.Unknown = append(p.Unknown, r)
		}
	}
	for _, m := range migrations {
		if _, ok := done[m.ID]; !ok {
			p.Pending = append(p.Pending, m)
		}
	}

	return p
}

// Fresh returns true if nothing was ever applied to the database.
func (p *Plan) Fresh() bool {
	return len(p.Applied) == 0
}
