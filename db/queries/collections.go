package queries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.hackfix.me/vocbase/db/types"
)

// CollectionName returns the name of the collection with the given ID.
func CollectionName(ctx context.Context, d types.Querier, id int64) (string, error) {
	var name string
	err := d.QueryRowContext(ctx, `SELECT name FROM _collections WHERE id = ?`, id).
		Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", types.NoResultError{ModelName: "collection", ID: fmt.Sprintf("ID %d", id)}
	}
	if err != nil {
		return "", types.ScanError{ModelName: "collection", Err: err}
	}

	return name, nil
}

// CollectionID returns the ID of the collection with the given name.
func CollectionID(ctx context.Context, d types.Querier, name string) (int64, error) {
	var id int64
	err := d.QueryRowContext(ctx, `SELECT id FROM _collections WHERE name = ?`, name).
		Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, types.NoResultError{ModelName: "collection", ID: fmt.Sprintf("name '%s'", name)}
	}
	if err != nil {
		return 0, types.ScanError{ModelName: "collection", Err: err}
	}

	return id, nil
}
