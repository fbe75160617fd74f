package transaction

import (
	"context"
	"strconv"

	"go.hackfix.me/vocbase/db/queries"
)

// Resolver translates between collection IDs and names of a database. It only
// reads from the database, and caches the lookups.
type Resolver struct {
	db    Database
	names map[int64]string
	ids   map[string]int64
}

func newResolver(db Database) *Resolver {
	return &Resolver{
		db:    db,
		names: make(map[int64]string),
		ids:   make(map[string]int64),
	}
}

// Name returns the name of the collection with the given ID.
func (r *Resolver) Name(ctx context.Context, id int64) (string, error) {
	if name, ok := r.names[id]; ok {
		return name, nil
	}

	name, err := queries.CollectionName(ctx, r.db, id)
	if err != nil {
		return "", err
	}
	r.cache(id, name)

	return name, nil
}

// ID returns the ID of the collection with the given name. Numeric names are
// interpreted as IDs, and returned without a lookup.
func (r *Resolver) ID(ctx context.Context, name string) (int64, error) {
	if id, err := strconv.ParseInt(name, 10, 64); err == nil {
		return id, nil
	}
	if id, ok := r.ids[name]; ok {
		return id, nil
	}

	id, err := queries.CollectionID(ctx, r.db, name)
	if err != nil {
		return 0, err
	}
	r.cache(id, name)

	return id, nil
}

func (r *Resolver) cache(id int64, name string) {
	r.names[id] = name
	r.ids[name] = id
}
