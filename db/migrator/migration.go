package migrator

import (
	"fmt"
	"io/fs"
	"regexp"
	"slices"
	"strconv"
)

var migrationFileRx = regexp.MustCompile(`^(\d+)-([\w-]+)\.up\.sql$`)

// Migration is a single forward schema change.
type Migration struct {
	ID   int
	Name string
	Up   string
}

// String returns the migration in "{id}-{name}" form.
func (m *Migration) String() string {
	return fmt.Sprintf("%03d-%s", m.ID, m.Name)
}

// LoadMigrations reads all migration files in the root of fsys, and returns
// them sorted by ID. Files not matching the migration naming scheme are ignored.
func LoadMigrations(fsys fs.FS) ([]*Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed reading migrations directory: %w", err)
	}

	migrations := make([]*Migration, 0, len(entries))
	seen := make(map[int]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := migrationFileRx.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}

		id, err := strconv.Atoi(match[1])
		if err != nil {
			return nil, fmt.Errorf("invalid migration ID in '%s': %w", entry.Name(), err)
		}
		if prev, ok := seen[id]; ok {
			return nil, fmt.Errorf("duplicate migration ID %d: '%s' and '%s'", id, prev, entry.Name())
		}
		seen[id] = entry.Name()

		data, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed reading migration '%s': %w", entry.Name(), err)
		}

		migrations = append(migrations, &Migration{ID: id, Name: match[2], Up: string(data)})
	}

	slices.SortFunc(migrations, func(a, b *Migration) int { return a.ID - b.ID })

	return migrations, nil
}
