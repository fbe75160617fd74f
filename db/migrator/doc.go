// Package migrator provides functionality to manage database schema migrations.
//
// Features:
// - Loads SQL migration files from a filesystem with structured naming (`{id}-{name}.up.sql`)
// - Tracks migration history, including the transaction that applied each migration, in a dedicated table
// - Plans pending migrations, and detects migrations applied by a newer version
// - Applies each migration in its own SQL transaction
//
// Migrations only go forward. A failed run leaves the already applied
// migrations in place, and can simply be started again.
package migrator
