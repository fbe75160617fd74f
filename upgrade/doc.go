// Package upgrade drives the startup upgrade run over all databases.
//
// The Driver opens the write-ahead-log recovery gate, and then runs the
// upgrade script for every database in registry order, inside a child
// scripting scope of one exclusive administrative scope. The first database
// whose script fails aborts the run. Failures are never retried, and nothing
// is rolled back; scripts are expected to be idempotent, so the whole run can
// simply be started again.
//
// The Driver never terminates the process. Fatal outcomes are returned as
// errors wrapping a *FatalError, and it's up to the caller to exit.
package upgrade
