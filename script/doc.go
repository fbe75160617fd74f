// Package script runs upgrade scripts inside nested scripting scopes.
//
// Scopes are entered and exited through an Engine in strict stack order. Every
// scope has its own globals, which is how a script and its caller exchange
// out-of-band signals such as GlobalUpgradeStarted. Child scopes share the
// scope ID of their root, so all invocations under one root reach the same
// global execution context in a transaction.Registry.
package script
