// Package transaction binds transactions to the execution contexts of
// scripted operations.
//
// A Context associates one database with at most one registered transaction.
// Contexts are created through a Registry, which is keyed by the ID of the
// scripting scope they belong to. A scope may promote one context to be its
// global context; later requests for a context in that scope get a shared
// reference to it instead of a new one.
//
// Whether a transaction started while another one is registered is embedded
// into it or rejected depends solely on the embeddable flag the context was
// created with.
//
// Nothing in this package is safe for concurrent use. Contexts are meant to be
// used by a single sequential flow of control.
package transaction
