package transaction

import "errors"

var (
	// ErrAlreadyRegistered is returned when registering a transaction on a
	// context that already has one, or registering a transaction that is
	// already registered on another context.
	ErrAlreadyRegistered = errors.New("transaction already registered")
	// ErrNotRegistered is returned when unregistering from a context that has
	// no registered transaction.
	ErrNotRegistered = errors.New("no transaction registered")
	// ErrNestingNotAllowed is returned when starting a transaction on a
	// non-embeddable context that already has a registered transaction.
	ErrNestingNotAllowed = errors.New("nested transaction not allowed")
	// ErrGlobalExists is returned when promoting a context in a scope that
	// already has a different global context.
	ErrGlobalExists = errors.New("scope already has a global context")
)
