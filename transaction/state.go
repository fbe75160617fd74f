package transaction

import (
	"github.com/nrednav/cuid2"

	aerrors "go.hackfix.me/vocbase/app/errors"
)

// State is the handle of a running transaction. A state is registered on at
// most one Context at a time.
type State struct {
	id      string
	db      string
	owner   *Context
	nesting int
}

// NewState returns a new unregistered transaction handle for the named
// database.
func NewState(db string) *State {
	return &State{id: cuid2.Generate(), db: db}
}

// ID returns the unique ID of the transaction.
func (s *State) ID() string {
	return s.id
}

// Database returns the name of the database the transaction was started on.
func (s *State) Database() string {
	return s.db
}

// Embedded returns true while at least one embedded transaction is attached.
func (s *State) Embedded() bool {
	return s.nesting > 0
}

// Registered returns true if the state is registered on a context.
func (s *State) Registered() bool {
	return s.owner != nil
}

// Begin starts a transaction on the context. If no transaction is registered,
// a new one is registered and returned. Otherwise the registered transaction
// is returned with an additional embedding level if the context is embeddable,
// and ErrNestingNotAllowed is returned if it isn't.
//
// Every successful Begin must be paired with a call to Finish on the returned
// state.
func Begin(c *Context) (*State, error) {
	if parent := c.ParentTransaction(); parent != nil {
		if !c.IsEmbeddable() {
			return nil, aerrors.With(ErrNestingNotAllowed,
				"database", c.db.Name(), "parent_trx", parent.ID())
		}
		parent.nesting++
		return parent, nil
	}

	s := NewState(c.db.Name())
	if err := c.RegisterTransaction(s); err != nil {
		return nil, err
	}

	return s, nil
}

// Finish ends one level of the transaction started with Begin. The state is
// unregistered from its context when the outermost level finishes.
func (s *State) Finish() error {
	if s.nesting > 0 {
		s.nesting--
		return nil
	}
	if s.owner == nil {
		return aerrors.With(ErrNotRegistered, "trx", s.id)
	}

	return s.owner.UnregisterTransaction()
}
