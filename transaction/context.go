package transaction

import (
	aerrors "go.hackfix.me/vocbase/app/errors"
	"go.hackfix.me/vocbase/db/types"
)

// Database is the database a Context is bound to. The context borrows it, and
// never closes it.
type Database = types.Database

// Context is the execution context of a scripted operation. It binds a
// database to at most one registered transaction.
type Context struct {
	db         Database
	scope      ScopeID
	registry   *Registry
	embeddable bool
	global     bool

	trx         *State
	resolver    *Resolver
	typeHandler *TypeHandler
}

// Database returns the database the context is bound to.
//
//nolint:ireturn // The context doesn't own the database.
func (c *Context) Database() Database {
	return c.db
}

// Scope returns the ID of the scope the context was created in.
func (c *Context) Scope() ScopeID {
	return c.scope
}

// OrderCustomTypeHandler returns the handler for custom value types of the
// context's database. It's built on the first call, and the same instance is
// returned afterwards.
func (c *Context) OrderCustomTypeHandler() *TypeHandler {
	if c.typeHandler == nil {
		c.typeHandler = newTypeHandler(c.Resolver())
	}
	return c.typeHandler
}

// Resolver returns the collection name resolver of the context's database.
func (c *Context) Resolver() *Resolver {
	if c.resolver == nil {
		c.resolver = newResolver(c.db)
	}
	return c.resolver
}

// RegisterTransaction associates trx with the context. It fails if a
// transaction is already registered here, leaving that registration intact,
// or if trx is registered on another context. Callers are expected to check
// ParentTransaction and IsEmbeddable first.
func (c *Context) RegisterTransaction(trx *State) error {
	if c.trx != nil {
		return aerrors.With(ErrAlreadyRegistered,
			"database", c.db.Name(), "registered_trx", c.trx.ID(), "trx", trx.ID())
	}
	if trx.owner != nil {
		return aerrors.With(ErrAlreadyRegistered,
			"database", c.db.Name(), "trx", trx.ID(), "owner_scope", trx.owner.scope)
	}

	c.trx = trx
	trx.owner = c

	return nil
}

// UnregisterTransaction clears the registered transaction. It must be called
// exactly once for every successful RegisterTransaction on the same context.
func (c *Context) UnregisterTransaction() error {
	if c.trx == nil {
		return aerrors.With(ErrNotRegistered, "database", c.db.Name())
	}

	c.trx.owner = nil
	c.trx = nil

	return nil
}

// ParentTransaction returns the registered transaction, or nil.
func (c *Context) ParentTransaction() *State {
	return c.trx
}

// IsEmbeddable returns true if transactions started while another one is
// registered attach to it, instead of failing.
func (c *Context) IsEmbeddable() bool {
	return c.embeddable
}

// MakeGlobal promotes the context to the global context of its scope.
func (c *Context) MakeGlobal() error {
	return c.registry.promote(c)
}

// IsGlobal returns true if the context is the global context of its scope.
func (c *Context) IsGlobal() bool {
	return c.global
}

// embedding returns true if a transaction started now would be embedded.
func (c *Context) embedding() bool {
	return c.embeddable && c.trx != nil
}
