package transaction

import (
	"fmt"
	"log/slog"
	"slices"

	aerrors "go.hackfix.me/vocbase/app/errors"
)

// ScopeID identifies a logical execution scope.
type ScopeID uint64

// Ownership describes how a Ref relates to the context it points to.
type Ownership int

const (
	// Owned is a per-invocation context owned by the Ref holder.
	Owned Ownership = iota
	// SharedReference points to the global context of a scope, which is owned
	// by the Registry.
	SharedReference
)

func (o Ownership) String() string {
	switch o {
	case Owned:
		return "owned"
	case SharedReference:
		return "shared"
	default:
		return fmt.Sprintf("Ownership(%d)", int(o))
	}
}

// Ref is a handle to a Context returned by Registry.Create.
type Ref struct {
	*Context
	Ownership Ownership
}

type scopeState struct {
	global *Context
	// live are the owned contexts that weren't released yet, in creation
	// order.
	live []*Context
}

func (st *scopeState) remove(c *Context) {
	st.live = slices.DeleteFunc(st.live, func(l *Context) bool { return l == c })
}

// Registry tracks the execution contexts of all scopes, and owns each
// scope's global context.
type Registry struct {
	scopes map[ScopeID]*scopeState
	logger *slog.Logger
}

// NewRegistry returns a new empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		scopes: make(map[ScopeID]*scopeState),
		logger: logger.With("component", "transaction"),
	}
}

// Create returns a context for the given scope. If the scope has a global
// context a shared reference to it is returned, and db and embeddable are
// ignored. Otherwise a new context bound to db is created, and becomes the
// scope's current context.
func (r *Registry) Create(scope ScopeID, db Database, embeddable bool) *Ref {
	st := r.state(scope)
	if st.global != nil {
		return &Ref{Context: st.global, Ownership: SharedReference}
	}

	c := &Context{db: db, scope: scope, registry: r, embeddable: embeddable}
	st.live = append(st.live, c)
	r.logger.Debug("created context",
		"scope", scope, "database", db.Name(), "embeddable", embeddable)

	return &Ref{Context: c, Ownership: Owned}
}

// Global returns the global context of the scope, or nil.
func (r *Registry) Global(scope ScopeID) *Context {
	if st, ok := r.scopes[scope]; ok {
		return st.global
	}
	return nil
}

// Current returns the context most recently created in the scope that wasn't
// released yet, falling back to the scope's global context.
func (r *Registry) Current(scope ScopeID) *Context {
	st, ok := r.scopes[scope]
	if !ok {
		return nil
	}
	if n := len(st.live); n > 0 {
		return st.live[n-1]
	}
	return st.global
}

// IsEmbedded returns true if the current context of the scope has a registered
// transaction, and new transactions would embed into it.
func (r *Registry) IsEmbedded(scope ScopeID) bool {
	c := r.Current(scope)
	return c != nil && c.embedding()
}

// Release ends a per-invocation context. Releasing a shared reference or a
// context that was promoted to global does nothing; global contexts live
// until EndScope.
func (r *Registry) Release(ref *Ref) {
	if ref.Ownership == SharedReference || ref.global {
		return
	}
	st, ok := r.scopes[ref.scope]
	if !ok {
		return
	}
	if ref.trx != nil {
		r.logger.Warn("releasing context with a registered transaction",
			"scope", ref.scope, "database", ref.db.Name(), "trx", ref.trx.ID())
	}
	st.remove(ref.Context)
	if st.global == nil && len(st.live) == 0 {
		delete(r.scopes, ref.scope)
	}
}

// EndScope destroys the scope's global context, and forgets the scope.
func (r *Registry) EndScope(scope ScopeID) {
	st, ok := r.scopes[scope]
	if !ok {
		return
	}
	if st.global != nil {
		if st.global.trx != nil {
			r.logger.Warn("ending scope with a registered transaction",
				"scope", scope, "trx", st.global.trx.ID())
		}
		st.global.global = false
	}
	delete(r.scopes, scope)
}

func (r *Registry) promote(c *Context) error {
	st := r.state(c.scope)
	if st.global != nil && st.global != c {
		return aerrors.With(ErrGlobalExists, "scope", c.scope, "database", st.global.db.Name())
	}
	st.global = c
	st.remove(c)
	c.global = true
	r.logger.Debug("promoted context to global", "scope", c.scope, "database", c.db.Name())

	return nil
}

func (r *Registry) state(scope ScopeID) *scopeState {
	st, ok := r.scopes[scope]
	if !ok {
		st = &scopeState{}
		r.scopes[scope] = st
	}
	return st
}
