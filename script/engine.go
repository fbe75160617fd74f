package script

import (
	"errors"
	"fmt"
	"log/slog"

	aerrors "go.hackfix.me/vocbase/app/errors"
	"go.hackfix.me/vocbase/transaction"
)

var (
	// ErrExclusive is returned when entering a scope would violate the
	// exclusivity of an active or requested scope.
	ErrExclusive = errors.New("scripting engine is in exclusive use")
	// ErrNotTop is returned when a scope is exited, or a child entered, out of
	// stack order.
	ErrNotTop = errors.New("scope is not the innermost active scope")
)

// Engine hands out scripting scopes.
type Engine struct {
	stack  []*Scope
	nextID transaction.ScopeID
	logger *slog.Logger
}

// NewEngine returns a new Engine.
func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{logger: logger.With("component", "script")}
}

// Enter enters a new root scope bound to db. An exclusive scope can only be
// entered when no other scope is active, and no scope can be entered while an
// exclusive one is active.
func (e *Engine) Enter(db transaction.Database, exclusive bool, purpose string) (*Scope, error) {
	if len(e.stack) > 0 && (exclusive || e.stack[0].exclusive) {
		return nil, aerrors.With(ErrExclusive, "purpose", purpose, "active", e.stack[0].purpose)
	}

	e.nextID++
	s := &Scope{
		id:        e.nextID,
		db:        db,
		exclusive: exclusive,
		purpose:   purpose,
		globals:   make(map[string]any),
	}
	e.push(s)

	return s, nil
}

// EnterChild enters a new scope nested in parent, which must be the innermost
// active scope. The child starts with empty globals.
func (e *Engine) EnterChild(parent *Scope, db transaction.Database, purpose string) (*Scope, error) {
	if top := e.top(); top != parent {
		return nil, aerrors.With(ErrNotTop, "purpose", purpose)
	}

	s := &Scope{
		id:      parent.id,
		parent:  parent,
		db:      db,
		purpose: purpose,
		globals: make(map[string]any),
		depth:   parent.depth + 1,
	}
	e.push(s)

	return s, nil
}

// Exit leaves the scope, which must be the innermost active scope.
func (e *Engine) Exit(s *Scope) error {
	if top := e.top(); top != s {
		return aerrors.With(ErrNotTop, "purpose", s.purpose)
	}

	e.stack = e.stack[:len(e.stack)-1]
	s.exited = true
	e.logger.Debug("exited scope",
		"scope", s.id, "depth", s.depth, "purpose", s.purpose, "database", s.db.Name())

	return nil
}

// Depth returns the number of active scopes.
func (e *Engine) Depth() int {
	return len(e.stack)
}

func (e *Engine) push(s *Scope) {
	e.stack = append(e.stack, s)
	e.logger.Debug("entered scope",
		"scope", s.id, "depth", s.depth, "purpose", s.purpose, "database", s.db.Name())
}

func (e *Engine) top() *Scope {
	if len(e.stack) == 0 {
		return nil
	}
	return e.stack[len(e.stack)-1]
}

// Scope is an active scripting scope.
type Scope struct {
	id        transaction.ScopeID
	parent    *Scope
	db        transaction.Database
	exclusive bool
	purpose   string
	globals   map[string]any
	depth     int
	exited    bool
}

// ID returns the scope ID shared by the scope's root and all its descendants.
func (s *Scope) ID() transaction.ScopeID {
	return s.id
}

// Parent returns the enclosing scope, or nil for a root scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Database returns the database the scope is bound to.
//
//nolint:ireturn // The scope doesn't own the database.
func (s *Scope) Database() transaction.Database {
	return s.db
}

// Depth returns the nesting depth, 0 for root scopes.
func (s *Scope) Depth() int {
	return s.depth
}

// Active returns true until the scope is exited.
func (s *Scope) Active() bool {
	return !s.exited
}

// Set sets a global of the scope.
func (s *Scope) Set(key string, value any) {
	s.globals[key] = value
}

// Get returns a global of the scope.
func (s *Scope) Get(key string) (any, bool) {
	v, ok := s.globals[key]
	return v, ok
}

// Has returns true if the global is set on the scope.
func (s *Scope) Has(key string) bool {
	_, ok := s.globals[key]
	return ok
}

// String implements fmt.Stringer.
func (s *Scope) String() string {
	return fmt.Sprintf("scope %d/%d (%s)", s.id, s.depth, s.purpose)
}
