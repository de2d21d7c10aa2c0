// Package undo implements the LIFO compensating-action stack the
// Container Service runs when any step of a transactional create fails.
// Modeled per spec.md §9's design note: a value that owns compensators
// and a Commit method, rather than the source's explicit try/catch
// rethrow — Commit discards the compensators on success, and whatever is
// left runs in LIFO order when Run is invoked on the failure path.
package undo

import "github.com/ironframe-host/ironframe/internal/ironerr"

// Stack is a LIFO collection of compensating actions.
type Stack struct {
	actions []func() error
}

// New returns an empty Stack.
func New() *Stack {
	return &Stack{}
}

// Push adds a compensator to the top of the stack.
func (s *Stack) Push(action func() error) {
	s.actions = append(s.actions, action)
}

// Commit discards every pushed compensator. Call this once a
// transaction has fully succeeded.
func (s *Stack) Commit() {
	s.actions = nil
}

// Run pops and invokes every compensator in LIFO order, regardless of
// whether earlier ones failed. If any compensator failed, cause and the
// undo errors are wrapped into an ironerr.Aggregate; otherwise cause is
// returned unchanged.
func (s *Stack) Run(cause error) error {
	var undoErrs []error
	for i := len(s.actions) - 1; i >= 0; i-- {
		if err := s.actions[i](); err != nil {
			undoErrs = append(undoErrs, err)
		}
	}
	s.actions = nil
	return ironerr.NewAggregate(cause, undoErrs)
}

// Len reports how many compensators are currently pushed. Exposed
// primarily for tests asserting rollback depth.
func (s *Stack) Len() int {
	return len(s.actions)
}
