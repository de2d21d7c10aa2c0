// Package ironerr defines the error-kind taxonomy shared by every
// provisioning component: sentinel values callers can compare against
// with errors.Is, and an Aggregate type for undo-stack failures that
// must surface alongside the error that triggered them.
package ironerr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput covers a null spec, an empty verb, or an unknown verb.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidPath covers a path mapping that escapes its subtree.
	ErrInvalidPath = errors.New("path escapes confined subtree")

	// ErrResourceExists covers a user, directory, or job object already
	// present where a fresh one was expected.
	ErrResourceExists = errors.New("resource already exists")

	// ErrResourceMissing covers restore encountering an absent artifact.
	ErrResourceMissing = errors.New("resource does not exist")

	// ErrHostUnavailable covers the container host process failing to
	// start or disconnecting.
	ErrHostUnavailable = errors.New("container host unavailable")

	// ErrQuotaFailure covers a downstream quota-control failure.
	ErrQuotaFailure = errors.New("quota operation failed")

	// ErrPortAllocation covers a downstream port-allocation failure.
	ErrPortAllocation = errors.New("port allocation failed")

	// ErrUnimplemented is reserved for surfaces the spec declares but
	// intentionally does not implement (FindByID, StopAll).
	ErrUnimplemented = errors.New("not implemented")
)

// Is reports whether err (or anything it wraps) is target. Thin
// wrapper over errors.Is kept for symmetry with the teacher's
// IsAny/IsX predicate style.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Aggregate carries the error that triggered a rollback together with
// every error encountered while running the compensating undo actions.
// It satisfies error and supports Go 1.20+ multi-unwrap so
// errors.Is/errors.As still see through to the original cause.
type Aggregate struct {
	Cause   error
	Undoers []error
}

func (a *Aggregate) Error() string {
	if len(a.Undoers) == 0 {
		return a.Cause.Error()
	}
	parts := make([]string, 0, len(a.Undoers)+1)
	parts = append(parts, fmt.Sprintf("triggering error: %v", a.Cause))
	for i, u := range a.Undoers {
		parts = append(parts, fmt.Sprintf("undo error %d: %v", i+1, u))
	}
	return strings.Join(parts, "; ")
}

func (a *Aggregate) Unwrap() []error {
	all := make([]error, 0, len(a.Undoers)+1)
	all = append(all, a.Cause)
	all = append(all, a.Undoers...)
	return all
}

// NewAggregate returns cause unchanged if undoers is empty, otherwise
// wraps both into an *Aggregate. This matches spec.md's rule that
// undo_all only needs to "surface an aggregate error" when undo itself
// raised.
func NewAggregate(cause error, undoers []error) error {
	if len(undoers) == 0 {
		return cause
	}
	return &Aggregate{Cause: cause, Undoers: undoers}
}
