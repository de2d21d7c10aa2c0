// Package command implements the Command Runner: a registry mapping
// verb strings to command factories, and a single-threaded-per-call
// dispatcher that executes the resulting command and normalizes its
// outcome into a (exit code, stdout, stderr) triple.
package command

import (
	"context"
	"fmt"
	"sync"

	"github.com/ironframe-host/ironframe/container"
	"github.com/ironframe-host/ironframe/internal/ironerr"
)

// Args is what a Factory receives: the verb's argument vector plus
// ambient context (the container the command targets, the caller's
// context.Context for cancellation/logging).
type Args struct {
	Ctx       context.Context
	Container *container.Container
	Argv      []string
}

// Result is the uniform outcome the runner returns for every verb.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Command is a single invocation of a registered verb, already bound to
// its Args.
type Command interface {
	Execute() (Result, error)
}

// Factory produces a Command instance for one invocation of a verb.
type Factory func(args Args) (Command, error)

// Runner is the verb registry and dispatcher. Verbs are matched
// case-sensitively. The zero value is not usable; use New.
type Runner struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// New returns an empty Runner.
func New() *Runner {
	return &Runner{factories: make(map[string]Factory)}
}

// Register installs or replaces the factory for verb.
func (r *Runner) Register(verb string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[verb] = factory
}

// RunAsync resolves verb's factory, builds a Command from args, executes
// it, and returns the resulting triple. A missing verb fails with
// ErrInvalidInput ("InvalidOperation" in spec terms). If the command
// itself fails before producing a Result, that failure propagates
// instead of a Result.
func (r *Runner) RunAsync(verb string, args Args) (Result, error) {
	r.mu.RLock()
	factory, ok := r.factories[verb]
	r.mu.RUnlock()
	if !ok {
		return Result{}, fmt.Errorf("%w: unknown verb %q", ironerr.ErrInvalidInput, verb)
	}

	cmd, err := factory(args)
	if err != nil {
		return Result{}, fmt.Errorf("build command for verb %q: %w", verb, err)
	}

	return cmd.Execute()
}
