// Package procrun launches and supervises container processes: shell
// execution disabled, all three standard streams redirected, profile
// loading disabled, and asynchronous exit/output delivery. The
// production Runner launches directly via os/exec plus a Windows logon
// token, grounded on the teacher's internal/privileged/container.go
// exec.Cmd+Token pattern.
package procrun

import (
	"github.com/ironframe-host/ironframe/internal/ironerr"
	"github.com/ironframe-host/ironframe/internal/useracct"
	"github.com/ironframe-host/ironframe/internal/winenv"
)

// ProcessRunSpec describes one process launch.
type ProcessRunSpec struct {
	Path       string
	Args       []string
	WorkingDir string
	Credential *useracct.Credential
	Env        map[string]string
	Buffered   bool

	OnOutputLine func(line string)
	OnErrorLine  func(line string)
	OnExit       func(exitCode int)
}

// ProcessHandle is returned by Run; it is the caller's view of a launched
// process regardless of whether it runs locally or through a constrained
// runner talking to a host agent.
type ProcessHandle interface {
	ID() string
	Wait() (exitCode int, err error)
	WriteStdin(p []byte) (int, error)
	Kill() error
	ExitCode() (int, bool)
}

// EnvLoader is the subset of winenv.Loader the Runner needs to synthesize
// a spec's environment when one isn't supplied verbatim.
type EnvLoader = winenv.Loader

// Runner launches ProcessRunSpecs directly on the host. StopAll and
// FindByID are declared to satisfy the contract the Container depends on
// but are intentionally unimplemented in the core.
type Runner struct {
	EnvLoader EnvLoader
}

// New returns a Runner backed by loader for environment synthesis.
func New(loader EnvLoader) *Runner {
	return &Runner{EnvLoader: loader}
}

// resolveEnv implements the spec's synthesis rule: verbatim if supplied,
// otherwise the user-profile block when credentials are present, else the
// inherited block.
func (r *Runner) resolveEnv(spec *ProcessRunSpec) (map[string]string, error) {
	if len(spec.Env) > 0 {
		return spec.Env, nil
	}
	if spec.Credential != nil {
		return r.EnvLoader.ForUser(spec.Credential)
	}
	return r.EnvLoader.Inherited()
}

// StopAll is declared but intentionally unimplemented in the core; the
// Container tears processes down through its job object instead.
func (r *Runner) StopAll(kill bool) error {
	return ironerr.ErrUnimplemented
}

// FindByID is declared but intentionally unimplemented in the core.
func (r *Runner) FindByID(id string) (ProcessHandle, bool, error) {
	return nil, false, ironerr.ErrUnimplemented
}
