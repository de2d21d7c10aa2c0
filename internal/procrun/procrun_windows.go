//go:build windows

package procrun

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/windows"

	"github.com/ironframe-host/ironframe/internal/ids"
	"github.com/ironframe-host/ironframe/internal/winenv"
)

// Run launches spec, grounded on internal/privileged/container.go's
// exec.Cmd+syscall.SysProcAttr.Token pattern: shell execution disabled
// (exec.Cmd never invokes a shell), all three streams redirected,
// profile loading disabled (LogonUser's interactive logon does not load
// a profile unless LoadUserProfile is called separately, which this
// Runner never does), and credentials applied via SysProcAttr.Token when
// present.
func (r *Runner) Run(spec *ProcessRunSpec) (ProcessHandle, error) {
	env, err := r.resolveEnv(spec)
	if err != nil {
		return nil, fmt.Errorf("resolve environment: %w", err)
	}

	cmd := &exec.Cmd{
		Path: spec.Path,
		Args: append([]string{spec.Path}, spec.Args...),
		Dir:  spec.WorkingDir,
		Env:  winenv.EnvsToList(env),
		SysProcAttr: &syscall.SysProcAttr{
			CreationFlags: windows.CREATE_NEW_PROCESS_GROUP,
		},
	}
	if spec.Credential != nil {
		if tok, ok := spec.Credential.Token.(windows.Token); ok {
			cmd.SysProcAttr.Token = syscall.Token(tok)
		}
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}

	id, err := ids.GenerateHandle()
	if err != nil {
		return nil, fmt.Errorf("generate process id: %w", err)
	}

	p := &process{
		id:       id,
		cmd:      cmd,
		stdin:    stdin,
		exitCode: -1,
		done:     make(chan struct{}),
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start process %q: %w", spec.Path, err)
	}

	if !spec.Buffered {
		go streamLines(stdout, spec.OnOutputLine)
		go streamLines(stderr, spec.OnErrorLine)
	} else {
		go io.Copy(io.Discard, stdout)
		go io.Copy(io.Discard, stderr)
	}

	go p.waitBackground(spec.OnExit)

	return p, nil
}

func streamLines(r io.Reader, cb func(string)) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if cb != nil {
			cb(scanner.Text())
		}
	}
}

// process is the production ProcessHandle, wrapping an *exec.Cmd the way
// internal/privileged's process type wraps one.
type process struct {
	id       string
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	exitCode int32
	waitErr  error
	done     chan struct{}
	once     sync.Once
}

var _ ProcessHandle = (*process)(nil)

func (p *process) ID() string { return p.id }

// Pid exposes the OS process id so callers that need to bind the
// process to a kernel job object (internal/hostclient's Launch) can do
// so without widening the ProcessHandle interface for every caller.
func (p *process) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *process) waitBackground(onExit func(int)) {
	err := p.cmd.Wait()
	code := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		} else {
			p.waitErr = err
			code = -1
		}
	}
	atomic.StoreInt32(&p.exitCode, int32(code))
	p.once.Do(func() { close(p.done) })
	if onExit != nil {
		onExit(code)
	}
}

func (p *process) Wait() (int, error) {
	<-p.done
	return int(atomic.LoadInt32(&p.exitCode)), p.waitErr
}

func (p *process) WriteStdin(b []byte) (int, error) {
	return p.stdin.Write(b)
}

func (p *process) Kill() error {
	if p.cmd.Process == nil {
		return fmt.Errorf("process %s has not started", p.id)
	}
	return p.cmd.Process.Kill()
}

func (p *process) ExitCode() (int, bool) {
	select {
	case <-p.done:
		return int(atomic.LoadInt32(&p.exitCode)), true
	default:
		return 0, false
	}
}
