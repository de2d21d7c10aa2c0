//go:build windows

package hostclient

import (
	"fmt"
	"os"
	"time"

	winio "github.com/Microsoft/go-winio"
	"github.com/Microsoft/go-winio/pkg/guid"

	"github.com/ironframe-host/ironframe/internal/ironerr"
	"github.com/ironframe-host/ironframe/internal/jobobj"
	"github.com/ironframe-host/ironframe/internal/procrun"
	"github.com/ironframe-host/ironframe/internal/useracct"
)

// AgentReexecArg is the argv[1] the running binary recognizes as "serve
// the host-agent protocol on this pipe", mirroring the teacher's hidden
// reexec subcommands (cmd/runhcs's "shim", cmd/differ's LPAC helper).
const AgentReexecArg = "__ironframe-agent"

const dialTimeout = 30 * time.Second

// Launch starts the container host process under cred, assigns it to
// job, and dials it back over a named pipe, returning the bound Client.
// This is step 6 of transactional create.
func Launch(id string, workingDir string, cred *useracct.Credential, job jobobj.Handle, runner *procrun.Runner) (*Client, error) {
	pipeName, err := pipeNameFor(id)
	if err != nil {
		return nil, fmt.Errorf("hostclient: derive pipe name: %w", err)
	}

	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("hostclient: resolve self executable: %w", err)
	}

	spec := &procrun.ProcessRunSpec{
		Path:       exe,
		Args:       []string{AgentReexecArg, pipeName},
		WorkingDir: workingDir,
		Credential: cred,
		Buffered:   true,
	}

	handle, err := runner.Run(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: start container host process: %v", ironerr.ErrHostUnavailable, err)
	}

	if proc, ok := handle.(interface{ Pid() int }); ok {
		if err := job.Assign(uint32(proc.Pid())); err != nil {
			_ = handle.Kill()
			return nil, fmt.Errorf("%w: assign host process to job object: %v", ironerr.ErrHostUnavailable, err)
		}
	}

	conn, err := dialWithRetry(pipeName, dialTimeout)
	if err != nil {
		_ = handle.Kill()
		return nil, fmt.Errorf("%w: dial container host process: %v", ironerr.ErrHostUnavailable, err)
	}

	return newClient(conn), nil
}

// pipeNameFor derives a collision-resistant pipe path for container id,
// grounded on the teacher's pervasive guid.NewV4 use for naming
// ephemeral kernel objects.
func pipeNameFor(id string) (string, error) {
	g, err := guid.NewV4()
	if err != nil {
		return "", err
	}
	return `\\.\pipe\ironframe-` + id + "-" + g.String(), nil
}

// dialWithRetry accounts for the agent process needing a moment after
// Start() to reach its ListenPipe call.
func dialWithRetry(pipeName string, timeout time.Duration) (*winioPipe, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		conn, err := winio.DialPipe(pipeName, nil)
		if err == nil {
			return &winioPipe{conn}, nil
		}
		lastErr = err
		time.Sleep(100 * time.Millisecond)
	}
	return nil, lastErr
}

// winioPipe adapts winio's net.Conn to io.ReadWriteCloser for Client,
// which has no use for the rest of the net.Conn surface.
type winioPipe struct {
	conn interface {
		Read(p []byte) (int, error)
		Write(p []byte) (int, error)
		Close() error
	}
}

func (w *winioPipe) Read(p []byte) (int, error)  { return w.conn.Read(p) }
func (w *winioPipe) Write(p []byte) (int, error) { return w.conn.Write(p) }
func (w *winioPipe) Close() error                { return w.conn.Close() }

// ServeAgent listens on pipeName and serves exactly one connection with
// an Agent backed by loader; it is what the re-exec'd host process runs.
func ServeAgent(pipeName string, loader procrun.EnvLoader) error {
	l, err := winio.ListenPipe(pipeName, nil)
	if err != nil {
		return fmt.Errorf("hostclient: listen on %s: %w", pipeName, err)
	}
	defer l.Close()

	conn, err := l.Accept()
	if err != nil {
		return fmt.Errorf("hostclient: accept on %s: %w", pipeName, err)
	}
	defer conn.Close()

	return NewAgent(loader).Serve(conn)
}
