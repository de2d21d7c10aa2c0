package hostclient

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/ironframe-host/ironframe/internal/ironerr"
	"github.com/ironframe-host/ironframe/internal/procrun"
)

// Client is the Container Host Client: one connection to a per-container
// agent process, used to launch and supervise remote processes on its
// behalf. It satisfies the same external contract as procrun.Runner
// (Run/StopAll/FindByID), making it a drop-in Constrained Process
// Runner for the Container.
type Client struct {
	conn io.ReadWriteCloser

	writeMu sync.Mutex
	nextID  int64

	mu       sync.Mutex
	pending  map[int64]chan frame
	procs    map[string]*remoteProcess
	closed   bool
	closeErr error
	done     chan struct{}
}

var _ procrun.ProcessHandle = (*remoteProcess)(nil)

// newClient wraps conn and starts its receive loop. conn is typically a
// named pipe dialed back to the agent process this Client's owner just
// spawned.
func newClient(conn io.ReadWriteCloser) *Client {
	c := &Client{
		conn:    conn,
		pending: make(map[int64]chan frame),
		procs:   make(map[string]*remoteProcess),
		done:    make(chan struct{}),
	}
	go c.recvLoop()
	return c
}

func (c *Client) recvLoop() {
	err := c.recv()
	c.mu.Lock()
	c.closed = true
	c.closeErr = err
	pending := c.pending
	c.pending = nil
	procs := c.procs
	c.procs = nil
	c.mu.Unlock()
	for _, ch := range pending {
		close(ch)
	}
	for _, p := range procs {
		p.completeRemote(-1, ironerr.ErrHostUnavailable)
	}
	close(c.done)
}

func (c *Client) recv() error {
	for {
		f, err := readFrame(c.conn)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("hostclient: read: %w", err)
		}
		switch f.kind {
		case msgResponse:
			c.mu.Lock()
			ch := c.pending[f.id]
			delete(c.pending, f.id)
			c.mu.Unlock()
			if ch != nil {
				ch <- f
				close(ch)
			}
		case msgNotify:
			var note notification
			if err := json.Unmarshal(f.payload, &note); err != nil {
				continue
			}
			c.mu.Lock()
			p := c.procs[note.ProcessID]
			c.mu.Unlock()
			if p == nil {
				continue
			}
			switch note.Kind {
			case notifyStdout:
				p.deliverOut(note.Line)
			case notifyStderr:
				p.deliverErr(note.Line)
			case notifyExit:
				p.completeRemote(note.ExitCode, nil)
			}
		}
	}
}

// call sends verb/body as a request frame and blocks for the matching
// response, unmarshaling its payload into resp.
func (c *Client) call(verb string, body, resp interface{}) error {
	payload, err := marshalRequest(verb, body)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ironerr.ErrHostUnavailable
	}
	id := atomic.AddInt64(&c.nextID, 1)
	ch := make(chan frame, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	c.writeMu.Lock()
	err = writeFrame(c.conn, frame{kind: msgRequest, id: id, payload: payload})
	c.writeMu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return errors.Wrap(err, "hostclient: send request")
	}

	f, ok := <-ch
	if !ok {
		return ironerr.ErrHostUnavailable
	}
	if resp != nil {
		return json.Unmarshal(f.payload, resp)
	}
	return nil
}

// Run launches spec through the agent process this Client is bound to,
// preserving the Process Runner's streaming and exit semantics across
// the wire.
func (c *Client) Run(spec *procrun.ProcessRunSpec) (procrun.ProcessHandle, error) {
	req := createProcessRequest{
		Path:       spec.Path,
		Args:       spec.Args,
		WorkingDir: spec.WorkingDir,
		Env:        spec.Env,
		Buffered:   spec.Buffered,
	}
	var resp createProcessResponse
	if err := c.call("create_process", req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("hostclient: create_process: %s", resp.Error)
	}

	p := &remoteProcess{
		id:      resp.ProcessID,
		client:  c,
		onOut:   spec.OnOutputLine,
		onErr:   spec.OnErrorLine,
		onExit:  spec.OnExit,
		done:    make(chan struct{}),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ironerr.ErrHostUnavailable
	}
	c.procs[p.id] = p
	c.mu.Unlock()

	return p, nil
}

// StopAll is declared but intentionally unimplemented, mirroring
// procrun.Runner's contract.
func (c *Client) StopAll(kill bool) error {
	return ironerr.ErrUnimplemented
}

// FindByID is declared but intentionally unimplemented, mirroring
// procrun.Runner's contract.
func (c *Client) FindByID(id string) (procrun.ProcessHandle, bool, error) {
	return nil, false, ironerr.ErrUnimplemented
}

// Shutdown terminates outstanding sessions and closes the connection to
// the agent process.
func (c *Client) Shutdown() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	_ = c.call("shutdown", struct{}{}, &emptyResponse{})
	return c.conn.Close()
}

// remoteProcess is the Constrained Process Runner's ProcessHandle,
// proxying a process actually running inside the agent.
type remoteProcess struct {
	id     string
	client *Client
	onOut  func(string)
	onErr  func(string)
	onExit func(int)

	exitCode int32
	exitErr  error
	once     sync.Once
	done     chan struct{}
}

func (p *remoteProcess) ID() string { return p.id }

func (p *remoteProcess) deliverOut(line string) {
	if p.onOut != nil {
		p.onOut(line)
	}
}

func (p *remoteProcess) deliverErr(line string) {
	if p.onErr != nil {
		p.onErr(line)
	}
}

func (p *remoteProcess) completeRemote(exitCode int, err error) {
	p.once.Do(func() {
		atomic.StoreInt32(&p.exitCode, int32(exitCode))
		p.exitErr = err
		close(p.done)
		if err == nil && p.onExit != nil {
			p.onExit(exitCode)
		}
	})
}

func (p *remoteProcess) Wait() (int, error) {
	<-p.done
	return int(atomic.LoadInt32(&p.exitCode)), p.exitErr
}

func (p *remoteProcess) WriteStdin(b []byte) (int, error) {
	var resp emptyResponse
	if err := p.client.call("write_stdin", writeStdinRequest{ProcessID: p.id, Data: b}, &resp); err != nil {
		return 0, err
	}
	if resp.Error != "" {
		return 0, fmt.Errorf("hostclient: write_stdin: %s", resp.Error)
	}
	return len(b), nil
}

func (p *remoteProcess) Kill() error {
	var resp emptyResponse
	if err := p.client.call("kill", killRequest{ProcessID: p.id}, &resp); err != nil {
		return err
	}
	if resp.Error != "" {
		return fmt.Errorf("hostclient: kill: %s", resp.Error)
	}
	return nil
}

func (p *remoteProcess) ExitCode() (int, bool) {
	select {
	case <-p.done:
		return int(atomic.LoadInt32(&p.exitCode)), true
	default:
		return 0, false
	}
}
