package hostclient

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/ironframe-host/ironframe/internal/ids"
	"github.com/ironframe-host/ironframe/internal/procrun"
)

// Agent is the server side of the Container Host Client protocol: it
// runs inside the per-container host process, executing ProcessRunSpecs
// on behalf of a single Client connection using an ordinary
// procrun.Runner (the agent process itself already runs under the
// container user's credential and inside the container's job object, so
// it needs none of the Windows token-impersonation machinery its own
// runner would otherwise apply per-spec).
type Agent struct {
	runner *procrun.Runner

	writeMu sync.Mutex

	mu    sync.Mutex
	procs map[string]procrun.ProcessHandle
}

// NewAgent returns an Agent that synthesizes missing environments
// through loader.
func NewAgent(loader procrun.EnvLoader) *Agent {
	return &Agent{
		runner: procrun.New(loader),
		procs:  make(map[string]procrun.ProcessHandle),
	}
}

// Serve processes requests from conn until it is closed or a shutdown
// request is received. It blocks; callers run it in its own goroutine
// per accepted connection.
func (a *Agent) Serve(conn io.ReadWriteCloser) error {
	for {
		f, err := readFrame(conn)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if f.kind != msgRequest {
			continue
		}

		var env envelope
		if err := json.Unmarshal(f.payload, &env); err != nil {
			a.respond(conn, f.id, emptyResponse{Error: err.Error()})
			continue
		}

		switch env.Verb {
		case "create_process":
			a.handleCreateProcess(conn, f.id, env.Body)
		case "write_stdin":
			a.handleWriteStdin(conn, f.id, env.Body)
		case "kill":
			a.handleKill(conn, f.id, env.Body)
		case "shutdown":
			a.respond(conn, f.id, emptyResponse{})
			return nil
		default:
			a.respond(conn, f.id, emptyResponse{Error: "unknown verb " + env.Verb})
		}
	}
}

func (a *Agent) respond(conn io.ReadWriteCloser, id int64, body interface{}) {
	payload, err := json.Marshal(body)
	if err != nil {
		return
	}
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	_ = writeFrame(conn, frame{kind: msgResponse, id: id, payload: payload})
}

func (a *Agent) notify(conn io.ReadWriteCloser, note notification) {
	payload, err := json.Marshal(note)
	if err != nil {
		return
	}
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	_ = writeFrame(conn, frame{kind: msgNotify, payload: payload})
}

func (a *Agent) handleCreateProcess(conn io.ReadWriteCloser, id int64, body json.RawMessage) {
	var req createProcessRequest
	if err := json.Unmarshal(body, &req); err != nil {
		a.respond(conn, id, createProcessResponse{Error: err.Error()})
		return
	}

	// The processID used on the wire is minted here rather than taken
	// from the runner's own handle.ID(), so the line-callback closures
	// below can close over it before the process is even started.
	processID, err := ids.GenerateHandle()
	if err != nil {
		a.respond(conn, id, createProcessResponse{Error: err.Error()})
		return
	}

	spec := &procrun.ProcessRunSpec{
		Path:       req.Path,
		Args:       req.Args,
		WorkingDir: req.WorkingDir,
		Env:        req.Env,
		Buffered:   req.Buffered,
		OnOutputLine: func(line string) {
			a.notify(conn, notification{ProcessID: processID, Kind: notifyStdout, Line: line})
		},
		OnErrorLine: func(line string) {
			a.notify(conn, notification{ProcessID: processID, Kind: notifyStderr, Line: line})
		},
	}

	handle, err := a.runner.Run(spec)
	if err != nil {
		a.respond(conn, id, createProcessResponse{Error: err.Error()})
		return
	}

	a.mu.Lock()
	a.procs[processID] = handle
	a.mu.Unlock()

	a.respond(conn, id, createProcessResponse{ProcessID: processID})

	go func() {
		exitCode, _ := handle.Wait()
		a.notify(conn, notification{ProcessID: processID, Kind: notifyExit, ExitCode: exitCode})
	}()
}

func (a *Agent) handleWriteStdin(conn io.ReadWriteCloser, id int64, body json.RawMessage) {
	var req writeStdinRequest
	if err := json.Unmarshal(body, &req); err != nil {
		a.respond(conn, id, emptyResponse{Error: err.Error()})
		return
	}
	a.mu.Lock()
	h := a.procs[req.ProcessID]
	a.mu.Unlock()
	if h == nil {
		a.respond(conn, id, emptyResponse{Error: "unknown process " + req.ProcessID})
		return
	}
	if _, err := h.WriteStdin(req.Data); err != nil {
		a.respond(conn, id, emptyResponse{Error: err.Error()})
		return
	}
	a.respond(conn, id, emptyResponse{})
}

func (a *Agent) handleKill(conn io.ReadWriteCloser, id int64, body json.RawMessage) {
	var req killRequest
	if err := json.Unmarshal(body, &req); err != nil {
		a.respond(conn, id, emptyResponse{Error: err.Error()})
		return
	}
	a.mu.Lock()
	h := a.procs[req.ProcessID]
	a.mu.Unlock()
	if h == nil {
		a.respond(conn, id, emptyResponse{Error: "unknown process " + req.ProcessID})
		return
	}
	if err := h.Kill(); err != nil {
		a.respond(conn, id, emptyResponse{Error: err.Error()})
		return
	}
	a.respond(conn, id, emptyResponse{})
}
