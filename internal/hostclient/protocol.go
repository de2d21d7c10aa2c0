// Package hostclient implements the Container Host Client and
// Constrained Process Runner. A per-container host agent process is
// spawned under the container user's credential, bound to the
// container's job object, and the service dials it back over a named
// pipe; every subsequent process launch is serialized over that
// connection instead of running directly on the calling host.
//
// Framing is grounded on the teacher's internal/gcs bridge: a small
// fixed header (message kind, payload length, sequence id) followed by
// a JSON payload, with a background receive loop matching responses
// back to outstanding calls by id. Unlike the teacher's bridge this
// protocol carries encoding/json payloads only — there is no guest
// compute wire protocol to match, so no protobuf/ttrpc codegen is
// needed.
package hostclient

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// msgKind distinguishes RPC requests, RPC responses, and unsolicited
// notifications (stdout/stderr lines, process exit) on the wire.
type msgKind uint32

const (
	msgRequest msgKind = iota + 1
	msgResponse
	msgNotify
)

// hdrSize is the fixed header: kind (4 bytes) + payload length (4
// bytes) + sequence id (8 bytes).
const hdrSize = 16

// maxMsgSize bounds a single message's JSON payload to avoid unbounded
// allocation from a misbehaving or corrupted peer.
const maxMsgSize = 1 << 20

// frame is one wire message: a kind, a sequence id pairing requests
// with responses, and a raw JSON payload interpreted according to kind.
type frame struct {
	kind    msgKind
	id      int64
	payload []byte
}

// writeFrame writes f to w as a length-prefixed message. Safe to call
// concurrently only if the caller serializes writes itself (the Client
// and agent side each hold their own write mutex around every call).
func writeFrame(w io.Writer, f frame) error {
	if len(f.payload) > maxMsgSize {
		return fmt.Errorf("hostclient: outgoing message of %d bytes exceeds limit", len(f.payload))
	}
	var hdr [hdrSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(f.kind))
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(f.payload)))
	binary.LittleEndian.PutUint64(hdr[8:16], uint64(f.id))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if len(f.payload) == 0 {
		return nil
	}
	_, err := w.Write(f.payload)
	return err
}

// readFrame reads one length-prefixed message from r.
func readFrame(r io.Reader) (frame, error) {
	var hdr [hdrSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return frame{}, err
	}
	kind := msgKind(binary.LittleEndian.Uint32(hdr[0:4]))
	n := binary.LittleEndian.Uint32(hdr[4:8])
	id := int64(binary.LittleEndian.Uint64(hdr[8:16]))
	if n > maxMsgSize {
		return frame{}, fmt.Errorf("hostclient: incoming message of %d bytes exceeds limit", n)
	}
	payload := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return frame{}, err
		}
	}
	return frame{kind: kind, id: id, payload: payload}, nil
}

// createProcessRequest is the RPC payload for launching a process
// through the agent; it carries the same shape as procrun.ProcessRunSpec
// minus the callback fields, which cannot cross the wire and are
// instead re-synthesized client-side from notify frames.
type createProcessRequest struct {
	Path       string            `json:"path"`
	Args       []string          `json:"args"`
	WorkingDir string            `json:"workingDir"`
	Env        map[string]string `json:"env"`
	Buffered   bool              `json:"buffered"`
}

type createProcessResponse struct {
	ProcessID string `json:"processId"`
	Error     string `json:"error,omitempty"`
}

type killRequest struct {
	ProcessID string `json:"processId"`
}

type writeStdinRequest struct {
	ProcessID string `json:"processId"`
	Data      []byte `json:"data"`
}

type emptyResponse struct {
	Error string `json:"error,omitempty"`
}

// notifyKind distinguishes the three unsolicited events the agent can
// push for a running process.
type notifyKind string

const (
	notifyStdout notifyKind = "stdout"
	notifyStderr notifyKind = "stderr"
	notifyExit   notifyKind = "exit"
)

type notification struct {
	ProcessID string     `json:"processId"`
	Kind      notifyKind `json:"kind"`
	Line      string     `json:"line,omitempty"`
	ExitCode  int        `json:"exitCode,omitempty"`
}

// envelope tags a request frame's verb so both sides can share one
// request/response pair of Go types per verb while keeping the header
// itself verb-agnostic; it travels as part of the JSON payload envelope.
type envelope struct {
	Verb string          `json:"verb"`
	Body json.RawMessage `json:"body"`
}

func marshalRequest(verb string, body interface{}) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Verb: verb, Body: raw})
}
