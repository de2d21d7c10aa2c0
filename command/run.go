package command

import (
	"bytes"
	"fmt"

	"github.com/ironframe-host/ironframe/internal/procrun"
)

// RunVerb is the verb name for executing an arbitrary program inside a
// container, buffering its output for the Result triple.
const RunVerb = "run"

// runCommand executes Argv[0] with Argv[1:] inside its container,
// collecting stdout/stderr into buffers through the runner's line
// callbacks (the spec's Buffered flag stays false, since the runner
// discards output in buffered mode), because RunAsync's contract is a
// single (exit code, stdout, stderr) triple.
type runCommand struct {
	args Args
}

// NewRunFactory returns the Factory for RunVerb.
func NewRunFactory() Factory {
	return func(args Args) (Command, error) {
		if len(args.Argv) == 0 {
			return nil, fmt.Errorf("run: empty argument vector")
		}
		return &runCommand{args: args}, nil
	}
}

func (c *runCommand) Execute() (Result, error) {
	var stdout, stderr bytes.Buffer

	spec := &procrun.ProcessRunSpec{
		Path:     c.args.Argv[0],
		Args:     c.args.Argv[1:],
		Buffered: false,
		OnOutputLine: func(line string) {
			stdout.WriteString(line)
			stdout.WriteByte('\n')
		},
		OnErrorLine: func(line string) {
			stderr.WriteString(line)
			stderr.WriteByte('\n')
		},
	}

	handle, err := c.args.Container.RunProcess(spec)
	if err != nil {
		return Result{}, fmt.Errorf("run: launch %q: %w", spec.Path, err)
	}

	exitCode, err := handle.Wait()
	if err != nil {
		return Result{}, fmt.Errorf("run: wait for %q: %w", spec.Path, err)
	}

	return Result{ExitCode: exitCode, Stdout: stdout.String(), Stderr: stderr.String()}, nil
}
