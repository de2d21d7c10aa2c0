package container

import (
	"context"
	"errors"
	"testing"

	"github.com/ironframe-host/ironframe/internal/procrun"
	"github.com/ironframe-host/ironframe/internal/quota"
)

type fakeRunner struct {
	lastSpec *procrun.ProcessRunSpec
	handle   procrun.ProcessHandle
	err      error
}

func (f *fakeRunner) Run(spec *procrun.ProcessRunSpec) (procrun.ProcessHandle, error) {
	f.lastSpec = spec
	if f.err != nil {
		return nil, f.err
	}
	return f.handle, nil
}

func (f *fakeRunner) StopAll(kill bool) error                            { return nil }
func (f *fakeRunner) FindByID(id string) (procrun.ProcessHandle, bool, error) { return nil, false, nil }

type fakeHostClient struct {
	shutdownCalls int
	err           error
}

func (f *fakeHostClient) Shutdown() error {
	f.shutdownCalls++
	return f.err
}

func newTestContainer(t *testing.T, runner Runner, hc HostClient) *Container {
	t.Helper()
	return New(Config{
		ID:          "c_test",
		Handle:      "my-handle",
		Directory:   nil,
		Job:         nil,
		HostClient:  hc,
		Runner:      runner,
		Constrained: runner,
		Quota:       &quota.Control{Volume: `C:\`},
		Environment: map[string]string{"BASE": "1"},
	})
}

func TestRunProcessAppliesBaselineEnvironment(t *testing.T) {
	runner := &fakeRunner{handle: nil}
	c := newTestContainer(t, runner, nil)

	_, err := c.RunProcess(&procrun.ProcessRunSpec{Path: "cmd.exe"})
	if err != nil {
		t.Fatal(err)
	}
	if runner.lastSpec.Env["BASE"] != "1" {
		t.Fatalf("expected baseline environment applied, got %v", runner.lastSpec.Env)
	}
}

func TestRunProcessPreservesExplicitEnvironment(t *testing.T) {
	runner := &fakeRunner{}
	c := newTestContainer(t, runner, nil)

	explicit := map[string]string{"OVERRIDE": "yes"}
	_, err := c.RunProcess(&procrun.ProcessRunSpec{Path: "cmd.exe", Env: explicit})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := runner.lastSpec.Env["BASE"]; ok {
		t.Fatalf("explicit env should not be merged with baseline, got %v", runner.lastSpec.Env)
	}
}

func TestRunProcessRejectsNonActiveContainer(t *testing.T) {
	runner := &fakeRunner{}
	c := newTestContainer(t, runner, nil)

	if err := c.Destroy(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := c.RunProcess(&procrun.ProcessRunSpec{Path: "cmd.exe"}); err == nil {
		t.Fatal("expected error running a process against a destroyed container")
	}
}

func TestDestroyIsIdempotent(t *testing.T) {
	hc := &fakeHostClient{}
	c := newTestContainer(t, &fakeRunner{}, hc)

	if err := c.Destroy(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := c.Destroy(context.Background()); err != nil {
		t.Fatalf("second destroy should be a no-op, got %v", err)
	}
	if hc.shutdownCalls != 1 {
		t.Fatalf("expected exactly one shutdown call, got %d", hc.shutdownCalls)
	}
}

func TestDestroyAggregatesErrorsAndStillTransitions(t *testing.T) {
	hc := &fakeHostClient{err: errors.New("shutdown failed")}
	c := newTestContainer(t, &fakeRunner{}, hc)

	err := c.Destroy(context.Background())
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if c.State() != StateDestroyed {
		t.Fatalf("expected state destroyed even on teardown error, got %s", c.State())
	}
}
