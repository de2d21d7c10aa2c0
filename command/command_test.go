package command

import (
	"errors"
	"testing"

	"github.com/ironframe-host/ironframe/internal/ironerr"
)

type fakeCommand struct {
	result Result
	err    error
}

func (f *fakeCommand) Execute() (Result, error) { return f.result, f.err }

func TestRunAsyncUnknownVerbIsInvalidOperation(t *testing.T) {
	r := New()
	_, err := r.RunAsync("nope", Args{})
	if !errors.Is(err, ironerr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRunAsyncDispatchesRegisteredVerb(t *testing.T) {
	r := New()
	want := Result{ExitCode: 0, Stdout: "hi\n"}
	r.Register("echo", func(args Args) (Command, error) {
		return &fakeCommand{result: want}, nil
	})

	got, err := r.RunAsync("echo", Args{Argv: []string{"hi"}})
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestRunAsyncVerbsAreCaseSensitive(t *testing.T) {
	r := New()
	r.Register("Echo", func(args Args) (Command, error) {
		return &fakeCommand{result: Result{ExitCode: 0}}, nil
	})
	if _, err := r.RunAsync("echo", Args{}); !errors.Is(err, ironerr.ErrInvalidInput) {
		t.Fatalf("expected lowercase verb to miss case-sensitive registration, got %v", err)
	}
}

func TestRunAsyncPropagatesCommandFailure(t *testing.T) {
	r := New()
	wantErr := errors.New("boom")
	r.Register("fail", func(args Args) (Command, error) {
		return &fakeCommand{err: wantErr}, nil
	})
	_, err := r.RunAsync("fail", Args{})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}

func TestRegisterReplacesExistingFactory(t *testing.T) {
	r := New()
	r.Register("v", func(args Args) (Command, error) {
		return &fakeCommand{result: Result{ExitCode: 1}}, nil
	})
	r.Register("v", func(args Args) (Command, error) {
		return &fakeCommand{result: Result{ExitCode: 2}}, nil
	})
	got, err := r.RunAsync("v", Args{})
	if err != nil {
		t.Fatal(err)
	}
	if got.ExitCode != 2 {
		t.Fatalf("expected replaced factory's result, got %v", got)
	}
}
