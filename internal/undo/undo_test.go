package undo

import (
	"errors"
	"testing"
)

func TestRunLIFOOrder(t *testing.T) {
	s := New()
	var order []int
	s.Push(func() error { order = append(order, 1); return nil })
	s.Push(func() error { order = append(order, 2); return nil })
	s.Push(func() error { order = append(order, 3); return nil })

	cause := errors.New("boom")
	if err := s.Run(cause); err != cause {
		t.Fatalf("expected cause returned unchanged, got %v", err)
	}
	want := []int{3, 2, 1}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}

func TestRunAggregatesUndoErrors(t *testing.T) {
	s := New()
	undoErr := errors.New("undo failed")
	s.Push(func() error { return undoErr })
	s.Push(func() error { return nil })

	cause := errors.New("boom")
	err := s.Run(cause)
	if err == cause {
		t.Fatalf("expected an aggregate error, got the bare cause")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected aggregate to wrap cause")
	}
	if !errors.Is(err, undoErr) {
		t.Fatalf("expected aggregate to wrap undo error")
	}
}

func TestCommitDiscardsActions(t *testing.T) {
	s := New()
	ran := false
	s.Push(func() error { ran = true; return nil })
	s.Commit()
	if s.Len() != 0 {
		t.Fatalf("expected stack empty after commit, got %d", s.Len())
	}
	_ = s.Run(errors.New("should not run anything"))
	if ran {
		t.Fatalf("expected committed compensator not to run")
	}
}
