package property

import (
	"reflect"
	"testing"
)

func TestGetAllMissingFileIsEmptyMap(t *testing.T) {
	s := NewService()
	got, err := s.GetAll("c_test", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty map, got %v", got)
	}
}

func TestSetThenGetAll(t *testing.T) {
	s := NewService()
	dir := t.TempDir()
	want := map[string]string{"a": "1", "b": "2"}
	if err := s.SetProperties("c_test", dir, want); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetAll("c_test", dir)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestGetPropertyAndRemove(t *testing.T) {
	s := NewService()
	dir := t.TempDir()
	if err := s.SetProperties("c_test", dir, map[string]string{"a": "1"}); err != nil {
		t.Fatal(err)
	}

	v, ok, err := s.GetProperty("c_test", dir, "a")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || v != "1" {
		t.Fatalf("expected (1, true), got (%q, %v)", v, ok)
	}

	if _, ok, err := s.GetProperty("c_test", dir, "missing"); err != nil || ok {
		t.Fatalf("expected (_, false, nil), got (_, %v, %v)", ok, err)
	}

	if err := s.RemoveProperty("c_test", dir, "a"); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetAll("c_test", dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty map after remove, got %v", got)
	}
}

func TestRemoveMissingKeyIsNoop(t *testing.T) {
	s := NewService()
	dir := t.TempDir()
	if err := s.RemoveProperty("c_test", dir, "nope"); err != nil {
		t.Fatal(err)
	}
}

func TestSetPropertiesIsAtomicReplace(t *testing.T) {
	s := NewService()
	dir := t.TempDir()
	if err := s.SetProperties("c_test", dir, map[string]string{"a": "1", "b": "2"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetProperties("c_test", dir, map[string]string{"c": "3"}); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetAll("c_test", dir)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"c": "3"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected full replace %v, got %v", want, got)
	}
}
