package winenv

import (
	"reflect"
	"testing"
)

func TestEnvsFromList(t *testing.T) {
	got, err := EnvsFromList([]string{"a=b", "test=1234", "my=varwith=init"})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"a": "b", "test": "1234", "my": "varwith=init"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestEnvsFromListRejectsMalformed(t *testing.T) {
	cases := [][]string{
		{"noequals"},
		{"=emptykey"},
	}
	for _, c := range cases {
		if _, err := EnvsFromList(c); err == nil {
			t.Fatalf("expected error for %v", c)
		}
	}
}

func TestEnvsRoundTrip(t *testing.T) {
	list := []string{"a=b", "test=1234", "my=varwith=init"}
	env, err := EnvsFromList(list)
	if err != nil {
		t.Fatal(err)
	}
	roundTripped := EnvsToList(env)
	again, err := EnvsFromList(roundTripped)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(env, again) {
		t.Fatalf("expected round trip to preserve map, got %v then %v", env, again)
	}
}

func TestMergeOverridesBase(t *testing.T) {
	base := map[string]string{"a": "1", "b": "2"}
	override := map[string]string{"b": "3", "c": "4"}
	got := Merge(base, override)
	want := map[string]string{"a": "1", "b": "3", "c": "4"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if base["b"] != "2" {
		t.Fatalf("expected base untouched, got %v", base)
	}
}
