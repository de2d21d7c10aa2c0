package ids

import (
	"crypto/sha1" //nolint:gosec
	"encoding/hex"
	"strings"
	"testing"
)

func TestGenerateIDDeterministic(t *testing.T) {
	id1 := GenerateID("handle")
	id2 := GenerateID("handle")
	if id1 != id2 {
		t.Fatalf("expected deterministic id, got %q and %q", id1, id2)
	}
}

func TestGenerateIDShape(t *testing.T) {
	id := GenerateID("handle")
	if !strings.HasPrefix(id, "c_") {
		t.Fatalf("expected c_ prefix, got %q", id)
	}
	if len(id) != 17 {
		t.Fatalf("expected length 17, got %d (%q)", len(id), id)
	}
}

func TestGenerateIDMatchesSHA1(t *testing.T) {
	sum := sha1.Sum([]byte("handle")) //nolint:gosec
	want := "c_" + strings.ToUpper(hex.EncodeToString(sum[:]))[:15]
	if got := GenerateID("handle"); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestGenerateHandleShape(t *testing.T) {
	h, err := GenerateHandle()
	if err != nil {
		t.Fatal(err)
	}
	if len(h) != 32 {
		t.Fatalf("expected length 32, got %d (%q)", len(h), h)
	}
	if _, err := hex.DecodeString(h); err != nil {
		t.Fatalf("expected valid hex, got error: %v", err)
	}
}

func TestGenerateHandleFresh(t *testing.T) {
	h1, err := GenerateHandle()
	if err != nil {
		t.Fatal(err)
	}
	h2, err := GenerateHandle()
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h2 {
		t.Fatalf("expected distinct handles, got two copies of %q", h1)
	}
}
