package containerdir

import (
	"errors"
	"testing"

	"github.com/ironframe-host/ironframe/internal/ironerr"
)

type fakeFS struct {
	ensured []string
	copied  [][2]string
	removed []string
}

func (f *fakeFS) EnsureDir(path string, acl []ACLEntry) error {
	f.ensured = append(f.ensured, path)
	return nil
}

func (f *fakeFS) CopyTree(src, dst string) error {
	f.copied = append(f.copied, [2]string{src, dst})
	return nil
}

func (f *fakeFS) RemoveTree(path string) error {
	f.removed = append(f.removed, path)
	return nil
}

func (f *fakeFS) EnumerateDirectories(path string) ([]string, error) {
	return nil, nil
}

func TestCreateSubdirectoriesCreatesAllFour(t *testing.T) {
	fs := &fakeFS{}
	d := New(fs, `C:\base`, "c_ABCDEF0123456")
	if err := d.CreateSubdirectories(); err != nil {
		t.Fatal(err)
	}
	if len(fs.ensured) != 4 {
		t.Fatalf("expected 4 directories created, got %d: %v", len(fs.ensured), fs.ensured)
	}
}

func TestMapUserPathRejectsEscape(t *testing.T) {
	fs := &fakeFS{}
	d := New(fs, `C:\base`, "c_ABCDEF0123456")

	cases := []string{`..\..\windows\system32`, `a\..\..\b`, `\..\escape`}
	for _, c := range cases {
		if _, err := d.MapUserPath(c); !errors.Is(err, ironerr.ErrInvalidPath) {
			t.Fatalf("expected InvalidPath for %q, got %v", c, err)
		}
	}
}

func TestMapUserPathAcceptsPlainRelative(t *testing.T) {
	fs := &fakeFS{}
	d := New(fs, `C:\base`, "c_ABCDEF0123456")
	got, err := d.MapUserPath(`app\data`)
	if err != nil {
		t.Fatal(err)
	}
	want := `C:\base\c_ABCDEF0123456\user\app\data`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestMapBinPathPassesThroughDriveRooted(t *testing.T) {
	fs := &fakeFS{}
	d := New(fs, `C:\base`, "c_ABCDEF0123456")
	got, err := d.MapBinPath(`D:\tools\foo.exe`)
	if err != nil {
		t.Fatal(err)
	}
	if got != `D:\tools\foo.exe` {
		t.Fatalf("expected verbatim passthrough, got %q", got)
	}
}

func TestDestroyIsIdempotent(t *testing.T) {
	fs := &fakeFS{}
	d := New(fs, `C:\base`, "c_ABCDEF0123456")
	if err := d.Destroy(); err != nil {
		t.Fatal(err)
	}
	if err := d.Destroy(); err != nil {
		t.Fatalf("second destroy should also succeed, got %v", err)
	}
}
