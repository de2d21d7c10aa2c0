// Package containerdir owns the on-disk layout of a single container:
// its root, three fixed subdirectories, ACLs on each, bind mounts copied
// in under the user subtree, and path confinement for any caller-supplied
// relative path. Path mapping is platform-independent; ACL application
// and directory creation go through a FileSystem capability so tests run
// without touching a real disk.
package containerdir

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/opencontainers/runtime-spec/specs-go"
	"github.com/pkg/errors"

	"github.com/ironframe-host/ironframe/internal/ironerr"
)

// Subdirectory names under a container's root.
const (
	SubdirBin     = "bin"
	SubdirUser    = "user"
	SubdirPrivate = "private"
)

// Access levels the FileSystem capability understands when applying ACLs.
type Access int

const (
	AccessNone Access = iota
	AccessRead
	AccessReadWrite
)

// Principal identifies who an ACL entry grants access to.
type Principal int

const (
	PrincipalAdministrators Principal = iota
	PrincipalServiceAccount
	PrincipalContainerUser
)

// ACLEntry is one (principal, access) pair to apply to a directory.
type ACLEntry struct {
	Principal Principal
	Access    Access
}

// FileSystem is the capability interface a Directory uses for everything
// that touches the real filesystem: creation, ACL application, copy, and
// recursive removal. The production implementation (containerdir_windows.go)
// backs this with os.MkdirAll and internal/winapi's DACL helpers.
type FileSystem interface {
	EnsureDir(path string, acl []ACLEntry) error
	CopyTree(src, dst string) error
	RemoveTree(path string) error
	// EnumerateDirectories lists the immediate child directory names of
	// path, used by containerservice.Restore to rediscover containers.
	EnumerateDirectories(path string) ([]string, error)
}

// Directory is the per-container directory facade.
type Directory struct {
	fs   FileSystem
	root string
}

// New returns a Directory rooted at {base}/{id}.
func New(fs FileSystem, base, id string) *Directory {
	return &Directory{fs: fs, root: filepath.Join(base, id)}
}

// Root returns the container's root path.
func (d *Directory) Root() string {
	return d.root
}

var (
	rootACL = []ACLEntry{
		{PrincipalAdministrators, AccessReadWrite},
		{PrincipalServiceAccount, AccessReadWrite},
		{PrincipalContainerUser, AccessRead},
	}
	privateACL = []ACLEntry{
		{PrincipalAdministrators, AccessReadWrite},
		{PrincipalServiceAccount, AccessReadWrite},
	}
	binACL = []ACLEntry{
		{PrincipalAdministrators, AccessReadWrite},
		{PrincipalServiceAccount, AccessReadWrite},
		{PrincipalContainerUser, AccessRead},
	}
	userACL = []ACLEntry{
		{PrincipalAdministrators, AccessReadWrite},
		{PrincipalServiceAccount, AccessReadWrite},
		{PrincipalContainerUser, AccessReadWrite},
	}
)

// CreateSubdirectories creates root, private, bin, and user with their
// fixed ACLs.
func (d *Directory) CreateSubdirectories() error {
	dirs := []struct {
		path string
		acl  []ACLEntry
	}{
		{d.root, rootACL},
		{filepath.Join(d.root, SubdirPrivate), privateACL},
		{filepath.Join(d.root, SubdirBin), binACL},
		{filepath.Join(d.root, SubdirUser), userACL},
	}
	for _, e := range dirs {
		if err := d.fs.EnsureDir(e.path, e.acl); err != nil {
			return errors.Wrapf(err, "create container subdirectory %q", e.path)
		}
	}
	return nil
}

// isDriveRooted reports whether p is already an absolute, drive-rooted
// path (e.g. "C:\foo" or "C:/foo"), which is passed through verbatim.
func isDriveRooted(p string) bool {
	if len(p) < 2 {
		return false
	}
	c := p[0]
	isLetter := (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
	return isLetter && p[1] == ':'
}

// mapInto resolves rel against subtree, verifying the canonical result
// stays within it. Absolute drive-rooted paths pass through unchanged.
func mapInto(subtree, rel string) (string, error) {
	if isDriveRooted(rel) {
		return rel, nil
	}
	trimmed := strings.TrimLeft(rel, `\/`)
	joined := filepath.Join(subtree, trimmed)
	canon := filepath.Clean(joined)

	subtreeClean := filepath.Clean(subtree)
	if canon != subtreeClean && !strings.HasPrefix(canon, subtreeClean+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes %q", ironerr.ErrInvalidPath, rel, subtree)
	}
	return canon, nil
}

// MapBinPath maps rel into the bin/ subtree.
func (d *Directory) MapBinPath(rel string) (string, error) {
	return mapInto(filepath.Join(d.root, SubdirBin), rel)
}

// MapPrivatePath maps rel into the private/ subtree.
func (d *Directory) MapPrivatePath(rel string) (string, error) {
	return mapInto(filepath.Join(d.root, SubdirPrivate), rel)
}

// MapUserPath maps rel into the user/ subtree.
func (d *Directory) MapUserPath(rel string) (string, error) {
	return mapInto(filepath.Join(d.root, SubdirUser), rel)
}

// CreateBindMounts maps each mount's destination through MapUserPath,
// ensures it exists with a user-RW ACL, and copies the source tree in.
func (d *Directory) CreateBindMounts(mounts []specs.Mount) error {
	for _, m := range mounts {
		dst, err := d.MapUserPath(m.Destination)
		if err != nil {
			return err
		}
		if err := d.fs.EnsureDir(dst, userACL); err != nil {
			return errors.Wrapf(err, "ensure bind mount destination %q", dst)
		}
		if err := d.fs.CopyTree(m.Source, dst); err != nil {
			return errors.Wrapf(err, "copy bind mount %q -> %q", m.Source, dst)
		}
	}
	return nil
}

// Destroy recursively removes the container's root. Absence is not an
// error.
func (d *Directory) Destroy() error {
	if err := d.fs.RemoveTree(d.root); err != nil {
		return errors.Wrapf(err, "destroy container directory %q", d.root)
	}
	return nil
}

// Volume returns the drive-letter root of the container directory, used
// to scope a quota control to the underlying volume.
func (d *Directory) Volume() string {
	v := filepath.VolumeName(d.root)
	if v == "" {
		return d.root
	}
	return v + `\`
}
