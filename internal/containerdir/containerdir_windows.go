//go:build windows

package containerdir

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/windows"

	"github.com/ironframe-host/ironframe/internal/winapi"
)

// WindowsFileSystem backs Directory with real NTFS directories and DACLs,
// grounded on the teacher's internal/security (GrantSIDFileAccess,
// UpdateFileDACL).
type WindowsFileSystem struct {
	// LookupSID resolves a Principal to the SID an ACLEntry should name.
	// The production wiring supplies administrators, the service
	// account, and the live container user's SID.
	LookupSID func(Principal) (*windows.SID, error)
}

var _ FileSystem = (*WindowsFileSystem)(nil)

func accessMask(a Access) windows.ACCESS_MASK {
	switch a {
	case AccessRead:
		return windows.GENERIC_READ
	case AccessReadWrite:
		return windows.GENERIC_READ | windows.GENERIC_WRITE
	default:
		return 0
	}
}

func (w *WindowsFileSystem) EnsureDir(path string, acl []ACLEntry) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return fmt.Errorf("mkdir %q: %w", path, err)
	}

	var eas []windows.EXPLICIT_ACCESS
	for _, entry := range acl {
		if entry.Access == AccessNone {
			continue
		}
		sid, err := w.LookupSID(entry.Principal)
		if err != nil {
			return fmt.Errorf("resolve SID for ACL entry on %q: %w", path, err)
		}
		eas = append(eas, winapi.AllowAccessForSID(sid, accessMask(entry.Access), windows.SUB_CONTAINERS_AND_OBJECTS_INHERIT))
	}
	if err := winapi.UpdateFileDACL(path, eas); err != nil {
		return fmt.Errorf("apply ACL to %q: %w", path, err)
	}
	return nil
}

func (w *WindowsFileSystem) CopyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode())
		}
		return copyFile(path, target, info.Mode())
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

func (w *WindowsFileSystem) RemoveTree(path string) error {
	if err := os.RemoveAll(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (w *WindowsFileSystem) EnumerateDirectories(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	return dirs, nil
}
