//go:build windows

package winapi

import (
	"fmt"
	"unsafe"

	"github.com/Microsoft/go-winio"
	"golang.org/x/sys/windows"
)

const (
	SeBackupPrivilege  = winio.SeBackupPrivilege
	SeRestorePrivilege = winio.SeRestorePrivilege
)

var (
	modadvapi32                 = windows.NewLazySystemDLL("advapi32.dll")
	procLookupPrivilegeNameW    = modadvapi32.NewProc("LookupPrivilegeNameW")
)

func lookupPrivilegeName(systemName string, luid *windows.LUID, buffer *uint16, size *uint32) error {
	var systemNamePtr *uint16
	if systemName != "" {
		p, err := windows.UTF16PtrFromString(systemName)
		if err != nil {
			return err
		}
		systemNamePtr = p
	}
	r1, _, e1 := procLookupPrivilegeNameW.Call(
		uintptr(unsafe.Pointer(systemNamePtr)),
		uintptr(unsafe.Pointer(luid)),
		uintptr(unsafe.Pointer(buffer)),
		uintptr(unsafe.Pointer(size)),
	)
	if r1 == 0 {
		return e1
	}
	return nil
}

func LookupPrivilegeName(luid windows.LUID) (string, error) {
	s, err := retryLStr(-2, func(b *uint16, l *uint32) error {
		return lookupPrivilegeName("", &luid, b, l)
	})
	if err != nil {
		return "", fmt.Errorf("could not lookup LUID %v: %w", luid, err)
	}
	return windows.UTF16ToString(s), nil
}
