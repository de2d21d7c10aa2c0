//go:build windows

package winapi

import (
	"syscall"

	"golang.org/x/sys/windows"
)

const (
	STATUS_REPARSE_POINT_ENCOUNTERED = 0xC000050B
	ERROR_NO_MORE_ITEMS              = 0x103
)

func NTSuccess(status uint32) bool {
	return status == 0
}

var (
	modntdll                   = windows.NewLazySystemDLL("ntdll.dll")
	procRtlNtStatusToDosError  = modntdll.NewProc("RtlNtStatusToDosError")
)

// RtlNtStatusToDosError converts an NTSTATUS value into a Win32 error code
// through the ntdll entry point of the same name.
func RtlNtStatusToDosError(status uint32) (winerr error) {
	r0, _, _ := procRtlNtStatusToDosError.Call(uintptr(status))
	if r0 != 0 {
		winerr = syscall.Errno(r0)
	}
	return
}
