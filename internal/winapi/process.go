//go:build windows

package winapi

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

const PROCESS_ALL_ACCESS uint32 = 0x1FFFFF

const (
	PROC_THREAD_ATTRIBUTE_JOB_LIST       uintptr = 0x2000D
	PROC_THREAD_ATTRIBUTE_PSEUDOCONSOLE  uintptr = 0x20016
	PROC_THREAD_ATTRIBUTE_PARENT_PROCESS uintptr = 0x20000
)

var procCreateProcessAsUserW = modadvapi32.NewProc("CreateProcessAsUserW")

// CreateProcessAsUser wraps CreateProcessAsUserW: it launches commandLine
// under hToken's security context, inheriting handles and a job object
// assignment the same way windows.CreateProcess does for the unprivileged
// path.
func CreateProcessAsUser(hToken windows.Token, appName *uint16, commandLine *uint16, procSecurity *windows.SecurityAttributes, threadSecurity *windows.SecurityAttributes, inheritHandles bool, creationFlags uint32, env *uint16, currentDir *uint16, startupInfo *windows.StartupInfo, outProcInfo *windows.ProcessInformation) (err error) {
	var inherit uintptr
	if inheritHandles {
		inherit = 1
	}
	r1, _, e1 := procCreateProcessAsUserW.Call(
		uintptr(hToken),
		uintptr(unsafe.Pointer(appName)),
		uintptr(unsafe.Pointer(commandLine)),
		uintptr(unsafe.Pointer(procSecurity)),
		uintptr(unsafe.Pointer(threadSecurity)),
		inherit,
		uintptr(creationFlags),
		uintptr(unsafe.Pointer(env)),
		uintptr(unsafe.Pointer(currentDir)),
		uintptr(unsafe.Pointer(startupInfo)),
		uintptr(unsafe.Pointer(outProcInfo)),
	)
	if r1 == 0 {
		return e1
	}
	return nil
}
