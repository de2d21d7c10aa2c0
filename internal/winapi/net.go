//go:build windows

package winapi

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// USER_PRIV_USER and the UF_* account-control flags used when creating the
// throwaway local account backing a container's principal.
const (
	USER_PRIV_USER         = 1
	UF_NORMAL_ACCOUNT      = 0x0200
	UF_DONT_EXPIRE_PASSWD  = 0x10000
)

// LOGON32_* constants for LogonUserW.
const (
	LOGON32_LOGON_INTERACTIVE  = 2
	LOGON32_LOGON_SERVICE      = 5
	LOGON32_PROVIDER_DEFAULT   = 0
)

// UserNameCharLimit is the maximum length (in UTF-16 code units, excluding
// the null terminator) NetUserAdd accepts for a USERNAME field.
const UserNameCharLimit = 20

// UserInfo1 mirrors the Win32 USER_INFO_1 structure used by NetUserAdd.
type UserInfo1 struct {
	Name        *uint16
	Password    *uint16
	PasswordAge uint32
	Priv        uint32
	HomeDir     *uint16
	Comment     *uint16
	Flags       uint32
	ScriptPath  *uint16
}

// LocalGroupMembersInfo0 mirrors LOCALGROUP_MEMBERS_INFO_0.
type LocalGroupMembersInfo0 struct {
	Sid *windows.SID
}

var (
	modnetapi32 = windows.NewLazySystemDLL("netapi32.dll")

	procNetUserAdd              = modnetapi32.NewProc("NetUserAdd")
	procNetUserDel               = modnetapi32.NewProc("NetUserDel")
	procNetLocalGroupAddMembers = modnetapi32.NewProc("NetLocalGroupAddMembers")
	procNetLocalGroupGetInfo    = modnetapi32.NewProc("NetLocalGroupGetInfo")
	procLogonUserW              = modadvapi32.NewProc("LogonUserW")
)

func netAPIStatusToErr(status uintptr) error {
	if status == 0 {
		return nil
	}
	return syscall.Errno(status)
}

// NetUserAdd creates a local user account. serverName selects the target
// machine; an empty string targets the local computer.
func NetUserAdd(serverName string, level uint32, buf *byte, parmErr *uint32) error {
	var serverPtr *uint16
	if serverName != "" {
		p, err := windows.UTF16PtrFromString(serverName)
		if err != nil {
			return err
		}
		serverPtr = p
	}
	r0, _, _ := procNetUserAdd.Call(
		uintptr(unsafe.Pointer(serverPtr)),
		uintptr(level),
		uintptr(unsafe.Pointer(buf)),
		uintptr(unsafe.Pointer(parmErr)),
	)
	return netAPIStatusToErr(r0)
}

// NetUserDel removes the local user account named userName.
func NetUserDel(serverName, userName string) error {
	var serverPtr *uint16
	if serverName != "" {
		p, err := windows.UTF16PtrFromString(serverName)
		if err != nil {
			return err
		}
		serverPtr = p
	}
	userPtr, err := windows.UTF16PtrFromString(userName)
	if err != nil {
		return err
	}
	r0, _, _ := procNetUserDel.Call(uintptr(unsafe.Pointer(serverPtr)), uintptr(unsafe.Pointer(userPtr)))
	return netAPIStatusToErr(r0)
}

// NetLocalGroupAddMembers adds the members described by buf (an array of
// level-0 LOCALGROUP_MEMBERS_INFO_0 structures) to groupName.
func NetLocalGroupAddMembers(serverName, groupName string, level uint32, buf *byte, totalEntries uint32) error {
	var serverPtr *uint16
	if serverName != "" {
		p, err := windows.UTF16PtrFromString(serverName)
		if err != nil {
			return err
		}
		serverPtr = p
	}
	groupPtr, err := windows.UTF16PtrFromString(groupName)
	if err != nil {
		return err
	}
	r0, _, _ := procNetLocalGroupAddMembers.Call(
		uintptr(unsafe.Pointer(serverPtr)),
		uintptr(unsafe.Pointer(groupPtr)),
		uintptr(level),
		uintptr(unsafe.Pointer(buf)),
		uintptr(totalEntries),
	)
	return netAPIStatusToErr(r0)
}

// NetLocalGroupGetInfo confirms groupName exists on the target machine. The
// caller is responsible for freeing *bufptr with windows.NetApiBufferFree.
func NetLocalGroupGetInfo(serverName, groupName string, level uint32, bufptr **byte) error {
	var serverPtr *uint16
	if serverName != "" {
		p, err := windows.UTF16PtrFromString(serverName)
		if err != nil {
			return err
		}
		serverPtr = p
	}
	groupPtr, err := windows.UTF16PtrFromString(groupName)
	if err != nil {
		return err
	}
	r0, _, _ := procNetLocalGroupGetInfo.Call(
		uintptr(unsafe.Pointer(serverPtr)),
		uintptr(unsafe.Pointer(groupPtr)),
		uintptr(level),
		uintptr(unsafe.Pointer(bufptr)),
	)
	return netAPIStatusToErr(r0)
}

// LogonUser wraps LogonUserW, used to obtain a primary token for a freshly
// created or pre-existing local account.
func LogonUser(username, domain *uint16, password *uint16, logonType, logonProvider uint32, token *windows.Token) error {
	r1, _, e1 := procLogonUserW.Call(
		uintptr(unsafe.Pointer(username)),
		uintptr(unsafe.Pointer(domain)),
		uintptr(unsafe.Pointer(password)),
		uintptr(logonType),
		uintptr(logonProvider),
		uintptr(unsafe.Pointer(token)),
	)
	if r1 == 0 {
		return e1
	}
	return nil
}
