//go:build windows

package useracct

import (
	"context"
	"fmt"
	"unsafe"

	"github.com/Microsoft/go-winio/pkg/guid"
	"github.com/pkg/errors"
	"golang.org/x/sys/windows"

	"github.com/ironframe-host/ironframe/internal/log"
	"github.com/ironframe-host/ironframe/internal/winapi"
)

// WindowsManager creates throwaway local accounts for containers, grounded
// on the teacher's internal/jobcontainers/logon.go (makeLocalAccount,
// processToken). Accounts get a random password that is never persisted;
// the Credential carries the logon token instead.
type WindowsManager struct {
	// GroupName, when non-empty, is added as a local group member for
	// every account this Manager creates.
	GroupName string
}

var _ Manager = (*WindowsManager)(nil)

func randomPassword() (*uint16, error) {
	g, err := guid.NewV4()
	if err != nil {
		return nil, err
	}
	return windows.UTF16PtrFromString(g.String())
}

func (m *WindowsManager) CreateUser(ctx context.Context, name string) (*Credential, error) {
	pswd, err := randomPassword()
	if err != nil {
		return nil, fmt.Errorf("generate password for %q: %w", name, err)
	}

	userUTF16, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, fmt.Errorf("encode username %q: %w", name, err)
	}

	usr1 := &winapi.UserInfo1{
		Name:     userUTF16,
		Password: pswd,
		Priv:     winapi.USER_PRIV_USER,
		Flags:    winapi.UF_NORMAL_ACCOUNT | winapi.UF_DONT_EXPIRE_PASSWD,
	}
	if err := winapi.NetUserAdd("", 1, (*byte)(unsafe.Pointer(usr1)), nil); err != nil {
		return nil, fmt.Errorf("create user %q: %w", name, err)
	}

	if m.GroupName != "" {
		if err := m.addToGroup(name); err != nil {
			_ = winapi.NetUserDel("", name)
			return nil, err
		}
	}

	log.G(ctx).WithField("username", name).Debug("created local user account")
	return &Credential{Username: name, passwordUTF16: pswd}, nil
}

func (m *WindowsManager) addToGroup(name string) error {
	sid, _, _, err := windows.LookupSID("", name)
	if err != nil {
		return fmt.Errorf("lookup SID for %q: %w", name, err)
	}
	members := []winapi.LocalGroupMembersInfo0{{Sid: sid}}
	if err := winapi.NetLocalGroupAddMembers("", m.GroupName, 0, (*byte)(unsafe.Pointer(&members[0])), 1); err != nil {
		return fmt.Errorf("add %q to group %q: %w", name, m.GroupName, err)
	}
	return nil
}

func (m *WindowsManager) DeleteUser(ctx context.Context, name string) error {
	if err := winapi.NetUserDel("", name); err != nil {
		return fmt.Errorf("delete user %q: %w", name, err)
	}
	log.G(ctx).WithField("username", name).Debug("deleted local user account")
	return nil
}

func (m *WindowsManager) GetSID(ctx context.Context, name string) (string, error) {
	sid, _, _, err := windows.LookupSID("", name)
	if err != nil {
		return "", fmt.Errorf("lookup SID for %q: %w", name, err)
	}
	return sid.String(), nil
}

func (m *WindowsManager) LogonAndGetPrimaryToken(ctx context.Context, cred *Credential) error {
	var token windows.Token
	if err := winapi.LogonUser(
		windows.StringToUTF16Ptr(cred.Username),
		nil,
		cred.passwordUTF16,
		winapi.LOGON32_LOGON_INTERACTIVE,
		winapi.LOGON32_PROVIDER_DEFAULT,
		&token,
	); err != nil {
		return errors.Wrapf(err, "logon user %q", cred.Username)
	}
	cred.Token = token
	return nil
}
