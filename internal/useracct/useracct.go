// Package useracct owns the lifecycle of the local user principal backing
// a container: creation, deletion, and re-attachment on restore. The
// production Manager creates real Windows local accounts and logs on to
// obtain a primary token, grounded on the teacher's
// internal/jobcontainers/logon.go (makeLocalAccount, processToken).
package useracct

import (
	"context"
	"fmt"

	"github.com/ironframe-host/ironframe/internal/ironerr"
)

// Credential is the opaque handle callers (procrun, hostclient) hold for
// a principal created by a Manager. Password is never surfaced outside
// this package's production implementation; it is retained in-memory
// only for the lifetime of the account so LogonUser can be retried.
type Credential struct {
	Username string
	Domain   string
	// Token is the platform logon token, typed interface{} here so this
	// file stays buildable without golang.org/x/sys/windows; the
	// production Manager (useracct_windows.go) always populates it with
	// a windows.Token.
	Token interface{}

	// passwordUTF16 holds the random password WindowsManager generated
	// for this account, kept only long enough to retry LogonUser.
	passwordUTF16 *uint16
}

// Manager is the UserManager capability interface from spec.md §6: it
// creates and deletes local user accounts and produces logon tokens.
type Manager interface {
	CreateUser(ctx context.Context, name string) (*Credential, error)
	DeleteUser(ctx context.Context, name string) error
	GetSID(ctx context.Context, name string) (string, error)
	LogonAndGetPrimaryToken(ctx context.Context, cred *Credential) error
}

// ContainerUser exclusively owns one local account for the lifetime of a
// container.
type ContainerUser struct {
	id      string
	manager Manager
	cred    *Credential
}

// Create provisions a fresh local account named id and logs on to it.
// Whether the account also joins a preconfigured group is a property of
// manager itself (the production WindowsManager's GroupName field), not
// a per-call choice.
func Create(ctx context.Context, manager Manager, id string) (*ContainerUser, error) {
	cred, err := manager.CreateUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("create user %q: %w", id, err)
	}
	if err := manager.LogonAndGetPrimaryToken(ctx, cred); err != nil {
		_ = manager.DeleteUser(ctx, id)
		return nil, fmt.Errorf("logon user %q: %w", id, err)
	}
	return &ContainerUser{id: id, manager: manager, cred: cred}, nil
}

// Restore re-attaches to an already-existing account named id (used by
// containerservice.Restore). No fresh logon token is obtained since
// there is no live host agent to hand it to.
func Restore(id string, manager Manager) *ContainerUser {
	return &ContainerUser{id: id, manager: manager, cred: &Credential{Username: id}}
}

// Delete removes the backing local account. Safe to call once.
func (u *ContainerUser) Delete(ctx context.Context) error {
	if u == nil {
		return nil
	}
	if err := u.manager.DeleteUser(ctx, u.id); err != nil {
		return fmt.Errorf("delete user %q: %w", u.id, err)
	}
	return nil
}

// Credential returns the principal's credential material.
func (u *ContainerUser) Credential() *Credential {
	return u.cred
}

// ID returns the account name.
func (u *ContainerUser) ID() string {
	return u.id
}

// ErrGroupMissing is returned by production Managers when a requested
// group does not exist on the host.
var ErrGroupMissing = fmt.Errorf("%w: group does not exist", ironerr.ErrResourceMissing)
