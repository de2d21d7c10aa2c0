//go:build windows

package containerservice

import (
	"context"
	"fmt"

	"golang.org/x/sys/windows"

	"github.com/ironframe-host/ironframe/internal/containerdir"
	"github.com/ironframe-host/ironframe/internal/hostclient"
	"github.com/ironframe-host/ironframe/internal/jobobj"
	"github.com/ironframe-host/ironframe/internal/procrun"
	"github.com/ironframe-host/ironframe/internal/quota"
	"github.com/ironframe-host/ironframe/internal/useracct"
	"github.com/ironframe-host/ironframe/internal/winenv"
)

// NewDefault wires the production Service: real local accounts, real
// NTFS directories and ACLs, real job objects, and a host agent launched
// and dialed back over a named pipe, grounded on the teacher's
// respective internal/jobcontainers, internal/security, and
// internal/jobobject packages.
func NewDefault(cfg HostConfig) (*Service, error) {
	userManager := &useracct.WindowsManager{GroupName: cfg.ContainerUserGroup}

	fsFactory := func(containerUser string) containerdir.FileSystem {
		return &containerdir.WindowsFileSystem{
			LookupSID: defaultLookupSID(userManager, containerUser),
		}
	}

	jobFactory := func(name string) (jobobj.Handle, error) {
		return jobobj.Create(name, false)
	}
	jobOpener := func(name string) (jobobj.Handle, error) {
		return jobobj.Open(name)
	}

	launch := func(id, workingDir string, cred *useracct.Credential, job jobobj.Handle, runner *procrun.Runner) (HostClientHandle, error) {
		return hostclient.Launch(id, workingDir, cred, job, runner)
	}

	return New(cfg, userManager, fsFactory, quota.DefaultManager{}, winenv.WindowsLoader{}, jobFactory, jobOpener, launch), nil
}

// defaultLookupSID resolves a directory's ACL principals: the built-in
// Administrators group, the SID this service process itself runs as,
// and containerUser's own account (via userManager.GetSID), which
// differs per Directory since each container's directory grants access
// to a different local account.
func defaultLookupSID(userManager useracct.Manager, containerUser string) func(containerdir.Principal) (*windows.SID, error) {
	return func(p containerdir.Principal) (*windows.SID, error) {
		switch p {
		case containerdir.PrincipalAdministrators:
			return windows.CreateWellKnownSid(windows.WinBuiltinAdministratorsSid)
		case containerdir.PrincipalServiceAccount:
			return currentProcessSID()
		case containerdir.PrincipalContainerUser:
			if containerUser == "" {
				return nil, fmt.Errorf("containerdir: no container user bound to this directory")
			}
			sidStr, err := userManager.GetSID(context.Background(), containerUser)
			if err != nil {
				return nil, err
			}
			return windows.StringToSid(sidStr)
		default:
			return nil, fmt.Errorf("containerdir: unknown principal %d", p)
		}
	}
}

// currentProcessSID returns the SID of the account this service process
// is running as, used for the ACL entries granted to "the service
// account".
func currentProcessSID() (*windows.SID, error) {
	tok := windows.GetCurrentProcessToken()
	user, err := tok.GetTokenUser()
	if err != nil {
		return nil, fmt.Errorf("lookup service account SID: %w", err)
	}
	return user.User.Sid, nil
}
