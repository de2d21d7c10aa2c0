package containerservice

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironframe-host/ironframe/container"
	"github.com/ironframe-host/ironframe/internal/containerdir"
	"github.com/ironframe-host/ironframe/internal/jobobj"
	"github.com/ironframe-host/ironframe/internal/procrun"
	"github.com/ironframe-host/ironframe/internal/quota"
	"github.com/ironframe-host/ironframe/internal/useracct"
)

// fakeFS delegates directory creation to the real filesystem (so
// property.Service's os.CreateTemp/os.Rename calls have somewhere real
// to land) but never touches ACLs, matching the portable-test contract
// FileSystem is meant to offer.
type fakeFS struct{}

func (fakeFS) EnsureDir(path string, acl []containerdir.ACLEntry) error {
	return os.MkdirAll(path, 0o755)
}
func (fakeFS) CopyTree(src, dst string) error { return nil }
func (fakeFS) RemoveTree(path string) error   { return os.RemoveAll(path) }
func (fakeFS) EnumerateDirectories(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

type fakeUserManager struct {
	created []string
	deleted []string
	failCreate error
}

func (f *fakeUserManager) CreateUser(ctx context.Context, name string) (*useracct.Credential, error) {
	if f.failCreate != nil {
		return nil, f.failCreate
	}
	f.created = append(f.created, name)
	return &useracct.Credential{Username: name}, nil
}
func (f *fakeUserManager) DeleteUser(ctx context.Context, name string) error {
	f.deleted = append(f.deleted, name)
	return nil
}
func (f *fakeUserManager) GetSID(ctx context.Context, name string) (string, error) {
	return "S-1-5-21-fake", nil
}
func (f *fakeUserManager) LogonAndGetPrimaryToken(ctx context.Context, cred *useracct.Credential) error {
	return nil
}

type fakeJob struct {
	name   string
	closed bool
}

func (f *fakeJob) Assign(pid uint32) error                { return nil }
func (f *fakeJob) SetResourceLimits(l *jobobj.Limits) error { return nil }
func (f *fakeJob) Pids() ([]uint32, error)                 { return nil, nil }
func (f *fakeJob) Terminate(exitCode uint32) error          { return nil }
func (f *fakeJob) PollNotification() (interface{}, error)   { return nil, nil }
func (f *fakeJob) Close() error {
	f.closed = true
	return nil
}

type fakeHostClient struct{}

func (fakeHostClient) Run(spec *procrun.ProcessRunSpec) (procrun.ProcessHandle, error) {
	return nil, nil
}
func (fakeHostClient) StopAll(kill bool) error                            { return nil }
func (fakeHostClient) FindByID(id string) (procrun.ProcessHandle, bool, error) { return nil, false, nil }
func (fakeHostClient) Shutdown() error                                    { return nil }

func newTestService(t *testing.T, um *fakeUserManager, launchErr error) (*Service, string) {
	t.Helper()
	base := t.TempDir()

	fsFactory := func(containerUser string) containerdir.FileSystem { return fakeFS{} }
	jobFactory := func(name string) (jobobj.Handle, error) { return &fakeJob{name: name}, nil }
	jobOpener := func(name string) (jobobj.Handle, error) { return &fakeJob{name: name}, nil }
	launch := func(id, workingDir string, cred *useracct.Credential, job jobobj.Handle, runner *procrun.Runner) (HostClientHandle, error) {
		if launchErr != nil {
			return nil, launchErr
		}
		return fakeHostClient{}, nil
	}

	svc := New(HostConfig{BaseDir: base, JobNamePrefix: "test-"}, um, fsFactory, quota.DefaultManager{}, fakeEnvLoader{}, jobFactory, jobOpener, launch)
	return svc, base
}

type fakeEnvLoader struct{}

func (fakeEnvLoader) Inherited() (map[string]string, error)          { return map[string]string{}, nil }
func (fakeEnvLoader) ForUser(cred interface{}) (map[string]string, error) { return map[string]string{}, nil }

func TestCreateAssignsHandleWhenOmitted(t *testing.T) {
	um := &fakeUserManager{}
	svc, _ := newTestService(t, um, nil)

	c, err := svc.Create(context.Background(), &Spec{})
	if err != nil {
		t.Fatal(err)
	}
	if c.Handle() == "" {
		t.Fatal("expected a generated handle")
	}
	if _, ok := svc.GetByHandle(c.Handle()); !ok {
		t.Fatal("expected container registered under its handle")
	}
}

func TestCreateRejectsDuplicateHandle(t *testing.T) {
	um := &fakeUserManager{}
	svc, _ := newTestService(t, um, nil)

	if _, err := svc.Create(context.Background(), &Spec{Handle: "dup"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(context.Background(), &Spec{Handle: "dup"}); err == nil {
		t.Fatal("expected an error creating a second container with the same handle")
	}
}

func TestCreateHandleLookupIsCaseInsensitive(t *testing.T) {
	um := &fakeUserManager{}
	svc, _ := newTestService(t, um, nil)

	if _, err := svc.Create(context.Background(), &Spec{Handle: "MyHandle"}); err != nil {
		t.Fatal(err)
	}
	if _, ok := svc.GetByHandle("myhandle"); !ok {
		t.Fatal("expected case-insensitive lookup to find the container")
	}
}

func TestCreateUnwindsOnLaunchFailure(t *testing.T) {
	um := &fakeUserManager{}
	svc, _ := newTestService(t, um, errors.New("agent failed to start"))

	if _, err := svc.Create(context.Background(), &Spec{Handle: "will-fail"}); err == nil {
		t.Fatal("expected Create to fail when the host launcher fails")
	}
	if len(um.created) != 1 || len(um.deleted) != 1 {
		t.Fatalf("expected the created user to be rolled back, created=%v deleted=%v", um.created, um.deleted)
	}
	if _, ok := svc.GetByHandle("will-fail"); ok {
		t.Fatal("a failed create must not leave a registry entry behind")
	}
}

func TestDestroyRemovesFromRegistry(t *testing.T) {
	um := &fakeUserManager{}
	svc, _ := newTestService(t, um, nil)

	c, err := svc.Create(context.Background(), &Spec{Handle: "to-destroy"})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Destroy(context.Background(), c.Handle()); err != nil {
		t.Fatal(err)
	}
	if _, ok := svc.GetByHandle("to-destroy"); ok {
		t.Fatal("expected container removed from the registry after destroy")
	}
}

func TestDestroyUnknownHandleIsNoop(t *testing.T) {
	um := &fakeUserManager{}
	svc, _ := newTestService(t, um, nil)
	if err := svc.Destroy(context.Background(), "never-existed"); err != nil {
		t.Fatalf("expected destroying an unknown handle to be a no-op, got %v", err)
	}
}

func TestRestoreRecoversPersistedHandle(t *testing.T) {
	um := &fakeUserManager{}
	svc, base := newTestService(t, um, nil)

	c, err := svc.Create(context.Background(), &Spec{Handle: "original-handle"})
	if err != nil {
		t.Fatal(err)
	}
	id := c.ID()

	svc2, _ := newTestService(t, um, nil)
	svc2.cfg.BaseDir = base

	restored, err := svc2.Restore(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	var found *container.Container
	for _, rc := range restored {
		if rc.ID() == id {
			found = rc
		}
	}
	if found == nil {
		t.Fatalf("expected to restore container with id %q, got %v", id, restored)
	}
	if found.Handle() != "original-handle" {
		t.Fatalf("expected restored handle %q, got %q", "original-handle", found.Handle())
	}
	if found.Runner() == nil {
		t.Fatal("expected a degraded-mode runner to be wired for a restored container")
	}
}

func TestRestoreDefaultsHandleToIDWhenPropertyMissing(t *testing.T) {
	um := &fakeUserManager{}
	svc, base := newTestService(t, um, nil)

	if err := os.MkdirAll(filepath.Join(base, "bare-id", containerdir.SubdirPrivate), 0o755); err != nil {
		t.Fatal(err)
	}

	restored, err := svc.Restore(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(restored) != 1 || restored[0].Handle() != "bare-id" {
		t.Fatalf("expected a single container defaulting handle to id, got %v", restored)
	}
}
