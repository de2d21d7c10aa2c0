// Package containerservice implements the Container Service: transactional
// container creation and destruction, restore-from-disk enumeration, and
// the case-insensitive registry of live containers. Every step of
// Create pushes a compensator onto an internal/undo.Stack so any failure
// unwinds every resource already provisioned, in reverse order.
package containerservice

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ironframe-host/ironframe/container"
	"github.com/ironframe-host/ironframe/internal/containerdir"
	"github.com/ironframe-host/ironframe/internal/ids"
	"github.com/ironframe-host/ironframe/internal/ironerr"
	"github.com/ironframe-host/ironframe/internal/jobobj"
	"github.com/ironframe-host/ironframe/internal/log"
	"github.com/ironframe-host/ironframe/internal/procrun"
	"github.com/ironframe-host/ironframe/internal/quota"
	"github.com/ironframe-host/ironframe/internal/undo"
	"github.com/ironframe-host/ironframe/internal/useracct"
	"github.com/ironframe-host/ironframe/property"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// HostConfig is the small configuration struct containerservice is built
// from, following the teacher's convention of passing option structs
// into constructors rather than a global config singleton.
type HostConfig struct {
	// BaseDir is the directory under which every container's
	// {base}/{id} root lives.
	BaseDir string
	// ContainerUserGroup, when non-empty, is the local group every
	// container user account joins.
	ContainerUserGroup string
	// JobNamePrefix is prepended to a container's id to name its job
	// object.
	JobNamePrefix string
}

const (
	envBaseDir  = "IRONFRAME_BASE_DIR"
	envUserGrp  = "IRONFRAME_CONTAINER_USER_GROUP"
	envJobNameP = "IRONFRAME_JOB_PREFIX"
)

// DefaultHostConfig reads HostConfig fields from environment variables,
// falling back to reasonable defaults for anything unset.
func DefaultHostConfig() HostConfig {
	cfg := HostConfig{
		BaseDir:       `C:\ProgramData\ironframe\containers`,
		JobNamePrefix: "ironframe-",
	}
	if v := os.Getenv(envBaseDir); v != "" {
		cfg.BaseDir = v
	}
	if v := os.Getenv(envUserGrp); v != "" {
		cfg.ContainerUserGroup = v
	}
	if v := os.Getenv(envJobNameP); v != "" {
		cfg.JobNamePrefix = v
	}
	return cfg
}

// HostClientHandle is what Launch must return: something that is both a
// Container Runner (for dispatching commands) and disposable (for
// teardown).
type HostClientHandle interface {
	container.Runner
	container.HostClient
}

// JobObjectFactory creates a fresh, named job object.
type JobObjectFactory func(name string) (jobobj.Handle, error)

// JobObjectOpener reattaches to an existing named job object, used by
// Restore.
type JobObjectOpener func(name string) (jobobj.Handle, error)

// HostLauncher starts the per-container host agent process under cred,
// bound to job, with its working directory set to workingDir, and dials
// it back — this is step 6 of transactional create.
type HostLauncher func(id, workingDir string, cred *useracct.Credential, job jobobj.Handle, runner *procrun.Runner) (HostClientHandle, error)

// FSFactory returns the FileSystem a Directory should use while acting
// on behalf of containerUser (the container's local account name, or
// "" for operations — like Restore's directory enumeration — that never
// need to resolve the PrincipalContainerUser ACL entry). The production
// factory resolves containerUser's SID once and closes over it so every
// ACL application for that container's directory names the right
// account.
type FSFactory func(containerUser string) containerdir.FileSystem

// Service is the Container Service.
type Service struct {
	cfg HostConfig

	userManager  useracct.Manager
	fsFactory    FSFactory
	quotaManager quota.Manager
	envLoader    procrun.EnvLoader
	properties   *property.Service

	jobFactory JobObjectFactory
	jobOpener  JobObjectOpener
	launch     HostLauncher

	mu         sync.Mutex
	containers map[string]*container.Container // keyed by strings.ToLower(handle)
}

// New assembles a Service from its collaborators. Every parameter is a
// capability interface (or factory function over one), so tests can
// supply in-memory fakes for all of them.
func New(
	cfg HostConfig,
	userManager useracct.Manager,
	fsFactory FSFactory,
	quotaManager quota.Manager,
	envLoader procrun.EnvLoader,
	jobFactory JobObjectFactory,
	jobOpener JobObjectOpener,
	launch HostLauncher,
) *Service {
	return &Service{
		cfg:          cfg,
		userManager:  userManager,
		fsFactory:    fsFactory,
		quotaManager: quotaManager,
		envLoader:    envLoader,
		properties:   property.NewService(),
		jobFactory:   jobFactory,
		jobOpener:    jobOpener,
		launch:       launch,
		containers:   make(map[string]*container.Container),
	}
}

// Spec is the Container Service's Create input, matching ContainerSpec
// from the data model.
type Spec struct {
	Handle      string
	BindMounts  []specs.Mount
	Properties  map[string]string
	Environment map[string]string
}

func key(handle string) string {
	return strings.ToLower(handle)
}

// Create runs the 11-step transactional create. On any failure it runs
// every compensator pushed so far, in reverse order, and returns the
// resulting (possibly aggregate) error.
func (s *Service) Create(ctx context.Context, spec *Spec) (*container.Container, error) {
	if spec == nil {
		return nil, fmt.Errorf("%w: nil container spec", ironerr.ErrInvalidInput)
	}

	stack := undo.New()
	c, err := s.create(ctx, spec, stack)
	if err != nil {
		return nil, stack.Run(err)
	}
	stack.Commit()
	return c, nil
}

func (s *Service) create(ctx context.Context, spec *Spec, stack *undo.Stack) (*container.Container, error) {
	// Step 1: resolve handle and derive id.
	handle := spec.Handle
	if handle == "" {
		h, err := ids.GenerateHandle()
		if err != nil {
			return nil, fmt.Errorf("generate handle: %w", err)
		}
		handle = h
	}
	id := ids.GenerateID(handle)

	s.mu.Lock()
	_, exists := s.containers[key(handle)]
	s.mu.Unlock()
	if exists {
		return nil, fmt.Errorf("%w: handle %q already registered", ironerr.ErrResourceExists, handle)
	}

	// Step 2: create user.
	user, err := useracct.Create(ctx, s.userManager, id)
	if err != nil {
		return nil, fmt.Errorf("create container user: %w", err)
	}
	stack.Push(func() error { return user.Delete(ctx) })

	// Step 3: create directory and subdirectories.
	dir := containerdir.New(s.fsFactory(id), s.cfg.BaseDir, id)
	if err := dir.CreateSubdirectories(); err != nil {
		return nil, fmt.Errorf("create container directory: %w", err)
	}
	stack.Push(dir.Destroy)

	// Step 4: create bind mounts (no separate compensator; subsumed by
	// directory destroy).
	if err := dir.CreateBindMounts(spec.BindMounts); err != nil {
		return nil, fmt.Errorf("create bind mounts: %w", err)
	}

	// Step 5: create job object named by id.
	job, err := s.jobFactory(s.cfg.JobNamePrefix + id)
	if err != nil {
		return nil, fmt.Errorf("create job object: %w", err)
	}
	stack.Push(job.Close)

	// Step 6: start container host process, bound to job, under the
	// user's credential, in dir.Root().
	runner := procrun.New(s.envLoader)
	hostClient, err := s.launch(id, dir.Root(), user.Credential(), job, runner)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ironerr.ErrHostUnavailable, err)
	}
	stack.Push(hostClient.Shutdown)

	// Step 7: wrap host_client in a constrained process runner. In this
	// implementation the host client already satisfies the runner
	// contract directly (see container.Runner); there is no separate
	// object to dispose beyond the host client's own connection, so this
	// compensator is an idempotent second call to the same shutdown.
	stack.Push(hostClient.Shutdown)

	// Step 8: obtain quota control for the directory's volume.
	quotaControl, err := s.quotaManager.ControlFor(dir.Volume())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ironerr.ErrQuotaFailure, err)
	}

	// Step 9: assemble the Container.
	c := container.New(container.Config{
		ID:          id,
		Handle:      handle,
		User:        user,
		Directory:   dir,
		Job:         job,
		HostClient:  hostClient,
		Runner:      runner,
		Constrained: hostClient,
		Quota:       quotaControl,
		Environment: spec.Environment,
	})

	// Step 10: set properties via the property service. The handle is
	// additionally persisted under a reserved key so a future restore
	// can recover it instead of defaulting to id.
	privateDir := filepath.Join(dir.Root(), containerdir.SubdirPrivate)
	props := map[string]string{}
	for k, v := range spec.Properties {
		props[k] = v
	}
	props[handlePropertyKey] = handle
	if err := s.properties.SetProperties(id, privateDir, props); err != nil {
		return nil, fmt.Errorf("set container properties: %w", err)
	}

	// Step 11: insert into the registry under mutual exclusion.
	s.mu.Lock()
	if _, exists := s.containers[key(handle)]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: handle %q already registered", ironerr.ErrResourceExists, handle)
	}
	s.containers[key(handle)] = c
	s.mu.Unlock()

	log.G(ctx).WithField("handle", handle).WithField("id", id).Info("container created")
	return c, nil
}

// Destroy looks up handle case-insensitively, removes it from the
// registry under mutual exclusion if found, then tears it down in
// reverse creation order. Unknown handles are a no-op.
func (s *Service) Destroy(ctx context.Context, handle string) error {
	s.mu.Lock()
	c, ok := s.containers[key(handle)]
	if ok {
		delete(s.containers, key(handle))
	}
	s.mu.Unlock()
	if !ok {
		return nil
	}

	defer s.properties.Forget(c.ID())
	return c.Destroy(ctx)
}

// Restore enumerates base's subdirectories and re-attaches to each live
// container, reflecting a degraded but queryable mode: restored
// containers use the unconstrained process runner as both runner roles,
// since there is no live host agent to dial back into.
func (s *Service) Restore(ctx context.Context) ([]*container.Container, error) {
	names, err := s.fsFactory("").EnumerateDirectories(s.cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("enumerate container directories: %w", err)
	}

	var restored []*container.Container
	for _, id := range names {
		c, err := s.restoreOne(ctx, id)
		if err != nil {
			log.G(ctx).WithField("id", id).WithError(err).Warn("failed to restore container")
			continue
		}
		restored = append(restored, c)
	}
	return restored, nil
}

func (s *Service) restoreOne(ctx context.Context, id string) (*container.Container, error) {
	user := useracct.Restore(id, s.userManager)
	dir := containerdir.New(s.fsFactory(id), s.cfg.BaseDir, id)

	job, err := s.jobOpener(s.cfg.JobNamePrefix + id)
	if err != nil {
		return nil, fmt.Errorf("reattach job object: %w", err)
	}

	quotaControl, err := s.quotaManager.ControlFor(dir.Volume())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ironerr.ErrQuotaFailure, err)
	}

	runner := procrun.New(s.envLoader)

	privateDir := filepath.Join(dir.Root(), containerdir.SubdirPrivate)
	handle := id
	if h, ok, err := s.properties.GetProperty(id, privateDir, handlePropertyKey); err == nil && ok {
		handle = h
	}

	c := container.New(container.Config{
		ID:          id,
		Handle:      handle,
		User:        user,
		Directory:   dir,
		Job:         job,
		HostClient:  nil,
		Runner:      runner,
		Constrained: runner,
		Quota:       quotaControl,
		Environment: map[string]string{},
	})

	s.mu.Lock()
	s.containers[key(handle)] = c
	s.mu.Unlock()

	return c, nil
}

// handlePropertyKey is the reserved property under which the original
// handle string is persisted, so a future restore can recover it even
// though the on-disk directory is only ever named by id.
const handlePropertyKey = "system.handle"

// GetByHandle returns the live container registered under handle
// (case-insensitive), if any.
func (s *Service) GetByHandle(handle string) (*container.Container, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.containers[key(handle)]
	return c, ok
}

// GetContainers returns a snapshot copy of every live container.
func (s *Service) GetContainers() []*container.Container {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*container.Container, 0, len(s.containers))
	for _, c := range s.containers {
		out = append(out, c)
	}
	return out
}

// GetHandles returns a snapshot of every registered handle.
func (s *Service) GetHandles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.containers))
	for _, c := range s.containers {
		out = append(out, c.Handle())
	}
	return out
}
