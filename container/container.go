// Package container implements the Container entity: the aggregate of
// everything backing one isolated execution environment — its user
// principal, directory, job object, host client, quota control,
// properties, and baseline environment — plus the lifecycle and
// execution operations that dispatch to those owned subsystems.
package container

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/ironframe-host/ironframe/internal/containerdir"
	"github.com/ironframe-host/ironframe/internal/ironerr"
	"github.com/ironframe-host/ironframe/internal/jobobj"
	"github.com/ironframe-host/ironframe/internal/log"
	"github.com/ironframe-host/ironframe/internal/procrun"
	"github.com/ironframe-host/ironframe/internal/quota"
	"github.com/ironframe-host/ironframe/internal/useracct"
)

// State is the Container's monotonic lifecycle stage.
type State int32

const (
	StateActive State = iota
	StateDestroying
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateDestroying:
		return "destroying"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Runner is the shape both the unconstrained Process Runner
// (*procrun.Runner) and the Constrained Process Runner
// (*hostclient.Client) satisfy. Container depends only on this
// interface so it never needs to know which one it holds.
type Runner interface {
	Run(spec *procrun.ProcessRunSpec) (procrun.ProcessHandle, error)
	StopAll(kill bool) error
	FindByID(id string) (procrun.ProcessHandle, bool, error)
}

// HostClient is the subset of *hostclient.Client the Container needs for
// teardown, kept as an interface so Destroy doesn't force a hard
// dependency on the hostclient package for containers restored without
// a live agent.
type HostClient interface {
	Shutdown() error
}

// Config assembles a Container. Every field is populated by
// containerservice during transactional create or restore.
type Config struct {
	ID          string
	Handle      string
	User        *useracct.ContainerUser
	Directory   *containerdir.Directory
	Job         jobobj.Handle
	HostClient  HostClient // nil in restored/degraded mode
	Runner      Runner     // always the unconstrained runner
	Constrained Runner     // the runner commands are actually dispatched through
	Quota       *quota.Control
	Environment map[string]string
}

// Container is the aggregate described by Config, with its own
// lifecycle state.
type Container struct {
	id          string
	handle      string
	user        *useracct.ContainerUser
	dir         *containerdir.Directory
	job         jobobj.Handle
	hostClient  HostClient
	runner      Runner
	constrained Runner
	quota       *quota.Control
	environment map[string]string

	state int32
}

// New assembles a Container from cfg. It does not itself provision any
// resource; containerservice.Create has already done that by the time
// this is called (step 9 of transactional create).
func New(cfg Config) *Container {
	return &Container{
		id:          cfg.ID,
		handle:      cfg.Handle,
		user:        cfg.User,
		dir:         cfg.Directory,
		job:         cfg.Job,
		hostClient:  cfg.HostClient,
		runner:      cfg.Runner,
		constrained: cfg.Constrained,
		quota:       cfg.Quota,
		environment: cfg.Environment,
		state:       int32(StateActive),
	}
}

func (c *Container) ID() string     { return c.id }
func (c *Container) Handle() string { return c.handle }

func (c *Container) State() State {
	return State(atomic.LoadInt32(&c.state))
}

func (c *Container) Directory() *containerdir.Directory { return c.dir }
func (c *Container) Quota() *quota.Control               { return c.quota }

// Job returns the container's job object handle, or nil for a container
// restored without one (should not happen in practice: Restore always
// reattaches via jobobj.Open, but a fake Config in tests may omit it).
func (c *Container) Job() jobobj.Handle { return c.job }

// Environment returns the container's baseline environment map.
func (c *Container) Environment() map[string]string {
	return c.environment
}

// Runner returns the runner commands should actually be dispatched
// through: the constrained process runner in normal operation, or the
// unconstrained one for a container restored without a live host agent.
func (c *Container) Runner() Runner {
	return c.constrained
}

// RunProcess launches spec through the container's runner, applying the
// container's baseline environment when spec doesn't supply its own.
func (c *Container) RunProcess(spec *procrun.ProcessRunSpec) (procrun.ProcessHandle, error) {
	if c.State() != StateActive {
		return nil, fmt.Errorf("%w: container %q is %s", ironerr.ErrInvalidInput, c.handle, c.State())
	}
	if len(spec.Env) == 0 && len(c.environment) > 0 {
		spec.Env = c.environment
	}
	return c.constrained.Run(spec)
}

// Destroy tears the container down in the reverse of creation order:
// shut down the host client, dispose the job object, destroy the
// directory, delete the user. The constrained runner has no separate
// disposal beyond the host client it wraps (the unconstrained runner
// owns no per-container resource to release).
//
// Destroy is idempotent: calling it once the container has already
// moved past StateActive is a no-op.
func (c *Container) Destroy(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&c.state, int32(StateActive), int32(StateDestroying)) {
		return nil
	}

	var errs []error
	if c.hostClient != nil {
		if err := c.hostClient.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("shutdown host client: %w", err))
		}
	}
	if c.job != nil {
		if err := c.job.Close(); err != nil {
			errs = append(errs, fmt.Errorf("dispose job object: %w", err))
		}
	}
	if c.dir != nil {
		if err := c.dir.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("destroy directory: %w", err))
		}
	}
	if c.user != nil {
		if err := c.user.Delete(ctx); err != nil {
			errs = append(errs, fmt.Errorf("delete user: %w", err))
		}
	}

	atomic.StoreInt32(&c.state, int32(StateDestroyed))

	if len(errs) == 0 {
		log.G(ctx).WithField("handle", c.handle).Debug("container destroyed")
		return nil
	}
	return ironerr.NewAggregate(errs[0], errs[1:])
}
