// Package jobobj is a high level wrapper around the Windows job object
// kernel primitive: a handle used to contain a process tree, cap its
// resource usage, and learn when every process inside it has exited.
// Adapted from the teacher's internal/jobobject package, generalized to
// back a single container's resource quota and process-group lifecycle
// instead of hcsshim's generic job-container runtime.
package jobobj

import (
	"errors"
	"fmt"

	"github.com/ironframe-host/ironframe/internal/queue"
)

// Limits describes the resource caps SetResourceLimits applies. A zero
// value for any one field leaves that dimension unconstrained.
type Limits struct {
	CPUWeight          uint32
	CPULimit           uint32
	MemoryLimitInBytes uint64
	MaxIOPS            int64
	MaxBandwidth       int64
}

const (
	CPULimitMin  = 1
	CPULimitMax  = 10000
	CPUWeightMin = 1
	CPUWeightMax = 9
)

var (
	ErrAlreadyClosed = errors.New("job object handle already closed")
	ErrNotRegistered = errors.New("job object was not registered for notifications")
)

// Handle is the portable interface a Runner/container holds; the concrete
// type is only buildable under GOOS=windows.
type Handle interface {
	Assign(pid uint32) error
	SetResourceLimits(limits *Limits) error
	Pids() ([]uint32, error)
	Terminate(exitCode uint32) error
	PollNotification() (interface{}, error)
	Close() error
}

// NotificationQueue is an alias for queue.MessageQueue, so the portable
// package can name the notification queue type without importing the
// windows-only IOCP plumbing.
type NotificationQueue = queue.MessageQueue

func invalidPidErr(pid uint32) error {
	return fmt.Errorf("invalid pid: %d", pid)
}
