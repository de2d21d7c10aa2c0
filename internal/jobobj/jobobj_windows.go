//go:build windows

package jobobj

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/ironframe-host/ironframe/internal/queue"
	"github.com/ironframe-host/ironframe/internal/winapi"
)

// JobObject is the concrete windows Handle implementation: a kernel job
// object handle, an optional notification queue fed by the shared IOCP
// poller, and a lock serializing handle access against Close.
type JobObject struct {
	handle     windows.Handle
	mq         *queue.MessageQueue
	handleLock sync.RWMutex
}

var _ Handle = (*JobObject)(nil)

var (
	ioInitOnce       sync.Once
	ioCompletionPort windows.Handle
	initIOErr        error
	jobMap           sync.Map // uintptr(handle) -> *queue.MessageQueue
)

// Create creates a job object, optionally named, and optionally registered
// to receive IO completion notifications (process exit, active process
// limit hit, and similar lifecycle events) on a shared per-process poller.
func Create(name string, notifications bool) (_ *JobObject, err error) {
	var jobName *uint16
	if name != "" {
		jobName, err = windows.UTF16PtrFromString(name)
		if err != nil {
			return nil, err
		}
	}

	jobHandle, err := windows.CreateJobObject(nil, jobName)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			windows.Close(jobHandle)
		}
	}()

	var mq *queue.MessageQueue
	if notifications {
		ioInitOnce.Do(func() {
			h, ioErr := windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, 0xffffffff)
			if ioErr != nil {
				initIOErr = ioErr
				return
			}
			ioCompletionPort = h
			go pollIOCP(h)
		})
		if initIOErr != nil {
			return nil, initIOErr
		}

		mq = queue.NewMessageQueue()
		jobMap.Store(uintptr(jobHandle), mq)
		if err = attachIOCP(jobHandle, ioCompletionPort); err != nil {
			jobMap.Delete(uintptr(jobHandle))
			return nil, err
		}
	}

	return &JobObject{handle: jobHandle, mq: mq}, nil
}

// Open reattaches to an existing named job object, used by
// containerservice.Restore to recover a container's job object across a
// process restart. It never registers for IOCP notifications: a
// restored container has no live host agent to notify anyway.
func Open(name string) (*JobObject, error) {
	jobName, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, err
	}
	handle, err := winapi.OpenJobObject(winapi.JOB_OBJECT_ALL_ACCESS, 0, jobName)
	if err != nil {
		return nil, fmt.Errorf("open job object %q: %w", name, err)
	}
	return &JobObject{handle: handle}, nil
}

func attachIOCP(job, port windows.Handle) error {
	info := winapi.JOBOBJECT_ASSOCIATE_COMPLETION_PORT{
		CompletionKey:  uintptr(job),
		CompletionPort: port,
	}
	_, err := windows.SetInformationJobObject(
		job,
		winapi.JobObjectAssociateCompletionPortInfoClass,
		uintptr(unsafe.Pointer(&info)),
		uint32(unsafe.Sizeof(info)),
	)
	return err
}

// pollIOCP runs for the lifetime of the process once the first
// notification-registered job is created, fanning completion messages out
// to each job's own queue by completion key (the job handle itself).
func pollIOCP(port windows.Handle) {
	var (
		overlapped *windows.Overlapped
		code       uint32
		key        uintptr
	)
	for {
		err := windows.GetQueuedCompletionStatus(port, &code, &key, &overlapped, windows.INFINITE)
		if err != nil {
			continue
		}
		if v, ok := jobMap.Load(key); ok {
			mq := v.(*queue.MessageQueue)
			_ = mq.Enqueue(code)
		}
	}
}

func (job *JobObject) SetResourceLimits(limits *Limits) error {
	if limits.MemoryLimitInBytes != 0 {
		if err := job.setMemoryLimit(limits.MemoryLimitInBytes); err != nil {
			return fmt.Errorf("set memory limit: %w", err)
		}
	}
	if limits.CPULimit != 0 {
		if err := job.setCPULimit(true, limits.CPULimit); err != nil {
			return fmt.Errorf("set cpu limit: %w", err)
		}
	} else if limits.CPUWeight != 0 {
		if err := job.setCPULimit(false, limits.CPUWeight); err != nil {
			return fmt.Errorf("set cpu weight: %w", err)
		}
	}
	if limits.MaxBandwidth != 0 || limits.MaxIOPS != 0 {
		if err := job.setIOLimit(limits.MaxBandwidth, limits.MaxIOPS); err != nil {
			return fmt.Errorf("set io limit: %w", err)
		}
	}
	return nil
}

func (job *JobObject) setCPULimit(rateBased bool, value uint32) error {
	job.handleLock.RLock()
	defer job.handleLock.RUnlock()
	if job.handle == 0 {
		return ErrAlreadyClosed
	}

	var info winapi.JOBOBJECT_CPU_RATE_CONTROL_INFORMATION
	if rateBased {
		if value < CPULimitMin || value > CPULimitMax {
			return fmt.Errorf("cpu rate %d out of range [%d,%d]", value, CPULimitMin, CPULimitMax)
		}
		info.ControlFlags = winapi.JOB_OBJECT_CPU_RATE_CONTROL_ENABLE | winapi.JOB_OBJECT_CPU_RATE_CONTROL_HARD_CAP
	} else {
		if value < CPUWeightMin || value > CPUWeightMax {
			return fmt.Errorf("cpu weight %d out of range [%d,%d]", value, CPUWeightMin, CPUWeightMax)
		}
		info.ControlFlags = winapi.JOB_OBJECT_CPU_RATE_CONTROL_ENABLE | winapi.JOB_OBJECT_CPU_RATE_CONTROL_WEIGHT_BASED
	}
	info.Rate = value

	_, err := windows.SetInformationJobObject(job.handle, windows.JobObjectCpuRateControlInformation, uintptr(unsafe.Pointer(&info)), uint32(unsafe.Sizeof(info)))
	return err
}

func (job *JobObject) setMemoryLimit(limitBytes uint64) error {
	job.handleLock.RLock()
	defer job.handleLock.RUnlock()
	if job.handle == 0 {
		return ErrAlreadyClosed
	}

	var info windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION
	info.JobMemoryLimit = uintptr(limitBytes)
	info.BasicLimitInformation.LimitFlags = windows.JOB_OBJECT_LIMIT_JOB_MEMORY
	_, err := windows.SetInformationJobObject(job.handle, windows.JobObjectExtendedLimitInformation, uintptr(unsafe.Pointer(&info)), uint32(unsafe.Sizeof(info)))
	return err
}

func (job *JobObject) setIOLimit(maxBandwidth, maxIOPS int64) error {
	job.handleLock.RLock()
	defer job.handleLock.RUnlock()
	if job.handle == 0 {
		return ErrAlreadyClosed
	}

	info := winapi.JOBOBJECT_IO_RATE_CONTROL_INFORMATION{
		ControlFlags: winapi.JOB_OBJECT_IO_RATE_CONTROL_ENABLE,
		MaxBandwidth: maxBandwidth,
		MaxIops:      maxIOPS,
	}
	_, err := winapi.SetIoRateControlInformationJobObject(job.handle, &info)
	return err
}

// PollNotification blocks until the next lifecycle notification for this
// job arrives, or returns ErrNotRegistered if Create was called without
// notifications enabled.
func (job *JobObject) PollNotification() (interface{}, error) {
	if job.mq == nil {
		return nil, ErrNotRegistered
	}
	return job.mq.ReadOrWait()
}

func (job *JobObject) Close() error {
	job.handleLock.Lock()
	defer job.handleLock.Unlock()
	if job.handle == 0 {
		return ErrAlreadyClosed
	}
	if err := windows.Close(job.handle); err != nil {
		return err
	}
	if job.mq != nil {
		job.mq.Close()
	}
	jobMap.Delete(uintptr(job.handle))
	job.handle = 0
	return nil
}

func (job *JobObject) Assign(pid uint32) error {
	job.handleLock.RLock()
	defer job.handleLock.RUnlock()
	if job.handle == 0 {
		return ErrAlreadyClosed
	}
	if pid == 0 {
		return invalidPidErr(pid)
	}
	hProc, err := windows.OpenProcess(winapi.PROCESS_ALL_ACCESS, true, pid)
	if err != nil {
		return err
	}
	defer windows.Close(hProc)
	return windows.AssignProcessToJobObject(job.handle, hProc)
}

func (job *JobObject) Terminate(exitCode uint32) error {
	job.handleLock.RLock()
	defer job.handleLock.RUnlock()
	if job.handle == 0 {
		return ErrAlreadyClosed
	}
	return windows.TerminateJobObject(job.handle, exitCode)
}

// Pids returns every process ID currently assigned to the job.
func (job *JobObject) Pids() ([]uint32, error) {
	job.handleLock.RLock()
	defer job.handleLock.RUnlock()
	if job.handle == 0 {
		return nil, ErrAlreadyClosed
	}

	info := winapi.JOBOBJECT_BASIC_PROCESS_ID_LIST{}
	err := winapi.QueryInformationJobObject(
		job.handle,
		winapi.JobObjectBasicProcessIdList,
		uintptr(unsafe.Pointer(&info)),
		uint32(unsafe.Sizeof(info)),
		nil,
	)
	if err == nil {
		if info.NumberOfProcessIdsInList == 1 {
			return []uint32{uint32(info.ProcessIdList[0])}, nil
		}
		return []uint32{}, nil
	}
	if err != windows.ERROR_MORE_DATA {
		return nil, fmt.Errorf("query PIDs in job object: %w", err)
	}

	size := unsafe.Sizeof(info) + (unsafe.Sizeof(info.ProcessIdList[0]) * uintptr(info.NumberOfAssignedProcesses-1))
	buf := make([]byte, size)
	if err = winapi.QueryInformationJobObject(
		job.handle,
		winapi.JobObjectBasicProcessIdList,
		uintptr(unsafe.Pointer(&buf[0])),
		uint32(len(buf)),
		nil,
	); err != nil {
		return nil, fmt.Errorf("query PIDs in job object: %w", err)
	}

	bufInfo := (*winapi.JOBOBJECT_BASIC_PROCESS_ID_LIST)(unsafe.Pointer(&buf[0]))
	pids := make([]uint32, bufInfo.NumberOfProcessIdsInList)
	for i, pid := range bufInfo.AllPids() {
		pids[i] = uint32(pid)
	}
	return pids, nil
}
