//go:build windows

package winapi

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modkernel32                              = windows.NewLazySystemDLL("kernel32.dll")
	procIsProcessInJob                       = modkernel32.NewProc("IsProcessInJob")
	procQueryInformationJobObject            = modkernel32.NewProc("QueryInformationJobObject")
	procOpenJobObjectW                       = modkernel32.NewProc("OpenJobObjectW")
	procSetIoRateControlInformationJobObject = modkernel32.NewProc("SetIoRateControlInformationJobObject")
)

// JOB_OBJECT_ALL_ACCESS is the desired-access mask Open uses to reattach
// to an existing job object with full control over it.
const JOB_OBJECT_ALL_ACCESS = 0x1F001F

// Messages that can be received from an assigned io completion port.
// https://docs.microsoft.com/en-us/windows/win32/api/winnt/ns-winnt-jobobject_associate_completion_port
const (
	JOB_OBJECT_MSG_END_OF_JOB_TIME       = 1
	JOB_OBJECT_MSG_END_OF_PROCESS_TIME   = 2
	JOB_OBJECT_MSG_ACTIVE_PROCESS_LIMIT  = 3
	JOB_OBJECT_MSG_ACTIVE_PROCESS_ZERO   = 4
	JOB_OBJECT_MSG_NEW_PROCESS           = 6
	JOB_OBJECT_MSG_EXIT_PROCESS          = 7
	JOB_OBJECT_MSG_ABNORMAL_EXIT_PROCESS = 8
	JOB_OBJECT_MSG_PROCESS_MEMORY_LIMIT  = 9
	JOB_OBJECT_MSG_JOB_MEMORY_LIMIT      = 10
	JOB_OBJECT_MSG_NOTIFICATION_LIMIT    = 11
	JOB_OBJECT_MSG_JOB_CYCLE_TIME_LIMIT  = 12
	JOB_OBJECT_MSG_SILO_TERMINATED       = 13
)

// IO limit flags
//
// https://docs.microsoft.com/en-us/windows/win32/api/jobapi2/ns-jobapi2-jobobject_io_rate_control_information
const JOB_OBJECT_IO_RATE_CONTROL_ENABLE = 0x1

// https://docs.microsoft.com/en-us/windows/win32/api/winnt/ns-winnt-jobobject_cpu_rate_control_information
const (
	JOB_OBJECT_CPU_RATE_CONTROL_ENABLE       = 0x1
	JOB_OBJECT_CPU_RATE_CONTROL_WEIGHT_BASED = 0x2
	JOB_OBJECT_CPU_RATE_CONTROL_HARD_CAP     = 0x4
	JOB_OBJECT_CPU_RATE_CONTROL_NOTIFY       = 0x8
	JOB_OBJECT_CPU_RATE_CONTROL_MIN_MAX_RATE = 0x10
)

const (
	JobObjectBasicAccountingInformation      uint32 = 1
	JobObjectBasicProcessIdList              uint32 = 3
	JobObjectAssociateCompletionPortInfoClass uint32 = 7
	JobObjectBasicAndIoAccountingInformation  uint32 = 8
	JobObjectLimitViolationInformation        uint32 = 13
	JobObjectNotificationLimitInformation2    uint32 = 33
)

// https://docs.microsoft.com/en-us/windows/win32/api/winnt/ns-winnt-jobobject_basic_limit_information
type JOBOBJECT_BASIC_LIMIT_INFORMATION struct {
	PerProcessUserTimeLimit int64
	PerJobUserTimeLimit     int64
	LimitFlags              uint32
	MinimumWorkingSetSize   uintptr
	MaximumWorkingSetSize   uintptr
	ActiveProcessLimit      uint32
	Affinity                uintptr
	PriorityClass           uint32
	SchedulingClass         uint32
}

// https://docs.microsoft.com/en-us/windows/win32/api/winnt/ns-winnt-jobobject_cpu_rate_control_information
type JOBOBJECT_CPU_RATE_CONTROL_INFORMATION struct {
	ControlFlags uint32
	Rate         uint32
	// Have to remove weight to get this to work for some reason?
}

// https://docs.microsoft.com/en-us/windows/win32/api/jobapi2/ns-jobapi2-jobobject_io_rate_control_information
type JOBOBJECT_IO_RATE_CONTROL_INFORMATION struct {
	MaxIops         int64
	MaxBandwidth    int64
	ReservationIops int64
	BaseIOSize      uint32
	VolumeName      string
	ControlFlags    uint32
}

type JOBOBJECT_BASIC_PROCESS_ID_LIST struct {
	NumberOfAssignedProcesses uint32
	NumberOfProcessIdsInList  uint32
	ProcessIdList             [1]uintptr
}

// AllPids reinterprets the trailing ProcessIdList array according to
// NumberOfProcessIdsInList, for use after a QueryInformationJobObject call
// into a caller-sized buffer larger than sizeof(JOBOBJECT_BASIC_PROCESS_ID_LIST).
func (l *JOBOBJECT_BASIC_PROCESS_ID_LIST) AllPids() []uintptr {
	return unsafe.Slice(&l.ProcessIdList[0], int(l.NumberOfProcessIdsInList))
}

// https://docs.microsoft.com/en-us/windows/desktop/api/winnt/ns-winnt-_jobobject_associate_completion_port
type JOBOBJECT_ASSOCIATE_COMPLETION_PORT struct {
	CompletionKey  uintptr
	CompletionPort windows.Handle
}

// IsProcessInJob reports whether procHandle is assigned to jobHandle (or to
// any job, when jobHandle is 0).
func IsProcessInJob(procHandle windows.Handle, jobHandle uintptr, result *bool) (err error) {
	r1, _, e1 := procIsProcessInJob.Call(uintptr(procHandle), jobHandle, uintptr(unsafe.Pointer(result)))
	if r1 == 0 {
		return e1
	}
	return nil
}

// QueryInformationJobObject wraps the kernel32 call of the same name.
func QueryInformationJobObject(jobHandle windows.Handle, infoClass uint32, jobObjectInfo uintptr, jobObjectInformationLength uint32, lpReturnLength *uint32) (err error) {
	r1, _, e1 := procQueryInformationJobObject.Call(
		uintptr(jobHandle),
		uintptr(infoClass),
		jobObjectInfo,
		uintptr(jobObjectInformationLength),
		uintptr(unsafe.Pointer(lpReturnLength)),
	)
	if r1 == 0 {
		return e1
	}
	return nil
}

// OpenJobObject opens an existing named job object.
func OpenJobObject(desiredAccess uint32, inheritHandle uint32, lpName *uint16) (handle windows.Handle, err error) {
	r1, _, e1 := procOpenJobObjectW.Call(uintptr(desiredAccess), uintptr(inheritHandle), uintptr(unsafe.Pointer(lpName)))
	handle = windows.Handle(r1)
	if handle == 0 {
		return handle, e1
	}
	return handle, nil
}

// SetIoRateControlInformationJobObject wraps the kernel32 call of the same name.
func SetIoRateControlInformationJobObject(jobHandle windows.Handle, ioRateControlInfo *JOBOBJECT_IO_RATE_CONTROL_INFORMATION) (ret uint32, err error) {
	r1, _, e1 := procSetIoRateControlInformationJobObject.Call(uintptr(jobHandle), uintptr(unsafe.Pointer(ioRateControlInfo)))
	ret = uint32(r1)
	if ret == 0 {
		if e1 != nil && e1 != syscall.Errno(0) {
			err = e1
		}
	}
	return ret, err
}
