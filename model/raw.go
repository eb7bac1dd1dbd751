package model

import "time"

// ProcessRaw is one process's observation at a single sample tick:
// cumulative kernel counters plus the rates derived from the previous
// observation of the same pid. On first observation of a pid every rate
// field is zero (§4.1) — the sampler has no prior point to delta against.
type ProcessRaw struct {
	PID       int
	Command   string
	SampledAt time.Time

	CPUPercent float64 // cumulative-derived instantaneous CPU percent

	ResidentMemory uint64 // bytes
	PeakMemory     uint64 // bytes

	Pageins     uint64
	PageinsRate float64

	PageFaults     uint64
	PageFaultsRate float64

	DiskReadBytes  uint64
	DiskWriteBytes uint64
	DiskIORate     float64 // bytes/sec, read+write combined

	ContextSwitches     uint64
	ContextSwitchesRate float64

	MachSyscalls     uint64
	MachSyscallsRate float64
	BSDSyscalls      uint64
	BSDSyscallsRate  float64

	ThreadCount int

	MachMessages     uint64
	MachMessagesRate float64

	CPUInstructions       uint64
	CPUCycles             uint64
	InstructionsPerCycle  float64

	BilledEnergy     uint64
	BilledEnergyRate float64

	Wakeups     uint64
	WakeupsRate float64

	// RunnableTime and QoSInteractiveTime are cumulative host-native time
	// units (mach absolute time), per §3.
	RunnableTime         uint64
	RunnableTimeRate     float64
	QoSInteractiveTime   uint64
	QoSInteractiveRate   float64

	GPUTime     uint64 // cumulative, host-native time units
	GPUTimeRate float64

	ZombieChildren int

	State    ProcessState
	Priority int
}
