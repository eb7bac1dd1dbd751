package store

import (
	"time"

	"github.com/hluisi/pause-monitor-sub001/model"
)

// snapshotRow flattens a ProcessSnapshot (and its embedded ProcessScore
// and ProcessRaw) to columns, per spec.md §3: "flattened to columns so
// snapshot queries need no JSON parsing." It also serves as the inverse
// scan target for GetSnapshotsForEvent, so every field written by
// snapshotRowFrom is read back by toModel.
type snapshotRow struct {
	SnapshotID   int64   `db:"snapshot_id"`
	EventID      int64   `db:"event_id"`
	SnapshotType string  `db:"snapshot_type"`
	CapturedAt   float64 `db:"captured_at"`

	PID                 int     `db:"pid"`
	Command             string  `db:"command"`
	SampledAt           float64 `db:"sampled_at"`
	CPUPercent          float64 `db:"cpu_percent"`
	ResidentMemory      uint64  `db:"resident_memory"`
	PeakMemory          uint64  `db:"peak_memory"`
	Pageins             uint64  `db:"pageins"`
	PageinsRate         float64 `db:"pageins_rate"`
	PageFaults          uint64  `db:"page_faults"`
	PageFaultsRate      float64 `db:"page_faults_rate"`
	DiskReadBytes       uint64  `db:"disk_read_bytes"`
	DiskWriteBytes      uint64  `db:"disk_write_bytes"`
	DiskIORate          float64 `db:"disk_io_rate"`
	ContextSwitches     uint64  `db:"context_switches"`
	ContextSwitchesRate float64 `db:"context_switches_rate"`
	MachSyscalls        uint64  `db:"mach_syscalls"`
	MachSyscallsRate    float64 `db:"mach_syscalls_rate"`
	BSDSyscalls         uint64  `db:"bsd_syscalls"`
	BSDSyscallsRate     float64 `db:"bsd_syscalls_rate"`
	ThreadCount         int     `db:"thread_count"`
	MachMessages        uint64  `db:"mach_messages"`
	MachMessagesRate    float64 `db:"mach_messages_rate"`
	CPUInstructions     uint64  `db:"cpu_instructions"`
	CPUCycles           uint64  `db:"cpu_cycles"`
	InstructionsPerCycle float64 `db:"instructions_per_cycle"`
	BilledEnergy        uint64  `db:"billed_energy"`
	BilledEnergyRate    float64 `db:"billed_energy_rate"`
	Wakeups             uint64  `db:"wakeups"`
	WakeupsRate         float64 `db:"wakeups_rate"`
	RunnableTime        uint64  `db:"runnable_time"`
	RunnableTimeRate    float64 `db:"runnable_time_rate"`
	QoSInteractiveTime     uint64  `db:"qos_interactive_time"`
	QoSInteractiveTimeRate float64 `db:"qos_interactive_time_rate"`
	GPUTime             uint64  `db:"gpu_time"`
	GPUTimeRate         float64 `db:"gpu_time_rate"`
	ZombieChildren      int     `db:"zombie_children"`
	State               string  `db:"state"`
	Priority            int     `db:"priority"`

	CPUShare           float64 `db:"cpu_share"`
	GPUShare           float64 `db:"gpu_share"`
	MemShare           float64 `db:"mem_share"`
	DiskShare          float64 `db:"disk_share"`
	WakeupsShare       float64 `db:"wakeups_share"`
	Disproportionality float64 `db:"disproportionality"`
	DominantResource   string  `db:"dominant_resource"`
	Score              int     `db:"score"`
	Band               string  `db:"band"`
}

const insertSnapshotSQL = `
INSERT INTO process_snapshots(
	event_id, snapshot_type, captured_at,
	pid, command, sampled_at, cpu_percent, resident_memory, peak_memory,
	pageins, pageins_rate, page_faults, page_faults_rate,
	disk_read_bytes, disk_write_bytes, disk_io_rate,
	context_switches, context_switches_rate,
	mach_syscalls, mach_syscalls_rate, bsd_syscalls, bsd_syscalls_rate,
	thread_count, mach_messages, mach_messages_rate,
	cpu_instructions, cpu_cycles, instructions_per_cycle,
	billed_energy, billed_energy_rate, wakeups, wakeups_rate,
	runnable_time, runnable_time_rate, qos_interactive_time, qos_interactive_time_rate,
	gpu_time, gpu_time_rate, zombie_children, state, priority,
	cpu_share, gpu_share, mem_share, disk_share, wakeups_share,
	disproportionality, dominant_resource, score, band
) VALUES (
	:event_id, :snapshot_type, :captured_at,
	:pid, :command, :sampled_at, :cpu_percent, :resident_memory, :peak_memory,
	:pageins, :pageins_rate, :page_faults, :page_faults_rate,
	:disk_read_bytes, :disk_write_bytes, :disk_io_rate,
	:context_switches, :context_switches_rate,
	:mach_syscalls, :mach_syscalls_rate, :bsd_syscalls, :bsd_syscalls_rate,
	:thread_count, :mach_messages, :mach_messages_rate,
	:cpu_instructions, :cpu_cycles, :instructions_per_cycle,
	:billed_energy, :billed_energy_rate, :wakeups, :wakeups_rate,
	:runnable_time, :runnable_time_rate, :qos_interactive_time, :qos_interactive_time_rate,
	:gpu_time, :gpu_time_rate, :zombie_children, :state, :priority,
	:cpu_share, :gpu_share, :mem_share, :disk_share, :wakeups_share,
	:disproportionality, :dominant_resource, :score, :band
)`

const selectSnapshotsByEventSQL = `
SELECT
	snapshot_id, event_id, snapshot_type, captured_at,
	pid, command, sampled_at, cpu_percent, resident_memory, peak_memory,
	pageins, pageins_rate, page_faults, page_faults_rate,
	disk_read_bytes, disk_write_bytes, disk_io_rate,
	context_switches, context_switches_rate,
	mach_syscalls, mach_syscalls_rate, bsd_syscalls, bsd_syscalls_rate,
	thread_count, mach_messages, mach_messages_rate,
	cpu_instructions, cpu_cycles, instructions_per_cycle,
	billed_energy, billed_energy_rate, wakeups, wakeups_rate,
	runnable_time, runnable_time_rate, qos_interactive_time, qos_interactive_time_rate,
	gpu_time, gpu_time_rate, zombie_children, state, priority,
	cpu_share, gpu_share, mem_share, disk_share, wakeups_share,
	disproportionality, dominant_resource, score, band
FROM process_snapshots WHERE event_id = ? ORDER BY snapshot_id ASC`

func snapshotRowFrom(snap model.ProcessSnapshot) snapshotRow {
	s := snap.Score
	r := s.ProcessRaw
	return snapshotRow{
		EventID:      snap.EventID,
		SnapshotType: snap.Type.String(),
		CapturedAt:   float64(snap.CapturedAt.UnixNano()) / 1e9,

		PID:                    r.PID,
		Command:                r.Command,
		SampledAt:              float64(r.SampledAt.UnixNano()) / 1e9,
		CPUPercent:             r.CPUPercent,
		ResidentMemory:         r.ResidentMemory,
		PeakMemory:             r.PeakMemory,
		Pageins:                r.Pageins,
		PageinsRate:            r.PageinsRate,
		PageFaults:             r.PageFaults,
		PageFaultsRate:         r.PageFaultsRate,
		DiskReadBytes:          r.DiskReadBytes,
		DiskWriteBytes:         r.DiskWriteBytes,
		DiskIORate:             r.DiskIORate,
		ContextSwitches:        r.ContextSwitches,
		ContextSwitchesRate:    r.ContextSwitchesRate,
		MachSyscalls:           r.MachSyscalls,
		MachSyscallsRate:       r.MachSyscallsRate,
		BSDSyscalls:            r.BSDSyscalls,
		BSDSyscallsRate:        r.BSDSyscallsRate,
		ThreadCount:            r.ThreadCount,
		MachMessages:           r.MachMessages,
		MachMessagesRate:       r.MachMessagesRate,
		CPUInstructions:        r.CPUInstructions,
		CPUCycles:              r.CPUCycles,
		InstructionsPerCycle:   r.InstructionsPerCycle,
		BilledEnergy:           r.BilledEnergy,
		BilledEnergyRate:       r.BilledEnergyRate,
		Wakeups:                r.Wakeups,
		WakeupsRate:            r.WakeupsRate,
		RunnableTime:           r.RunnableTime,
		RunnableTimeRate:       r.RunnableTimeRate,
		QoSInteractiveTime:     r.QoSInteractiveTime,
		QoSInteractiveTimeRate: r.QoSInteractiveRate,
		GPUTime:                r.GPUTime,
		GPUTimeRate:            r.GPUTimeRate,
		ZombieChildren:         r.ZombieChildren,
		State:                  r.State.String(),
		Priority:               r.Priority,

		CPUShare:           s.CPUShare,
		GPUShare:           s.GPUShare,
		MemShare:           s.MemShare,
		DiskShare:          s.DiskShare,
		WakeupsShare:       s.WakeupsShare,
		Disproportionality: s.Disproportionality,
		DominantResource:   s.DominantResource.String(),
		Score:              s.Score,
		Band:               s.Band.String(),
	}
}

// toModel reconstructs the ProcessSnapshot (embedded ProcessScore and
// ProcessRaw) a snapshotRow was flattened from — the inverse of
// snapshotRowFrom, giving the store a full round-trip path for the
// scoring fields and raw metrics it persists.
func (r snapshotRow) toModel() model.ProcessSnapshot {
	raw := model.ProcessRaw{
		PID:                  r.PID,
		Command:              r.Command,
		SampledAt:            time.Unix(0, int64(r.SampledAt*1e9)).UTC(),
		CPUPercent:           r.CPUPercent,
		ResidentMemory:       r.ResidentMemory,
		PeakMemory:           r.PeakMemory,
		Pageins:              r.Pageins,
		PageinsRate:          r.PageinsRate,
		PageFaults:           r.PageFaults,
		PageFaultsRate:       r.PageFaultsRate,
		DiskReadBytes:        r.DiskReadBytes,
		DiskWriteBytes:       r.DiskWriteBytes,
		DiskIORate:           r.DiskIORate,
		ContextSwitches:      r.ContextSwitches,
		ContextSwitchesRate:  r.ContextSwitchesRate,
		MachSyscalls:         r.MachSyscalls,
		MachSyscallsRate:     r.MachSyscallsRate,
		BSDSyscalls:          r.BSDSyscalls,
		BSDSyscallsRate:      r.BSDSyscallsRate,
		ThreadCount:          r.ThreadCount,
		MachMessages:         r.MachMessages,
		MachMessagesRate:     r.MachMessagesRate,
		CPUInstructions:      r.CPUInstructions,
		CPUCycles:            r.CPUCycles,
		InstructionsPerCycle: r.InstructionsPerCycle,
		BilledEnergy:         r.BilledEnergy,
		BilledEnergyRate:     r.BilledEnergyRate,
		Wakeups:              r.Wakeups,
		WakeupsRate:          r.WakeupsRate,
		RunnableTime:         r.RunnableTime,
		RunnableTimeRate:     r.RunnableTimeRate,
		QoSInteractiveTime:   r.QoSInteractiveTime,
		QoSInteractiveRate:   r.QoSInteractiveTimeRate,
		GPUTime:              r.GPUTime,
		GPUTimeRate:          r.GPUTimeRate,
		ZombieChildren:       r.ZombieChildren,
		State:                model.ParseProcessState(r.State),
		Priority:             r.Priority,
	}

	score := model.ProcessScore{
		ProcessRaw:         raw,
		CPUShare:           r.CPUShare,
		GPUShare:           r.GPUShare,
		MemShare:           r.MemShare,
		DiskShare:          r.DiskShare,
		WakeupsShare:       r.WakeupsShare,
		Disproportionality: r.Disproportionality,
		DominantResource:   model.ParseResource(r.DominantResource),
		Score:              r.Score,
		Band:               model.ParseBand(r.Band),
	}

	return model.ProcessSnapshot{
		SnapshotID: r.SnapshotID,
		EventID:    r.EventID,
		CapturedAt: time.Unix(0, int64(r.CapturedAt*1e9)).UTC(),
		Type:       model.ParseSnapshotType(r.SnapshotType),
		Score:      score,
	}
}
