// Package sampler implements spec.md §4.1: a cooperative,
// single-threaded-from-the-caller's-perspective producer of
// model.ProcessRaw frames.
//
// Process enumeration and per-pid counter reads are grounded on
// github.com/shirou/gopsutil/v4/process, the same library
// wavetermdev/waveterm's pkg/pstrack polls every tick (see
// pstrack.go's (*ProcessTable).update). Rate computation — converting
// gopsutil's cumulative counters into per-second rates using the
// previous-tick delta — follows the shape of xtop's
// engine/rates.go/computeProcessRates, adapted from a whole-frame
// rate pass to a per-process incremental one since the sampler (not a
// separate rates stage) owns the previous-counter map here.
package sampler

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sys/unix"

	"github.com/hluisi/pause-monitor-sub001/model"
	"github.com/hluisi/pause-monitor-sub001/util"
)

// counters is the subset of cumulative kernel state the sampler needs
// to remember between ticks to compute rates. Every field not
// available from gopsutil on Darwin (pageins, mach/BSD syscalls, mach
// messages, instructions/cycles, billed energy, wakeups, runnable/QoS
// time, GPU time) is carried as zero — a missing kernel field maps to
// zero, never to "absent" (spec.md §9 Design Notes).
type counters struct {
	at          time.Time
	cpuSeconds  float64
	diskBytes   uint64
	ctxSwitches uint64
	stale       bool // seen zero ticks ago if false; one tick retained before eviction
}

// Sampler produces model.ProcessRaw frames at the caller's cadence. It
// is not itself a ticker — spec.md §4.1 only requires a blocking
// Sample() call; the pipeline package drives the cadence.
type Sampler struct {
	prev map[int]counters
}

// New constructs a Sampler. It returns model.ErrSamplerUnavailable if
// the host process-listing facility cannot be probed at all — e.g. no
// processes are enumerable even for the caller's own pid, which on a
// sane host never happens and signals a broken sandbox/permission
// model rather than a transient per-pid failure.
func New() (*Sampler, error) {
	if _, err := process.Pids(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrSamplerUnavailable, err)
	}
	return &Sampler{prev: make(map[int]counters)}, nil
}

// Close releases any OS handles held by the sampler. Safe to call
// during shutdown and safe to call more than once; gopsutil holds no
// long-lived handles of its own; per-pid state is simply dropped.
func (s *Sampler) Close() error {
	s.prev = nil
	return nil
}

// Sample enumerates the live process set and returns one ProcessRaw per
// process that yielded a full record. A process that fails any required
// read (exited mid-sample, permission denied) is dropped silently —
// partial successes are never admitted (spec.md §4.1 step 2).
//
// Enumeration failure itself is not fatal: it returns an empty slice and
// the error, and the caller (the pipeline) must treat an empty list as
// "no processes known, do not advance trackers" rather than as "every
// process vanished."
func (s *Sampler) Sample() ([]model.ProcessRaw, error) {
	now := time.Now()

	pids, err := process.Pids()
	if err != nil {
		return nil, fmt.Errorf("enumerate processes: %w", err)
	}

	seen := make(map[int]struct{}, len(pids))
	raws := make([]model.ProcessRaw, 0, len(pids))

	for _, pid32 := range pids {
		pid := int(pid32)
		proc, err := process.NewProcess(pid32)
		if err != nil {
			continue // exited between enumeration and read
		}
		raw, ok := s.readOne(proc, pid, now)
		if !ok {
			continue
		}
		seen[pid] = struct{}{}
		raws = append(raws, raw)
	}

	s.evictStale(seen)
	return raws, nil
}

// readOne builds one ProcessRaw, returning ok=false if any required
// field cannot be read at all (the process exited mid-sample or access
// was denied). Fields gopsutil cannot source on this platform are
// filled with zero rather than causing the whole record to be dropped.
func (s *Sampler) readOne(proc *process.Process, pid int, now time.Time) (model.ProcessRaw, bool) {
	name, err := proc.Name()
	if err != nil {
		return model.ProcessRaw{}, false
	}

	times, err := proc.Times()
	if err != nil {
		return model.ProcessRaw{}, false
	}
	cpuSeconds := times.User + times.System

	statuses, err := proc.Status()
	if err != nil {
		return model.ProcessRaw{}, false
	}
	state := model.StateUnknown
	if len(statuses) > 0 {
		state = model.ParseProcessState(statuses[0])
	}

	raw := model.ProcessRaw{
		PID:       pid,
		Command:   name,
		SampledAt: now,
		State:     state,
	}

	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		raw.ResidentMemory = mem.RSS
		raw.PeakMemory = mem.RSS // gopsutil exposes no separate HWM on darwin
	}

	if nThreads, err := proc.NumThreads(); err == nil {
		raw.ThreadCount = int(nThreads)
	}

	if nice, err := proc.Nice(); err == nil {
		raw.Priority = int(nice)
	}

	var diskBytes uint64
	if io, err := proc.IOCounters(); err == nil && io != nil {
		raw.DiskReadBytes = io.ReadBytes
		raw.DiskWriteBytes = io.WriteBytes
		diskBytes = io.ReadBytes + io.WriteBytes
	}

	var ctxSwitches uint64
	if ctx, err := proc.NumCtxSwitches(); err == nil && ctx != nil {
		ctxSwitches = uint64(ctx.Voluntary + ctx.Involuntary)
		raw.ContextSwitches = ctxSwitches
	}

	prev, hadPrev := s.prev[pid]
	dt := now.Sub(prev.at)
	if hadPrev {
		raw.CPUPercent = util.RateF(prev.cpuSeconds, cpuSeconds, dt) * 100
		raw.DiskIORate = util.Rate(prev.diskBytes, diskBytes, dt)
		raw.ContextSwitchesRate = util.Rate(prev.ctxSwitches, ctxSwitches, dt)
	}
	// On first observation every rate stays zero (spec.md §4.1 step 3,
	// §9 Design Notes #3): a just-spawned process cannot be flagged
	// rogue until its second tick.

	s.prev[pid] = counters{
		at:          now,
		cpuSeconds:  cpuSeconds,
		diskBytes:   diskBytes,
		ctxSwitches: ctxSwitches,
	}

	return raw, true
}

// evictStale drops previous-counter entries for pids absent for two
// consecutive ticks. A pid missing from `seen` this tick is retained
// for one more tick (to absorb sampling jitter, per spec.md §4.1 step
// 4) by marking it rather than deleting it immediately; it is removed
// the tick after that if still unseen.
func (s *Sampler) evictStale(seen map[int]struct{}) {
	for pid, c := range s.prev {
		if _, ok := seen[pid]; ok {
			continue
		}
		if c.stale {
			delete(s.prev, pid)
			continue
		}
		c.stale = true
		s.prev[pid] = c
	}
}

// BootEpoch returns the kernel-reported boot time in seconds since the
// epoch (spec.md §6), read via the "kern.boottime" sysctl. It is read
// once at startup by the pipeline and stored in daemon_state.
//
// "kern.boottime" returns a struct timeval (seconds, microseconds);
// grounded on other_examples' darwin sysctl collector, which reads
// process/memory facts the same way via golang.org/x/sys/unix's raw
// sysctl wrappers rather than cgo.
func BootEpoch() (int64, error) {
	raw, err := unix.SysctlRaw("kern.boottime")
	if err != nil {
		return 0, fmt.Errorf("sysctl kern.boottime: %w", err)
	}
	if len(raw) < 8 {
		return 0, fmt.Errorf("sysctl kern.boottime: unexpected length %d", len(raw))
	}
	sec := int64(binary.LittleEndian.Uint64(raw[:8]))
	return sec, nil
}
