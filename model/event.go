package model

import "time"

// ProcessEvent is the durable record of one process crossing into and
// remaining in a tracked band (§3). ExitTime is the zero time while the
// event is open.
type ProcessEvent struct {
	EventID   int64
	PID       int
	Command   string
	BootEpoch int64

	EntryTime time.Time
	ExitTime  time.Time // zero value means open

	EntryBand Band
	PeakBand  Band
	PeakScore int

	PeakSnapshotID int64 // 0 means none recorded yet
	PeakCapturedAt time.Time
}

// Open reports whether the event has not yet been closed.
func (e *ProcessEvent) Open() bool {
	return e.ExitTime.IsZero()
}

// SnapshotType distinguishes the three moments a ProcessSnapshot can be
// taken at (§3, §4.5).
type SnapshotType int

const (
	SnapshotEntry SnapshotType = iota
	SnapshotCheckpoint
	SnapshotExit
)

func (t SnapshotType) String() string {
	switch t {
	case SnapshotEntry:
		return "entry"
	case SnapshotCheckpoint:
		return "checkpoint"
	case SnapshotExit:
		return "exit"
	default:
		return "unknown"
	}
}

// ParseSnapshotType is the inverse of String.
func ParseSnapshotType(s string) SnapshotType {
	switch s {
	case "entry":
		return SnapshotEntry
	case "exit":
		return SnapshotExit
	default:
		return SnapshotCheckpoint
	}
}

// ProcessSnapshot is a full ProcessScore captured at entry, checkpoint,
// or exit. EventID cascades on delete with its parent ProcessEvent.
type ProcessSnapshot struct {
	SnapshotID int64
	EventID    int64
	CapturedAt time.Time
	Type       SnapshotType
	Score      ProcessScore
}

// DaemonState is the key/value row recording boot epoch and active
// schema version; the only non-data lifecycle state in the store.
type DaemonState struct {
	BootEpoch     int64
	SchemaVersion int
}
