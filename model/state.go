package model

// ProcessState is the scheduler/lifecycle state of a sampled process.
type ProcessState int

const (
	StateUnknown ProcessState = iota
	StateIdle
	StateSleeping
	StateRunning
	StateStopped
	StateZombie
	StateStuck
	StateUninterruptible
	StateHalted
)

func (s ProcessState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSleeping:
		return "sleeping"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateZombie:
		return "zombie"
	case StateStuck:
		return "stuck"
	case StateUninterruptible:
		return "uninterruptible"
	case StateHalted:
		return "halted"
	default:
		return "unknown"
	}
}

// ParseProcessState maps a short kernel state code (as surfaced by
// gopsutil's process.Status(), e.g. "R", "S", "Z") to a ProcessState.
// Unrecognized codes map to StateUnknown rather than erroring — missing
// kernel fields become zero values, not absent ones.
func ParseProcessState(code string) ProcessState {
	switch code {
	case "R", "running":
		return StateRunning
	case "S", "sleep", "sleeping":
		return StateSleeping
	case "I", "idle":
		return StateIdle
	case "T", "stop", "stopped":
		return StateStopped
	case "Z", "zombie":
		return StateZombie
	case "stuck":
		return StateStuck
	case "U", "uninterruptible", "D":
		return StateUninterruptible
	case "W", "halted":
		return StateHalted
	default:
		return StateUnknown
	}
}
