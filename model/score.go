package model

// Band is a coarse severity label assigned to a score.
type Band int

const (
	BandLow Band = iota
	BandMedium
	BandElevated
	BandHigh
	BandCritical
)

func (b Band) String() string {
	switch b {
	case BandLow:
		return "low"
	case BandMedium:
		return "medium"
	case BandElevated:
		return "elevated"
	case BandHigh:
		return "high"
	case BandCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Ordinal returns the band's position in the low < medium < elevated <
// high < critical ordering, for invariant checks like peak_band >=
// entry_band.
func (b Band) Ordinal() int { return int(b) }

// ParseBand is the inverse of String, used when reading a band column
// back out of the store.
func ParseBand(s string) Band {
	switch s {
	case "low":
		return BandLow
	case "medium":
		return BandMedium
	case "elevated":
		return BandElevated
	case "high":
		return BandHigh
	case "critical":
		return BandCritical
	default:
		return BandLow
	}
}

// Resource is one of the five axes the scorer computes a fair share for.
type Resource int

const (
	ResourceCPU Resource = iota
	ResourceGPU
	ResourceMemory
	ResourceDisk
	ResourceWakeups
)

func (r Resource) String() string {
	switch r {
	case ResourceCPU:
		return "cpu"
	case ResourceGPU:
		return "gpu"
	case ResourceMemory:
		return "memory"
	case ResourceDisk:
		return "disk"
	case ResourceWakeups:
		return "wakeups"
	default:
		return "unknown"
	}
}

// ParseResource is the inverse of String.
func ParseResource(s string) Resource {
	switch s {
	case "cpu":
		return ResourceCPU
	case "gpu":
		return ResourceGPU
	case "memory":
		return ResourceMemory
	case "disk":
		return ResourceDisk
	case "wakeups":
		return ResourceWakeups
	default:
		return ResourceCPU
	}
}

// ProcessScore is a ProcessRaw plus the scoring engine's outputs.
//
// Invariants (enforced by the scorer, which panics with
// ErrInvariantViolation on a breach):
//   - 0 <= Score <= 100
//   - Band == BandOf(Score)
//   - Disproportionality == the raw share of DominantResource
type ProcessScore struct {
	ProcessRaw

	CPUShare     float64
	GPUShare     float64
	MemShare     float64
	DiskShare    float64
	WakeupsShare float64

	Disproportionality float64
	DominantResource   Resource

	Score int
	Band  Band
}

// ShareFor returns the share value for the given resource axis.
func (p *ProcessScore) ShareFor(r Resource) float64 {
	switch r {
	case ResourceCPU:
		return p.CPUShare
	case ResourceGPU:
		return p.GPUShare
	case ResourceMemory:
		return p.MemShare
	case ResourceDisk:
		return p.DiskShare
	case ResourceWakeups:
		return p.WakeupsShare
	default:
		return 0
	}
}
