// Package config holds the flat, validated configuration the core
// pipeline consumes. Loading it from TOML on disk is the job of an
// external collaborator (spec.md §1 Out of scope); this package only
// owns the struct, its defaults, and its validation, the same split
// xtop's config.Default()/Load() makes minus the disk read.
package config

import (
	"fmt"
	"math"

	"github.com/hluisi/pause-monitor-sub001/model"
)

// Weights holds the per-resource severity weights (§4.2, §6).
type Weights struct {
	CPU     float64
	GPU     float64
	Memory  float64
	Disk    float64
	Wakeups float64
}

func (w Weights) forResource(r model.Resource) float64 {
	switch r {
	case model.ResourceCPU:
		return w.CPU
	case model.ResourceGPU:
		return w.GPU
	case model.ResourceMemory:
		return w.Memory
	case model.ResourceDisk:
		return w.Disk
	case model.ResourceWakeups:
		return w.Wakeups
	default:
		return 0
	}
}

// ForResource returns the configured weight for a resource axis.
func (w Weights) ForResource(r model.Resource) float64 { return w.forResource(r) }

// BandThresholds holds the integer score thresholds for medium,
// elevated, high and critical (§4.2). Low is implicitly 0.
type BandThresholds struct {
	Medium   int
	Elevated int
	High     int
	Critical int
}

// StateMultipliers maps a process state to the scorer's post-multiplier
// (§4.2 step 5).
type StateMultipliers map[model.ProcessState]float64

// Scoring groups everything the scorer (§4.2) needs.
type Scoring struct {
	Weights           Weights
	ActiveMinCPU      float64 // percent
	ActiveMinMemoryMiB float64 // binary MiB
	ActiveMinDiskIO    float64 // bytes/sec
	StateMultiplier   StateMultipliers
}

// Bands groups band thresholds and the tracker's band-related knobs
// (§4.4, §6).
type Bands struct {
	Thresholds                BandThresholds
	TrackingBand               model.Band
	ForensicsBand              model.Band
	MediumCheckpointSamples    int
	ElevatedCheckpointSamples int
}

// Sampling groups the sampler's cadence and the rogue selector's top-K
// (§4.1, §4.3, §6).
type Sampling struct {
	Interval  int // milliseconds
	RogueTopK int
}

// Config is the flat struct described in spec.md §6.
type Config struct {
	Scoring  Scoring
	Bands    Bands
	Sampling Sampling

	// DataDir is where the event store and supplemental tooling
	// (recorder files, PID file, rolling summary log — see
	// SPEC_FULL.md's supplemental-features section) write their files.
	// Its directory holds no other files owned by the core (§6).
	DataDir string
}

// Default returns the configuration table from spec.md §6.
func Default() Config {
	return Config{
		Scoring: Scoring{
			Weights: Weights{CPU: 1.0, GPU: 3.0, Memory: 1.0, Disk: 1.0, Wakeups: 2.0},
			ActiveMinCPU:       0.1,
			ActiveMinMemoryMiB: 10.0,
			ActiveMinDiskIO:    0.0,
			StateMultiplier: StateMultipliers{
				model.StateIdle:            0,
				model.StateSleeping:        0.5,
				model.StateRunning:         1.0,
				model.StateStopped:         0.5,
				model.StateZombie:          0,
				model.StateStuck:           1.5,
				model.StateUninterruptible: 1.0,
				model.StateHalted:          0,
				model.StateUnknown:         1.0,
			},
		},
		Bands: Bands{
			Thresholds: BandThresholds{Medium: 20, Elevated: 40, High: 50, Critical: 70},
			TrackingBand:            model.BandMedium,
			ForensicsBand:           model.BandCritical,
			MediumCheckpointSamples: 20,
			ElevatedCheckpointSamples: 10,
		},
		Sampling: Sampling{
			Interval:  300,
			RogueTopK: 15,
		},
		DataDir: "",
	}
}

// Validate checks the invariants spec.md §4.2 and §7 require at
// construction time: thresholds strictly increasing, weights finite and
// non-negative, checkpoint sample counts >= 1. It wraps
// model.ErrConfigInvalid so callers can errors.Is against the general
// kind.
func (c Config) Validate() error {
	t := c.Bands.Thresholds
	if !(0 < t.Medium && t.Medium < t.Elevated && t.Elevated < t.High && t.High < t.Critical) {
		return fmt.Errorf("band thresholds must be strictly increasing (0 < medium < elevated < high < critical), got %+v: %w", t, model.ErrConfigInvalid)
	}
	if t.Critical > 100 {
		return fmt.Errorf("critical threshold %d exceeds max score 100: %w", t.Critical, model.ErrConfigInvalid)
	}
	for name, w := range map[string]float64{
		"cpu": c.Scoring.Weights.CPU, "gpu": c.Scoring.Weights.GPU,
		"memory": c.Scoring.Weights.Memory, "disk": c.Scoring.Weights.Disk,
		"wakeups": c.Scoring.Weights.Wakeups,
	} {
		if w < 0 || isNaNOrInf(w) {
			return fmt.Errorf("weight %q must be finite and non-negative, got %v: %w", name, w, model.ErrConfigInvalid)
		}
	}
	if c.Bands.MediumCheckpointSamples < 1 {
		return fmt.Errorf("medium_checkpoint_samples must be >= 1, got %d: %w", c.Bands.MediumCheckpointSamples, model.ErrConfigInvalid)
	}
	if c.Bands.ElevatedCheckpointSamples < 1 {
		return fmt.Errorf("elevated_checkpoint_samples must be >= 1, got %d: %w", c.Bands.ElevatedCheckpointSamples, model.ErrConfigInvalid)
	}
	if c.Sampling.Interval <= 0 {
		return fmt.Errorf("sampling interval_ms must be positive, got %d: %w", c.Sampling.Interval, model.ErrConfigInvalid)
	}
	if c.Sampling.RogueTopK < 1 {
		return fmt.Errorf("rogue_top_k must be >= 1, got %d: %w", c.Sampling.RogueTopK, model.ErrConfigInvalid)
	}
	return nil
}

func isNaNOrInf(f float64) bool {
	return math.IsNaN(f) || math.IsInf(f, 0)
}

// CheckpointInterval returns the checkpoint cadence (in samples) for a
// band, per §4.4: low never checkpoints, medium/elevated use their
// configured sample counts, high and critical checkpoint every sample.
func (b Bands) CheckpointInterval(band model.Band) int {
	switch band {
	case model.BandMedium:
		return b.MediumCheckpointSamples
	case model.BandElevated:
		return b.ElevatedCheckpointSamples
	case model.BandHigh, model.BandCritical:
		return 1
	default:
		return 0 // low: never
	}
}

// BandThreshold returns the minimum integer score for a band, used by
// BandOf. Low's threshold is 0. The tracker's forensics_band check
// (§4.4) compares band ordinals instead, which orders bands the same
// way because Validate requires strictly increasing thresholds.
func (t BandThresholds) BandThreshold(b model.Band) int {
	switch b {
	case model.BandMedium:
		return t.Medium
	case model.BandElevated:
		return t.Elevated
	case model.BandHigh:
		return t.High
	case model.BandCritical:
		return t.Critical
	default:
		return 0
	}
}

// BandOf returns the highest band whose threshold is <= score (§4.2).
func (t BandThresholds) BandOf(score int) model.Band {
	band := model.BandLow
	for _, b := range []model.Band{model.BandMedium, model.BandElevated, model.BandHigh, model.BandCritical} {
		if score >= t.BandThreshold(b) {
			band = b
		}
	}
	return band
}
