// Package scorer implements spec.md §4.2: mapping a list of
// model.ProcessRaw to a list of model.ProcessScore. The fair-share math
// and the weighted-log severity curve are new to this spec, but the
// shape of the component — a validated constructor plus a pure
// transform function over one frame at a time — follows
// engine/scoring.go's weightedDomainScore/domainConfidence pair in the
// teacher: slot weights folded against per-evidence strength there,
// resource weights folded against per-process share here.
package scorer

import (
	"fmt"
	"math"
	"sort"

	"github.com/hluisi/pause-monitor-sub001/config"
	"github.com/hluisi/pause-monitor-sub001/model"
)

var allResources = []model.Resource{
	model.ResourceCPU, model.ResourceGPU, model.ResourceMemory,
	model.ResourceDisk, model.ResourceWakeups,
}

// Scorer converts a frame of ProcessRaw into ProcessScore. It is
// stateless across frames — every field it reads comes from the frame
// passed to Score.
type Scorer struct {
	cfg config.Config
}

// New validates cfg and constructs a Scorer. It mirrors the validation
// xtop's analysis constructors perform on weight/threshold tables before
// ever touching a frame — see spec.md §4.2 Validation and §7
// ConfigInvalid.
func New(cfg config.Config) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg}, nil
}

// Score computes one ProcessScore per input ProcessRaw.
func (s *Scorer) Score(raws []model.ProcessRaw) []model.ProcessScore {
	activeCount := s.activeCount(raws)
	totals := s.resourceTotals(raws)
	fairShare := 1.0 / float64(activeCount)

	out := make([]model.ProcessScore, len(raws))
	for i, raw := range raws {
		out[i] = s.scoreOne(raw, totals, fairShare)
	}
	return out
}

// activeCount returns max(1, count of processes matching the active
// filter), per spec.md §4.2 — the floor of 1 prevents division by zero
// on an idle system.
func (s *Scorer) activeCount(raws []model.ProcessRaw) int {
	n := 0
	minMemBytes := s.cfg.Scoring.ActiveMinMemoryMiB * (1 << 20)
	for _, r := range raws {
		if r.State == model.StateIdle {
			continue
		}
		if r.CPUPercent >= s.cfg.Scoring.ActiveMinCPU {
			n++
			continue
		}
		if float64(r.ResidentMemory) >= minMemBytes {
			n++
			continue
		}
		// Strict '>' so a zero default still qualifies any activity at
		// all (spec.md §9 Open Question #1: intentional for the
		// default, inconsistent with CPU/memory's '>=' for a nonzero
		// threshold — the source's behavior is adopted as-is).
		if r.DiskIORate > s.cfg.Scoring.ActiveMinDiskIO {
			n++
			continue
		}
	}
	if n < 1 {
		return 1
	}
	return n
}

type resourceTotals [5]float64

func resourceValue(r model.ProcessRaw, res model.Resource) float64 {
	switch res {
	case model.ResourceCPU:
		return r.CPUPercent
	case model.ResourceGPU:
		return r.GPUTimeRate
	case model.ResourceMemory:
		return float64(r.ResidentMemory)
	case model.ResourceDisk:
		return r.DiskIORate
	case model.ResourceWakeups:
		return r.WakeupsRate
	default:
		return 0
	}
}

// resourceTotals sums each resource axis over every ProcessRaw in the
// frame — including inactive ones (spec.md §4.2 step 1: "not just
// active ones").
func (s *Scorer) resourceTotals(raws []model.ProcessRaw) resourceTotals {
	var totals resourceTotals
	for _, r := range raws {
		for i, res := range allResources {
			totals[i] += resourceValue(r, res)
		}
	}
	return totals
}

func (s *Scorer) scoreOne(raw model.ProcessRaw, totals resourceTotals, fairShare float64) model.ProcessScore {
	score := model.ProcessScore{ProcessRaw: raw}

	var shares [5]float64
	for i, res := range allResources {
		total := totals[i]
		var fraction float64
		if total > 0 {
			fraction = resourceValue(raw, res) / total
		}
		var share float64
		if fairShare > 0 {
			share = fraction / fairShare
		}
		shares[i] = share
	}
	score.CPUShare = shares[0]
	score.GPUShare = shares[1]
	score.MemShare = shares[2]
	score.DiskShare = shares[3]
	score.WakeupsShare = shares[4]

	dominant, disproportionality, totalWeighted := s.dominantResource(shares)
	score.DominantResource = dominant
	score.Disproportionality = disproportionality

	rawScore := 0.0
	if totalWeighted > 1.0 {
		rawScore = math.Log2(totalWeighted) * 10.0
	}
	multiplier := s.cfg.Scoring.StateMultiplier[raw.State]
	finalScore := int(rawScore * multiplier) // truncate, per §4.2 step 6
	if finalScore < 0 {
		finalScore = 0
	}
	if finalScore > 100 {
		finalScore = 100
	}
	score.Score = finalScore
	score.Band = s.cfg.Bands.Thresholds.BandOf(finalScore)

	if score.Score < 0 || score.Score > 100 || score.Band != s.cfg.Bands.Thresholds.BandOf(score.Score) {
		panic(fmt.Errorf("%w: score=%d band=%s", model.ErrInvariantViolation, score.Score, score.Band))
	}

	return score
}

// dominantResource returns the resource with the maximal weighted
// contribution share*weight, its raw (unweighted) share, and the sum of
// every resource's weighted contribution (spec.md §4.2 steps 2-3).
// Ties are broken by allResources order (cpu, gpu, memory, disk,
// wakeups), matching the deterministic iteration used everywhere else
// in this package.
func (s *Scorer) dominantResource(shares [5]float64) (model.Resource, float64, float64) {
	w := s.cfg.Scoring.Weights
	weighted := [5]float64{
		shares[0] * w.CPU,
		shares[1] * w.GPU,
		shares[2] * w.Memory,
		shares[3] * w.Disk,
		shares[4] * w.Wakeups,
	}

	bestIdx := 0
	total := 0.0
	for i, wc := range weighted {
		total += wc
		if wc > weighted[bestIdx] {
			bestIdx = i
		}
	}
	return allResources[bestIdx], shares[bestIdx], total
}

// sortByScoreDesc is a small shared helper used by the rogue selector;
// kept here because it operates purely on the Scorer's output type.
func sortByScoreDesc(scores []model.ProcessScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
}

// SortByScoreDesc exposes sortByScoreDesc for downstream packages.
func SortByScoreDesc(scores []model.ProcessScore) { sortByScoreDesc(scores) }
