package scorer

import (
	"math"
	"testing"

	"github.com/hluisi/pause-monitor-sub001/config"
	"github.com/hluisi/pause-monitor-sub001/model"
)

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := New(config.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestScoreAllZeroIsLowBand(t *testing.T) {
	s := newTestScorer(t)
	out := s.Score([]model.ProcessRaw{{PID: 1, State: model.StateSleeping}})
	if len(out) != 1 {
		t.Fatalf("expected 1 score, got %d", len(out))
	}
	if out[0].Score != 0 {
		t.Errorf("score = %d, want 0", out[0].Score)
	}
	if out[0].Band != model.BandLow {
		t.Errorf("band = %v, want low", out[0].Band)
	}
}

func TestScoreInvariants(t *testing.T) {
	s := newTestScorer(t)
	raws := []model.ProcessRaw{
		{PID: 1, CPUPercent: 400, State: model.StateRunning},
		{PID: 2, CPUPercent: 5, State: model.StateRunning},
		{PID: 3, CPUPercent: 5, State: model.StateSleeping},
	}
	out := s.Score(raws)
	for _, p := range out {
		if p.Score < 0 || p.Score > 100 {
			t.Errorf("pid %d: score %d out of [0,100]", p.PID, p.Score)
		}
		expectBand := config.Default().Bands.Thresholds.BandOf(p.Score)
		if p.Band != expectBand {
			t.Errorf("pid %d: band %v != band_of(score) %v", p.PID, p.Band, expectBand)
		}
		if p.Disproportionality != p.ShareFor(p.DominantResource) {
			t.Errorf("pid %d: disproportionality %v != share of dominant resource %v", p.PID, p.Disproportionality, p.ShareFor(p.DominantResource))
		}
	}
}

func TestActiveCountNeverZero(t *testing.T) {
	s := newTestScorer(t)
	n := s.activeCount([]model.ProcessRaw{{State: model.StateIdle}, {State: model.StateIdle}})
	if n < 1 {
		t.Fatalf("activeCount = %d, want >= 1", n)
	}
}

// S1 — Fair distribution: two equal processes, rest zero.
func TestScenarioS1FairDistribution(t *testing.T) {
	s := newTestScorer(t)
	raws := []model.ProcessRaw{
		{PID: 1, CPUPercent: 50, ResidentMemory: 500_000_000, DiskIORate: 1_000, WakeupsRate: 10, State: model.StateRunning},
		{PID: 2, CPUPercent: 50, ResidentMemory: 500_000_000, DiskIORate: 1_000, WakeupsRate: 10, State: model.StateRunning},
	}
	out := s.Score(raws)
	for _, p := range out {
		if math.Abs(p.CPUShare-1.0) > 1e-9 {
			t.Errorf("pid %d: cpu_share = %v, want 1.0", p.PID, p.CPUShare)
		}
		if math.Abs(p.MemShare-1.0) > 1e-9 {
			t.Errorf("pid %d: mem_share = %v, want 1.0", p.PID, p.MemShare)
		}
		if math.Abs(p.DiskShare-1.0) > 1e-9 {
			t.Errorf("pid %d: disk_share = %v, want 1.0", p.PID, p.DiskShare)
		}
		if math.Abs(p.WakeupsShare-1.0) > 1e-9 {
			t.Errorf("pid %d: wakeups_share = %v, want 1.0", p.PID, p.WakeupsShare)
		}
		if p.GPUShare != 0 {
			t.Errorf("pid %d: gpu_share = %v, want 0", p.PID, p.GPUShare)
		}
		if p.DominantResource != model.ResourceWakeups {
			t.Errorf("pid %d: dominant = %v, want wakeups", p.PID, p.DominantResource)
		}
		if p.Band != model.BandMedium {
			t.Errorf("pid %d: band = %v, want medium (score ~23)", p.PID, p.Band)
		}
	}
}

// S2/S13 — 75x fair share on CPU only -> high band, score ~62.
func TestScenarioS2SeventyFiveX(t *testing.T) {
	s := newTestScorer(t)
	raws := make([]model.ProcessRaw, 100)
	raws[0] = model.ProcessRaw{PID: 1, CPUPercent: 75, State: model.StateRunning}
	for i := 1; i < 100; i++ {
		raws[i] = model.ProcessRaw{PID: i + 1, CPUPercent: 25.0 / 99, State: model.StateRunning}
	}
	out := s.Score(raws)
	top := out[0]
	if math.Abs(top.CPUShare-75.0) > 0.5 {
		t.Errorf("cpu_share = %v, want ~75", top.CPUShare)
	}
	if top.DominantResource != model.ResourceCPU {
		t.Errorf("dominant = %v, want cpu", top.DominantResource)
	}
	if top.Score < 60 || top.Score > 64 {
		t.Errorf("score = %d, want ~62", top.Score)
	}
	if top.Band != model.BandHigh {
		t.Errorf("band = %v, want high", top.Band)
	}
}

// S3/S14 — 200x fair share on CPU only -> critical band, score ~76.
// All 200 processes must clear the active-process filter (ActiveMinCPU)
// for activeCount to reach 200 — the other 199 sit right at the
// threshold so the dominant process's CPU overwhelmingly dominates the
// CPU total and fraction approaches 1.0, giving share approx 200.
func TestScenarioS3TwoHundredX(t *testing.T) {
	s := newTestScorer(t)
	raws := make([]model.ProcessRaw, 200)
	raws[0] = model.ProcessRaw{PID: 1, CPUPercent: 2000, State: model.StateRunning}
	for i := 1; i < 200; i++ {
		raws[i] = model.ProcessRaw{PID: i + 1, CPUPercent: 0.1, State: model.StateRunning}
	}
	out := s.Score(raws)
	top := out[0]
	if top.CPUShare < 190 || top.CPUShare > 200 {
		t.Errorf("cpu_share = %v, want approx 198 (approx 200x fair share)", top.CPUShare)
	}
	if top.DominantResource != model.ResourceCPU {
		t.Errorf("dominant = %v, want cpu", top.DominantResource)
	}
	if top.Score < 74 || top.Score > 78 {
		t.Errorf("score = %d, want ~76", top.Score)
	}
	if top.Band != model.BandCritical {
		t.Errorf("band = %v, want critical", top.Band)
	}
}

// S5 — zero total wakeups -> wakeups_share is 0 for everyone, no panic.
func TestScenarioS5ZeroTotalResource(t *testing.T) {
	s := newTestScorer(t)
	raws := []model.ProcessRaw{
		{PID: 1, CPUPercent: 10, WakeupsRate: 0, State: model.StateRunning},
		{PID: 2, CPUPercent: 20, WakeupsRate: 0, State: model.StateRunning},
	}
	out := s.Score(raws)
	for _, p := range out {
		if p.WakeupsShare != 0 {
			t.Errorf("pid %d: wakeups_share = %v, want 0", p.PID, p.WakeupsShare)
		}
	}
}

// Boundary #12 — sole resource consumer on an otherwise-idle system:
// active_count=1, share=1.0, bounded score.
func TestBoundarySoleConsumerIdleSystem(t *testing.T) {
	s := newTestScorer(t)
	raws := []model.ProcessRaw{
		{PID: 1, GPUTimeRate: 100, State: model.StateRunning},
	}
	out := s.Score(raws)
	top := out[0]
	if math.Abs(top.GPUShare-1.0) > 1e-9 {
		t.Fatalf("gpu_share = %v, want 1.0", top.GPUShare)
	}
	// total_weighted <= weight_for_gpu(3.0) => log2(3)*10 ~ 15.8 => low/medium
	if top.Score > 20 {
		t.Errorf("score = %d, want <= ~16 (bounded by log2(weight)*10)", top.Score)
	}
}

func TestScoreIsDeterministicAcrossRuns(t *testing.T) {
	s := newTestScorer(t)
	raws := []model.ProcessRaw{
		{PID: 1, CPUPercent: 30, ResidentMemory: 1 << 24, State: model.StateRunning},
		{PID: 2, CPUPercent: 5, State: model.StateSleeping},
	}
	first := s.Score(raws)
	second := s.Score(raws)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("non-deterministic score at index %d: %+v != %+v", i, first[i], second[i])
		}
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Bands.Thresholds.Medium = 50 // breaks medium < elevated
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for non-increasing band thresholds")
	}
}
