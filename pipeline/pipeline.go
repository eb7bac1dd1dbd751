// Package pipeline wires the Sampler, Scorer, Rogue selector, Tracker
// and Store into the single cooperative tick spec.md §2 and §5
// describe: sample -> score -> select rogues -> tracker.update ->
// store writes, all on one goroutine, every interval. The overall
// shape — a struct owning every stage plus a ticking Run loop —
// follows xtop's engine.Engine/Ticker split in engine/engine.go and
// engine/ticker.go, generalized from Engine's single Tick() method
// into five named stages because this domain's components (unlike
// xtop's single collector) are independently testable packages.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/hluisi/pause-monitor-sub001/config"
	"github.com/hluisi/pause-monitor-sub001/model"
	"github.com/hluisi/pause-monitor-sub001/rogue"
	"github.com/hluisi/pause-monitor-sub001/scorer"
	"github.com/hluisi/pause-monitor-sub001/tracker"
)

// Sampler is the subset of sampler.Sampler the pipeline depends on,
// narrowed to an interface so tests can substitute a fake instead of
// driving a real macOS host.
type Sampler interface {
	Sample() ([]model.ProcessRaw, error)
	Close() error
}

// Pipeline owns one tick of the core (spec.md §2).
type Pipeline struct {
	cfg       config.Config
	samp      Sampler
	score     *scorer.Scorer
	rogues    *rogue.Selector
	track     *tracker.Tracker
	bootEpoch int64

	frames    FrameBroadcast
	forensics *ForensicsQueue
	health    HealthState

	lastRogueCount int
}

// New constructs a Pipeline from its already-validated stages. The
// forensics queue is shared with the tracker: the pipeline builds a
// tracker.ForensicsFunc that pushes onto its own ForensicsQueue rather
// than invoking an external callback directly, matching spec.md §9's
// "modeled as a message/channel from the pipeline task."
func New(cfg config.Config, samp Sampler, sc *scorer.Scorer, tr *tracker.Tracker, bootEpoch int64) *Pipeline {
	p := &Pipeline{
		cfg:       cfg,
		samp:      samp,
		score:     sc,
		rogues:    rogue.New(cfg.Sampling.RogueTopK),
		track:     tr,
		bootEpoch: bootEpoch,
		forensics: NewForensicsQueue(),
	}
	return p
}

// SetTracker attaches the Tracker after construction. The Tracker must
// be built with p.ForensicsFunc() as its forensics callback, which
// requires the Pipeline to already exist — callers therefore always
// go New() -> tracker.New(..., p.ForensicsFunc()) -> p.SetTracker(tr).
func (p *Pipeline) SetTracker(tr *tracker.Tracker) { p.track = tr }

// ForensicsFunc returns the callback the Tracker should be constructed
// with so its triggers land on this pipeline's ForensicsQueue.
func (p *Pipeline) ForensicsFunc() func(eventID int64, score model.ProcessScore, reason string) {
	return func(eventID int64, score model.ProcessScore, reason string) {
		p.forensics.Push(ForensicsEvent{EventID: eventID, Score: score, Reason: reason})
	}
}

// Forensics exposes the pipeline's forensics trigger queue to external
// collaborators (spec.md §6).
func (p *Pipeline) Forensics() *ForensicsQueue { return p.forensics }

// Frames exposes the latest-Frame broadcast slot to external
// collaborators (spec.md §6).
func (p *Pipeline) Frames() *FrameBroadcast { return &p.frames }

// HealthLevel returns the current debounced daemon health level
// (SPEC_FULL.md supplemental feature #2).
func (p *Pipeline) HealthLevel() model.Band { return p.health.Current() }

// LastRogueCount returns the number of rogues selected on the most
// recent Tick, for the daemon's rolling summary log.
func (p *Pipeline) LastRogueCount() int { return p.lastRogueCount }

// Tick runs one full pipeline pass: sample, score, select rogues,
// advance the tracker, publish the frame. An empty sample (enumeration
// failure) is treated as "no processes known" and the tracker is not
// advanced, per spec.md §4.1 Failure semantics.
func (p *Pipeline) Tick(ctx context.Context) (model.Frame, error) {
	now := time.Now()

	raws, err := p.samp.Sample()
	if err != nil {
		return model.Frame{Timestamp: now}, fmt.Errorf("sample: %w", err)
	}
	if len(raws) == 0 {
		frame := model.Frame{Timestamp: now}
		p.frames.Set(frame)
		return frame, nil
	}

	scores := p.score.Score(raws)
	frame := model.Frame{Timestamp: now, Processes: scores}

	selected := p.rogues.Select(scores, p.cfg.Bands.TrackingBand)
	p.lastRogueCount = len(selected)
	p.track.Update(ctx, selected, now)

	topBand := model.BandLow
	if top := frame.TopScore(); top != nil {
		topBand = top.Band
	}
	p.health.Update(topBand)

	p.frames.Set(frame)
	return frame, nil
}
