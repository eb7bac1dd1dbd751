// Package tracker implements spec.md §4.4: the stateful per-pid event
// lifecycle sitting between the rogue selector and the store. The
// has-been-forensicsed flag folded into TrackedProcess, rather than a
// derived recomputation on every tick, is grounded on xtop's
// engine/alertstate.go AlertState, which keeps the same kind of sticky
// boolean so a condition fires exactly once per crossing instead of
// once per tick spent above threshold.
package tracker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hluisi/pause-monitor-sub001/config"
	"github.com/hluisi/pause-monitor-sub001/model"
)

// Store is the subset of the event store the tracker drives. It is an
// interface here so tracker tests can run against a fake without an
// on-disk database, the same separation xtop's engine package keeps
// between its collector interface and collector/process.go's concrete
// implementation.
type Store interface {
	CreateEvent(ctx context.Context, event model.ProcessEvent) (int64, error)
	InsertSnapshot(ctx context.Context, snap model.ProcessSnapshot) (int64, error)
	UpdateEventPeak(ctx context.Context, eventID int64, peakScore int, peakBand model.Band, peakSnapshotID int64, peakCapturedAt time.Time) error
	CloseEvent(ctx context.Context, eventID int64, exitTime time.Time) error
	GetOpenEvents(ctx context.Context, bootEpoch int64) ([]model.ProcessEvent, error)
}

// ForensicsFunc is the fire-and-forget forensics collaborator callback
// (spec.md §6). The tracker runs it on its own goroutine, never awaits
// it, and recovers and logs any panic it raises.
type ForensicsFunc func(eventID int64, score model.ProcessScore, reason string)

// TrackedProcess is the in-memory state the tracker keeps per tracked
// pid (spec.md §4.4).
type TrackedProcess struct {
	EventID                int64
	PID                    int
	PeakScore              int
	PeakBand               model.Band
	PeakSnapshotID         int64
	SamplesSinceCheckpoint int
	Forensicsed            bool
}

// Tracker owns the per-pid event lifecycle across bands. It is not
// safe for concurrent use; spec.md §5 requires a single cooperative
// caller driving sample -> score -> select -> tracker.update -> store.
type Tracker struct {
	cfg       config.Config
	store     Store
	bootEpoch int64
	forensics ForensicsFunc

	tracked map[int]*TrackedProcess
}

// New constructs a Tracker. It does not itself call RestoreFromStore;
// callers invoke that once after construction, mirroring xtop's
// daemon.go split between building the engine and loading its prior
// state.
func New(cfg config.Config, store Store, bootEpoch int64, forensics ForensicsFunc) *Tracker {
	return &Tracker{
		cfg:       cfg,
		store:     store,
		bootEpoch: bootEpoch,
		forensics: forensics,
		tracked:   make(map[int]*TrackedProcess),
	}
}

// RestoreFromStore repopulates the tracked map from events still open
// for this boot epoch (spec.md §4.4, §6). Events from other boot
// epochs are left alone in the store; they are historical rows, not
// candidates for in-memory tracking.
func (tr *Tracker) RestoreFromStore(ctx context.Context) error {
	events, err := tr.store.GetOpenEvents(ctx, tr.bootEpoch)
	if err != nil {
		return fmt.Errorf("restore open events: %w", err)
	}
	for _, e := range events {
		tr.tracked[e.PID] = &TrackedProcess{
			EventID:        e.EventID,
			PID:            e.PID,
			PeakScore:      e.PeakScore,
			PeakBand:       e.PeakBand,
			PeakSnapshotID: e.PeakSnapshotID,
			Forensicsed:    e.PeakBand.Ordinal() >= tr.cfg.Bands.ForensicsBand.Ordinal(),
		}
	}
	return nil
}

// Update is the single per-tick entry point (spec.md §4.4).
func (tr *Tracker) Update(ctx context.Context, rogues []model.ProcessScore, now time.Time) {
	trackingOrdinal := tr.cfg.Bands.TrackingBand.Ordinal()
	seen := make(map[int]model.ProcessScore, len(rogues))
	for _, r := range rogues {
		if r.Band.Ordinal() < trackingOrdinal {
			continue
		}
		seen[r.PID] = r
	}

	for pid, t := range tr.tracked {
		if _, ok := seen[pid]; ok {
			continue
		}
		if err := tr.store.CloseEvent(ctx, t.EventID, now); err != nil {
			log.Printf("pausemonitord: tracker: close event %d (pid %d): %v", t.EventID, pid, err)
		}
		delete(tr.tracked, pid)
	}

	for pid, score := range seen {
		t, ok := tr.tracked[pid]
		if !ok {
			tr.open(ctx, pid, score, now)
			continue
		}
		tr.advance(ctx, t, score, now)
	}
}

func (tr *Tracker) open(ctx context.Context, pid int, score model.ProcessScore, now time.Time) {
	event := model.ProcessEvent{
		PID:       pid,
		Command:   score.Command,
		BootEpoch: tr.bootEpoch,
		EntryTime: now,
		EntryBand: score.Band,
		PeakBand:  score.Band,
		PeakScore: score.Score,
	}
	eventID, err := tr.store.CreateEvent(ctx, event)
	if err != nil {
		log.Printf("pausemonitord: tracker: create event for pid %d: %v", pid, err)
		return
	}

	snap := model.ProcessSnapshot{EventID: eventID, CapturedAt: now, Type: model.SnapshotEntry, Score: score}
	snapshotID, err := tr.store.InsertSnapshot(ctx, snap)
	if err != nil {
		log.Printf("pausemonitord: tracker: insert entry snapshot for event %d: %v", eventID, err)
	}
	if snapshotID != 0 {
		if err := tr.store.UpdateEventPeak(ctx, eventID, score.Score, score.Band, snapshotID, now); err != nil {
			log.Printf("pausemonitord: tracker: update peak on open for event %d: %v", eventID, err)
		}
	}

	t := &TrackedProcess{
		EventID:        eventID,
		PID:            pid,
		PeakScore:      score.Score,
		PeakBand:       score.Band,
		PeakSnapshotID: snapshotID,
	}
	tr.tracked[pid] = t

	if tr.crossesForensics(score.Band) {
		t.Forensicsed = true
		tr.invokeForensics(t.EventID, score, "entry")
	}
}

func (tr *Tracker) advance(ctx context.Context, t *TrackedProcess, score model.ProcessScore, now time.Time) {
	t.SamplesSinceCheckpoint++
	interval := tr.cfg.Bands.CheckpointInterval(score.Band)

	switch {
	case score.Score > t.PeakScore:
		wasForensics := t.Forensicsed
		snap := model.ProcessSnapshot{EventID: t.EventID, CapturedAt: now, Type: model.SnapshotCheckpoint, Score: score}
		snapshotID, err := tr.store.InsertSnapshot(ctx, snap)
		if err != nil {
			log.Printf("pausemonitord: tracker: insert peak snapshot for event %d: %v", t.EventID, err)
		}
		if err := tr.store.UpdateEventPeak(ctx, t.EventID, score.Score, score.Band, snapshotID, now); err != nil {
			log.Printf("pausemonitord: tracker: update peak for event %d: %v", t.EventID, err)
		}
		t.PeakScore = score.Score
		t.PeakBand = score.Band
		t.PeakSnapshotID = snapshotID
		t.SamplesSinceCheckpoint = 0

		if !wasForensics && tr.crossesForensics(score.Band) {
			t.Forensicsed = true
			tr.invokeForensics(t.EventID, score, "peak-advance")
		}

	case interval > 0 && t.SamplesSinceCheckpoint >= interval:
		snap := model.ProcessSnapshot{EventID: t.EventID, CapturedAt: now, Type: model.SnapshotCheckpoint, Score: score}
		if _, err := tr.store.InsertSnapshot(ctx, snap); err != nil {
			log.Printf("pausemonitord: tracker: insert checkpoint snapshot for event %d: %v", t.EventID, err)
		}
		t.SamplesSinceCheckpoint = 0
	}
}

// crossesForensics reports whether band meets or exceeds the
// configured forensics band (spec.md §4.4).
func (tr *Tracker) crossesForensics(band model.Band) bool {
	return band.Ordinal() >= tr.cfg.Bands.ForensicsBand.Ordinal()
}

func (tr *Tracker) invokeForensics(eventID int64, score model.ProcessScore, reason string) {
	if tr.forensics == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("pausemonitord: tracker: forensics callback panicked for event %d: %v", eventID, r)
			}
		}()
		tr.forensics(eventID, score, reason)
	}()
}

// Tracked returns a snapshot copy of the currently tracked pids, for
// observability/tests. Callers must not mutate the returned map's
// pointees.
func (tr *Tracker) Tracked() map[int]*TrackedProcess {
	out := make(map[int]*TrackedProcess, len(tr.tracked))
	for pid, t := range tr.tracked {
		cp := *t
		out[pid] = &cp
	}
	return out
}
