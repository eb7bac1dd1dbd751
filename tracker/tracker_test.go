package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/hluisi/pause-monitor-sub001/config"
	"github.com/hluisi/pause-monitor-sub001/model"
)

type fakeStore struct {
	nextEventID    int64
	nextSnapshotID int64

	events    map[int64]model.ProcessEvent
	snapshots []model.ProcessSnapshot
}

func newFakeStore() *fakeStore {
	return &fakeStore{events: make(map[int64]model.ProcessEvent)}
}

func (f *fakeStore) CreateEvent(_ context.Context, event model.ProcessEvent) (int64, error) {
	f.nextEventID++
	event.EventID = f.nextEventID
	f.events[event.EventID] = event
	return event.EventID, nil
}

func (f *fakeStore) InsertSnapshot(_ context.Context, snap model.ProcessSnapshot) (int64, error) {
	f.nextSnapshotID++
	snap.SnapshotID = f.nextSnapshotID
	f.snapshots = append(f.snapshots, snap)
	return snap.SnapshotID, nil
}

func (f *fakeStore) UpdateEventPeak(_ context.Context, eventID int64, peakScore int, peakBand model.Band, peakSnapshotID int64, peakCapturedAt time.Time) error {
	e := f.events[eventID]
	e.PeakScore = peakScore
	e.PeakBand = peakBand
	e.PeakSnapshotID = peakSnapshotID
	e.PeakCapturedAt = peakCapturedAt
	f.events[eventID] = e
	return nil
}

func (f *fakeStore) CloseEvent(_ context.Context, eventID int64, exitTime time.Time) error {
	e := f.events[eventID]
	e.ExitTime = exitTime
	f.events[eventID] = e
	return nil
}

func (f *fakeStore) GetOpenEvents(_ context.Context, bootEpoch int64) ([]model.ProcessEvent, error) {
	var out []model.ProcessEvent
	for _, e := range f.events {
		if e.BootEpoch == bootEpoch && e.Open() {
			out = append(out, e)
		}
	}
	return out, nil
}

func newTestTracker(store Store) *Tracker {
	return New(config.Default(), store, 1000, nil)
}

func scoreFor(pid int, band model.Band, score int) model.ProcessScore {
	return model.ProcessScore{
		ProcessRaw: model.ProcessRaw{PID: pid, Command: "hog"},
		Band:       band,
		Score:      score,
	}
}

func TestUpdateOpensEventOnFirstSeen(t *testing.T) {
	store := newFakeStore()
	tr := newTestTracker(store)
	now := time.Unix(1000, 0)

	tr.Update(context.Background(), []model.ProcessScore{scoreFor(42, model.BandMedium, 25)}, now)

	tracked := tr.Tracked()
	tp, ok := tracked[42]
	if !ok {
		t.Fatalf("expected pid 42 tracked")
	}
	if tp.PeakScore != 25 || tp.PeakBand != model.BandMedium {
		t.Errorf("unexpected tracked state: %+v", tp)
	}
	if len(store.snapshots) != 1 || store.snapshots[0].Type != model.SnapshotEntry {
		t.Fatalf("expected one entry snapshot, got %+v", store.snapshots)
	}
}

// S4 — disappearance: tracker closes the event, writes no exit snapshot.
func TestUpdateClosesEventOnDisappearance(t *testing.T) {
	store := newFakeStore()
	tr := newTestTracker(store)
	t0 := time.Unix(1000, 0)
	tr.Update(context.Background(), []model.ProcessScore{scoreFor(42, model.BandMedium, 25)}, t0)

	t1 := time.Unix(1001, 0)
	tr.Update(context.Background(), nil, t1)

	if _, ok := tr.Tracked()[42]; ok {
		t.Fatalf("expected pid 42 no longer tracked")
	}
	eventID := int64(1)
	e := store.events[eventID]
	if e.Open() {
		t.Fatalf("expected event closed")
	}
	if !e.ExitTime.Equal(t1) {
		t.Errorf("exit_time = %v, want %v", e.ExitTime, t1)
	}
	for _, s := range store.snapshots {
		if s.Type == model.SnapshotExit {
			t.Fatalf("expected no exit snapshot written")
		}
	}
}

func TestAdvancePeakStrictlyGreater(t *testing.T) {
	store := newFakeStore()
	tr := newTestTracker(store)
	t0 := time.Unix(1000, 0)
	tr.Update(context.Background(), []model.ProcessScore{scoreFor(42, model.BandHigh, 60)}, t0)

	// Same score again: no peak advance, checkpoint counter increments by
	// exactly one, and since band=high checkpoint_interval=1, a
	// checkpoint snapshot is written (property #10).
	t1 := time.Unix(1001, 0)
	tr.Update(context.Background(), []model.ProcessScore{scoreFor(42, model.BandHigh, 60)}, t1)

	tp := tr.Tracked()[42]
	if tp.PeakScore != 60 {
		t.Errorf("peak_score = %d, want unchanged at 60", tp.PeakScore)
	}
	if tp.SamplesSinceCheckpoint != 0 {
		t.Errorf("samples_since_checkpoint = %d, want reset to 0 after checkpoint fired", tp.SamplesSinceCheckpoint)
	}
	checkpoints := 0
	for _, s := range store.snapshots {
		if s.Type == model.SnapshotCheckpoint {
			checkpoints++
		}
	}
	if checkpoints != 1 {
		t.Fatalf("expected exactly 1 checkpoint snapshot, got %d", checkpoints)
	}
}

// S3 — escalation into critical invokes forensics exactly once per
// crossing, not on every subsequent tick spent at-or-above the band.
func TestForensicsFiresOncePerCrossing(t *testing.T) {
	store := newFakeStore()
	var calls []string
	forensics := func(eventID int64, score model.ProcessScore, reason string) {
		calls = append(calls, reason)
	}
	tr := New(config.Default(), store, 1000, forensics)

	t0 := time.Unix(1000, 0)
	tr.Update(context.Background(), []model.ProcessScore{scoreFor(42, model.BandHigh, 62)}, t0) // high, below forensics (critical)

	t1 := time.Unix(1001, 0)
	tr.Update(context.Background(), []model.ProcessScore{scoreFor(42, model.BandCritical, 76)}, t1) // peak advance into critical

	t2 := time.Unix(1002, 0)
	tr.Update(context.Background(), []model.ProcessScore{scoreFor(42, model.BandCritical, 76)}, t2) // same score, checkpoint only

	// forensics runs in a goroutine; give it a moment to land.
	deadline := time.Now().Add(time.Second)
	for len(calls) < 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if len(calls) != 1 {
		t.Fatalf("expected forensics invoked exactly once, got %d calls: %v", len(calls), calls)
	}
	if calls[0] != "peak-advance" {
		t.Errorf("expected forensics reason 'peak-advance', got %q", calls[0])
	}
}

func TestRestoreFromStoreOnlyMatchingBootEpoch(t *testing.T) {
	store := newFakeStore()
	store.events[1] = model.ProcessEvent{EventID: 1, PID: 10, BootEpoch: 1000, PeakBand: model.BandMedium}
	store.events[2] = model.ProcessEvent{EventID: 2, PID: 20, BootEpoch: 999, PeakBand: model.BandMedium}
	store.nextEventID = 2

	tr := newTestTracker(store)
	if err := tr.RestoreFromStore(context.Background()); err != nil {
		t.Fatalf("RestoreFromStore: %v", err)
	}

	tracked := tr.Tracked()
	if _, ok := tracked[10]; !ok {
		t.Errorf("expected pid 10 (matching boot epoch) restored")
	}
	if _, ok := tracked[20]; ok {
		t.Errorf("expected pid 20 (stale boot epoch) NOT restored")
	}
}
