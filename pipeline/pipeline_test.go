package pipeline

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hluisi/pause-monitor-sub001/config"
	"github.com/hluisi/pause-monitor-sub001/model"
	"github.com/hluisi/pause-monitor-sub001/scorer"
	"github.com/hluisi/pause-monitor-sub001/tracker"
)

type fakeSampler struct {
	raws []model.ProcessRaw
	err  error
}

func (f *fakeSampler) Sample() ([]model.ProcessRaw, error) { return f.raws, f.err }
func (f *fakeSampler) Close() error                        { return nil }

type fakeTrackerStore struct {
	events    map[int64]model.ProcessEvent
	snapshots []model.ProcessSnapshot
	nextID    int64
}

func newFakeTrackerStore() *fakeTrackerStore {
	return &fakeTrackerStore{events: make(map[int64]model.ProcessEvent)}
}

func (f *fakeTrackerStore) CreateEvent(_ context.Context, e model.ProcessEvent) (int64, error) {
	f.nextID++
	e.EventID = f.nextID
	f.events[e.EventID] = e
	return e.EventID, nil
}
func (f *fakeTrackerStore) InsertSnapshot(_ context.Context, s model.ProcessSnapshot) (int64, error) {
	f.nextID++
	s.SnapshotID = f.nextID
	f.snapshots = append(f.snapshots, s)
	return s.SnapshotID, nil
}
func (f *fakeTrackerStore) UpdateEventPeak(_ context.Context, eventID int64, peakScore int, peakBand model.Band, peakSnapshotID int64, peakCapturedAt time.Time) error {
	e := f.events[eventID]
	e.PeakScore = peakScore
	e.PeakBand = peakBand
	e.PeakSnapshotID = peakSnapshotID
	f.events[eventID] = e
	return nil
}
func (f *fakeTrackerStore) CloseEvent(_ context.Context, eventID int64, exitTime time.Time) error {
	e := f.events[eventID]
	e.ExitTime = exitTime
	f.events[eventID] = e
	return nil
}
func (f *fakeTrackerStore) GetOpenEvents(_ context.Context, bootEpoch int64) ([]model.ProcessEvent, error) {
	return nil, nil
}

func newTestPipeline(t *testing.T, raws []model.ProcessRaw) *Pipeline {
	t.Helper()
	cfg := config.Default()
	sc, err := scorer.New(cfg)
	if err != nil {
		t.Fatalf("scorer.New: %v", err)
	}
	store := newFakeTrackerStore()
	p := New(cfg, &fakeSampler{raws: raws}, sc, nil, 1234)
	tr := tracker.New(cfg, store, 1234, p.ForensicsFunc())
	p.SetTracker(tr)
	return p
}

func TestTickPublishesFrame(t *testing.T) {
	p := newTestPipeline(t, []model.ProcessRaw{
		{PID: 1, CPUPercent: 50, State: model.StateRunning},
	})
	frame, err := p.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(frame.Processes) != 1 {
		t.Fatalf("expected 1 scored process, got %d", len(frame.Processes))
	}
	latest, ok := p.Frames().Latest()
	if !ok {
		t.Fatalf("expected a published frame")
	}
	if latest.Timestamp != frame.Timestamp {
		t.Errorf("published frame timestamp mismatch")
	}
}

func TestTickWithEmptySampleSkipsTracker(t *testing.T) {
	p := newTestPipeline(t, nil)
	frame, err := p.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(frame.Processes) != 0 {
		t.Errorf("expected no scored processes from an empty sample")
	}
}

func TestTickPropagatesSamplerError(t *testing.T) {
	p := newTestPipeline(t, nil)
	p.samp = &fakeSampler{err: errors.New("enumeration failed")}
	_, err := p.Tick(context.Background())
	if err == nil {
		t.Fatal("expected error propagated from sampler")
	}
}

func TestHealthStateDebouncesTransitions(t *testing.T) {
	var h HealthState
	for i := 0; i < sustainedRequiredTicks-1; i++ {
		if got := h.Update(model.BandCritical); got != model.BandLow {
			t.Fatalf("tick %d: health = %v, want still low (not yet sustained)", i, got)
		}
	}
	if got := h.Update(model.BandCritical); got != model.BandCritical {
		t.Fatalf("expected health to escalate to critical after sustained ticks, got %v", got)
	}
}

func TestHealthStateCandidateResetsOnFlap(t *testing.T) {
	var h HealthState
	h.Update(model.BandCritical)
	h.Update(model.BandLow) // flap back down resets the candidate counter
	for i := 0; i < sustainedRequiredTicks-1; i++ {
		h.Update(model.BandCritical)
	}
	if got := h.Current(); got != model.BandLow {
		t.Fatalf("expected still low after flap reset the candidate counter, got %v", got)
	}
}

func TestForensicsQueuePushDrain(t *testing.T) {
	q := NewForensicsQueue()
	q.Push(ForensicsEvent{EventID: 1, Reason: "entry"})
	q.Push(ForensicsEvent{EventID: 2, Reason: "peak-advance"})

	events := q.Drain()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if empty := q.Drain(); empty != nil {
		t.Fatalf("expected nil after drain, got %v", empty)
	}
}

func TestRecorderAndPlayerRoundTrip(t *testing.T) {
	p := newTestPipeline(t, []model.ProcessRaw{
		{PID: 1, CPUPercent: 50, State: model.StateRunning},
	})
	var buf bytes.Buffer
	rec := NewRecorder(p, &buf)

	if _, err := rec.Tick(context.Background()); err != nil {
		t.Fatalf("Recorder.Tick: %v", err)
	}
	if _, err := rec.Tick(context.Background()); err != nil {
		t.Fatalf("Recorder.Tick: %v", err)
	}

	player, err := NewPlayer(&buf)
	if err != nil {
		t.Fatalf("NewPlayer: %v", err)
	}
	count := 0
	for {
		_, ok := player.Next()
		if !ok {
			break
		}
		count++
	}
	if count != 2 {
		t.Fatalf("expected 2 replayed frames, got %d", count)
	}
}
