package sampler

import (
	"testing"
	"time"
)

func TestEvictStaleRetainsOneTickThenDrops(t *testing.T) {
	s := &Sampler{prev: map[int]counters{
		1: {at: time.Now(), cpuSeconds: 1.0},
	}}

	// Tick where pid 1 is not seen: should be marked stale, not dropped.
	s.evictStale(map[int]struct{}{})
	if _, ok := s.prev[1]; !ok {
		t.Fatalf("expected pid 1 retained for one tick of jitter absorption")
	}
	if !s.prev[1].stale {
		t.Fatalf("expected pid 1 marked stale")
	}

	// Second consecutive tick unseen: now it should be evicted.
	s.evictStale(map[int]struct{}{})
	if _, ok := s.prev[1]; ok {
		t.Fatalf("expected pid 1 evicted after two consecutive unseen ticks")
	}
}

func TestEvictStaleClearsMarkOnReappearance(t *testing.T) {
	s := &Sampler{prev: map[int]counters{
		1: {at: time.Now(), cpuSeconds: 1.0},
	}}
	s.evictStale(map[int]struct{}{})
	if !s.prev[1].stale {
		t.Fatalf("expected stale after one missed tick")
	}

	// pid 1 reappears (simulated as readOne would: overwrite entry).
	s.prev[1] = counters{at: time.Now(), cpuSeconds: 2.0}
	s.evictStale(map[int]struct{}{1: {}})
	if _, ok := s.prev[1]; !ok {
		t.Fatalf("expected pid 1 retained while still seen")
	}
	if s.prev[1].stale {
		t.Fatalf("expected stale flag cleared on reappearance")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	s := &Sampler{prev: map[int]counters{1: {}}}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
