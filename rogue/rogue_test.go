package rogue

import (
	"testing"

	"github.com/hluisi/pause-monitor-sub001/model"
)

func score(pid int, band model.Band, s int) model.ProcessScore {
	return model.ProcessScore{
		ProcessRaw: model.ProcessRaw{PID: pid},
		Score:      s,
		Band:       band,
	}
}

func TestSelectExcludesLowBand(t *testing.T) {
	sel := New(10)
	in := []model.ProcessScore{
		score(1, model.BandLow, 5),
		score(2, model.BandMedium, 25),
		score(3, model.BandLow, 0),
	}
	out := sel.Select(in, model.BandMedium)
	if len(out) != 1 {
		t.Fatalf("expected 1 rogue, got %d: %+v", len(out), out)
	}
	if out[0].PID != 2 {
		t.Errorf("expected pid 2, got %d", out[0].PID)
	}
}

func TestSelectTopK(t *testing.T) {
	sel := New(2)
	in := []model.ProcessScore{
		score(1, model.BandMedium, 25),
		score(2, model.BandHigh, 60),
		score(3, model.BandCritical, 80),
		score(4, model.BandElevated, 45),
	}
	out := sel.Select(in, model.BandMedium)
	if len(out) != 2 {
		t.Fatalf("expected 2 rogues, got %d", len(out))
	}
	if out[0].PID != 3 || out[1].PID != 2 {
		t.Errorf("expected [3, 2] by descending score, got [%d, %d]", out[0].PID, out[1].PID)
	}
}

func TestSelectFewerThanK(t *testing.T) {
	sel := New(10)
	in := []model.ProcessScore{score(1, model.BandMedium, 25)}
	out := sel.Select(in, model.BandMedium)
	if len(out) != 1 {
		t.Fatalf("expected 1 rogue, got %d", len(out))
	}
}

func TestSelectEmptyInput(t *testing.T) {
	sel := New(10)
	out := sel.Select(nil, model.BandMedium)
	if len(out) != 0 {
		t.Fatalf("expected 0 rogues, got %d", len(out))
	}
}

func TestSelectDoesNotMutateInput(t *testing.T) {
	sel := New(1)
	in := []model.ProcessScore{
		score(1, model.BandMedium, 25),
		score(2, model.BandHigh, 60),
	}
	_ = sel.Select(in, model.BandMedium)
	if in[0].PID != 1 || in[1].PID != 2 {
		t.Errorf("Select mutated caller's slice order: %+v", in)
	}
}
