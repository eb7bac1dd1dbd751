// Package rogue implements spec.md §4.3: reducing a scored frame to the
// small set of processes worth tracking. The shape — a stateless
// Select over a slice with a top-K cut grounded on a comparator
// already used by the layer below it — mirrors how xtop's
// engine/ticker.go narrows a frame to the rows a refresh actually
// redraws before handing them to the alert/history stages.
package rogue

import (
	"github.com/hluisi/pause-monitor-sub001/model"
	"github.com/hluisi/pause-monitor-sub001/scorer"
)

// Selector reduces a scored frame to the rogues the tracker should see.
type Selector struct {
	topK int
}

// New constructs a Selector. topK must be >= 1; config.Config.Validate
// already enforces this on the shared Sampling.RogueTopK knob, so New
// does not re-validate here.
func New(topK int) *Selector {
	return &Selector{topK: topK}
}

// Select returns the top-K ProcessScore at or above trackingBand
// (spec.md §4.3, §6 tracking_band), excluding everything below it.
// Input order is not assumed to be sorted; Select sorts a copy and
// never mutates scores.
func (sel *Selector) Select(scores []model.ProcessScore, trackingBand model.Band) []model.ProcessScore {
	candidates := make([]model.ProcessScore, 0, len(scores))
	for _, s := range scores {
		if s.Band.Ordinal() < trackingBand.Ordinal() {
			continue
		}
		candidates = append(candidates, s)
	}

	scorer.SortByScoreDesc(candidates)

	if len(candidates) > sel.topK {
		candidates = candidates[:sel.topK]
	}
	return candidates
}
