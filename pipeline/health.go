// HealthState is a sustained-threshold debounce over the
// highest scored band in a tick, grounded on xtop's
// engine/alertstate.go AlertState — the same candidate/current split
// and consecutive-tick counter, generalized from 4 HealthLevel values
// to the 5 model.Band values the scorer already produces.
package pipeline

import "github.com/hluisi/pause-monitor-sub001/model"

// sustainedRequiredTicks mirrors xtop's sustainedRequired constant: the
// number of consecutive ticks a candidate band must hold before it
// becomes the reported level, in either direction.
const sustainedRequiredTicks = 10

// HealthState implements the sustained-threshold debounce. It is not
// persisted; a restart starts fresh at BandLow.
type HealthState struct {
	current        model.Band
	candidate      model.Band
	candidateTicks int
}

// Update feeds the highest band observed in a tick and returns the
// debounced, authoritative health level.
func (h *HealthState) Update(topBand model.Band) model.Band {
	if topBand == h.candidate {
		h.candidateTicks++
	} else {
		h.candidate = topBand
		h.candidateTicks = 1
	}

	if h.candidateTicks >= sustainedRequiredTicks && h.candidate != h.current {
		h.current = h.candidate
	}

	return h.current
}

// Current returns the last reported level without feeding a new tick.
func (h *HealthState) Current() model.Band {
	return h.current
}
