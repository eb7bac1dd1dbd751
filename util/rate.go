// Package util holds small numeric helpers used by the sampler,
// adapted from xtop's util.Rate/util.Delta for cumulative
// counters that may reset (process restart) or be read out of order.
package util

import "time"

// Rate computes the per-second rate between two cumulative counter
// values across dt. A negative delta (counter reset, pid reuse) clamps
// to zero rather than going negative, per spec.md §4.1 step 3.
func Rate(prev, curr uint64, dt time.Duration) float64 {
	if dt <= 0 || curr < prev {
		return 0
	}
	return float64(curr-prev) / dt.Seconds()
}

// RateF is Rate for counters already held as float64 (e.g. cumulative
// CPU seconds from gopsutil's Times()).
func RateF(prev, curr float64, dt time.Duration) float64 {
	if dt <= 0 || curr < prev {
		return 0
	}
	return (curr - prev) / dt.Seconds()
}

// Delta returns curr - prev, or 0 on counter wrap (curr < prev).
func Delta(prev, curr uint64) uint64 {
	if curr < prev {
		return 0
	}
	return curr - prev
}
