package model

import "errors"

// Sentinel errors shared across packages for the error taxonomy in
// spec.md §7. Other packages return these wrapped with
// fmt.Errorf("...: %w", ...) (sampler.New, config.Validate) so callers
// can errors.Is against the kind.

// ErrSamplerUnavailable is returned when the OS process-listing facility
// is missing at construction time. Fatal at startup.
var ErrSamplerUnavailable = errors.New("sampler: required OS facility unavailable")

// ErrInvariantViolation marks a scorer invariant that should never be
// reachable at runtime (defense-in-depth, not an expected condition).
var ErrInvariantViolation = errors.New("scorer: invariant violation")

// ErrConfigInvalid marks a configuration value rejected at load time.
var ErrConfigInvalid = errors.New("config: invalid configuration")
