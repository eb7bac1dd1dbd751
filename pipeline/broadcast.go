package pipeline

import (
	"sync/atomic"

	"github.com/hluisi/pause-monitor-sub001/model"
)

// FrameBroadcast is the "latest value wins" slot spec.md §9 Design
// Notes calls for: the pipeline never awaits a consumer, and a slow
// dashboard subscriber only ever sees the most recent Frame, never a
// backlog (spec.md §6). There is no teacher equivalent — xtop renders
// its TUI synchronously in the same goroutine as collection — so this
// is built directly from the spec's broadcast requirement using
// sync/atomic.Value rather than a channel, since a channel would force
// either blocking sends (violates "never awaits a consumer") or a
// buffered channel with an ad-hoc drop policy.
type FrameBroadcast struct {
	v atomic.Value
}

// Set stores the latest Frame, discarding whatever was there before.
func (b *FrameBroadcast) Set(f model.Frame) {
	b.v.Store(f)
}

// Latest returns the most recently stored Frame and whether one has
// ever been stored.
func (b *FrameBroadcast) Latest() (model.Frame, bool) {
	v := b.v.Load()
	if v == nil {
		return model.Frame{}, false
	}
	return v.(model.Frame), true
}

// ForensicsEvent is one fire-and-forget forensics trigger (spec.md §6).
type ForensicsEvent struct {
	EventID int64
	Score   model.ProcessScore
	Reason  string
}

// ForensicsQueue is the unbounded channel spec.md §9 Design Notes
// calls for: the tracker must never block on a slow forensics
// consumer. It is backed by a growable slice guarded by a mutex rather
// than a buffered Go channel, which would need an arbitrary capacity
// chosen up front; Push never blocks regardless of how far the
// consumer has fallen behind.
type ForensicsQueue struct {
	mu      chan struct{} // 1-buffered mutex; see lock/unlock below
	pending []ForensicsEvent
	notify  chan struct{}
}

// NewForensicsQueue constructs an empty queue.
func NewForensicsQueue() *ForensicsQueue {
	q := &ForensicsQueue{
		mu:     make(chan struct{}, 1),
		notify: make(chan struct{}, 1),
	}
	q.mu <- struct{}{}
	return q
}

func (q *ForensicsQueue) lock()   { <-q.mu }
func (q *ForensicsQueue) unlock() { q.mu <- struct{}{} }

// Push enqueues an event. Never blocks.
func (q *ForensicsQueue) Push(e ForensicsEvent) {
	q.lock()
	q.pending = append(q.pending, e)
	q.unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Drain removes and returns every currently queued event. Callers
// that want to block until at least one event is available should
// select on Notify() first.
func (q *ForensicsQueue) Drain() []ForensicsEvent {
	q.lock()
	defer q.unlock()
	if len(q.pending) == 0 {
		return nil
	}
	out := q.pending
	q.pending = nil
	return out
}

// Notify returns a channel that receives a value after a Push, for a
// consumer that wants to block instead of polling. It holds at most one
// pending signal, so several Pushes before a receive yield one signal.
func (q *ForensicsQueue) Notify() <-chan struct{} {
	return q.notify
}
