// Recorder and Player give the pipeline offline record/replay, grounded
// on xtop's engine/recorder.go Recorder/Player pair: one JSON-line
// writer wrapping the live tick, one reader replaying a prior run
// without a live macOS host. This is test/ops tooling (SPEC_FULL.md
// supplemental feature #1); it never touches the event store.
package pipeline

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hluisi/pause-monitor-sub001/model"
)

// Ticker is the subset of Pipeline a Recorder drives, so tests can
// wrap a fake instead of a full pipeline with a live sampler.
type Ticker interface {
	Tick(ctx context.Context) (model.Frame, error)
}

// Recorder wraps a Ticker and appends one JSON line per tick to w.
type Recorder struct {
	inner  Ticker
	mu     sync.Mutex
	writer *json.Encoder
}

// NewRecorder constructs a Recorder writing JSON lines to w.
func NewRecorder(inner Ticker, w io.Writer) *Recorder {
	return &Recorder{inner: inner, writer: json.NewEncoder(w)}
}

// Tick calls the wrapped Ticker and records the result before
// returning it. A recording failure is reported but does not mask the
// underlying tick's own result.
func (r *Recorder) Tick(ctx context.Context) (model.Frame, error) {
	frame, err := r.inner.Tick(ctx)
	if err != nil {
		return frame, err
	}
	r.mu.Lock()
	encErr := r.writer.Encode(frame)
	r.mu.Unlock()
	if encErr != nil {
		return frame, fmt.Errorf("record frame: %w", encErr)
	}
	return frame, nil
}

// Player replays a recorded file's frames, one at a time, at a
// caller-chosen cadence rather than the cadence they were recorded at
// — spec.md doesn't require faithful timing reproduction for offline
// testing, only faithful data.
type Player struct {
	frames []model.Frame
	idx    int
}

// NewPlayer reads every recorded Frame line from r. Malformed lines
// are skipped, matching xtop's recorder.Player tolerance for a
// truncated recording file.
func NewPlayer(r io.Reader) (*Player, error) {
	br := bufio.NewReader(r)
	var frames []model.Frame
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			var f model.Frame
			if jsonErr := json.Unmarshal(line, &f); jsonErr == nil {
				frames = append(frames, f)
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("read recording: %w", err)
		}
	}
	return &Player{frames: frames}, nil
}

// Next returns the next recorded frame and true, or a zero Frame and
// false once every frame has been replayed.
func (p *Player) Next() (model.Frame, bool) {
	if p.idx >= len(p.frames) {
		return model.Frame{}, false
	}
	f := p.frames[p.idx]
	p.idx++
	return f, true
}

// Replay pushes every remaining frame onto ch, spaced cadence apart,
// then closes ch. It blocks until done; callers typically run it in a
// goroutine.
func (p *Player) Replay(ch chan<- model.Frame, cadence time.Duration) {
	defer close(ch)
	for {
		f, ok := p.Next()
		if !ok {
			return
		}
		ch <- f
		if cadence > 0 {
			time.Sleep(cadence)
		}
	}
}
