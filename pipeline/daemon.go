// Run drives the Pipeline as a long-lived daemon: PID file, signal
// handling, ticking cadence, and a rolling compact summary log,
// grounded on xtop's engine/daemon.go RunDaemon and its
// writeSummaryLine helper (SPEC_FULL.md supplemental features #3, #4).
// The cooperative run loop itself — one goroutine ticking, one
// goroutine watching for shutdown signals, coordinated so a signal
// cancels the tick loop's context rather than force-killing it
// mid-tick — uses golang.org/x/sync/errgroup in place of xtop's
// hand-rolled select over two channels, per SPEC_FULL.md's DOMAIN
// STACK section.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

const summaryRotateBytes = 10 * 1024 * 1024

// summaryLine is the compact per-tick projection of a Frame appended to
// <data_dir>/current.jsonl (SPEC_FULL.md supplemental feature #4). It
// carries no invariants of its own; it is strictly a convenience
// projection of already-public Frame data.
type summaryLine struct {
	Timestamp   time.Time `json:"ts"`
	TopBand     string    `json:"top_band"`
	TopScore    int       `json:"top_score"`
	Dominant    string    `json:"dominant,omitempty"`
	RogueCount  int       `json:"rogue_count"`
	HealthLevel string    `json:"health"`
}

// BootEpochWriter is the subset of store.Store Run needs to record the
// daemon's boot epoch on graceful shutdown (spec.md §3 DaemonState
// lifecycle). The startup write is made by the caller before Run.
type BootEpochWriter interface {
	WriteBootEpoch(ctx context.Context, bootEpoch int64) error
}

// RunOptions configures Run. DataDir mirrors config.Config.DataDir;
// it is passed explicitly rather than read off the Pipeline because
// the PID file and summary log are daemon concerns, not core-pipeline
// concerns (spec.md §1: the core exposes interfaces, it doesn't own
// process supervision). BootEpoch and Store are used only to re-write
// daemon_state's boot_epoch row on shutdown; Store may be nil to skip
// that write (e.g. in tests that don't wire a real store).
type RunOptions struct {
	DataDir   string
	Interval  time.Duration
	BootEpoch int64
	Store     BootEpochWriter
}

// Run blocks until ctx is canceled or a SIGINT/SIGTERM is received. On
// shutdown the in-flight tick completes before Run returns (spec.md §5
// Cancellation); the caller is responsible for calling Close on the
// Sampler and Store afterward, since Run does not own their lifetime.
func Run(ctx context.Context, p *Pipeline, opts RunOptions) error {
	if err := os.MkdirAll(opts.DataDir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	pidPath := filepath.Join(opts.DataDir, "pausemonitord.pid")
	if err := os.WriteFile(pidPath, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o600); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	summaryPath := filepath.Join(opts.DataDir, "current.jsonl")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			log.Printf("pausemonitord: received %s, shutting down", sig)
			cancel()
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(opts.Interval)
		defer ticker.Stop()
		log.Printf("pausemonitord: started (pid=%d, interval=%s, datadir=%s)", os.Getpid(), opts.Interval, opts.DataDir)

		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				// The tick runs on a context that shutdown does not cancel,
				// so a tick already in flight finishes its store writes.
				frame, err := p.Tick(context.WithoutCancel(gCtx))
				if err != nil {
					log.Printf("pausemonitord: tick failed: %v", err)
					continue
				}
				top := frame.TopScore()
				line := summaryLine{
					Timestamp:   frame.Timestamp,
					TopBand:     "low",
					RogueCount:  p.LastRogueCount(),
					HealthLevel: p.HealthLevel().String(),
				}
				if top != nil {
					line.TopBand = top.Band.String()
					line.TopScore = top.Score
					line.Dominant = top.DominantResource.String()
				}
				writeSummaryLine(summaryPath, line)
			}
		}
	})

	runErr := g.Wait()

	if opts.Store != nil {
		// runCtx is already canceled by the time we reach here (either the
		// caller canceled ctx or a signal triggered shutdown); a fresh,
		// short-lived context is used so this final write isn't aborted
		// along with it.
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		if err := opts.Store.WriteBootEpoch(shutdownCtx, opts.BootEpoch); err != nil {
			log.Printf("pausemonitord: write boot epoch on shutdown: %v", err)
		}
		cancelShutdown()
	}

	return runErr
}

// writeSummaryLine appends one compact JSON line, rotating the file to
// <path>.old once it exceeds summaryRotateBytes (grounded on xtop's
// writeSummaryLine).
func writeSummaryLine(path string, s summaryLine) {
	if info, err := os.Stat(path); err == nil && info.Size() > summaryRotateBytes {
		_ = os.Rename(path, path+".old")
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		log.Printf("pausemonitord: open summary log: %v", err)
		return
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(s); err != nil {
		log.Printf("pausemonitord: write summary line: %v", err)
	}
}
