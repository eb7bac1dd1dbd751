// pausemonitord runs the core sampler/scorer/tracker/store pipeline as
// a headless daemon. It owns no dashboard, no CLI query surface, and
// no TOML config reader (spec.md §1 Out of scope) — flags here cover
// only what the daemon itself needs to start. Grounded on xtop's
// cmd/monitor/main.go, the same headless-runner pattern generalized
// from a fixed-duration foreground loop to an indefinite
// signal-driven daemon (pipeline.Run already owns that loop).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/hluisi/pause-monitor-sub001/config"
	"github.com/hluisi/pause-monitor-sub001/pipeline"
	"github.com/hluisi/pause-monitor-sub001/sampler"
	"github.com/hluisi/pause-monitor-sub001/scorer"
	"github.com/hluisi/pause-monitor-sub001/store"
	"github.com/hluisi/pause-monitor-sub001/tracker"
)

func main() {
	dataDir := flag.String("data-dir", defaultDataDir(), "directory for the event store, pid file, and summary log")
	intervalMS := flag.Int("interval-ms", 300, "sampling interval in milliseconds")
	rogueTopK := flag.Int("rogue-top-k", 15, "number of top-scoring processes to track")
	flag.Parse()

	if err := run(*dataDir, *intervalMS, *rogueTopK); err != nil {
		log.Fatalf("pausemonitord: %v", err)
	}
}

func run(dataDir string, intervalMS, rogueTopK int) error {
	cfg := config.Default()
	cfg.DataDir = dataDir
	cfg.Sampling.Interval = intervalMS
	cfg.Sampling.RogueTopK = rogueTopK
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	samp, err := sampler.New()
	if err != nil {
		return fmt.Errorf("construct sampler: %w", err)
	}
	defer samp.Close()

	bootEpoch, err := sampler.BootEpoch()
	if err != nil {
		return fmt.Errorf("read boot epoch: %w", err)
	}

	sc, err := scorer.New(cfg)
	if err != nil {
		return fmt.Errorf("construct scorer: %w", err)
	}

	ctx := context.Background()

	st, err := store.Open(ctx, filepath.Join(dataDir, "events.db"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if err := st.WriteBootEpoch(ctx, bootEpoch); err != nil {
		return fmt.Errorf("write boot epoch: %w", err)
	}

	p := pipeline.New(cfg, samp, sc, nil, bootEpoch)
	tr := tracker.New(cfg, st, bootEpoch, p.ForensicsFunc())
	if err := tr.RestoreFromStore(ctx); err != nil {
		return fmt.Errorf("restore tracker state: %w", err)
	}
	p.SetTracker(tr)

	return pipeline.Run(ctx, p, pipeline.RunOptions{
		DataDir:   dataDir,
		Interval:  time.Duration(intervalMS) * time.Millisecond,
		BootEpoch: bootEpoch,
		Store:     st,
	})
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Library", "Application Support", "pausemonitord")
}
