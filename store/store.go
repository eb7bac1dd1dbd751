// Package store implements spec.md §4.5: the embedded transactional
// event store. Opening a single-writer *sqlx.DB, pragma-tuning it for
// WAL, and exposing a WithTx helper that rolls back on panic follows
// wavetermdev/waveterm's pkg/filestore/blockstore_dbsetup.go and
// pkg/sstore/txwrap.go; the schema-version delete-and-recreate policy
// (no ALTER TABLE migrations) replaces waveterm's golang-migrate-based
// migrateutil.Migrate, which this spec explicitly does not want (see
// DESIGN.md).
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/hluisi/pause-monitor-sub001/model"
)

// SchemaVersion is the compile-time schema version (spec.md §4.5). Any
// change to the column set of process_events or process_snapshots
// must bump this constant.
const SchemaVersion = 2

const schemaDDL = `
CREATE TABLE daemon_state (
	key text PRIMARY KEY,
	value text NOT NULL,
	updated_at real NOT NULL
);

CREATE TABLE process_events (
	event_id integer PRIMARY KEY AUTOINCREMENT,
	pid integer NOT NULL,
	command text NOT NULL,
	boot_epoch integer NOT NULL,
	entry_time real NOT NULL,
	exit_time real,
	entry_band text NOT NULL,
	peak_band text NOT NULL,
	peak_score integer NOT NULL,
	peak_snapshot_id integer,
	peak_captured_at real NOT NULL
);

CREATE INDEX idx_process_events_pid_boot_epoch ON process_events(pid, boot_epoch);
CREATE INDEX idx_process_events_open ON process_events(exit_time) WHERE exit_time IS NULL;

CREATE TABLE process_snapshots (
	snapshot_id integer PRIMARY KEY AUTOINCREMENT,
	event_id integer NOT NULL REFERENCES process_events(event_id) ON DELETE CASCADE,
	snapshot_type text NOT NULL,
	captured_at real NOT NULL,

	pid integer NOT NULL,
	command text NOT NULL,
	sampled_at real NOT NULL,
	cpu_percent real NOT NULL,
	resident_memory integer NOT NULL,
	peak_memory integer NOT NULL,
	pageins integer NOT NULL,
	pageins_rate real NOT NULL,
	page_faults integer NOT NULL,
	page_faults_rate real NOT NULL,
	disk_read_bytes integer NOT NULL,
	disk_write_bytes integer NOT NULL,
	disk_io_rate real NOT NULL,
	context_switches integer NOT NULL,
	context_switches_rate real NOT NULL,
	mach_syscalls integer NOT NULL,
	mach_syscalls_rate real NOT NULL,
	bsd_syscalls integer NOT NULL,
	bsd_syscalls_rate real NOT NULL,
	thread_count integer NOT NULL,
	mach_messages integer NOT NULL,
	mach_messages_rate real NOT NULL,
	cpu_instructions integer NOT NULL,
	cpu_cycles integer NOT NULL,
	instructions_per_cycle real NOT NULL,
	billed_energy integer NOT NULL,
	billed_energy_rate real NOT NULL,
	wakeups integer NOT NULL,
	wakeups_rate real NOT NULL,
	runnable_time integer NOT NULL,
	runnable_time_rate real NOT NULL,
	qos_interactive_time integer NOT NULL,
	qos_interactive_time_rate real NOT NULL,
	gpu_time integer NOT NULL DEFAULT 0,
	gpu_time_rate real NOT NULL DEFAULT 0,
	zombie_children integer NOT NULL,
	state text NOT NULL,
	priority integer NOT NULL,

	cpu_share real NOT NULL,
	gpu_share real NOT NULL,
	mem_share real NOT NULL,
	disk_share real NOT NULL,
	wakeups_share real NOT NULL,
	disproportionality real NOT NULL,
	dominant_resource text NOT NULL,
	score integer NOT NULL,
	band text NOT NULL
);

CREATE INDEX idx_process_snapshots_event_id ON process_snapshots(event_id);
`

// Store is the embedded event store (spec.md §4.5). A Store owns
// exactly one *sqlx.DB and is driven by a single writer, the tracker's
// pipeline task (spec.md §5).
type Store struct {
	db   *sqlx.DB
	path string
}

// Open opens (creating if absent) the event store at path, or an
// in-memory store if path is ":memory:" (used by tests, grounded on
// waveterm's useTestingDb switch). If the stored schema_version does
// not match SchemaVersion, the file is deleted and recreated with a
// fresh schema — spec.md §4.5 forbids ALTER TABLE migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	s := &Store{path: path}
	db, err := s.openDB()
	if err != nil {
		return nil, err
	}
	s.db = db

	version, err := s.readSchemaVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("read schema version: %w", err)
	}
	if version != SchemaVersion {
		log.Printf("pausemonitord: store: schema version %d != %d, recreating store", version, SchemaVersion)
		if err := s.recreate(ctx); err != nil {
			return nil, fmt.Errorf("recreate store: %w", err)
		}
	}
	return s, nil
}

func (s *Store) openDB() (*sqlx.DB, error) {
	dsn := s.path
	if dsn != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", dsn)
	}
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db %s: %w", s.path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil && s.path != ":memory:" {
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	return db, nil
}

func (s *Store) readSchemaVersion(ctx context.Context) (int, error) {
	var exists int
	err := s.db.GetContext(ctx, &exists, "SELECT count(*) FROM sqlite_master WHERE type='table' AND name='daemon_state'")
	if err != nil {
		return 0, err
	}
	if exists == 0 {
		return 0, nil
	}
	var versionStr string
	err = s.db.GetContext(ctx, &versionStr, "SELECT value FROM daemon_state WHERE key='schema_version'")
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var version int
	if _, err := fmt.Sscanf(versionStr, "%d", &version); err != nil {
		return 0, nil
	}
	return version, nil
}

// recreate drops and rebuilds the schema in place. For an on-disk
// store it also removes the file first so no stray pages or indexes
// from a previous version linger outside a transaction boundary.
func (s *Store) recreate(ctx context.Context) error {
	if err := s.db.Close(); err != nil {
		return err
	}
	if s.path != ":memory:" {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove stale store file: %w", err)
		}
		for _, suffix := range []string{"-wal", "-shm"} {
			_ = os.Remove(s.path + suffix)
		}
	}
	db, err := s.openDB()
	if err != nil {
		return err
	}
	s.db = db

	if _, err := s.db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	now := float64(time.Now().UnixNano()) / 1e9
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO daemon_state(key, value, updated_at) VALUES ('schema_version', ?, ?)",
		fmt.Sprintf("%d", SchemaVersion), now)
	return err
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// WriteBootEpoch records the current boot epoch in daemon_state
// (spec.md §3, §6). The daemon calls this once at startup and once
// more on graceful shutdown, per spec.md §3's DaemonState lifecycle.
func (s *Store) WriteBootEpoch(ctx context.Context, bootEpoch int64) error {
	now := float64(time.Now().UnixNano()) / 1e9
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO daemon_state(key, value, updated_at) VALUES ('boot_epoch', ?, ?) "+
			"ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		fmt.Sprintf("%d", bootEpoch), now)
	if err != nil {
		return fmt.Errorf("write boot epoch: %w", err)
	}
	return nil
}

func toUnix(t time.Time) sql.NullFloat64 {
	if t.IsZero() {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: float64(t.UnixNano()) / 1e9, Valid: true}
}

func fromUnix(f sql.NullFloat64) time.Time {
	if !f.Valid {
		return time.Time{}
	}
	sec := int64(f.Float64)
	nsec := int64((f.Float64 - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}

// eventRow mirrors process_events for sqlx scanning.
type eventRow struct {
	EventID        int64           `db:"event_id"`
	PID            int             `db:"pid"`
	Command        string          `db:"command"`
	BootEpoch      int64           `db:"boot_epoch"`
	EntryTime      float64         `db:"entry_time"`
	ExitTime       sql.NullFloat64 `db:"exit_time"`
	EntryBand      string          `db:"entry_band"`
	PeakBand       string          `db:"peak_band"`
	PeakScore      int             `db:"peak_score"`
	PeakSnapshotID sql.NullInt64   `db:"peak_snapshot_id"`
	PeakCapturedAt float64         `db:"peak_captured_at"`
}

func (r eventRow) toModel() model.ProcessEvent {
	e := model.ProcessEvent{
		EventID:        r.EventID,
		PID:            r.PID,
		Command:        r.Command,
		BootEpoch:      r.BootEpoch,
		EntryTime:      fromUnix(sql.NullFloat64{Float64: r.EntryTime, Valid: true}),
		ExitTime:       fromUnix(r.ExitTime),
		EntryBand:      model.ParseBand(r.EntryBand),
		PeakBand:       model.ParseBand(r.PeakBand),
		PeakScore:      r.PeakScore,
		PeakCapturedAt: fromUnix(sql.NullFloat64{Float64: r.PeakCapturedAt, Valid: true}),
	}
	if r.PeakSnapshotID.Valid {
		e.PeakSnapshotID = r.PeakSnapshotID.Int64
	}
	return e
}

// CreateEvent inserts a new open ProcessEvent row (exit_time null) and
// returns its assigned event-id (spec.md §4.5).
func (s *Store) CreateEvent(ctx context.Context, event model.ProcessEvent) (int64, error) {
	var eventID int64
	err := WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO process_events(pid, command, boot_epoch, entry_time, entry_band, peak_band, peak_score, peak_captured_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			event.PID, event.Command, event.BootEpoch,
			float64(event.EntryTime.UnixNano())/1e9, event.EntryBand.String(), event.PeakBand.String(),
			event.PeakScore, float64(event.EntryTime.UnixNano())/1e9)
		if err != nil {
			return fmt.Errorf("insert process_events: %w", err)
		}
		eventID, err = res.LastInsertId()
		return err
	})
	return eventID, err
}

// InsertSnapshot inserts a flattened ProcessScore snapshot row and
// returns its assigned snapshot-id (spec.md §4.5, §3).
func (s *Store) InsertSnapshot(ctx context.Context, snap model.ProcessSnapshot) (int64, error) {
	var snapshotID int64
	err := WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		row := snapshotRowFrom(snap)
		res, err := tx.NamedExecContext(ctx, insertSnapshotSQL, row)
		if err != nil {
			return fmt.Errorf("insert process_snapshots: %w", err)
		}
		snapshotID, err = res.LastInsertId()
		return err
	})
	return snapshotID, err
}

// UpdateEventPeak mutates the peak fields on an open event row
// (spec.md §4.4 peak-advance, §4.5).
func (s *Store) UpdateEventPeak(ctx context.Context, eventID int64, peakScore int, peakBand model.Band, peakSnapshotID int64, peakCapturedAt time.Time) error {
	return WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var snapArg interface{}
		if peakSnapshotID != 0 {
			snapArg = peakSnapshotID
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE process_events SET peak_score=?, peak_band=?, peak_snapshot_id=?, peak_captured_at=? WHERE event_id=?`,
			peakScore, peakBand.String(), snapArg, float64(peakCapturedAt.UnixNano())/1e9, eventID)
		if err != nil {
			return fmt.Errorf("update event peak: %w", err)
		}
		return nil
	})
}

// CloseEvent sets exit_time on an event, closing it (spec.md §4.4
// exit, §4.5). No exit snapshot is written here; the tracker never
// calls CloseEvent with one (spec.md §9 Open Question #4).
func (s *Store) CloseEvent(ctx context.Context, eventID int64, exitTime time.Time) error {
	return WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			"UPDATE process_events SET exit_time=? WHERE event_id=?",
			float64(exitTime.UnixNano())/1e9, eventID)
		if err != nil {
			return fmt.Errorf("close event: %w", err)
		}
		return nil
	})
}

// GetSnapshotsForEvent returns every snapshot recorded for an event, in
// capture order, reconstructing each one's full ProcessScore (§3, §4.5,
// §8 invariant #8: the read path is the inverse of InsertSnapshot).
func (s *Store) GetSnapshotsForEvent(ctx context.Context, eventID int64) ([]model.ProcessSnapshot, error) {
	var rows []snapshotRow
	err := s.db.SelectContext(ctx, &rows, selectSnapshotsByEventSQL, eventID)
	if err != nil {
		return nil, fmt.Errorf("get snapshots for event %d: %w", eventID, err)
	}
	out := make([]model.ProcessSnapshot, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// GetOpenEvents returns every event with null exit_time for the given
// boot epoch (spec.md §4.5, §6). Events from other boot epochs are
// never returned.
func (s *Store) GetOpenEvents(ctx context.Context, bootEpoch int64) ([]model.ProcessEvent, error) {
	var rows []eventRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT event_id, pid, command, boot_epoch, entry_time, exit_time, entry_band, peak_band, peak_score, peak_snapshot_id, peak_captured_at "+
			"FROM process_events WHERE boot_epoch = ? AND exit_time IS NULL", bootEpoch)
	if err != nil {
		return nil, fmt.Errorf("get open events: %w", err)
	}
	out := make([]model.ProcessEvent, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}
