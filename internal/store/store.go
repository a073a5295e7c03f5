// Package store keeps a SQLite history of sweeps and their per-point
// summaries, independent of where the report itself was written.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/loadsweep/internal/report"
	"github.com/banshee-data/loadsweep/internal/stats"
	"github.com/banshee-data/loadsweep/internal/timeutil"
)

// Sweep statuses.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusError    = "error"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when a sweep ID is unknown.
var ErrNotFound = errors.New("sweep not found")

// Sweep is one persisted run.
type Sweep struct {
	ID          string
	Worker      string
	Files       string // "start:stop:stride"
	Parallel    string
	Warmup      int
	Duration    float64
	Status      string
	Rows        int
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// Store wraps the history database.
type Store struct {
	db *sql.DB

	// Clock stamps sweep start and completion times.
	Clock timeutil.Clock
}

// Open opens (creating if needed) the database at path and applies pending
// migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// One writer; avoids SQLITE_BUSY between the migrator and the store.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	s := &Store{db: db, Clock: timeutil.RealClock{}}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartSweep inserts a running sweep and returns its ID, generating one when
// sw.ID is empty.
func (s *Store) StartSweep(ctx context.Context, sw Sweep) (string, error) {
	if sw.ID == "" {
		sw.ID = uuid.NewString()
	}
	if sw.StartedAt.IsZero() {
		sw.StartedAt = s.Clock.Now()
	}
	if sw.Status == "" {
		sw.Status = StatusRunning
	}

	query := `
		INSERT INTO sweeps (
			sweep_id, worker, files_range, parallel_range, warmup, duration_s,
			status, started_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		sw.ID, sw.Worker, sw.Files, sw.Parallel, sw.Warmup, sw.Duration,
		sw.Status, sw.StartedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("inserting sweep %s: %w", sw.ID, err)
	}
	return sw.ID, nil
}

// summaryEntry is the JSON form of one statistic. JSON has no NaN, so a
// missing value is null.
type summaryEntry struct {
	Metric    string   `json:"metric"`
	Statistic string   `json:"statistic"`
	Value     *float64 `json:"value"`
}

func encodeSummary(sum stats.Summary) (string, error) {
	entries := make([]summaryEntry, len(sum))
	for i, e := range sum {
		entries[i] = summaryEntry{Metric: e.Key.Metric, Statistic: string(e.Key.Statistic)}
		if !math.IsNaN(e.Value) && !math.IsInf(e.Value, 0) {
			v := e.Value
			entries[i].Value = &v
		}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeSummary(data string) (stats.Summary, error) {
	var entries []summaryEntry
	if err := json.Unmarshal([]byte(data), &entries); err != nil {
		return nil, err
	}
	out := make(stats.Summary, len(entries))
	for i, e := range entries {
		v := math.NaN()
		if e.Value != nil {
			v = *e.Value
		}
		out[i] = stats.Entry{Key: stats.Key{Metric: e.Metric, Statistic: stats.Statistic(e.Statistic)}, Value: v}
	}
	out.Sort()
	return out, nil
}

// RecordPoint stores the summary row for one grid point.
func (s *Store) RecordPoint(ctx context.Context, sweepID string, index int, row report.Row) error {
	summary, err := encodeSummary(row.Summary)
	if err != nil {
		return fmt.Errorf("encoding summary for point %d: %w", index, err)
	}
	query := `
		INSERT INTO sweep_points (sweep_id, point_index, n_files, n_parallel, status, summary_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, sweepID, index, row.NFiles, row.NParallel, row.Status, summary); err != nil {
		return fmt.Errorf("recording point %d of sweep %s: %w", index, sweepID, err)
	}
	return nil
}

// FinishSweep marks a sweep complete or failed.
func (s *Store) FinishSweep(ctx context.Context, sweepID, status string, rows int, errMsg string) error {
	query := `
		UPDATE sweeps
		SET status = ?, rows_written = ?, error = ?, completed_at = ?
		WHERE sweep_id = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		status, rows, nullStr(errMsg), s.Clock.Now().UTC().Format(timeLayout), sweepID)
	if err != nil {
		return fmt.Errorf("finishing sweep %s: %w", sweepID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finishing sweep %s: %w", sweepID, ErrNotFound)
	}
	return nil
}

const sweepColumns = `sweep_id, worker, files_range, parallel_range, warmup, duration_s,
	status, rows_written, error, started_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSweep(sc rowScanner) (*Sweep, error) {
	var sw Sweep
	var errMsg, startedAt, completedAt sql.NullString
	if err := sc.Scan(
		&sw.ID, &sw.Worker, &sw.Files, &sw.Parallel, &sw.Warmup, &sw.Duration,
		&sw.Status, &sw.Rows, &errMsg, &startedAt, &completedAt,
	); err != nil {
		return nil, err
	}
	sw.Error = errMsg.String
	if startedAt.Valid {
		if t, err := time.Parse(timeLayout, startedAt.String); err == nil {
			sw.StartedAt = t
		}
	}
	if completedAt.Valid {
		if t, err := time.Parse(timeLayout, completedAt.String); err == nil {
			sw.CompletedAt = &t
		}
	}
	return &sw, nil
}

// GetSweep returns a single sweep by ID.
func (s *Store) GetSweep(ctx context.Context, sweepID string) (*Sweep, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sweepColumns+` FROM sweeps WHERE sweep_id = ?`, sweepID)
	sw, err := scanSweep(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", sweepID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting sweep %s: %w", sweepID, err)
	}
	return sw, nil
}

// ListSweeps returns the most recent sweeps first. limit <= 0 means no limit.
func (s *Store) ListSweeps(ctx context.Context, limit int) ([]Sweep, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sweepColumns+` FROM sweeps ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sweeps: %w", err)
	}
	defer rows.Close()

	var out []Sweep
	for rows.Next() {
		sw, err := scanSweep(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sweep: %w", err)
		}
		out = append(out, *sw)
	}
	return out, rows.Err()
}

// ListPoints returns a sweep's rows in grid order.
func (s *Store) ListPoints(ctx context.Context, sweepID string) ([]report.Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT n_files, n_parallel, status, summary_json
		FROM sweep_points
		WHERE sweep_id = ?
		ORDER BY point_index
	`, sweepID)
	if err != nil {
		return nil, fmt.Errorf("listing points of %s: %w", sweepID, err)
	}
	defer rows.Close()

	var out []report.Row
	for rows.Next() {
		var r report.Row
		var summary string
		if err := rows.Scan(&r.NFiles, &r.NParallel, &r.Status, &summary); err != nil {
			return nil, fmt.Errorf("scanning point: %w", err)
		}
		if r.Summary, err = decodeSummary(summary); err != nil {
			return nil, fmt.Errorf("decoding point summary: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
