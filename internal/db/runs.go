package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/encoderdaq/internal/analysis"
	"github.com/banshee-data/encoderdaq/internal/daq"
)

// ErrRunNotFound is returned for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// RunStatus is the lifecycle state of a catalog entry.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is one row of the runs table.
type Run struct {
	ID         string
	Name       string
	Directory  string
	Target     daq.RunTarget
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	Counters   daq.Counters
	Error      string
	Summary    *analysis.Summary // nil until recorded
}

// CreateRun inserts a running entry and returns it with a fresh ID.
func (db *DB) CreateRun(ctx context.Context, name, dir string, target daq.RunTarget, started time.Time) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Name:      name,
		Directory: dir,
		Target:    target,
		Status:    RunRunning,
		StartedAt: started.UTC(),
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO runs (run_id, name, directory, target_seconds, target_packets, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Name, run.Directory, target.Seconds, target.Packets, string(run.Status), run.StartedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("insert run %s: %w", name, err)
	}
	return run, nil
}

// FinishRun stores the final status and counters. A non-nil runErr is kept
// as text.
func (db *DB) FinishRun(ctx context.Context, id string, status RunStatus, c daq.Counters, finished time.Time, runErr error) error {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	res, err := db.ExecContext(ctx, `
		UPDATE runs SET
			status = ?, finished_at = ?,
			encoder_packets = ?, irig_packets = ?, timing_faults = ?,
			framing_errors = ?, sink_errors = ?, error = ?
		WHERE run_id = ?`,
		string(status), finished.UTC().UnixNano(),
		c.EncoderPackets, c.IrigPackets, c.TimingFaults,
		c.FramingErrors, c.SinkErrors, msg,
		id)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	return expectOneRow(res, id)
}

// RecordSummary stores (or replaces) the rotation summary of a run.
func (db *DB) RecordSummary(ctx context.Context, id string, s analysis.Summary) error {
	_, err := db.ExecContext(ctx, `
		INSERT OR REPLACE INTO run_summaries
			(run_id, samples, duration_s, rate_rad_s, intercept_rad, rms_jitter_rad, mean_spacing_s, spacing_stddev_s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, s.Samples, s.Duration, s.Rate, s.Intercept, s.RMSJitter, s.MeanSpacing, s.SpacingStdDev)
	if err != nil {
		return fmt.Errorf("record summary for %s: %w", id, err)
	}
	return nil
}

func expectOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

const selectRuns = `
	SELECT r.run_id, r.name, r.directory, r.target_seconds, r.target_packets, r.status,
		r.started_at, r.finished_at, r.encoder_packets, r.irig_packets, r.timing_faults,
		r.framing_errors, r.sink_errors, r.error,
		s.samples, s.duration_s, s.rate_rad_s, s.intercept_rad, s.rms_jitter_rad,
		s.mean_spacing_s, s.spacing_stddev_s
	FROM runs r LEFT JOIN run_summaries s ON s.run_id = r.run_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run      Run
		status   string
		started  int64
		finished sql.NullInt64
		samples  sql.NullInt64
		sum      [6]sql.NullFloat64
	)
	err := row.Scan(
		&run.ID, &run.Name, &run.Directory, &run.Target.Seconds, &run.Target.Packets, &status,
		&started, &finished, &run.Counters.EncoderPackets, &run.Counters.IrigPackets, &run.Counters.TimingFaults,
		&run.Counters.FramingErrors, &run.Counters.SinkErrors, &run.Error,
		&samples, &sum[0], &sum[1], &sum[2], &sum[3], &sum[4], &sum[5],
	)
	if err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	run.StartedAt = time.Unix(0, started).UTC()
	if finished.Valid {
		run.FinishedAt = time.Unix(0, finished.Int64).UTC()
	}
	if samples.Valid {
		run.Summary = &analysis.Summary{
			Samples:       int(samples.Int64),
			Duration:      sum[0].Float64,
			Rate:          sum[1].Float64,
			Intercept:     sum[2].Float64,
			RMSJitter:     sum[3].Float64,
			MeanSpacing:   sum[4].Float64,
			SpacingStdDev: sum[5].Float64,
		}
	}
	return &run, nil
}

// GetRun loads one run with its summary.
func (db *DB) GetRun(ctx context.Context, id string) (*Run, error) {
	run, err := scanRun(db.QueryRowContext(ctx, selectRuns+` WHERE r.run_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns runs, newest first. An empty name lists every run.
func (db *DB) ListRuns(ctx context.Context, name string) ([]Run, error) {
	query, args := selectRuns, []any{}
	if name != "" {
		query += ` WHERE r.name = ?`
		args = append(args, name)
	}
	query += ` ORDER BY r.started_at DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}
