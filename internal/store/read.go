package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/eventsheet/internal/engine"
	"github.com/roach88/eventsheet/internal/queryir"
)

// ErrRunNotFound is returned when a run id is not in the store.
var ErrRunNotFound = errors.New("run not found")

// Run is a recorded run row.
type Run struct {
	ID            string           `json:"id"`
	Scene         string           `json:"scene"`
	ProgramHash   string           `json:"program_hash"`
	FormatVersion string           `json:"format_version"`
	EngineVersion string           `json:"engine_version"`
	StartTick     uint64           `json:"start_tick"`
	LastTick      uint64           `json:"last_tick"`
	ResumedFrom   string           `json:"resumed_from,omitempty"`
	Status        engine.RunStatus `json:"status"`
	StartedAt     time.Time        `json:"started_at"`
}

// Tick is a recorded tick row.
type Tick struct {
	RunID   string `json:"run_id"`
	Tick    uint64 `json:"tick"`
	Steps   int    `json:"steps"`
	Aborted string `json:"aborted,omitempty"`
}

// ChangeRow is a recorded variable change with its position in the trace.
type ChangeRow struct {
	RunID string `json:"run_id"`
	Tick  uint64 `json:"tick"`
	Seq   int    `json:"seq"`
	engine.Change
}

// WarningRow is a recorded warning with its position in the trace.
type WarningRow struct {
	RunID string `json:"run_id"`
	Seq   int    `json:"seq"`
	engine.Warning
}

// ReadRun returns one run. Returns ErrRunNotFound if it does not exist.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	runs, err := s.queryRuns(ctx, queryir.Equals{Field: "id", Value: queryir.String(id)})
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	return runs[0], nil
}

// ListRuns returns every run, oldest first (run ids are UUIDv7).
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	return s.queryRuns(ctx, nil)
}

func (s *Store) queryRuns(ctx context.Context, filter queryir.Predicate) ([]Run, error) {
	query, params, err := s.sql.Compile(queryir.Select{
		From:   queryir.SourceRuns,
		Fields: queryir.Columns(queryir.SourceRuns),
		Filter: filter,
	})
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			r                   Run
			startTick, lastTick int64
			status, startedAt   string
		)
		if err := rows.Scan(
			&r.ID, &r.Scene, &r.ProgramHash, &r.FormatVersion, &r.EngineVersion,
			&startTick, &lastTick, &r.ResumedFrom, &status, &startedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartTick = uint64(startTick)
		r.LastTick = uint64(lastTick)
		r.Status = engine.RunStatus(status)
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("scan run %s: started_at: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadTicks returns the ticks of a run in order.
func (s *Store) ReadTicks(ctx context.Context, runID string) ([]Tick, error) {
	query, params, err := s.sql.Compile(queryir.Select{
		From:   queryir.SourceTicks,
		Fields: queryir.Columns(queryir.SourceTicks),
		Filter: queryir.Equals{Field: "run_id", Value: queryir.String(runID)},
	})
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	defer rows.Close()

	ticks := []Tick{}
	for rows.Next() {
		var t Tick
		var tick int64
		if err := rows.Scan(&t.RunID, &tick, &t.Steps, &t.Aborted); err != nil {
			return nil, fmt.Errorf("scan tick: %w", err)
		}
		t.Tick = uint64(tick)
		ticks = append(ticks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ticks: %w", err)
	}
	return ticks, nil
}

// QueryChanges returns the recorded changes matching f, ordered by tick
// then seq. Changes at a run's start tick are its initial state.
func (s *Store) QueryChanges(ctx context.Context, f queryir.TraceFilter) ([]ChangeRow, error) {
	query, params, err := s.sql.Compile(f.Changes())
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}
	defer rows.Close()

	changes := []ChangeRow{}
	for rows.Next() {
		row, err := scanChange(rows)
		if err != nil {
			return nil, err
		}
		changes = append(changes, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changes: %w", err)
	}
	return changes, nil
}

// QueryWarnings returns the recorded warnings matching f, ordered by tick
// then seq.
func (s *Store) QueryWarnings(ctx context.Context, f queryir.TraceFilter) ([]WarningRow, error) {
	query, params, err := s.sql.Compile(f.Warnings())
	if err != nil {
		return nil, fmt.Errorf("query warnings: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query warnings: %w", err)
	}
	defer rows.Close()

	warnings := []WarningRow{}
	for rows.Next() {
		var w WarningRow
		var tick int64
		var code string
		if err := rows.Scan(&w.RunID, &tick, &w.Seq, &w.Event, &code, &w.Message); err != nil {
			return nil, fmt.Errorf("scan warning: %w", err)
		}
		w.Tick = uint64(tick)
		w.Code = engine.RuntimeErrorCode(code)
		warnings = append(warnings, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate warnings: %w", err)
	}
	return warnings, nil
}

// scanChange scans a row selected with queryir.Columns(SourceChanges).
func scanChange(rows *sql.Rows) (ChangeRow, error) {
	var (
		row                          ChangeRow
		tick                         int64
		scope, owner, name, valueStr string
		instance                     int
		deleted                      bool
	)
	if err := rows.Scan(&row.RunID, &tick, &row.Seq, &scope, &owner, &instance, &name, &valueStr, &deleted); err != nil {
		return ChangeRow{}, fmt.Errorf("scan change: %w", err)
	}
	c, err := changeFromRow(scope, owner, instance, name, valueStr, deleted)
	if err != nil {
		return ChangeRow{}, err
	}
	row.Tick = uint64(tick)
	row.Change = c
	return row, nil
}
