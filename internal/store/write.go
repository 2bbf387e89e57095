package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/eventsheet/internal/engine"
)

// BeginRun inserts the run row and its initial variable state.
// Uses ON CONFLICT DO NOTHING for idempotency: beginning the same run twice
// keeps the first record.
func (s *Store) BeginRun(ctx context.Context, info engine.RunInfo) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, scene, program_hash, format_version, engine_version, start_tick, last_tick, resumed_from, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		info.RunID,
		info.Scene,
		info.ProgramHash,
		info.FormatVersion,
		info.EngineVersion,
		int64(info.StartTick),
		int64(info.StartTick),
		info.ResumedFrom,
		string(engine.RunRunning),
		info.StartedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("begin run: insert run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("begin run: rows affected: %w", err)
	}
	if rows == 0 {
		return tx.Commit()
	}

	if err := insertChanges(ctx, tx, info.RunID, info.StartTick, info.Initial); err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("begin run: commit: %w", err)
	}
	return nil
}

// RecordTick writes a tick with its changes and warnings in one
// transaction, so a crash never leaves a half-recorded tick.
func (s *Store) RecordTick(ctx context.Context, rec engine.TickRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record tick: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ticks (run_id, tick, steps, aborted)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, tick) DO NOTHING
	`, rec.RunID, int64(rec.Tick), rec.Steps, rec.Aborted)
	if err != nil {
		return fmt.Errorf("record tick %d: insert tick: %w", rec.Tick, err)
	}

	if err := insertChanges(ctx, tx, rec.RunID, rec.Tick, rec.Changes); err != nil {
		return fmt.Errorf("record tick %d: %w", rec.Tick, err)
	}

	for i, w := range rec.Warnings {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO warnings (run_id, tick, seq, event, code, message)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(run_id, tick, seq) DO NOTHING
		`, rec.RunID, int64(rec.Tick), i, w.Event, string(w.Code), w.Message)
		if err != nil {
			return fmt.Errorf("record tick %d: insert warning: %w", rec.Tick, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE runs SET last_tick = MAX(last_tick, ?) WHERE id = ?
	`, int64(rec.Tick), rec.RunID)
	if err != nil {
		return fmt.Errorf("record tick %d: update run: %w", rec.Tick, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record tick %d: commit: %w", rec.Tick, err)
	}
	return nil
}

// EndRun sets the final status of a run.
func (s *Store) EndRun(ctx context.Context, runID string, status engine.RunStatus, lastTick uint64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, last_tick = ? WHERE id = ?
	`, string(status), int64(lastTick), runID)
	if err != nil {
		return fmt.Errorf("end run: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("end run: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("end run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

func insertChanges(ctx context.Context, tx *sql.Tx, runID string, tick uint64, changes []engine.Change) error {
	for i, c := range changes {
		valueJSON, err := marshalValue(c)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO changes
			(run_id, tick, seq, scope, owner, instance, name, value_json, deleted)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(run_id, tick, seq) DO NOTHING
		`,
			runID,
			int64(tick),
			i,
			c.Scope.String(),
			c.Owner,
			c.Instance,
			c.Name,
			valueJSON,
			c.Deleted,
		)
		if err != nil {
			return fmt.Errorf("insert change %s: %w", c.Name, err)
		}
	}
	return nil
}

var _ engine.Recorder = (*Store)(nil)
