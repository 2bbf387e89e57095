package store

import (
	"context"
	"fmt"

	"github.com/roach88/eventsheet/internal/engine"
	"github.com/roach88/eventsheet/internal/queryir"
)

// LoadSnapshot rebuilds the variable state of a run after tick by folding
// its initial state and recorded changes in trace order. No events are
// executed.
//
// tick must lie between the run's start tick and its last recorded tick.
func (s *Store) LoadSnapshot(ctx context.Context, runID string, tick uint64) (engine.Snapshot, error) {
	run, err := s.ReadRun(ctx, runID)
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	if tick < run.StartTick || tick > run.LastTick {
		return engine.Snapshot{}, fmt.Errorf("load snapshot: run %s covers ticks %d..%d, not %d",
			runID, run.StartTick, run.LastTick, tick)
	}

	changes, err := s.QueryChanges(ctx, queryir.TraceFilter{RunID: runID, Until: tick})
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}

	snap := engine.Snapshot{RunID: runID, Tick: tick}
	for _, c := range changes {
		// Until 0 does not filter, so a run resumed at tick 0 is bounded here.
		if c.Tick > tick {
			break
		}
		snap.Apply(c.Change)
	}
	return snap, nil
}

// LoadLatest rebuilds the state of a run after its last recorded tick.
func (s *Store) LoadLatest(ctx context.Context, runID string) (engine.Snapshot, error) {
	run, err := s.ReadRun(ctx, runID)
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	return s.LoadSnapshot(ctx, runID, run.LastTick)
}
