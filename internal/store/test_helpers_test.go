package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/eventsheet/internal/engine"
	"github.com/roach88/eventsheet/internal/ir"
	"github.com/roach88/eventsheet/internal/variables"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates run info with minimal required fields.
func createTestRun(id string, startTick uint64, initial ...engine.Change) engine.RunInfo {
	return engine.RunInfo{
		RunID:         id,
		Scene:         "Main",
		ProgramHash:   "test-hash",
		FormatVersion: ir.FormatVersion,
		EngineVersion: ir.EngineVersion,
		StartTick:     startTick,
		StartedAt:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Initial:       initial,
	}
}

func sceneChange(name string, v ir.Variable) engine.Change {
	return engine.Change{Scope: variables.Scene, Name: name, Value: v}
}

func mustBegin(t *testing.T, s *Store, info engine.RunInfo) {
	t.Helper()
	if err := s.BeginRun(context.Background(), info); err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}
}

func mustRecord(t *testing.T, s *Store, rec engine.TickRecord) {
	t.Helper()
	if err := s.RecordTick(context.Background(), rec); err != nil {
		t.Fatalf("RecordTick() failed: %v", err)
	}
}
