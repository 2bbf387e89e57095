package engine

import (
	"context"
	"sync"
	"time"

	"github.com/roach88/eventsheet/internal/ir"
	"github.com/roach88/eventsheet/internal/variables"
)

// RunStatus is the final state of a recorded run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// Change is one variable write observed at the end of a tick.
// Instance is the index of the object instance in the scene and is only
// meaningful for the Object scope.
type Change struct {
	Scope    variables.Scope `json:"scope"`
	Owner    string          `json:"owner,omitempty"`
	Instance int             `json:"instance,omitempty"`
	Name     string          `json:"name"`
	Value    ir.Variable     `json:"-"`
	Deleted  bool            `json:"deleted,omitempty"`
}

// RunInfo describes a run when it starts. Initial holds the complete
// variable state at StartTick.
type RunInfo struct {
	RunID         string
	Scene         string
	ProgramHash   string
	FormatVersion string
	EngineVersion string
	StartTick     uint64
	ResumedFrom   string
	StartedAt     time.Time
	Initial       []Change
}

// TickRecord is everything one tick produced. Aborted is set when the
// tick was abandoned by a fatal error.
type TickRecord struct {
	RunID    string
	Tick     uint64
	Steps    int
	Warnings []Warning
	Changes  []Change
	Aborted  string
}

// Recorder persists runs. The tick goroutine calls it synchronously after
// every tick.
type Recorder interface {
	BeginRun(ctx context.Context, info RunInfo) error
	RecordTick(ctx context.Context, rec TickRecord) error
	EndRun(ctx context.Context, runID string, status RunStatus, lastTick uint64) error
}

// MemoryRecorder keeps runs in memory. Used by the scenario harness and
// tests.
type MemoryRecorder struct {
	mu     sync.Mutex
	Runs   []RunInfo
	Ticks  []TickRecord
	Status map[string]RunStatus
}

// NewMemoryRecorder creates an empty recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{Status: make(map[string]RunStatus)}
}

func (m *MemoryRecorder) BeginRun(_ context.Context, info RunInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Runs = append(m.Runs, info)
	m.Status[info.RunID] = RunRunning
	return nil
}

func (m *MemoryRecorder) RecordTick(_ context.Context, rec TickRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ticks = append(m.Ticks, rec)
	return nil
}

func (m *MemoryRecorder) EndRun(_ context.Context, runID string, status RunStatus, _ uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Status[runID] = status
	return nil
}
