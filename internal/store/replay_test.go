package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eventsheet/internal/compiler"
	"github.com/roach88/eventsheet/internal/engine"
	"github.com/roach88/eventsheet/internal/ir"
)

func counterProject() *ir.Project {
	inc := func(name string) ir.Instruction {
		return ir.Instruction{
			Type:       ir.InstructionType{Value: compiler.ActSetNumberVariable},
			Parameters: []string{name, "+", "1"},
		}
	}
	return &ir.Project{
		Variables: ir.VariableList{{Name: "Total", Value: ir.Number(0)}},
		Layouts: []ir.Scene{{
			Name:      "Main",
			Variables: ir.VariableList{{Name: "N", Value: ir.Number(0)}},
			Instances: []ir.Instance{{Name: "Enemy", Variables: ir.VariableList{{Name: "hits", Value: ir.Number(0)}}}},
			Events: []ir.Event{
				{Actions: []ir.Instruction{inc("N"), inc("Total")}},
				{Type: ir.EventForEach, Object: "Enemy", Actions: []ir.Instruction{inc("hits")}},
			},
		}},
	}
}

func TestLoadSnapshot_FoldsRecordedChanges(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	p := counterProject()

	scene, err := engine.NewScene(p, "Main", nil,
		engine.WithRecorder(s),
		engine.WithRunIDGenerator(engine.NewFixedGenerator("run-1")),
	)
	require.NoError(t, err)
	require.NoError(t, scene.Run(ctx, 5, 0))
	require.NoError(t, scene.Close(ctx, nil))

	latest, err := s.LoadLatest(ctx, "run-1")
	require.NoError(t, err)
	live := scene.Snapshot()
	assert.Equal(t, uint64(5), latest.Tick)
	assert.Equal(t, live.Global, latest.Global)
	assert.Equal(t, live.Scene, latest.Scene)
	assert.Equal(t, live.Instances, latest.Instances)

	mid, err := s.LoadSnapshot(ctx, "run-1", 2)
	require.NoError(t, err)
	n, _ := mid.Scene.Lookup("N")
	assert.Equal(t, ir.Number(2), n)
	hits, _ := mid.Instances[0].Variables.Lookup("hits")
	assert.Equal(t, ir.Number(2), hits)

	start, err := s.LoadSnapshot(ctx, "run-1", 0)
	require.NoError(t, err)
	n, _ = start.Scene.Lookup("N")
	assert.Equal(t, ir.Number(0), n)

	_, err = s.LoadSnapshot(ctx, "run-1", 6)
	assert.ErrorContains(t, err, "covers ticks 0..5")

	run, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, engine.RunCompleted, run.Status)
}

func TestResumeFromStore(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	p := counterProject()

	first, err := engine.NewScene(p, "Main", nil,
		engine.WithRecorder(s),
		engine.WithRunIDGenerator(engine.NewFixedGenerator("run-1")),
	)
	require.NoError(t, err)
	require.NoError(t, first.Run(ctx, 3, 0))
	require.NoError(t, first.Close(ctx, nil))

	snap, err := s.LoadLatest(ctx, "run-1")
	require.NoError(t, err)

	resumed, err := engine.NewScene(p, "Main", nil,
		engine.WithRecorder(s),
		engine.WithRunIDGenerator(engine.NewFixedGenerator("run-2")),
	)
	require.NoError(t, err)
	require.NoError(t, resumed.Restore(snap))
	require.NoError(t, resumed.Run(ctx, 2, 0))
	require.NoError(t, resumed.Close(ctx, nil))

	assert.Equal(t, ir.Number(5), resumed.Vars().Get("N"))
	assert.Equal(t, ir.Number(5), resumed.Global().Get("Total"))

	run, err := s.ReadRun(ctx, "run-2")
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ResumedFrom)
	assert.Equal(t, uint64(3), run.StartTick)
	assert.Equal(t, uint64(5), run.LastTick)

	// The resumed run is self-contained: its own initial state plus ticks 4-5.
	latest, err := s.LoadLatest(ctx, "run-2")
	require.NoError(t, err)
	assert.Equal(t, resumed.Snapshot().Scene, latest.Scene)

	_, err = s.LoadSnapshot(ctx, "run-2", 2)
	assert.ErrorContains(t, err, "covers ticks 3..5")
}
