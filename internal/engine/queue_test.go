package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eventsheet/internal/ir"
	"github.com/roach88/eventsheet/internal/variables"
)

func queued(name string, v ir.Variable) queuedInput {
	return queuedInput{
		Input: Input{Scope: variables.Scene, Name: name, Value: v},
		path:  variables.MustParsePath(name),
	}
}

func TestInputQueue_FIFO(t *testing.T) {
	q := newInputQueue()
	require.True(t, q.Enqueue(queued("A", ir.Number(1))))
	require.True(t, q.Enqueue(queued("B", ir.Number(2))))
	require.True(t, q.Enqueue(queued("C", ir.Number(3))))
	assert.Equal(t, 3, q.Len())

	got := q.Drain()
	require.Len(t, got, 3)
	assert.Equal(t, "A", got[0].Name)
	assert.Equal(t, "B", got[1].Name)
	assert.Equal(t, "C", got[2].Name)

	assert.Equal(t, 0, q.Len())
	assert.Nil(t, q.Drain())
}

func TestInputQueue_Close(t *testing.T) {
	q := newInputQueue()
	require.True(t, q.Enqueue(queued("A", ir.Number(1))))
	q.Close()

	assert.False(t, q.Enqueue(queued("B", ir.Number(2))), "closed queue rejects input")
	got := q.Drain()
	require.Len(t, got, 1, "queued input survives close")
	assert.Equal(t, "A", got[0].Name)
}

func TestInputQueue_ConcurrentProducers(t *testing.T) {
	q := newInputQueue()
	const producers = 20
	const each = 50

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < each; j++ {
				q.Enqueue(queued("X", ir.Number(float64(j))))
			}
		}()
	}
	wg.Wait()

	assert.Len(t, q.Drain(), producers*each)
}
