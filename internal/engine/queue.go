package engine

import (
	"sync"

	"github.com/roach88/eventsheet/internal/ir"
	"github.com/roach88/eventsheet/internal/variables"
)

// Input is an external write to a global or scene variable, applied at the
// start of the next tick.
type Input struct {
	Scope variables.Scope
	Name  string // variable path, e.g. Player.hp
	Value ir.Variable
}

type queuedInput struct {
	Input
	path variables.Path
}

// inputQueue is a goroutine-safe FIFO of inputs.
//
// Producers call Enqueue from any goroutine; the tick goroutine takes
// everything queued so far with Drain.
type inputQueue struct {
	mu     sync.Mutex
	inputs []queuedInput
	closed bool
}

func newInputQueue() *inputQueue {
	return &inputQueue{inputs: make([]queuedInput, 0, 16)}
}

// Enqueue adds in to the back of the queue.
// Returns false if the queue is closed.
func (q *inputQueue) Enqueue(in queuedInput) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.inputs = append(q.inputs, in)
	return true
}

// Drain removes and returns every queued input in arrival order.
func (q *inputQueue) Drain() []queuedInput {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.inputs) == 0 {
		return nil
	}
	out := q.inputs
	q.inputs = make([]queuedInput, 0, cap(out))
	return out
}

// Len returns the number of queued inputs.
func (q *inputQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inputs)
}

// Close rejects further inputs. Inputs already queued can still be drained.
func (q *inputQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}
