package engine

import (
	"errors"
	"fmt"
)

// QuotaEnforcer counts the instructions evaluated during one tick and
// enforces a per-tick limit.
//
// It is the compiler.Budget handed to compiled units. Every condition and
// action charges one step, so Repeat events with huge counts and very deep
// trees terminate.
type QuotaEnforcer struct {
	maxSteps int
	current  int
	runID    string
	tick     uint64
}

// NewQuotaEnforcer creates an enforcer allowing maxSteps steps per tick.
// A non-positive maxSteps disables the limit.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{maxSteps: maxSteps}
}

// Begin resets the counter for a new tick.
func (q *QuotaEnforcer) Begin(runID string, tick uint64) {
	q.current = 0
	q.runID = runID
	q.tick = tick
}

// Charge counts one step. It returns a *StepsExceededError once the limit
// is passed.
func (q *QuotaEnforcer) Charge() error {
	q.current++
	if q.maxSteps > 0 && q.current > q.maxSteps {
		return &StepsExceededError{
			RunID: q.runID,
			Tick:  q.tick,
			Steps: q.current,
			Limit: q.maxSteps,
		}
	}
	return nil
}

// Current returns the steps charged this tick.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxSteps returns the per-tick limit.
func (q *QuotaEnforcer) MaxSteps() int {
	return q.maxSteps
}

// StepsExceededError abandons the rest of a tick.
type StepsExceededError struct {
	RunID string
	Tick  uint64
	Steps int
	Limit int
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("tick %d exceeded max steps: %d steps > %d limit", e.Tick, e.Steps, e.Limit)
}

// Fatal marks the error as tick-ending for compiled units.
func (e *StepsExceededError) Fatal() bool {
	return true
}

// IsStepsExceededError returns true if err wraps a StepsExceededError.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
