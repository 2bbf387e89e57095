package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/eventsheet/internal/compiler"
	"github.com/roach88/eventsheet/internal/ir"
)

// RuntimeErrorCode categorizes errors raised while a tick runs.
type RuntimeErrorCode string

const (
	// ErrCodeUnsupportedOperator indicates an operator rejected at evaluation.
	ErrCodeUnsupportedOperator RuntimeErrorCode = "UNSUPPORTED_OPERATOR"

	// ErrCodeTypeCoercion indicates a strict coercion failure.
	ErrCodeTypeCoercion RuntimeErrorCode = "TYPE_COERCION_FAILURE"

	// ErrCodeStepsExceeded indicates the per-tick step budget ran out.
	ErrCodeStepsExceeded RuntimeErrorCode = "STEPS_EXCEEDED"

	// ErrCodeInvalidInput indicates a posted input that could not be applied.
	ErrCodeInvalidInput RuntimeErrorCode = "INVALID_INPUT"

	// ErrCodeEventFailed is the fallback for any other event error.
	ErrCodeEventFailed RuntimeErrorCode = "EVENT_FAILED"
)

// Warning is a non-fatal runtime error caught at one event.
type Warning struct {
	Tick    uint64           `json:"tick"`
	Event   string           `json:"event"`
	Code    RuntimeErrorCode `json:"code"`
	Message string           `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("tick %d %s [%s] %s", w.Tick, w.Event, w.Code, w.Message)
}

func newWarning(tick uint64, event string, err error) Warning {
	return Warning{Tick: tick, Event: event, Code: ClassifyError(err), Message: err.Error()}
}

// ClassifyError maps a runtime error to its code.
func ClassifyError(err error) RuntimeErrorCode {
	switch {
	case IsStepsExceededError(err):
		return ErrCodeStepsExceeded
	case IsCoercionError(err):
		return ErrCodeTypeCoercion
	case compiler.IsUnsupportedOperator(err):
		return ErrCodeUnsupportedOperator
	default:
		return ErrCodeEventFailed
	}
}

// IsCoercionError returns true if err wraps an *ir.CoercionError.
func IsCoercionError(err error) bool {
	return ir.IsCoercionError(err)
}

// ErrClosed is returned by Post after the scene is closed.
var ErrClosed = errors.New("scene closed")
