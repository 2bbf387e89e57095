package compiler

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"

	"github.com/roach88/eventsheet/internal/operator"
)

// Error codes shared by compilation and validation.
const (
	ErrCUE                    = "E200" // CUE syntax or schema error
	ErrUnknownInstructionKind = "E201" // unknown condition, action or event kind
	ErrUnsupportedOperator    = "E202" // operator not accepted by the instruction
	ErrParameterCount         = "E203" // wrong number of parameters
	ErrInvalidVariableName    = "E204" // variable parameter is not a valid path
	ErrUnknownLinkTarget      = "E205" // link names missing external events
	ErrLinkCycle              = "E206" // links include each other
	ErrInvalidOperand         = "E207" // value parameter cannot be parsed
	ErrGroupInstructions      = "E208" // group event carries conditions or actions
	ErrDuplicateName          = "E209" // duplicate scene or external events name
)

// ErrSceneNotFound is returned when a requested scene is not in the project.
var ErrSceneNotFound = errors.New("scene not found")

// CompileError is a compile-time failure located at an event path such as
// events[0].events[1].conditions[0].
type CompileError struct {
	Code    string
	Path    string
	Kind    string // instruction or event kind, if known
	Message string
	Pos     token.Pos // CUE source position, if any
	Err     error
}

func (e *CompileError) Error() string {
	loc := e.Path
	if e.Pos.IsValid() {
		loc = fmt.Sprintf("%s:%d:%d", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column())
	}
	if loc == "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, loc, e.Message)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// IsUnknownInstructionKind returns true if err is an E201 CompileError.
func IsUnknownInstructionKind(err error) bool {
	return hasCode(err, ErrUnknownInstructionKind)
}

// IsUnsupportedOperator returns true if err is an E202 CompileError or a
// runtime *operator.UnsupportedOperatorError.
func IsUnsupportedOperator(err error) bool {
	return hasCode(err, ErrUnsupportedOperator) || operator.IsUnsupportedOperator(err)
}

// IsLinkCycle returns true if err is an E206 CompileError.
func IsLinkCycle(err error) bool {
	return hasCode(err, ErrLinkCycle)
}

func hasCode(err error, code string) bool {
	var ce *CompileError
	return errors.As(err, &ce) && ce.Code == code
}

// ValidationError is one problem reported by Validate.
type ValidationError struct {
	Code    string
	Path    string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Path, e.Message)
}

// fatal is implemented by errors that abandon the whole tick rather than
// the current event.
type fatal interface {
	Fatal() bool
}

// IsFatal reports whether err must propagate past event boundaries.
func IsFatal(err error) bool {
	var f fatal
	return errors.As(err, &f) && f.Fatal()
}
