package compiler

import (
	"strconv"
	"strings"

	"github.com/roach88/eventsheet/internal/ir"
	"github.com/roach88/eventsheet/internal/variables"
)

// Operand is a compiled value parameter: either a literal or a variable
// reference resolved through the frame's chain.
type Operand struct {
	token   string
	literal ir.Variable
	ref     variables.Path
	isRef   bool
}

// ParseOperand classifies a value token. Quoted tokens are string literals
// with Go escape rules, decimal tokens are numbers, valid paths are
// variable references, and anything else is a string literal.
func ParseOperand(token string) (Operand, error) {
	o := Operand{token: token}
	trimmed := strings.TrimSpace(token)

	if len(trimmed) >= 2 && trimmed[0] == '"' && trimmed[len(trimmed)-1] == '"' {
		s, err := strconv.Unquote(trimmed)
		if err != nil {
			return Operand{}, err
		}
		o.literal = ir.String(s)
		return o, nil
	}
	if n, ok := ir.ParseNumber(trimmed); ok {
		o.literal = ir.Number(n)
		return o, nil
	}
	if p, err := variables.ParsePath(trimmed); err == nil {
		o.ref = p
		o.isRef = true
		return o, nil
	}
	o.literal = ir.String(token)
	return o, nil
}

// Literal wraps v as an operand.
func Literal(v ir.Variable) Operand {
	return Operand{literal: v, token: ir.AsString(v)}
}

// IsRef reports whether the operand reads a variable.
func (o Operand) IsRef() bool {
	return o.isRef
}

// Resolve returns the operand's current value.
func (o Operand) Resolve(f *Frame) ir.Variable {
	if o.isRef {
		return f.Vars.Resolve(o.ref)
	}
	if o.literal == nil {
		return ir.Zero()
	}
	return o.literal
}

func (o Operand) String() string {
	return o.token
}
