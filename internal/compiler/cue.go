package compiler

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"

	"github.com/roach88/eventsheet/internal/ir"
)

//go:embed schema.cue
var schemaSource string

// LoadCUE compiles a CUE project or scene document.
func LoadCUE(filename string, src []byte) (*ir.Project, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileCUE(v)
}

// CompileCUE unifies v with the document schema, requires it to be
// concrete, and decodes it with DecodeDocument.
func CompileCUE(v cue.Value) (*ir.Project, error) {
	schema := v.Context().CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("document schema: %w", err)
	}

	doc := schema.LookupPath(cue.ParsePath("#Document")).Unify(v)
	if err := doc.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	data, err := doc.MarshalJSON()
	if err != nil {
		return nil, formatCUEError(err)
	}
	return DecodeDocument(data)
}

// formatCUEError keeps the first CUE error with its position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &CompileError{Code: ErrCUE, Message: err.Error(), Err: err}
	}

	first := errs[0]
	ce := &CompileError{Code: ErrCUE, Message: first.Error(), Err: err}
	if positions := errors.Positions(first); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}
