package compiler

import (
	"fmt"

	"github.com/roach88/eventsheet/internal/ir"
)

// Validate checks every scene and external events list of p against
// registry and returns all problems found, in document order followed by
// link cycles. A nil registry means the built-ins.
//
// Validate never stops at the first error. Disabled events are skipped.
func Validate(p *ir.Project, registry *Registry) []ValidationError {
	if registry == nil {
		registry = NewRegistry()
	}
	var errs []ValidationError

	// E209: names must be unique
	scenes := make(map[string]bool)
	for i, s := range p.Layouts {
		if scenes[s.Name] {
			errs = append(errs, ValidationError{
				Code:    ErrDuplicateName,
				Path:    fmt.Sprintf("layouts[%d]", i),
				Message: fmt.Sprintf("duplicate scene name: %q", s.Name),
			})
		}
		scenes[s.Name] = true
	}
	externals := make(map[string]bool)
	for i, ext := range p.ExternalEvents {
		if externals[ext.Name] {
			errs = append(errs, ValidationError{
				Code:    ErrDuplicateName,
				Path:    fmt.Sprintf("externalEvents[%d]", i),
				Message: fmt.Sprintf("duplicate external events name: %q", ext.Name),
			})
		}
		externals[ext.Name] = true
	}

	comp := New(registry).begin(p, true)
	for i, s := range p.Layouts {
		// collect mode records instead of returning errors
		_, _ = comp.compileEvents(s.Events, fmt.Sprintf("layouts[%d].events", i))
	}
	for i, ext := range p.ExternalEvents {
		_, _ = comp.compileEvents(ext.Events, fmt.Sprintf("externalEvents[%d].events", i))
	}
	for _, ce := range comp.errs {
		errs = append(errs, ValidationError{Code: ce.Code, Path: ce.Path, Message: ce.Message})
	}

	return append(errs, linkCycleErrors(p)...)
}

// ValidateEvents checks a standalone event list. Links cannot be
// resolved and are reported as E205.
func ValidateEvents(events []ir.Event, registry *Registry) []ValidationError {
	if registry == nil {
		registry = NewRegistry()
	}
	comp := New(registry).begin(nil, true)
	_, _ = comp.compileEvents(events, "events")

	errs := make([]ValidationError, 0, len(comp.errs))
	for _, ce := range comp.errs {
		errs = append(errs, ValidationError{Code: ce.Code, Path: ce.Path, Message: ce.Message})
	}
	return errs
}
