package compiler

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/roach88/eventsheet/internal/ir"
	"github.com/roach88/eventsheet/internal/operator"
	"github.com/roach88/eventsheet/internal/variables"
)

// Compiler turns declarative events into trees of closures.
//
// A Compiler only holds its registry, so it may be shared. Every call
// compiles from scratch: compiling the same events twice yields
// independent units with identical behavior and their own Once state.
type Compiler struct {
	registry *Registry
}

// New returns a compiler over registry, or over the built-ins when
// registry is nil.
func New(registry *Registry) *Compiler {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Compiler{registry: registry}
}

// Registry returns the compiler's instruction registry.
func (c *Compiler) Registry() *Registry {
	return c.registry
}

// CompileEvent compiles one event. Link events fail with E205 because
// there is no project to resolve them against.
func (c *Compiler) CompileEvent(e ir.Event) (Unit, error) {
	comp := c.begin(nil, false)
	u, err := comp.compileEvent(e, "event")
	if err != nil {
		return nil, err
	}
	if u == nil {
		return noop, nil
	}
	return u, nil
}

// CompileEvents compiles an event list outside any project.
func (c *Compiler) CompileEvents(events []ir.Event) (Unit, error) {
	return c.begin(nil, false).compileEvents(events, "events")
}

// CompileScene compiles the named scene of p, inlining linked external
// events.
func (c *Compiler) CompileScene(p *ir.Project, scene string) (*Program, error) {
	s, ok := p.Scene(scene)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSceneNotFound, scene)
	}

	comp := c.begin(p, false)
	root, err := comp.compileEvents(s.Events, "events")
	if err != nil {
		return nil, err
	}

	hash, err := ir.ProgramHash(s.Events, comp.linked)
	if err != nil {
		return nil, fmt.Errorf("hash scene %q: %w", scene, err)
	}

	return &Program{Scene: s.Name, Hash: hash, Stats: comp.stats, root: root}, nil
}

func (c *Compiler) begin(p *ir.Project, collect bool) *compilation {
	return &compilation{
		registry: c.registry,
		project:  p,
		collect:  collect,
		linked:   make(map[string][]ir.Event),
	}
}

// compilation is the state of one compile or validate call.
//
// In collect mode errors are recorded and the offending instruction or
// event is skipped, so one pass reports every problem.
type compilation struct {
	registry *Registry
	project  *ir.Project
	collect  bool
	errs     []*CompileError
	stats    Stats
	stack    []string
	linked   map[string][]ir.Event
}

// fail returns the first error, or records all of them in collect mode
// and returns nil so the caller skips the failed node.
func (c *compilation) fail(errs ...*CompileError) error {
	if c.collect {
		c.errs = append(c.errs, errs...)
		return nil
	}
	return errs[0]
}

func noop(*Frame) error { return nil }

func sequence(units []Unit) Unit {
	switch len(units) {
	case 0:
		return noop
	case 1:
		return units[0]
	}
	return func(f *Frame) error {
		for _, u := range units {
			if err := u(f); err != nil {
				return err
			}
		}
		return nil
	}
}

// guard confines non-fatal errors to the event at path.
func guard(path string, body Unit) Unit {
	return func(f *Frame) error {
		err := body(f)
		if err == nil || IsFatal(err) {
			return err
		}
		f.report(path, err)
		return nil
	}
}

func (c *compilation) compileEvents(events []ir.Event, prefix string) (Unit, error) {
	units := make([]Unit, 0, len(events))
	for i, e := range events {
		u, err := c.compileEvent(e, fmt.Sprintf("%s[%d]", prefix, i))
		if err != nil {
			return nil, err
		}
		if u != nil {
			units = append(units, u)
		}
	}
	return sequence(units), nil
}

// compileEvent returns nil for events that compile to nothing.
func (c *compilation) compileEvent(e ir.Event, path string) (Unit, error) {
	if e.Disabled {
		return nil, nil
	}
	kind := e.Kind()
	if kind == ir.EventComment {
		return nil, nil
	}
	c.stats.Events++

	var (
		body Unit
		err  error
	)
	switch kind {
	case ir.EventStandard:
		body, err = c.compileStandard(e, path)
	case ir.EventGroup:
		body, err = c.compileGroup(e, path)
	case ir.EventLink:
		body, err = c.compileLink(e, path)
	case ir.EventRepeat:
		body, err = c.compileRepeat(e, path)
	case ir.EventForEach:
		body, err = c.compileForEach(e, path)
	default:
		return nil, c.fail(&CompileError{
			Code:    ErrUnknownInstructionKind,
			Path:    path,
			Kind:    kind,
			Message: fmt.Sprintf("unknown event kind %q", kind),
		})
	}
	if err != nil || body == nil {
		return nil, err
	}
	return guard(path, body), nil
}

func (c *compilation) compileStandard(e ir.Event, path string) (Unit, error) {
	conds, err := c.compileConditions(e.Conditions, path+".conditions")
	if err != nil {
		return nil, err
	}
	acts, err := c.compileActions(e.Actions, path+".actions")
	if err != nil {
		return nil, err
	}
	subs, err := c.compileEvents(e.Events, path+".events")
	if err != nil {
		return nil, err
	}

	return func(f *Frame) error {
		ok, err := EvaluateConditions(conds, f)
		if err != nil || !ok {
			return err
		}
		for _, a := range acts {
			if err := a(f); err != nil {
				return err
			}
		}
		return subs(f)
	}, nil
}

func (c *compilation) compileGroup(e ir.Event, path string) (Unit, error) {
	if len(e.Conditions) > 0 || len(e.Actions) > 0 {
		err := c.fail(&CompileError{
			Code:    ErrGroupInstructions,
			Path:    path,
			Kind:    ir.EventGroup,
			Message: "group events cannot have conditions or actions",
		})
		if err != nil {
			return nil, err
		}
	}
	return c.compileEvents(e.Events, path+".events")
}

func (c *compilation) compileLink(e ir.Event, path string) (Unit, error) {
	target := e.Target
	var ext *ir.ExternalEvents
	if c.project != nil {
		ext, _ = c.project.External(target)
	}
	if ext == nil {
		return nil, c.fail(&CompileError{
			Code:    ErrUnknownLinkTarget,
			Path:    path,
			Kind:    ir.EventLink,
			Message: fmt.Sprintf("link target %q not found", target),
		})
	}
	// Validation reports cycles once per cycle from the link graph.
	if c.collect {
		return nil, nil
	}
	if i := slices.Index(c.stack, target); i >= 0 {
		cycle := append(slices.Clone(c.stack[i:]), target)
		return nil, c.fail(&CompileError{
			Code:    ErrLinkCycle,
			Path:    path,
			Kind:    ir.EventLink,
			Message: "link cycle: " + strings.Join(cycle, " -> "),
		})
	}

	c.stats.Links++
	c.linked[target] = ext.Events
	c.stack = append(c.stack, target)
	defer func() { c.stack = c.stack[:len(c.stack)-1] }()

	return c.compileEvents(ext.Events, path+"->"+target)
}

func (c *compilation) compileRepeat(e ir.Event, path string) (Unit, error) {
	exprPath := path + ".repeatExpression"
	if strings.TrimSpace(e.RepeatExpression) == "" {
		return nil, c.fail(&CompileError{
			Code:    ErrInvalidOperand,
			Path:    exprPath,
			Kind:    ir.EventRepeat,
			Message: "repeat expression is empty",
		})
	}
	count, err := ParseOperand(e.RepeatExpression)
	if err != nil {
		return nil, c.fail(&CompileError{
			Code:    ErrInvalidOperand,
			Path:    exprPath,
			Kind:    ir.EventRepeat,
			Message: fmt.Sprintf("invalid operand %s: %v", e.RepeatExpression, err),
			Err:     err,
		})
	}
	body, err := c.compileStandard(e, path)
	if err != nil || body == nil {
		return nil, err
	}

	return func(f *Frame) error {
		n, err := f.Eval.Number(count.Resolve(f))
		if err != nil {
			return err
		}
		for i := 0; i < repeatTimes(n); i++ {
			if err := body(f); err != nil {
				return err
			}
		}
		return nil
	}, nil
}

// repeatTimes floors n and clamps it to [0, MaxInt32]; the step budget
// bounds the rest.
func repeatTimes(n float64) int {
	if math.IsNaN(n) || n < 1 {
		return 0
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Floor(n))
}

func (c *compilation) compileForEach(e ir.Event, path string) (Unit, error) {
	object := strings.TrimSpace(e.Object)
	if object == "" {
		return nil, c.fail(&CompileError{
			Code:    ErrInvalidOperand,
			Path:    path + ".object",
			Kind:    ir.EventForEach,
			Message: "for each event has no object",
		})
	}
	body, err := c.compileStandard(e, path)
	if err != nil || body == nil {
		return nil, err
	}

	return func(f *Frame) error {
		if f.Instances == nil {
			return nil
		}
		for _, inst := range f.Instances.Instances(object) {
			scoped := *f
			scoped.Vars = f.Vars.With(inst)
			if err := body(&scoped); err != nil {
				return err
			}
		}
		return nil
	}, nil
}

func (c *compilation) compileConditions(list []ir.Instruction, prefix string) ([]Condition, error) {
	conds := make([]Condition, 0, len(list))
	for i, in := range list {
		cond, err := c.compileCondition(in, fmt.Sprintf("%s[%d]", prefix, i))
		if err != nil {
			return nil, err
		}
		if cond != nil {
			conds = append(conds, cond)
		}
	}
	return conds, nil
}

func (c *compilation) compileCondition(in ir.Instruction, path string) (Condition, error) {
	kind := in.Kind()
	spec, ok := c.registry.Condition(kind)
	if !ok {
		return nil, c.fail(&CompileError{
			Code:    ErrUnknownInstructionKind,
			Path:    path,
			Kind:    kind,
			Message: fmt.Sprintf("unknown condition kind %q", kind),
		})
	}

	var (
		params []Param
		sub    []Condition
	)
	if spec.SubInstructions {
		var err error
		if sub, err = c.compileConditions(in.SubInstructions, path+".subInstructions"); err != nil {
			return nil, err
		}
	} else {
		parseOp := func(tok string) error {
			_, err := operator.ParseComparison(tok, spec.Comparisons...)
			return err
		}
		var errs []*CompileError
		if params, errs = checkParams(in, spec.Params, parseOp, path); len(errs) > 0 {
			return nil, c.fail(errs...)
		}
	}

	cond, err := spec.Build(params, sub)
	if err != nil {
		return nil, c.fail(buildError(path, kind, err))
	}
	c.stats.Conditions++

	inverted := in.Type.Inverted
	return func(f *Frame) (bool, error) {
		if err := f.charge(); err != nil {
			return false, err
		}
		ok, err := cond(f)
		if err != nil {
			return false, fmt.Errorf("%s: %w", kind, err)
		}
		return ok != inverted, nil
	}, nil
}

func (c *compilation) compileActions(list []ir.Instruction, prefix string) ([]Action, error) {
	acts := make([]Action, 0, len(list))
	for i, in := range list {
		act, err := c.compileAction(in, fmt.Sprintf("%s[%d]", prefix, i))
		if err != nil {
			return nil, err
		}
		if act != nil {
			acts = append(acts, act)
		}
	}
	return acts, nil
}

func (c *compilation) compileAction(in ir.Instruction, path string) (Action, error) {
	kind := in.Kind()
	spec, ok := c.registry.Action(kind)
	if !ok {
		return nil, c.fail(&CompileError{
			Code:    ErrUnknownInstructionKind,
			Path:    path,
			Kind:    kind,
			Message: fmt.Sprintf("unknown action kind %q", kind),
		})
	}

	parseOp := func(tok string) error {
		_, err := operator.ParseModifier(tok, spec.Modifiers...)
		return err
	}
	params, errs := checkParams(in, spec.Params, parseOp, path)
	if len(errs) > 0 {
		return nil, c.fail(errs...)
	}

	act, err := spec.Build(params)
	if err != nil {
		return nil, c.fail(buildError(path, kind, err))
	}
	c.stats.Actions++

	return func(f *Frame) error {
		if err := f.charge(); err != nil {
			return err
		}
		if err := act(f); err != nil {
			return fmt.Errorf("%s: %w", kind, err)
		}
		return nil
	}, nil
}

// checkParams checks the parameter count, then every parameter against
// its kind, returning all problems found.
func checkParams(in ir.Instruction, kinds []ParamKind, parseOp func(string) error, path string) ([]Param, []*CompileError) {
	kind := in.Kind()
	if len(in.Parameters) != len(kinds) {
		return nil, []*CompileError{{
			Code:    ErrParameterCount,
			Path:    path,
			Kind:    kind,
			Message: fmt.Sprintf("%s expects %d parameters, got %d", kind, len(kinds), len(in.Parameters)),
		}}
	}

	params := make([]Param, len(kinds))
	var errs []*CompileError
	for i, pk := range kinds {
		tok := in.Parameters[i]
		ppath := fmt.Sprintf("%s.parameters[%d]", path, i)
		params[i].Kind = pk

		switch pk {
		case ParamVariable:
			p, err := variables.ParsePath(strings.TrimSpace(tok))
			if err != nil {
				errs = append(errs, &CompileError{Code: ErrInvalidVariableName, Path: ppath, Kind: kind, Message: err.Error(), Err: err})
				continue
			}
			params[i].Path = p
		case ParamOperator:
			op := strings.TrimSpace(tok)
			if err := parseOp(op); err != nil {
				errs = append(errs, &CompileError{
					Code:    ErrUnsupportedOperator,
					Path:    ppath,
					Kind:    kind,
					Message: fmt.Sprintf("operator %q is not supported by %s", op, kind),
					Err:     err,
				})
				continue
			}
			params[i].Operator = op
		case ParamValue:
			o, err := ParseOperand(tok)
			if err != nil {
				errs = append(errs, &CompileError{
					Code:    ErrInvalidOperand,
					Path:    ppath,
					Kind:    kind,
					Message: fmt.Sprintf("invalid operand %s: %v", tok, err),
					Err:     err,
				})
				continue
			}
			params[i].Operand = o
		}
	}
	return params, errs
}

func buildError(path, kind string, err error) *CompileError {
	return &CompileError{
		Code:    ErrInvalidOperand,
		Path:    path,
		Kind:    kind,
		Message: err.Error(),
		Err:     err,
	}
}
