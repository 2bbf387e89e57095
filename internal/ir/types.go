package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Event kinds understood by the compiler.
const (
	EventStandard = "BuiltinCommonInstructions::Standard"
	EventComment  = "BuiltinCommonInstructions::Comment"
	EventGroup    = "BuiltinCommonInstructions::Group"
	EventLink     = "BuiltinCommonInstructions::Link"
	EventRepeat   = "BuiltinCommonInstructions::Repeat"
	EventForEach  = "BuiltinCommonInstructions::ForEach"
)

// InstructionType names the instruction kind. Inverted applies to
// conditions only.
//
// It decodes from either {"value": kind, "inverted": bool} or a bare kind string.
type InstructionType struct {
	Value    string `json:"value"`
	Inverted bool   `json:"inverted,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler for InstructionType.
func (t *InstructionType) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		t.Inverted = false
		return json.Unmarshal(data, &t.Value)
	}
	type plain InstructionType
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("instruction type: %w", err)
	}
	*t = InstructionType(p)
	return nil
}

// Instruction is a condition or action in the declarative format.
type Instruction struct {
	Type            InstructionType `json:"type"`
	Parameters      []string        `json:"parameters"`
	SubInstructions []Instruction   `json:"subInstructions,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler for Instruction.
// A top-level "inverted" flag is honoured alongside type.inverted.
func (in *Instruction) UnmarshalJSON(data []byte) error {
	type plain Instruction
	var aux struct {
		plain
		Inverted *bool `json:"inverted"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*in = Instruction(aux.plain)
	if aux.Inverted != nil {
		in.Type.Inverted = *aux.Inverted
	}
	return nil
}

// Kind returns the instruction kind.
func (in Instruction) Kind() string {
	return in.Type.Value
}

// Event is a node of the event tree.
type Event struct {
	Type             string        `json:"type,omitempty"`
	Name             string        `json:"name,omitempty"`
	Disabled         bool          `json:"disabled,omitempty"`
	Conditions       []Instruction `json:"conditions,omitempty"`
	Actions          []Instruction `json:"actions,omitempty"`
	Events           []Event       `json:"events,omitempty"`
	Target           string        `json:"target,omitempty"`
	Object           string        `json:"object,omitempty"`
	RepeatExpression string        `json:"repeatExpression,omitempty"`
}

// Kind returns the event kind, defaulting to a standard event.
func (e Event) Kind() string {
	if e.Type == "" {
		return EventStandard
	}
	return e.Type
}

// Instance is a placed object with its own variables.
type Instance struct {
	Name      string       `json:"name"`
	Variables VariableList `json:"variables,omitempty"`
}

// Scene is a layout: initial variables, object instances and events.
type Scene struct {
	Name      string       `json:"name"`
	Variables VariableList `json:"variables,omitempty"`
	Instances []Instance   `json:"instances,omitempty"`
	Events    []Event      `json:"events"`
}

// ExternalEvents is a named event list that Link events can include.
type ExternalEvents struct {
	Name   string  `json:"name"`
	Events []Event `json:"events"`
}

// Project is the top-level document.
type Project struct {
	Name           string           `json:"name,omitempty"`
	Variables      VariableList     `json:"variables,omitempty"`
	Layouts        []Scene          `json:"layouts"`
	ExternalEvents []ExternalEvents `json:"externalEvents,omitempty"`
}

// Scene returns the named layout.
func (p *Project) Scene(name string) (*Scene, bool) {
	for i := range p.Layouts {
		if p.Layouts[i].Name == name {
			return &p.Layouts[i], true
		}
	}
	return nil, false
}

// External returns the named external events.
func (p *Project) External(name string) (*ExternalEvents, bool) {
	for i := range p.ExternalEvents {
		if p.ExternalEvents[i].Name == name {
			return &p.ExternalEvents[i], true
		}
	}
	return nil, false
}

// SceneNames returns layout names in declaration order.
func (p *Project) SceneNames() []string {
	names := make([]string, len(p.Layouts))
	for i, s := range p.Layouts {
		names[i] = s.Name
	}
	return names
}

// ProjectFromScene wraps a bare scene document into a one-scene project.
func ProjectFromScene(s Scene) *Project {
	if s.Name == "" {
		s.Name = "Scene"
	}
	return &Project{Name: s.Name, Layouts: []Scene{s}}
}

// IsBareScene reports whether a decoded top-level object is a scene rather
// than a project: it has "events" and no "layouts".
func IsBareScene(fields map[string]json.RawMessage) bool {
	_, hasLayouts := fields["layouts"]
	_, hasEvents := fields["events"]
	return hasEvents && !hasLayouts
}
