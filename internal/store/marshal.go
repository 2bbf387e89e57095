package store

import (
	"fmt"

	"github.com/roach88/eventsheet/internal/engine"
	"github.com/roach88/eventsheet/internal/ir"
	"github.com/roach88/eventsheet/internal/variables"
)

// marshalValue encodes a variable as TEXT in the serialized variable
// format. Deleted changes store an empty string.
func marshalValue(c engine.Change) (string, error) {
	if c.Deleted {
		return "", nil
	}
	if c.Value == nil {
		return "", fmt.Errorf("marshal value: %s has no value", c.Name)
	}
	data, err := ir.MarshalVariable(c.Value)
	if err != nil {
		return "", fmt.Errorf("marshal value %s: %w", c.Name, err)
	}
	return string(data), nil
}

// unmarshalValue decodes the output of marshalValue.
func unmarshalValue(data string) (ir.Variable, error) {
	if data == "" {
		return nil, nil
	}
	v, err := ir.UnmarshalVariable([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return v, nil
}

// changeFromRow rebuilds a Change from its stored columns.
func changeFromRow(scope, owner string, instance int, name, valueJSON string, deleted bool) (engine.Change, error) {
	sc, err := variables.ParseScope(scope)
	if err != nil {
		return engine.Change{}, fmt.Errorf("change %s: %w", name, err)
	}
	v, err := unmarshalValue(valueJSON)
	if err != nil {
		return engine.Change{}, fmt.Errorf("change %s: %w", name, err)
	}
	return engine.Change{
		Scope:    sc,
		Owner:    owner,
		Instance: instance,
		Name:     name,
		Value:    v,
		Deleted:  deleted,
	}, nil
}
