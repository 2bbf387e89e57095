package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// NamedVariable is one serialized variable entry: a name plus its value.
type NamedVariable struct {
	Name  string
	Value Variable
}

// VariableList is the serialized form of a variable container.
type VariableList []NamedVariable

// variableJSON mirrors the project-file variable entry.
// Structure children carry names; array children do not.
type variableJSON struct {
	Name     string          `json:"name,omitempty"`
	Type     Kind            `json:"type,omitempty"`
	Value    json.RawMessage `json:"value,omitempty"`
	Children []variableJSON  `json:"children,omitempty"`
}

// MarshalJSON implements json.Marshaler for NamedVariable.
func (n NamedVariable) MarshalJSON() ([]byte, error) {
	vj, err := toVariableJSON(n.Name, n.Value)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", n.Name, err)
	}
	return json.Marshal(vj)
}

// UnmarshalJSON implements json.Unmarshaler for NamedVariable.
func (n *NamedVariable) UnmarshalJSON(data []byte) error {
	var vj variableJSON
	if err := json.Unmarshal(data, &vj); err != nil {
		return err
	}
	v, err := fromVariableJSON(vj)
	if err != nil {
		return fmt.Errorf("variable %q: %w", vj.Name, err)
	}
	n.Name = vj.Name
	n.Value = v
	return nil
}

// MarshalVariable encodes an unnamed variable as {"type":...,"value"|"children":...}.
func MarshalVariable(v Variable) ([]byte, error) {
	vj, err := toVariableJSON("", v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(vj)
}

// UnmarshalVariable decodes the output of MarshalVariable.
func UnmarshalVariable(data []byte) (Variable, error) {
	var vj variableJSON
	if err := json.Unmarshal(data, &vj); err != nil {
		return nil, err
	}
	return fromVariableJSON(vj)
}

func toVariableJSON(name string, v Variable) (variableJSON, error) {
	vj := variableJSON{Name: name}
	switch val := orZero(v).(type) {
	case Number:
		vj.Type = KindNumber
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			// encoding/json rejects non-finite floats
			raw, err := json.Marshal(FormatNumber(f))
			if err != nil {
				return vj, err
			}
			vj.Value = raw
			return vj, nil
		}
		raw, err := json.Marshal(f)
		if err != nil {
			return vj, err
		}
		vj.Value = raw
	case String:
		vj.Type = KindString
		raw, err := json.Marshal(string(val))
		if err != nil {
			return vj, err
		}
		vj.Value = raw
	case Structure:
		vj.Type = KindStructure
		vj.Children = make([]variableJSON, 0, val.Len())
		for _, p := range val.Pairs() {
			child, err := toVariableJSON(p.Name, p.Value)
			if err != nil {
				return vj, fmt.Errorf("child %q: %w", p.Name, err)
			}
			vj.Children = append(vj.Children, child)
		}
	case Array:
		vj.Type = KindArray
		vj.Children = make([]variableJSON, 0, len(val))
		for i, elem := range val {
			child, err := toVariableJSON("", elem)
			if err != nil {
				return vj, fmt.Errorf("child [%d]: %w", i, err)
			}
			vj.Children = append(vj.Children, child)
		}
	default:
		return vj, fmt.Errorf("unknown variable type %T", v)
	}
	return vj, nil
}

func fromVariableJSON(vj variableJSON) (Variable, error) {
	switch vj.Type {
	case KindNumber, "":
		return decodeNumberValue(vj.Value)
	case KindString:
		return decodeStringValue(vj.Value)
	case KindStructure:
		pairs := make([]Pair, 0, len(vj.Children))
		for _, c := range vj.Children {
			if c.Name == "" {
				return nil, fmt.Errorf("structure child without a name")
			}
			v, err := fromVariableJSON(c)
			if err != nil {
				return nil, fmt.Errorf("child %q: %w", c.Name, err)
			}
			pairs = append(pairs, P(c.Name, v))
		}
		return NewStructure(pairs...), nil
	case KindArray:
		arr := make(Array, 0, len(vj.Children))
		for i, c := range vj.Children {
			v, err := fromVariableJSON(c)
			if err != nil {
				return nil, fmt.Errorf("child [%d]: %w", i, err)
			}
			arr = append(arr, v)
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unknown variable type %q", vj.Type)
	}
}

// decodeNumberValue accepts a JSON number or a numeric string.
func decodeNumberValue(raw json.RawMessage) (Variable, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Zero(), nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		switch s {
		case "NaN":
			return Number(math.NaN()), nil
		case "Infinity":
			return Number(math.Inf(1)), nil
		case "-Infinity":
			return Number(math.Inf(-1)), nil
		}
		f, ok := ParseNumber(s)
		if !ok {
			return nil, fmt.Errorf("number value %q is not numeric", s)
		}
		return Number(f), nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("number value: %w", err)
	}
	return Number(f), nil
}

// decodeStringValue accepts a JSON string, or a number rendered canonically.
func decodeStringValue(raw json.RawMessage) (Variable, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return String(""), nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return String(s), nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("string value: %w", err)
	}
	return String(FormatNumber(f)), nil
}

// Lookup returns the value of the named entry.
func (l VariableList) Lookup(name string) (Variable, bool) {
	for _, nv := range l {
		if nv.Name == name {
			return nv.Value, true
		}
	}
	return nil, false
}
