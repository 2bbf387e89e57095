package ir

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON for hashing.
// It accepts trees of map[string]any, []any, string, bool and integers.
//
// Differences from encoding/json:
//   - object keys sorted by UTF-16 code units, not UTF-8 bytes
//   - no HTML escaping, and U+2028/U+2029 are written literally
//   - strings are NFC normalized
//   - floats and null are rejected
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		writeCanonicalString(buf, val)
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case []string:
		buf.WriteByte('[')
		for i, s := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalString(buf, s)
		}
		buf.WriteByte(']')
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, compareUTF16)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalString(buf, k)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("%q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	case float32, float64:
		return fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// writeCanonicalString escapes only what RFC 8785 requires: quote,
// backslash and control characters below U+0020.
func writeCanonicalString(buf *bytes.Buffer, s string) {
	s = norm.NFC.String(s)
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '\b':
			buf.WriteString(`\b`)
		case r == '\f':
			buf.WriteString(`\f`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r < 0x20:
			fmt.Fprintf(buf, `\u%04x`, r)
		default:
			buf.WriteString(s[i : i+size])
		}
		i += size
	}
	buf.WriteByte('"')
}

// compareUTF16 orders strings by UTF-16 code units as RFC 8785 requires.
// Go's native string order is by UTF-8 bytes, which differs above U+FFFF.
func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}

// canonicalTree converts an instruction to a canonical-JSON tree.
func (in Instruction) canonicalTree() map[string]any {
	params := in.Parameters
	if params == nil {
		params = []string{}
	}
	tree := map[string]any{
		"type":       in.Type.Value,
		"inverted":   in.Type.Inverted,
		"parameters": params,
	}
	if len(in.SubInstructions) > 0 {
		tree["subInstructions"] = instructionsTree(in.SubInstructions)
	}
	return tree
}

// canonicalTree converts an event to a canonical-JSON tree. Empty optional
// fields are omitted so that documents differing only in omitted defaults
// hash the same.
func (e Event) canonicalTree() map[string]any {
	tree := map[string]any{
		"type":       e.Kind(),
		"conditions": instructionsTree(e.Conditions),
		"actions":    instructionsTree(e.Actions),
		"events":     EventsTree(e.Events),
	}
	if e.Disabled {
		tree["disabled"] = true
	}
	if e.Name != "" {
		tree["name"] = e.Name
	}
	if e.Target != "" {
		tree["target"] = e.Target
	}
	if e.Object != "" {
		tree["object"] = e.Object
	}
	if e.RepeatExpression != "" {
		tree["repeatExpression"] = e.RepeatExpression
	}
	return tree
}

func instructionsTree(ins []Instruction) []any {
	out := make([]any, len(ins))
	for i, in := range ins {
		out[i] = in.canonicalTree()
	}
	return out
}

// EventsTree converts an event list to a canonical-JSON tree.
func EventsTree(events []Event) []any {
	out := make([]any, len(events))
	for i, e := range events {
		out[i] = e.canonicalTree()
	}
	return out
}
