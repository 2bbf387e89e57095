package ir

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// decimalPattern is the only numeric syntax accepted from strings.
// strconv.ParseFloat alone would also accept "inf", "NaN" and hex floats.
var decimalPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// CoercionError reports a value that could not be converted to another kind.
// In forgiving mode callers discard it and use the zero value.
type CoercionError struct {
	From  Kind
	To    Kind
	Value string
}

// Error implements the error interface.
func (e *CoercionError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("cannot coerce %s to %s", e.From, e.To)
	}
	return fmt.Sprintf("cannot coerce %s %q to %s", e.From, e.Value, e.To)
}

// IsCoercionError returns true if err wraps a CoercionError.
func IsCoercionError(err error) bool {
	var ce *CoercionError
	return errors.As(err, &ce)
}

// IsNumeric reports whether s is a decimal number literal.
func IsNumeric(s string) bool {
	return decimalPattern.MatchString(s)
}

// ParseNumber parses a decimal string, ignoring surrounding whitespace.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !IsNumeric(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Out of range still yields ±Inf, which matches float semantics.
		var ne *strconv.NumError
		if errors.As(err, &ne) && errors.Is(ne.Err, strconv.ErrRange) {
			return f, true
		}
		return 0, false
	}
	return f, true
}

// FormatNumber renders f in canonical decimal form: shortest round-trip
// digits, no exponent, "0" for negative zero.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ToNumber converts v to a float64.
// Unparsable strings and structured values return 0 and a CoercionError.
func ToNumber(v Variable) (float64, error) {
	switch val := v.(type) {
	case Number:
		return float64(val), nil
	case String:
		f, ok := ParseNumber(string(val))
		if !ok {
			return 0, &CoercionError{From: KindString, To: KindNumber, Value: string(val)}
		}
		return f, nil
	case nil:
		return 0, nil
	default:
		return 0, &CoercionError{From: v.Kind(), To: KindNumber}
	}
}

// ToString converts v to a string.
// Structured values return "" and a CoercionError.
func ToString(v Variable) (string, error) {
	switch val := v.(type) {
	case String:
		return string(val), nil
	case Number:
		return FormatNumber(float64(val)), nil
	case nil:
		return "0", nil
	default:
		return "", &CoercionError{From: v.Kind(), To: KindString}
	}
}

// AsNumber is the forgiving form of ToNumber.
func AsNumber(v Variable) float64 {
	f, _ := ToNumber(v)
	return f
}

// AsString is the forgiving form of ToString.
func AsString(v Variable) string {
	s, _ := ToString(v)
	return s
}
