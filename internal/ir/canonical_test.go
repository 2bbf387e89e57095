package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalKeyOrder(t *testing.T) {
	obj := map[string]any{
		"zebra": "z",
		"apple": "a",
		"Apple": "A",
		"aa":    "aa",
	}

	out, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"Apple":"A","aa":"aa","apple":"a","zebra":"z"}`, string(out))
}

func TestMarshalCanonicalUTF16Order(t *testing.T) {
	// U+1F600 encodes as surrogates 0xD83D 0xDE00, which sort before U+FF61
	// in UTF-16 even though its UTF-8 bytes sort after.
	obj := map[string]any{
		"\uFF61":     1,
		"\U0001F600": 2,
	}

	out, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"\uFF61\":1}", string(out))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	out, err := MarshalCanonical("<a & b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(out))
}

func TestMarshalCanonicalLineSeparatorsLiteral(t *testing.T) {
	out, err := MarshalCanonical("a\u2028b\u2029c")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(out))
}

func TestMarshalCanonicalEscapes(t *testing.T) {
	out, err := MarshalCanonical("q\"b\\n\nt\tc\x01")
	require.NoError(t, err)
	assert.Equal(t, `"q\"b\\n\nt\tc\u0001"`, string(out))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	// "e" + combining acute accent normalizes to U+00E9
	decomposed, err := MarshalCanonical("e\u0301")
	require.NoError(t, err)
	composed, err := MarshalCanonical("\u00e9")
	require.NoError(t, err)

	assert.Equal(t, composed, decomposed)
}

func TestMarshalCanonicalRejectsFloatsAndNull(t *testing.T) {
	_, err := MarshalCanonical(1.5)
	assert.ErrorContains(t, err, "floats are forbidden")

	_, err = MarshalCanonical(map[string]any{"a": nil})
	assert.ErrorContains(t, err, "null is forbidden")

	_, err = MarshalCanonical(struct{}{})
	assert.ErrorContains(t, err, "unsupported type")
}

func TestMarshalCanonicalNested(t *testing.T) {
	v := map[string]any{
		"list":  []any{true, int64(3), "x", []string{"a", "b"}},
		"empty": map[string]any{},
	}

	out, err := MarshalCanonical(v)
	require.NoError(t, err)
	assert.Equal(t, `{"empty":{},"list":[true,3,"x",["a","b"]]}`, string(out))
}

func TestEventCanonicalTreeOmitsDefaults(t *testing.T) {
	e := Event{
		Actions: []Instruction{{Type: InstructionType{Value: "SetNumberVariable"}, Parameters: []string{"X", "=", "1"}}},
	}

	out, err := MarshalCanonical(e.canonicalTree())
	require.NoError(t, err)
	assert.Equal(t,
		`{"actions":[{"inverted":false,"parameters":["X","=","1"],"type":"SetNumberVariable"}],"conditions":[],"events":[],"type":"BuiltinCommonInstructions::Standard"}`,
		string(out))
}
