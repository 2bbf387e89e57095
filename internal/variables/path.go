package variables

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/roach88/eventsheet/internal/ir"
)

// Accessor is one step below a variable's root: a child name or an index.
type Accessor struct {
	Key     string
	Index   int
	IsIndex bool
}

// Path addresses a variable or one of its descendants:
//
//	Name            root variable
//	Name.child      structure child
//	Name[2]         array element
//	Name["a b"]     structure child with a name that is not an identifier
type Path struct {
	Root      string
	Accessors []Accessor
}

// PathError reports a malformed variable path.
type PathError struct {
	Path   string
	Reason string
}

// Error implements the error interface.
func (e *PathError) Error() string {
	return fmt.Sprintf("invalid variable path %q: %s", e.Path, e.Reason)
}

// ParsePath parses a variable path. The root must start with a letter or
// underscore so that numeric literals are never mistaken for names.
func ParsePath(s string) (Path, error) {
	fail := func(reason string) (Path, error) {
		return Path{}, &PathError{Path: s, Reason: reason}
	}

	i := scanName(s, 0)
	if i == 0 {
		return fail("missing variable name")
	}
	first := []rune(s[:i])[0]
	if !unicode.IsLetter(first) && first != '_' {
		return fail("variable name must start with a letter or underscore")
	}
	p := Path{Root: s[:i]}

	for i < len(s) {
		switch s[i] {
		case '.':
			j := scanName(s, i+1)
			if j == i+1 {
				return fail("empty child name")
			}
			p.Accessors = append(p.Accessors, Accessor{Key: s[i+1 : j]})
			i = j
		case '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return fail("unclosed bracket")
			}
			inner := s[i+1 : i+end]
			acc, err := parseBracket(inner)
			if err != nil {
				return fail(err.Error())
			}
			p.Accessors = append(p.Accessors, acc)
			i += end + 1
		default:
			return fail(fmt.Sprintf("unexpected character %q", s[i]))
		}
	}
	return p, nil
}

// MustParsePath is like ParsePath but panics on error.
// Use only in tests or with constant paths.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

func parseBracket(inner string) (Accessor, error) {
	if len(inner) >= 2 && inner[0] == '"' && inner[len(inner)-1] == '"' {
		key, err := strconv.Unquote(inner)
		if err != nil {
			return Accessor{}, fmt.Errorf("bad quoted child name %s", inner)
		}
		return Accessor{Key: key}, nil
	}
	n, err := strconv.Atoi(inner)
	if err != nil || n < 0 {
		return Accessor{}, fmt.Errorf("index %q is not a non-negative integer", inner)
	}
	if n > ir.MaxArrayIndex {
		return Accessor{}, fmt.Errorf("index %d is above the limit of %d", n, ir.MaxArrayIndex)
	}
	return Accessor{Index: n, IsIndex: true}, nil
}

// scanName returns the end of the name starting at i.
func scanName(s string, i int) int {
	for j, r := range s[i:] {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return i + j
		}
	}
	return len(s)
}

// String renders the path in parseable form.
func (p Path) String() string {
	var b strings.Builder
	b.WriteString(p.Root)
	for _, a := range p.Accessors {
		switch {
		case a.IsIndex:
			fmt.Fprintf(&b, "[%d]", a.Index)
		case scanName(a.Key, 0) == len(a.Key) && a.Key != "":
			b.WriteByte('.')
			b.WriteString(a.Key)
		default:
			fmt.Fprintf(&b, "[%s]", strconv.Quote(a.Key))
		}
	}
	return b.String()
}

// getPath walks accessors below v.
func getPath(v ir.Variable, accs []Accessor) (ir.Variable, bool) {
	for _, a := range accs {
		var ok bool
		switch cur := v.(type) {
		case ir.Structure:
			if a.IsIndex {
				return nil, false
			}
			v, ok = cur.Get(a.Key)
		case ir.Array:
			if !a.IsIndex {
				return nil, false
			}
			v, ok = cur.Get(a.Index)
		default:
			return nil, false
		}
		if !ok {
			return nil, false
		}
	}
	return v, true
}

// setPath returns v with the descendant at accs replaced by nv.
// Intermediates of the wrong shape are replaced by an empty structure
// (child name) or array (index). An index outside [0, ir.MaxArrayIndex]
// leaves v unchanged.
func setPath(v ir.Variable, accs []Accessor, nv ir.Variable) ir.Variable {
	if len(accs) == 0 {
		return nv
	}
	a, rest := accs[0], accs[1:]
	if a.IsIndex {
		if a.Index < 0 || a.Index > ir.MaxArrayIndex {
			return v
		}
		arr, ok := v.(ir.Array)
		if !ok {
			arr = ir.Array{}
		}
		child, found := arr.Get(a.Index)
		if !found {
			child = ir.Zero()
		}
		return arr.With(a.Index, setPath(child, rest, nv))
	}
	st, ok := v.(ir.Structure)
	if !ok {
		st = ir.NewStructure()
	}
	child, found := st.Get(a.Key)
	if !found {
		child = ir.Zero()
	}
	return st.With(a.Key, setPath(child, rest, nv))
}
