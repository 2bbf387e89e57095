package variables

import "github.com/roach88/eventsheet/internal/ir"

// Chain is an explicit scope chain, innermost container first.
//
// Names resolve to the first container that declares them. Names declared
// nowhere are declared in the home container, which is the scene scope
// during a normal tick. Chains are small values; With returns a new chain
// and leaves the receiver untouched.
type Chain struct {
	scopes []*Container
	home   *Container
}

// NewChain builds a chain whose innermost container is home, followed by
// outer containers in lookup order.
func NewChain(home *Container, outer ...*Container) Chain {
	scopes := make([]*Container, 0, len(outer)+1)
	scopes = append(scopes, home)
	scopes = append(scopes, outer...)
	return Chain{scopes: scopes, home: home}
}

// With returns a chain with inner searched first. The home is unchanged.
func (c Chain) With(inner *Container) Chain {
	scopes := make([]*Container, 0, len(c.scopes)+1)
	scopes = append(scopes, inner)
	scopes = append(scopes, c.scopes...)
	return Chain{scopes: scopes, home: c.home}
}

// Home returns the container that receives undeclared names.
func (c Chain) Home() *Container {
	return c.home
}

// Scopes returns the containers in lookup order.
func (c Chain) Scopes() []*Container {
	return c.scopes
}

// owner returns the container declaring name, falling back to home.
func (c Chain) owner(name string) *Container {
	for _, s := range c.scopes {
		if s.Has(name) {
			return s
		}
	}
	return c.home
}

// Resolve reads the variable at p. A missing root is declared in the home
// container; a missing descendant reads as Number(0) and is not declared.
func (c Chain) Resolve(p Path) ir.Variable {
	root := c.owner(p.Root).Get(p.Root)
	v, ok := getPath(root, p.Accessors)
	if !ok {
		return ir.Zero()
	}
	return v
}

// Exists reports whether the value at p is present without declaring it.
func (c Chain) Exists(p Path) bool {
	for _, s := range c.scopes {
		if root, ok := s.Lookup(p.Root); ok {
			_, found := getPath(root, p.Accessors)
			return found
		}
	}
	return false
}

// Assign writes v at p in the container that declares the root, or in the
// home container when none does.
func (c Chain) Assign(p Path, v ir.Variable) {
	c.Update(p, func(ir.Variable) ir.Variable { return v })
}

// Update replaces the value at p with fn(current). Missing values are
// passed to fn as Number(0).
func (c Chain) Update(p Path, fn func(ir.Variable) ir.Variable) {
	s := c.owner(p.Root)
	root := s.Get(p.Root)
	cur, ok := getPath(root, p.Accessors)
	if !ok {
		cur = ir.Zero()
	}
	s.Set(p.Root, setPath(root, p.Accessors, fn(cur)))
}
