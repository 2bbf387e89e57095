package variables

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eventsheet/internal/ir"
)

func TestContainerDeclareOnRead(t *testing.T) {
	c := New(Scene)

	assert.False(t, c.Has("Missing"))
	assert.Equal(t, ir.Number(0), c.Get("Missing"))
	assert.True(t, c.Has("Missing"), "Get declares absent names")

	_, ok := c.Lookup("Other")
	assert.False(t, ok)
	assert.False(t, c.Has("Other"), "Lookup does not declare")
}

func TestContainerSetRetypes(t *testing.T) {
	c := New(Scene)

	c.Set("V", ir.Number(3))
	assert.Equal(t, ir.Number(3), c.Get("V"))

	c.Set("V", ir.String("three"))
	assert.Equal(t, ir.String("three"), c.Get("V"))

	c.Set("V", nil)
	assert.Equal(t, ir.Number(0), c.Get("V"))
}

func TestContainerCoercingReads(t *testing.T) {
	c := New(Global)
	c.Set("N", ir.String("12.5"))
	c.Set("S", ir.Number(7))
	c.Set("Bad", ir.String("twelve"))

	assert.Equal(t, 12.5, c.AsNumber("N"))
	assert.Equal(t, "7", c.AsString("S"))
	assert.Equal(t, 0.0, c.AsNumber("Bad"))
	assert.Equal(t, 0.0, c.AsNumber("Undeclared"))
	assert.True(t, c.Has("Undeclared"))
}

func TestContainerSnapshotSortedAndDetached(t *testing.T) {
	c := New(Scene)
	c.Set("b", ir.Number(2))
	c.Set("a", ir.Array{ir.Number(1)})

	snap := c.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "a", snap[0].Name)
	assert.Equal(t, "b", snap[1].Name)

	c.Set("b", ir.Number(99))
	assert.Equal(t, ir.Number(2), snap[1].Value, "snapshot must not see later writes")
}

func TestContainerLoadReplaces(t *testing.T) {
	c := New(Scene)
	c.Set("old", ir.Number(1))

	c.Load(ir.VariableList{{Name: "new", Value: ir.String("x")}})

	assert.False(t, c.Has("old"))
	assert.Equal(t, []string{"new"}, c.Names())
}

func TestContainerRemove(t *testing.T) {
	c := New(Scene)
	c.Set("x", ir.Number(1))

	assert.True(t, c.Remove("x"))
	assert.False(t, c.Remove("x"))
	assert.Equal(t, 0, c.Len())
}

func TestInstanceContainer(t *testing.T) {
	c := NewInstance("Enemy")
	assert.Equal(t, Object, c.Scope())
	assert.Equal(t, "Enemy", c.Owner())
}

func TestParseScope(t *testing.T) {
	for _, s := range []Scope{Global, Scene, Object} {
		got, err := ParseScope(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseScope("layer")
	assert.Error(t, err)
	assert.Equal(t, "scope(9)", Scope(9).String())
}

func TestChainResolveOrder(t *testing.T) {
	global := New(Global)
	scene := New(Scene)
	global.Set("Lives", ir.Number(3))
	global.Set("Shared", ir.String("global"))
	scene.Set("Shared", ir.String("scene"))

	chain := NewChain(scene, global)

	assert.Equal(t, ir.Number(3), chain.Resolve(MustParsePath("Lives")))
	assert.Equal(t, ir.String("scene"), chain.Resolve(MustParsePath("Shared")), "inner scope shadows outer")
}

func TestChainDeclaresInHome(t *testing.T) {
	global := New(Global)
	scene := New(Scene)
	chain := NewChain(scene, global)

	assert.Equal(t, ir.Number(0), chain.Resolve(MustParsePath("Fresh")))
	assert.True(t, scene.Has("Fresh"))
	assert.False(t, global.Has("Fresh"))
}

func TestChainAssignTargetsDeclaringScope(t *testing.T) {
	global := New(Global)
	scene := New(Scene)
	global.Set("Lives", ir.Number(3))
	chain := NewChain(scene, global)

	chain.Assign(MustParsePath("Lives"), ir.Number(2))
	chain.Assign(MustParsePath("Score"), ir.Number(10))

	assert.Equal(t, ir.Number(2), global.Get("Lives"))
	assert.False(t, scene.Has("Lives"))
	assert.Equal(t, ir.Number(10), scene.Get("Score"))
}

func TestChainWithInstance(t *testing.T) {
	global := New(Global)
	scene := New(Scene)
	enemy := NewInstance("Enemy")
	enemy.Set("hp", ir.Number(5))
	base := NewChain(scene, global)

	chain := base.With(enemy)
	chain.Update(MustParsePath("hp"), func(v ir.Variable) ir.Variable {
		return ir.Number(ir.AsNumber(v) - 1)
	})
	chain.Assign(MustParsePath("Killed"), ir.Number(1))

	assert.Equal(t, ir.Number(4), enemy.Get("hp"))
	assert.True(t, scene.Has("Killed"), "undeclared names still go to the home scope")
	assert.Len(t, base.Scopes(), 2, "With must not modify the receiver")
	assert.Same(t, scene, chain.Home())
}

func TestChainChildPaths(t *testing.T) {
	scene := New(Scene)
	chain := NewChain(scene)

	chain.Assign(MustParsePath("Player.hp"), ir.Number(10))
	chain.Assign(MustParsePath("Player.name"), ir.String("Ada"))
	chain.Assign(MustParsePath("Items[1]"), ir.String("shield"))

	assert.Equal(t, ir.Number(10), chain.Resolve(MustParsePath("Player.hp")))
	assert.Equal(t, ir.Number(0), chain.Resolve(MustParsePath("Player.mana")), "missing child reads as zero")
	assert.Equal(t, ir.Array{ir.Number(0), ir.String("shield")}, scene.Get("Items"))

	assert.True(t, chain.Exists(MustParsePath("Player.name")))
	assert.False(t, chain.Exists(MustParsePath("Player.mana")))
	assert.False(t, chain.Exists(MustParsePath("Nobody")))
	assert.False(t, scene.Has("Nobody"), "Exists does not declare")
}
