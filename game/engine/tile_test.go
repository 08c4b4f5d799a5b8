package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaAcquireRelease(t *testing.T) {
	a := NewArena(DefaultMeasurer())

	first := a.Acquire("c")
	second := a.Acquire("a")
	assert.Equal(t, 1, first.ID)
	assert.Equal(t, 2, second.ID)
	assert.True(t, first.InteractionEnabled)
	assert.Equal(t, 2, a.Len())

	require.NoError(t, a.Release(first.ID))
	assert.ErrorIs(t, a.Release(first.ID), ErrTileNotFound)

	_, ok := a.Get(first.ID)
	assert.False(t, ok)

	reused := a.Acquire("t")
	assert.Same(t, first, reused, "released tiles are recycled")
	assert.Equal(t, 3, reused.ID, "ids are never reused")
	assert.Equal(t, "t", reused.Text)

	a.ReleaseAll()
	assert.Zero(t, a.Len())
	assert.Empty(t, a.Active())
	assert.Equal(t, 4, a.Acquire("x").ID)
}

func TestRuneWidthMeasurer(t *testing.T) {
	m := DefaultMeasurer()

	narrow := m.Measure("a")
	assert.Equal(t, 2*m.Padding+m.CellWidth, narrow.X)
	assert.Equal(t, m.Height, narrow.Y)

	wide := m.Measure("字")
	assert.Equal(t, 2*m.Padding+2*m.CellWidth, wide.X)

	assert.Greater(t, m.Measure("quality").X, m.Measure("qu").X)
}

func TestArenaTopmostAt(t *testing.T) {
	a := NewArena(DefaultMeasurer())
	bottom := a.Acquire("b")
	top := a.Acquire("t")

	assert.Same(t, top, a.TopmostAt(0, 0), "later tiles draw above earlier ones")

	a.Raise(bottom.ID)
	assert.Same(t, bottom, a.TopmostAt(0, 0))

	bottom.InteractionEnabled = false
	assert.Same(t, top, a.TopmostAt(0, 0), "disabled tiles are not hit")

	assert.Nil(t, a.TopmostAt(500, 500))
}

func TestTileMovable(t *testing.T) {
	tile := &Tile{Width: 10, Height: 20}
	var p Placeable = tile

	p.SetPosition(3, 4)
	p.SetVelocity(1, -1)
	p.SetKinematic(true)

	assert.Equal(t, Vec2{X: 3, Y: 4}, p.Center())
	assert.Equal(t, Vec2{X: 10, Y: 20}, p.Size())
	assert.Equal(t, 1.0, tile.VX)
	assert.True(t, tile.Kinematic)
	assert.True(t, tile.HitTest(8, 14))
	assert.False(t, tile.HitTest(9, 4))
}
