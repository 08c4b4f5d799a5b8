package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntegrate(t *testing.T) {
	world := CenteredBounds(1000, 1000)

	t.Run("moves and damps", func(t *testing.T) {
		tile := &Tile{Width: 58, Height: 54, VX: 10}
		Integrate([]*Tile{tile}, FrameDuration, world, 0.9)
		assert.InDelta(t, 10, tile.X, 1e-9)
		assert.Less(t, tile.VX, 10.0)
		assert.Greater(t, tile.VX, 0.0)
	})

	t.Run("kinematic tiles are skipped", func(t *testing.T) {
		tile := &Tile{Width: 58, Height: 54, VX: 10, Kinematic: true}
		Integrate([]*Tile{tile}, FrameDuration, world, 0.9)
		assert.Zero(t, tile.X)
	})

	t.Run("bounces off the wall", func(t *testing.T) {
		tile := &Tile{X: 460, Width: 58, Height: 54, VX: 50}
		Integrate([]*Tile{tile}, FrameDuration, world, 0)
		assert.Equal(t, 500-29.0, tile.X, "the whole tile stays inside")
		assert.Less(t, tile.VX, 0.0)
	})

	t.Run("comes to rest", func(t *testing.T) {
		tile := &Tile{Width: 58, Height: 54, VX: 0.001}
		Integrate([]*Tile{tile}, FrameDuration, world, 0.9)
		assert.Zero(t, tile.VX)
	})
}
