package engine

import (
	"math"
	"time"
)

const (
	restSpeed = 0.01
	bounce    = 0.5
)

// Integrate moves every non-kinematic tile by its velocity for dt, applies
// damping and keeps the whole tile inside world, reflecting velocity at an edge.
// Velocities are in world units per frame.
func Integrate(tiles []*Tile, dt time.Duration, world Bounds, damping float64) {
	if dt <= 0 {
		return
	}
	frames := float64(dt) / float64(FrameDuration)
	keep := math.Pow(1-math.Min(math.Max(damping, 0), 1), dt.Seconds())

	for _, t := range tiles {
		if t.Kinematic {
			continue
		}
		if t.VX == 0 && t.VY == 0 {
			continue
		}

		t.X += t.VX * frames
		t.Y += t.VY * frames
		t.VX *= keep
		t.VY *= keep

		inner := Bounds{
			X:      world.X + t.Width/2,
			Y:      world.Y + t.Height/2,
			Width:  math.Max(world.Width-t.Width, 0),
			Height: math.Max(world.Height-t.Height, 0),
		}
		if t.X < inner.X || t.X > inner.Right() {
			t.VX = -t.VX * bounce
		}
		if t.Y < inner.Y || t.Y > inner.Bottom() {
			t.VY = -t.VY * bounce
		}
		p := inner.Clamp(Vec2{X: t.X, Y: t.Y})
		t.X, t.Y = p.X, p.Y

		if math.Hypot(t.VX, t.VY) < restSpeed {
			t.VX, t.VY = 0, 0
		}
	}
}
