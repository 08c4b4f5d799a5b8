package engine

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// box is a host-side Placeable used to check the layouts are not tied to Tile
type box struct {
	pos  Vec2
	size Vec2
}

func (b *box) SetKinematic(bool)          {}
func (b *box) SetVelocity(float64, float64) {}
func (b *box) SetPosition(x, y float64)   { b.pos = Vec2{X: x, Y: y} }
func (b *box) Center() Vec2               { return b.pos }
func (b *box) Size() Vec2                 { return b.size }

func boxes(widths ...float64) []*box {
	out := make([]*box, len(widths))
	for i, w := range widths {
		out[i] = &box{size: Vec2{X: w, Y: 50}}
	}
	return out
}

func positions(items []*box) []Vec2 {
	out := make([]Vec2, len(items))
	for i, b := range items {
		out[i] = b.pos
	}
	return out
}

func TestScatterStaysInBounds(t *testing.T) {
	bounds := Bounds{X: 0, Y: 0, Width: 800, Height: 600}
	items := boxes(40, 40, 40, 40, 40, 40, 40, 40, 40, 40, 40, 40, 40, 40, 40, 40, 40, 40, 40, 40)

	opts := DefaultScatterOptions()
	opts.Rand = rand.New(rand.NewSource(7))
	Scatter(items, bounds, opts)

	for i, b := range items {
		assert.Truef(t, bounds.Contains(b.pos), "item %d at %+v escaped bounds", i, b.pos)
		assert.False(t, math.IsNaN(b.pos.X) || math.IsNaN(b.pos.Y))
	}
}

func TestScatterDeterministicForSeed(t *testing.T) {
	bounds := CenteredBounds(500, 500)
	run := func() []Vec2 {
		items := boxes(30, 30, 30, 30, 30)
		opts := DefaultScatterOptions()
		opts.Rand = rand.New(rand.NewSource(42))
		Scatter(items, bounds, opts)
		return positions(items)
	}

	if diff := cmp.Diff(run(), run(), cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("scatter differs for the same seed (-first +second):\n%s", diff)
	}
}

func TestScatterSpreadsItems(t *testing.T) {
	bounds := CenteredBounds(1000, 1000)
	items := boxes(30, 30)
	opts := DefaultScatterOptions()
	opts.Rand = rand.New(rand.NewSource(1))
	Scatter(items, bounds, opts)

	assert.Greater(t, items[0].pos.Sub(items[1].pos).Len(), 50.0)
}

func TestSpiral(t *testing.T) {
	items := boxes(58, 58, 40, 58, 58)
	Spiral(items, Vec2{}, DefaultSpiralMargin)

	step := 58 + DefaultSpiralMargin
	want := []Vec2{
		{X: 0, Y: 0},
		{X: 0, Y: -step},
		{X: -step, Y: -step},
		{X: -2 * step, Y: -step},
		{X: -2 * step, Y: 0},
	}
	if diff := cmp.Diff(want, positions(items), cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("spiral mismatch (-want +got):\n%s", diff)
	}

	again := boxes(58, 58, 40, 58, 58)
	Spiral(again, Vec2{}, DefaultSpiralMargin)
	assert.Equal(t, positions(items), positions(again), "spiral depends only on order")
}

func TestSpiralUsesLargestDimension(t *testing.T) {
	items := []*box{{size: Vec2{X: 20, Y: 90}}, {size: Vec2{X: 20, Y: 20}}}
	Spiral(items, Vec2{X: 10, Y: 10}, 10)

	assert.Equal(t, Vec2{X: 10, Y: 10}, items[0].pos)
	assert.Equal(t, Vec2{X: 10, Y: 10 - 100}, items[1].pos)
}

func TestRowPack(t *testing.T) {
	items := boxes(40, 100, 10, 80, 20, 60)
	RowPack(items, Vec2{}, DefaultRowGap)

	// caller order is untouched
	widths := make([]float64, len(items))
	for i, b := range items {
		widths[i] = b.size.X
	}
	assert.Equal(t, []float64{40, 100, 10, 80, 20, 60}, widths)

	rowOf := map[float64]int{100: 0, 80: 1, 60: -1, 40: 2, 20: -2, 10: 0}
	rows := map[int][]*box{}
	for _, b := range items {
		r := rowOf[b.size.X]
		assert.InDelta(t, float64(r)*(50+DefaultRowGap), b.pos.Y, 1e-9, "width %v", b.size.X)
		rows[r] = append(rows[r], b)
	}

	for r, row := range rows {
		left, right := math.Inf(1), math.Inf(-1)
		for _, b := range row {
			left = math.Min(left, b.pos.X-b.size.X/2)
			right = math.Max(right, b.pos.X+b.size.X/2)
		}
		assert.InDeltaf(t, 0, left+right, 1e-9, "row %d is not centered", r)
	}

	// row 0 holds the widest and the narrowest, widest first
	assert.InDelta(t, -12.5, items[1].pos.X, 1e-9)
	assert.InDelta(t, 57.5, items[2].pos.X, 1e-9)
}

func TestConvergeJoinsAllAnimations(t *testing.T) {
	a := NewArena(DefaultMeasurer())
	right, left, mid := a.Acquire("r"), a.Acquire("l"), a.Acquire("m")
	right.SetPosition(100, 40)
	left.SetPosition(-50, -20)
	mid.SetPosition(0, 300)
	left.Highlighted = true

	tw := NewTweener()
	var landed []*Tile
	calls := 0
	Converge(a.Active(), tw, ConvergeOptions{Duration: 100 * time.Millisecond}, func(tiles []*Tile) {
		calls++
		landed = tiles
	})

	for _, tile := range a.Active() {
		assert.True(t, tile.Kinematic)
		assert.False(t, tile.Highlighted)
	}
	assert.True(t, tw.Busy())

	tw.Advance(50 * time.Millisecond)
	assert.Zero(t, calls, "no completion before every tile lands")

	tw.Advance(50 * time.Millisecond)
	require.Equal(t, 1, calls)
	assert.False(t, tw.Busy())
	assert.Equal(t, []*Tile{left, mid, right}, landed)

	w := left.Width
	want := []Vec2{{X: -w, Y: 0}, {X: 0, Y: 0}, {X: w, Y: 0}}
	got := []Vec2{left.Center(), mid.Center(), right.Center()}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("converged row mismatch (-want +got):\n%s", diff)
	}
	for _, tile := range landed {
		assert.False(t, tile.Kinematic)
		assert.Zero(t, tile.VX)
	}
}

func TestConvergeWithGap(t *testing.T) {
	tiles := []*Tile{{Width: 10, X: 5}, {Width: 30, X: -5}}
	tw := NewTweener()
	done := false
	Converge(tiles, tw, ConvergeOptions{Center: Vec2{X: 100, Y: 50}, Gap: 15, Duration: time.Millisecond}, func([]*Tile) { done = true })
	tw.Advance(time.Second)

	require.True(t, done)
	// total width 10+30+15 = 55, starting at 72.5
	assert.InDelta(t, 87.5, tiles[1].X, 1e-9)
	assert.InDelta(t, 122.5, tiles[0].X, 1e-9)
	assert.Equal(t, 50.0, tiles[0].Y)
}

func TestBarrier(t *testing.T) {
	fired := 0
	NewBarrier(0, func() { fired++ })
	assert.Equal(t, 1, fired, "an empty join completes at once")

	b := NewBarrier(2, func() { fired++ })
	b.Done()
	assert.Equal(t, 1, fired)
	b.Done()
	b.Done()
	assert.Equal(t, 2, fired)
}

func TestEasing(t *testing.T) {
	assert.Equal(t, 0.0, CubicOut(0))
	assert.Equal(t, 1.0, CubicOut(1))
	assert.InDelta(t, 0.875, CubicOut(0.5), 1e-12)
	assert.Equal(t, 0.25, Linear(0.25))
}

func TestTweenerCallbackMayChain(t *testing.T) {
	tw := NewTweener()
	b := &box{}
	tw.Animate(b, Vec2{X: 10}, 10*time.Millisecond, Linear, func() {
		tw.Animate(b, Vec2{X: 20}, 10*time.Millisecond, Linear, nil)
	})

	assert.Equal(t, 1, tw.Advance(10*time.Millisecond))
	assert.True(t, tw.Busy())
	assert.Equal(t, 10.0, b.pos.X)

	tw.Advance(5 * time.Millisecond)
	assert.InDelta(t, 15, b.pos.X, 1e-9)
}

func TestParseStrategy(t *testing.T) {
	tests := map[string]Strategy{
		"scatter":  StrategyScatter,
		"SPIRAL":   StrategySpiral,
		"row-pack": StrategyRowPack,
		"merge":    StrategyConverge,
	}
	for in, want := range tests {
		got, err := ParseStrategy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseStrategy("zigzag")
	assert.Error(t, err)
}
