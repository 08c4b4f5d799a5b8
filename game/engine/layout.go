package engine

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"
)

// Strategy names an arrangement
type Strategy string

const (
	StrategyScatter  Strategy = "scatter"
	StrategySpiral   Strategy = "spiral"
	StrategyRowPack  Strategy = "row_pack"
	StrategyConverge Strategy = "converge"
)

// ParseStrategy accepts a strategy name in any case, with - or _ separators
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")) {
	case StrategyScatter:
		return StrategyScatter, nil
	case StrategySpiral:
		return StrategySpiral, nil
	case StrategyRowPack, "rowpack", "rows":
		return StrategyRowPack, nil
	case StrategyConverge, "merge":
		return StrategyConverge, nil
	}
	return "", fmt.Errorf("unknown arrangement strategy %q", s)
}

// ArrangementRequest is a transient request to lay tiles out
type ArrangementRequest struct {
	Strategy Strategy      `json:"strategy"`
	Gap      float64       `json:"gap,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// ScatterOptions tunes the force-directed scatter
type ScatterOptions struct {
	Iterations        int
	Repulsion         float64
	BoundaryRepulsion float64
	InitialStep       float64
	MinDistance       float64
	Rand              *rand.Rand
}

func DefaultScatterOptions() ScatterOptions {
	return ScatterOptions{
		Iterations:        100,
		Repulsion:         1000,
		BoundaryRepulsion: 100,
		InitialStep:       10,
		MinDistance:       0.1,
	}
}

// Scatter drops items uniformly at random inside bounds and relaxes them apart
// with inverse-square repulsion from each other and from the four edges.
// Items are updated in place, one after another, and always end inside bounds.
func Scatter[T Placeable](items []T, bounds Bounds, opts ScatterOptions) {
	if len(items) == 0 {
		return
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	floor := opts.MinDistance
	if floor <= 0 {
		floor = 0.1
	}

	pos := make([]Vec2, len(items))
	for i := range items {
		pos[i] = Vec2{
			X: bounds.X + rng.Float64()*bounds.Width,
			Y: bounds.Y + rng.Float64()*bounds.Height,
		}
	}

	inverseSquare := func(k, d float64) float64 {
		d = math.Max(d, floor)
		return k / (d * d)
	}

	for iter := 0; iter < opts.Iterations; iter++ {
		step := opts.InitialStep * (1 - float64(iter)/float64(opts.Iterations))

		for i := range pos {
			var f Vec2
			for j := range pos {
				if i == j {
					continue
				}
				d := pos[i].Sub(pos[j])
				dist := d.Len()
				if dist == 0 {
					dist = floor
				}
				mag := inverseSquare(opts.Repulsion, dist)
				f.X += d.X / dist * mag
				f.Y += d.Y / dist * mag
			}

			f.X += inverseSquare(opts.BoundaryRepulsion, pos[i].X-bounds.X) - inverseSquare(opts.BoundaryRepulsion, bounds.Right()-pos[i].X)
			f.Y += inverseSquare(opts.BoundaryRepulsion, pos[i].Y-bounds.Y) - inverseSquare(opts.BoundaryRepulsion, bounds.Bottom()-pos[i].Y)

			m := f.Len()
			if m == 0 || math.IsNaN(m) || math.IsInf(m, 0) {
				m = 1
			}
			pos[i] = bounds.Clamp(pos[i].Add(f.Scale(step / m)))
		}
	}

	for i, it := range items {
		it.SetPosition(pos[i].X, pos[i].Y)
	}
}

// spiral directions: right, up, left, down (y grows downward)
var spiralDirections = [4]Vec2{{X: 1}, {Y: -1}, {X: -1}, {Y: 1}}

// Spiral places the first item at center and walks a square spiral outward.
// The step is the largest tile dimension plus margin; the side length grows
// every second turn. The result depends only on item order.
func Spiral[T Placeable](items []T, center Vec2, margin float64) {
	if len(items) == 0 {
		return
	}
	var largest float64
	for _, it := range items {
		s := it.Size()
		largest = math.Max(largest, math.Max(s.X, s.Y))
	}
	step := largest + margin

	cur := center
	items[0].SetPosition(cur.X, cur.Y)

	segment, placed, dir, turns := 1, 1, 0, 0
	for i := 1; i < len(items); i++ {
		if placed >= segment {
			dir = (dir + 1) % 4
			turns++
			placed = 0
			if turns%2 == 0 {
				segment++
			}
		}
		cur = cur.Add(spiralDirections[dir].Scale(step))
		items[i].SetPosition(cur.X, cur.Y)
		placed++
	}
}

// rowCycle assigns rows to widest-first items: center, below, above, and so on
var rowCycle = [5]int{0, 1, -1, 2, -2}

// RowPack sorts items by descending width and deals them into rows from a
// repeating cycle. Every row is centered on origin.X with gap between tiles;
// row r sits at origin.Y + r*(tileHeight+gap). The caller's slice order is kept.
func RowPack[T Placeable](items []T, origin Vec2, gap float64) {
	if len(items) == 0 {
		return
	}
	sorted := make([]T, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Size().X > sorted[j].Size().X
	})

	var height float64
	for _, it := range sorted {
		height = math.Max(height, it.Size().Y)
	}

	rows := make(map[int][]T)
	var order []int
	for i, it := range sorted {
		r := rowCycle[i%len(rowCycle)]
		if _, ok := rows[r]; !ok {
			order = append(order, r)
		}
		rows[r] = append(rows[r], it)
	}

	for _, r := range order {
		row := rows[r]
		total := gap * float64(len(row)-1)
		for _, it := range row {
			total += it.Size().X
		}
		x := origin.X - total/2
		y := origin.Y + float64(r)*(height+gap)
		for _, it := range row {
			w := it.Size().X
			it.SetPosition(x+w/2, y)
			x += w + gap
		}
	}
}

// ConvergeOptions tunes the merge animation
type ConvergeOptions struct {
	Center   Vec2
	Gap      float64
	Duration time.Duration
	Easing   Easing
}

// Converge sorts tiles left to right, takes them out of physics, clears their
// highlight and animates them into one row centered on opts.Center. When every
// animation has finished the tiles return to physics at rest and done receives
// them in row order.
func Converge(tiles []*Tile, animator Animator, opts ConvergeOptions, done func([]*Tile)) {
	sorted := OrderByX(tiles)
	ease := opts.Easing
	if ease == nil {
		ease = CubicOut
	}

	total := opts.Gap * float64(len(sorted)-1)
	for _, t := range sorted {
		t.SetKinematic(true)
		t.SetVelocity(0, 0)
		t.Highlighted = false
		total += t.Width
	}
	if len(sorted) == 0 {
		total = 0
	}

	barrier := NewBarrier(len(sorted), func() {
		for _, t := range sorted {
			t.SetKinematic(false)
			t.SetVelocity(0, 0)
		}
		if done != nil {
			done(sorted)
		}
	})

	x := opts.Center.X - total/2
	for _, t := range sorted {
		target := Vec2{X: x + t.Width/2, Y: opts.Center.Y}
		x += t.Width + opts.Gap
		animator.Animate(t, target, opts.Duration, ease, barrier.Done)
	}
}

// Shuffle permutes tiles in place
func Shuffle[T any](items []T, rng *rand.Rand) {
	rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
}
