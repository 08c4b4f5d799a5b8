package engine

import (
	"errors"

	"github.com/mattn/go-runewidth"
)

var ErrTileNotFound = errors.New("tile not found")

// Tile is one draggable unit of text. X and Y locate the tile center.
type Tile struct {
	ID                 int     `json:"id"`
	Text               string  `json:"text"`
	X                  float64 `json:"x"`
	Y                  float64 `json:"y"`
	Width              float64 `json:"width"`
	Height             float64 `json:"height"`
	VX                 float64 `json:"vx"`
	VY                 float64 `json:"vy"`
	Highlighted        bool    `json:"highlighted"`
	InteractionEnabled bool    `json:"interaction_enabled"`
	Kinematic          bool    `json:"kinematic"`
}

func (t *Tile) SetKinematic(kinematic bool) { t.Kinematic = kinematic }

func (t *Tile) SetVelocity(vx, vy float64) {
	t.VX = vx
	t.VY = vy
}

func (t *Tile) SetPosition(x, y float64) {
	t.X = x
	t.Y = y
}

func (t *Tile) Center() Vec2 { return Vec2{X: t.X, Y: t.Y} }

func (t *Tile) Size() Vec2 { return Vec2{X: t.Width, Y: t.Height} }

// ToggleHighlight flips the highlight flag, as a click does
func (t *Tile) ToggleHighlight() { t.Highlighted = !t.Highlighted }

// HitTest reports whether the world point (x, y) falls on the tile
func (t *Tile) HitTest(x, y float64) bool {
	return x >= t.X-t.Width/2 && x <= t.X+t.Width/2 &&
		y >= t.Y-t.Height/2 && y <= t.Y+t.Height/2
}

// TextMeasurer computes the on-screen extent of a tile label
type TextMeasurer interface {
	Measure(text string) Vec2
}

// RuneWidthMeasurer sizes labels by terminal cell width so wide glyphs get wide tiles
type RuneWidthMeasurer struct {
	CellWidth float64
	Padding   float64
	Height    float64
}

// DefaultMeasurer matches a 48px label font with 15px padding on each side
func DefaultMeasurer() RuneWidthMeasurer {
	return RuneWidthMeasurer{CellWidth: 28, Padding: 15, Height: 54}
}

func (m RuneWidthMeasurer) Measure(text string) Vec2 {
	cells := runewidth.StringWidth(text)
	if cells == 0 {
		cells = 1
	}
	return Vec2{X: 2*m.Padding + float64(cells)*m.CellWidth, Y: m.Height}
}

// Arena owns the live tiles of a puzzle and recycles released ones.
// Ids are never reused; draw order is acquisition order unless a tile is raised.
type Arena struct {
	nextID  int
	order   []*Tile
	byID    map[int]*Tile
	free    []*Tile
	measure TextMeasurer
}

// NewArena creates an empty arena that sizes tiles with m
func NewArena(m TextMeasurer) *Arena {
	if m == nil {
		m = DefaultMeasurer()
	}
	return &Arena{
		byID:    make(map[int]*Tile),
		measure: m,
	}
}

// Acquire returns a fresh interactive tile labelled text at the origin
func (a *Arena) Acquire(text string) *Tile {
	var t *Tile
	if n := len(a.free); n > 0 {
		t = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		t = &Tile{}
	}

	a.nextID++
	size := a.measure.Measure(text)
	*t = Tile{
		ID:                 a.nextID,
		Text:               text,
		Width:              size.X,
		Height:             size.Y,
		InteractionEnabled: true,
	}

	a.order = append(a.order, t)
	a.byID[t.ID] = t
	return t
}

// Release returns a tile to the pool
func (a *Arena) Release(id int) error {
	t, ok := a.byID[id]
	if !ok {
		return ErrTileNotFound
	}
	delete(a.byID, id)
	for i, o := range a.order {
		if o == t {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
	a.free = append(a.free, t)
	return nil
}

// ReleaseAll returns every live tile to the pool
func (a *Arena) ReleaseAll() {
	for _, t := range a.order {
		delete(a.byID, t.ID)
		a.free = append(a.free, t)
	}
	a.order = a.order[:0]
}

// Get looks up a live tile
func (a *Arena) Get(id int) (*Tile, bool) {
	t, ok := a.byID[id]
	return t, ok
}

// Active returns the live tiles in draw order, bottom first
func (a *Arena) Active() []*Tile {
	out := make([]*Tile, len(a.order))
	copy(out, a.order)
	return out
}

// Raise moves a tile to the top of the draw order
func (a *Arena) Raise(id int) {
	for i, t := range a.order {
		if t.ID == id {
			a.order = append(a.order[:i], a.order[i+1:]...)
			a.order = append(a.order, t)
			return
		}
	}
}

// TopmostAt returns the highest tile under (x, y), or nil
func (a *Arena) TopmostAt(x, y float64) *Tile {
	for i := len(a.order) - 1; i >= 0; i-- {
		t := a.order[i]
		if t.InteractionEnabled && t.HitTest(x, y) {
			return t
		}
	}
	return nil
}

func (a *Arena) Len() int { return len(a.order) }
