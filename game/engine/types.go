package engine

import (
	"math"
	"time"
)

// PuzzleState is the orchestrator phase of a puzzle
type PuzzleState string

const (
	StateLoading  PuzzleState = "loading"
	StateReady    PuzzleState = "ready"
	StateChecking PuzzleState = "checking"
	StateWin      PuzzleState = "win"
)

// SplitMode selects how a target answer is cut into tile units
type SplitMode string

const (
	SplitChar SplitMode = "char"
	SplitWord SplitMode = "word"
)

const (
	// Validation constants
	DefaultMaxHealth = 10
	MinHealth        = 1
	MaxHealthLimit   = 100
	MaxUnitLength    = 50
	MaxQuestions     = 200

	// Arrangement defaults
	DefaultConvergeDuration = 1000 * time.Millisecond
	DefaultRevealDuration   = 500 * time.Millisecond
	DefaultMergeGap         = 0.0
	DefaultRevealGap        = 15.0
	DefaultSpiralMargin     = 15.0
	DefaultRowGap           = 15.0

	// Pointer defaults
	DefaultDragThreshold = 100 * time.Millisecond
	DefaultDragDeadZone  = 4.0
	DefaultThrowFactor   = 10.0

	// FrameDuration is the nominal tick used for velocities (units per frame)
	FrameDuration = time.Second / 60
)

// Vec2 is a point or extent in world units
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v+o
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }

// Sub returns v-o
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }

// Scale returns v*k
func (v Vec2) Scale(k float64) Vec2 { return Vec2{X: v.X * k, Y: v.Y * k} }

// Len returns the euclidean length
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

// Bounds is an axis-aligned rectangle with its origin at the top-left corner
type Bounds struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// CenteredBounds returns a width x height rectangle centered on the origin
func CenteredBounds(width, height float64) Bounds {
	return Bounds{X: -width / 2, Y: -height / 2, Width: width, Height: height}
}

func (b Bounds) Right() float64  { return b.X + b.Width }
func (b Bounds) Bottom() float64 { return b.Y + b.Height }

// Center returns the midpoint of the rectangle
func (b Bounds) Center() Vec2 {
	return Vec2{X: b.X + b.Width/2, Y: b.Y + b.Height/2}
}

// Contains reports whether p lies inside or on the edge of b
func (b Bounds) Contains(p Vec2) bool {
	return p.X >= b.X && p.X <= b.Right() && p.Y >= b.Y && p.Y <= b.Bottom()
}

// Clamp moves p to the nearest point inside b
func (b Bounds) Clamp(p Vec2) Vec2 {
	return Vec2{
		X: math.Max(b.X, math.Min(b.Right(), p.X)),
		Y: math.Max(b.Y, math.Min(b.Bottom(), p.Y)),
	}
}

// Movable is the capability a physics/render host exposes for one tile
type Movable interface {
	SetKinematic(kinematic bool)
	SetVelocity(vx, vy float64)
	SetPosition(x, y float64)
}

// Placeable is a Movable with a known position and extent, as needed by the layouts
type Placeable interface {
	Movable
	Center() Vec2
	Size() Vec2
}

// Player identifies who is solving the puzzle; it is carried through to the result
type Player struct {
	Name           string `json:"name,omitempty"`
	InvitationCode string `json:"invitation_code,omitempty"`
}

// QuestionSetConfig describes an ordered list of target answers loaded from JSON or YAML
type QuestionSetConfig struct {
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Questions   []string  `json:"questions" yaml:"questions"`
	Shuffle     bool      `json:"shuffle,omitempty" yaml:"shuffle,omitempty"`
	Split       SplitMode `json:"split,omitempty" yaml:"split,omitempty"`
	MaxHealth   int       `json:"max_health,omitempty" yaml:"max_health,omitempty"`
}

// PuzzleConfig holds the tunables of a single puzzle
type PuzzleConfig struct {
	MaxHealth        int           `json:"max_health"`
	World            Bounds        `json:"world"`
	ConvergeDuration time.Duration `json:"converge_duration"`
	RevealDuration   time.Duration `json:"reveal_duration"`
	MergeGap         float64       `json:"merge_gap"`
	RevealGap        float64       `json:"reveal_gap"`
	SpiralMargin     float64       `json:"spiral_margin"`
	RowGap           float64       `json:"row_gap"`
	DragThreshold    time.Duration `json:"drag_threshold"`
	DragDeadZone     float64       `json:"drag_dead_zone"`
	ThrowFactor      float64       `json:"throw_factor"`
	// Damping is the fraction of velocity a free tile loses per second
	Damping float64 `json:"damping"`
	Seed    int64   `json:"seed"`
}

// DefaultPuzzleConfig returns the stock tunables
func DefaultPuzzleConfig() PuzzleConfig {
	return PuzzleConfig{
		MaxHealth:        DefaultMaxHealth,
		World:            CenteredBounds(2000, 2000),
		ConvergeDuration: DefaultConvergeDuration,
		RevealDuration:   DefaultRevealDuration,
		MergeGap:         DefaultMergeGap,
		RevealGap:        DefaultRevealGap,
		SpiralMargin:     DefaultSpiralMargin,
		RowGap:           DefaultRowGap,
		DragThreshold:    DefaultDragThreshold,
		DragDeadZone:     DefaultDragDeadZone,
		ThrowFactor:      DefaultThrowFactor,
		Damping:          0.9,
	}
}

// Snapshot is a read-only view of a puzzle used by the transports
type Snapshot struct {
	State         PuzzleState `json:"state"`
	SetName       string      `json:"set_name"`
	QuestionIndex int         `json:"question_index"`
	QuestionCount int         `json:"question_count"`
	Word          string      `json:"word"`
	Reading       string      `json:"reading"`
	Health        int         `json:"health"`
	MaxHealth     int         `json:"max_health"`
	Attempts      int         `json:"attempts"`
	AudioPlays    int         `json:"audio_plays"`
	Interactive   bool        `json:"interactive"`
	Animating     bool        `json:"animating"`
	Player        Player      `json:"player"`
	Tiles         []Tile      `json:"tiles"`
}
