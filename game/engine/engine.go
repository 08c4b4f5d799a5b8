package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrNotReady          = errors.New("puzzle is not ready")
	ErrPuzzleBusy        = errors.New("arrangement in progress")
	ErrPuzzleNotFinished = errors.New("puzzle not finished")
)

// EventType names a puzzle notification
type EventType string

const (
	EventStateChanged    EventType = "state_changed"
	EventQuestionLoaded  EventType = "question_loaded"
	EventArranged        EventType = "arranged"
	EventAnswerCorrect   EventType = "answer_correct"
	EventAnswerIncorrect EventType = "answer_incorrect"
	EventTileClicked     EventType = "tile_clicked"
	EventWon             EventType = "won"
)

// Event is emitted to puzzle listeners
type Event struct {
	Type          EventType   `json:"type"`
	State         PuzzleState `json:"state"`
	Message       string      `json:"message,omitempty"`
	Answer        string      `json:"answer,omitempty"`
	Health        int         `json:"health"`
	QuestionIndex int         `json:"question_index"`
	TileID        int         `json:"tile_id,omitempty"`
	Timestamp     time.Time   `json:"timestamp"`
}

// Result is the final outcome of a won puzzle
type Result struct {
	Player     Player     `json:"player"`
	Set        *SetResult `json:"set"`
	Health     int        `json:"health"`
	MaxHealth  int        `json:"max_health"`
	AudioPlays int        `json:"audio_plays"`
	Score      int        `json:"score"`
}

type advancer interface {
	Advance(dt time.Duration) int
}

// Option configures a Puzzle
type Option func(*Puzzle)

func WithLogger(l zerolog.Logger) Option {
	return func(p *Puzzle) { p.logger = l }
}

// WithClock replaces time.Now for the recorder and event timestamps
func WithClock(now func() time.Time) Option {
	return func(p *Puzzle) { p.now = now }
}

func WithMeasurer(m TextMeasurer) Option {
	return func(p *Puzzle) { p.measurer = m }
}

// WithAnimator replaces the built-in Tweener. If the animator also has an
// Advance(time.Duration) int method, Update drives it.
func WithAnimator(a Animator) Option {
	return func(p *Puzzle) { p.animator = a }
}

// Puzzle runs one question set: it loads tiles, accepts gestures, merges,
// checks answers and tracks health until every question is solved.
// A Puzzle is not safe for concurrent use.
type Puzzle struct {
	cfg       PuzzleConfig
	questions *QuestionSet
	arena     *Arena
	ctrl      *Controller
	input     *InputRouter
	animator  Animator
	measurer  TextMeasurer
	rng       *rand.Rand
	now       func() time.Time
	logger    zerolog.Logger

	state      PuzzleState
	health     int
	audioPlays int
	player     Player
	lastEval   *Evaluation
	listeners  []func(Event)
	synthClock int64
}

// NewPuzzle validates set, lays out the first question and returns a READY puzzle.
// set.MaxHealth, when non-zero, overrides cfg.MaxHealth.
func NewPuzzle(set QuestionSetConfig, cfg PuzzleConfig, player Player, opts ...Option) (*Puzzle, error) {
	p := &Puzzle{
		state:  StateLoading,
		player: player,
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := ValidateQuestionSet(&set); err != nil {
		p.logger.Error().Err(err).Str("set", set.Name).Msg("rejecting question set")
		return nil, err
	}

	p.cfg = withDefaults(cfg)
	if set.MaxHealth > 0 {
		p.cfg.MaxHealth = set.MaxHealth
	}
	p.health = p.cfg.MaxHealth

	seed := p.cfg.Seed
	if seed == 0 {
		seed = p.now().UnixNano()
	}
	p.rng = rand.New(rand.NewSource(seed))

	qs, err := NewQuestionSet(set, p.rng, p.now)
	if err != nil {
		p.logger.Error().Err(err).Str("set", set.Name).Msg("rejecting question set")
		return nil, err
	}
	p.questions = qs

	if p.animator == nil {
		p.animator = NewTweener()
	}
	p.arena = NewArena(p.measurer)
	p.ctrl = NewController(WithThrowFactor(p.cfg.ThrowFactor), WithControllerLogger(p.logger))
	p.input = NewInputRouter(p.arena, p.ctrl, p.cfg.DragThreshold, p.cfg.DragDeadZone)
	p.ctrl.OnFirstInteraction(p.onFirstInteraction)
	p.ctrl.OnClick(p.onTileClick)

	p.loadQuestion()
	p.setState(StateReady)
	return p, nil
}

func withDefaults(cfg PuzzleConfig) PuzzleConfig {
	def := DefaultPuzzleConfig()
	if cfg.MaxHealth <= 0 {
		cfg.MaxHealth = def.MaxHealth
	}
	if cfg.World.Width <= 0 || cfg.World.Height <= 0 {
		cfg.World = def.World
	}
	if cfg.ConvergeDuration <= 0 {
		cfg.ConvergeDuration = def.ConvergeDuration
	}
	if cfg.RevealDuration <= 0 {
		cfg.RevealDuration = def.RevealDuration
	}
	if cfg.RevealGap <= 0 {
		cfg.RevealGap = def.RevealGap
	}
	if cfg.SpiralMargin <= 0 {
		cfg.SpiralMargin = def.SpiralMargin
	}
	if cfg.RowGap <= 0 {
		cfg.RowGap = def.RowGap
	}
	if cfg.DragThreshold <= 0 {
		cfg.DragThreshold = def.DragThreshold
	}
	if cfg.DragDeadZone <= 0 {
		cfg.DragDeadZone = def.DragDeadZone
	}
	if cfg.ThrowFactor <= 0 {
		cfg.ThrowFactor = def.ThrowFactor
	}
	if cfg.Damping <= 0 {
		cfg.Damping = def.Damping
	}
	return cfg
}

// OnEvent registers a listener for puzzle notifications
func (p *Puzzle) OnEvent(fn func(Event)) {
	p.listeners = append(p.listeners, fn)
}

func (p *Puzzle) State() PuzzleState   { return p.state }
func (p *Puzzle) Health() int          { return p.health }
func (p *Puzzle) Config() PuzzleConfig { return p.cfg }
func (p *Puzzle) Player() Player       { return p.player }

// Tiles returns the live tiles in draw order
func (p *Puzzle) Tiles() []*Tile { return p.arena.Active() }

// Controller exposes the gesture controller so hosts can subscribe to it
func (p *Puzzle) Controller() *Controller { return p.ctrl }

// LastEvaluation returns the most recent answer check, if any
func (p *Puzzle) LastEvaluation() *Evaluation { return p.lastEval }

// Busy reports whether an arrangement animation is running
func (p *Puzzle) Busy() bool { return p.animator.Busy() }

// Pointer routes a raw pointer event. Input is ignored while tiles are not interactive.
func (p *Puzzle) Pointer(in PointerInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	p.input.Handle(in)
	return nil
}

// MoveTile drags a tile to (x, y) as one synthetic gesture
func (p *Puzzle) MoveTile(id int, x, y float64) error {
	t, err := p.interactiveTile(id)
	if err != nil {
		return err
	}

	from := t.Center()
	if (Vec2{X: x, Y: y}).Sub(from).Len() <= p.cfg.DragDeadZone {
		t.SetPosition(x, y)
		t.SetVelocity(0, 0)
		return nil
	}

	start := p.synthClock
	hold := p.cfg.DragThreshold.Milliseconds() + 1
	p.synthClock += hold + 2
	const pointer = -1
	p.input.Handle(PointerInput{PointerID: pointer, Phase: PointerPhaseDown, X: from.X, Y: from.Y, TimeMillis: start})
	p.input.Handle(PointerInput{PointerID: pointer, Phase: PointerPhaseMove, X: x, Y: y, TimeMillis: start + hold})
	p.input.Handle(PointerInput{PointerID: pointer, Phase: PointerPhaseUp, X: x, Y: y, TimeMillis: start + hold + 1})
	return nil
}

// ClickTile taps a tile without moving it
func (p *Puzzle) ClickTile(id int) error {
	t, err := p.interactiveTile(id)
	if err != nil {
		return err
	}
	start := p.synthClock
	p.synthClock += 2
	const pointer = -1
	p.input.Handle(PointerInput{PointerID: pointer, Phase: PointerPhaseDown, X: t.X, Y: t.Y, TimeMillis: start})
	p.input.Handle(PointerInput{PointerID: pointer, Phase: PointerPhaseUp, X: t.X, Y: t.Y, TimeMillis: start + 1})
	return nil
}

func (p *Puzzle) interactiveTile(id int) (*Tile, error) {
	if p.state != StateReady {
		return nil, ErrNotReady
	}
	if p.animator.Busy() || !p.ctrl.Active() {
		return nil, ErrPuzzleBusy
	}
	t, ok := p.arena.Get(id)
	if !ok {
		return nil, fmt.Errorf("tile %d: %w", id, ErrTileNotFound)
	}
	// synthetic gestures hit-test at the tile center, so it must be on top
	p.arena.Raise(id)
	return t, nil
}

// Merge converges the tiles into one row and checks the answer when they land
func (p *Puzzle) Merge() error {
	if p.state != StateReady {
		return ErrNotReady
	}
	if p.animator.Busy() {
		return ErrPuzzleBusy
	}
	p.startTimer()
	p.setState(StateChecking)
	p.converge(p.cfg.MergeGap, p.cfg.ConvergeDuration)
	return nil
}

// Arrange lays the tiles out with strategy. Converge is the same as Merge.
func (p *Puzzle) Arrange(strategy Strategy) error {
	if strategy == StrategyConverge {
		return p.Merge()
	}
	if p.state != StateReady {
		return ErrNotReady
	}
	if p.animator.Busy() {
		return ErrPuzzleBusy
	}

	tiles := p.arena.Active()
	center := p.cfg.World.Center()
	switch strategy {
	case StrategyScatter:
		opts := DefaultScatterOptions()
		opts.Rand = p.rng
		Scatter(tiles, p.cfg.World, opts)
	case StrategySpiral:
		Spiral(tiles, center, p.cfg.SpiralMargin)
	case StrategyRowPack:
		RowPack(tiles, center, p.cfg.RowGap)
	default:
		return fmt.Errorf("unknown arrangement strategy %q", strategy)
	}
	for _, t := range tiles {
		t.SetVelocity(0, 0)
	}
	p.emit(Event{Type: EventArranged, Message: string(strategy)})
	return nil
}

// Speak returns the word to pronounce and counts the request
func (p *Puzzle) Speak() string {
	p.audioPlays++
	return p.questions.Current()
}

// Update advances animations and tile motion by dt
func (p *Puzzle) Update(dt time.Duration) {
	if a, ok := p.animator.(advancer); ok {
		a.Advance(dt)
	}
	Integrate(p.arena.Active(), dt, p.cfg.World, p.cfg.Damping)
}

// Snapshot copies the observable state
func (p *Puzzle) Snapshot() Snapshot {
	active := p.arena.Active()
	tiles := make([]Tile, len(active))
	for i, t := range active {
		tiles[i] = *t
	}
	return Snapshot{
		State:         p.state,
		SetName:       p.questions.Name(),
		QuestionIndex: p.questions.Index(),
		QuestionCount: p.questions.Size(),
		Word:          p.questions.Current(),
		Reading:       ReadText(active, readingSeparator(p.questions.Split())),
		Health:        p.health,
		MaxHealth:     p.cfg.MaxHealth,
		Attempts:      p.questions.Attempts(),
		AudioPlays:    p.audioPlays,
		Interactive:   p.ctrl.Active() && p.state != StateWin,
		Animating:     p.animator.Busy(),
		Player:        p.player,
		Tiles:         tiles,
	}
}

func readingSeparator(mode SplitMode) string {
	if mode == SplitWord {
		return " "
	}
	return ""
}

// Result returns the final outcome; it fails until the puzzle is won
func (p *Puzzle) Result() (*Result, error) {
	if p.state != StateWin {
		return nil, ErrPuzzleNotFinished
	}
	set, err := p.questions.Result()
	if err != nil {
		return nil, err
	}
	return &Result{
		Player:     p.player,
		Set:        set,
		Health:     p.health,
		MaxHealth:  p.cfg.MaxHealth,
		AudioPlays: p.audioPlays,
		Score:      p.health * p.questions.Size(),
	}, nil
}

func (p *Puzzle) loadQuestion() {
	p.arena.ReleaseAll()
	tiles := make([]*Tile, 0)
	for _, unit := range p.questions.CurrentUnits() {
		tiles = append(tiles, p.arena.Acquire(unit))
	}
	Shuffle(tiles, p.rng)
	Spiral(tiles, p.cfg.World.Center(), p.cfg.SpiralMargin)
	p.lastEval = nil
	p.ctrl.SetActive(true)
	p.emit(Event{Type: EventQuestionLoaded})
}

func (p *Puzzle) startTimer() {
	if p.questions.HasStarted() {
		return
	}
	if err := p.questions.StartTimer(); err != nil {
		p.logger.Error().Err(err).Msg("start timer")
	}
}

func (p *Puzzle) converge(gap float64, d time.Duration) {
	p.ctrl.SetActive(false)
	p.input.Reset()
	Converge(p.arena.Active(), p.animator, ConvergeOptions{
		Center:   p.cfg.World.Center(),
		Gap:      gap,
		Duration: d,
		Easing:   CubicOut,
	}, p.onArranged)
}

func (p *Puzzle) onArranged(tiles []*Tile) {
	if p.state == StateWin {
		return
	}
	p.ctrl.SetActive(true)
	p.emit(Event{Type: EventArranged, Message: string(StrategyConverge)})
	if p.state == StateChecking {
		p.checkAnswer(tiles)
	}
}

func (p *Puzzle) checkAnswer(tiles []*Tile) {
	ordered := OrderByX(tiles)
	eval := Evaluate(ordered, p.questions.CurrentUnits(), p.questions.Split())
	p.lastEval = &eval

	if err := p.questions.Try(eval.Submitted); err != nil {
		p.logger.Error().Err(err).Str("answer", eval.Submitted).Msg("record attempt")
	}
	p.logger.Info().
		Str("answer", eval.Submitted).
		Str("target", p.questions.Current()).
		Bool("perfect", eval.Perfect).
		Int("health", p.health).
		Msg("answer checked")

	if eval.Perfect {
		p.emit(Event{Type: EventAnswerCorrect, Answer: eval.Submitted})
		if p.questions.Next() {
			p.loadQuestion()
			p.setState(StateReady)
			return
		}
		if err := p.questions.Finish(); err != nil {
			p.logger.Error().Err(err).Msg("end timer")
		}
		p.ctrl.SetActive(false)
		for _, t := range p.arena.Active() {
			t.InteractionEnabled = false
		}
		p.setState(StateWin)
		p.emit(Event{Type: EventWon, Message: fmt.Sprintf("score %d", p.health*p.questions.Size())})
		return
	}

	if p.health > MinHealth {
		p.health--
	}
	p.setState(StateReady)
	p.converge(p.cfg.RevealGap, p.cfg.RevealDuration)
	for i, t := range ordered {
		t.Highlighted = !eval.Matched[i]
	}
	p.emit(Event{Type: EventAnswerIncorrect, Answer: eval.Submitted})
}

func (p *Puzzle) onFirstInteraction(TileEvent) {
	p.startTimer()
}

func (p *Puzzle) onTileClick(ev TileEvent) {
	ev.Tile.ToggleHighlight()
	p.emit(Event{Type: EventTileClicked, TileID: ev.Tile.ID})
}

func (p *Puzzle) setState(s PuzzleState) {
	if p.state == s {
		return
	}
	p.state = s
	p.emit(Event{Type: EventStateChanged})
}

func (p *Puzzle) emit(ev Event) {
	ev.State = p.state
	ev.Health = p.health
	if p.questions != nil {
		ev.QuestionIndex = p.questions.Index()
	}
	ev.Timestamp = p.now()
	for _, fn := range p.listeners {
		fn(ev)
	}
}
