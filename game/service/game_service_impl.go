package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/wricardo/spellground/game/engine"
)

// maxSettleFrames bounds a fast-forward to ten seconds of animation
const maxSettleFrames = 600

// customSetName names sets built from inline questions
const customSetName = "custom"

// Option configures the game service
type Option func(*gameServiceImpl)

func WithLogger(l zerolog.Logger) Option {
	return func(s *gameServiceImpl) { s.logger = l }
}

// WithNotifier forwards puzzle events and snapshots to connected clients
func WithNotifier(n Notifier) Option {
	return func(s *gameServiceImpl) { s.notifier = n }
}

// WithResultStore archives every won puzzle
func WithResultStore(r ResultStore) Option {
	return func(s *gameServiceImpl) { s.results = r }
}

// WithPuzzleConfig sets the tunables used for new sessions
func WithPuzzleConfig(cfg engine.PuzzleConfig) Option {
	return func(s *gameServiceImpl) { s.puzzleCfg = cfg }
}

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions  SessionManager
	configs   ConfigManager
	results   ResultStore
	notifier  Notifier
	puzzleCfg engine.PuzzleConfig
	logger    zerolog.Logger
	now       func() time.Time
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions:  sessions,
		configs:   configs,
		puzzleCfg: engine.DefaultPuzzleConfig(),
		logger:    zerolog.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession creates a new puzzle session
func (s *gameServiceImpl) CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionInfo, error) {
	set, err := s.resolveSet(req)
	if err != nil {
		return nil, err
	}

	cfg := s.puzzleCfg
	if req.Seed != 0 {
		cfg.Seed = req.Seed
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", *set, cfg, req.Player)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidQuestionSet) || errors.Is(err, engine.ErrNoQuestions) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	sess.Lock()
	defer sess.Unlock()
	sess.Puzzle.OnEvent(func(ev engine.Event) {
		sess.events = append(sess.events, ev)
		if s.notifier != nil {
			s.notifier.NotifyEvent(sess.ID, ev)
		}
	})

	s.logger.Info().
		Str("session", sess.ID).
		Str("set", sess.SetName).
		Int("questions", len(set.Questions)).
		Str("player", req.Player.Name).
		Msg("session created")

	return s.info(sess), nil
}

// resolveSet picks the question set of a create request
func (s *gameServiceImpl) resolveSet(req CreateSessionRequest) (*engine.QuestionSetConfig, error) {
	switch {
	case len(req.Questions) > 0:
		return &engine.QuestionSetConfig{
			Name:      customSetName,
			Questions: req.Questions,
			Split:     req.Split,
			Shuffle:   req.Shuffle,
		}, nil

	case req.Q != "":
		questions, err := engine.DecodeQuestionParam(req.Q)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return &engine.QuestionSetConfig{
			Name:      customSetName,
			Questions: questions,
			Split:     req.Split,
			Shuffle:   req.Shuffle,
		}, nil

	case req.SetName != "":
		loaded, err := s.configs.LoadConfig(req.SetName)
		if err != nil {
			if errors.Is(err, ErrQuestionSetNotFound) {
				// Provide helpful error message with available options
				available, listErr := s.configs.ListConfigs()
				if listErr == nil && len(available) > 0 {
					ids := make([]string, 0, len(available))
					for _, info := range available {
						ids = append(ids, info.SetID)
					}
					return nil, fmt.Errorf("%w: '%s'. Available sets: %v", ErrQuestionSetNotFound, req.SetName, ids)
				}
			}
			return nil, fmt.Errorf("failed to load question set %s: %w", req.SetName, err)
		}
		set := *loaded
		set.Questions = append([]string(nil), loaded.Questions...)
		if req.Shuffle {
			set.Shuffle = true
		}
		return &set, nil
	}

	def := s.configs.GetDefault()
	if def == nil {
		d := engine.DefaultQuestionSet()
		return &d, nil
	}
	set := *def
	set.Questions = append([]string(nil), def.Questions...)
	return &set, nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	defer sess.Unlock()
	return s.info(sess), nil
}

// ListSessions returns all active sessions, oldest first
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		sess.Lock()
		result = append(result, s.info(sess))
		sess.Unlock()
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	s.logger.Info().Str("session", sessionID).Msg("session deleted")
	return nil
}

// Pointer routes one raw pointer event
func (s *gameServiceImpl) Pointer(ctx context.Context, sessionID string, in engine.PointerInput) (*ActionResult, error) {
	return s.act(ctx, sessionID, false, func(p *engine.Puzzle) error {
		if err := p.Pointer(in); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return nil
	})
}

// MoveTile drags a tile to a world position
func (s *gameServiceImpl) MoveTile(ctx context.Context, sessionID string, tileID int, x, y float64) (*ActionResult, error) {
	return s.act(ctx, sessionID, false, func(p *engine.Puzzle) error {
		return p.MoveTile(tileID, x, y)
	})
}

// ClickTile toggles the highlight of a tile
func (s *gameServiceImpl) ClickTile(ctx context.Context, sessionID string, tileID int) (*ActionResult, error) {
	return s.act(ctx, sessionID, false, func(p *engine.Puzzle) error {
		return p.ClickTile(tileID)
	})
}

// Merge converges the tiles and checks the answer
func (s *gameServiceImpl) Merge(ctx context.Context, sessionID string, settle bool) (*ActionResult, error) {
	return s.act(ctx, sessionID, settle, func(p *engine.Puzzle) error {
		return p.Merge()
	})
}

// Arrange lays the tiles out with the named strategy
func (s *gameServiceImpl) Arrange(ctx context.Context, sessionID, strategy string, settle bool) (*ActionResult, error) {
	st, err := engine.ParseStrategy(strategy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return s.act(ctx, sessionID, settle, func(p *engine.Puzzle) error {
		return p.Arrange(st)
	})
}

// Speak returns the current word for audio playback
func (s *gameServiceImpl) Speak(ctx context.Context, sessionID string) (*SpeakResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	defer sess.Unlock()

	word := sess.Puzzle.Speak()
	snap := sess.Puzzle.Snapshot()
	return &SpeakResult{Word: word, AudioPlays: snap.AudioPlays}, nil
}

// GetState returns the puzzle snapshot
func (s *gameServiceImpl) GetState(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	defer sess.Unlock()
	snap := sess.Puzzle.Snapshot()
	return &snap, nil
}

// GetResult returns the final result of a won puzzle
func (s *gameServiceImpl) GetResult(ctx context.Context, sessionID string) (*engine.Result, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	defer sess.Unlock()
	return sess.Puzzle.Result()
}

// Tick advances every session by dt and pushes snapshots of the ones in motion
func (s *gameServiceImpl) Tick(ctx context.Context, dt time.Duration) {
	for _, sess := range s.sessions.List() {
		sess.Lock()
		moving := inMotion(sess.Puzzle)
		sess.events = nil
		sess.Puzzle.Update(dt)
		changed := moving || len(sess.events) > 0
		sess.events = nil
		s.archive(ctx, sess)
		if changed && s.notifier != nil {
			snap := sess.Puzzle.Snapshot()
			s.notifier.NotifySnapshot(sess.ID, &snap)
		}
		sess.Unlock()
	}
}

// ListQuestionSets returns the available question sets
func (s *gameServiceImpl) ListQuestionSets(ctx context.Context) ([]*QuestionSetInfo, error) {
	return s.configs.ListConfigs()
}

// LoadQuestionSet loads a question set by identifier
func (s *gameServiceImpl) LoadQuestionSet(ctx context.Context, name string) (*engine.QuestionSetConfig, error) {
	return s.configs.LoadConfig(name)
}

// SaveQuestionSet validates and stores a question set
func (s *gameServiceImpl) SaveQuestionSet(ctx context.Context, name string, set *engine.QuestionSetConfig) error {
	if name == "" || set == nil {
		return fmt.Errorf("%w: question set name and body are required", ErrInvalidRequest)
	}
	if err := engine.ValidateQuestionSet(set); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if err := s.configs.SaveConfig(name, set); err != nil {
		return err
	}
	s.logger.Info().Str("set", name).Int("questions", len(set.Questions)).Msg("question set saved")
	return nil
}

// ListResults lists archived results, newest first
func (s *gameServiceImpl) ListResults(ctx context.Context) ([]*ResultSummary, error) {
	if s.results == nil {
		return []*ResultSummary{}, nil
	}
	stored, err := s.results.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].FinishedAt.After(stored[j].FinishedAt) })

	out := make([]*ResultSummary, 0, len(stored))
	for _, r := range stored {
		out = append(out, r.Summarize())
	}
	return out, nil
}

// GetStoredResult loads one archived result
func (s *gameServiceImpl) GetStoredResult(ctx context.Context, resultID string) (*StoredResult, error) {
	if s.results == nil {
		return nil, ErrResultNotFound
	}
	return s.results.Load(ctx, resultID)
}

// session looks a session up and records the access
func (s *gameServiceImpl) session(id string) (*Session, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	_ = s.sessions.UpdateLastAccessed(id)
	return sess, nil
}

// act runs op on a locked puzzle and reports what it caused
func (s *gameServiceImpl) act(ctx context.Context, sessionID string, settle bool, op func(p *engine.Puzzle) error) (*ActionResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	defer sess.Unlock()

	sess.events = nil
	if err := op(sess.Puzzle); err != nil {
		return nil, err
	}
	if settle {
		for i := 0; sess.Puzzle.Busy() && i < maxSettleFrames; i++ {
			sess.Puzzle.Update(engine.FrameDuration)
		}
	}
	s.archive(ctx, sess)

	snap := sess.Puzzle.Snapshot()
	if s.notifier != nil {
		s.notifier.NotifySnapshot(sess.ID, &snap)
	}
	events := sess.events
	sess.events = nil

	return &ActionResult{
		Success:    true,
		Message:    describe(events, &snap),
		Snapshot:   &snap,
		Events:     events,
		Evaluation: sess.Puzzle.LastEvaluation(),
	}, nil
}

// archive stores the result of a won puzzle once. The session must be locked.
func (s *gameServiceImpl) archive(ctx context.Context, sess *Session) {
	if sess.Archived || sess.Puzzle.State() != engine.StateWin {
		return
	}
	sess.Archived = true

	res, err := sess.Puzzle.Result()
	if err != nil {
		s.logger.Error().Err(err).Str("session", sess.ID).Msg("read result")
		return
	}
	s.logger.Info().
		Str("session", sess.ID).
		Str("player", res.Player.Name).
		Int("score", res.Score).
		Msg("puzzle solved")

	if s.results == nil {
		return
	}
	stored := &StoredResult{SessionID: sess.ID, FinishedAt: s.now(), Result: res}
	if err := s.results.Save(ctx, stored); err != nil {
		s.logger.Error().Err(err).Str("session", sess.ID).Msg("archive result")
	}
}

// info builds SessionInfo. The session must be locked.
func (s *gameServiceImpl) info(sess *Session) *SessionInfo {
	snap := sess.Puzzle.Snapshot()
	return &SessionInfo{
		ID:             sess.ID,
		SetName:        sess.SetName,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		Snapshot:       &snap,
	}
}

// inMotion reports whether a puzzle still needs frames
func inMotion(p *engine.Puzzle) bool {
	if p.Busy() {
		return true
	}
	for _, t := range p.Tiles() {
		if t.VX != 0 || t.VY != 0 {
			return true
		}
	}
	return false
}

// describe summarizes the events of one action for humans and agents
func describe(events []engine.Event, snap *engine.Snapshot) string {
	for i := len(events) - 1; i >= 0; i-- {
		switch events[i].Type {
		case engine.EventWon:
			return fmt.Sprintf("Solved every question! Final score %d", snap.Health*snap.QuestionCount)
		case engine.EventAnswerCorrect:
			return fmt.Sprintf("Correct! On to question %d of %d", snap.QuestionIndex+1, snap.QuestionCount)
		case engine.EventAnswerIncorrect:
			return fmt.Sprintf("Not quite: %q. Health %d/%d", events[i].Answer, snap.Health, snap.MaxHealth)
		}
	}
	switch {
	case snap.State == engine.StateChecking:
		return "Merging tiles"
	case snap.Animating:
		return "Arranging tiles"
	}
	return fmt.Sprintf("Question %d of %d, health %d/%d", snap.QuestionIndex+1, snap.QuestionCount, snap.Health, snap.MaxHealth)
}
