package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wricardo/spellground/game/engine"
)

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrQuestionSetNotFound = errors.New("question set not found")
	ErrResultNotFound      = errors.New("result not found")
	ErrInvalidRequest      = errors.New("invalid request")
)

// GameService defines all puzzle-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Puzzle Operations. With settle set, animations are fast-forwarded so the
	// returned snapshot shows the outcome.
	Pointer(ctx context.Context, sessionID string, in engine.PointerInput) (*ActionResult, error)
	MoveTile(ctx context.Context, sessionID string, tileID int, x, y float64) (*ActionResult, error)
	ClickTile(ctx context.Context, sessionID string, tileID int) (*ActionResult, error)
	Merge(ctx context.Context, sessionID string, settle bool) (*ActionResult, error)
	Arrange(ctx context.Context, sessionID, strategy string, settle bool) (*ActionResult, error)
	Speak(ctx context.Context, sessionID string) (*SpeakResult, error)

	// Puzzle State
	GetState(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	GetResult(ctx context.Context, sessionID string) (*engine.Result, error)

	// Frame loop
	Tick(ctx context.Context, dt time.Duration)

	// Question sets
	ListQuestionSets(ctx context.Context) ([]*QuestionSetInfo, error)
	LoadQuestionSet(ctx context.Context, name string) (*engine.QuestionSetConfig, error)
	SaveQuestionSet(ctx context.Context, name string, set *engine.QuestionSetConfig) error

	// Archived results
	ListResults(ctx context.Context) ([]*ResultSummary, error)
	GetStoredResult(ctx context.Context, resultID string) (*StoredResult, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, set engine.QuestionSetConfig, cfg engine.PuzzleConfig, player engine.Player) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager handles question set loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.QuestionSetConfig, error)
	ListConfigs() ([]*QuestionSetInfo, error)
	GetDefault() *engine.QuestionSetConfig
	SaveConfig(name string, set *engine.QuestionSetConfig) error
}

// ResultStore archives the results of won puzzles
type ResultStore interface {
	Save(ctx context.Context, result *StoredResult) error
	Load(ctx context.Context, id string) (*StoredResult, error)
	List(ctx context.Context) ([]*StoredResult, error)
}

// Notifier receives puzzle updates for connected clients
type Notifier interface {
	NotifySnapshot(sessionID string, snap *engine.Snapshot)
	NotifyEvent(sessionID string, ev engine.Event)
}

// Session represents an active puzzle session.
// The embedded mutex guards Puzzle, which is not safe for concurrent use.
type Session struct {
	sync.Mutex
	ID             string
	Puzzle         *engine.Puzzle
	SetName        string
	CreatedAt      time.Time
	LastAccessedAt time.Time
	// Archived is set once the won result has been stored
	Archived bool

	events []engine.Event
}
