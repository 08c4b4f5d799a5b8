package service

import (
	"time"

	"github.com/wricardo/spellground/game/engine"
)

// SessionInfo provides information about a puzzle session
type SessionInfo struct {
	ID             string           `json:"id"`
	SetName        string           `json:"set_name"`
	CreatedAt      time.Time        `json:"created_at"`
	LastAccessedAt time.Time        `json:"last_accessed_at"`
	Snapshot       *engine.Snapshot `json:"snapshot"`
}

// CreateSessionRequest selects the questions of a new session.
// Questions wins over Q, which wins over SetName; with none of them the default set is used.
type CreateSessionRequest struct {
	SetName   string           `json:"set_name,omitempty"`
	Questions []string         `json:"questions,omitempty"`
	Q         string           `json:"q,omitempty"` // base64 of questions joined by "|"
	Split     engine.SplitMode `json:"split,omitempty"`
	Shuffle   bool             `json:"shuffle,omitempty"`
	Player    engine.Player    `json:"player"`
	Seed      int64            `json:"seed,omitempty"`
}

// ActionResult is returned by every operation that changes a puzzle
type ActionResult struct {
	Success    bool               `json:"success"`
	Message    string             `json:"message,omitempty"`
	Snapshot   *engine.Snapshot   `json:"snapshot"`
	Events     []engine.Event     `json:"events,omitempty"`
	Evaluation *engine.Evaluation `json:"evaluation,omitempty"`
}

// SpeakResult carries the word a client should pronounce
type SpeakResult struct {
	Word       string `json:"word"`
	AudioPlays int    `json:"audio_plays"`
}

// QuestionSetInfo provides information about a question set file
type QuestionSetInfo struct {
	Filename      string           `json:"filename"`
	SetID         string           `json:"set_id"` // The identifier to use for session creation
	Name          string           `json:"name"`   // Display name
	Description   string           `json:"description"`
	QuestionCount int              `json:"question_count"`
	Split         engine.SplitMode `json:"split"`
	MaxHealth     int              `json:"max_health"`
}

// StoredResult is an archived result of a won puzzle
type StoredResult struct {
	ID         string         `json:"id"`
	SessionID  string         `json:"session_id"`
	FinishedAt time.Time      `json:"finished_at"`
	Result     *engine.Result `json:"result"`
}

// ResultSummary is the listing form of a StoredResult
type ResultSummary struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	Player        string    `json:"player"`
	SetName       string    `json:"set_name"`
	Score         int       `json:"score"`
	Health        int       `json:"health"`
	AttemptCount  int       `json:"attempt_count"`
	TotalDuration int64     `json:"total_duration_ms"`
	FinishedAt    time.Time `json:"finished_at"`
}

// Summarize flattens a stored result for listings
func (r *StoredResult) Summarize() *ResultSummary {
	sum := &ResultSummary{
		ID:         r.ID,
		SessionID:  r.SessionID,
		FinishedAt: r.FinishedAt,
	}
	if r.Result == nil {
		return sum
	}
	sum.Player = r.Result.Player.Name
	sum.Score = r.Result.Score
	sum.Health = r.Result.Health
	if set := r.Result.Set; set != nil {
		sum.SetName = set.Name
		if set.Record != nil {
			sum.AttemptCount = set.Record.AttemptCount
			sum.TotalDuration = set.Record.TotalDuration
		}
	}
	return sum
}
