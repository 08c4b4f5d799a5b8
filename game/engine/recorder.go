package engine

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrTimerAlreadyStarted = errors.New("timer already started")
	ErrTimerNotStarted     = errors.New("timer not started")
	ErrTimerEnded          = errors.New("timer already ended")
	ErrTimerActive         = errors.New("timer still running")
)

// Attempt is one submitted answer; Time is milliseconds since the timer started
type Attempt struct {
	Time   int64  `json:"time"`
	Answer string `json:"answer"`
}

// Record is the serialized form of a finished recorder
type Record struct {
	StartTime     int64     `json:"startTime"`
	EndTime       int64     `json:"endTime"`
	TotalDuration int64     `json:"totalDuration"`
	AttemptCount  int       `json:"attemptCount"`
	Entries       []Attempt `json:"entries"`
}

// Recorder logs timed attempts between StartTimer and EndTimer.
// It does not judge answers.
type Recorder struct {
	now     func() time.Time
	start   time.Time
	end     time.Time
	started bool
	ended   bool
	entries []Attempt
}

// NewRecorder creates a recorder using now as its clock; nil means time.Now
func NewRecorder(now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{now: now}
}

func (r *Recorder) Started() bool { return r.started }
func (r *Recorder) Ended() bool   { return r.ended }

// StartTimer may be called once
func (r *Recorder) StartTimer() error {
	if r.Started() {
		return ErrTimerAlreadyStarted
	}
	r.start = r.now()
	r.started = true
	return nil
}

// Try appends an attempt stamped with the elapsed time
func (r *Recorder) Try(answer string) error {
	if !r.Started() {
		return ErrTimerNotStarted
	}
	if r.Ended() {
		return ErrTimerEnded
	}
	elapsed := r.now().Sub(r.start).Milliseconds()
	if elapsed < 0 {
		elapsed = 0
	}
	r.entries = append(r.entries, Attempt{Time: elapsed, Answer: answer})
	return nil
}

// EndTimer stops the clock; further attempts are rejected
func (r *Recorder) EndTimer() error {
	if !r.Started() {
		return ErrTimerNotStarted
	}
	if r.Ended() {
		return ErrTimerEnded
	}
	r.end = r.now()
	if r.end.Before(r.start) {
		r.end = r.start
	}
	r.ended = true
	return nil
}

// AttemptCount returns the number of attempts so far
func (r *Recorder) AttemptCount() int { return len(r.entries) }

// Entries returns a copy of the attempts in submission order
func (r *Recorder) Entries() []Attempt {
	out := make([]Attempt, len(r.entries))
	copy(out, r.entries)
	return out
}

// Snapshot returns the record of a finished recorder
func (r *Recorder) Snapshot() (*Record, error) {
	if !r.Started() {
		return nil, ErrTimerNotStarted
	}
	if !r.Ended() {
		return nil, ErrTimerActive
	}
	return &Record{
		StartTime:     r.start.UnixMilli(),
		EndTime:       r.end.UnixMilli(),
		TotalDuration: r.end.Sub(r.start).Milliseconds(),
		AttemptCount:  len(r.entries),
		Entries:       r.Entries(),
	}, nil
}

// Serialize renders the finished record as JSON
func (r *Recorder) Serialize() ([]byte, error) {
	rec, err := r.Snapshot()
	if err != nil {
		return nil, err
	}
	return json.Marshal(rec)
}
