package engine

import (
	"math/rand"
	"time"
)

// QuestionSet walks an ordered list of targets and times the whole run with one Recorder
type QuestionSet struct {
	name      string
	questions []string
	split     SplitMode
	index     int
	tries     []int // attempts per target
	recorder  *Recorder
}

// SetResult is the serialized outcome of a completed question set
type SetResult struct {
	Name      string   `json:"name"`
	Questions []string `json:"questions"`
	Attempts  []int    `json:"attempts"` // answers submitted per question
	Record    *Record  `json:"record"`
}

// NewQuestionSet copies the configured questions, shuffling them if requested
func NewQuestionSet(cfg QuestionSetConfig, rng *rand.Rand, now func() time.Time) (*QuestionSet, error) {
	if len(cfg.Questions) == 0 {
		return nil, ErrNoQuestions
	}
	qs := make([]string, len(cfg.Questions))
	copy(qs, cfg.Questions)
	if cfg.Shuffle && rng != nil {
		Shuffle(qs, rng)
	}
	split := cfg.Split
	if split == "" {
		split = SplitChar
	}
	return &QuestionSet{
		name:      cfg.Name,
		questions: qs,
		split:     split,
		tries:     make([]int, len(qs)),
		recorder:  NewRecorder(now),
	}, nil
}

func (q *QuestionSet) Name() string     { return q.name }
func (q *QuestionSet) Size() int        { return len(q.questions) }
func (q *QuestionSet) Index() int       { return q.index }
func (q *QuestionSet) Split() SplitMode { return q.split }
func (q *QuestionSet) Current() string  { return q.questions[q.index] }
func (q *QuestionSet) IsLast() bool     { return q.index == len(q.questions)-1 }
func (q *QuestionSet) HasStarted() bool { return q.recorder.Started() }
func (q *QuestionSet) Finished() bool   { return q.recorder.Ended() }

// CurrentUnits returns the tile units of the current target
func (q *QuestionSet) CurrentUnits() []string {
	return SplitUnits(q.Current(), q.split)
}

// Questions returns the targets in play order
func (q *QuestionSet) Questions() []string {
	out := make([]string, len(q.questions))
	copy(out, q.questions)
	return out
}

func (q *QuestionSet) StartTimer() error { return q.recorder.StartTimer() }

// Try records an answer for the current target
func (q *QuestionSet) Try(answer string) error {
	if err := q.recorder.Try(answer); err != nil {
		return err
	}
	q.tries[q.index]++
	return nil
}

// Next moves to the following target; it reports false when there is none
func (q *QuestionSet) Next() bool {
	if q.IsLast() {
		return false
	}
	q.index++
	return true
}

// Finish stops the timer after the last target is solved
func (q *QuestionSet) Finish() error { return q.recorder.EndTimer() }

func (q *QuestionSet) Attempts() int { return q.recorder.AttemptCount() }

// Result returns the outcome once the set is finished
func (q *QuestionSet) Result() (*SetResult, error) {
	rec, err := q.recorder.Snapshot()
	if err != nil {
		return nil, err
	}
	tries := make([]int, len(q.tries))
	copy(tries, q.tries)
	return &SetResult{Name: q.name, Questions: q.Questions(), Attempts: tries, Record: rec}, nil
}
