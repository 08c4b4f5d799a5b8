package engine

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	ErrNoQuestions        = errors.New("question set has no questions")
	ErrInvalidQuestionSet = errors.New("invalid question set")
)

// DefaultQuestionSet is used when no set is requested
func DefaultQuestionSet() QuestionSetConfig {
	return QuestionSetConfig{
		Name:        "default",
		Description: "Two warm-up words",
		Questions:   []string{"quality", "adventure"},
		Split:       SplitChar,
		MaxHealth:   DefaultMaxHealth,
	}
}

// ValidateQuestionSet checks a question set is playable
func ValidateQuestionSet(cfg *QuestionSetConfig) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidQuestionSet)
	}
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidQuestionSet)
	}
	if len(cfg.Questions) == 0 {
		return ErrNoQuestions
	}
	if len(cfg.Questions) > MaxQuestions {
		return fmt.Errorf("%w: at most %d questions allowed, got %d", ErrInvalidQuestionSet, MaxQuestions, len(cfg.Questions))
	}

	switch cfg.Split {
	case "", SplitChar, SplitWord:
	default:
		return fmt.Errorf("%w: split must be %q or %q, got %q", ErrInvalidQuestionSet, SplitChar, SplitWord, cfg.Split)
	}

	if cfg.MaxHealth != 0 && (cfg.MaxHealth < MinHealth || cfg.MaxHealth > MaxHealthLimit) {
		return fmt.Errorf("%w: max_health must be between %d and %d, got %d", ErrInvalidQuestionSet, MinHealth, MaxHealthLimit, cfg.MaxHealth)
	}

	for i, q := range cfg.Questions {
		units := SplitUnits(q, cfg.Split)
		if strings.TrimSpace(q) == "" || len(units) == 0 {
			return fmt.Errorf("%w: question %d is empty", ErrInvalidQuestionSet, i+1)
		}
		for _, u := range units {
			if utf8.RuneCountInString(u) > MaxUnitLength {
				return fmt.Errorf("%w: question %d has a part longer than %d characters", ErrInvalidQuestionSet, i+1, MaxUnitLength)
			}
		}
	}

	return nil
}

// DecodeQuestionParam decodes the shareable "q" parameter: base64 text with
// questions separated by "|". Standard and URL alphabets are accepted, padded or not.
func DecodeQuestionParam(q string) ([]string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, ErrNoQuestions
	}

	var data []byte
	var err error
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding, base64.RawStdEncoding, base64.RawURLEncoding} {
		if data, err = enc.DecodeString(q); err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: q is not base64: %v", ErrInvalidQuestionSet, err)
	}

	var out []string
	for _, part := range strings.Split(string(data), "|") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoQuestions
	}
	return out, nil
}

// EncodeQuestionParam is the inverse of DecodeQuestionParam
func EncodeQuestionParam(questions []string) string {
	return base64.StdEncoding.EncodeToString([]byte(strings.Join(questions, "|")))
}
