package main

import (
	"math/rand"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/spellground/api"
	"github.com/wricardo/spellground/game/config"
	"github.com/wricardo/spellground/game/engine"
	"github.com/wricardo/spellground/game/service"
	"github.com/wricardo/spellground/game/session"
)

func tiles(texts ...string) []engine.Tile {
	out := make([]engine.Tile, len(texts))
	for i, text := range texts {
		out[i] = engine.Tile{ID: 10 + i, Text: text}
	}
	return out
}

func TestPlanAnswer(t *testing.T) {
	tests := []struct {
		name  string
		word  string
		tiles []engine.Tile
		want  []int
	}{
		{"characters", "cat", tiles("t", "c", "a"), []int{11, 12, 10}},
		{"repeated letters", "letter", tiles("t", "e", "r", "l", "t", "e"), []int{13, 11, 10, 14, 15, 12}},
		{"words", "see you soon", tiles("soon", "see", "you"), []int{11, 12, 10}},
		{"space tile", "hi yo", tiles("o", " ", "y", "h", "i"), []int{13, 14, 11, 12, 10}},
		// "ab" matches first but leaves "cab" unspellable
		{"backtracking", "abcab", tiles("ab", "abc"), []int{11, 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := planAnswer(tt.word, tt.tiles)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlanAnswerFailures(t *testing.T) {
	_, err := planAnswer("cat", tiles("c", "a"))
	assert.ErrorIs(t, err, errNoArrangement, "missing tile")

	_, err = planAnswer("cat", tiles("c", "a", "t", "x"))
	assert.ErrorIs(t, err, errNoArrangement, "spare tile")
}

func TestScramble(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	plan := []int{1, 2, 3, 4}

	for i := 0; i < 20; i++ {
		got := scramble(plan, rng)
		assert.ElementsMatch(t, plan, got)
		assert.NotEqual(t, plan, got)
	}
	assert.Equal(t, []int{1, 2, 3, 4}, plan, "scramble must not modify its input")
	assert.Equal(t, []int{7}, scramble([]int{7}, rng))
}

func TestRowPositions(t *testing.T) {
	assert.Equal(t, []float64{-100, 0, 100}, rowPositions(3, 100))
	assert.Equal(t, []float64{-50, 50}, rowPositions(2, 100))
	assert.Equal(t, []float64{0}, rowPositions(1, 100))
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.json"),
		[]byte(`{"name": "Pets", "questions": ["cat", "dog"]}`), 0644))

	configs, err := config.NewManager(dir)
	require.NoError(t, err)

	svc := service.NewGameService(session.NewManager(), configs, service.WithResultStore(session.NewMemoryResultStore()))
	server := httptest.NewServer(api.NewServer(svc, nil))
	t.Cleanup(server.Close)
	return server
}

func TestPlay(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		name       string
		req        service.CreateSessionRequest
		mistakes   int
		wantHealth int
		wantScore  int
		wantTries  []int
	}{
		{"default set", service.CreateSessionRequest{}, 0, 10, 20, []int{1, 1}},
		{"with mistakes", service.CreateSessionRequest{}, 2, 6, 12, []int{3, 3}},
		{"custom words", service.CreateSessionRequest{Questions: []string{"see you soon"}, Split: engine.SplitWord}, 1, 9, 9, []int{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(server.URL)
			_, err := client.CreateSession(t.Context(), tt.req)
			require.NoError(t, err)

			result, err := play(t.Context(), client, playOptions{Mistakes: tt.mistakes, MaxAttempts: 20, Seed: 1}, zerolog.Nop())
			require.NoError(t, err)

			assert.Equal(t, tt.wantHealth, result.Health)
			assert.Equal(t, tt.wantScore, result.Score)
			require.NotNil(t, result.Set)
			require.NotNil(t, result.Set.Record)
			assert.Equal(t, tt.wantTries, result.Set.Attempts)
			total := 0
			for _, n := range tt.wantTries {
				total += n
			}
			assert.Equal(t, total, result.Set.Record.AttemptCount)
		})
	}
}

func TestPlayGivesUp(t *testing.T) {
	server := newTestServer(t)
	client := NewClient(server.URL)
	_, err := client.CreateSession(t.Context(), service.CreateSessionRequest{})
	require.NoError(t, err)

	_, err = play(t.Context(), client, playOptions{Mistakes: 5, MaxAttempts: 3, Seed: 1}, zerolog.Nop())
	assert.ErrorIs(t, err, errGaveUp)
}

func TestClientErrors(t *testing.T) {
	server := newTestServer(t)
	client := NewClient(server.URL)
	client.sessionID = "zz99"

	_, err := client.GetState(t.Context())
	assert.ErrorContains(t, err, "session not found")
}
