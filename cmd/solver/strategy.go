package main

import (
	"errors"
	"math/rand"
	"strings"
	"unicode"

	"github.com/wricardo/spellground/game/engine"
)

var errNoArrangement = errors.New("no arrangement of the tiles spells the word")

// planAnswer picks the tile ids that spell word in order. Tiles with the same
// text are interchangeable; whitespace in word is skipped unless a tile holds
// it, as in character split where spaces become tiles.
func planAnswer(word string, tiles []engine.Tile) ([]int, error) {
	used := make([]bool, len(tiles))
	plan := make([]int, 0, len(tiles))

	var solve func(rest string) bool
	solve = func(rest string) bool {
		if rest == "" {
			return len(plan) == len(tiles)
		}
		for i, t := range tiles {
			if used[i] || t.Text == "" || !strings.HasPrefix(rest, t.Text) {
				continue
			}
			used[i] = true
			plan = append(plan, t.ID)
			if solve(rest[len(t.Text):]) {
				return true
			}
			used[i] = false
			plan = plan[:len(plan)-1]
		}
		// word split drops the separators
		if r := []rune(rest)[0]; unicode.IsSpace(r) {
			return solve(rest[len(string(r)):])
		}
		return false
	}

	if !solve(word) {
		return nil, errNoArrangement
	}
	return plan, nil
}

// scramble returns a different order of plan when one exists, for deliberate
// wrong answers
func scramble(plan []int, rng *rand.Rand) []int {
	out := make([]int, len(plan))
	copy(out, plan)
	if len(out) < 2 {
		return out
	}
	for attempt := 0; attempt < 10; attempt++ {
		engine.Shuffle(out, rng)
		if !equal(out, plan) {
			return out
		}
	}
	// reversing always differs for distinct ids
	copy(out, plan)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func equal(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// rowPositions centers n slots of width spacing on x=0
func rowPositions(n int, spacing float64) []float64 {
	xs := make([]float64, n)
	start := -spacing * float64(n-1) / 2
	for i := range xs {
		xs[i] = start + spacing*float64(i)
	}
	return xs
}
