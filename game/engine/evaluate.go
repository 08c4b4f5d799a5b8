package engine

import (
	"sort"
	"strings"
)

// Evaluation is the outcome of checking an ordered submission
type Evaluation struct {
	Perfect   bool   `json:"perfect"`
	Submitted string `json:"submitted"`
	Matched   []bool `json:"matched"`
	LCSLength int    `json:"lcs_length"`
}

// SplitUnits cuts a target answer into tile units: one per character,
// or one per whitespace-separated word
func SplitUnits(target string, mode SplitMode) []string {
	if mode == SplitWord {
		return strings.Fields(target)
	}
	units := make([]string, 0, len(target))
	for _, r := range target {
		units = append(units, string(r))
	}
	return units
}

// JoinUnits is the inverse of SplitUnits
func JoinUnits(units []string, mode SplitMode) string {
	if mode == SplitWord {
		return strings.Join(units, " ")
	}
	return strings.Join(units, "")
}

// OrderByX returns a copy of tiles sorted left to right. Ties keep their input order.
func OrderByX(tiles []*Tile) []*Tile {
	out := make([]*Tile, len(tiles))
	copy(out, tiles)
	sort.SliceStable(out, func(i, j int) bool { return out[i].X < out[j].X })
	return out
}

// LCSMatches aligns player against target with a longest-common-subsequence
// table and reports which player units belong to the alignment.
// Backtracking prefers moving up when dp[i-1][j] is strictly greater, else left.
func LCSMatches(player, target []string) ([]bool, int) {
	m, n := len(player), len(target)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if player[i-1] == target[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else {
				dp[i][j] = max(dp[i-1][j], dp[i][j-1])
			}
		}
	}

	matched := make([]bool, m)
	i, j := m, n
	for i > 0 && j > 0 {
		switch {
		case player[i-1] == target[j-1]:
			matched[i-1] = true
			i--
			j--
		case dp[i-1][j] > dp[i][j-1]:
			i--
		default:
			j--
		}
	}
	return matched, dp[m][n]
}

// Evaluate checks tiles, already in reading order, against the target units.
// Unmatched tiles are highlighted and matched ones cleared.
func Evaluate(ordered []*Tile, target []string, mode SplitMode) Evaluation {
	player := make([]string, len(ordered))
	for i, t := range ordered {
		player[i] = t.Text
	}

	matched, length := LCSMatches(player, target)
	perfect := len(player) == len(target)
	for i, t := range ordered {
		t.Highlighted = !matched[i]
		if !matched[i] {
			perfect = false
		}
	}

	return Evaluation{
		Perfect:   perfect,
		Submitted: JoinUnits(player, mode),
		Matched:   matched,
		LCSLength: length,
	}
}

// ReadText reconstructs free-form text from tile positions: tiles are grouped
// into lines by y within 60% of the mean tile height, lines are read top to
// bottom and each line left to right, joined by sep.
func ReadText(tiles []*Tile, sep string) string {
	if len(tiles) == 0 {
		return ""
	}
	var sum float64
	for _, t := range tiles {
		sum += t.Height
	}
	tolerance := sum / float64(len(tiles)) * 0.6

	byY := make([]*Tile, len(tiles))
	copy(byY, tiles)
	sort.SliceStable(byY, func(i, j int) bool { return byY[i].Y < byY[j].Y })

	var lines [][]*Tile
	var line []*Tile
	ref := byY[0].Y
	for _, t := range byY {
		if len(line) > 0 && t.Y-ref > tolerance {
			lines = append(lines, line)
			line = nil
			ref = t.Y
		}
		line = append(line, t)
	}
	lines = append(lines, line)

	words := make([]string, 0, len(tiles))
	for _, l := range lines {
		for _, t := range OrderByX(l) {
			words = append(words, t.Text)
		}
	}
	return strings.Join(words, sep)
}
