package mcp

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/wricardo/spellground/game/engine"
	"github.com/wricardo/spellground/game/service"
)

// textColumn is the display width of the tile text column
const textColumn = 8

func formatSessionInfo(info *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session ID: %s\n", info.ID)
	fmt.Fprintf(&b, "Question set: %s\n", info.SetName)
	fmt.Fprintf(&b, "Created: %s\n", info.CreatedAt.Format(time.RFC3339))
	if info.Snapshot != nil {
		b.WriteString("\n")
		b.WriteString(formatSnapshot(info.Snapshot))
	}
	return b.String()
}

func formatSessionList(sessions []service.SessionInfo) string {
	if len(sessions) == 0 {
		return "No active sessions"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active sessions (%d):\n", len(sessions))
	for _, s := range sessions {
		line := fmt.Sprintf("- %s  set=%s", s.ID, s.SetName)
		if s.Snapshot != nil {
			line += fmt.Sprintf("  state=%s  question=%d/%d  health=%d",
				s.Snapshot.State, s.Snapshot.QuestionIndex+1, s.Snapshot.QuestionCount, s.Snapshot.Health)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// formatSnapshot renders the puzzle with tiles listed left to right, which is
// the order a merge would read them in
func formatSnapshot(snap *engine.Snapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "State: %s\n", snap.State)
	if snap.State == engine.StateWin {
		fmt.Fprintf(&b, "All %d questions solved with %d/%d health\n", snap.QuestionCount, snap.Health, snap.MaxHealth)
		return b.String()
	}
	fmt.Fprintf(&b, "Question %d/%d: %q\n", snap.QuestionIndex+1, snap.QuestionCount, snap.Word)
	fmt.Fprintf(&b, "Health: %d/%d  Attempts: %d\n", snap.Health, snap.MaxHealth, snap.Attempts)
	if snap.Animating {
		b.WriteString("Tiles are moving, input is ignored until they settle\n")
	}

	tiles := make([]engine.Tile, len(snap.Tiles))
	copy(tiles, snap.Tiles)
	sort.SliceStable(tiles, func(i, j int) bool { return tiles[i].X < tiles[j].X })

	b.WriteString("\nTiles (left to right):\n")
	for _, t := range tiles {
		marker := " "
		if t.Highlighted {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s id=%-3d %s x=%7.1f y=%7.1f\n",
			marker, t.ID, runewidth.FillRight(fmt.Sprintf("%q", t.Text), textColumn), t.X, t.Y)
	}
	b.WriteString("\nCurrent order: ")
	for _, t := range tiles {
		b.WriteString(t.Text)
	}
	b.WriteString("\n")

	return b.String()
}

func formatActionResult(result *service.ActionResult) string {
	var b strings.Builder

	if result.Message != "" {
		b.WriteString(result.Message + "\n")
	}
	if ev := result.Evaluation; ev != nil {
		if ev.Perfect {
			fmt.Fprintf(&b, "Correct: %q\n", ev.Submitted)
		} else {
			matched := 0
			for _, m := range ev.Matched {
				if m {
					matched++
				}
			}
			fmt.Fprintf(&b, "Incorrect: %q (%d tiles in the right relative order)\n", ev.Submitted, matched)
		}
	}
	for _, ev := range result.Events {
		switch ev.Type {
		case engine.EventAnswerIncorrect:
			fmt.Fprintf(&b, "Health is now %d\n", ev.Health)
		case engine.EventQuestionLoaded:
			fmt.Fprintf(&b, "Next question loaded (%d)\n", ev.QuestionIndex+1)
		case engine.EventWon:
			b.WriteString("Puzzle solved! Call get_result for the score\n")
		}
	}
	if result.Snapshot != nil {
		b.WriteString("\n")
		b.WriteString(formatSnapshot(result.Snapshot))
	}

	return b.String()
}

func formatResult(result *engine.Result) string {
	var b strings.Builder

	b.WriteString("Puzzle complete\n")
	if result.Player.Name != "" {
		fmt.Fprintf(&b, "Player: %s\n", result.Player.Name)
	}
	fmt.Fprintf(&b, "Score: %d\n", result.Score)
	fmt.Fprintf(&b, "Health: %d/%d\n", result.Health, result.MaxHealth)
	fmt.Fprintf(&b, "Audio plays: %d\n", result.AudioPlays)
	if set := result.Set; set != nil {
		fmt.Fprintf(&b, "Set: %s (%d questions)\n", set.Name, len(set.Questions))
		for i, q := range set.Questions {
			if i < len(set.Attempts) {
				fmt.Fprintf(&b, "  %q: %d attempts\n", q, set.Attempts[i])
			}
		}
		if rec := set.Record; rec != nil {
			fmt.Fprintf(&b, "Attempts: %d in %s\n", rec.AttemptCount, time.Duration(rec.TotalDuration)*time.Millisecond)
			for i, a := range rec.Entries {
				fmt.Fprintf(&b, "  %d. %q\n", i+1, a.Answer)
			}
		}
	}
	return b.String()
}

func formatQuestionSets(sets []service.QuestionSetInfo) string {
	if len(sets) == 0 {
		return "No question sets available"
	}

	width := 0
	for _, s := range sets {
		width = max(width, runewidth.StringWidth(s.SetID))
	}

	var b strings.Builder
	b.WriteString("Question sets:\n")
	for _, s := range sets {
		fmt.Fprintf(&b, "- %s  %s (%d questions, split=%s, max health %d)\n",
			runewidth.FillRight(s.SetID, width), s.Name, s.QuestionCount, s.Split, s.MaxHealth)
		if s.Description != "" {
			fmt.Fprintf(&b, "  %s  %s\n", strings.Repeat(" ", width), s.Description)
		}
	}
	return b.String()
}

func formatResultSummaries(results []service.ResultSummary) string {
	if len(results) == 0 {
		return "No finished puzzles yet"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Finished puzzles (%d):\n", len(results))
	for _, r := range results {
		player := r.Player
		if player == "" {
			player = "anonymous"
		}
		fmt.Fprintf(&b, "- %s  %s  set=%s  score=%d  health=%d  attempts=%d  %s\n",
			r.FinishedAt.Format(time.RFC3339), player, r.SetName, r.Score, r.Health, r.AttemptCount,
			time.Duration(r.TotalDuration)*time.Millisecond)
	}
	return b.String()
}
