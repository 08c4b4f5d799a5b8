// Package engine provides the core puzzle logic for Spell Ground.
//
// The engine package implements the puzzle mechanics including:
//   - Tile arena with monotonic ids and recycling between questions
//   - Drag versus click disambiguation for pointer gestures
//   - Layouts: force-directed scatter, square spiral, row packing and an
//     animated converge that joins on every tile landing
//   - Answer evaluation by longest-common-subsequence alignment with
//     highlighting of misplaced tiles
//   - Timed attempt recording and JSON results
//
// Core Types:
//
// Puzzle is the orchestrator. It moves through LOADING, READY, CHECKING and
// WIN, owns the tiles of the current question and keeps health, which drops by
// one per wrong answer but never below one. Controller and InputRouter turn
// pointer events into clicks and drags. Recorder and QuestionSet keep the
// attempt log that becomes the Result.
//
// Usage:
//
//	set := engine.DefaultQuestionSet()
//	puzzle, err := engine.NewPuzzle(set, engine.DefaultPuzzleConfig(), engine.Player{Name: "ada"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Drag a tile, then merge and let the animation finish
//	tile := puzzle.Tiles()[0]
//	_ = puzzle.MoveTile(tile.ID, -200, 0)
//	_ = puzzle.Merge()
//	for puzzle.Busy() {
//		puzzle.Update(engine.FrameDuration)
//	}
//
// Puzzle Rules:
//
// The target word is cut into tiles, shuffled and placed on a spiral. The
// player orders the tiles left to right and merges them. A perfect answer
// loads the next word or wins the set; anything else costs one health and
// highlights the tiles that are not part of the best alignment.
package engine
