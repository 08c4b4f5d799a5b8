// Package mcp provides a Model Context Protocol front end for Spell Ground.
//
// The client is a thin proxy: every tool call is translated into a request
// against the REST API served by the api package, so agents share sessions
// with browsers and scripts.
//
// MCP Tools:
//   - create_session: Start a puzzle from a question set or a list of questions
//   - list_sessions: List active sessions
//   - puzzle_state: Current word, health and tiles sorted left to right
//   - move_tile: Drag one tile to a position
//   - click_tile: Toggle a tile highlight
//   - spell_answer: Place tiles in the given order and merge
//   - merge: Submit the tiles in their current order
//   - arrange: Scatter, spiral or row-pack the tiles
//   - speak: Word to pronounce for the current question
//   - get_result: Final score of a won puzzle
//   - list_question_sets: Available question sets
//   - list_results: Archived results
//   - game_instructions: Rules and strategy
//
// Merge and arrange are always settled, since agents cannot watch the
// animations that browsers see.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
