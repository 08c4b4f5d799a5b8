// Package api provides the HTTP REST API for Spell Ground.
//
// The api package implements:
//   - Session management endpoints
//   - Puzzle operations (pointer input, tile moves, merge, arrangements)
//   - Question set listing and upload
//   - Archived result listing
//   - WebSocket upgrade handling
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session ({set_name} | {questions, split, shuffle} | {q}, player, seed)
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get a session with its snapshot
//   - DELETE /api/sessions/{id} - Delete a session
//
// Puzzle Operations:
//   - GET /api/sessions/{id}/state - Current snapshot
//   - POST /api/sessions/{id}/pointer - Raw pointer event {pointer_id, phase, x, y, time_ms}
//   - POST /api/sessions/{id}/move - Drag a tile {tile_id, x, y}
//   - POST /api/sessions/{id}/click - Tap a tile {tile_id}
//   - POST /api/sessions/{id}/merge - Submit the tiles {settle}
//   - POST /api/sessions/{id}/arrange - Lay tiles out {strategy: scatter|spiral|row_pack|converge, settle}
//   - POST /api/sessions/{id}/speak - Word to pronounce
//   - GET /api/sessions/{id}/result - Final result once the puzzle is won
//
// Question Sets and Results:
//   - GET /api/question-sets - List question set files
//   - GET /api/question-sets/{name} - Get one question set
//   - POST /api/question-sets - Save a question set (?id=name.yaml picks the file)
//   - GET /api/results - List archived results, newest first
//   - GET /api/results/{id} - Get one archived result
//
// Other:
//   - GET /ws?session={id} - WebSocket stream of snapshots and events
//   - GET /health - Liveness probe
//
// Settling:
//
// Merge and arrange start animations that the frame loop advances. With
// settle set (in the body or as ?settle=true) the animations are fast-forwarded
// and the response shows the outcome, which suits scripted clients.
//
// Usage:
//
//	server := api.NewServer(gameService, hub, api.WithLogger(logger))
//	http.ListenAndServe(":8080", server)
//
// Error Handling:
//
// Errors are returned as JSON with an HTTP status derived from the error:
//
//	{
//	  "error": "session zz99: session not found",
//	  "code": 404
//	}
//
// Missing sessions, sets, results and tiles map to 404, invalid input to 400
// and operations the puzzle cannot take in its current state to 409.
package api
