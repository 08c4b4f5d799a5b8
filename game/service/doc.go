// Package service provides the business logic layer for Spell Ground.
//
// The service package implements:
//   - Multi-session puzzle management
//   - Question set selection from files, inline lists or the encoded q parameter
//   - Tile gestures, merges and arrangements
//   - A frame loop that advances animations and tile motion
//   - Archiving of won puzzles
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level puzzle operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager loads and saves question sets.
// ResultStore archives finished results, and Notifier pushes snapshots and
// events to connected clients.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the puzzle engine. Each session owns one engine.Puzzle guarded by the
// session mutex, because puzzles are driven both by requests and by the frame
// loop.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("question_sets")
//	gameService := service.NewGameService(sessionMgr, configMgr,
//		service.WithResultStore(store),
//		service.WithNotifier(hub),
//	)
//	go service.RunFrameLoop(ctx, gameService, engine.FrameDuration)
//
//	// Create a new session
//	info, err := gameService.CreateSession(ctx, service.CreateSessionRequest{SetName: "animals"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Drag a tile and merge, fast-forwarding the animation
//	_, _ = gameService.MoveTile(ctx, info.ID, 1, -200, 0)
//	result, err := gameService.Merge(ctx, info.ID, true)
//
// Session Management:
//
// Sessions are identified by unique 4-character IDs and keep independent
// puzzles. A won puzzle is archived once; its session stays readable until it
// expires.
package service
