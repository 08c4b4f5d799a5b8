// Package session provides session management for Spell Ground.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Session expiry for idle puzzles
//   - Archiving of won results in memory or as JSON files
//
// Core Types:
//
// Manager creates a service.Session around a fresh engine.Puzzle and tracks
// creation and last access times. FileResultStore and MemoryResultStore
// implement service.ResultStore.
//
// Session Identifiers:
//
// Sessions use 4-character hex IDs for easy reference, compared
// case-insensitively. Generation uses cryptographic randomness and retries on
// collision. Stored results are named by UUID.
//
// Usage:
//
//	manager := session.NewManager(session.WithLogger(logger))
//
//	sess, err := manager.Create("", set, engine.DefaultPuzzleConfig(), engine.Player{Name: "ada"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	store, err := session.NewFileResultStore("results", logger)
//
//	// Drop sessions idle for an hour
//	removed := manager.CleanupExpiredSessions(time.Hour)
package session
