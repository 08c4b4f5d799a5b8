// Package websocket provides the live WebSocket transport for Spell Ground.
//
// The websocket package implements:
//   - Per-session broadcast of puzzle snapshots and events
//   - Inbound pointer events from browser clients
//   - Connection lifecycle management
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub owns all
// connections. Run is the only goroutine touching the client map. Each
// client has a read pump and a write pump.
//
// Message Protocol:
//
// Outgoing messages are one JSON document per frame:
//
//	{"session_id": "ab12", "event": "snapshot", "snapshot": {...}}
//	{"session_id": "ab12", "event": "event", "data": {"type": "answer_correct", ...}}
//	{"session_id": "ab12", "event": "error", "data": "unknown pointer phase \"hover\""}
//
// Incoming messages carry raw pointer input in world coordinates:
//
//	{"type": "pointer", "pointer": {"pointer_id": 1, "phase": "down", "x": 10, "y": 20, "time_ms": 1234}}
//
// Usage:
//
//	hub := websocket.NewHub(websocket.WithLogger(logger))
//	go hub.Run()
//	defer hub.Stop()
//
//	hub.SetInboundHandler(func(id string, in engine.PointerInput) error {
//		_, err := svc.Pointer(ctx, id, in)
//		return err
//	})
//
//	svc := service.NewGameService(sessions, configs, service.WithNotifier(hub))
//
// Concurrency:
//
// NotifySnapshot and NotifyEvent never block. When the outbound queue is full
// the message is dropped and the next frame's snapshot supersedes it.
package websocket
