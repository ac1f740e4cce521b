// Package websocket provides WebSocket transport for the concentration game.
//
// The websocket package implements:
//   - Session-aware WebSocket connections
//   - Live broadcasting of every engine notification
//   - Client intents (select, new game, reshuffle)
//   - Connection lifecycle management
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub manages all
// WebSocket connections. Each client connection is handled by a read and a
// write goroutine. The client set is owned by the Run loop; everything else
// talks to it through channels.
//
// Message Protocol:
//
// Incoming frames are intents:
//
//	{"action": "select", "position": 3}
//	{"action": "new_game"}
//	{"action": "reshuffle"}
//	{"action": "state"}
//
// Outgoing frames are Message values. The engine's View and Sounds are
// mapped to events (board, card, moves, timer, win, best_score, sound) so a
// browser can mirror the board without polling. The reply to an intent is
// sent to the requesting client only, as a result or error event.
//
// Usage:
//
//	hub := websocket.NewHub(websocket.NewServiceHandler(gameService), logger)
//	go hub.Run(ctx)
//
//	eng := engine.NewEngine(engine.Options{
//		View:   hub.SessionView(id),
//		Sounds: hub.SessionSounds(id),
//	})
//
// Broadcasting never blocks: when the hub falls behind, messages are
// dropped and slow clients are disconnected.
package websocket
