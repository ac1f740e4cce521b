// Package api provides HTTP REST API handlers for the concentration game.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session, body {"session_id": "abcd"} optional
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=n)
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Delete a session
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Current game state
//   - POST /api/sessions/{id}/select - Flip a card, body {"position": 3}
//   - POST /api/sessions/{id}/new-game - Deal a new shuffled game
//   - POST /api/sessions/{id}/reshuffle - Re-permute the current deck
//
// Shared:
//   - GET /api/best-score - Lowest winning move count
//   - GET /api/catalog - The eight items in play
//   - GET /api/health - Best score store reachability
//   - GET /ws?session={id} - WebSocket upgrade
//
// A rejected selection (pair pending, card already face up, position out of
// range) is a normal 200 response with success false; the reason is in
// selection.reason.
//
// Error Handling:
//
// Errors are returned as JSON with a status derived from the service error:
// 404 for an unknown session, 409 for a duplicate ID, 400 for a malformed
// ID or body.
//
//	{"error": "session not found: session not found"}
package api
