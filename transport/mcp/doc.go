// Package mcp provides a Model Context Protocol server for the concentration
// game.
//
// The server is a thin client: every tool call is translated into a request
// against the REST API, so MCP agents and browsers share the same sessions.
//
// MCP Tools:
//   - create_session, get_session, list_sessions, delete_session
//   - game_state: Board, moves, timer and best score
//   - select_card: Flip the card at a position
//   - new_game, reshuffle
//   - best_score, catalog, game_instructions
//
// Face-down cards are printed as "??"; their identities never reach the
// agent.
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: POST /mcp handled by GetMCPServer().HandleMessage
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
//		log.Fatal(err)
//	}
package mcp
