// Package service provides the business logic layer for the concentration game.
//
// The service package implements:
//   - Multi-session game management
//   - Card selection, new game and reshuffle per session
//   - Best score lookup and store health
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ScoreStore is the read side of the best score store.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. Each session owns its own engine; the best score store is
// shared by all of them.
//
// Usage:
//
//	sessionMgr := session.NewManager(newEngine, logger)
//	gameService := service.NewGameService(sessionMgr, bestScores, logger)
//
//	sessionInfo, err := gameService.CreateSession(ctx, "")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.SelectCard(ctx, sessionInfo.ID, 3)
//
// Selections that break a turn rule are not errors. They return a
// SelectResult with Success false and the engine's reject reason.
package service
