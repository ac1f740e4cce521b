// Package engine provides the core game logic for the concentration card game.
//
// The engine package implements the game mechanics including:
//   - Deck construction from a fixed catalog of paired items
//   - Fisher-Yates shuffling with an injectable random source
//   - The two-card turn state machine with timed match/mismatch resolution
//   - Move counting, elapsed-time tracking and win detection
//   - Best-score persistence through a key/value store
//
// Core Types:
//
// The Engine interface defines the main contract for game operations,
// implemented by GameEngine. GameState is a snapshot of a game, Card is a
// single runtime card and Item is an immutable catalog entry.
//
// Usage:
//
//	gameEngine := engine.NewEngine(engine.Options{
//		View:   myView,
//		Sounds: engine.Sounds{OnMatch: playChime},
//		Store:  bestScores,
//	})
//
//	// Forward a click on the card at position 3
//	sel := gameEngine.SelectCard(3)
//	state := gameEngine.GetState()
//
// Game Rules:
//
// Each card moves Hidden -> Flipped -> Matched, or back to Hidden when the
// pair does not match. Flipping a second card counts one move. A match is
// committed after MatchDelay, a mismatch after the longer MismatchDelay, and
// no further card is accepted while a pair is waiting. The game is won when
// all CatalogSize pairs are matched; the lowest winning move count is kept as
// the best score.
//
// Timing:
//
// Delays and the one-second timer tick are scheduled on a clock.Clock. Tests
// drive the engine with clock.Fake to advance virtual time deterministically.
package engine
