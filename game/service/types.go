package service

import (
	"time"

	"github.com/wricardo/mcp-training/concentration/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string            `json:"id"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	GameState      *engine.GameState `json:"game_state"`
}

// SelectResult contains the outcome of a card selection
type SelectResult struct {
	Success   bool              `json:"success"`
	Selection engine.Selection  `json:"selection"`
	GameState *engine.GameState `json:"game_state"`
	Message   string            `json:"message"`
	Events    []GameEvent       `json:"events,omitempty"`

	// Card is the card that was selected when the position was on the board
	Card *engine.Card `json:"card,omitempty"`
}

// Event types reported in SelectResult.Events
const (
	EventFlip       = "flip"
	EventPairTurned = "pair_turned"
	EventRejected   = "rejected"
	EventNewGame    = "new_game"
	EventReshuffle  = "reshuffle"
)

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Position  *int      `json:"position,omitempty"`
}

// BestScoreInfo reports the persisted best score
type BestScoreInfo struct {
	Present bool `json:"present"`
	Moves   int  `json:"moves,omitempty"`
}
