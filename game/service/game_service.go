package service

import (
	"context"
	"time"

	"github.com/wricardo/mcp-training/concentration/game/engine"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	SelectCard(ctx context.Context, sessionID string, position int) (*SelectResult, error)
	NewGame(ctx context.Context, sessionID string) (*engine.GameState, error)
	Reshuffle(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetBestScore(ctx context.Context) (*BestScoreInfo, error)
	Catalog(ctx context.Context) []engine.Item

	// Health reports whether the best score store is reachable
	Health(ctx context.Context) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ScoreStore is the read side of the best score store
type ScoreStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Ping(ctx context.Context) error
}

// Session represents an active game session
type Session struct {
	ID             string
	Engine         *engine.GameEngine
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
