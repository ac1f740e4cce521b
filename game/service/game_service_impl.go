package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/concentration/game/engine"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	scores   ScoreStore
	logger   *zap.Logger
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance. scores may be nil,
// in which case no best score is ever reported.
func NewGameService(sessions SessionManager, scores ScoreStore, logger *zap.Logger) GameService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &gameServiceImpl{
		sessions: sessions,
		scores:   scores,
		logger:   logger,
	}
}

func sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.GetState(),
	}
}

// CreateSession creates a new game session. An empty sessionID lets the
// session manager generate one.
func (s *gameServiceImpl) CreateSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.sessions.Create(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("session created", zap.String("session", session.ID))
	return sessionInfo(session), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return sessionInfo(session), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(sessionID)
}

// SelectCard forwards a card selection to the session's engine. Selections
// that break a turn rule are not errors; they come back with Success false
// and the reason in Selection.
func (s *gameServiceImpl) SelectCard(ctx context.Context, sessionID string, position int) (*SelectResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	sel := sess.Engine.SelectCard(position)
	state := sess.Engine.GetState()

	result := &SelectResult{
		Success:   sel.Accepted,
		Selection: sel,
		GameState: state,
	}
	if position >= 0 && position < len(state.Cards) {
		card := state.Cards[position]
		result.Card = &card
	}

	now := time.Now()
	pos := position
	switch {
	case !sel.Accepted:
		result.Message = rejectMessage(sel.Reason, position)
		result.Events = append(result.Events, GameEvent{
			Type:      EventRejected,
			Message:   result.Message,
			Timestamp: now,
			Position:  &pos,
		})
	case !sel.PairComplete:
		result.Message = fmt.Sprintf("Flipped %s at position %d", result.Card.Item.Identity, position)
		result.Events = append(result.Events, GameEvent{
			Type:      EventFlip,
			Message:   result.Message,
			Timestamp: now,
			Position:  &pos,
		})
	default:
		result.Events = append(result.Events, GameEvent{
			Type:      EventFlip,
			Message:   fmt.Sprintf("Flipped %s at position %d", result.Card.Item.Identity, position),
			Timestamp: now,
			Position:  &pos,
		})
		if sel.Matched {
			result.Message = fmt.Sprintf("Match! Both cards show %s (move %d)", result.Card.Item.Identity, state.Moves)
		} else {
			result.Message = fmt.Sprintf("No match (move %d). The cards turn back over in %s", state.Moves, engine.MismatchDelay)
		}
		result.Events = append(result.Events, GameEvent{
			Type:      EventPairTurned,
			Message:   result.Message,
			Timestamp: now,
		})
	}

	if err := s.sessions.Save(sessionID); err != nil {
		s.logger.Warn("failed to persist session after selection", zap.String("session", sessionID), zap.Error(err))
	}

	return result, nil
}

func rejectMessage(reason engine.RejectReason, position int) string {
	switch reason {
	case engine.RejectOutOfRange:
		return fmt.Sprintf("Position %d is not on the board (0-%d)", position, engine.DeckSize-1)
	case engine.RejectPairPending:
		return "Two cards are already face up; wait for them to resolve"
	case engine.RejectAlreadyFlipped:
		return fmt.Sprintf("Card at position %d is already face up", position)
	case engine.RejectAlreadyMatched:
		return fmt.Sprintf("Card at position %d is already matched", position)
	case engine.RejectClosed:
		return "Game is closed"
	default:
		return "Selection ignored"
	}
}

// NewGame deals a fresh game in the session
func (s *gameServiceImpl) NewGame(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	sess.Engine.StartNewGame()

	if err := s.sessions.Save(sessionID); err != nil {
		s.logger.Warn("failed to persist session after new game", zap.String("session", sessionID), zap.Error(err))
	}
	return sess.Engine.GetState(), nil
}

// Reshuffle re-permutes the session's current deck
func (s *gameServiceImpl) Reshuffle(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	sess.Engine.Reshuffle()

	if err := s.sessions.Save(sessionID); err != nil {
		s.logger.Warn("failed to persist session after reshuffle", zap.String("session", sessionID), zap.Error(err))
	}
	return sess.Engine.GetState(), nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return sess.Engine.GetState(), nil
}

// GetBestScore reads the persisted best score. An unreachable store or an
// unparsable value reports no best score.
func (s *gameServiceImpl) GetBestScore(ctx context.Context) (*BestScoreInfo, error) {
	if s.scores == nil {
		return &BestScoreInfo{}, nil
	}

	raw, ok, err := s.scores.Get(ctx, engine.BestScoreKey)
	if err != nil {
		s.logger.Warn("best score unavailable", zap.Error(err))
		return &BestScoreInfo{}, nil
	}
	if !ok {
		return &BestScoreInfo{}, nil
	}

	moves, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || moves < 0 {
		s.logger.Warn("ignoring malformed best score", zap.String("value", raw))
		return &BestScoreInfo{}, nil
	}
	return &BestScoreInfo{Present: true, Moves: moves}, nil
}

// Catalog returns the items every deck is built from
func (s *gameServiceImpl) Catalog(ctx context.Context) []engine.Item {
	return engine.Catalog()
}

func (s *gameServiceImpl) Health(ctx context.Context) error {
	if s.scores == nil {
		return nil
	}
	if err := s.scores.Ping(ctx); err != nil {
		return fmt.Errorf("best score store: %w", err)
	}
	return nil
}
