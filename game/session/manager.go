package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/concentration/game/engine"
	"github.com/wricardo/mcp-training/concentration/game/service"
)

var (
	ErrSessionNotFound      = service.ErrSessionNotFound
	ErrSessionAlreadyExists = service.ErrSessionAlreadyExists
	ErrInvalidSessionID     = service.ErrInvalidSessionID
)

var sessionIDPattern = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

func validSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

// ValidID reports whether id is a well-formed, already lowercased session ID
func ValidID(id string) bool {
	return validSessionID(id)
}

// EngineFactory builds the engine for a session. view must be part of the
// engine's View so the manager can persist asynchronous state changes.
type EngineFactory func(id string, view engine.View) *engine.GameEngine

// DefaultEngineFactory builds an engine with the real clock and no store
func DefaultEngineFactory(id string, view engine.View) *engine.GameEngine {
	return engine.NewEngine(engine.Options{View: view})
}

// Manager handles game session lifecycle
type Manager struct {
	sessions    map[string]*service.Session
	persistence SessionPersistence
	factory     EngineFactory
	logger      *zap.Logger
	mu          sync.RWMutex

	// saveLocks holds one *sync.Mutex per session ID, held from snapshot to
	// write so an older snapshot never overwrites a newer one
	saveLocks sync.Map
}

// NewManager creates a new in-memory session manager
func NewManager(factory EngineFactory, logger *zap.Logger) *Manager {
	return NewManagerWithPersistence(nil, factory, logger)
}

// NewManagerWithPersistence creates a new session manager with persistence
func NewManagerWithPersistence(persistence SessionPersistence, factory EngineFactory, logger *zap.Logger) *Manager {
	if factory == nil {
		factory = DefaultEngineFactory
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		sessions:    make(map[string]*service.Session),
		persistence: persistence,
		factory:     factory,
		logger:      logger,
	}
}

// persistView saves the session whenever a pair resolves, which happens on
// the engine's clock outside any request. A winning resolution is covered
// too: the engine has already recorded the win when the card update arrives.
type persistView struct {
	engine.NopView
	manager *Manager
	id      string
}

func (v persistView) SetCardState(card engine.Card) {
	if card.State != engine.Flipped {
		v.manager.autoSave(v.id)
	}
}

func (m *Manager) autoSave(id string) {
	if m.persistence == nil {
		return
	}
	if err := m.Save(id); err != nil && !errors.Is(err, ErrSessionNotFound) {
		m.logger.Warn("failed to persist session", zap.String("session", id), zap.Error(err))
	}
}

// Create creates a new session with the given ID. An empty ID gets a
// generated 4-character one. IDs are case-insensitive.
func (m *Manager) Create(id string) (*service.Session, error) {
	id = strings.ToLower(id)

	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = m.generateSessionID()
	} else if !validSessionID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}

	if m.sessionExists(id) {
		return nil, ErrSessionAlreadyExists
	}
	if m.persistence != nil && m.persistence.Exists(id) {
		return nil, ErrSessionAlreadyExists
	}

	now := time.Now()
	session := &service.Session{
		ID:             id,
		Engine:         m.factory(id, persistView{manager: m, id: id}),
		CreatedAt:      now,
		LastAccessedAt: now,
	}

	m.sessions[id] = session

	// Auto-save if persistence is enabled
	if m.persistence != nil {
		if err := m.persistence.Save(snapshot(session)); err != nil {
			// Log error but don't fail the creation
			m.logger.Warn("failed to persist new session", zap.String("session", id), zap.Error(err))
		}
	}

	return session, nil
}

// Get retrieves a session by ID (case-insensitive), loading it from
// persistence when it is not in memory
func (m *Manager) Get(id string) (*service.Session, error) {
	id = strings.ToLower(id)

	m.mu.RLock()
	session, exists := m.sessions[id]
	m.mu.RUnlock()

	if exists {
		return session, nil
	}

	if m.persistence == nil || !m.persistence.Exists(id) {
		return nil, ErrSessionNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if session, exists := m.sessions[id]; exists {
		return session, nil
	}

	session, err := m.load(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted session: %w", err)
	}
	m.sessions[id] = session
	return session, nil
}

// load rebuilds a session from its persisted snapshot. Caller holds mu.
func (m *Manager) load(id string) (*service.Session, error) {
	data, err := m.persistence.Load(id)
	if err != nil {
		return nil, err
	}

	eng := m.factory(id, persistView{manager: m, id: id})
	if err := eng.Restore(data.GameState); err != nil {
		eng.Close()
		return nil, fmt.Errorf("failed to restore game state: %w", err)
	}

	return &service.Session{
		ID:             id,
		Engine:         eng,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
	}, nil
}

// GetOrCreate gets an existing session or creates a new one
func (m *Manager) GetOrCreate(id string) (*service.Session, error) {
	session, err := m.Get(id)
	if err == nil {
		return session, nil
	}

	if errors.Is(err, ErrSessionNotFound) {
		return m.Create(id)
	}

	return nil, err
}

// List returns all active sessions
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}

	return result
}

// Delete removes a session from memory and persistence
func (m *Manager) Delete(id string) error {
	id = strings.ToLower(id)

	m.mu.Lock()
	defer m.mu.Unlock()

	session, inMemory := m.sessions[id]
	if inMemory {
		session.Engine.Close()
		delete(m.sessions, id)
	}
	m.saveLocks.Delete(id)

	// Delete from persistence if it exists
	if m.persistence != nil && m.persistence.Exists(id) {
		if err := m.persistence.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted session: %w", err)
		}
		return nil
	}

	if !inMemory {
		return ErrSessionNotFound
	}

	return nil
}

// DeleteFromMemory removes a session from memory only (not from persistence)
func (m *Manager) DeleteFromMemory(id string) error {
	id = strings.ToLower(id)

	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[id]
	if !exists {
		return ErrSessionNotFound
	}

	session.Engine.Close()
	delete(m.sessions, id)
	return nil
}

// UpdateLastAccessed updates the last accessed time for a session
func (m *Manager) UpdateLastAccessed(id string) error {
	id = strings.ToLower(id)

	m.mu.Lock()
	session, exists := m.sessions[id]
	if !exists {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	session.LastAccessedAt = time.Now()
	m.mu.Unlock()

	// Auto-save if persistence is enabled
	if m.persistence != nil {
		if err := m.persist(session); err != nil {
			m.logger.Warn("failed to persist session after access update", zap.String("session", id), zap.Error(err))
		}
	}

	return nil
}

// Save saves a specific session to persistence
func (m *Manager) Save(id string) error {
	if m.persistence == nil {
		return nil // No persistence configured
	}

	m.mu.RLock()
	session, exists := m.sessions[strings.ToLower(id)]
	m.mu.RUnlock()

	if !exists {
		return ErrSessionNotFound
	}
	return m.persist(session)
}

// persist snapshots the session and writes it while holding the session's
// save lock
func (m *Manager) persist(session *service.Session) error {
	lock, _ := m.saveLocks.LoadOrStore(session.ID, &sync.Mutex{})
	lock.(*sync.Mutex).Lock()
	defer lock.(*sync.Mutex).Unlock()

	m.mu.RLock()
	data := snapshot(session)
	m.mu.RUnlock()

	return m.persistence.Save(data)
}

// snapshot captures the persisted form of a session. Caller holds mu.
func snapshot(session *service.Session) *PersistedSessionData {
	return &PersistedSessionData{
		ID:             session.ID,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		GameState:      session.Engine.GetState(),
	}
}

// CleanupExpiredSessions removes sessions that haven't been accessed in the
// given duration, from memory and from persistence
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, session := range m.sessions {
		if !session.LastAccessedAt.Before(cutoff) {
			continue
		}

		session.Engine.Close()
		delete(m.sessions, id)
		m.saveLocks.Delete(id)
		removed++

		if m.persistence != nil && m.persistence.Exists(id) {
			if err := m.persistence.Delete(id); err != nil {
				m.logger.Warn("failed to delete expired session", zap.String("session", id), zap.Error(err))
			}
		}
	}

	return removed
}

// SyncWithPersistence drops in-memory sessions whose persisted files were
// removed behind the manager's back, and returns how many were dropped
func (m *Manager) SyncWithPersistence() int {
	if m.persistence == nil {
		return 0
	}

	pruned := 0
	for _, session := range m.List() {
		if m.persistence.Exists(session.ID) {
			continue
		}
		if err := m.DeleteFromMemory(session.ID); err == nil {
			pruned++
			m.logger.Info("pruned session from memory (file deleted)", zap.String("session", session.ID))
		}
	}

	return pruned
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// generateSessionID generates an unused random 4-character session ID.
// Caller holds mu.
func (m *Manager) generateSessionID() string {
	for {
		// Generate 2 random bytes (4 hex characters)
		bytes := make([]byte, 2)
		rand.Read(bytes)
		id := hex.EncodeToString(bytes)

		if m.sessionExists(id) {
			continue
		}
		if m.persistence != nil && m.persistence.Exists(id) {
			continue
		}
		return id
	}
}

// sessionExists checks if a session is in memory. Caller holds mu.
func (m *Manager) sessionExists(id string) bool {
	_, exists := m.sessions[strings.ToLower(id)]
	return exists
}

// LoadPersistedSessions loads all persisted sessions into memory
func (m *Manager) LoadPersistedSessions() error {
	if m.persistence == nil {
		return nil // No persistence configured
	}

	sessionIDs, err := m.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loadedCount := 0
	for _, id := range sessionIDs {
		id = strings.ToLower(id)
		// Skip if already loaded in memory
		if _, exists := m.sessions[id]; exists {
			continue
		}

		session, err := m.load(id)
		if err != nil {
			m.logger.Warn("failed to load persisted session", zap.String("session", id), zap.Error(err))
			continue
		}

		m.sessions[id] = session
		loadedCount++
	}

	if loadedCount > 0 {
		m.logger.Info("loaded persisted sessions", zap.Int("count", loadedCount))
	}

	return nil
}

// SaveAllSessions saves all in-memory sessions to persistence
func (m *Manager) SaveAllSessions() error {
	if m.persistence == nil {
		return nil // No persistence configured
	}

	errorCount := 0
	for _, session := range m.List() {
		if err := m.Save(session.ID); err != nil {
			m.logger.Warn("failed to save session", zap.String("session", session.ID), zap.Error(err))
			errorCount++
		}
	}

	if errorCount > 0 {
		return fmt.Errorf("failed to save %d sessions", errorCount)
	}

	return nil
}

// Close stops every session's engine. Sessions stay persisted.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, session := range m.sessions {
		session.Engine.Close()
	}
}
