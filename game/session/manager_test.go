package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/concentration/game/clock"
	"github.com/wricardo/mcp-training/concentration/game/engine"
)

// orderedRand keeps decks unshuffled: position p pairs with p+8
type orderedRand struct{}

func (orderedRand) IntN(n int) int { return n - 1 }

// testFactory builds engines on a shared fake clock
func testFactory(c *clock.Fake) EngineFactory {
	return func(id string, view engine.View) *engine.GameEngine {
		return engine.NewEngine(engine.Options{Clock: c, Rand: orderedRand{}, View: view})
	}
}

func newTestManager() (*Manager, *clock.Fake) {
	c := clock.NewFake(time.Now())
	return NewManager(testFactory(c), nil), c
}

func TestManager_Create(t *testing.T) {
	manager, _ := newTestManager()

	t.Run("create with custom ID", func(t *testing.T) {
		session, err := manager.Create("test-session")
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if session.ID != "test-session" {
			t.Errorf("Expected session ID 'test-session', got '%s'", session.ID)
		}
		if session.Engine == nil {
			t.Error("Expected engine to be initialized")
		}
	})

	t.Run("create with auto-generated ID", func(t *testing.T) {
		session, err := manager.Create("")
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if len(session.ID) != 4 {
			t.Errorf("Expected 4-character session ID, got %q", session.ID)
		}
	})

	t.Run("duplicate session ID", func(t *testing.T) {
		_, err := manager.Create("test-session")
		if !errors.Is(err, ErrSessionAlreadyExists) {
			t.Errorf("Expected ErrSessionAlreadyExists, got %v", err)
		}
	})

	t.Run("case-insensitive duplicate check", func(t *testing.T) {
		_, err := manager.Create("TEST-SESSION")
		if !errors.Is(err, ErrSessionAlreadyExists) {
			t.Errorf("Expected ErrSessionAlreadyExists for case variant, got %v", err)
		}
	})

	t.Run("invalid ID", func(t *testing.T) {
		for _, id := range []string{"../escape", "has space", "semi;colon"} {
			if _, err := manager.Create(id); !errors.Is(err, ErrInvalidSessionID) {
				t.Errorf("Expected ErrInvalidSessionID for %q, got %v", id, err)
			}
		}
	})
}

func TestManager_Get(t *testing.T) {
	manager, _ := newTestManager()
	created, _ := manager.Create("get-test")

	t.Run("get existing session", func(t *testing.T) {
		session, err := manager.Get("get-test")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}
		if session != created {
			t.Error("Expected the same session instance")
		}
	})

	t.Run("case-insensitive get", func(t *testing.T) {
		session, err := manager.Get("GET-TEST")
		if err != nil {
			t.Fatalf("Failed to get session with different case: %v", err)
		}
		if session.ID != created.ID {
			t.Errorf("Expected same session regardless of case")
		}
	})

	t.Run("get non-existent session", func(t *testing.T) {
		_, err := manager.Get("non-existent")
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestManager_GetOrCreate(t *testing.T) {
	manager, _ := newTestManager()

	first, err := manager.GetOrCreate("new-session")
	if err != nil {
		t.Fatalf("Failed to get or create session: %v", err)
	}
	second, err := manager.GetOrCreate("new-session")
	if err != nil {
		t.Fatalf("Failed to get existing session: %v", err)
	}
	if first != second {
		t.Error("Expected GetOrCreate to return the existing session")
	}
}

func TestManager_Delete(t *testing.T) {
	manager, c := newTestManager()
	session, _ := manager.Create("delete-test")

	session.Engine.SelectCard(0)
	session.Engine.SelectCard(1)

	if err := manager.Delete("DELETE-TEST"); err != nil {
		t.Fatalf("Failed to delete session: %v", err)
	}
	if _, err := manager.Get("delete-test"); !errors.Is(err, ErrSessionNotFound) {
		t.Error("Expected session to be deleted")
	}
	if c.Pending() != 0 {
		t.Errorf("Expected deleted session's engine to stop its timers, %d pending", c.Pending())
	}

	if err := manager.Delete("non-existent"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_List(t *testing.T) {
	manager, _ := newTestManager()

	ids := []string{"list-1", "list-2", "list-3"}
	for _, id := range ids {
		manager.Create(id)
	}

	sessions := manager.List()
	if len(sessions) != len(ids) {
		t.Errorf("Expected %d sessions, got %d", len(ids), len(sessions))
	}

	found := make(map[string]bool)
	for _, s := range sessions {
		found[s.ID] = true
	}
	for _, id := range ids {
		if !found[id] {
			t.Errorf("Session %s not found in list", id)
		}
	}
	if manager.Count() != len(ids) {
		t.Errorf("Expected count %d, got %d", len(ids), manager.Count())
	}
}

func TestManager_CleanupExpired(t *testing.T) {
	manager, _ := newTestManager()

	active, _ := manager.Create("active")
	expired, _ := manager.Create("expired")

	expired.LastAccessedAt = time.Now().Add(-2 * time.Hour)
	active.LastAccessedAt = time.Now()

	deleted := manager.CleanupExpiredSessions(1 * time.Hour)
	if deleted != 1 {
		t.Errorf("Expected 1 session to be deleted, got %d", deleted)
	}

	if _, err := manager.Get("expired"); !errors.Is(err, ErrSessionNotFound) {
		t.Error("Expected expired session to be deleted")
	}
	if _, err := manager.Get("active"); err != nil {
		t.Error("Expected active session to still exist")
	}
	if sel := expired.Engine.SelectCard(0); sel.Accepted {
		t.Error("Expected expired session's engine to be closed")
	}
}

func TestManager_UpdateLastAccessed(t *testing.T) {
	manager, _ := newTestManager()

	session, _ := manager.Create("access-test")
	originalTime := session.LastAccessedAt

	time.Sleep(10 * time.Millisecond)

	if err := manager.UpdateLastAccessed("access-test"); err != nil {
		t.Fatalf("Failed to update last accessed: %v", err)
	}

	updated, _ := manager.Get("access-test")
	if !updated.LastAccessedAt.After(originalTime) {
		t.Error("Expected LastAccessedAt to be updated")
	}

	if err := manager.UpdateLastAccessed("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager, _ := newTestManager()

	var wg sync.WaitGroup
	errs := make(chan error, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Every ID is created by two goroutines
			_, err := manager.Create(fmt.Sprintf("c-%d", i/2))
			if err != nil && !errors.Is(err, ErrSessionAlreadyExists) {
				errs <- err
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent access: %v", err)
	}
	if manager.Count() != 50 {
		t.Errorf("Expected 50 sessions, got %d", manager.Count())
	}
}

func TestManager_SessionIsolation(t *testing.T) {
	manager, c := newTestManager()

	session1, _ := manager.Create("iso-1")
	session2, _ := manager.Create("iso-2")

	session1.Engine.SelectCard(0)
	session1.Engine.SelectCard(engine.CatalogSize)
	c.Advance(engine.MatchDelay)

	if session1.Engine.MatchedPairs() != 1 {
		t.Fatalf("Expected a matched pair in session 1, got %d", session1.Engine.MatchedPairs())
	}
	if session2.Engine.MatchedPairs() != 0 || session2.Engine.Moves() != 0 {
		t.Error("Session 2 should not be affected by session 1 selections")
	}
}

func TestManager_SessionIDGeneration(t *testing.T) {
	manager, _ := newTestManager()
	generatedIDs := make(map[string]bool)

	for i := 0; i < 50; i++ {
		session, err := manager.Create("")
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}

		if generatedIDs[session.ID] {
			t.Errorf("Duplicate session ID generated: %s", session.ID)
		}
		generatedIDs[session.ID] = true

		if !validSessionID(session.ID) || len(session.ID) != 4 {
			t.Errorf("Expected 4-character ID, got %q", session.ID)
		}
	}
}

func TestManager_Close(t *testing.T) {
	manager, c := newTestManager()
	s, _ := manager.Create("close-test")
	s.Engine.SelectCard(0)

	manager.Close()

	if c.Pending() != 0 {
		t.Errorf("Expected all engine timers stopped, %d pending", c.Pending())
	}
}
