package main

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/concentration/api"
	"github.com/wricardo/mcp-training/concentration/game/clock"
	"github.com/wricardo/mcp-training/concentration/game/engine"
	"github.com/wricardo/mcp-training/concentration/game/player"
	"github.com/wricardo/mcp-training/concentration/game/service"
	"github.com/wricardo/mcp-training/concentration/game/session"
	"github.com/wricardo/mcp-training/concentration/game/store"
)

// firstRand always picks the first candidate
type firstRand struct{}

func (firstRand) IntN(int) int { return 0 }

// newTestServer serves the real REST API with engines on a fake clock
func newTestServer(t *testing.T) (*httptest.Server, *clock.Fake) {
	t.Helper()

	c := clock.NewFake(time.Now())
	scores := store.NewMemory()
	factory := func(id string, view engine.View) *engine.GameEngine {
		return engine.NewEngine(engine.Options{Clock: c, View: view, Store: scores})
	}
	manager := session.NewManager(factory, nil)
	t.Cleanup(manager.Close)

	server := httptest.NewServer(api.NewServer(service.NewGameService(manager, scores, nil), nil, nil, ""))
	t.Cleanup(server.Close)
	return server, c
}

// newTestBot returns a bot whose pairs resolve by advancing the fake clock
func newTestBot(t *testing.T, strategy player.Strategy) (*Bot, *Client) {
	t.Helper()

	server, c := newTestServer(t)
	client := NewClient(server.URL + "/")
	if _, err := client.CreateSession(context.Background(), "bot1"); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	bot := NewBot(client, strategy, nil)
	bot.settle = func(ctx context.Context) (*engine.GameState, error) {
		c.Advance(engine.MismatchDelay)
		return client.WaitIdle(ctx)
	}
	return bot, client
}

func TestBot_Play(t *testing.T) {
	tests := []struct {
		name     string
		strategy player.Strategy
		maxMoves int
	}{
		{"perfect", player.Perfect{}, engine.CatalogSize},
		// Exploring in order never needs more than two moves per pair
		{"memory", player.NewMemory(firstRand{}), 2 * engine.CatalogSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot, client := newTestBot(t, tt.strategy)
			ctx := context.Background()

			result, err := bot.Play(ctx)
			if err != nil {
				t.Fatalf("Play failed: %v", err)
			}
			if result.Moves < engine.CatalogSize || result.Moves > tt.maxMoves {
				t.Errorf("Expected between %d and %d moves, got %d", engine.CatalogSize, tt.maxMoves, result.Moves)
			}

			best, err := client.BestScore(ctx)
			if err != nil {
				t.Fatalf("BestScore failed: %v", err)
			}
			if !best.Present || best.Moves != result.Moves {
				t.Errorf("Expected best score %d, got %+v", result.Moves, best)
			}
		})
	}
}

func TestBot_PlayTwice(t *testing.T) {
	bot, _ := newTestBot(t, player.Perfect{})

	for i := 0; i < 2; i++ {
		if _, err := bot.Play(context.Background()); err != nil {
			t.Fatalf("game %d failed: %v", i+1, err)
		}
	}
}

func TestClient_Errors(t *testing.T) {
	server, _ := newTestServer(t)
	client := NewClient(server.URL)
	ctx := context.Background()

	if _, err := client.Resume(ctx, "missing"); err == nil || !strings.Contains(err.Error(), "session not found") {
		t.Errorf("Expected session not found, got %v", err)
	}
	if _, err := client.CreateSession(ctx, "bad id!"); err == nil || !strings.Contains(err.Error(), "400") {
		t.Errorf("Expected 400 for invalid ID, got %v", err)
	}

	if _, err := client.CreateSession(ctx, ""); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	result, err := client.Select(ctx, 99)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if result.Success || result.Selection.Reason != engine.RejectOutOfRange {
		t.Errorf("Expected out of range rejection, got %+v", result.Selection)
	}
}

func TestClient_WaitIdleHonorsContext(t *testing.T) {
	server, _ := newTestServer(t)
	client := NewClient(server.URL)
	ctx := context.Background()

	if _, err := client.CreateSession(ctx, "wait"); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	client.Select(ctx, 0)
	client.Select(ctx, 1)

	// The fake clock never advances, so the pair stays pending
	ctx, cancel := context.WithTimeout(ctx, 3*pollInterval)
	defer cancel()
	if _, err := client.WaitIdle(ctx); err == nil {
		t.Error("Expected WaitIdle to stop when the context expires")
	}
}

func TestOpenSession(t *testing.T) {
	server, _ := newTestServer(t)
	ctx := context.Background()
	sessionFile := filepath.Join(t.TempDir(), ".session")

	client := NewClient(server.URL)
	if err := openSession(ctx, client, "", sessionFile, zap.NewNop()); err != nil {
		t.Fatalf("openSession failed: %v", err)
	}
	created := client.SessionID()
	saved, err := os.ReadFile(sessionFile)
	if err != nil || string(saved) != created {
		t.Fatalf("Expected session %s saved, got %q (%v)", created, saved, err)
	}

	// The remembered session is resumed
	again := NewClient(server.URL)
	if err := openSession(ctx, again, "", sessionFile, zap.NewNop()); err != nil {
		t.Fatalf("openSession failed: %v", err)
	}
	if again.SessionID() != created {
		t.Errorf("Expected resumed session %s, got %s", created, again.SessionID())
	}

	// A stale remembered session is replaced
	os.WriteFile(sessionFile, []byte("gone"), 0644)
	fresh := NewClient(server.URL)
	if err := openSession(ctx, fresh, "", sessionFile, zap.NewNop()); err != nil {
		t.Fatalf("openSession failed: %v", err)
	}
	if fresh.SessionID() == "gone" {
		t.Error("Expected a new session to replace the stale one")
	}

	// An explicit session must exist
	if err := openSession(ctx, NewClient(server.URL), "gone", sessionFile, zap.NewNop()); err == nil {
		t.Error("Expected error resuming a missing explicit session")
	}
}
