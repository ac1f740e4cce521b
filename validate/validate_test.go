package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/concentration/game/engine"
	"github.com/wricardo/mcp-training/concentration/game/session"
)

// orderedRand keeps decks unshuffled: position p pairs with p+8
type orderedRand struct{}

func (orderedRand) IntN(n int) int { return n - 1 }

// freshSnapshot returns the snapshot of a just-dealt game
func freshSnapshot(id string) *session.PersistedSessionData {
	e := engine.NewEngine(engine.Options{Rand: orderedRand{}})
	defer e.Close()

	created := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	return &session.PersistedSessionData{
		ID:             id,
		CreatedAt:      created,
		LastAccessedAt: created.Add(time.Minute),
		GameState:      e.GetState(),
	}
}

func writeSnapshot(t *testing.T, dir, name string, data interface{}) string {
	t.Helper()

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal snapshot: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatalf("Failed to write snapshot: %v", err)
	}
	return path
}

func TestValidateSnapshot_Valid(t *testing.T) {
	dir := t.TempDir()
	path := writeSnapshot(t, dir, "abcd.json", freshSnapshot("abcd"))

	result := validateSnapshot(path)
	if !result.Valid {
		t.Fatalf("Expected valid snapshot, but got errors: %v", result.Errors)
	}
	if result.File != "abcd.json" {
		t.Errorf("Expected file name abcd.json, got %s", result.File)
	}
	if !strings.Contains(strings.Join(result.Info, "\n"), "Pairs: 0/8") {
		t.Errorf("Expected pair summary in info, got %v", result.Info)
	}
}

func TestValidateSnapshot_WonAfterReshuffle(t *testing.T) {
	snapshot := freshSnapshot("won1")
	snapshot.GameState.Won = true
	snapshot.GameState.Moves = 12

	path := writeSnapshot(t, t.TempDir(), "won1.json", snapshot)
	if result := validateSnapshot(path); !result.Valid {
		t.Errorf("A reshuffled won game keeps its indicator, got errors: %v", result.Errors)
	}
}

func TestValidateSnapshot_PendingPair(t *testing.T) {
	snapshot := freshSnapshot("pend")
	state := snapshot.GameState
	state.Cards[0].State = engine.Flipped
	state.Cards[1].State = engine.Flipped
	state.Moves = 1

	path := writeSnapshot(t, t.TempDir(), "pend.json", snapshot)
	if result := validateSnapshot(path); !result.Valid {
		t.Errorf("Expected a pending pair to be valid, got errors: %v", result.Errors)
	}
}

func TestValidateSnapshot_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		mutate func(*session.PersistedSessionData)
		want   string
	}{
		{
			name:   "id mismatch",
			file:   "other.json",
			mutate: func(s *session.PersistedSessionData) {},
			want:   "does not match file name",
		},
		{
			name:   "bad id",
			file:   "BAD ID.json",
			mutate: func(s *session.PersistedSessionData) { s.ID = "BAD ID" },
			want:   "Invalid session ID",
		},
		{
			name: "time travel",
			file: "abcd.json",
			mutate: func(s *session.PersistedSessionData) {
				s.LastAccessedAt = s.CreatedAt.Add(-time.Hour)
			},
			want: "before created_at",
		},
		{
			name:   "missing state",
			file:   "abcd.json",
			mutate: func(s *session.PersistedSessionData) { s.GameState = nil },
			want:   "Missing game_state",
		},
		{
			name: "short deck",
			file: "abcd.json",
			mutate: func(s *session.PersistedSessionData) {
				s.GameState.Cards = s.GameState.Cards[:engine.DeckSize-2]
			},
			want: "Deck",
		},
		{
			name: "half a pair matched",
			file: "abcd.json",
			mutate: func(s *session.PersistedSessionData) {
				s.GameState.Cards[0].State = engine.Matched
				s.GameState.Moves = 1
			},
			want: "Deck",
		},
		{
			name: "counter out of sync",
			file: "abcd.json",
			mutate: func(s *session.PersistedSessionData) {
				s.GameState.Cards[0].State = engine.Matched
				s.GameState.Cards[engine.CatalogSize].State = engine.Matched
				s.GameState.Moves = 1
			},
			want: "matched_pairs is 0",
		},
		{
			name: "three face up",
			file: "abcd.json",
			mutate: func(s *session.PersistedSessionData) {
				for i := 0; i < 3; i++ {
					s.GameState.Cards[i].State = engine.Flipped
				}
				s.GameState.Moves = 1
			},
			want: "3 cards face up",
		},
		{
			name: "too few moves",
			file: "abcd.json",
			mutate: func(s *session.PersistedSessionData) {
				s.GameState.Cards[0].State = engine.Matched
				s.GameState.Cards[engine.CatalogSize].State = engine.Matched
				s.GameState.MatchedPairs = 1
			},
			want: "cannot be fewer than matched pairs",
		},
		{
			name: "all matched but not won",
			file: "abcd.json",
			mutate: func(s *session.PersistedSessionData) {
				for i := range s.GameState.Cards {
					s.GameState.Cards[i].State = engine.Matched
				}
				s.GameState.MatchedPairs = engine.CatalogSize
				s.GameState.Moves = engine.CatalogSize
			},
			want: "not marked won",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := freshSnapshot("abcd")
			tt.mutate(snapshot)
			path := writeSnapshot(t, t.TempDir(), tt.file, snapshot)

			result := validateSnapshot(path)
			if result.Valid {
				t.Fatal("Expected invalid snapshot")
			}
			if !strings.Contains(strings.Join(result.Errors, "\n"), tt.want) {
				t.Errorf("Expected %q in errors, got %v", tt.want, result.Errors)
			}
		})
	}
}

func TestValidateSnapshot_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abcd.json")
	if err := os.WriteFile(path, []byte(`{"id": "abcd", invalid json}`), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	result := validateSnapshot(path)
	if result.Valid {
		t.Error("Expected invalid result for malformed JSON")
	}
	if len(result.Errors) == 0 || !strings.Contains(result.Errors[0], "Invalid JSON") {
		t.Errorf("Expected 'Invalid JSON' error, got %v", result.Errors)
	}
}

func TestValidateSnapshot_MissingFile(t *testing.T) {
	result := validateSnapshot("/non/existent/file.json")
	if result.Valid {
		t.Error("Expected invalid result for missing file")
	}
	if len(result.Errors) == 0 || !strings.Contains(result.Errors[0], "Failed to read file") {
		t.Errorf("Expected 'Failed to read file' error, got %v", result.Errors)
	}
}

func TestValidateDir(t *testing.T) {
	t.Run("all valid", func(t *testing.T) {
		dir := t.TempDir()
		writeSnapshot(t, dir, "one.json", freshSnapshot("one"))
		writeSnapshot(t, dir, "two.json", freshSnapshot("two"))

		var buf bytes.Buffer
		valid, err := validateDir(dir, &buf)
		if err != nil {
			t.Fatalf("validateDir failed: %v", err)
		}
		if !valid {
			t.Errorf("Expected all snapshots valid:\n%s", buf.String())
		}
		if !strings.Contains(buf.String(), "All session snapshots are valid") {
			t.Errorf("Unexpected report:\n%s", buf.String())
		}
	})

	t.Run("one invalid", func(t *testing.T) {
		dir := t.TempDir()
		writeSnapshot(t, dir, "one.json", freshSnapshot("one"))
		writeSnapshot(t, dir, "two.json", freshSnapshot("nope"))

		var buf bytes.Buffer
		valid, err := validateDir(dir, &buf)
		if err != nil {
			t.Fatalf("validateDir failed: %v", err)
		}
		if valid {
			t.Error("Expected an invalid snapshot to be reported")
		}
		if !strings.Contains(buf.String(), "❌ INVALID") {
			t.Errorf("Unexpected report:\n%s", buf.String())
		}
	})

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		valid, err := validateDir(t.TempDir(), &buf)
		if err != nil || !valid {
			t.Errorf("Expected empty directory to pass, got valid=%v err=%v", valid, err)
		}
	})
}

func TestValidateSnapshot_ServerWritten(t *testing.T) {
	dir := t.TempDir()
	persistence, err := session.NewFilePersistence(dir)
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}
	if err := persistence.Save(freshSnapshot("srv1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if result := validateSnapshot(filepath.Join(dir, "srv1.json")); !result.Valid {
		t.Errorf("Expected snapshot written by the server to validate, got %v", result.Errors)
	}
}
