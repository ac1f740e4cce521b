// Command validate checks the session snapshot files written by the server.
// For every *.json file in the sessions directory it verifies:
//   - JSON structure and the session ID (well formed, matching the file name)
//   - Timestamps (last access not before creation)
//   - The deck: sixteen catalog cards, two of each, matched cards in pairs
//   - Counters: moves cover the matched pairs, no more than two cards face up
//   - The win indicator against the matched pairs
//
// Finally each snapshot is restored into a throwaway engine, exactly as the
// server does when it loads sessions.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/concentration/game/clock"
	"github.com/wricardo/mcp-training/concentration/game/engine"
	"github.com/wricardo/mcp-training/concentration/game/session"
)

// ValidationResult captures the outcome of validating a single file.
// Errors holds problems; Info holds a summary of a valid snapshot.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
	Info   []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validateSnapshot loads and validates a single snapshot file
func validateSnapshot(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var snapshot session.PersistedSessionData
	if err := json.Unmarshal(data, &snapshot); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	// Identity
	if !session.ValidID(snapshot.ID) {
		result.fail("Invalid session ID %q", snapshot.ID)
	}
	if stem := strings.TrimSuffix(result.File, ".json"); snapshot.ID != stem {
		result.fail("Session ID %q does not match file name %q", snapshot.ID, result.File)
	}
	if snapshot.LastAccessedAt.Before(snapshot.CreatedAt) {
		result.fail("last_accessed_at (%s) is before created_at (%s)",
			snapshot.LastAccessedAt.Format("2006-01-02 15:04:05"), snapshot.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	state := snapshot.GameState
	if state == nil {
		result.fail("Missing game_state")
		return result
	}

	validateState(state, &result)

	// Restore only what passed the structural checks
	if result.Valid {
		e := engine.NewEngine(engine.Options{Clock: clock.NewFake(snapshot.CreatedAt)})
		if err := e.Restore(state); err != nil {
			result.fail("Engine refused snapshot: %v", err)
		}
		e.Close()
	}

	if result.Valid {
		result.Info = append(result.Info,
			fmt.Sprintf("✓ Session: %s", snapshot.ID),
			fmt.Sprintf("✓ Pairs: %d/%d", state.MatchedPairs, engine.CatalogSize),
			fmt.Sprintf("✓ Moves: %d", state.Moves),
			fmt.Sprintf("✓ Time: %s", engine.FormatElapsed(state.ElapsedSeconds)),
		)
		if state.Won {
			result.Info = append(result.Info, "✓ Won")
		}
	}

	return result
}

// validateState checks the game state counters and deck
func validateState(state *engine.GameState, result *ValidationResult) {
	if err := engine.ValidateDeck(state.Cards); err != nil {
		result.fail("Deck: %v", err)
		return
	}

	matched := engine.CountCardsInState(state.Cards, engine.Matched) / engine.CopiesPerItem
	flipped := engine.CountCardsInState(state.Cards, engine.Flipped)

	if state.MatchedPairs != matched {
		result.fail("matched_pairs is %d but the deck holds %d matched pairs", state.MatchedPairs, matched)
	}
	if flipped > 2 {
		result.fail("%d cards face up; a turn flips at most 2", flipped)
	}
	if state.Moves < matched {
		result.fail("moves (%d) cannot be fewer than matched pairs (%d)", state.Moves, matched)
	}
	if state.ElapsedSeconds < 0 {
		result.fail("elapsed_seconds cannot be negative, got %d", state.ElapsedSeconds)
	}
	// A reshuffle after a win clears the matches but keeps the indicator,
	// so only the converse is an error.
	if matched == engine.CatalogSize && !state.Won {
		result.fail("all %d pairs matched but the game is not marked won", engine.CatalogSize)
	}
}

// validateDir validates every snapshot in dir and writes a report to w. It
// returns whether all snapshots are valid.
func validateDir(dir string, w io.Writer) (bool, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return false, fmt.Errorf("finding snapshot files: %w", err)
	}
	if len(files) == 0 {
		fmt.Fprintf(w, "No session snapshots found in %s\n", dir)
		return true, nil
	}

	allValid := true
	for _, file := range files {
		result := validateSnapshot(file)

		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Info {
				fmt.Fprintln(w, "  "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Fprintln(w, "  ❌ "+err)
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All session snapshots are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some session snapshots have errors")
	}
	return allValid, nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Validate persisted Concentration session snapshots",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Value:   filepath.Join("data", "sessions"),
				Usage:   "Directory holding session snapshot files",
				Sources: cli.EnvVars("SESSIONS_DIR"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			valid, err := validateDir(cmd.String("dir"), os.Stdout)
			if err != nil {
				return err
			}
			if !valid {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
