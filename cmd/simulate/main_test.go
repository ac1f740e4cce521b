package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/concentration/game/engine"
	"github.com/wricardo/mcp-training/concentration/game/player"
)

func TestSimulate_Strategies(t *testing.T) {
	tests := []struct {
		strategy string
		games    int
	}{
		{player.NamePerfect, 5},
		{player.NameMemory, 20},
		{player.NameRandom, 3},
	}

	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			stats, err := Simulate(context.Background(), Options{
				Games:    tt.games,
				Strategy: tt.strategy,
				Seed:     42,
				Think:    time.Second,
			})
			if err != nil {
				t.Fatalf("Simulate failed: %v", err)
			}
			if stats.Games != tt.games {
				t.Errorf("Expected %d games, got %d", tt.games, stats.Games)
			}
			if stats.MinMoves < engine.CatalogSize {
				t.Errorf("No game can take fewer than %d moves, got %d", engine.CatalogSize, stats.MinMoves)
			}
			if !stats.HasBest || stats.BestScore != stats.MinMoves {
				t.Errorf("Expected best score %d recorded, got %d (has=%v)", stats.MinMoves, stats.BestScore, stats.HasBest)
			}
		})
	}
}

func TestSimulate_PerfectPlayer(t *testing.T) {
	stats, err := Simulate(context.Background(), Options{Games: 10, Strategy: player.NamePerfect, Seed: 7})
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	if stats.MinMoves != engine.CatalogSize || stats.MaxMoves != engine.CatalogSize {
		t.Errorf("Expected every perfect game to take %d moves, got %d..%d",
			engine.CatalogSize, stats.MinMoves, stats.MaxMoves)
	}
}

func TestSimulate_MemoryBeatsRandom(t *testing.T) {
	memory, err := Simulate(context.Background(), Options{Games: 30, Strategy: player.NameMemory, Seed: 3})
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	random, err := Simulate(context.Background(), Options{Games: 30, Strategy: player.NameRandom, Seed: 3})
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	if memory.MeanMoves >= random.MeanMoves {
		t.Errorf("Expected memory player (%.2f) to beat random player (%.2f)", memory.MeanMoves, random.MeanMoves)
	}
}

func TestSimulate_Deterministic(t *testing.T) {
	opts := Options{Games: 5, Strategy: player.NameMemory, Seed: 11}
	a, err := Simulate(context.Background(), opts)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	b, err := Simulate(context.Background(), opts)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	if a != b {
		t.Errorf("Expected identical stats for the same seed, got %+v and %+v", a, b)
	}
}

func TestSimulate_Errors(t *testing.T) {
	if _, err := Simulate(context.Background(), Options{Games: 0, Strategy: player.NameMemory}); err == nil {
		t.Error("Expected error for zero games")
	}
	if _, err := Simulate(context.Background(), Options{Games: 1, Strategy: "psychic"}); err == nil {
		t.Error("Expected error for unknown strategy")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Simulate(ctx, Options{Games: 1, Strategy: player.NameMemory}); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func TestElapsedTracksThinkTime(t *testing.T) {
	stats, err := Simulate(context.Background(), Options{
		Games:    1,
		Strategy: player.NamePerfect,
		Seed:     1,
		Think:    4 * time.Second,
	})
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	// The timer starts at the first flip and stops when the eighth match
	// resolves: seven full turns of think time and waiting, then half a
	// second that is truncated away.
	want := 7 * (4 + int(engine.MismatchDelay/time.Second))
	if int(stats.MeanElapsed) != want {
		t.Errorf("Expected %d elapsed seconds, got %.0f", want, stats.MeanElapsed)
	}
}

func TestSummarize(t *testing.T) {
	stats := summarize([]Result{{Moves: 10, Elapsed: 30}, {Moves: 8, Elapsed: 20}, {Moves: 14, Elapsed: 40}})

	if stats.MinMoves != 8 || stats.MaxMoves != 14 || stats.MedianMoves != 10 {
		t.Errorf("Unexpected min/median/max: %+v", stats)
	}
	if stats.MeanMoves != 32.0/3 {
		t.Errorf("Expected mean %.2f, got %.2f", 32.0/3, stats.MeanMoves)
	}
	if stats.MeanElapsed != 30 {
		t.Errorf("Expected mean elapsed 30, got %.2f", stats.MeanElapsed)
	}

	if empty := summarize(nil); empty.Games != 0 {
		t.Errorf("Expected empty stats, got %+v", empty)
	}
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, Options{Strategy: player.NameMemory, Seed: 1}, Stats{
		Games: 2, MinMoves: 9, MaxMoves: 12, MedianMoves: 12, MeanMoves: 10.5,
		MeanElapsed: 65, BestScore: 9, HasBest: true,
	})

	out := buf.String()
	for _, want := range []string{"memory player, 2 games", "mean 10.50", "Mean time: 1:05", "Best score recorded: 9 moves"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in report:\n%s", want, out)
		}
	}
}
