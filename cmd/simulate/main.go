// Command simulate plays many games against the engine on a virtual clock
// and prints move statistics for a choice of player strategies:
//
//   - perfect: knows every card, always finishes in eight moves
//   - memory:  remembers every card it has seen
//   - random:  flips two random face-down cards each turn
//
// The best score of all simulated games is recorded in an in-memory store
// exactly as the server records it.
package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/concentration/game/clock"
	"github.com/wricardo/mcp-training/concentration/game/engine"
	"github.com/wricardo/mcp-training/concentration/game/player"
	"github.com/wricardo/mcp-training/concentration/game/store"
)

// maxTurns stops a player that cannot finish
const maxTurns = 10000

// Options controls a simulation run
type Options struct {
	Games    int
	Strategy string
	Seed     uint64
	Think    time.Duration
	Logger   *zap.Logger
}

// Result is the outcome of one simulated game
type Result struct {
	Moves   int
	Elapsed int
	Timer   string
}

// Stats summarizes a set of results
type Stats struct {
	Games       int
	MinMoves    int
	MaxMoves    int
	MeanMoves   float64
	MedianMoves int
	MeanElapsed float64
	BestScore   int
	HasBest     bool
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "Play simulated Concentration games and report move statistics",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "games", Value: 100, Usage: "Number of games to play"},
			&cli.StringFlag{Name: "strategy", Value: player.NameMemory, Usage: strings.Join(player.Names(), ", ")},
			&cli.IntFlag{Name: "seed", Value: 1, Usage: "Seed for shuffles and player choices"},
			&cli.DurationFlag{Name: "think", Value: time.Second, Usage: "Virtual time spent before each turn"},
			&cli.BoolFlag{Name: "debug", Usage: "Log engine events"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger := zap.NewNop()
			if cmd.Bool("debug") {
				l, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				defer l.Sync()
				logger = l
			}

			opts := Options{
				Games:    int(cmd.Int("games")),
				Strategy: cmd.String("strategy"),
				Seed:     uint64(cmd.Int("seed")),
				Think:    cmd.Duration("think"),
				Logger:   logger,
			}
			stats, err := Simulate(ctx, opts)
			if err != nil {
				return err
			}
			printReport(os.Stdout, opts, stats)
			return nil
		},
	}
}

// Simulate plays opts.Games games and summarizes them
func Simulate(ctx context.Context, opts Options) (Stats, error) {
	if opts.Games < 1 {
		return Stats{}, fmt.Errorf("games must be positive, got %d", opts.Games)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	scores := store.NewMemory()
	results := make([]Result, 0, opts.Games)

	for i := 0; i < opts.Games; i++ {
		if err := ctx.Err(); err != nil {
			return Stats{}, err
		}
		result, err := playGame(opts, opts.Seed+uint64(i), scores)
		if err != nil {
			return Stats{}, fmt.Errorf("game %d: %w", i+1, err)
		}
		results = append(results, result)
	}

	stats := summarize(results)
	if best, ok, err := scores.Get(ctx, engine.BestScoreKey); err == nil && ok {
		if n, err := strconv.Atoi(best); err == nil {
			stats.BestScore, stats.HasBest = n, true
		}
	}
	return stats, nil
}

// observer is the engine's View. It shows the strategy every card that
// turns face up, which is all a fair player may learn.
type observer struct {
	engine.NopView
	strategy player.Strategy
}

func (o observer) RenderBoard([]engine.Card) {
	o.strategy.Forget()
}

func (o observer) SetCardState(card engine.Card) {
	if card.State == engine.Flipped {
		o.strategy.Observe(card)
	}
}

// playGame deals one game on a virtual clock and plays it to the win
func playGame(opts Options, seed uint64, scores *store.Memory) (Result, error) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	c := clock.NewFake(time.Unix(0, 0))

	strategy, err := player.New(opts.Strategy, rng)
	if err != nil {
		return Result{}, err
	}

	e := engine.NewEngine(engine.Options{
		Clock:  c,
		Rand:   rng,
		View:   observer{strategy: strategy},
		Store:  scores,
		Logger: opts.Logger,
	})
	defer e.Close()

	for turn := 0; !e.IsWon(); turn++ {
		if turn >= maxTurns {
			return Result{}, fmt.Errorf("%s player gave up after %d turns", opts.Strategy, maxTurns)
		}
		c.Advance(opts.Think)

		first := strategy.First(e.GetState().Cards)
		if sel := e.SelectCard(first); !sel.Accepted {
			return Result{}, fmt.Errorf("first selection %d rejected: %s", first, sel.Reason)
		}
		second := strategy.Second(e.GetState().Cards, first)
		if sel := e.SelectCard(second); !sel.Accepted {
			return Result{}, fmt.Errorf("second selection %d rejected: %s", second, sel.Reason)
		}

		c.Advance(engine.MismatchDelay)
	}

	state := e.GetState()
	return Result{Moves: state.Moves, Elapsed: state.ElapsedSeconds, Timer: state.Timer}, nil
}

func summarize(results []Result) Stats {
	stats := Stats{Games: len(results)}
	if len(results) == 0 {
		return stats
	}

	moves := make([]int, len(results))
	totalMoves, totalElapsed := 0, 0
	for i, r := range results {
		moves[i] = r.Moves
		totalMoves += r.Moves
		totalElapsed += r.Elapsed
	}
	slices.Sort(moves)

	stats.MinMoves = moves[0]
	stats.MaxMoves = moves[len(moves)-1]
	stats.MedianMoves = moves[len(moves)/2]
	stats.MeanMoves = float64(totalMoves) / float64(len(results))
	stats.MeanElapsed = float64(totalElapsed) / float64(len(results))
	return stats
}

func printReport(w io.Writer, opts Options, stats Stats) {
	fmt.Fprintf(w, "\n=== %s player, %d games (seed %d) ===\n", opts.Strategy, stats.Games, opts.Seed)
	fmt.Fprintf(w, "Moves: min %d, median %d, mean %.2f, max %d\n",
		stats.MinMoves, stats.MedianMoves, stats.MeanMoves, stats.MaxMoves)
	fmt.Fprintf(w, "Mean time: %s\n", engine.FormatElapsed(int(stats.MeanElapsed+0.5)))
	if stats.HasBest {
		fmt.Fprintf(w, "Best score recorded: %d moves\n", stats.BestScore)
	}
}
