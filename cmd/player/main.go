// Command player is a bot that plays Concentration against a running game
// server through its REST API. It remembers the session it played in (in
// .session) and resumes it on the next run.
//
// The bot learns card identities only from its own selections, so the
// memory strategy plays as fairly as a person would.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/concentration/game/engine"
	"github.com/wricardo/mcp-training/concentration/game/player"
)

// maxTurns stops a game that cannot finish
const maxTurns = 1000

// Bot plays games in the client's session
type Bot struct {
	client   *Client
	strategy player.Strategy
	logger   *zap.Logger
	delay    time.Duration

	// settle waits for a completed pair to resolve
	settle func(ctx context.Context) (*engine.GameState, error)
}

func NewBot(client *Client, strategy player.Strategy, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		client:   client,
		strategy: strategy,
		logger:   logger,
		settle:   client.WaitIdle,
	}
}

// GameResult is the outcome of one game played by the bot
type GameResult struct {
	Moves int
	Timer string
}

// Play deals a new game and plays it to the win
func (b *Bot) Play(ctx context.Context) (GameResult, error) {
	state, err := b.client.NewGame(ctx)
	if err != nil {
		return GameResult{}, err
	}
	b.strategy.Forget()

	for turn := 0; !state.Won; turn++ {
		if turn >= maxTurns {
			return GameResult{}, fmt.Errorf("gave up after %d turns", maxTurns)
		}

		first := b.strategy.First(state.Cards)
		flipped, err := b.selectCard(ctx, first)
		if err != nil {
			return GameResult{}, err
		}

		second := b.strategy.Second(flipped.Cards, first)
		if _, err := b.selectCard(ctx, second); err != nil {
			return GameResult{}, err
		}

		state, err = b.settle(ctx)
		if err != nil {
			return GameResult{}, fmt.Errorf("waiting for pair: %w", err)
		}

		b.logger.Debug("turn played",
			zap.Int("first", first),
			zap.Int("second", second),
			zap.Int("moves", state.Moves),
			zap.Int("pairs", state.MatchedPairs))

		if b.delay > 0 {
			select {
			case <-ctx.Done():
				return GameResult{}, ctx.Err()
			case <-time.After(b.delay):
			}
		}
	}

	return GameResult{Moves: state.Moves, Timer: state.Timer}, nil
}

// selectCard flips a card and shows it to the strategy
func (b *Bot) selectCard(ctx context.Context, position int) (*engine.GameState, error) {
	result, err := b.client.Select(ctx, position)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, fmt.Errorf("selection %d rejected: %s", position, result.Message)
	}
	if result.Card != nil {
		b.strategy.Observe(*result.Card)
	}
	return result.GameState, nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "player",
		Usage: "Play Concentration against a running game server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Game server URL"},
			&cli.StringFlag{Name: "continue", Usage: "Resume playing an existing session by ID"},
			&cli.StringFlag{Name: "session-file", Value: ".session", Usage: "File remembering the last session ID"},
			&cli.StringFlag{Name: "strategy", Value: player.NameMemory, Usage: strings.Join(player.Names(), ", ")},
			&cli.IntFlag{Name: "games", Value: 1, Usage: "Number of games to play"},
			&cli.DurationFlag{Name: "delay", Usage: "Pause between turns"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Verbose output"},
		},
		Action: run,
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	if !cmd.Bool("verbose") {
		logger = logger.WithOptions(zap.IncreaseLevel(zap.InfoLevel))
	}
	defer logger.Sync()

	strategy, err := player.New(cmd.String("strategy"), rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)))
	if err != nil {
		return err
	}

	serverURL := cmd.String("url")
	logger.Info("connecting to game server", zap.String("url", serverURL))
	client := NewClient(serverURL)

	sessionFile := cmd.String("session-file")
	if err := openSession(ctx, client, cmd.String("continue"), sessionFile, logger); err != nil {
		return err
	}

	bot := NewBot(client, strategy, logger)
	bot.delay = cmd.Duration("delay")

	games := int(cmd.Int("games"))
	for i := 1; i <= games; i++ {
		result, err := bot.Play(ctx)
		if err != nil {
			return fmt.Errorf("game %d: %w", i, err)
		}
		logger.Info("🎉 game won",
			zap.Int("game", i),
			zap.Int("moves", result.Moves),
			zap.String("time", result.Timer))
	}

	if best, err := client.BestScore(ctx); err == nil && best.Present {
		logger.Info("best score", zap.Int("moves", best.Moves))
	}
	logger.Info("done", zap.String("session", client.SessionID()))
	return nil
}

// openSession resumes the requested or remembered session, or creates a new
// one and remembers it
func openSession(ctx context.Context, client *Client, explicit, sessionFile string, logger *zap.Logger) error {
	saved := explicit
	if saved == "" && sessionFile != "" {
		if data, err := os.ReadFile(sessionFile); err == nil {
			saved = string(bytes.TrimSpace(data))
		}
	}

	if saved != "" {
		_, err := client.Resume(ctx, saved)
		if err == nil {
			logger.Info("🔄 resuming session", zap.String("session", saved))
			return nil
		}
		if explicit != "" {
			return fmt.Errorf("resume session %s: %w", saved, err)
		}
		logger.Warn("failed to resume session (may be expired), creating a new one", zap.Error(err))
	}

	if _, err := client.CreateSession(ctx, ""); err != nil {
		return err
	}
	logger.Info("✨ session created", zap.String("session", client.SessionID()))

	if sessionFile != "" {
		if err := os.WriteFile(sessionFile, []byte(client.SessionID()), 0644); err != nil {
			logger.Warn("failed to save session ID", zap.Error(err))
		}
	}
	return nil
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
