package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/concentration/game/clock"
)

// storeTimeout bounds every best-score read or write
const storeTimeout = 2 * time.Second

// KeyValueStore is the persistent store holding the best score
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Engine provides the main interface for game operations
type Engine interface {
	// Game lifecycle
	Initialize()
	StartNewGame()
	Reshuffle()
	Close()

	// Turn handling
	SelectCard(position int) Selection

	// Game state
	GetState() *GameState
	Restore(state *GameState) error
	Moves() int
	MatchedPairs() int
	Phase() TurnPhase
	IsWon() bool
	BestScore() (int, bool)
}

// Options configures a GameEngine. Every field is optional.
type Options struct {
	Clock  clock.Clock
	Rand   RandomSource
	View   View
	Sounds Sounds
	Store  KeyValueStore
	Logger *zap.Logger
}

// GameEngine implements the Engine interface.
//
// All state lives behind mu. View and Sounds notifications produced while
// holding mu are queued in mutation order and delivered once it is released,
// by a single goroutine at a time.
type GameEngine struct {
	mu sync.Mutex

	notifyMu sync.Mutex
	queue    []func()
	draining bool

	clock  clock.Clock
	rng    RandomSource
	view   View
	sounds Sounds
	store  KeyValueStore
	logger *zap.Logger

	cards        []Card
	moves        int
	matchedPairs int
	flipped      []int
	won          bool
	bestScore    int
	hasBest      bool
	closed       bool

	// round changes on every deal; resolutions scheduled for an older round
	// are ignored when they fire.
	round   uint64
	pending clock.Timer

	// ticker is nil while the elapsed-time tracker is stopped. tickerSeq
	// invalidates ticks from a stopped ticker that were already in flight.
	ticker      clock.Timer
	tickerSeq   uint64
	timerStart  time.Time
	elapsedBase time.Duration
}

// effects queues collaborator calls until the engine lock is released
type effects []func()

func (fx *effects) add(f func()) {
	*fx = append(*fx, f)
}

// commit appends fx to the delivery queue. Caller holds mu, so batches queue
// in the order their mutations happened.
func (e *GameEngine) commit(fx effects) {
	if len(fx) == 0 {
		return
	}
	e.notifyMu.Lock()
	e.queue = append(e.queue, fx...)
	e.notifyMu.Unlock()
}

// deliver runs queued notifications without holding mu. When another
// goroutine is already delivering, it returns at once and leaves its batch to
// that goroutine, which also covers collaborators calling back into the
// engine from inside a notification.
func (e *GameEngine) deliver() {
	e.notifyMu.Lock()
	if e.draining {
		e.notifyMu.Unlock()
		return
	}
	e.draining = true

	for len(e.queue) > 0 {
		f := e.queue[0]
		e.queue[0] = nil
		e.queue = e.queue[1:]

		e.notifyMu.Unlock()
		f()
		e.notifyMu.Lock()
	}

	e.draining = false
	e.notifyMu.Unlock()
}

// NewEngine creates a game engine, displays the stored best score if there
// is one and deals the first game.
func NewEngine(opts Options) *GameEngine {
	e := &GameEngine{
		clock:  opts.Clock,
		rng:    opts.Rand,
		view:   opts.View,
		sounds: opts.Sounds,
		store:  opts.Store,
		logger: opts.Logger,
	}
	if e.clock == nil {
		e.clock = clock.Real()
	}
	if e.rng == nil {
		e.rng = DefaultRandom()
	}
	if e.view == nil {
		e.view = NopView{}
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}

	var fx effects
	e.mu.Lock()
	if best, ok := e.readBestScore(); ok {
		e.bestScore, e.hasBest = best, true
		fx.add(func() { e.view.SetBestScore(best) })
	}
	e.initialize(&fx)
	e.commit(fx)
	e.mu.Unlock()
	e.deliver()

	return e
}

// Initialize deals a fresh shuffled deck and resets moves, pairs and timer
func (e *GameEngine) Initialize() {
	var fx effects
	e.mu.Lock()
	e.initialize(&fx)
	e.commit(fx)
	e.mu.Unlock()
	e.deliver()
}

func (e *GameEngine) initialize(fx *effects) {
	e.stopTimer()
	e.cancelPending()
	e.round++

	e.moves = 0
	e.matchedPairs = 0
	e.flipped = nil
	e.won = false
	e.elapsedBase = 0
	e.cards = dealCards(BuildDeck(DefaultCatalog, e.rng))

	cards := cloneCards(e.cards)
	fx.add(func() { e.view.RenderBoard(cards) })
	fx.add(func() { e.view.SetMoves(0) })
	fx.add(func() { e.view.SetTimer(FormatElapsed(0)) })
	fx.add(func() { e.view.ShowWin(false) })

	e.logger.Debug("game initialized", zap.Uint64("round", e.round))
}

// StartNewGame stops any running timer, plays the start sound and deals a
// new game
func (e *GameEngine) StartNewGame() {
	var fx effects
	e.mu.Lock()
	e.stopTimer()
	fx.add(func() { play(e.sounds.OnStart) })
	e.initialize(&fx)
	e.commit(fx)
	e.mu.Unlock()
	e.deliver()
}

// Reshuffle re-permutes the current deck and resets moves, pairs and timer.
// Cards keep their identities but every card goes back to Hidden, including
// already matched ones.
func (e *GameEngine) Reshuffle() {
	var fx effects
	e.mu.Lock()

	fx.add(func() { play(e.sounds.OnStart) })

	e.cancelPending()
	e.round++
	e.cards = dealCards(Shuffle(deckItems(e.cards), e.rng))
	cards := cloneCards(e.cards)
	fx.add(func() { e.view.RenderBoard(cards) })

	e.moves = 0
	fx.add(func() { e.view.SetMoves(0) })

	e.stopTimer()
	e.elapsedBase = 0
	fx.add(func() { e.view.SetTimer(FormatElapsed(0)) })

	e.flipped = nil
	e.matchedPairs = 0

	e.logger.Debug("deck reshuffled", zap.Uint64("round", e.round))
	e.commit(fx)
	e.mu.Unlock()
	e.deliver()
}

// SelectCard flips the card at position. Selections that break a turn rule
// leave the state untouched and report why in the returned Selection.
func (e *GameEngine) SelectCard(position int) Selection {
	var fx effects
	e.mu.Lock()
	sel := e.selectCard(position, &fx)
	e.commit(fx)
	e.mu.Unlock()
	e.deliver()
	return sel
}

func (e *GameEngine) selectCard(position int, fx *effects) Selection {
	if e.closed {
		return Selection{Reason: RejectClosed}
	}
	if position < 0 || position >= len(e.cards) {
		return Selection{Reason: RejectOutOfRange}
	}
	if len(e.flipped) >= 2 {
		return Selection{Reason: RejectPairPending}
	}

	card := &e.cards[position]
	switch card.State {
	case Matched:
		return Selection{Reason: RejectAlreadyMatched}
	case Flipped:
		return Selection{Reason: RejectAlreadyFlipped}
	}

	if e.ticker == nil {
		e.startTimer()
	}

	fx.add(func() { play(e.sounds.OnClick) })

	card.State = Flipped
	e.flipped = append(e.flipped, position)
	flippedCard := *card
	fx.add(func() { e.view.SetCardState(flippedCard) })

	sel := Selection{Accepted: true}
	if len(e.flipped) < 2 {
		return sel
	}

	e.moves++
	moves := e.moves
	fx.add(func() { e.view.SetMoves(moves) })

	first, second := e.flipped[0], e.flipped[1]
	sel.PairComplete = true
	sel.Matched = e.cards[first].Item.Identity == e.cards[second].Item.Identity

	round := e.round
	if sel.Matched {
		e.pending = e.clock.AfterFunc(MatchDelay, func() { e.resolve(round, true) })
	} else {
		e.pending = e.clock.AfterFunc(MismatchDelay, func() { e.resolve(round, false) })
	}

	e.logger.Debug("pair flipped",
		zap.Int("first", first),
		zap.Int("second", second),
		zap.Bool("matched", sel.Matched),
		zap.Int("moves", moves),
	)
	return sel
}

// resolve commits the outcome of a completed pair once its delay elapsed
func (e *GameEngine) resolve(round uint64, matched bool) {
	var fx effects
	e.mu.Lock()
	defer func() {
		e.commit(fx)
		e.mu.Unlock()
		e.deliver()
	}()

	if round != e.round || len(e.flipped) != 2 {
		return
	}
	e.pending = nil

	first, second := e.flipped[0], e.flipped[1]
	state := Hidden
	if matched {
		state = Matched
		fx.add(func() { play(e.sounds.OnMatch) })
	} else {
		fx.add(func() { play(e.sounds.OnMismatch) })
	}

	for _, pos := range []int{first, second} {
		e.cards[pos].State = state
		card := e.cards[pos]
		fx.add(func() { e.view.SetCardState(card) })
	}
	e.flipped = nil

	if !matched {
		return
	}

	e.matchedPairs++
	if e.matchedPairs == CatalogSize {
		e.win(&fx)
	}
}

// win stops the timer, shows the end-of-game indicator and records a new
// best score when this game beat the stored one
func (e *GameEngine) win(fx *effects) {
	e.stopTimer()
	e.won = true

	fx.add(func() { play(e.sounds.OnWin) })
	fx.add(func() { e.view.ShowWin(true) })

	moves := e.moves
	best, ok := e.readBestScore()
	if ok && moves >= best {
		e.bestScore, e.hasBest = best, true
		e.logger.Info("game won",
			zap.Int("moves", moves),
			zap.Int("best_score", best),
			zap.Int("elapsed_seconds", e.elapsedSeconds()),
		)
		return
	}

	e.writeBestScore(moves)
	e.bestScore, e.hasBest = moves, true
	fx.add(func() { e.view.SetBestScore(moves) })

	e.logger.Info("game won with new best score",
		zap.Int("moves", moves),
		zap.Int("elapsed_seconds", e.elapsedSeconds()),
	)
}

// readBestScore loads the stored best score. A missing store, a failing
// store and an unparsable value all read as "no best score".
func (e *GameEngine) readBestScore() (int, bool) {
	if e.store == nil {
		return 0, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	raw, ok, err := e.store.Get(ctx, BestScoreKey)
	if err != nil {
		e.logger.Warn("best score unavailable", zap.Error(err))
		return 0, false
	}
	if !ok {
		return 0, false
	}

	best, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || best < 0 {
		e.logger.Warn("ignoring malformed best score", zap.String("value", raw))
		return 0, false
	}
	return best, true
}

func (e *GameEngine) writeBestScore(moves int) {
	if e.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := e.store.Set(ctx, BestScoreKey, strconv.Itoa(moves)); err != nil {
		e.logger.Warn("failed to persist best score", zap.Int("moves", moves), zap.Error(err))
	}
}

// startTimer begins the periodic elapsed-time update. Caller holds mu.
func (e *GameEngine) startTimer() {
	e.timerStart = e.clock.Now()
	e.tickerSeq++
	seq := e.tickerSeq
	e.ticker = e.clock.Every(TimerInterval, func() { e.tick(seq) })
}

// stopTimer halts the tracker and folds the running time into elapsedBase.
// Caller holds mu.
func (e *GameEngine) stopTimer() {
	if e.ticker == nil {
		return
	}
	e.elapsedBase += e.clock.Now().Sub(e.timerStart)
	e.ticker.Stop()
	e.ticker = nil
	e.tickerSeq++
}

func (e *GameEngine) tick(seq uint64) {
	e.mu.Lock()
	if e.ticker == nil || seq != e.tickerSeq {
		e.mu.Unlock()
		return
	}
	display := FormatElapsed(e.elapsedSeconds())
	e.commit(effects{func() { e.view.SetTimer(display) }})
	e.mu.Unlock()
	e.deliver()
}

// elapsedSeconds returns whole seconds played. Caller holds mu.
func (e *GameEngine) elapsedSeconds() int {
	d := e.elapsedBase
	if e.ticker != nil {
		d += e.clock.Now().Sub(e.timerStart)
	}
	return int(d / time.Second)
}

// cancelPending drops a scheduled pair resolution. Caller holds mu.
func (e *GameEngine) cancelPending() {
	if e.pending != nil {
		e.pending.Stop()
		e.pending = nil
	}
}

// GetState returns a deep copy of the current game state
//
// GetState never notifies collaborators, so it is safe to call from inside
// a View or Sounds hook.
func (e *GameEngine) GetState() *GameState {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.refreshBestScore()
	elapsed := e.elapsedSeconds()
	state := &GameState{
		Cards:          cloneCards(e.cards),
		Moves:          e.moves,
		MatchedPairs:   e.matchedPairs,
		FlippedCards:   append([]int{}, e.flipped...),
		Phase:          e.phase(),
		TimerRunning:   e.ticker != nil,
		ElapsedSeconds: elapsed,
		Timer:          FormatElapsed(elapsed),
		Won:            e.won,
	}
	if e.hasBest {
		best := e.bestScore
		state.BestScore = &best
	}
	return state
}

// Restore replaces the current game with a previously captured state (used
// for persistence loading). A pair that was still pending resolution is
// turned back face down and the timer stays stopped until the next
// selection, resuming from the stored elapsed time.
func (e *GameEngine) Restore(state *GameState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	if state.Moves < 0 {
		return fmt.Errorf("moves cannot be negative, got %d", state.Moves)
	}
	if state.ElapsedSeconds < 0 {
		return fmt.Errorf("elapsed seconds cannot be negative, got %d", state.ElapsedSeconds)
	}

	cards := cloneCards(state.Cards)
	matched := 0
	for i := range cards {
		if cards[i].State == Flipped {
			cards[i].State = Hidden
		}
		if cards[i].State == Matched {
			matched++
		}
	}
	if err := ValidateDeck(cards); err != nil {
		return err
	}

	var fx effects
	e.mu.Lock()

	e.stopTimer()
	e.cancelPending()
	e.round++
	e.closed = false

	e.cards = cards
	e.moves = state.Moves
	e.matchedPairs = matched / CopiesPerItem
	e.flipped = nil
	e.won = state.Won
	e.elapsedBase = time.Duration(state.ElapsedSeconds) * time.Second

	rendered := cloneCards(cards)
	moves, won, elapsed := e.moves, e.won, state.ElapsedSeconds
	fx.add(func() { e.view.RenderBoard(rendered) })
	fx.add(func() { e.view.SetMoves(moves) })
	fx.add(func() { e.view.SetTimer(FormatElapsed(elapsed)) })
	fx.add(func() { e.view.ShowWin(won) })

	e.commit(fx)
	e.mu.Unlock()
	e.deliver()
	return nil
}

// Close stops the timer and drops any pending resolution. Selections made
// after Close are rejected.
func (e *GameEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopTimer()
	e.cancelPending()
	e.round++
	e.closed = true
}

// Moves returns the number of completed pairs flipped so far
func (e *GameEngine) Moves() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.moves
}

// MatchedPairs returns the number of pairs found in this game
func (e *GameEngine) MatchedPairs() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.matchedPairs
}

// Phase returns the turn sub-state
func (e *GameEngine) Phase() TurnPhase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase()
}

func (e *GameEngine) phase() TurnPhase {
	switch len(e.flipped) {
	case 0:
		return Idle
	case 1:
		return OneFlipped
	default:
		return TwoFlipped
	}
}

// IsWon reports whether the end-of-game indicator is showing
func (e *GameEngine) IsWon() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.won
}

// BestScore returns the best score, picking up a better one recorded by
// another engine sharing the store
func (e *GameEngine) BestScore() (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.refreshBestScore()
	return e.bestScore, e.hasBest
}

// refreshBestScore adopts a stored best score lower than the cached one.
// A failed read keeps the cached value. Caller holds mu.
func (e *GameEngine) refreshBestScore() {
	if best, ok := e.readBestScore(); ok && (!e.hasBest || best < e.bestScore) {
		e.bestScore, e.hasBest = best, true
	}
}
