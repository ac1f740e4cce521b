package engine

import "time"

// CardState represents the visible state of a single card
type CardState string

const (
	Hidden  CardState = "hidden"
	Flipped CardState = "flipped"
	Matched CardState = "matched"
)

// TurnPhase represents how far the current turn has progressed
type TurnPhase string

const (
	Idle       TurnPhase = "idle"
	OneFlipped TurnPhase = "one_flipped"
	TwoFlipped TurnPhase = "two_flipped"
)

const (
	// Deck shape
	CatalogSize   = 8
	CopiesPerItem = 2
	DeckSize      = CatalogSize * CopiesPerItem

	// Resolution delays. Matches resolve faster than mismatches so a failed
	// pair stays visible longer.
	MatchDelay    = 500 * time.Millisecond
	MismatchDelay = 1000 * time.Millisecond

	// TimerInterval is how often the elapsed-time display is refreshed
	TimerInterval = time.Second

	// BestScoreKey is the store key holding the lowest winning move count
	BestScoreKey = "bestScore"
)

// Item is an immutable catalog entry shown on the face of a card
type Item struct {
	Identity string `json:"identity"`
	ImageRef string `json:"image_ref"`
}

// Card is a runtime card: a deck position, the item it carries and its state
type Card struct {
	Position int       `json:"position"`
	Item     Item      `json:"item"`
	State    CardState `json:"state"`
}

// GameState is a point-in-time snapshot of a game
type GameState struct {
	Cards        []Card    `json:"cards"`
	Moves        int       `json:"moves"`
	MatchedPairs int       `json:"matched_pairs"`
	FlippedCards []int     `json:"flipped_cards"`
	Phase        TurnPhase `json:"phase"`

	// Timer
	TimerRunning   bool   `json:"timer_running"`
	ElapsedSeconds int    `json:"elapsed_seconds"`
	Timer          string `json:"timer"`

	// Won mirrors the end-of-game indicator
	Won bool `json:"won"`

	BestScore *int `json:"best_score,omitempty"`
}

// Selection describes what happened to a card selection
type Selection struct {
	Accepted bool         `json:"accepted"`
	Reason   RejectReason `json:"reason,omitempty"`

	// PairComplete is set when this selection flipped the second card of a
	// turn. Matched tells whether that pair will resolve as a match.
	PairComplete bool `json:"pair_complete,omitempty"`
	Matched      bool `json:"matched,omitempty"`
}

// RejectReason explains why a selection was ignored
type RejectReason string

const (
	RejectOutOfRange     RejectReason = "out_of_range"
	RejectPairPending    RejectReason = "pair_pending"
	RejectAlreadyFlipped RejectReason = "already_flipped"
	RejectAlreadyMatched RejectReason = "already_matched"
	RejectClosed         RejectReason = "closed"
)
