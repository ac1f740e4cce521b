// Package player provides automated Concentration players. A Strategy picks
// the two cards of each turn from the board; it learns card identities only
// through Observe, so a strategy never peeks at face-down cards unless it is
// explicitly the Perfect one.
package player

import (
	"fmt"

	"github.com/wricardo/mcp-training/concentration/game/engine"
)

// Strategy names
const (
	NamePerfect = "perfect"
	NameMemory  = "memory"
	NameRandom  = "random"
)

// Strategy chooses the cards of a turn. Second is asked after First's card
// has been flipped and observed.
type Strategy interface {
	First(board []engine.Card) int
	Second(board []engine.Card, first int) int

	// Observe is called with every card seen face up
	Observe(card engine.Card)
	// Forget drops everything learned, for a new or reshuffled deck
	Forget()
}

// Names lists the accepted strategy names
func Names() []string {
	return []string{NamePerfect, NameMemory, NameRandom}
}

// New returns the strategy called name
func New(name string, rng engine.RandomSource) (Strategy, error) {
	switch name {
	case NamePerfect:
		return Perfect{}, nil
	case NameMemory:
		return NewMemory(rng), nil
	case NameRandom:
		return Random{rng: rng}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

// Hidden returns the positions of face-down cards other than except
func Hidden(board []engine.Card, except int) []int {
	var out []int
	for _, card := range board {
		if card.State == engine.Hidden && card.Position != except {
			out = append(out, card.Position)
		}
	}
	return out
}

// Perfect reads the identities straight off the board and never misses
type Perfect struct{}

func (Perfect) First(board []engine.Card) int {
	return Hidden(board, -1)[0]
}

func (Perfect) Second(board []engine.Card, first int) int {
	return engine.FindPair(board, first)
}

func (Perfect) Observe(engine.Card) {}
func (Perfect) Forget()             {}

// Random flips two random face-down cards and remembers nothing
type Random struct {
	rng engine.RandomSource
}

func (r Random) First(board []engine.Card) int {
	candidates := Hidden(board, -1)
	return candidates[r.rng.IntN(len(candidates))]
}

func (r Random) Second(board []engine.Card, first int) int {
	candidates := Hidden(board, first)
	return candidates[r.rng.IntN(len(candidates))]
}

func (Random) Observe(engine.Card) {}
func (Random) Forget()             {}

// Memory remembers every card it has seen. It finishes a known pair when it
// has one and otherwise explores cards it has not seen yet.
type Memory struct {
	seen map[int]string
	rng  engine.RandomSource
}

func NewMemory(rng engine.RandomSource) *Memory {
	return &Memory{seen: make(map[int]string), rng: rng}
}

func (m *Memory) Observe(card engine.Card) {
	if card.State != engine.Hidden && card.Item.Identity != "" {
		m.seen[card.Position] = card.Item.Identity
	}
}

func (m *Memory) Forget() {
	m.seen = make(map[int]string)
}

// Known returns how many positions the player remembers
func (m *Memory) Known() int {
	return len(m.seen)
}

func (m *Memory) First(board []engine.Card) int {
	if p, _, ok := m.knownPair(board); ok {
		return p
	}
	return m.explore(board, -1)
}

func (m *Memory) Second(board []engine.Card, first int) int {
	identity, ok := m.seen[first]
	if ok {
		for _, pos := range Hidden(board, first) {
			if m.seen[pos] == identity {
				return pos
			}
		}
	}
	return m.explore(board, first)
}

// knownPair finds two face-down cards already seen with the same identity
func (m *Memory) knownPair(board []engine.Card) (int, int, bool) {
	byIdentity := make(map[string]int)
	for _, pos := range Hidden(board, -1) {
		identity, ok := m.seen[pos]
		if !ok {
			continue
		}
		if other, ok := byIdentity[identity]; ok {
			return other, pos, true
		}
		byIdentity[identity] = pos
	}
	return 0, 0, false
}

// explore prefers an unseen face-down card and falls back to any
func (m *Memory) explore(board []engine.Card, except int) int {
	candidates := Hidden(board, except)
	var unseen []int
	for _, pos := range candidates {
		if _, ok := m.seen[pos]; !ok {
			unseen = append(unseen, pos)
		}
	}
	if len(unseen) > 0 {
		return unseen[m.rng.IntN(len(unseen))]
	}
	return candidates[m.rng.IntN(len(candidates))]
}
