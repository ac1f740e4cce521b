package player

import (
	"testing"

	"github.com/wricardo/mcp-training/concentration/game/engine"
)

// firstRand always picks the first candidate
type firstRand struct{}

func (firstRand) IntN(int) int { return 0 }

// orderedBoard is an unshuffled deck: position p pairs with p+8
func orderedBoard() []engine.Card {
	board := make([]engine.Card, engine.DeckSize)
	for i := range board {
		board[i] = engine.Card{
			Position: i,
			Item:     engine.DefaultCatalog[i%engine.CatalogSize],
			State:    engine.Hidden,
		}
	}
	return board
}

func TestNew(t *testing.T) {
	for _, name := range Names() {
		if _, err := New(name, firstRand{}); err != nil {
			t.Errorf("New(%q) failed: %v", name, err)
		}
	}
	if _, err := New("psychic", firstRand{}); err == nil {
		t.Error("Expected error for unknown strategy")
	}
}

func TestHidden(t *testing.T) {
	board := orderedBoard()
	board[2].State = engine.Matched
	board[3].State = engine.Flipped

	got := Hidden(board, 0)
	if len(got) != engine.DeckSize-3 {
		t.Fatalf("Expected %d hidden positions, got %v", engine.DeckSize-3, got)
	}
	for _, pos := range got {
		if pos == 0 || pos == 2 || pos == 3 {
			t.Errorf("Position %d should be excluded", pos)
		}
	}
}

func TestPerfect(t *testing.T) {
	board := orderedBoard()
	p := Perfect{}

	first := p.First(board)
	if first != 0 {
		t.Errorf("Expected first hidden card 0, got %d", first)
	}
	if second := p.Second(board, first); second != engine.CatalogSize {
		t.Errorf("Expected partner %d, got %d", engine.CatalogSize, second)
	}
}

func TestMemory(t *testing.T) {
	t.Run("explores unseen cards", func(t *testing.T) {
		board := orderedBoard()
		m := NewMemory(firstRand{})
		m.Observe(engine.Card{Position: 0, Item: board[0].Item, State: engine.Flipped})

		if first := m.First(board); first != 1 {
			t.Errorf("Expected unseen card 1, got %d", first)
		}
	})

	t.Run("finishes a known pair", func(t *testing.T) {
		board := orderedBoard()
		m := NewMemory(firstRand{})
		m.Observe(engine.Card{Position: 5, Item: board[5].Item, State: engine.Flipped})
		m.Observe(engine.Card{Position: 13, Item: board[13].Item, State: engine.Flipped})

		first := m.First(board)
		if first != 5 {
			t.Fatalf("Expected known pair starting at 5, got %d", first)
		}
		if second := m.Second(board, first); second != 13 {
			t.Errorf("Expected partner 13, got %d", second)
		}
	})

	t.Run("matches the card just flipped", func(t *testing.T) {
		board := orderedBoard()
		m := NewMemory(firstRand{})
		m.Observe(engine.Card{Position: 9, Item: board[9].Item, State: engine.Flipped})

		// Card 1 turns up and carries the same identity as 9
		m.Observe(engine.Card{Position: 1, Item: board[1].Item, State: engine.Flipped})
		if second := m.Second(board, 1); second != 9 {
			t.Errorf("Expected remembered partner 9, got %d", second)
		}
	})

	t.Run("ignores face-down observations", func(t *testing.T) {
		m := NewMemory(firstRand{})
		m.Observe(engine.Card{Position: 3, State: engine.Hidden})
		if m.Known() != 0 {
			t.Errorf("Expected nothing learned, got %d", m.Known())
		}
	})

	t.Run("forget", func(t *testing.T) {
		board := orderedBoard()
		m := NewMemory(firstRand{})
		m.Observe(engine.Card{Position: 0, Item: board[0].Item, State: engine.Flipped})
		m.Forget()
		if m.Known() != 0 {
			t.Errorf("Expected empty memory after Forget, got %d", m.Known())
		}
	})

	t.Run("falls back when everything is seen", func(t *testing.T) {
		board := orderedBoard()
		m := NewMemory(firstRand{})
		for i := 0; i < engine.DeckSize; i++ {
			board[i].State = engine.Matched
		}
		board[4].State = engine.Hidden
		board[7].State = engine.Hidden
		m.Observe(engine.Card{Position: 4, Item: board[4].Item, State: engine.Flipped})
		m.Observe(engine.Card{Position: 7, Item: board[7].Item, State: engine.Flipped})

		if second := m.Second(board, 4); second != 7 {
			t.Errorf("Expected the only other hidden card 7, got %d", second)
		}
	})
}

func TestRandom(t *testing.T) {
	board := orderedBoard()
	r := Random{rng: firstRand{}}

	first := r.First(board)
	if second := r.Second(board, first); second == first {
		t.Error("Second card must differ from the first")
	}
}
