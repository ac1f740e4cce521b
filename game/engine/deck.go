package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// ErrInvalidDeck is returned when a deck breaks the pairing invariant
var ErrInvalidDeck = errors.New("invalid deck")

// RandomSource supplies uniform integers in [0, n). *rand.Rand satisfies it.
type RandomSource interface {
	IntN(n int) int
}

// globalRand uses the concurrency-safe top-level math/rand/v2 source
type globalRand struct{}

func (globalRand) IntN(n int) int {
	return rand.IntN(n)
}

// DefaultRandom returns the process-wide random source
func DefaultRandom() RandomSource {
	return globalRand{}
}

// Shuffle returns a uniformly random permutation of in using Fisher-Yates.
// The input slice is left untouched.
func Shuffle[T any](in []T, rng RandomSource) []T {
	if rng == nil {
		rng = DefaultRandom()
	}

	shuffled := make([]T, len(in))
	copy(shuffled, in)

	for i := len(shuffled) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}

// BuildDeck duplicates every catalog item and shuffles the result
func BuildDeck(catalog []Item, rng RandomSource) []Item {
	pairs := make([]Item, 0, len(catalog)*CopiesPerItem)
	for c := 0; c < CopiesPerItem; c++ {
		pairs = append(pairs, catalog...)
	}
	return Shuffle(pairs, rng)
}

// dealCards turns an ordered deck into hidden runtime cards
func dealCards(deck []Item) []Card {
	cards := make([]Card, len(deck))
	for i, item := range deck {
		cards[i] = Card{Position: i, Item: item, State: Hidden}
	}
	return cards
}

// deckItems extracts the items of cards in deck order
func deckItems(cards []Card) []Item {
	items := make([]Item, len(cards))
	for i, card := range cards {
		items[i] = card.Item
	}
	return items
}

// ValidateDeck checks the deck has DeckSize cards drawn from the catalog,
// exactly CopiesPerItem of each identity, and that matched cards come in
// whole pairs.
func ValidateDeck(cards []Card) error {
	if len(cards) != DeckSize {
		return fmt.Errorf("%w: expected %d cards, got %d", ErrInvalidDeck, DeckSize, len(cards))
	}

	index := catalogIndex()
	counts := make(map[string]int, CatalogSize)
	matched := make(map[string]int, CatalogSize)

	for i, card := range cards {
		if card.Position != i {
			return fmt.Errorf("%w: card at index %d has position %d", ErrInvalidDeck, i, card.Position)
		}
		item, ok := index[card.Item.Identity]
		if !ok {
			return fmt.Errorf("%w: unknown identity %q at position %d", ErrInvalidDeck, card.Item.Identity, i)
		}
		if item.ImageRef != card.Item.ImageRef {
			return fmt.Errorf("%w: image mismatch for %q at position %d", ErrInvalidDeck, card.Item.Identity, i)
		}

		switch card.State {
		case Hidden, Flipped:
		case Matched:
			matched[card.Item.Identity]++
		default:
			return fmt.Errorf("%w: invalid state %q at position %d", ErrInvalidDeck, card.State, i)
		}
		counts[card.Item.Identity]++
	}

	for identity := range index {
		if counts[identity] != CopiesPerItem {
			return fmt.Errorf("%w: identity %q appears %d times, want %d",
				ErrInvalidDeck, identity, counts[identity], CopiesPerItem)
		}
		if m := matched[identity]; m != 0 && m != CopiesPerItem {
			return fmt.Errorf("%w: identity %q has %d matched cards", ErrInvalidDeck, identity, m)
		}
	}

	return nil
}
