package engine

import "fmt"

// FormatElapsed renders whole seconds as M:SS, minutes unpadded
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// CountCardsInState counts the cards currently in the given state
func CountCardsInState(cards []Card, state CardState) int {
	count := 0
	for _, card := range cards {
		if card.State == state {
			count++
		}
	}
	return count
}

// FindPair returns the position of the other card carrying the same
// identity as the card at position, or -1 if there is none
func FindPair(cards []Card, position int) int {
	if position < 0 || position >= len(cards) {
		return -1
	}
	identity := cards[position].Item.Identity
	for _, card := range cards {
		if card.Position != position && card.Item.Identity == identity {
			return card.Position
		}
	}
	return -1
}

// cloneCards returns an independent copy of cards
func cloneCards(cards []Card) []Card {
	if cards == nil {
		return nil
	}
	out := make([]Card, len(cards))
	copy(out, cards)
	return out
}
