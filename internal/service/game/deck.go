package game

import "math/rand"

// Deck is a standard 52-card deck dealt from the top.
type Deck struct {
	cards []Card
	next  int
}

// NewDeck returns a freshly shuffled deck. The caller owns the rand source,
// which makes hands replayable under a fixed seed.
func NewDeck(rng *rand.Rand) *Deck {
	cards := make([]Card, 0, 52)
	for suit := Club; suit <= Spade; suit++ {
		for rank := uint8(1); rank <= 13; rank++ {
			cards = append(cards, Card{Suit: suit, Rank: rank})
		}
	}
	// Fisher-Yates
	for i := len(cards) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
	return &Deck{cards: cards}
}

func (d *Deck) Draw() Card {
	c := d.cards[d.next]
	d.next++
	return c
}

func (d *Deck) DrawN(n int) []Card {
	out := make([]Card, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, d.Draw())
	}
	return out
}

func (d *Deck) Remaining() int {
	return len(d.cards) - d.next
}
