package game

import (
	"fmt"

	"github.com/paulhankin/poker"
)

// RankFunc scores a 7-card hand (2 hole + 5 board); higher beats lower.
// Pluggable so variants and tests can swap the comparator.
type RankFunc func(hole [2]Card, board []Card) int16

// EvalHand is the default comparator, backed by paulhankin/poker's
// 7-card evaluator.
func EvalHand(hole [2]Card, board []Card) int16 {
	var final [7]poker.Card
	for i := 0; i < 5 && i < len(board); i++ {
		final[i] = toPokerCard(board[i])
	}
	final[5] = toPokerCard(hole[0])
	final[6] = toPokerCard(hole[1])
	return poker.Eval7(&final)
}

/// toPokerCard panics on a card outside the 52-card space: a malformed card
// here means the deck or deal is corrupt, and a quiet zero score would
// falsify settlements.
func toPokerCard(c Card) poker.Card {
	pc, err := poker.MakeCard(poker.Suit(c.Suit), poker.Rank(c.Rank))
	if err != nil {
		panic(fmt.Sprintf("card %v outside the deck: %v", c, err))
	}
	return pc
}
