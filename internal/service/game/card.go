package game

import (
	"encoding/json"
	"fmt"
)

type Suit uint8

const (
	Club Suit = iota
	Diamond
	Heart
	Spade
)

var suitLetters = [4]byte{'C', 'D', 'H', 'S'}

// rank runs 1 (ace) through 13 (king)
var rankLetters = [14]byte{0, 'A', '2', '3', '4', '5', '6', '7', '8', '9', 'T', 'J', 'Q', 'K'}

type Card struct {
	Suit Suit
	Rank uint8
}

func (c Card) String() string {
	if c.Rank < 1 || c.Rank > 13 || c.Suit > Spade {
		return "??"
	}
	return string([]byte{rankLetters[c.Rank], suitLetters[c.Suit]})
}

func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Card) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseCard(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return Card{}, fmt.Errorf("malformed card %q", s)
	}
	var card Card
	found := false
	for r := 1; r <= 13; r++ {
		if rankLetters[r] == s[0] {
			card.Rank = uint8(r)
			found = true
			break
		}
	}
	if !found {
		return Card{}, fmt.Errorf("unknown rank in card %q", s)
	}
	found = false
	for i, l := range suitLetters {
		if l == s[1] {
			card.Suit = Suit(i)
			found = true
			break
		}
	}
	if !found {
		return Card{}, fmt.Errorf("unknown suit in card %q", s)
	}
	return card, nil
}

func cardStrings(cards []Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}
