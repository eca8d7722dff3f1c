package game

import (
	"fmt"
	"math/rand"

	appErr "pokermates/pkg/errors"
)

// Street is the hand's lifecycle stage. The board is dealt on street
// transitions: the flop on PRE_FLOP -> FLOP, one card each on the next two.
type Street string

const (
	StreetPreFlop  Street = "PRE_FLOP"
	StreetFlop     Street = "FLOP"
	StreetTurn     Street = "TURN"
	StreetRiver    Street = "RIVER"
	StreetShowdown Street = "SHOWDOWN"
	StreetComplete Street = "COMPLETE"
)

type ActionType string

const (
	ActionFold  ActionType = "fold"
	ActionCheck ActionType = "check"
	ActionCall  ActionType = "call"
	ActionRaise ActionType = "raise"
)

// Seat is one member's participation in the current hand. Stack is the
// room-local stack, debited as the player bets; the coordinator writes it
// back through the ledger once the hand completes.
type Seat struct {
	UserID    int64
	Username  string
	Stack     int64
	Cards     [2]Card
	StreetBet int64
	Folded    bool
	AllIn     bool
	acted     bool
	start     int64
}

// Net is the seat's chip delta since the hand was dealt.
func (s *Seat) Net() int64 { return s.Stack - s.start }

type SeatConfig struct {
	UserID   int64
	Username string
	Stack    int64
}

type Payout struct {
	UserID int64
	Amount int64
}

// Hand runs one dealt hand for a room. It is not self-locking: the room
// coordinator serializes every call under the room's lock.
type Hand struct {
	roomID     int64
	street     Street
	deck       *Deck
	community  []Card
	pot        int64
	currentBet int64
	smallBlind int64
	bigBlind   int64
	dealerIdx  int
	activeIdx  int
	seats      []*Seat
	rank       RankFunc
	payouts    []Payout
	showdown   bool
}

type Option func(*Hand)

// WithRankFunc swaps the showdown comparator.
func WithRankFunc(f RankFunc) Option {
	return func(h *Hand) { h.rank = f }
}

// NewHand deals a fresh hand: shuffled deck, two hole cards per seat,
// blinds posted by the two seats after the dealer button, action on the
// seat after the big blind. The board stays empty until pre-flop betting
// resolves.
func NewHand(roomID int64, seats []SeatConfig, smallBlind, bigBlind int64, dealerIdx int, rng *rand.Rand, opts ...Option) (*Hand, error) {
	if len(seats) < 2 {
		return nil, appErr.ErrNotEnoughPlayers
	}
	if bigBlind <= smallBlind || smallBlind <= 0 {
		return nil, appErr.ErrInvalidBlinds
	}

	h := &Hand{
		roomID:     roomID,
		street:     StreetPreFlop,
		deck:       NewDeck(rng),
		community:  make([]Card, 0, 5),
		smallBlind: smallBlind,
		bigBlind:   bigBlind,
		dealerIdx:  dealerIdx % len(seats),
		rank:       EvalHand,
	}
	for _, cfg := range seats {
		h.seats = append(h.seats, &Seat{
			UserID:   cfg.UserID,
			Username: cfg.Username,
			Stack:    cfg.Stack,
			start:    cfg.Stack,
		})
	}
	for _, opt := range opts {
		opt(h)
	}

	for _, s := range h.seats {
		s.Cards = [2]Card{h.deck.Draw(), h.deck.Draw()}
	}

	sbIdx := (h.dealerIdx + 1) % len(h.seats)
	bbIdx := (h.dealerIdx + 2) % len(h.seats)
	h.postBlind(h.seats[sbIdx], smallBlind)
	h.postBlind(h.seats[bbIdx], bigBlind)
	h.currentBet = bigBlind
	h.activeIdx = h.nextActionable(bbIdx)
	if h.actionableCount() == 0 {
		// blinds put everyone all-in, nothing left to decide
		h.advanceStreet()
	}

	return h, nil
}

func (h *Hand) postBlind(s *Seat, amount int64) {
	if amount >= s.Stack {
		amount = s.Stack
		s.AllIn = true
	}
	s.Stack -= amount
	s.StreetBet += amount
	h.pot += amount
}

func (h *Hand) RoomID() int64     { return h.roomID }
func (h *Hand) Street() Street    { return h.street }
func (h *Hand) Pot() int64        { return h.pot }
func (h *Hand) CurrentBet() int64 { return h.currentBet }
func (h *Hand) Community() []Card { return append([]Card(nil), h.community...) }
func (h *Hand) Payouts() []Payout { return append([]Payout(nil), h.payouts...) }

func (h *Hand) Finished() bool { return h.street == StreetComplete }

func (h *Hand) Seats() []*Seat { return h.seats }

func (h *Hand) SeatOf(userID int64) *Seat {
	for _, s := range h.seats {
		if s.UserID == userID {
			return s
		}
	}
	return nil
}

// ActiveUserID reports who is to act, or 0 once betting is over.
func (h *Hand) ActiveUserID() int64 {
	switch h.street {
	case StreetPreFlop, StreetFlop, StreetTurn, StreetRiver:
		return h.seats[h.activeIdx].UserID
	case StreetShowdown, StreetComplete:
		return 0
	}
	return 0
}

// Act applies a betting action for userID. The turn check enforces action
// ordering regardless of message arrival order.
func (h *Hand) Act(userID int64, action ActionType, amount int64) error {
	if h.street == StreetShowdown || h.street == StreetComplete {
		return appErr.ErrNoActiveHand
	}
	seat := h.seats[h.activeIdx]
	if seat.UserID != userID {
		if s := h.SeatOf(userID); s != nil && s.Folded {
			return appErr.ErrPlayerFolded
		}
		if s := h.SeatOf(userID); s != nil && s.AllIn {
			return appErr.ErrPlayerAllIn
		}
		return appErr.ErrNotYourTurn
	}

	switch action {
	case ActionFold:
		seat.Folded = true
	case ActionCheck:
		if h.currentBet != seat.StreetBet {
			return appErr.ErrCannotCheck
		}
	case ActionCall:
		if h.currentBet <= seat.StreetBet {
			return appErr.ErrNoBetToCall
		}
		delta := h.currentBet - seat.StreetBet
		if delta >= seat.Stack {
			delta = seat.Stack
			seat.AllIn = true
		}
		seat.Stack -= delta
		seat.StreetBet += delta
		h.pot += delta
	case ActionRaise:
		if amount == 0 {
			return appErr.ErrAmountRequired
		}
		if amount < 0 {
			return appErr.ErrNegativeAmount
		}
		if seat.StreetBet+amount <= h.currentBet {
			return appErr.ErrRaiseTooLow
		}
		delta := amount
		if delta >= seat.Stack {
			delta = seat.Stack
			seat.AllIn = true
		}
		seat.Stack -= delta
		seat.StreetBet += delta
		h.pot += delta
		if seat.StreetBet > h.currentBet {
			h.currentBet = seat.StreetBet
			// a genuine raise reopens action for everyone else
			for _, other := range h.seats {
				if other != seat {
					other.acted = false
				}
			}
		}
	default:
		return fmt.Errorf("unsupported action %q", action)
	}
	seat.acted = true

	if h.remainingCount() == 1 {
		h.finishByFolds()
		return nil
	}

	if h.roundComplete() {
		h.advanceStreet()
		return nil
	}

	h.activeIdx = h.nextActionable(h.activeIdx)
	return nil
}

// ForceFold folds a seat out of turn (leave mid-hand, integrator timers).
// Turn order is repaired if the folder was due to act.
func (h *Hand) ForceFold(userID int64) error {
	if h.street == StreetShowdown || h.street == StreetComplete {
		return appErr.ErrNoActiveHand
	}
	seat := h.SeatOf(userID)
	if seat == nil {
		return appErr.ErrNotAMember
	}
	if seat.Folded {
		return nil
	}
	wasActive := h.seats[h.activeIdx] == seat
	seat.Folded = true
	seat.acted = true

	if h.remainingCount() == 1 {
		h.finishByFolds()
		return nil
	}
	if h.roundComplete() {
		h.advanceStreet()
		return nil
	}
	if wasActive {
		h.activeIdx = h.nextActionable(h.activeIdx)
	}
	return nil
}

// nextActionable walks circularly from idx to the next seat that can still
// make a decision this street.
func (h *Hand) nextActionable(idx int) int {
	n := len(h.seats)
	for step := 1; step <= n; step++ {
		cand := (idx + step) % n
		s := h.seats[cand]
		if !s.Folded && !s.AllIn {
			return cand
		}
	}
	return idx
}

func (h *Hand) remainingCount() int {
	count := 0
	for _, s := range h.seats {
		if !s.Folded {
			count++
		}
	}
	return count
}

func (h *Hand) actionableCount() int {
	count := 0
	for _, s := range h.seats {
		if !s.Folded && !s.AllIn {
			count++
		}
	}
	return count
}

// roundComplete holds when every player still able to act has matched the
// current bet and has had their option this street.
func (h *Hand) roundComplete() bool {
	for _, s := range h.seats {
		if s.Folded || s.AllIn {
			continue
		}
		if s.StreetBet != h.currentBet || !s.acted {
			return false
		}
	}
	return true
}

func (h *Hand) resetStreetBets() {
	for _, s := range h.seats {
		s.StreetBet = 0
		s.acted = false
	}
	h.currentBet = 0
}

func (h *Hand) advanceStreet() {
	for {
		h.resetStreetBets()
		switch h.street {
		case StreetPreFlop:
			h.street = StreetFlop
			h.community = append(h.community, h.deck.DrawN(3)...)
		case StreetFlop:
			h.street = StreetTurn
			h.community = append(h.community, h.deck.Draw())
		case StreetTurn:
			h.street = StreetRiver
			h.community = append(h.community, h.deck.Draw())
		case StreetRiver:
			h.street = StreetShowdown
			h.settleShowdown()
			return
		case StreetShowdown, StreetComplete:
			return
		}
		// With fewer than two seats able to bet there is nothing left to
		// decide: run the board out.
		if h.actionableCount() >= 2 {
			h.activeIdx = h.nextActionable(h.dealerIdx)
			return
		}
	}
}

// finishByFolds pays the last player standing without further streets.
func (h *Hand) finishByFolds() {
	for _, s := range h.seats {
		if !s.Folded {
			s.Stack += h.pot
			h.payouts = []Payout{{UserID: s.UserID, Amount: h.pot}}
			break
		}
	}
	h.street = StreetComplete
}

// settleShowdown compares the live hands, splits ties evenly, and hands out
// any odd chips by seat order from the dealer button.
func (h *Hand) settleShowdown() {
	type contender struct {
		idx   int
		score int16
	}
	var best []contender
	for i, s := range h.seats {
		if s.Folded {
			continue
		}
		c := contender{idx: i, score: h.rank(s.Cards, h.community)}
		switch {
		case len(best) == 0 || c.score > best[0].score:
			best = []contender{c}
		case c.score == best[0].score:
			best = append(best, c)
		}
	}
	if len(best) == 0 {
		h.street = StreetComplete
		return
	}

	share := h.pot / int64(len(best))
	remainder := h.pot - share*int64(len(best))
	payout := make(map[int]int64, len(best))
	for _, c := range best {
		payout[c.idx] = share
	}
	// odd chips go to winners closest after the button
	n := len(h.seats)
	for step := 1; step <= n && remainder > 0; step++ {
		idx := (h.dealerIdx + step) % n
		if _, ok := payout[idx]; ok {
			payout[idx]++
			remainder--
		}
	}

	h.showdown = true
	h.payouts = h.payouts[:0]
	for _, c := range best {
		h.seats[c.idx].Stack += payout[c.idx]
		h.payouts = append(h.payouts, Payout{UserID: h.seats[c.idx].UserID, Amount: payout[c.idx]})
	}
	h.street = StreetComplete
}
