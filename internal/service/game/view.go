package game

// SeatView is the per-seat slice of a hand snapshot. Cards are only filled
// for the viewer's own seat, or for live seats once a showdown happened.
type SeatView struct {
	UserID    int64    `json:"userId,string"`
	Username  string   `json:"username"`
	Stack     int64    `json:"stack"`
	StreetBet int64    `json:"streetBet"`
	Folded    bool     `json:"folded"`
	AllIn     bool     `json:"allIn"`
	Cards     []string `json:"cards,omitempty"`
}

type HandView struct {
	Street       Street     `json:"street"`
	Pot          int64      `json:"pot"`
	CurrentBet   int64      `json:"currentBet"`
	Community    []string   `json:"community"`
	ActiveUserID int64      `json:"activeUserId,string"`
	Seats        []SeatView `json:"seats"`
	Payouts      []Payout   `json:"payouts,omitempty"`
}

// View renders the hand as seen by viewerID.
func (h *Hand) View(viewerID int64) HandView {
	view := HandView{
		Street:       h.street,
		Pot:          h.pot,
		CurrentBet:   h.currentBet,
		Community:    cardStrings(h.community),
		ActiveUserID: h.ActiveUserID(),
	}
	for _, s := range h.seats {
		sv := SeatView{
			UserID:    s.UserID,
			Username:  s.Username,
			Stack:     s.Stack,
			StreetBet: s.StreetBet,
			Folded:    s.Folded,
			AllIn:     s.AllIn,
		}
		if s.UserID == viewerID || (h.showdown && !s.Folded) {
			sv.Cards = cardStrings(s.Cards[:])
		}
		view.Seats = append(view.Seats, sv)
	}
	if h.street == StreetComplete {
		view.Payouts = h.Payouts()
	}
	return view
}
