package table

import (
	"sync"
	"time"

	"pokermates/internal/service/game"
	"pokermates/internal/service/ledger"
)

// OutgoingMessage is what connections receive: snapshots and errors, tagged
// with a per-room sequence number so clients can drop stale frames.
type OutgoingMessage struct {
	Type string      `json:"type"`
	Seq  int64       `json:"seq"`
	Data interface{} `json:"data"`
}

// memberState is one seated member plus their live connections. Multiple
// tabs map to the same member; presence is connection-count liveness only
// and never feeds back into the ledger.
type memberState struct {
	UserID   int64
	Username string
	IsHost   bool
	Chips    int64
	JoinedAt time.Time
	conns    map[string]chan OutgoingMessage
}

func (m *memberState) present() bool { return len(m.conns) > 0 }

// session is the one authoritative in-memory state object for a room. All
// access goes through mu; connections only ever see immutable copies.
type session struct {
	mu sync.Mutex

	roomID     int64
	code       string
	name       string
	maxPlayers int
	smallBlind int64
	bigBlind   int64

	members []*memberState // seating order

	hand      *game.Hand
	handID    int64
	settled   bool // archive write-back for the current hand committed
	dealerIdx int

	seq int64
}

func (s *session) memberByUser(userID int64) *memberState {
	for _, m := range s.members {
		if m.UserID == userID {
			return m
		}
	}
	return nil
}

// applyDetails merges fresh ledger truth into the session, preserving live
// connection sets for members that survive. Connections of members that are
// gone from the ledger are closed so their write pumps tear down; the number
// of closed connections is returned for the caller's gauge.
func (s *session) applyDetails(details *ledger.RoomDetails) int {
	previous := make(map[int64]*memberState, len(s.members))
	for _, m := range s.members {
		previous[m.UserID] = m
	}

	s.code = details.Code
	s.name = details.Name
	s.maxPlayers = details.MaxPlayers
	s.smallBlind = details.SmallBlind
	s.bigBlind = details.BigBlind

	members := make([]*memberState, 0, len(details.Members))
	for _, d := range details.Members {
		m := &memberState{
			UserID:   d.UserID,
			Username: d.Username,
			IsHost:   d.IsHost,
			Chips:    d.Chips,
			JoinedAt: d.JoinedAt,
			conns:    map[string]chan OutgoingMessage{},
		}
		if prev, ok := previous[d.UserID]; ok {
			m.conns = prev.conns
			delete(previous, d.UserID)
		}
		members = append(members, m)
	}
	s.members = members

	closed := 0
	for _, gone := range previous {
		for connID, ch := range gone.conns {
			delete(gone.conns, connID)
			close(ch)
			closed++
		}
	}
	return closed
}

func (s *session) connectionCount() int {
	total := 0
	for _, m := range s.members {
		total += len(m.conns)
	}
	return total
}

func (s *session) nextSeq() int64 {
	s.seq++
	return s.seq
}

// liveStack prefers the in-flight hand's stack over the (stale during a
// hand) ledger value.
func (s *session) liveStack(m *memberState) int64 {
	if s.hand != nil {
		if seat := s.hand.SeatOf(m.UserID); seat != nil {
			return seat.Stack
		}
	}
	return m.Chips
}
