package table

import "pokermates/internal/service/game"

// MemberSnapshot never carries connection handles; presence is reduced to a
// boolean.
type MemberSnapshot struct {
	UserID   int64  `json:"userId,string"`
	Username string `json:"username"`
	IsHost   bool   `json:"isHost"`
	Chips    int64  `json:"chips"`
	Present  bool   `json:"present"`
}

// RoomSnapshot is the canonical view broadcast to every connection in a
// room. The hand portion is viewer-specific (own hole cards only).
type RoomSnapshot struct {
	RoomID     int64            `json:"roomId,string"`
	Code       string           `json:"roomCode"`
	Name       string           `json:"roomName"`
	SmallBlind int64            `json:"smallBlind"`
	BigBlind   int64            `json:"bigBlind"`
	MaxPlayers int              `json:"maxPlayers"`
	Members    []MemberSnapshot `json:"players"`
	Hand       *game.HandView   `json:"hand,omitempty"`
}

// snapshotLocked renders the session for one viewer. Callers hold s.mu.
func (s *session) snapshotLocked(viewerID int64) RoomSnapshot {
	snap := RoomSnapshot{
		RoomID:     s.roomID,
		Code:       s.code,
		Name:       s.name,
		SmallBlind: s.smallBlind,
		BigBlind:   s.bigBlind,
		MaxPlayers: s.maxPlayers,
	}
	for _, m := range s.members {
		snap.Members = append(snap.Members, MemberSnapshot{
			UserID:   m.UserID,
			Username: m.Username,
			IsHost:   m.IsHost,
			Chips:    s.liveStack(m),
			Present:  m.present(),
		})
	}
	if s.hand != nil {
		view := s.hand.View(viewerID)
		snap.Hand = &view
	}
	return snap
}
