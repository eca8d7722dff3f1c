package model

import (
	"time"

	"gorm.io/datatypes"
)

// User is a registered account. Chips is the global balance, held outside
// any room.
type User struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"unique;not null"`
	PasswordHash string `gorm:"not null"`
	Chips        int64  `gorm:"not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Room struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	Code       string `gorm:"unique;not null;size:12"`
	Name       string `gorm:"not null"`
	MaxPlayers int    `gorm:"not null"`
	SmallBlind int64  `gorm:"not null"`
	BigBlind   int64  `gorm:"not null"`
	Active     bool   `gorm:"not null;default:true"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RoomMember is the (room, user) seat. Chips here are the room-local stack;
// CreatedAt defines seating order.
type RoomMember struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	RoomID    int64 `gorm:"not null;uniqueIndex:idx_room_user"`
	UserID    int64 `gorm:"not null;uniqueIndex:idx_room_user"`
	IsHost    bool  `gorm:"not null;default:false"`
	Chips     int64 `gorm:"not null"`
	BuyIn     int64 `gorm:"not null"`
	CreatedAt time.Time
}

// Hand is the archive row for one dealt hand. Community and Winners are
// written at settlement.
type Hand struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	RoomID    int64  `gorm:"not null;index"`
	Status    string `gorm:"not null"` // PRE_FLOP/FLOP/TURN/RIVER/SHOWDOWN/COMPLETE
	Pot       int64
	Community datatypes.JSON `gorm:"type:jsonb"`
	Winners   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time
	EndedAt   *time.Time
}

type PlayerHand struct {
	ID         int64          `gorm:"primaryKey;autoIncrement"`
	HandID     int64          `gorm:"not null;index"`
	UserID     int64          `gorm:"not null"`
	Cards      datatypes.JSON `gorm:"type:jsonb"`
	Folded     bool           `gorm:"not null;default:false"`
	AllIn      bool           `gorm:"not null;default:false"`
	FinalChips int64
	NetChips   int64
	CreatedAt  time.Time
}
