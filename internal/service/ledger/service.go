package ledger

import (
	"context"
	"fmt"
	"time"

	"pokermates/internal/model"
	appErr "pokermates/pkg/errors"
	"pokermates/pkg/logger"
	"pokermates/pkg/utils/random"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const codeRetryLimit = 10

type Config struct {
	MinBuyInBB        int64
	MaxBuyInBB        int64
	RoomCodeLength    int
	DefaultMaxPlayers int
}

func DefaultConfig() Config {
	return Config{
		MinBuyInBB:        20,
		MaxBuyInBB:        200,
		RoomCodeLength:    6,
		DefaultMaxPlayers: 8,
	}
}

// Service owns the durable room, membership, and chip-balance records.
// Every mutating operation is one transaction, serialized per room by a
// row lock on the Room record.
type Service struct {
	db  *gorm.DB
	cfg Config
}

func NewService(db *gorm.DB, cfg Config) *Service {
	return &Service{db: db, cfg: cfg}
}

type BuyInRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

func (s *Service) BuyInRangeFor(bigBlind int64) BuyInRange {
	return BuyInRange{
		Min: bigBlind * s.cfg.MinBuyInBB,
		Max: bigBlind * s.cfg.MaxBuyInBB,
	}
}

type MemberDetails struct {
	MemberID int64     `json:"memberId,string"`
	UserID   int64     `json:"userId,string"`
	Username string    `json:"username"`
	IsHost   bool      `json:"isHost"`
	Chips    int64     `json:"chips"`
	BuyIn    int64     `json:"buyIn"`
	JoinedAt time.Time `json:"joinedAt"`
}

type RoomDetails struct {
	ID         int64           `json:"id,string"`
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	MaxPlayers int             `json:"maxPlayers"`
	SmallBlind int64           `json:"smallBlind"`
	BigBlind   int64           `json:"bigBlind"`
	BuyInRange BuyInRange      `json:"buyInRange"`
	Members    []MemberDetails `json:"members"`
}

type RoomSummary struct {
	ID          int64      `json:"id,string"`
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	MaxPlayers  int        `json:"maxPlayers"`
	SmallBlind  int64      `json:"smallBlind"`
	BigBlind    int64      `json:"bigBlind"`
	PlayerCount int64      `json:"playerCount"`
	BuyInRange  BuyInRange `json:"buyInRange"`
}

type CreateRoomParams struct {
	HostUserID int64
	Name       string
	MaxPlayers int
	SmallBlind int64
	BigBlind   int64
	BuyIn      int64
}

// CreateRoom debits the host's balance by the buy-in and creates the room
// plus its host seat atomically. The room code is retried on collision.
func (s *Service) CreateRoom(ctx context.Context, params CreateRoomParams) (*RoomDetails, error) {
	if params.BigBlind <= params.SmallBlind || params.SmallBlind <= 0 {
		return nil, appErr.ErrInvalidBlinds
	}
	bounds := s.BuyInRangeFor(params.BigBlind)
	if params.BuyIn < bounds.Min || params.BuyIn > bounds.Max {
		return nil, fmt.Errorf("%w: must be between %d and %d", appErr.ErrBuyInOutOfRange, bounds.Min, bounds.Max)
	}
	maxPlayers := params.MaxPlayers
	if maxPlayers <= 0 {
		maxPlayers = s.cfg.DefaultMaxPlayers
	}

	var details *RoomDetails
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var host model.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&host, params.HostUserID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return appErr.ErrUserNotFound
			}
			return err
		}
		if host.Chips < params.BuyIn {
			return appErr.ErrInsufficientChips
		}

		code, err := s.uniqueRoomCode(tx)
		if err != nil {
			return err
		}

		if err := tx.Model(&host).Update("chips", host.Chips-params.BuyIn).Error; err != nil {
			return err
		}

		room := model.Room{
			Code:       code,
			Name:       params.Name,
			MaxPlayers: maxPlayers,
			SmallBlind: params.SmallBlind,
			BigBlind:   params.BigBlind,
			Active:     true,
		}
		if err := tx.Create(&room).Error; err != nil {
			return err
		}

		member := model.RoomMember{
			RoomID: room.ID,
			UserID: host.ID,
			IsHost: true,
			Chips:  params.BuyIn,
			BuyIn:  params.BuyIn,
		}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}

		details, err = s.roomDetailsTx(tx, room)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("room created",
		zap.Int64("roomID", details.ID),
		zap.String("code", details.Code),
		zap.Int64("hostUserID", params.HostUserID),
	)
	return details, nil
}

// JoinRoom seats a user at the room identified by code. Re-joining an
// existing member is idempotent and never double-debits.
func (s *Service) JoinRoom(ctx context.Context, roomCode string, userID, buyIn int64) (*RoomDetails, error) {
	var details *RoomDetails
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room model.Room
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ?", roomCode).First(&room).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return appErr.ErrRoomNotFound
			}
			return err
		}
		if !room.Active {
			return appErr.ErrRoomNotFound
		}

		var existing model.RoomMember
		err = tx.Where("room_id = ? AND user_id = ?", room.ID, userID).First(&existing).Error
		if err == nil {
			details, err = s.roomDetailsTx(tx, room)
			return err
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		var memberCount int64
		if err := tx.Model(&model.RoomMember{}).Where("room_id = ?", room.ID).Count(&memberCount).Error; err != nil {
			return err
		}
		if memberCount >= int64(room.MaxPlayers) {
			return appErr.ErrRoomFull
		}

		bounds := s.BuyInRangeFor(room.BigBlind)
		if buyIn < bounds.Min || buyIn > bounds.Max {
			return fmt.Errorf("%w: must be between %d and %d", appErr.ErrBuyInOutOfRange, bounds.Min, bounds.Max)
		}

		var user model.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return appErr.ErrUserNotFound
			}
			return err
		}
		if user.Chips < buyIn {
			return appErr.ErrInsufficientChips
		}
		if err := tx.Model(&user).Update("chips", user.Chips-buyIn).Error; err != nil {
			return err
		}

		member := model.RoomMember{
			RoomID: room.ID,
			UserID: userID,
			Chips:  buyIn,
			BuyIn:  buyIn,
		}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}

		details, err = s.roomDetailsTx(tx, room)
		return err
	})
	if err != nil {
		return nil, err
	}
	return details, nil
}

// LeaveRoom credits the member's remaining stack back to their global
// balance and removes the seat. A user with no seat is a no-op that returns
// the current room view. Returns (nil, nil) when the room dissolved.
func (s *Service) LeaveRoom(ctx context.Context, roomID, userID int64) (*RoomDetails, error) {
	var details *RoomDetails
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room model.Room
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&room, roomID).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return appErr.ErrRoomNotFound
			}
			return err
		}

		var member model.RoomMember
		err = tx.Where("room_id = ? AND user_id = ?", roomID, userID).First(&member).Error
		if err == gorm.ErrRecordNotFound {
			details, err = s.roomDetailsTx(tx, room)
			return err
		}
		if err != nil {
			return err
		}

		if err := tx.Model(&model.User{}).Where("id = ?", userID).
			Update("chips", gorm.Expr("chips + ?", member.Chips)).Error; err != nil {
			return err
		}
		if err := tx.Delete(&member).Error; err != nil {
			return err
		}

		var remaining []model.RoomMember
		if err := tx.Where("room_id = ?", roomID).
			Order("created_at ASC, id ASC").Find(&remaining).Error; err != nil {
			return err
		}
		if len(remaining) == 0 {
			if err := tx.Delete(&room).Error; err != nil {
				return err
			}
			details = nil
			return nil
		}

		hasHost := false
		for _, m := range remaining {
			if m.IsHost {
				hasHost = true
				break
			}
		}
		if !hasHost {
			if err := tx.Model(&remaining[0]).Update("is_host", true).Error; err != nil {
				return err
			}
			logger.Log.Info("host re-elected",
				zap.Int64("roomID", roomID),
				zap.Int64("newHostUserID", remaining[0].UserID),
			)
		}

		details, err = s.roomDetailsTx(tx, room)
		return err
	})
	if err != nil {
		return nil, err
	}
	return details, nil
}

// GetRoomDetails returns the room snapshot with members in seating order.
func (s *Service) GetRoomDetails(ctx context.Context, roomID int64) (*RoomDetails, error) {
	var room model.Room
	err := s.db.WithContext(ctx).First(&room, roomID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, appErr.ErrRoomNotFound
		}
		return nil, err
	}
	return s.roomDetailsTx(s.db.WithContext(ctx), room)
}

func (s *Service) GetRoomByCode(ctx context.Context, code string) (*RoomDetails, error) {
	var room model.Room
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&room).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, appErr.ErrRoomNotFound
		}
		return nil, err
	}
	return s.roomDetailsTx(s.db.WithContext(ctx), room)
}

// ListActiveRooms lists open rooms, most recent first, annotated with live
// member count and buy-in range.
func (s *Service) ListActiveRooms(ctx context.Context) ([]RoomSummary, error) {
	var rooms []model.Room
	if err := s.db.WithContext(ctx).Where("active = ?", true).
		Order("created_at DESC").Find(&rooms).Error; err != nil {
		return nil, err
	}

	summaries := make([]RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		var count int64
		if err := s.db.WithContext(ctx).Model(&model.RoomMember{}).
			Where("room_id = ?", room.ID).Count(&count).Error; err != nil {
			return nil, err
		}
		summaries = append(summaries, RoomSummary{
			ID:          room.ID,
			Code:        room.Code,
			Name:        room.Name,
			MaxPlayers:  room.MaxPlayers,
			SmallBlind:  room.SmallBlind,
			BigBlind:    room.BigBlind,
			PlayerCount: count,
			BuyInRange:  s.BuyInRangeFor(room.BigBlind),
		})
	}
	return summaries, nil
}

type memberJoinRow struct {
	ID        int64
	UserID    int64
	IsHost    bool
	Chips     int64
	BuyIn     int64
	CreatedAt time.Time
	Username  string
}

func (s *Service) roomDetailsTx(tx *gorm.DB, room model.Room) (*RoomDetails, error) {
	var rows []memberJoinRow
	err := tx.Table("room_members").
		Select("room_members.id, room_members.user_id, room_members.is_host, room_members.chips, room_members.buy_in, room_members.created_at, users.username").
		Joins("JOIN users ON users.id = room_members.user_id").
		Where("room_members.room_id = ?", room.ID).
		Order("room_members.created_at ASC, room_members.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	details := &RoomDetails{
		ID:         room.ID,
		Code:       room.Code,
		Name:       room.Name,
		MaxPlayers: room.MaxPlayers,
		SmallBlind: room.SmallBlind,
		BigBlind:   room.BigBlind,
		BuyInRange: s.BuyInRangeFor(room.BigBlind),
	}
	for _, row := range rows {
		details.Members = append(details.Members, MemberDetails{
			MemberID: row.ID,
			UserID:   row.UserID,
			Username: row.Username,
			IsHost:   row.IsHost,
			Chips:    row.Chips,
			BuyIn:    row.BuyIn,
			JoinedAt: row.CreatedAt,
		})
	}
	return details, nil
}

func (s *Service) uniqueRoomCode(tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < codeRetryLimit; attempt++ {
		code := random.RoomCode(s.cfg.RoomCodeLength)
		var count int64
		if err := tx.Model(&model.Room{}).Where("code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique room code")
}
