package game

import (
	"context"
	"encoding/json"
	"time"

	"pokermates/internal/model"
	appErr "pokermates/pkg/errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecordHandStart writes the durable Hand and PlayerHand rows for a freshly
// dealt hand and returns the hand id. The in-memory state machine stays
// authoritative until RecordHandComplete.
func (s *Service) RecordHandStart(ctx context.Context, h *Hand) (int64, error) {
	now := time.Now()
	record := model.Hand{
		RoomID:    h.RoomID(),
		Status:    string(h.Street()),
		Pot:       h.Pot(),
		CreatedAt: now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		for _, seat := range h.Seats() {
			ph := model.PlayerHand{
				HandID:    record.ID,
				UserID:    seat.UserID,
				Cards:     mustJSON(cardStrings(seat.Cards[:])),
				CreatedAt: now,
			}
			if err := tx.Create(&ph).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return record.ID, nil
}

// RecordHandComplete finalizes the archive row and writes the seats' final
// stacks back to their RoomMember records in one transaction. Seats whose
// member row vanished mid-hand (explicit leave) were already flushed by the
// coordinator, so a zero-row update there is not an error.
func (s *Service) RecordHandComplete(ctx context.Context, handID int64, h *Hand) error {
	now := time.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record model.Hand
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&record, handID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return appErr.ErrNoActiveHand
			}
			return err
		}

		record.Status = string(StreetComplete)
		record.Pot = h.Pot()
		record.Community = mustJSON(cardStrings(h.Community()))
		record.Winners = mustJSON(h.Payouts())
		record.EndedAt = &now
		if err := tx.Save(&record).Error; err != nil {
			return err
		}

		for _, seat := range h.Seats() {
			updates := map[string]interface{}{
				"folded":      seat.Folded,
				"all_in":      seat.AllIn,
				"final_chips": seat.Stack,
				"net_chips":   seat.Net(),
			}
			if err := tx.Model(&model.PlayerHand{}).
				Where("hand_id = ? AND user_id = ?", handID, seat.UserID).
				Updates(updates).Error; err != nil {
				return err
			}
			if err := tx.Model(&model.RoomMember{}).
				Where("room_id = ? AND user_id = ?", h.RoomID(), seat.UserID).
				Update("chips", seat.Stack).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FlushSeatStack persists one seat's current stack, used when a player
// leaves while a hand is still running.
func (s *Service) FlushSeatStack(ctx context.Context, roomID, userID, stack int64) error {
	return s.db.WithContext(ctx).Model(&model.RoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Update("chips", stack).Error
}

func mustJSON(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("null")
	}
	return data
}
