package user

import (
	"context"

	"pokermates/internal/model"
	appErr "pokermates/pkg/errors"

	"gorm.io/gorm"
)

type Service struct {
	db *gorm.DB
}

// Profile is the public view of an account: identity plus the global chip
// balance held outside any room.
type Profile struct {
	UserID   int64  `json:"userId,string"`
	Username string `json:"username"`
	Chips    int64  `json:"chips"`
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, appErr.ErrUserNotFound
		}
		return nil, err
	}
	return &Profile{
		UserID:   user.ID,
		Username: user.Username,
		Chips:    user.Chips,
	}, nil
}

// GetBalance returns only the global chip count, cheaper than a full
// profile when the caller is sizing a buy-in.
func (s *Service) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Select("chips").First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, appErr.ErrUserNotFound
		}
		return 0, err
	}
	return user.Chips, nil
}
