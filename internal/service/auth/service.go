package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pokermates/internal/config"
	"pokermates/internal/model"
	pkgAuth "pokermates/pkg/auth"
	appErr "pokermates/pkg/errors"
	"pokermates/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Service struct {
	db         *gorm.DB
	rdb        *redis.Client
	sessionTTL time.Duration
}

type LoginResult struct {
	Token    string    `json:"token"`
	ExpireAt time.Time `json:"expireAt"`
	UserID   int64     `json:"userId,string"`
	Username string    `json:"username"`
	Chips    int64     `json:"chips"`
}

func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		db:         db,
		rdb:        rdb,
		sessionTTL: 24 * time.Hour,
	}
}

// Register creates an account with the configured starting chip grant and
// logs it in.
func (s *Service) Register(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(password) < 6 {
		return nil, appErr.ErrInvalidCredentials
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).
		Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, appErr.ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := model.User{
		Username:     username,
		PasswordHash: string(hash),
		Chips:        config.GlobalConfig.Game.StartingChips,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}

	logger.Log.Info("user registered",
		zap.Int64("userID", user.ID),
		zap.String("username", username),
	)
	return s.issueToken(ctx, user)
}

func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, appErr.ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, appErr.ErrInvalidCredentials
	}
	return s.issueToken(ctx, user)
}

func (s *Service) issueToken(ctx context.Context, user model.User) (*LoginResult, error) {
	token, err := pkgAuth.GenerateToken(user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	expireAt := time.Now().Add(time.Duration(config.GlobalConfig.JWT.Expire) * time.Hour)

	if s.rdb != nil {
		if err := s.rdb.Set(ctx, buildSessionKey(user.ID), user.Username, s.sessionTTL).Err(); err != nil {
			logger.Log.Warn("failed to record session", zap.Int64("userID", user.ID), zap.Error(err))
		}
	}

	return &LoginResult{
		Token:    token,
		ExpireAt: expireAt,
		UserID:   user.ID,
		Username: user.Username,
		Chips:    user.Chips,
	}, nil
}

func buildSessionKey(userID int64) string {
	return fmt.Sprintf("session:user:%d", userID)
}
