package service

import (
	"pokermates/internal/config"
	"pokermates/internal/service/auth"
	"pokermates/internal/service/game"
	"pokermates/internal/service/ledger"
	"pokermates/internal/service/table"
	"pokermates/internal/service/user"
	"pokermates/pkg/monitor"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	Auth        *auth.Service
	User        *user.Service
	Ledger      *ledger.Service
	Game        *game.Service
	Coordinator *table.Coordinator
	Metrics     *monitor.Metrics
}

func NewContainer(db *gorm.DB, rdb *redis.Client) *Container {
	gameCfg := config.GlobalConfig.Game
	ledgerSvc := ledger.NewService(db, ledger.Config{
		MinBuyInBB:        gameCfg.MinBuyInBB,
		MaxBuyInBB:        gameCfg.MaxBuyInBB,
		RoomCodeLength:    gameCfg.RoomCodeLength,
		DefaultMaxPlayers: gameCfg.DefaultMaxPlayers,
	})
	gameSvc := game.NewService(db)
	metrics := monitor.NewMetrics("pokermates")

	return &Container{
		Auth:        auth.NewService(db, rdb),
		User:        user.NewService(db),
		Ledger:      ledgerSvc,
		Game:        gameSvc,
		Coordinator: table.NewCoordinator(ledgerSvc, gameSvc, table.WithMetrics(metrics)),
		Metrics:     metrics,
	}
}
