package game

import "gorm.io/gorm"

// Service persists hand archives around the in-memory state machine.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}
