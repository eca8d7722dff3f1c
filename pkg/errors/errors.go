package errors

import "errors"

// Auth / identity
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrUserNotFound       = errors.New("user not found")
)

// Room / ledger
var (
	ErrInvalidBlinds     = errors.New("big blind must be greater than small blind and both positive")
	ErrBuyInOutOfRange   = errors.New("buy-in outside the allowed range for this room")
	ErrInsufficientChips = errors.New("insufficient chips to cover the buy-in")
	ErrRoomNotFound      = errors.New("room not found or inactive")
	ErrRoomFull          = errors.New("room is full")
	ErrNotAMember        = errors.New("you are not part of this room")
)

// Betting
var (
	ErrHandInProgress   = errors.New("a hand is already in progress")
	ErrNotEnoughPlayers = errors.New("at least two seated players are required")
	ErrNotYourTurn      = errors.New("not your turn to act")
	ErrPlayerFolded     = errors.New("player has folded")
	ErrPlayerAllIn      = errors.New("player is all-in")
	ErrCannotCheck      = errors.New("cannot check facing a bet")
	ErrNoBetToCall      = errors.New("there is no bet to call")
	ErrRaiseTooLow      = errors.New("raise must exceed the current bet")
	ErrAmountRequired   = errors.New("amount is required for this action")
	ErrNegativeAmount   = errors.New("amount must be positive")
	ErrNoActiveHand     = errors.New("no hand in progress")
)
