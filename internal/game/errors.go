package game

import "errors"

var (
	ErrMatchNotFound      = errors.New("match not found")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrMatchNotInProgress = errors.New("match is not in progress")
	ErrShotRejected       = errors.New("shot rejected: aim first and wait for the balls to stop")
	ErrInvalidPIN         = errors.New("invalid PIN")
	ErrMatchFull          = errors.New("match is full")
	ErrUnknownPlayer      = errors.New("player is not in this match")
)
