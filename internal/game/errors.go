package game

import (
	"errors"
	"fmt"
)

var ErrRoomNotFound = errors.New("room not found")
var ErrRoomFull = errors.New("room is full")
var ErrNotHost = errors.New("only the host may do that")
var ErrDuplicateSubmission = errors.New("already submitted this round")
var ErrConfigInvalid = errors.New("invalid room settings")
var ErrValidation = errors.New("invalid payload")
var ErrWrongPhase = errors.New("not allowed in the current phase")
var ErrNotEnoughPlayers = errors.New("not enough players to start")

func configErr(field string, got, lo, hi int) error {
	return fmt.Errorf("%w: %s=%d outside [%d,%d]", ErrConfigInvalid, field, got, lo, hi)
}
