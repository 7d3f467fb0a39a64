package engine

import (
	"errors"

	"github.com/zucenko/losttreasure/model"
)

var (
	ErrInvalidMove    = errors.New("invalid move")
	ErrOutOfTurn      = errors.New("out of turn")
	ErrDesync         = errors.New("desync")
	ErrGameFinished   = errors.New("game finished")
	ErrNotStarted     = errors.New("game not started")
	ErrAlreadyStarted = errors.New("game already started")
	ErrGameFull       = errors.New("game full")
	ErrTooFewPlayers  = errors.New("not enough players")
)

// RejectOf maps an engine error to the code sent back in an ack.
func RejectOf(err error) model.RejectCode {
	switch {
	case err == nil:
		return model.RejectNone
	case errors.Is(err, ErrInvalidMove):
		return model.RejectInvalidMove
	case errors.Is(err, ErrOutOfTurn):
		return model.RejectOutOfTurn
	case errors.Is(err, ErrGameFinished):
		return model.RejectFinished
	case errors.Is(err, ErrDesync):
		return model.RejectDesync
	case errors.Is(err, ErrNotStarted):
		return model.RejectNotStarted
	}
	return model.RejectBadRequest
}

// ErrorOf rebuilds the sentinel for a reject code.
func ErrorOf(code model.RejectCode) error {
	switch code {
	case model.RejectNone:
		return nil
	case model.RejectInvalidMove:
		return ErrInvalidMove
	case model.RejectOutOfTurn:
		return ErrOutOfTurn
	case model.RejectFinished:
		return ErrGameFinished
	case model.RejectDesync:
		return ErrDesync
	case model.RejectNotStarted:
		return ErrNotStarted
	}
	return errors.New(string(code))
}
