package game

import (
	"errors"
	"fmt"
)

var (
	ErrProfileNotFound     = errors.New("profile not found")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrConcurrentEncounter = errors.New("player already has a battle in progress")
	ErrInputTimeout        = errors.New("timed out waiting for input")
	ErrEncounterSettled    = errors.New("encounter already finished")
	ErrAlreadySettled      = errors.New("escrow already settled or refunded")
	ErrEscrowNotFound      = errors.New("escrow not found")
	ErrNotSeated           = errors.New("player is not seated at this machine")
	ErrSeatTaken           = errors.New("seat is occupied")
	ErrAlreadySeated       = errors.New("player already occupies a seat")
	ErrInvalidSeat         = errors.New("no such seat")
	ErrCaptchaLocked       = errors.New("captcha verification pending")
	ErrNoEquippedPet       = errors.New("no equipped pet")
	ErrTowerNotStarted     = errors.New("battle tower not started")
	ErrInvalidWager        = errors.New("wager must not be negative")
	ErrSelfBattle          = errors.New("cannot battle yourself")
)

// IOError wraps a Profile Store or presentation failure. Callers treat it
// as fatal to the current action.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *IOError) Unwrap() error { return e.Err }

// WrapIO returns nil for a nil err, otherwise an *IOError for op.
func WrapIO(op string, err error) error {
	if err == nil {
		return nil
	}
	var ioe *IOError
	if errors.As(err, &ioe) {
		return err
	}
	return &IOError{Op: op, Err: err}
}
