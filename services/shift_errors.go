package services

import (
	"errors"
	"fmt"

	"taxi-shifts/models"
)

// Expected business conditions. Callers turn them into driver-facing replies.
var (
	ErrAlreadyWorking = errors.New("shift already open")
	ErrNotWorking     = errors.New("no active shift")
	ErrInvalidAmount  = errors.New("invalid cash amount")
	ErrNoPendingShift = errors.New("no shift awaiting cash input")
)

// ErrStoreUnavailable wraps every store or connectivity failure. In-memory state is not
// advanced when it is returned.
var ErrStoreUnavailable = errors.New("shift store unavailable")

// IsBusinessError reports whether err is one of the expected business conditions.
func IsBusinessError(err error) bool {
	return errors.Is(err, ErrAlreadyWorking) ||
		errors.Is(err, ErrNotWorking) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrNoPendingShift)
}

func storeError(op Operation, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

func isConflict(err error) bool {
	return errors.Is(err, models.ErrShiftConflict) || errors.Is(err, models.ErrShiftNotFound)
}
