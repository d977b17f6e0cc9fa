package availability

import (
	"errors"
	"time"
)

var (
	ErrStartInPast    = errors.New("start date cannot be in the past")
	ErrEndBeforeStart = errors.New("end date must be after start date")
)

// ValidateWindow applies the rules every caller of Check enforces on a
// requested window. A start anywhere on the current UTC day is accepted.
func ValidateWindow(start, end, now time.Time) error {
	today := now.UTC().Truncate(24 * time.Hour)
	if start.Before(today) {
		return ErrStartInPast
	}
	if !end.After(start) {
		return ErrEndBeforeStart
	}
	return nil
}
