package errors

import "errors"

var (
	ErrNotFound = errors.New("package booking not found")

	ErrInvalidID = errors.New("invalid package booking ID format")

	// ErrNotCancellable is returned when the booking was cancelled or
	// completed between the read and the cancel.
	ErrNotCancellable = errors.New("package booking can no longer be cancelled")
)
