package domain

import "errors"

// Sentinel errors shared by services and the HTTP layer.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidDate is returned when an event date is less than MinScheduleLead away.
	ErrInvalidDate = errors.New("event date must be at least one day in the future")

	// ErrDuplicateApplication is returned when the user already holds a non-deleted application for the event.
	ErrDuplicateApplication = errors.New("you have already applied")

	ErrEventCancelled = errors.New("event is cancelled")
	ErrEventClosed    = errors.New("event has already taken place")

	// ErrDeleteBlocked is matched by every *DeleteBlockedError.
	ErrDeleteBlocked = errors.New("delete blocked")

	// ErrLockTimeout is returned by repositories when a row lock could not be acquired in time
	// or the transaction lost a deadlock/serialization race. Services retry it.
	ErrLockTimeout = errors.New("lock not available")

	// ErrTransient is returned once retries of ErrLockTimeout are exhausted.
	ErrTransient = errors.New("temporarily unavailable, please retry")
)

// DeleteBlockedError carries the user-facing reason a soft delete was refused.
type DeleteBlockedError struct {
	Reason string
}

func (e *DeleteBlockedError) Error() string {
	return "delete blocked: " + e.Reason
}

func (e *DeleteBlockedError) Is(target error) bool {
	return target == ErrDeleteBlocked
}
