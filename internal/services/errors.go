package services

import "errors"

var (
	// ErrLedgerUnavailable is returned when the activity ledger cannot be
	// read. The persisted trust level is left untouched (never silently
	// demote) and the caller may retry.
	ErrLedgerUnavailable = errors.New("activity ledger unavailable")

	// ErrInvalidTransition is returned when a review item is resolved from
	// a non-pending status, e.g. a double resolve. Terminal, never retried.
	ErrInvalidTransition = errors.New("invalid review state transition")

	// ErrInvalidInput marks a caller data error, e.g. a rejection without
	// a reason. Terminal, never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrItemNotFound is returned when a review item id does not exist.
	ErrItemNotFound = errors.New("review item not found")

	// ErrEventNotFound is returned when replaying an unknown event id.
	ErrEventNotFound = errors.New("event not found")

	// ErrNotificationFailed wraps webhook delivery failures. The state
	// change it follows is never rolled back.
	ErrNotificationFailed = errors.New("notification delivery failed")
)

// IsTerminal reports whether err indicates a caller logic/data error that
// must be surfaced immediately rather than retried.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrItemNotFound)
}
