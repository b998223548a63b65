package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrConflict is returned when an operation would violate a storage
	// invariant, such as deleting a ticket type that has recorded sales.
	ErrConflict = errors.New("persistence: conflict")
	// ErrSoldOut is returned by ClaimTicket when the tier has no remaining
	// capacity.
	ErrSoldOut = errors.New("persistence: sold out")
)
