// Package repository provides the persistence layer for seats, tickets,
// events and users.  Two interchangeable implementations exist: MySQL
// repositories for production and mutex-guarded in-memory stores used
// by tests and single-node deployments.  The sentinel errors defined
// here let handlers and services distinguish failure classes without
// inspecting driver-specific errors.
//
// The taxonomy follows three bands: contention errors (ErrSeatUnavailable,
// ErrSeatNotHeld) are expected under normal load and are not logged as
// failures; lifecycle errors surface business-rule violations verbatim
// to the caller; integrity errors (ErrDuplicateSeat, ErrDuplicateToken)
// must never occur while the atomic seat operations hold and indicate a
// fault requiring operator intervention.
package repository

import "errors"

// Contention errors.
var (
	// ErrSeatUnavailable is returned by Claim when the seat is held by
	// someone else or already booked.  Under N concurrent claims for
	// one seat, N-1 callers receive this error.
	ErrSeatUnavailable = errors.New("seat unavailable")

	// ErrSeatNotHeld is returned by Confirm when the seat is not
	// currently in the HELD state.
	ErrSeatNotHeld = errors.New("seat not held")
)

// Not-found errors.
var (
	ErrSeatNotFound   = errors.New("seat not found")
	ErrEventNotFound  = errors.New("event not found")
	ErrTicketNotFound = errors.New("ticket not found")
	ErrTokenNotFound  = errors.New("token not found")
)

// Integrity errors.  These indicate corrupted invariants, not
// retryable conditions.
var (
	ErrDuplicateSeat  = errors.New("duplicate seat key")
	ErrDuplicateToken = errors.New("duplicate entry token")
)

// ErrEmailExists is returned when registering an email that is already
// taken.
var ErrEmailExists = errors.New("email already exists")
