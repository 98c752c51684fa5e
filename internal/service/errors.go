package service

import "errors"

// Booking and lifecycle failures surfaced to handlers.  Handlers map
// these onto HTTP statuses; everything else is treated as internal.
var (
	ErrEventNotBookable = errors.New("event is not open for booking")
	ErrAlreadyBooked    = errors.New("holder already has an open ticket for this event")
	ErrHoldExpired      = errors.New("seat hold has expired")
	ErrPaymentDeclined  = errors.New("payment was declined")
	ErrNotTicketHolder  = errors.New("ticket belongs to another holder")
	ErrTicketClosed     = errors.New("ticket is no longer open")

	// Entry verification failures.  Each one is a distinct refusal
	// reason so gate staff see why a pass was rejected.
	ErrTicketNotActive   = errors.New("ticket is not active")
	ErrTicketUsed        = errors.New("ticket was already used")
	ErrPaymentIncomplete = errors.New("ticket payment is not completed")
	ErrAlreadyScanned    = errors.New("token was already scanned")
	ErrOutOfOrder        = errors.New("secondary token presented before primary was scanned")
)
