package model

import "time"

// Seat states as stored in the `seats.state` column.  A seat moves
// AVAILABLE -> HELD -> BOOKED, or back to AVAILABLE when a hold lapses
// or a booking is cancelled.
const (
	SeatAvailable = "AVAILABLE"
	SeatHeld      = "HELD"
	SeatBooked    = "BOOKED"
)

// Seat is the smallest allocatable unit of event capacity.  A seat is
// uniquely identified by (EventID, Zone, Area).  HolderID and
// HoldExpiresAt are set only while the seat is HELD; TicketID is set
// only once the seat is BOOKED.
//
// Fields:
//  ID            – primary key identifier.
//  EventID       – event to which the seat belongs.
//  Zone          – stadium zone (Red, Yellow, ...).
//  Area          – area code within the zone.
//  State         – AVAILABLE, HELD or BOOKED.
//  HolderID      – user holding the seat (nullable).
//  HoldExpiresAt – when the hold lapses (nullable).
//  TicketID      – confirmed ticket occupying the seat (nullable).
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Seat struct {
	ID            uint64     // seats.id
	EventID       uint64     // seats.event_id
	Zone          string     // seats.zone
	Area          string     // seats.area
	State         string     // seats.state
	HolderID      *uint64    // seats.holder_id (nullable)
	HoldExpiresAt *time.Time // seats.hold_expires_at (nullable)
	TicketID      *string    // seats.ticket_id (nullable)
	CreatedAt     time.Time  // seats.created_at
	UpdatedAt     time.Time  // seats.updated_at
}

// HoldLapsed reports whether the seat carries a hold that has expired
// without being confirmed.  Booked seats are never considered lapsed
// because confirmation clears the expiry and binds a ticket.
func (s Seat) HoldLapsed(now time.Time) bool {
	return s.State == SeatHeld &&
		s.HoldExpiresAt != nil &&
		now.After(*s.HoldExpiresAt) &&
		s.TicketID == nil
}

// SeatRef identifies a seat position within an event.
type SeatRef struct {
	Zone string `json:"zone"`
	Area string `json:"area"`
}
