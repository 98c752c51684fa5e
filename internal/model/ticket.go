package model

import "time"

// Ticket statuses as stored in the `tickets.status` column.  Status is
// monotonic except for the explicit CANCELLED escape from RESERVED and
// ACTIVE.  USED and CANCELLED are terminal.
const (
	TicketReserved  = "RESERVED"
	TicketActive    = "ACTIVE"
	TicketCancelled = "CANCELLED"
	TicketUsed      = "USED"
)

// Payment statuses as stored in the `tickets.payment_status` column.
const (
	PaymentPending   = "PENDING"
	PaymentCompleted = "COMPLETED"
	PaymentFailed    = "FAILED"
	PaymentRefunded  = "REFUNDED"
)

// Entry token kinds.  ActiveToken records which token a gate scanner is
// expected to present next.
const (
	TokenPrimary   = "PRIMARY"
	TokenSecondary = "SECONDARY"
)

// Ticket records a user's purchase of a single seat for an event.  It
// is created in the RESERVED state together with the seat hold and
// becomes ACTIVE on payment.  The two entry tokens are minted once at
// confirmation and never change afterwards.
//
// Fields:
//  ID                 – UUID identifier.
//  HolderID           – user who owns the ticket.
//  EventID            – event the ticket admits to.
//  Zone, Area         – seat position within the event.
//  PriceCents         – price paid, in cents.
//  Status             – RESERVED, ACTIVE, CANCELLED or USED.
//  PaymentStatus      – PENDING, COMPLETED, FAILED or REFUNDED.
//  HoldExpiresAt      – reservation deadline (set only while RESERVED).
//  TokenPrimary       – first entry token (gate scan).
//  TokenSecondary     – second entry token (seating-block scan).
//  TokenImagePrimary  – QR data URI for the primary token.
//  TokenImageSecondary– QR data URI for the secondary token.
//  ActiveToken        – which token is next expected (PRIMARY/SECONDARY).
//  ScannedPrimaryAt   – when the primary token was scanned (nullable).
//  ScannedSecondaryAt – when the secondary token was scanned (nullable).
//  PaymentRef         – external payment transaction id (nullable).
//  CreatedAt          – creation timestamp.
//  UpdatedAt          – last update timestamp.
type Ticket struct {
	ID                  string     // tickets.id (UUID)
	HolderID            uint64     // tickets.holder_id
	EventID             uint64     // tickets.event_id
	Zone                string     // tickets.zone
	Area                string     // tickets.area
	PriceCents          uint32     // tickets.price_cents
	Status              string     // tickets.status
	PaymentStatus       string     // tickets.payment_status
	HoldExpiresAt       *time.Time // tickets.hold_expires_at (nullable)
	TokenPrimary        string     // tickets.token_primary
	TokenSecondary      string     // tickets.token_secondary
	TokenImagePrimary   string     // tickets.token_image_primary (data URI)
	TokenImageSecondary string     // tickets.token_image_secondary (data URI)
	ActiveToken         string     // tickets.active_token
	ScannedPrimaryAt    *time.Time // tickets.scanned_primary_at (nullable)
	ScannedSecondaryAt  *time.Time // tickets.scanned_secondary_at (nullable)
	PaymentRef          *string    // tickets.payment_ref (nullable)
	CreatedAt           time.Time  // tickets.created_at
	UpdatedAt           time.Time  // tickets.updated_at
}

// Open reports whether the ticket still occupies its seat: a ticket in
// RESERVED or ACTIVE state blocks any further booking of the same
// event by the same holder.
func (t Ticket) Open() bool {
	return t.Status == TicketReserved || t.Status == TicketActive
}

// HoldLapsed reports whether the reservation deadline has passed
// without payment.  Only RESERVED tickets carry a deadline.
func (t Ticket) HoldLapsed(now time.Time) bool {
	return t.Status == TicketReserved &&
		t.HoldExpiresAt != nil &&
		now.After(*t.HoldExpiresAt)
}

// TicketSummary is the read model returned by entry-token
// verification.  It exposes just enough for a gate scanner or support
// operator to decide whether to admit the holder.
type TicketSummary struct {
	TicketID           string     `json:"ticket_id"`
	HolderID           uint64     `json:"holder_id"`
	EventID            uint64     `json:"event_id"`
	Zone               string     `json:"zone"`
	Area               string     `json:"area"`
	Status             string     `json:"status"`
	PaymentStatus      string     `json:"payment_status"`
	ActiveToken        string     `json:"active_token"`
	ScannedPrimaryAt   *time.Time `json:"scanned_primary_at,omitempty"`
	ScannedSecondaryAt *time.Time `json:"scanned_secondary_at,omitempty"`
	Used               bool       `json:"used"`
}

// Summary builds the verification read model for the ticket.
func (t Ticket) Summary() TicketSummary {
	return TicketSummary{
		TicketID:           t.ID,
		HolderID:           t.HolderID,
		EventID:            t.EventID,
		Zone:               t.Zone,
		Area:               t.Area,
		Status:             t.Status,
		PaymentStatus:      t.PaymentStatus,
		ActiveToken:        t.ActiveToken,
		ScannedPrimaryAt:   t.ScannedPrimaryAt,
		ScannedSecondaryAt: t.ScannedSecondaryAt,
		Used:               t.Status == TicketUsed,
	}
}
