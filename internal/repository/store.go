package repository

import (
	"context"
	"time"

	"github.com/iliyamo/stadium-ticket-reservation/internal/model"
)

// SeatStore exposes the atomic per-seat primitives the rest of the
// system builds on.  Claim, Confirm and Release are the only mutation
// points for seat state and each must be a single indivisible
// conditional update: implementations compare the current state as part
// of the write itself, never as a separate read followed by a write.
type SeatStore interface {
	// Claim transitions the seat AVAILABLE -> HELD for holderID with
	// the given hold TTL.  A seat whose previous hold has lapsed
	// (expired, no bound ticket) is treated as AVAILABLE within the
	// same atomic step.  At most one of N concurrent claims succeeds;
	// the rest fail with ErrSeatUnavailable.
	Claim(ctx context.Context, eventID uint64, zone, area string, holderID uint64, ttl time.Duration) (model.Seat, error)

	// Confirm transitions the seat HELD -> BOOKED and binds ticketID.
	// The hold must belong to holderID: a hold that lapsed and was
	// reclaimed by someone else between the caller's checks and this
	// write fails with ErrSeatNotHeld instead of booking the new
	// holder's seat out from under them.
	Confirm(ctx context.Context, eventID uint64, zone, area string, holderID uint64, ticketID string) (model.Seat, error)

	// Release transitions a HELD or BOOKED seat back to AVAILABLE,
	// clearing holder and ticket references.  Releasing an AVAILABLE
	// seat is a no-op success.
	Release(ctx context.Context, eventID uint64, zone, area string) (model.Seat, error)

	// ReleaseLapsed frees the seat only if it is still HELD with a
	// hold that lapsed before now and no bound ticket, reporting
	// whether it released anything.  The condition is checked inside
	// the same atomic step as the write, so a fresh claim that landed
	// after the caller observed the lapse is left untouched.
	ReleaseLapsed(ctx context.Context, eventID uint64, zone, area string, now time.Time) (bool, error)

	// ListAvailable returns the currently available seat positions for
	// the event, optionally filtered by zone, sorted by zone then area.
	ListAvailable(ctx context.Context, eventID uint64, zone string) ([]model.SeatRef, error)

	// ExpiredHeld returns seats whose hold has lapsed before now and
	// that carry no bound ticket.  Used by the expiry sweeper.
	ExpiredHeld(ctx context.Context, now time.Time) ([]model.Seat, error)

	// CountAvailable counts seats in the AVAILABLE state for the event.
	CountAvailable(ctx context.Context, eventID uint64) (uint32, error)

	// CreateBulk seeds seats for a new event.  Fails with
	// ErrDuplicateSeat when a (event, zone, area) key already exists.
	CreateBulk(ctx context.Context, seats []model.Seat) error
}

// TicketStore persists tickets and answers the lookups the lifecycle
// engine and the token verifier need.
type TicketStore interface {
	Create(ctx context.Context, t *model.Ticket) error
	GetByID(ctx context.Context, id string) (model.Ticket, error)

	// Update persists all mutable ticket fields.  Fails with
	// ErrDuplicateToken if a token value collides with another ticket.
	Update(ctx context.Context, t *model.Ticket) error

	// FindOpen returns the holder's RESERVED or ACTIVE ticket for the
	// event, or nil when none exists.  Backs the one-open-ticket-per-
	// holder-per-event invariant.
	FindOpen(ctx context.Context, holderID, eventID uint64) (*model.Ticket, error)

	// FindByToken locates the ticket owning the given entry token and
	// reports which field matched (model.TokenPrimary or
	// model.TokenSecondary).  Fails with ErrTokenNotFound.
	FindByToken(ctx context.Context, token string) (model.Ticket, string, error)

	// FindReservedBySeat returns the RESERVED ticket bound to the seat
	// position, or nil.  Used by the sweeper to cancel tickets whose
	// hold lapsed.
	FindReservedBySeat(ctx context.Context, eventID uint64, zone, area string) (*model.Ticket, error)
}

// EventStore persists event metadata and the derived available-seat
// count.
type EventStore interface {
	Create(ctx context.Context, e *model.Event) error
	GetByID(ctx context.Context, id uint64) (model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
	UpdateStatus(ctx context.Context, id uint64, status string) error

	// SetSeatCounts stores the recomputed totals.  The available count
	// is always derived from the seat store, never adjusted in place.
	SetSeatCounts(ctx context.Context, id uint64, total, available uint32) error
}
