package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/stadium-ticket-reservation/internal/clock"
	"github.com/iliyamo/stadium-ticket-reservation/internal/model"
	"github.com/iliyamo/stadium-ticket-reservation/internal/notify"
	"github.com/iliyamo/stadium-ticket-reservation/internal/queue"
	"github.com/iliyamo/stadium-ticket-reservation/internal/repository"
)

// TicketService drives the ticket lifecycle: booking a seat, paying
// for it, cancelling and marking used.  Every path keeps the seat
// store and the ticket store consistent: the seat store is the source
// of truth for occupancy, the ticket for payment and entry state.
type TicketService struct {
	seats    repository.SeatStore
	tickets  repository.TicketStore
	events   repository.EventStore
	payments PaymentProcessor
	hub      *notify.Hub
	queue    *queue.Publisher
	clock    clock.Clock
	holdTTL  time.Duration
}

// NewTicketService wires the lifecycle engine.  The hub and publisher
// may be nil; notifications are then skipped.
func NewTicketService(
	seats repository.SeatStore,
	tickets repository.TicketStore,
	events repository.EventStore,
	payments PaymentProcessor,
	hub *notify.Hub,
	pub *queue.Publisher,
	clk clock.Clock,
	holdTTL time.Duration,
) *TicketService {
	return &TicketService{
		seats:    seats,
		tickets:  tickets,
		events:   events,
		payments: payments,
		hub:      hub,
		queue:    pub,
		clock:    clk,
		holdTTL:  holdTTL,
	}
}

// Book claims the seat for the holder and creates a RESERVED ticket
// with a payment deadline.  The seat claim is the contention point: of
// N concurrent bookings for the same seat exactly one passes, the rest
// get repository.ErrSeatUnavailable.  If the ticket row cannot be
// written after a successful claim, the claim is rolled back so the
// seat is not stranded.
func (s *TicketService) Book(ctx context.Context, holderID, eventID uint64, zone, area string) (model.Ticket, error) {
	now := s.clock.Now()

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return model.Ticket{}, err
	}
	if !event.Bookable(now) {
		return model.Ticket{}, ErrEventNotBookable
	}

	// One open ticket per holder per event.  A reservation whose hold
	// already lapsed does not count; it is cancelled here rather than
	// waiting for the sweeper.
	open, err := s.tickets.FindOpen(ctx, holderID, eventID)
	if err != nil {
		return model.Ticket{}, err
	}
	if open != nil {
		if !open.HoldLapsed(now) {
			return model.Ticket{}, ErrAlreadyBooked
		}
		open.Status = model.TicketCancelled
		open.PaymentStatus = model.PaymentFailed
		open.HoldExpiresAt = nil
		open.UpdatedAt = now
		if err := s.tickets.Update(ctx, open); err != nil {
			return model.Ticket{}, err
		}
	}

	seat, err := s.seats.Claim(ctx, eventID, zone, area, holderID, s.holdTTL)
	if err != nil {
		return model.Ticket{}, err
	}

	ticket := model.Ticket{
		ID:            uuid.NewString(),
		HolderID:      holderID,
		EventID:       eventID,
		Zone:          zone,
		Area:          area,
		PriceCents:    event.BasePriceCents,
		Status:        model.TicketReserved,
		PaymentStatus: model.PaymentPending,
		ActiveToken:   model.TokenPrimary,
		HoldExpiresAt: seat.HoldExpiresAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.tickets.Create(ctx, &ticket); err != nil {
		// Roll the claim back; a hold without a ticket would sit until
		// the TTL lapses for no reason.
		if _, rerr := s.seats.Release(ctx, eventID, zone, area); rerr != nil {
			log.Printf("[ticket] compensating release of %d/%s/%s failed: %v", eventID, zone, area, rerr)
		}
		return model.Ticket{}, err
	}

	s.notifySeat(ctx, notify.SeatHeld, eventID, zone, area, ticket.ID)
	return ticket, nil
}

// ConfirmPayment charges the holder and activates the ticket.  On
// success the seat moves to BOOKED, both entry tokens are minted and a
// confirmation message is published to the broker.  A lapsed hold is
// refused before any money moves; if the sweeper reclaimed the seat
// between the charge and the confirm, the charge is refunded.
func (s *TicketService) ConfirmPayment(ctx context.Context, holderID uint64, ticketID, method string) (model.Ticket, error) {
	now := s.clock.Now()

	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return model.Ticket{}, err
	}
	if holderID != 0 && t.HolderID != holderID {
		return model.Ticket{}, ErrNotTicketHolder
	}
	if t.Status != model.TicketReserved {
		return model.Ticket{}, ErrTicketClosed
	}
	if t.HoldLapsed(now) {
		if cerr := s.cancelLapsed(ctx, &t, now); cerr != nil {
			log.Printf("[ticket] cancel of lapsed ticket %s failed: %v", t.ID, cerr)
		}
		return model.Ticket{}, ErrHoldExpired
	}

	res, err := s.payments.Charge(ctx, t.PriceCents, method)
	if err != nil {
		return model.Ticket{}, err
	}
	if !res.Success {
		t.PaymentStatus = model.PaymentFailed
		t.UpdatedAt = now
		if uerr := s.tickets.Update(ctx, &t); uerr != nil {
			log.Printf("[ticket] recording declined payment for %s failed: %v", t.ID, uerr)
		}
		return model.Ticket{}, ErrPaymentDeclined
	}

	if _, err := s.seats.Confirm(ctx, t.EventID, t.Zone, t.Area, t.HolderID, t.ID); err != nil {
		// The hold lapsed during the charge and the seat was reclaimed,
		// by the sweeper or by another claimer.  Undo the charge and
		// close the ticket.
		if _, rerr := s.payments.Refund(ctx, res.TransactionID, res.AmountCents); rerr != nil {
			log.Printf("[ticket] refund of %s for lapsed ticket %s failed: %v", res.TransactionID, t.ID, rerr)
		}
		t.Status = model.TicketCancelled
		t.PaymentStatus = model.PaymentRefunded
		t.HoldExpiresAt = nil
		t.UpdatedAt = now
		if uerr := s.tickets.Update(ctx, &t); uerr != nil {
			log.Printf("[ticket] closing lapsed ticket %s failed: %v", t.ID, uerr)
		}
		return model.Ticket{}, ErrHoldExpired
	}

	t.Status = model.TicketActive
	t.PaymentStatus = model.PaymentCompleted
	t.PaymentRef = &res.TransactionID
	t.HoldExpiresAt = nil
	t.UpdatedAt = now
	if err := mintEntryTokens(&t, now); err != nil {
		return model.Ticket{}, s.unwindConfirm(ctx, t, res, err)
	}
	if err := s.tickets.Update(ctx, &t); err != nil {
		// The charge went through and the seat is BOOKED, but the
		// activation was never recorded.  Leaving it like this strands
		// the money: the stored ticket is still RESERVED with no
		// payment ref, so a retry would cancel it without refunding.
		return model.Ticket{}, s.unwindConfirm(ctx, t, res, err)
	}

	s.notifySeat(ctx, notify.SeatBooked, t.EventID, t.Zone, t.Area, t.ID)
	s.publishConfirmed(ctx, t, res.TransactionID, now)
	return t, nil
}

// Cancel closes an open ticket and frees its seat.  Completed payments
// are refunded; pending ones are marked failed.  Only the holder or an
// admin may cancel.
func (s *TicketService) Cancel(ctx context.Context, holderID uint64, ticketID string, admin bool) (model.Ticket, error) {
	now := s.clock.Now()

	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return model.Ticket{}, err
	}
	if !admin && t.HolderID != holderID {
		return model.Ticket{}, ErrNotTicketHolder
	}
	if !t.Open() {
		return model.Ticket{}, ErrTicketClosed
	}
	lapsed := t.HoldLapsed(now)

	if t.PaymentStatus == model.PaymentCompleted && t.PaymentRef != nil {
		if _, err := s.payments.Refund(ctx, *t.PaymentRef, t.PriceCents); err != nil {
			return model.Ticket{}, err
		}
		t.PaymentStatus = model.PaymentRefunded
	} else if t.PaymentStatus == model.PaymentPending {
		t.PaymentStatus = model.PaymentFailed
	}

	t.Status = model.TicketCancelled
	t.HoldExpiresAt = nil
	t.UpdatedAt = now
	if err := s.tickets.Update(ctx, &t); err != nil {
		return model.Ticket{}, err
	}

	// A lapsed hold may already belong to another claimer; release it
	// only if it is still this reservation's lapsed hold.
	if lapsed {
		if _, err := s.seats.ReleaseLapsed(ctx, t.EventID, t.Zone, t.Area, now); err != nil {
			log.Printf("[ticket] releasing seat %d/%s/%s after cancel failed: %v", t.EventID, t.Zone, t.Area, err)
		}
	} else if _, err := s.seats.Release(ctx, t.EventID, t.Zone, t.Area); err != nil {
		log.Printf("[ticket] releasing seat %d/%s/%s after cancel failed: %v", t.EventID, t.Zone, t.Area, err)
	}
	s.notifySeat(ctx, notify.SeatReleased, t.EventID, t.Zone, t.Area, t.ID)
	return t, nil
}

// MarkUsed closes an ACTIVE ticket manually.  Staff use it when a gate
// scanner is down and the holder was admitted by hand.
func (s *TicketService) MarkUsed(ctx context.Context, ticketID string) (model.Ticket, error) {
	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return model.Ticket{}, err
	}
	if t.Status == model.TicketUsed {
		return model.Ticket{}, ErrTicketUsed
	}
	if t.Status != model.TicketActive {
		return model.Ticket{}, ErrTicketNotActive
	}
	now := s.clock.Now()
	t.Status = model.TicketUsed
	t.UpdatedAt = now
	if err := s.tickets.Update(ctx, &t); err != nil {
		return model.Ticket{}, err
	}
	return t, nil
}

// Get fetches a ticket scoped to its holder.  Admins see any ticket.
func (s *TicketService) Get(ctx context.Context, holderID uint64, ticketID string, admin bool) (model.Ticket, error) {
	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return model.Ticket{}, err
	}
	if !admin && t.HolderID != holderID {
		return model.Ticket{}, repository.ErrTicketNotFound
	}
	return t, nil
}

// unwindConfirm compensates a confirmed seat whose activation could
// not be recorded: the charge is refunded and the seat released, so a
// retry starts from a clean reservation instead of a seat bound to an
// unpaid ticket.  Compensation failures are logged with the
// transaction id so the stranded charge can be chased by hand.
func (s *TicketService) unwindConfirm(ctx context.Context, t model.Ticket, res PaymentResult, cause error) error {
	log.Printf("[ticket] activation of %s failed, unwinding transaction %s: %v", t.ID, res.TransactionID, cause)
	if _, err := s.payments.Refund(ctx, res.TransactionID, res.AmountCents); err != nil {
		log.Printf("[ticket] refund of stranded transaction %s for ticket %s failed: %v", res.TransactionID, t.ID, err)
	}
	if _, err := s.seats.Release(ctx, t.EventID, t.Zone, t.Area); err != nil {
		log.Printf("[ticket] releasing seat %d/%s/%s after failed activation of %s failed: %v", t.EventID, t.Zone, t.Area, t.ID, err)
	}
	return cause
}

// cancelLapsed closes a reservation whose payment deadline passed and
// frees the seat.  The release is conditional: if another user already
// reclaimed the lapsed hold, their fresh hold stays untouched.
func (s *TicketService) cancelLapsed(ctx context.Context, t *model.Ticket, now time.Time) error {
	t.Status = model.TicketCancelled
	t.PaymentStatus = model.PaymentFailed
	t.HoldExpiresAt = nil
	t.UpdatedAt = now
	if err := s.tickets.Update(ctx, t); err != nil {
		return err
	}
	released, err := s.seats.ReleaseLapsed(ctx, t.EventID, t.Zone, t.Area, now)
	if err != nil {
		return err
	}
	if released {
		s.notifySeat(ctx, notify.SeatReleased, t.EventID, t.Zone, t.Area, t.ID)
	}
	return nil
}

// notifySeat recomputes the event's available count, persists it and
// fans the change out to stream subscribers.  Failures are logged and
// swallowed; notification is best-effort.
func (s *TicketService) notifySeat(ctx context.Context, kind string, eventID uint64, zone, area, ticketID string) {
	available := s.syncAvailableSeats(ctx, eventID)
	if s.hub == nil {
		return
	}
	s.hub.Publish(notify.Message{
		Kind:           kind,
		EventID:        eventID,
		Zone:           zone,
		Area:           area,
		TicketID:       ticketID,
		AvailableSeats: available,
		At:             s.clock.Now(),
	})
}

// syncAvailableSeats recomputes the derived available-seat count from
// the seat store and writes it back to the event row.
func (s *TicketService) syncAvailableSeats(ctx context.Context, eventID uint64) uint32 {
	available, err := s.seats.CountAvailable(ctx, eventID)
	if err != nil {
		log.Printf("[ticket] counting available seats for event %d failed: %v", eventID, err)
		return 0
	}
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		log.Printf("[ticket] loading event %d failed: %v", eventID, err)
		return available
	}
	if err := s.events.SetSeatCounts(ctx, eventID, event.TotalSeats, available); err != nil {
		log.Printf("[ticket] updating seat counts for event %d failed: %v", eventID, err)
	}
	return available
}

// publishConfirmed sends the confirmation message to the broker.
func (s *TicketService) publishConfirmed(ctx context.Context, t model.Ticket, txnID string, now time.Time) {
	event, err := s.events.GetByID(ctx, t.EventID)
	if err != nil {
		log.Printf("[ticket] loading event %d for broker publish failed: %v", t.EventID, err)
		return
	}
	msg := queue.TicketConfirmedEvent{
		TicketID:      t.ID,
		HolderID:      t.HolderID,
		EventID:       t.EventID,
		HomeTeam:      event.HomeTeam,
		AwayTeam:      event.AwayTeam,
		Stadium:       event.Stadium,
		StartsAt:      event.StartsAt.UTC().Format(time.RFC3339),
		Zone:          t.Zone,
		Area:          t.Area,
		PriceCents:    t.PriceCents,
		TransactionID: txnID,
		ConfirmedAt:   now.UTC().Format(time.RFC3339),
	}
	if err := s.queue.PublishTicketConfirmed(ctx, msg); err != nil {
		log.Printf("[ticket] broker publish for ticket %s failed: %v", t.ID, err)
	}
}
