package service

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/stadium-ticket-reservation/internal/clock"
	"github.com/iliyamo/stadium-ticket-reservation/internal/model"
	"github.com/iliyamo/stadium-ticket-reservation/internal/notify"
	"github.com/iliyamo/stadium-ticket-reservation/internal/repository"
)

// Sweeper periodically reclaims seats whose hold lapsed without
// payment.  The seat store already treats lapsed holds as claimable,
// so the sweeper is not needed for correctness of claims; its job is
// to return seats to the availability listings promptly and to close
// the tickets left dangling by abandoned reservations.
type Sweeper struct {
	seats    repository.SeatStore
	tickets  repository.TicketStore
	events   repository.EventStore
	hub      *notify.Hub
	clock    clock.Clock
	interval time.Duration
}

// NewSweeper builds a sweeper.  hub may be nil.
func NewSweeper(
	seats repository.SeatStore,
	tickets repository.TicketStore,
	events repository.EventStore,
	hub *notify.Hub,
	clk clock.Clock,
	interval time.Duration,
) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		seats:    seats,
		tickets:  tickets,
		events:   events,
		hub:      hub,
		clock:    clk,
		interval: interval,
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	log.Printf("[sweeper] started, interval %s", s.interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[sweeper] stopped: %v", ctx.Err())
			return
		case <-ticker.C:
			n, err := s.SweepOnce(ctx)
			if err != nil {
				log.Printf("[sweeper] sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("[sweeper] reclaimed %d expired seat hold(s)", n)
			}
		}
	}
}

// SweepOnce releases every currently lapsed hold and cancels its
// reservation.  A failure on one seat does not stop the sweep; the
// seat is retried on the next tick.  Returns the number of seats
// reclaimed.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	now := s.clock.Now()
	expired, err := s.seats.ExpiredHeld(ctx, now)
	if err != nil {
		return 0, err
	}

	reclaimed := 0
	touched := map[uint64]struct{}{}
	for _, seat := range expired {
		// The scan result is a snapshot.  ReleaseLapsed re-checks the
		// lapse atomically, so a fresh claim that replaced this hold
		// since the scan is left untouched.
		released, err := s.seats.ReleaseLapsed(ctx, seat.EventID, seat.Zone, seat.Area, now)
		if err != nil {
			log.Printf("[sweeper] releasing %d/%s/%s failed: %v", seat.EventID, seat.Zone, seat.Area, err)
			continue
		}
		if !released {
			continue
		}
		reclaimed++
		touched[seat.EventID] = struct{}{}

		ticket, err := s.tickets.FindReservedBySeat(ctx, seat.EventID, seat.Zone, seat.Area)
		if err != nil {
			log.Printf("[sweeper] looking up reservation for %d/%s/%s failed: %v", seat.EventID, seat.Zone, seat.Area, err)
			continue
		}
		if ticket == nil {
			continue
		}
		// Cancel only the reservation whose hold was just released:
		// it must belong to the holder seen in the scan and its own
		// deadline must have passed.  A newer reservation on the same
		// position is someone else's live booking.
		if seat.HolderID == nil || ticket.HolderID != *seat.HolderID || !ticket.HoldLapsed(now) {
			continue
		}
		ticket.Status = model.TicketCancelled
		ticket.PaymentStatus = model.PaymentFailed
		ticket.HoldExpiresAt = nil
		ticket.UpdatedAt = now
		if err := s.tickets.Update(ctx, ticket); err != nil {
			log.Printf("[sweeper] cancelling ticket %s failed: %v", ticket.ID, err)
		}
	}

	// One bulk notification per affected event instead of one per
	// seat; subscribers re-query availability anyway.
	for eventID := range touched {
		available := s.syncCounts(ctx, eventID)
		if s.hub != nil {
			s.hub.Publish(notify.Message{
				Kind:           notify.SeatsBulkUpdate,
				EventID:        eventID,
				AvailableSeats: available,
				At:             now,
			})
		}
	}
	return reclaimed, nil
}

func (s *Sweeper) syncCounts(ctx context.Context, eventID uint64) uint32 {
	available, err := s.seats.CountAvailable(ctx, eventID)
	if err != nil {
		log.Printf("[sweeper] counting seats for event %d failed: %v", eventID, err)
		return 0
	}
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		log.Printf("[sweeper] loading event %d failed: %v", eventID, err)
		return available
	}
	if err := s.events.SetSeatCounts(ctx, eventID, event.TotalSeats, available); err != nil {
		log.Printf("[sweeper] updating counts for event %d failed: %v", eventID, err)
	}
	return available
}
