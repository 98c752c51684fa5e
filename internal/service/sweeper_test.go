package service

import (
	"context"
	"testing"
	"time"

	"github.com/iliyamo/stadium-ticket-reservation/internal/model"
	"github.com/iliyamo/stadium-ticket-reservation/internal/notify"
	"github.com/iliyamo/stadium-ticket-reservation/internal/repository"
)

func newSweeper(e *env) *Sweeper {
	return NewSweeper(e.seats, e.tickets, e.events, e.hub, e.clk, time.Minute)
}

func TestSweepReclaimsLapsedHolds(t *testing.T) {
	e := newEnv(t)
	sw := newSweeper(e)
	ctx := context.Background()

	first := e.mustBook(t, 7, "Red", "1")
	second := e.mustBook(t, 8, "Red", "2")

	sub := e.hub.Subscribe(e.eventID, 4)
	defer sub.Close()

	e.clk.Advance(holdTTL + time.Second)
	n, err := sw.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 2 {
		t.Fatalf("reclaimed = %d, want 2", n)
	}

	for _, id := range []string{first.ID, second.ID} {
		got, err := e.tickets.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("load %s: %v", id, err)
		}
		if got.Status != model.TicketCancelled || got.PaymentStatus != model.PaymentFailed {
			t.Fatalf("ticket %s = %s/%s", id, got.Status, got.PaymentStatus)
		}
	}

	available, _ := e.seats.CountAvailable(ctx, e.eventID)
	if available != 6 {
		t.Fatalf("available = %d, want 6", available)
	}
	event, _ := e.events.GetByID(ctx, e.eventID)
	if event.AvailableSeats != 6 {
		t.Fatalf("event count = %d, want 6", event.AvailableSeats)
	}

	select {
	case msg := <-sub.C:
		if msg.Kind != notify.SeatsBulkUpdate || msg.EventID != e.eventID {
			t.Fatalf("notification = %+v", msg)
		}
		if msg.AvailableSeats != 6 {
			t.Fatalf("notification count = %d, want 6", msg.AvailableSeats)
		}
	default:
		t.Fatal("no bulk notification published")
	}
}

// interposingSeatStore runs a callback once after the first non-empty
// expiry scan, simulating work that lands between the sweeper's scan
// and its release.
type interposingSeatStore struct {
	repository.SeatStore
	afterScan func()
	fired     bool
}

func (s *interposingSeatStore) ExpiredHeld(ctx context.Context, now time.Time) ([]model.Seat, error) {
	seats, err := s.SeatStore.ExpiredHeld(ctx, now)
	if err == nil && len(seats) > 0 && !s.fired {
		s.fired = true
		s.afterScan()
	}
	return seats, err
}

func TestSweepLeavesReclaimedSeatAlone(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	stale := e.mustBook(t, 7, "Red", "1")
	e.clk.Advance(holdTTL + time.Second)

	// Between the sweeper's expiry scan and its release, user 8 claims
	// the seat (lazy expiry) and books it.
	var fresh model.Ticket
	seats := &interposingSeatStore{SeatStore: e.seats}
	seats.afterScan = func() {
		if _, err := e.seats.Claim(ctx, e.eventID, "Red", "1", 8, holdTTL); err != nil {
			t.Fatalf("interposed claim: %v", err)
		}
		deadline := e.clk.Now().Add(holdTTL)
		fresh = model.Ticket{
			ID:            "fresh-reservation",
			HolderID:      8,
			EventID:       e.eventID,
			Zone:          "Red",
			Area:          "1",
			Status:        model.TicketReserved,
			PaymentStatus: model.PaymentPending,
			ActiveToken:   model.TokenPrimary,
			HoldExpiresAt: &deadline,
		}
		if err := e.tickets.Create(ctx, &fresh); err != nil {
			t.Fatalf("interposed create: %v", err)
		}
	}

	sw := NewSweeper(seats, e.tickets, e.events, e.hub, e.clk, time.Minute)
	n, err := sw.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 0 {
		t.Fatalf("reclaimed = %d, want 0", n)
	}

	// User 8's hold survived: a third claimer is still shut out.
	if _, err := e.seats.Claim(ctx, e.eventID, "Red", "1", 9, holdTTL); err != repository.ErrSeatUnavailable {
		t.Fatalf("claim of live hold = %v, want ErrSeatUnavailable", err)
	}
	got, err := e.tickets.GetByID(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("load fresh reservation: %v", err)
	}
	if got.Status != model.TicketReserved {
		t.Fatalf("fresh reservation = %s, want RESERVED", got.Status)
	}

	// The abandoned reservation is not the sweeper's to cancel here;
	// it is closed when its holder next books or pays.
	if got, _ := e.tickets.GetByID(ctx, stale.ID); got.Status != model.TicketReserved {
		t.Fatalf("stale reservation = %s, want RESERVED until its holder returns", got.Status)
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	e := newEnv(t)
	sw := newSweeper(e)
	ctx := context.Background()

	e.mustBook(t, 7, "Red", "1")
	e.clk.Advance(holdTTL + time.Second)

	if n, err := sw.SweepOnce(ctx); err != nil || n != 1 {
		t.Fatalf("first sweep = (%d, %v), want (1, nil)", n, err)
	}
	if n, err := sw.SweepOnce(ctx); err != nil || n != 0 {
		t.Fatalf("second sweep = (%d, %v), want (0, nil)", n, err)
	}
}

func TestSweepSkipsPaidTickets(t *testing.T) {
	e := newEnv(t)
	sw := newSweeper(e)
	ctx := context.Background()

	reserved := e.mustBook(t, 7, "Red", "1")
	paid := e.mustPay(t, 7, reserved.ID)

	e.clk.Advance(24 * time.Hour)
	if n, err := sw.SweepOnce(ctx); err != nil || n != 0 {
		t.Fatalf("sweep = (%d, %v), want (0, nil)", n, err)
	}

	got, _ := e.tickets.GetByID(ctx, paid.ID)
	if got.Status != model.TicketActive {
		t.Fatalf("paid ticket status = %s, want ACTIVE", got.Status)
	}
}

func TestSweepWithNothingToDo(t *testing.T) {
	e := newEnv(t)
	sw := newSweeper(e)

	if n, err := sw.SweepOnce(context.Background()); err != nil || n != 0 {
		t.Fatalf("sweep = (%d, %v), want (0, nil)", n, err)
	}
}
