package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/iliyamo/stadium-ticket-reservation/internal/clock"
	"github.com/iliyamo/stadium-ticket-reservation/internal/model"
	"github.com/iliyamo/stadium-ticket-reservation/internal/notify"
	"github.com/iliyamo/stadium-ticket-reservation/internal/repository"
)

var kickoff = time.Date(2026, 5, 2, 20, 0, 0, 0, time.UTC)

const holdTTL = 5 * time.Minute

// env bundles the in-memory stores and services every lifecycle test
// needs.  The clock starts 48h before kickoff.
type env struct {
	clk      *clock.Fixed
	seats    *repository.MemorySeatStore
	tickets  *repository.MemoryTicketStore
	events   *repository.MemoryEventStore
	hub      *notify.Hub
	payments *MockPaymentProcessor
	svc      *TicketService
	eventSvc *EventService
	tokenSvc *TokenService
	eventID  uint64
}

func newEnv(t *testing.T) *env {
	t.Helper()
	clk := clock.NewFixed(kickoff.Add(-48 * time.Hour))
	e := &env{
		clk:      clk,
		seats:    repository.NewMemorySeatStore(clk),
		tickets:  repository.NewMemoryTicketStore(clk),
		events:   repository.NewMemoryEventStore(clk),
		hub:      notify.NewHub(),
		payments: &MockPaymentProcessor{},
	}
	e.svc = NewTicketService(e.seats, e.tickets, e.events, e.payments, e.hub, nil, clk, holdTTL)
	e.eventSvc = NewEventService(e.events, e.seats, clk)
	e.tokenSvc = NewTokenService(e.tickets, clk)

	event := model.Event{
		HomeTeam:       "Al Hilal",
		AwayTeam:       "Al Nassr",
		Stadium:        "King Fahd",
		StartsAt:       kickoff,
		BasePriceCents: 15000,
	}
	if err := e.eventSvc.Create(context.Background(), &event, []string{"Red", "Blue"}, 3); err != nil {
		t.Fatalf("seed event: %v", err)
	}
	e.eventID = event.ID
	return e
}

func (e *env) mustBook(t *testing.T, holder uint64, zone, area string) model.Ticket {
	t.Helper()
	ticket, err := e.svc.Book(context.Background(), holder, e.eventID, zone, area)
	if err != nil {
		t.Fatalf("book %s/%s for %d: %v", zone, area, holder, err)
	}
	return ticket
}

func (e *env) mustPay(t *testing.T, holder uint64, ticketID string) model.Ticket {
	t.Helper()
	ticket, err := e.svc.ConfirmPayment(context.Background(), holder, ticketID, "mada")
	if err != nil {
		t.Fatalf("pay %s: %v", ticketID, err)
	}
	return ticket
}

func TestBookCreatesReservedTicket(t *testing.T) {
	e := newEnv(t)
	sub := e.hub.Subscribe(e.eventID, 4)
	defer sub.Close()

	ticket := e.mustBook(t, 7, "Red", "1")

	if ticket.Status != model.TicketReserved || ticket.PaymentStatus != model.PaymentPending {
		t.Fatalf("ticket state = %s/%s", ticket.Status, ticket.PaymentStatus)
	}
	if ticket.PriceCents != 15000 {
		t.Fatalf("price = %d, want event base price 15000", ticket.PriceCents)
	}
	if ticket.HoldExpiresAt == nil || !ticket.HoldExpiresAt.Equal(e.clk.Now().Add(holdTTL)) {
		t.Fatalf("hold deadline = %v, want now+%s", ticket.HoldExpiresAt, holdTTL)
	}
	if ticket.TokenPrimary != "" || ticket.TokenSecondary != "" {
		t.Fatal("tokens must not exist before payment")
	}

	event, _ := e.events.GetByID(context.Background(), e.eventID)
	if event.AvailableSeats != 5 {
		t.Fatalf("available = %d, want 5", event.AvailableSeats)
	}

	select {
	case msg := <-sub.C:
		if msg.Kind != notify.SeatHeld || msg.Zone != "Red" || msg.Area != "1" {
			t.Fatalf("notification = %+v", msg)
		}
		if msg.AvailableSeats != 5 {
			t.Fatalf("notification count = %d, want 5", msg.AvailableSeats)
		}
	default:
		t.Fatal("no seat.held notification published")
	}
}

func TestBookRejectsSecondOpenTicket(t *testing.T) {
	e := newEnv(t)
	e.mustBook(t, 7, "Red", "1")

	if _, err := e.svc.Book(context.Background(), 7, e.eventID, "Red", "2"); !errors.Is(err, ErrAlreadyBooked) {
		t.Fatalf("second booking = %v, want ErrAlreadyBooked", err)
	}
}

func TestBookContendedSeat(t *testing.T) {
	e := newEnv(t)
	e.mustBook(t, 7, "Red", "1")

	if _, err := e.svc.Book(context.Background(), 8, e.eventID, "Red", "1"); !errors.Is(err, repository.ErrSeatUnavailable) {
		t.Fatalf("contended booking = %v, want ErrSeatUnavailable", err)
	}
}

func TestBookAfterLapsedHoldReplacesOldTicket(t *testing.T) {
	e := newEnv(t)
	old := e.mustBook(t, 7, "Red", "1")

	e.clk.Advance(holdTTL + time.Second)
	fresh := e.mustBook(t, 7, "Red", "2")
	if fresh.ID == old.ID {
		t.Fatal("expected a new ticket, got the old one")
	}

	stale, err := e.tickets.GetByID(context.Background(), old.ID)
	if err != nil {
		t.Fatalf("load old ticket: %v", err)
	}
	if stale.Status != model.TicketCancelled {
		t.Fatalf("old ticket status = %s, want CANCELLED", stale.Status)
	}
}

// failingTicketStore wraps the memory store and fails every Create.
type failingTicketStore struct {
	repository.TicketStore
}

func (f failingTicketStore) Create(ctx context.Context, tk *model.Ticket) error {
	return errors.New("boom")
}

func TestBookReleasesSeatWhenTicketWriteFails(t *testing.T) {
	e := newEnv(t)
	svc := NewTicketService(e.seats, failingTicketStore{e.tickets}, e.events, e.payments, nil, nil, e.clk, holdTTL)

	if _, err := svc.Book(context.Background(), 7, e.eventID, "Red", "1"); err == nil {
		t.Fatal("expected booking to fail")
	}

	// The compensating release must leave the seat claimable.
	if _, err := e.svc.Book(context.Background(), 8, e.eventID, "Red", "1"); err != nil {
		t.Fatalf("seat left stranded after failed booking: %v", err)
	}
}

func TestConfirmPaymentActivatesTicket(t *testing.T) {
	e := newEnv(t)
	sub := e.hub.Subscribe(e.eventID, 4)
	defer sub.Close()

	reserved := e.mustBook(t, 7, "Red", "1")
	<-sub.C // drain seat.held

	paid := e.mustPay(t, 7, reserved.ID)
	if paid.Status != model.TicketActive || paid.PaymentStatus != model.PaymentCompleted {
		t.Fatalf("ticket state = %s/%s", paid.Status, paid.PaymentStatus)
	}
	if paid.PaymentRef == nil || !strings.HasPrefix(*paid.PaymentRef, "TXN") {
		t.Fatalf("payment ref = %v", paid.PaymentRef)
	}
	if paid.HoldExpiresAt != nil {
		t.Fatal("hold deadline must be cleared on activation")
	}
	if paid.TokenPrimary == "" || paid.TokenSecondary == "" || paid.TokenPrimary == paid.TokenSecondary {
		t.Fatalf("tokens = %q / %q", paid.TokenPrimary, paid.TokenSecondary)
	}
	if !strings.HasPrefix(paid.TokenPrimary, "1") || !strings.HasPrefix(paid.TokenSecondary, "2") {
		t.Fatalf("token prefixes = %q / %q", paid.TokenPrimary[:1], paid.TokenSecondary[:1])
	}
	if !strings.HasPrefix(paid.TokenImagePrimary, "data:image/png;base64,") {
		t.Fatalf("primary QR image = %.40q", paid.TokenImagePrimary)
	}
	if paid.ActiveToken != model.TokenPrimary {
		t.Fatalf("active token = %s, want PRIMARY", paid.ActiveToken)
	}

	seats, _ := e.seats.ListAvailable(context.Background(), e.eventID, "Red")
	for _, ref := range seats {
		if ref.Area == "1" {
			t.Fatal("booked seat still listed as available")
		}
	}

	select {
	case msg := <-sub.C:
		if msg.Kind != notify.SeatBooked || msg.TicketID != paid.ID {
			t.Fatalf("notification = %+v", msg)
		}
	default:
		t.Fatal("no seat.booked notification published")
	}
}

func TestConfirmPaymentAfterExpiryCancels(t *testing.T) {
	e := newEnv(t)
	reserved := e.mustBook(t, 7, "Red", "1")

	e.clk.Advance(holdTTL + time.Second)
	if _, err := e.svc.ConfirmPayment(context.Background(), 7, reserved.ID, "mada"); !errors.Is(err, ErrHoldExpired) {
		t.Fatalf("pay after expiry = %v, want ErrHoldExpired", err)
	}

	stale, _ := e.tickets.GetByID(context.Background(), reserved.ID)
	if stale.Status != model.TicketCancelled || stale.PaymentStatus != model.PaymentFailed {
		t.Fatalf("ticket state = %s/%s", stale.Status, stale.PaymentStatus)
	}
	// Nothing was charged, and the seat is free again.
	if _, err := e.svc.Book(context.Background(), 8, e.eventID, "Red", "1"); err != nil {
		t.Fatalf("seat not released after expiry cancel: %v", err)
	}
}

func TestConfirmPaymentDeclined(t *testing.T) {
	e := newEnv(t)
	reserved := e.mustBook(t, 7, "Red", "1")

	e.payments.Fail = true
	if _, err := e.svc.ConfirmPayment(context.Background(), 7, reserved.ID, "mada"); !errors.Is(err, ErrPaymentDeclined) {
		t.Fatalf("declined pay = %v, want ErrPaymentDeclined", err)
	}

	got, _ := e.tickets.GetByID(context.Background(), reserved.ID)
	if got.Status != model.TicketReserved || got.PaymentStatus != model.PaymentFailed {
		t.Fatalf("ticket state = %s/%s", got.Status, got.PaymentStatus)
	}

	// The hold survives a declined charge; a retry within the TTL works.
	e.payments.Fail = false
	paid := e.mustPay(t, 7, reserved.ID)
	if paid.Status != model.TicketActive {
		t.Fatalf("retry state = %s", paid.Status)
	}
}

func TestConfirmPaymentWrongHolder(t *testing.T) {
	e := newEnv(t)
	reserved := e.mustBook(t, 7, "Red", "1")

	if _, err := e.svc.ConfirmPayment(context.Background(), 8, reserved.ID, "mada"); !errors.Is(err, ErrNotTicketHolder) {
		t.Fatalf("foreign pay = %v, want ErrNotTicketHolder", err)
	}
}

// slowGatewayProcessor simulates a charge slow enough for the hold to
// lapse and another user to claim the seat while the money moves.  It
// also counts refunds.
type slowGatewayProcessor struct {
	MockPaymentProcessor
	e       *env
	rival   uint64
	refunds int
}

func (p *slowGatewayProcessor) Charge(ctx context.Context, amountCents uint32, method string) (PaymentResult, error) {
	p.e.clk.Advance(holdTTL + time.Second)
	if _, err := p.e.seats.Claim(ctx, p.e.eventID, "Red", "1", p.rival, holdTTL); err != nil {
		return PaymentResult{}, err
	}
	return p.MockPaymentProcessor.Charge(ctx, amountCents, method)
}

func (p *slowGatewayProcessor) Refund(ctx context.Context, transactionID string, amountCents uint32) (RefundResult, error) {
	p.refunds++
	return p.MockPaymentProcessor.Refund(ctx, transactionID, amountCents)
}

func TestConfirmPaymentSeatReclaimedDuringCharge(t *testing.T) {
	e := newEnv(t)
	reserved := e.mustBook(t, 7, "Red", "1")

	proc := &slowGatewayProcessor{e: e, rival: 8}
	svc := NewTicketService(e.seats, e.tickets, e.events, proc, nil, nil, e.clk, holdTTL)

	if _, err := svc.ConfirmPayment(context.Background(), 7, reserved.ID, "mada"); !errors.Is(err, ErrHoldExpired) {
		t.Fatalf("pay over reclaimed seat = %v, want ErrHoldExpired", err)
	}
	if proc.refunds != 1 {
		t.Fatalf("refunds = %d, want 1", proc.refunds)
	}

	got, _ := e.tickets.GetByID(context.Background(), reserved.ID)
	if got.Status != model.TicketCancelled || got.PaymentStatus != model.PaymentRefunded {
		t.Fatalf("ticket state = %s/%s", got.Status, got.PaymentStatus)
	}

	// User 8 keeps the hold; a third claimer is still shut out.
	if _, err := e.seats.Claim(context.Background(), e.eventID, "Red", "1", 9, holdTTL); !errors.Is(err, repository.ErrSeatUnavailable) {
		t.Fatalf("third claim = %v, want ErrSeatUnavailable", err)
	}
}

// activationFailStore fails the write that records a paid ticket.
type activationFailStore struct {
	repository.TicketStore
}

func (f activationFailStore) Update(ctx context.Context, tk *model.Ticket) error {
	if tk.Status == model.TicketActive {
		return errors.New("disk full")
	}
	return f.TicketStore.Update(ctx, tk)
}

// refundCountingProcessor counts refunds issued through the mock.
type refundCountingProcessor struct {
	MockPaymentProcessor
	refunds int
}

func (p *refundCountingProcessor) Refund(ctx context.Context, transactionID string, amountCents uint32) (RefundResult, error) {
	p.refunds++
	return p.MockPaymentProcessor.Refund(ctx, transactionID, amountCents)
}

func TestConfirmPaymentRefundsWhenActivationWriteFails(t *testing.T) {
	e := newEnv(t)
	proc := &refundCountingProcessor{}
	svc := NewTicketService(e.seats, activationFailStore{e.tickets}, e.events, proc, nil, nil, e.clk, holdTTL)

	reserved, err := svc.Book(context.Background(), 7, e.eventID, "Red", "1")
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if _, err := svc.ConfirmPayment(context.Background(), 7, reserved.ID, "mada"); err == nil {
		t.Fatal("expected activation to fail")
	}
	if proc.refunds != 1 {
		t.Fatalf("refunds = %d, want 1", proc.refunds)
	}

	// The charge was unwound and the seat freed; the stored ticket
	// never left RESERVED.
	got, _ := e.tickets.GetByID(context.Background(), reserved.ID)
	if got.Status != model.TicketReserved {
		t.Fatalf("ticket status = %s, want RESERVED", got.Status)
	}
	if got.PaymentRef != nil {
		t.Fatalf("payment ref = %v, want none recorded", got.PaymentRef)
	}
	if _, err := e.seats.Claim(context.Background(), e.eventID, "Red", "1", 8, holdTTL); err != nil {
		t.Fatalf("seat left stranded after failed activation: %v", err)
	}
}

func TestCancelRefundsCompletedPayment(t *testing.T) {
	e := newEnv(t)
	reserved := e.mustBook(t, 7, "Red", "1")
	e.mustPay(t, 7, reserved.ID)

	cancelled, err := e.svc.Cancel(context.Background(), 7, reserved.ID, false)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != model.TicketCancelled || cancelled.PaymentStatus != model.PaymentRefunded {
		t.Fatalf("ticket state = %s/%s", cancelled.Status, cancelled.PaymentStatus)
	}
	if _, err := e.svc.Book(context.Background(), 8, e.eventID, "Red", "1"); err != nil {
		t.Fatalf("seat not released after cancel: %v", err)
	}
	// Cancelling twice is refused.
	if _, err := e.svc.Cancel(context.Background(), 7, reserved.ID, false); !errors.Is(err, ErrTicketClosed) {
		t.Fatalf("double cancel = %v, want ErrTicketClosed", err)
	}
}

func TestCancelByOtherUserForbidden(t *testing.T) {
	e := newEnv(t)
	reserved := e.mustBook(t, 7, "Red", "1")

	if _, err := e.svc.Cancel(context.Background(), 8, reserved.ID, false); !errors.Is(err, ErrNotTicketHolder) {
		t.Fatalf("foreign cancel = %v, want ErrNotTicketHolder", err)
	}
	// Admins may cancel on behalf of anyone.
	if _, err := e.svc.Cancel(context.Background(), 99, reserved.ID, true); err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
}

func TestMarkUsed(t *testing.T) {
	e := newEnv(t)
	reserved := e.mustBook(t, 7, "Red", "1")

	if _, err := e.svc.MarkUsed(context.Background(), reserved.ID); !errors.Is(err, ErrTicketNotActive) {
		t.Fatalf("mark reserved used = %v, want ErrTicketNotActive", err)
	}

	e.mustPay(t, 7, reserved.ID)
	used, err := e.svc.MarkUsed(context.Background(), reserved.ID)
	if err != nil {
		t.Fatalf("mark used: %v", err)
	}
	if used.Status != model.TicketUsed {
		t.Fatalf("status = %s, want USED", used.Status)
	}

	if _, err := e.svc.MarkUsed(context.Background(), reserved.ID); !errors.Is(err, ErrTicketUsed) {
		t.Fatalf("mark used twice = %v, want ErrTicketUsed", err)
	}
}

func TestBookEventNotBookable(t *testing.T) {
	e := newEnv(t)
	if err := e.eventSvc.UpdateStatus(context.Background(), e.eventID, model.EventCancelled); err != nil {
		t.Fatalf("cancel event: %v", err)
	}
	if _, err := e.svc.Book(context.Background(), 7, e.eventID, "Red", "1"); !errors.Is(err, ErrEventNotBookable) {
		t.Fatalf("book cancelled event = %v, want ErrEventNotBookable", err)
	}
}

func TestBookPastKickoff(t *testing.T) {
	e := newEnv(t)
	e.clk.Set(kickoff.Add(time.Minute))
	if _, err := e.svc.Book(context.Background(), 7, e.eventID, "Red", "1"); !errors.Is(err, ErrEventNotBookable) {
		t.Fatalf("book after kickoff = %v, want ErrEventNotBookable", err)
	}
}
