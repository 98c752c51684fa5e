package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/stadium-ticket-reservation/internal/clock"
	"github.com/iliyamo/stadium-ticket-reservation/internal/model"
	"github.com/iliyamo/stadium-ticket-reservation/internal/notify"
	"github.com/iliyamo/stadium-ticket-reservation/internal/repository"
	"github.com/iliyamo/stadium-ticket-reservation/internal/service"
)

// fixture wires the handlers onto in-memory stores with one seeded
// event (Red zone, two areas).
type fixture struct {
	clk     *clock.Fixed
	echo    *echo.Echo
	tickets *TicketHandler
	verify  *VerifyHandler
	eventID uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewFixed(time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC))
	seats := repository.NewMemorySeatStore(clk)
	tickets := repository.NewMemoryTicketStore(clk)
	events := repository.NewMemoryEventStore(clk)
	hub := notify.NewHub()

	eventSvc := service.NewEventService(events, seats, clk)
	event := model.Event{
		HomeTeam: "Al Hilal", AwayTeam: "Al Nassr", Stadium: "King Fahd",
		StartsAt: clk.Now().Add(30 * time.Hour), BasePriceCents: 9000,
	}
	if err := eventSvc.Create(context.Background(), &event, []string{"Red"}, 2); err != nil {
		t.Fatalf("seed event: %v", err)
	}

	ticketSvc := service.NewTicketService(seats, tickets, events, &service.MockPaymentProcessor{}, hub, nil, clk, 5*time.Minute)
	tokenSvc := service.NewTokenService(tickets, clk)

	return &fixture{
		clk:     clk,
		echo:    echo.New(),
		tickets: NewTicketHandler(ticketSvc),
		verify:  NewVerifyHandler(tokenSvc, ticketSvc),
		eventID: event.ID,
	}
}

// do runs a handler against a synthetic request with the given
// identity claims injected the way JWTAuth would.
func (f *fixture) do(method, path, body string, uid uint64, role string, params map[string]string, h echo.HandlerFunc) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := f.echo.NewContext(req, rec)
	if uid != 0 {
		c.Set("user_id", float64(uid))
		c.Set("role", role)
	}
	for k, v := range params {
		c.SetParamNames(k)
		c.SetParamValues(v)
	}
	_ = h(c)
	return rec
}

func TestBookAndPayOverHTTP(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/v1/tickets",
		`{"event_id":1,"zone":"Red","area":"1"}`, 7, model.RoleCustomer, nil, f.tickets.Book)
	if rec.Code != http.StatusCreated {
		t.Fatalf("book status = %d, body %s", rec.Code, rec.Body)
	}
	var booked struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &booked); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if booked.Status != model.TicketReserved {
		t.Fatalf("status = %s, want RESERVED", booked.Status)
	}

	rec = f.do(http.MethodPost, "/v1/tickets/"+booked.ID+"/pay",
		`{"method":"mada"}`, 7, model.RoleCustomer, map[string]string{"id": booked.ID}, f.tickets.Pay)
	if rec.Code != http.StatusOK {
		t.Fatalf("pay status = %d, body %s", rec.Code, rec.Body)
	}
	var paid struct {
		Status       string `json:"status"`
		TokenPrimary string `json:"token_primary"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &paid); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if paid.Status != model.TicketActive || paid.TokenPrimary == "" {
		t.Fatalf("paid = %+v", paid)
	}

	// The contended seat returns 409 for everyone else.
	rec = f.do(http.MethodPost, "/v1/tickets",
		`{"event_id":1,"zone":"Red","area":"1"}`, 8, model.RoleCustomer, nil, f.tickets.Book)
	if rec.Code != http.StatusConflict {
		t.Fatalf("contended book status = %d, want 409", rec.Code)
	}
}

func TestPayAfterExpiryReturnsGone(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/v1/tickets",
		`{"event_id":1,"zone":"Red","area":"1"}`, 7, model.RoleCustomer, nil, f.tickets.Book)
	if rec.Code != http.StatusCreated {
		t.Fatalf("book status = %d", rec.Code)
	}
	var booked struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &booked)

	f.clk.Advance(6 * time.Minute)
	rec = f.do(http.MethodPost, "/v1/tickets/"+booked.ID+"/pay",
		`{}`, 7, model.RoleCustomer, map[string]string{"id": booked.ID}, f.tickets.Pay)
	if rec.Code != http.StatusGone {
		t.Fatalf("expired pay status = %d, want 410", rec.Code)
	}
}

func TestVerifyEndpointsMapRefusalReasons(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/v1/verify/primary",
		`{"token":"1NOSUCH"}`, 9, model.RoleStaff, nil, f.verify.Primary)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown token status = %d, want 404", rec.Code)
	}

	// Activate a ticket, then scan out of order.
	rec = f.do(http.MethodPost, "/v1/tickets",
		`{"event_id":1,"zone":"Red","area":"2"}`, 7, model.RoleCustomer, nil, f.tickets.Book)
	var booked struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &booked)
	rec = f.do(http.MethodPost, "/v1/tickets/"+booked.ID+"/pay",
		`{}`, 7, model.RoleCustomer, map[string]string{"id": booked.ID}, f.tickets.Pay)
	var paid struct {
		TokenPrimary   string `json:"token_primary"`
		TokenSecondary string `json:"token_secondary"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &paid)

	rec = f.do(http.MethodPost, "/v1/verify/secondary",
		`{"token":"`+paid.TokenSecondary+`"}`, 9, model.RoleStaff, nil, f.verify.Secondary)
	if rec.Code != http.StatusConflict || !strings.Contains(rec.Body.String(), "out_of_order") {
		t.Fatalf("out-of-order scan = %d %s", rec.Code, rec.Body)
	}

	rec = f.do(http.MethodPost, "/v1/verify/primary",
		`{"token":"`+paid.TokenPrimary+`"}`, 9, model.RoleStaff, nil, f.verify.Primary)
	if rec.Code != http.StatusOK {
		t.Fatalf("primary scan = %d %s", rec.Code, rec.Body)
	}

	rec = f.do(http.MethodPost, "/v1/verify/primary",
		`{"token":"`+paid.TokenPrimary+`"}`, 9, model.RoleStaff, nil, f.verify.Primary)
	if rec.Code != http.StatusConflict || !strings.Contains(rec.Body.String(), "already_scanned") {
		t.Fatalf("replayed scan = %d %s", rec.Code, rec.Body)
	}
}
