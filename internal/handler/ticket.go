package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/stadium-ticket-reservation/internal/model"
	"github.com/iliyamo/stadium-ticket-reservation/internal/repository"
	"github.com/iliyamo/stadium-ticket-reservation/internal/service"
)

// TicketHandler serves the booking lifecycle: reserve a seat, pay for
// it, cancel and fetch.
type TicketHandler struct {
	Tickets *service.TicketService
}

func NewTicketHandler(tickets *service.TicketService) *TicketHandler {
	return &TicketHandler{Tickets: tickets}
}

type bookReq struct {
	EventID uint64 `json:"event_id"`
	Zone    string `json:"zone"`
	Area    string `json:"area"`
}

type payReq struct {
	Method string `json:"method"`
}

type ticketResp struct {
	ID                  string     `json:"id"`
	EventID             uint64     `json:"event_id"`
	Zone                string     `json:"zone"`
	Area                string     `json:"area"`
	PriceCents          uint32     `json:"price_cents"`
	Status              string     `json:"status"`
	PaymentStatus       string     `json:"payment_status"`
	HoldExpiresAt       *time.Time `json:"hold_expires_at,omitempty"`
	ActiveToken         string     `json:"active_token,omitempty"`
	TokenPrimary        string     `json:"token_primary,omitempty"`
	TokenSecondary      string     `json:"token_secondary,omitempty"`
	TokenImagePrimary   string     `json:"token_image_primary,omitempty"`
	TokenImageSecondary string     `json:"token_image_secondary,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

func toTicketResp(t model.Ticket) ticketResp {
	return ticketResp{
		ID:                  t.ID,
		EventID:             t.EventID,
		Zone:                t.Zone,
		Area:                t.Area,
		PriceCents:          t.PriceCents,
		Status:              t.Status,
		PaymentStatus:       t.PaymentStatus,
		HoldExpiresAt:       t.HoldExpiresAt,
		ActiveToken:         t.ActiveToken,
		TokenPrimary:        t.TokenPrimary,
		TokenSecondary:      t.TokenSecondary,
		TokenImagePrimary:   t.TokenImagePrimary,
		TokenImageSecondary: t.TokenImageSecondary,
		CreatedAt:           t.CreatedAt,
	}
}

// ticketErr maps lifecycle errors onto HTTP responses.
func ticketErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrEventNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	case errors.Is(err, repository.ErrSeatNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
	case errors.Is(err, repository.ErrTicketNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
	case errors.Is(err, repository.ErrSeatUnavailable):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat is not available"})
	case errors.Is(err, service.ErrEventNotBookable):
		return c.JSON(http.StatusConflict, echo.Map{"error": "event is not open for booking"})
	case errors.Is(err, service.ErrAlreadyBooked):
		return c.JSON(http.StatusConflict, echo.Map{"error": "you already hold a ticket for this event"})
	case errors.Is(err, service.ErrHoldExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": "seat hold expired"})
	case errors.Is(err, service.ErrPaymentDeclined):
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "payment declined"})
	case errors.Is(err, service.ErrNotTicketHolder):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrTicketClosed):
		return c.JSON(http.StatusConflict, echo.Map{"error": "ticket is no longer open"})
	case errors.Is(err, service.ErrTicketNotActive):
		return c.JSON(http.StatusConflict, echo.Map{"error": "ticket is not active"})
	case errors.Is(err, service.ErrTicketUsed):
		return c.JSON(http.StatusConflict, echo.Map{"error": "ticket was already used"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// Book claims a seat and creates a RESERVED ticket with a payment
// deadline.
func (h *TicketHandler) Book(c echo.Context) error {
	uid := currentUserID(c)
	if uid == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.EventID == 0 || req.Zone == "" || req.Area == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_id/zone/area required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	ticket, err := h.Tickets.Book(ctx, uid, req.EventID, req.Zone, req.Area)
	if err != nil {
		return ticketErr(c, err)
	}
	return c.JSON(http.StatusCreated, toTicketResp(ticket))
}

// Pay charges the holder and activates the ticket, returning the entry
// tokens and their QR images.
func (h *TicketHandler) Pay(c echo.Context) error {
	uid := currentUserID(c)
	if uid == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	id := c.Param("id")
	var req payReq
	_ = c.Bind(&req) // method is optional

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	ticket, err := h.Tickets.ConfirmPayment(ctx, uid, id, req.Method)
	if err != nil {
		return ticketErr(c, err)
	}
	return c.JSON(http.StatusOK, toTicketResp(ticket))
}

// Cancel closes an open ticket and frees its seat.  Admins may cancel
// any ticket, holders only their own.
func (h *TicketHandler) Cancel(c echo.Context) error {
	uid := currentUserID(c)
	if uid == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	ticket, err := h.Tickets.Cancel(ctx, uid, id, currentRole(c) == model.RoleAdmin)
	if err != nil {
		return ticketErr(c, err)
	}
	return c.JSON(http.StatusOK, toTicketResp(ticket))
}

// Get fetches one ticket.  Staff and admins see any ticket, holders
// only their own.
func (h *TicketHandler) Get(c echo.Context) error {
	uid := currentUserID(c)
	if uid == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ticket, err := h.Tickets.Get(ctx, uid, id, isPrivileged(c))
	if err != nil {
		return ticketErr(c, err)
	}
	return c.JSON(http.StatusOK, toTicketResp(ticket))
}
