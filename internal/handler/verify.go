package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/stadium-ticket-reservation/internal/repository"
	"github.com/iliyamo/stadium-ticket-reservation/internal/service"
)

// VerifyHandler serves the gate-scanner endpoints.  Staff devices post
// scanned entry tokens here; the response tells the gate whether to
// admit the holder and why not otherwise.
type VerifyHandler struct {
	Tokens  *service.TokenService
	Tickets *service.TicketService
}

func NewVerifyHandler(tokens *service.TokenService, tickets *service.TicketService) *VerifyHandler {
	return &VerifyHandler{Tokens: tokens, Tickets: tickets}
}

type verifyReq struct {
	Token string `json:"token"`
}

// verifyErr maps scan failures onto HTTP responses.  Each refusal
// carries a machine-readable reason the gate UI surfaces to staff.
func verifyErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrTokenNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown token", "reason": "not_found"})
	case errors.Is(err, service.ErrTicketNotActive):
		return c.JSON(http.StatusConflict, echo.Map{"error": "ticket is not active", "reason": "not_active"})
	case errors.Is(err, service.ErrPaymentIncomplete):
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "payment incomplete", "reason": "payment_incomplete"})
	case errors.Is(err, service.ErrAlreadyScanned):
		return c.JSON(http.StatusConflict, echo.Map{"error": "token already scanned", "reason": "already_scanned"})
	case errors.Is(err, service.ErrOutOfOrder):
		return c.JSON(http.StatusConflict, echo.Map{"error": "primary token not yet scanned", "reason": "out_of_order"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func bindToken(c echo.Context) (string, bool) {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return "", false
	}
	token := strings.TrimSpace(req.Token)
	return token, token != ""
}

// Primary scans a perimeter token.
func (h *VerifyHandler) Primary(c echo.Context) error {
	token, ok := bindToken(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Tokens.VerifyPrimary(ctx, token)
	if err != nil {
		return verifyErr(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Secondary scans a seating-block token.
func (h *VerifyHandler) Secondary(c echo.Context) error {
	token, ok := bindToken(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Tokens.VerifySecondary(ctx, token)
	if err != nil {
		return verifyErr(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Verify is the single-endpoint scan for older gate devices; the stage
// is inferred from the token itself.
func (h *VerifyHandler) Verify(c echo.Context) error {
	token, ok := bindToken(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Tokens.Verify(ctx, token)
	if err != nil {
		return verifyErr(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// AdminVerify inspects a token without consuming it.
func (h *VerifyHandler) AdminVerify(c echo.Context) error {
	token, ok := bindToken(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Tokens.AdminVerify(ctx, token)
	if err != nil {
		return verifyErr(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// MarkUsed closes an active ticket by hand when a scanner is down.
func (h *VerifyHandler) MarkUsed(c echo.Context) error {
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ticket, err := h.Tickets.MarkUsed(ctx, id)
	if err != nil {
		return ticketErr(c, err)
	}
	return c.JSON(http.StatusOK, toTicketResp(ticket))
}
