package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/stadium-ticket-reservation/internal/clock"
	"github.com/iliyamo/stadium-ticket-reservation/internal/model"
	"github.com/iliyamo/stadium-ticket-reservation/internal/qrcode"
	"github.com/iliyamo/stadium-ticket-reservation/internal/repository"
)

// Entry tokens are opaque strings scanned at the stadium gates.  Each
// ticket carries two: the primary is checked at the outer perimeter,
// the secondary at the seating block.  The secondary is only accepted
// after the primary has been scanned, and each token is accepted at
// most once.

const (
	tokenPrefixPrimary   = "1"
	tokenPrefixSecondary = "2"
	tokenRandomBytes     = 6 // 12 hex chars
)

// newEntryToken mints a token for one gate stage.  Layout: a one-char
// kind prefix, the mint time in base36, 12 random hex chars and the
// last four chars of the ticket id.  The random segment carries the
// uniqueness; the rest makes collisions across tickets even less
// likely and keeps tokens visually distinguishable in gate logs.
func newEntryToken(kind string, ticketID string, now time.Time) string {
	prefix := tokenPrefixPrimary
	if kind == model.TokenSecondary {
		prefix = tokenPrefixSecondary
	}
	buf := make([]byte, tokenRandomBytes)
	_, _ = rand.Read(buf)
	suffix := ticketID
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return strings.ToUpper(prefix + strconv.FormatInt(now.UnixMilli(), 36) + hex.EncodeToString(buf) + suffix)
}

// mintEntryTokens generates both tokens and their QR images for a
// freshly activated ticket.
func mintEntryTokens(t *model.Ticket, now time.Time) error {
	t.TokenPrimary = newEntryToken(model.TokenPrimary, t.ID, now)
	t.TokenSecondary = newEntryToken(model.TokenSecondary, t.ID, now)
	imgPrimary, err := qrcode.EncodeDataURI(t.TokenPrimary, qrcode.DefaultSize)
	if err != nil {
		return err
	}
	imgSecondary, err := qrcode.EncodeDataURI(t.TokenSecondary, qrcode.DefaultSize)
	if err != nil {
		return err
	}
	t.TokenImagePrimary = imgPrimary
	t.TokenImageSecondary = imgSecondary
	t.ActiveToken = model.TokenPrimary
	return nil
}

// VerifyResult reports a successful gate scan.
type VerifyResult struct {
	Ticket    model.TicketSummary `json:"ticket"`
	Kind      string              `json:"kind"`
	ScannedAt time.Time           `json:"scanned_at"`
}

// AdminVerifyResult is a read-only view of a ticket's scan state.
type AdminVerifyResult struct {
	Ticket             model.TicketSummary `json:"ticket"`
	Kind               string              `json:"kind"`
	PrimaryScannedAt   *time.Time          `json:"primary_scanned_at"`
	SecondaryScannedAt *time.Time          `json:"secondary_scanned_at"`
}

// TokenService validates entry tokens at the gates.
type TokenService struct {
	tickets repository.TicketStore
	clock   clock.Clock
}

// NewTokenService builds a TokenService.
func NewTokenService(tickets repository.TicketStore, clk clock.Clock) *TokenService {
	return &TokenService{tickets: tickets, clock: clk}
}

// VerifyPrimary scans a perimeter token.  A token is accepted once;
// replays are refused.  The replay check runs before the status check
// so a re-presented token of an already-admitted holder reads as a
// replay, not as a state problem.
func (s *TokenService) VerifyPrimary(ctx context.Context, token string) (VerifyResult, error) {
	t, kind, err := s.tickets.FindByToken(ctx, token)
	if err != nil {
		return VerifyResult{}, err
	}
	if kind != model.TokenPrimary {
		return VerifyResult{}, repository.ErrTokenNotFound
	}
	if t.ScannedPrimaryAt != nil {
		return VerifyResult{}, ErrAlreadyScanned
	}
	if t.Status != model.TicketActive {
		return VerifyResult{}, ErrTicketNotActive
	}
	if t.PaymentStatus != model.PaymentCompleted {
		return VerifyResult{}, ErrPaymentIncomplete
	}
	now := s.clock.Now()
	t.ScannedPrimaryAt = &now
	t.ActiveToken = model.TokenSecondary
	t.UpdatedAt = now
	if err := s.tickets.Update(ctx, &t); err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{Ticket: t.Summary(), Kind: model.TokenPrimary, ScannedAt: now}, nil
}

// VerifySecondary scans a seating-block token.  It refuses tokens
// whose primary stage was never scanned, so a leaked secondary token
// cannot bypass the perimeter.  A successful scan closes the ticket.
func (s *TokenService) VerifySecondary(ctx context.Context, token string) (VerifyResult, error) {
	t, kind, err := s.tickets.FindByToken(ctx, token)
	if err != nil {
		return VerifyResult{}, err
	}
	if kind != model.TokenSecondary {
		return VerifyResult{}, repository.ErrTokenNotFound
	}
	if t.ScannedSecondaryAt != nil {
		return VerifyResult{}, ErrAlreadyScanned
	}
	if t.ScannedPrimaryAt == nil {
		return VerifyResult{}, ErrOutOfOrder
	}
	if t.Status != model.TicketActive {
		return VerifyResult{}, ErrTicketNotActive
	}
	if t.PaymentStatus != model.PaymentCompleted {
		return VerifyResult{}, ErrPaymentIncomplete
	}
	now := s.clock.Now()
	t.ScannedSecondaryAt = &now
	t.Status = model.TicketUsed
	t.UpdatedAt = now
	if err := s.tickets.Update(ctx, &t); err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{Ticket: t.Summary(), Kind: model.TokenSecondary, ScannedAt: now}, nil
}

// Verify is the single-endpoint scan kept for older gate devices: it
// inspects which token was presented and applies the matching stage.
func (s *TokenService) Verify(ctx context.Context, token string) (VerifyResult, error) {
	_, kind, err := s.tickets.FindByToken(ctx, token)
	if err != nil {
		return VerifyResult{}, err
	}
	if kind == model.TokenSecondary {
		return s.VerifySecondary(ctx, token)
	}
	return s.VerifyPrimary(ctx, token)
}

// AdminVerify inspects a token without consuming it.  Staff use it to
// resolve disputes at the gate; it never mutates the ticket, so a
// lookup cannot burn a holder's entry.
func (s *TokenService) AdminVerify(ctx context.Context, token string) (AdminVerifyResult, error) {
	t, kind, err := s.tickets.FindByToken(ctx, token)
	if err != nil {
		return AdminVerifyResult{}, err
	}
	return AdminVerifyResult{
		Ticket:             t.Summary(),
		Kind:               kind,
		PrimaryScannedAt:   t.ScannedPrimaryAt,
		SecondaryScannedAt: t.ScannedSecondaryAt,
	}, nil
}
