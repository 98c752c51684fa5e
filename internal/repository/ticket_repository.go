package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/stadium-ticket-reservation/internal/model"
)

// TicketRepo is the MySQL-backed TicketStore.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a TicketRepo bound to the provided database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

const ticketColumns = `id, holder_id, event_id, zone, area, price_cents, status, payment_status,
	hold_expires_at, token_primary, token_secondary, token_image_primary, token_image_secondary,
	active_token, scanned_primary_at, scanned_secondary_at, payment_ref, created_at, updated_at`

// nullStr maps the empty string onto SQL NULL.  The token columns are
// unique-indexed, so two unpaid tickets must not both store "".
func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func scanTicket(scan func(dest ...interface{}) error) (model.Ticket, error) {
	var (
		t          model.Ticket
		expires    sql.NullTime
		scannedP   sql.NullTime
		scannedS   sql.NullTime
		paymentRef sql.NullString
		tokP       sql.NullString
		tokS       sql.NullString
		imgP       sql.NullString
		imgS       sql.NullString
	)
	err := scan(&t.ID, &t.HolderID, &t.EventID, &t.Zone, &t.Area, &t.PriceCents,
		&t.Status, &t.PaymentStatus, &expires,
		&tokP, &tokS, &imgP, &imgS,
		&t.ActiveToken, &scannedP, &scannedS, &paymentRef, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return model.Ticket{}, err
	}
	t.TokenPrimary = tokP.String
	t.TokenSecondary = tokS.String
	t.TokenImagePrimary = imgP.String
	t.TokenImageSecondary = imgS.String
	if expires.Valid {
		v := expires.Time
		t.HoldExpiresAt = &v
	}
	if scannedP.Valid {
		v := scannedP.Time
		t.ScannedPrimaryAt = &v
	}
	if scannedS.Valid {
		v := scannedS.Time
		t.ScannedSecondaryAt = &v
	}
	if paymentRef.Valid {
		v := paymentRef.String
		t.PaymentRef = &v
	}
	return t, nil
}

// Create inserts a new ticket.  Token columns may still be empty; they
// are filled by Update once payment confirms.
func (r *TicketRepo) Create(ctx context.Context, t *model.Ticket) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tickets
		 (id, holder_id, event_id, zone, area, price_cents, status, payment_status,
		  hold_expires_at, token_primary, token_secondary, token_image_primary,
		  token_image_secondary, active_token)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.HolderID, t.EventID, t.Zone, t.Area, t.PriceCents,
		t.Status, t.PaymentStatus, t.HoldExpiresAt,
		nullStr(t.TokenPrimary), nullStr(t.TokenSecondary),
		nullStr(t.TokenImagePrimary), nullStr(t.TokenImageSecondary),
		t.ActiveToken)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
		return ErrDuplicateToken
	}
	return err
}

// GetByID fetches a ticket by its UUID.
func (r *TicketRepo) GetByID(ctx context.Context, id string) (model.Ticket, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE id=? LIMIT 1`, id)
	t, err := scanTicket(row.Scan)
	if err == sql.ErrNoRows {
		return model.Ticket{}, ErrTicketNotFound
	}
	return t, err
}

// Update persists all mutable fields of the ticket.  The unique token
// indexes surface collisions as ErrDuplicateToken.
func (r *TicketRepo) Update(ctx context.Context, t *model.Ticket) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tickets SET
		 status=?, payment_status=?, hold_expires_at=?,
		 token_primary=?, token_secondary=?, token_image_primary=?, token_image_secondary=?,
		 active_token=?, scanned_primary_at=?, scanned_secondary_at=?, payment_ref=?
		 WHERE id=?`,
		t.Status, t.PaymentStatus, t.HoldExpiresAt,
		nullStr(t.TokenPrimary), nullStr(t.TokenSecondary),
		nullStr(t.TokenImagePrimary), nullStr(t.TokenImageSecondary),
		t.ActiveToken, t.ScannedPrimaryAt, t.ScannedSecondaryAt, t.PaymentRef,
		t.ID)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
		return ErrDuplicateToken
	}
	return err
}

// FindOpen returns the holder's RESERVED or ACTIVE ticket for the
// event, or nil when there is none.
func (r *TicketRepo) FindOpen(ctx context.Context, holderID, eventID uint64) (*model.Ticket, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets
		 WHERE holder_id=? AND event_id=? AND status IN (?, ?) LIMIT 1`,
		holderID, eventID, model.TicketReserved, model.TicketActive)
	t, err := scanTicket(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindByToken locates a ticket by either entry token and reports which
// field matched.
func (r *TicketRepo) FindByToken(ctx context.Context, token string) (model.Ticket, string, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets
		 WHERE token_primary=? OR token_secondary=? LIMIT 1`,
		token, token)
	t, err := scanTicket(row.Scan)
	if err == sql.ErrNoRows {
		return model.Ticket{}, "", ErrTokenNotFound
	}
	if err != nil {
		return model.Ticket{}, "", err
	}
	kind := model.TokenPrimary
	if t.TokenSecondary == token {
		kind = model.TokenSecondary
	}
	return t, kind, nil
}

// FindReservedBySeat returns the RESERVED ticket occupying the seat
// position, or nil.
func (r *TicketRepo) FindReservedBySeat(ctx context.Context, eventID uint64, zone, area string) (*model.Ticket, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets
		 WHERE event_id=? AND zone=? AND area=? AND status=? LIMIT 1`,
		eventID, zone, area, model.TicketReserved)
	t, err := scanTicket(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
