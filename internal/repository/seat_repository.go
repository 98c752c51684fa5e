package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/stadium-ticket-reservation/internal/model"
)

// SeatRepo is the MySQL-backed SeatStore.  Every mutation is a single
// conditional UPDATE whose WHERE clause re-checks the current state, so
// the database performs the compare-and-swap; the Go code only
// inspects RowsAffected.  A find-mutate-save sequence would reintroduce
// the double-booking race and must never be used here.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo returns a SeatRepo bound to the provided database.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

const seatColumns = `id, event_id, zone, area, state, holder_id, hold_expires_at, ticket_id, created_at, updated_at`

func scanSeat(row *sql.Row) (model.Seat, error) {
	var (
		s        model.Seat
		holder   sql.NullInt64
		expires  sql.NullTime
		ticketID sql.NullString
	)
	err := row.Scan(&s.ID, &s.EventID, &s.Zone, &s.Area, &s.State,
		&holder, &expires, &ticketID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return model.Seat{}, err
	}
	if holder.Valid {
		h := uint64(holder.Int64)
		s.HolderID = &h
	}
	if expires.Valid {
		t := expires.Time
		s.HoldExpiresAt = &t
	}
	if ticketID.Valid {
		id := ticketID.String
		s.TicketID = &id
	}
	return s, nil
}

func (r *SeatRepo) get(ctx context.Context, eventID uint64, zone, area string) (model.Seat, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE event_id=? AND zone=? AND area=? LIMIT 1`,
		eventID, zone, area)
	s, err := scanSeat(row)
	if err == sql.ErrNoRows {
		return model.Seat{}, ErrSeatNotFound
	}
	return s, err
}

// Claim performs the atomic AVAILABLE -> HELD transition.  A lapsed
// hold (expired, no bound ticket) is reclaimed within the same UPDATE,
// so the sweeper and concurrent claimers never need coordination
// beyond this statement.
func (r *SeatRepo) Claim(ctx context.Context, eventID uint64, zone, area string, holderID uint64, ttl time.Duration) (model.Seat, error) {
	expiresAt := time.Now().UTC().Add(ttl)
	res, err := r.db.ExecContext(ctx,
		`UPDATE seats
		 SET state=?, holder_id=?, hold_expires_at=?, ticket_id=NULL
		 WHERE event_id=? AND zone=? AND area=?
		   AND (state=?
		        OR (state=? AND hold_expires_at < UTC_TIMESTAMP() AND ticket_id IS NULL))`,
		model.SeatHeld, holderID, expiresAt,
		eventID, zone, area,
		model.SeatAvailable, model.SeatHeld)
	if err != nil {
		return model.Seat{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Seat{}, err
	}
	if n == 0 {
		// Distinguish a missing seat from a contended one.
		if _, err := r.get(ctx, eventID, zone, area); err != nil {
			return model.Seat{}, err
		}
		return model.Seat{}, ErrSeatUnavailable
	}
	return r.get(ctx, eventID, zone, area)
}

// Confirm performs the atomic HELD -> BOOKED transition and binds the
// ticket.  The holder_id predicate rejects a hold that was reclaimed
// by another user while the caller was busy charging the card.
func (r *SeatRepo) Confirm(ctx context.Context, eventID uint64, zone, area string, holderID uint64, ticketID string) (model.Seat, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE seats SET state=?, ticket_id=?, hold_expires_at=NULL
		 WHERE event_id=? AND zone=? AND area=? AND state=? AND holder_id=?`,
		model.SeatBooked, ticketID, eventID, zone, area, model.SeatHeld, holderID)
	if err != nil {
		return model.Seat{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Seat{}, err
	}
	if n == 0 {
		if _, err := r.get(ctx, eventID, zone, area); err != nil {
			return model.Seat{}, err
		}
		return model.Seat{}, ErrSeatNotHeld
	}
	return r.get(ctx, eventID, zone, area)
}

// Release returns the seat to AVAILABLE.  Releasing a seat that is
// already available affects zero rows and is reported as success.
func (r *SeatRepo) Release(ctx context.Context, eventID uint64, zone, area string) (model.Seat, error) {
	_, err := r.db.ExecContext(ctx,
		`UPDATE seats SET state=?, holder_id=NULL, hold_expires_at=NULL, ticket_id=NULL
		 WHERE event_id=? AND zone=? AND area=? AND state IN (?, ?)`,
		model.SeatAvailable, eventID, zone, area, model.SeatHeld, model.SeatBooked)
	if err != nil {
		return model.Seat{}, err
	}
	return r.get(ctx, eventID, zone, area)
}

// ReleaseLapsed frees the seat only if its hold is still lapsed and
// unbound at the moment of the write.  A fresh claim that replaced the
// lapsed hold between the caller's scan and this statement affects
// zero rows and is left alone.
func (r *SeatRepo) ReleaseLapsed(ctx context.Context, eventID uint64, zone, area string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE seats SET state=?, holder_id=NULL, hold_expires_at=NULL, ticket_id=NULL
		 WHERE event_id=? AND zone=? AND area=? AND state=?
		   AND hold_expires_at < ? AND ticket_id IS NULL`,
		model.SeatAvailable, eventID, zone, area, model.SeatHeld, now.UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListAvailable returns available seat positions sorted by zone then
// area for deterministic output.
func (r *SeatRepo) ListAvailable(ctx context.Context, eventID uint64, zone string) ([]model.SeatRef, error) {
	query := `SELECT zone, area FROM seats WHERE event_id=? AND state=?`
	args := []interface{}{eventID, model.SeatAvailable}
	if zone != "" {
		query += ` AND zone=?`
		args = append(args, zone)
	}
	query += ` ORDER BY zone, area`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	refs := []model.SeatRef{}
	for rows.Next() {
		var ref model.SeatRef
		if err := rows.Scan(&ref.Zone, &ref.Area); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// ExpiredHeld returns held seats whose hold lapsed before now with no
// bound ticket.  The sweeper releases these and cancels their tickets.
func (r *SeatRepo) ExpiredHeld(ctx context.Context, now time.Time) ([]model.Seat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+seatColumns+` FROM seats
		 WHERE state=? AND hold_expires_at < ? AND ticket_id IS NULL`,
		model.SeatHeld, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []model.Seat
	for rows.Next() {
		var (
			s        model.Seat
			holder   sql.NullInt64
			expires  sql.NullTime
			ticketID sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.EventID, &s.Zone, &s.Area, &s.State,
			&holder, &expires, &ticketID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if holder.Valid {
			h := uint64(holder.Int64)
			s.HolderID = &h
		}
		if expires.Valid {
			t := expires.Time
			s.HoldExpiresAt = &t
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

// CountAvailable counts AVAILABLE seats for the event.
func (r *SeatRepo) CountAvailable(ctx context.Context, eventID uint64) (uint32, error) {
	var n uint32
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM seats WHERE event_id=? AND state=?`,
		eventID, model.SeatAvailable).Scan(&n)
	return n, err
}

// CreateBulk inserts seats for a new event in one statement.  All
// seats start AVAILABLE; the unique (event_id, zone, area) index
// rejects duplicates.
func (r *SeatRepo) CreateBulk(ctx context.Context, seats []model.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO seats (event_id, zone, area, state) VALUES `
	args := make([]interface{}, 0, len(seats)*4)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, s.EventID, s.Zone, s.Area, model.SeatAvailable)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrDuplicateSeat
		}
		return err
	}
	return nil
}
