package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/stadium-ticket-reservation/internal/model"
)

// EventRepo is the MySQL-backed EventStore.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns an EventRepo bound to the provided database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const eventColumns = `id, home_team, away_team, stadium, starts_at, base_price_cents,
	status, total_seats, available_seats, created_at, updated_at`

func scanEvent(scan func(dest ...interface{}) error) (model.Event, error) {
	var e model.Event
	err := scan(&e.ID, &e.HomeTeam, &e.AwayTeam, &e.Stadium, &e.StartsAt,
		&e.BasePriceCents, &e.Status, &e.TotalSeats, &e.AvailableSeats,
		&e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// Create inserts a new event and populates its ID.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO events
		 (home_team, away_team, stadium, starts_at, base_price_cents, status, total_seats, available_seats)
		 VALUES (?,?,?,?,?,?,?,?)`,
		e.HomeTeam, e.AwayTeam, e.Stadium, e.StartsAt.UTC(), e.BasePriceCents,
		e.Status, e.TotalSeats, e.AvailableSeats)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// GetByID fetches an event by id.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (model.Event, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id=? LIMIT 1`, id)
	e, err := scanEvent(row.Scan)
	if err == sql.ErrNoRows {
		return model.Event{}, ErrEventNotFound
	}
	return e, err
}

// List returns all events ordered by start time.
func (r *EventRepo) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY starts_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// UpdateStatus sets the event status.
func (r *EventRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE events SET status=? WHERE id=?`, status, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// SetSeatCounts stores the recomputed seat totals for the event.
func (r *EventRepo) SetSeatCounts(ctx context.Context, id uint64, total, available uint32) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE events SET total_seats=?, available_seats=? WHERE id=?`,
		total, available, id)
	return err
}
