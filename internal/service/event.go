package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/iliyamo/stadium-ticket-reservation/internal/clock"
	"github.com/iliyamo/stadium-ticket-reservation/internal/model"
	"github.com/iliyamo/stadium-ticket-reservation/internal/repository"
)

// ErrInvalidZone is returned when a request names a zone that is not
// part of the stadium layout.
var ErrInvalidZone = errors.New("unknown stadium zone")

// EventService manages events and their seat grids.
type EventService struct {
	events repository.EventStore
	seats  repository.SeatStore
	clock  clock.Clock
}

// NewEventService builds an EventService.
func NewEventService(events repository.EventStore, seats repository.SeatStore, clk clock.Clock) *EventService {
	return &EventService{events: events, seats: seats, clock: clk}
}

// Create stores the event and seeds its seat grid: every zone gets
// areas numbered 1..areasPerZone.  An empty zone list seeds all
// stadium zones.
func (s *EventService) Create(ctx context.Context, event *model.Event, zones []string, areasPerZone int) error {
	if len(zones) == 0 {
		zones = model.Zones
	}
	for _, z := range zones {
		if !model.ValidZone(z) {
			return ErrInvalidZone
		}
	}
	if areasPerZone < 1 {
		areasPerZone = 1
	}

	now := s.clock.Now()
	event.Status = model.EventUpcoming
	event.TotalSeats = uint32(len(zones) * areasPerZone)
	event.AvailableSeats = event.TotalSeats
	event.CreatedAt = now
	event.UpdatedAt = now
	if err := s.events.Create(ctx, event); err != nil {
		return err
	}

	seats := make([]model.Seat, 0, len(zones)*areasPerZone)
	for _, zone := range zones {
		for i := 1; i <= areasPerZone; i++ {
			seats = append(seats, model.Seat{
				EventID:   event.ID,
				Zone:      zone,
				Area:      strconv.Itoa(i),
				State:     model.SeatAvailable,
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
	}
	if err := s.seats.CreateBulk(ctx, seats); err != nil {
		return err
	}
	return s.events.SetSeatCounts(ctx, event.ID, event.TotalSeats, event.AvailableSeats)
}

// List returns all events.
func (s *EventService) List(ctx context.Context) ([]model.Event, error) {
	return s.events.List(ctx)
}

// Get returns one event by id.
func (s *EventService) Get(ctx context.Context, id uint64) (model.Event, error) {
	return s.events.GetByID(ctx, id)
}

// AvailableSeats lists the open seat positions for an event, optionally
// limited to one zone.
func (s *EventService) AvailableSeats(ctx context.Context, eventID uint64, zone string) ([]model.SeatRef, error) {
	if zone != "" && !model.ValidZone(zone) {
		return nil, ErrInvalidZone
	}
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.seats.ListAvailable(ctx, eventID, zone)
}

// UpdateStatus moves the event to a new status.
func (s *EventService) UpdateStatus(ctx context.Context, id uint64, status string) error {
	switch status {
	case model.EventUpcoming, model.EventCompleted, model.EventCancelled:
	default:
		return errors.New("unknown event status: " + status)
	}
	if _, err := s.events.GetByID(ctx, id); err != nil {
		return err
	}
	return s.events.UpdateStatus(ctx, id, status)
}
