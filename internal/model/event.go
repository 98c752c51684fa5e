package model

import "time"

// Event statuses as stored in the `events.status` column.
const (
	EventUpcoming  = "UPCOMING"
	EventCompleted = "COMPLETED"
	EventCancelled = "CANCELLED"
)

// Zones recognised for stadium seating.  Every seat belongs to exactly
// one zone; the admin seeding endpoint creates an identical area grid
// for each zone it is given.
var Zones = []string{"Red", "Yellow", "Green", "Blue", "Pink", "Orange", "Cyan"}

// Event describes a scheduled match for which seats are sold.  The
// available seat count is derived state: it is recomputed from the seat
// store after every successful seat mutation and must never be
// incremented or decremented independently.
//
// Fields:
//  ID             – primary key identifier.
//  HomeTeam       – home team name.
//  AwayTeam       – away team name.
//  Stadium        – venue name.
//  StartsAt       – kickoff time in UTC.
//  BasePriceCents – seat price in cents for this event.
//  Status         – UPCOMING, COMPLETED or CANCELLED.
//  TotalSeats     – number of seats seeded for the event.
//  AvailableSeats – derived count of seats currently in the AVAILABLE state.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Event struct {
	ID             uint64    // events.id
	HomeTeam       string    // events.home_team
	AwayTeam       string    // events.away_team
	Stadium        string    // events.stadium
	StartsAt       time.Time // events.starts_at
	BasePriceCents uint32    // events.base_price_cents
	Status         string    // events.status
	TotalSeats     uint32    // events.total_seats
	AvailableSeats uint32    // events.available_seats
	CreatedAt      time.Time // events.created_at
	UpdatedAt      time.Time // events.updated_at
}

// Bookable reports whether tickets can currently be sold for the event:
// the event must be upcoming, lie in the future and still have seats.
func (e Event) Bookable(now time.Time) bool {
	return e.Status == EventUpcoming && e.StartsAt.After(now) && e.AvailableSeats > 0
}

// ValidZone reports whether the given zone name is one of the known
// stadium zones.
func ValidZone(zone string) bool {
	for _, z := range Zones {
		if z == zone {
			return true
		}
	}
	return false
}
