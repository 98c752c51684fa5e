package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/stadium-ticket-reservation/internal/clock"
	"github.com/iliyamo/stadium-ticket-reservation/internal/model"
)

// The memory stores implement the same contracts as the MySQL
// repositories with a mutex standing in for the database's atomic
// conditional update.  They back tests and the STORE_DRIVER=memory
// deployment mode.  All methods copy records in and out so callers
// never share memory with the store.

type seatKey struct {
	eventID uint64
	zone    string
	area    string
}

// MemorySeatStore keeps seats in a map guarded by a single mutex.  The
// check-and-set inside Claim/Confirm/Release happens entirely under
// the lock, which gives the same at-most-one-winner guarantee the SQL
// WHERE clause provides.
type MemorySeatStore struct {
	mu     sync.Mutex
	clk    clock.Clock
	seats  map[seatKey]*model.Seat
	nextID uint64
}

// NewMemorySeatStore returns an empty in-memory seat store using the
// given clock for expiry decisions.
func NewMemorySeatStore(clk clock.Clock) *MemorySeatStore {
	return &MemorySeatStore{clk: clk, seats: make(map[seatKey]*model.Seat)}
}

func copySeat(s *model.Seat) model.Seat {
	out := *s
	if s.HolderID != nil {
		v := *s.HolderID
		out.HolderID = &v
	}
	if s.HoldExpiresAt != nil {
		v := *s.HoldExpiresAt
		out.HoldExpiresAt = &v
	}
	if s.TicketID != nil {
		v := *s.TicketID
		out.TicketID = &v
	}
	return out
}

// Claim transitions the seat to HELD if it is available, reclaiming a
// lapsed hold in the same step.
func (m *MemorySeatStore) Claim(ctx context.Context, eventID uint64, zone, area string, holderID uint64, ttl time.Duration) (model.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.seats[seatKey{eventID, zone, area}]
	if !ok {
		return model.Seat{}, ErrSeatNotFound
	}
	now := m.clk.Now()
	if s.State != model.SeatAvailable && !s.HoldLapsed(now) {
		return model.Seat{}, ErrSeatUnavailable
	}
	expires := now.Add(ttl)
	s.State = model.SeatHeld
	s.HolderID = &holderID
	s.HoldExpiresAt = &expires
	s.TicketID = nil
	s.UpdatedAt = now
	return copySeat(s), nil
}

// Confirm transitions a HELD seat to BOOKED and binds the ticket.
// The hold must still belong to holderID; a seat reclaimed by another
// user in the meantime is refused.
func (m *MemorySeatStore) Confirm(ctx context.Context, eventID uint64, zone, area string, holderID uint64, ticketID string) (model.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.seats[seatKey{eventID, zone, area}]
	if !ok {
		return model.Seat{}, ErrSeatNotFound
	}
	if s.State != model.SeatHeld || s.HolderID == nil || *s.HolderID != holderID {
		return model.Seat{}, ErrSeatNotHeld
	}
	s.State = model.SeatBooked
	s.TicketID = &ticketID
	s.HoldExpiresAt = nil
	s.UpdatedAt = m.clk.Now()
	return copySeat(s), nil
}

// Release returns the seat to AVAILABLE; releasing an available seat
// is a no-op success.
func (m *MemorySeatStore) Release(ctx context.Context, eventID uint64, zone, area string) (model.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.seats[seatKey{eventID, zone, area}]
	if !ok {
		return model.Seat{}, ErrSeatNotFound
	}
	if s.State != model.SeatAvailable {
		s.State = model.SeatAvailable
		s.HolderID = nil
		s.HoldExpiresAt = nil
		s.TicketID = nil
		s.UpdatedAt = m.clk.Now()
	}
	return copySeat(s), nil
}

// ReleaseLapsed frees the seat only if its hold is still lapsed and
// unbound under the lock, reporting whether anything was released.
func (m *MemorySeatStore) ReleaseLapsed(ctx context.Context, eventID uint64, zone, area string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.seats[seatKey{eventID, zone, area}]
	if !ok {
		return false, ErrSeatNotFound
	}
	if !s.HoldLapsed(now) {
		return false, nil
	}
	s.State = model.SeatAvailable
	s.HolderID = nil
	s.HoldExpiresAt = nil
	s.TicketID = nil
	s.UpdatedAt = m.clk.Now()
	return true, nil
}

// ListAvailable returns available positions sorted by zone then area.
func (m *MemorySeatStore) ListAvailable(ctx context.Context, eventID uint64, zone string) ([]model.SeatRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	refs := []model.SeatRef{}
	for k, s := range m.seats {
		if k.eventID != eventID || s.State != model.SeatAvailable {
			continue
		}
		if zone != "" && k.zone != zone {
			continue
		}
		refs = append(refs, model.SeatRef{Zone: k.zone, Area: k.area})
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Zone != refs[j].Zone {
			return refs[i].Zone < refs[j].Zone
		}
		return refs[i].Area < refs[j].Area
	})
	return refs, nil
}

// ExpiredHeld returns seats whose hold lapsed before now.
func (m *MemorySeatStore) ExpiredHeld(ctx context.Context, now time.Time) ([]model.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Seat
	for _, s := range m.seats {
		if s.HoldLapsed(now) {
			out = append(out, copySeat(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CountAvailable counts AVAILABLE seats for the event.
func (m *MemorySeatStore) CountAvailable(ctx context.Context, eventID uint64) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n uint32
	for k, s := range m.seats {
		if k.eventID == eventID && s.State == model.SeatAvailable {
			n++
		}
	}
	return n, nil
}

// CreateBulk seeds seats, rejecting duplicate positions.
func (m *MemorySeatStore) CreateBulk(ctx context.Context, seats []model.Seat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range seats {
		if _, exists := m.seats[seatKey{s.EventID, s.Zone, s.Area}]; exists {
			return ErrDuplicateSeat
		}
	}
	now := m.clk.Now()
	for _, s := range seats {
		m.nextID++
		rec := s
		rec.ID = m.nextID
		rec.State = model.SeatAvailable
		rec.HolderID = nil
		rec.HoldExpiresAt = nil
		rec.TicketID = nil
		rec.CreatedAt = now
		rec.UpdatedAt = now
		m.seats[seatKey{s.EventID, s.Zone, s.Area}] = &rec
	}
	return nil
}

// MemoryTicketStore keeps tickets in maps guarded by a mutex.  Token
// values are indexed so duplicate tokens are caught the way the unique
// SQL indexes would catch them.
type MemoryTicketStore struct {
	mu      sync.Mutex
	clk     clock.Clock
	tickets map[string]*model.Ticket
	byToken map[string]string // token value -> ticket id
}

// NewMemoryTicketStore returns an empty in-memory ticket store.
func NewMemoryTicketStore(clk clock.Clock) *MemoryTicketStore {
	return &MemoryTicketStore{
		clk:     clk,
		tickets: make(map[string]*model.Ticket),
		byToken: make(map[string]string),
	}
}

func copyTicket(t *model.Ticket) model.Ticket {
	out := *t
	if t.HoldExpiresAt != nil {
		v := *t.HoldExpiresAt
		out.HoldExpiresAt = &v
	}
	if t.ScannedPrimaryAt != nil {
		v := *t.ScannedPrimaryAt
		out.ScannedPrimaryAt = &v
	}
	if t.ScannedSecondaryAt != nil {
		v := *t.ScannedSecondaryAt
		out.ScannedSecondaryAt = &v
	}
	if t.PaymentRef != nil {
		v := *t.PaymentRef
		out.PaymentRef = &v
	}
	return out
}

func (m *MemoryTicketStore) indexTokens(t *model.Ticket) error {
	for _, tok := range []string{t.TokenPrimary, t.TokenSecondary} {
		if tok == "" {
			continue
		}
		if owner, exists := m.byToken[tok]; exists && owner != t.ID {
			return ErrDuplicateToken
		}
	}
	if t.TokenPrimary != "" && t.TokenPrimary == t.TokenSecondary {
		return ErrDuplicateToken
	}
	if t.TokenPrimary != "" {
		m.byToken[t.TokenPrimary] = t.ID
	}
	if t.TokenSecondary != "" {
		m.byToken[t.TokenSecondary] = t.ID
	}
	return nil
}

// Create inserts a new ticket.
func (m *MemoryTicketStore) Create(ctx context.Context, t *model.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clk.Now()
	rec := copyTicket(t)
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if err := m.indexTokens(&rec); err != nil {
		return err
	}
	m.tickets[rec.ID] = &rec
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

// GetByID fetches a ticket by UUID.
func (m *MemoryTicketStore) GetByID(ctx context.Context, id string) (model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok {
		return model.Ticket{}, ErrTicketNotFound
	}
	return copyTicket(t), nil
}

// Update persists all mutable fields of the ticket.
func (m *MemoryTicketStore) Update(ctx context.Context, t *model.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tickets[t.ID]; !ok {
		return ErrTicketNotFound
	}
	rec := copyTicket(t)
	rec.UpdatedAt = m.clk.Now()
	if err := m.indexTokens(&rec); err != nil {
		return err
	}
	m.tickets[rec.ID] = &rec
	t.UpdatedAt = rec.UpdatedAt
	return nil
}

// FindOpen returns the holder's RESERVED or ACTIVE ticket for the
// event, or nil.
func (m *MemoryTicketStore) FindOpen(ctx context.Context, holderID, eventID uint64) (*model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tickets {
		if t.HolderID == holderID && t.EventID == eventID && t.Open() {
			out := copyTicket(t)
			return &out, nil
		}
	}
	return nil, nil
}

// FindByToken locates a ticket by either entry token.
func (m *MemoryTicketStore) FindByToken(ctx context.Context, token string) (model.Ticket, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byToken[token]
	if !ok {
		return model.Ticket{}, "", ErrTokenNotFound
	}
	t := m.tickets[id]
	kind := model.TokenPrimary
	if t.TokenSecondary == token {
		kind = model.TokenSecondary
	}
	return copyTicket(t), kind, nil
}

// FindReservedBySeat returns the RESERVED ticket on the seat position,
// or nil.
func (m *MemoryTicketStore) FindReservedBySeat(ctx context.Context, eventID uint64, zone, area string) (*model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tickets {
		if t.EventID == eventID && t.Zone == zone && t.Area == area && t.Status == model.TicketReserved {
			out := copyTicket(t)
			return &out, nil
		}
	}
	return nil, nil
}

// MemoryEventStore keeps events in a map guarded by a mutex.
type MemoryEventStore struct {
	mu     sync.Mutex
	clk    clock.Clock
	events map[uint64]*model.Event
	nextID uint64
}

// NewMemoryEventStore returns an empty in-memory event store.
func NewMemoryEventStore(clk clock.Clock) *MemoryEventStore {
	return &MemoryEventStore{clk: clk, events: make(map[uint64]*model.Event)}
}

// Create inserts a new event and assigns its ID.
func (m *MemoryEventStore) Create(ctx context.Context, e *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	now := m.clk.Now()
	rec := *e
	rec.ID = m.nextID
	rec.CreatedAt = now
	rec.UpdatedAt = now
	m.events[rec.ID] = &rec
	e.ID = rec.ID
	e.CreatedAt = now
	e.UpdatedAt = now
	return nil
}

// GetByID fetches an event by id.
func (m *MemoryEventStore) GetByID(ctx context.Context, id uint64) (model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return model.Event{}, ErrEventNotFound
	}
	return *e, nil
}

// List returns all events ordered by start time.
func (m *MemoryEventStore) List(ctx context.Context) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Event, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

// UpdateStatus sets the event status.
func (m *MemoryEventStore) UpdateStatus(ctx context.Context, id uint64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return ErrEventNotFound
	}
	e.Status = status
	e.UpdatedAt = m.clk.Now()
	return nil
}

// SetSeatCounts stores the recomputed seat totals.
func (m *MemoryEventStore) SetSeatCounts(ctx context.Context, id uint64, total, available uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return ErrEventNotFound
	}
	if total > 0 {
		e.TotalSeats = total
	}
	e.AvailableSeats = available
	e.UpdatedAt = m.clk.Now()
	return nil
}
