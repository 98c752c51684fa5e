// Package notify implements the in-process notification bus that fans
// seat state changes out to per-event subscribers (typically SSE
// streams).  Delivery is best-effort and at-most-once: a subscriber
// whose buffer is full simply misses the message.  The seat and ticket
// stores remain the system of record; clients recover any missed
// update by re-querying availability.
package notify

import (
	"sync"
	"time"
)

// Notification kinds published by the ticketing flow.
const (
	SeatHeld        = "seat.held"
	SeatBooked      = "seat.booked"
	SeatReleased    = "seat.released"
	SeatsBulkUpdate = "seats.bulkUpdated"
)

// Message is a single seat-change notification scoped to one event.
// Zone/Area are empty for bulk updates, which only tell subscribers to
// refresh their availability view.
type Message struct {
	Kind           string    `json:"kind"`
	EventID        uint64    `json:"event_id"`
	Zone           string    `json:"zone,omitempty"`
	Area           string    `json:"area,omitempty"`
	TicketID       string    `json:"ticket_id,omitempty"`
	AvailableSeats uint32    `json:"available_seats"`
	At             time.Time `json:"at"`
}

// Subscriber receives messages for a single event on C until Close is
// called.
type Subscriber struct {
	C chan Message

	hub     *Hub
	eventID uint64
	once    sync.Once
}

// Close detaches the subscriber from the hub and closes its channel.
func (s *Subscriber) Close() {
	s.once.Do(func() {
		s.hub.unsubscribe(s)
		close(s.C)
	})
}

// Hub routes messages to subscribers keyed by event ID.
type Hub struct {
	mu   sync.RWMutex
	subs map[uint64]map[*Subscriber]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]map[*Subscriber]struct{})}
}

// Subscribe registers a new subscriber for the event.  The buffer
// bounds how far a slow consumer may lag before messages are dropped.
func (h *Hub) Subscribe(eventID uint64, buffer int) *Subscriber {
	if buffer < 1 {
		buffer = 1
	}
	sub := &Subscriber{
		C:       make(chan Message, buffer),
		hub:     h,
		eventID: eventID,
	}
	h.mu.Lock()
	if h.subs[eventID] == nil {
		h.subs[eventID] = make(map[*Subscriber]struct{})
	}
	h.subs[eventID][sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	if set, ok := h.subs[sub.eventID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.eventID)
		}
	}
	h.mu.Unlock()
}

// Publish delivers the message to every subscriber of its event
// without blocking.  Full buffers drop the message.
func (h *Hub) Publish(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[msg.EventID] {
		select {
		case sub.C <- msg:
		default:
			// Subscriber is lagging; it must re-query for truth.
		}
	}
}

// SubscriberCount reports how many subscribers an event currently has.
func (h *Hub) SubscriberCount(eventID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[eventID])
}
