// Package queue defines message payloads exchanged over the message
// broker, the publisher used by the ticket lifecycle and the
// background consumer that records confirmations.
package queue

// TicketConfirmedEvent is published when a ticket payment succeeds and
// the seat is booked.  It carries enough for downstream consumers to
// log, notify or feed analytics without querying the primary database.
type TicketConfirmedEvent struct {
	TicketID      string `json:"ticket_id"`
	HolderID      uint64 `json:"holder_id"`
	EventID       uint64 `json:"event_id"`
	HomeTeam      string `json:"home_team"`
	AwayTeam      string `json:"away_team"`
	Stadium       string `json:"stadium"`
	StartsAt      string `json:"starts_at"`
	Zone          string `json:"zone"`
	Area          string `json:"area"`
	PriceCents    uint32 `json:"price_cents"`
	TransactionID string `json:"transaction_id"`
	ConfirmedAt   string `json:"confirmed_at"`
}
