package service

import (
	"context"
	"errors"
	"testing"

	"github.com/iliyamo/stadium-ticket-reservation/internal/model"
)

func TestCreateEventSeedsSeatGrid(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	// newEnv seeded Red and Blue with 3 areas each.
	event, err := e.eventSvc.Get(ctx, e.eventID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if event.TotalSeats != 6 || event.AvailableSeats != 6 {
		t.Fatalf("counts = %d/%d, want 6/6", event.AvailableSeats, event.TotalSeats)
	}
	if event.Status != model.EventUpcoming {
		t.Fatalf("status = %s, want UPCOMING", event.Status)
	}

	refs, err := e.eventSvc.AvailableSeats(ctx, e.eventID, "Blue")
	if err != nil {
		t.Fatalf("AvailableSeats: %v", err)
	}
	if len(refs) != 3 {
		t.Fatalf("Blue seats = %d, want 3", len(refs))
	}
}

func TestCreateEventRejectsUnknownZone(t *testing.T) {
	e := newEnv(t)
	bad := model.Event{HomeTeam: "A", AwayTeam: "B", Stadium: "C", StartsAt: kickoff}
	err := e.eventSvc.Create(context.Background(), &bad, []string{"Purple"}, 2)
	if !errors.Is(err, ErrInvalidZone) {
		t.Fatalf("create = %v, want ErrInvalidZone", err)
	}
}

func TestAvailableSeatsRejectsUnknownZone(t *testing.T) {
	e := newEnv(t)
	if _, err := e.eventSvc.AvailableSeats(context.Background(), e.eventID, "Purple"); !errors.Is(err, ErrInvalidZone) {
		t.Fatalf("AvailableSeats = %v, want ErrInvalidZone", err)
	}
}

func TestUpdateStatusValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if err := e.eventSvc.UpdateStatus(ctx, e.eventID, "POSTPONED"); err == nil {
		t.Fatal("unknown status accepted")
	}
	if err := e.eventSvc.UpdateStatus(ctx, e.eventID, model.EventCompleted); err != nil {
		t.Fatalf("valid status: %v", err)
	}
	event, _ := e.eventSvc.Get(ctx, e.eventID)
	if event.Status != model.EventCompleted {
		t.Fatalf("status = %s, want COMPLETED", event.Status)
	}
}
