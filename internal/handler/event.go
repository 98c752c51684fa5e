package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/stadium-ticket-reservation/internal/model"
	"github.com/iliyamo/stadium-ticket-reservation/internal/repository"
	"github.com/iliyamo/stadium-ticket-reservation/internal/service"
)

// EventHandler serves event listings, seat availability and the admin
// event management endpoints.
type EventHandler struct {
	Events *service.EventService
}

func NewEventHandler(events *service.EventService) *EventHandler {
	return &EventHandler{Events: events}
}

type eventResp struct {
	ID             uint64    `json:"id"`
	HomeTeam       string    `json:"home_team"`
	AwayTeam       string    `json:"away_team"`
	Stadium        string    `json:"stadium"`
	StartsAt       time.Time `json:"starts_at"`
	BasePriceCents uint32    `json:"base_price_cents"`
	Status         string    `json:"status"`
	TotalSeats     uint32    `json:"total_seats"`
	AvailableSeats uint32    `json:"available_seats"`
}

func toEventResp(e model.Event) eventResp {
	return eventResp{
		ID:             e.ID,
		HomeTeam:       e.HomeTeam,
		AwayTeam:       e.AwayTeam,
		Stadium:        e.Stadium,
		StartsAt:       e.StartsAt,
		BasePriceCents: e.BasePriceCents,
		Status:         e.Status,
		TotalSeats:     e.TotalSeats,
		AvailableSeats: e.AvailableSeats,
	}
}

// eventID parses the :id path parameter.
func eventID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// List returns all events.
func (h *EventHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	events, err := h.Events.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]eventResp, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResp(e))
	}
	return c.JSON(http.StatusOK, echo.Map{"events": out})
}

// Get returns a single event.
func (h *EventHandler) Get(c echo.Context) error {
	id, err := eventID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	event, err := h.Events.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toEventResp(event))
}

// Seats returns the available seat positions for an event.  The
// optional ?zone= query limits the listing to one zone.
func (h *EventHandler) Seats(c echo.Context) error {
	id, err := eventID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	zone := c.QueryParam("zone")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	seats, err := h.Events.AvailableSeats(ctx, id, zone)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidZone):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown zone"})
		case errors.Is(err, repository.ErrEventNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"event_id": id, "zone": zone, "seats": seats})
}

// ----- admin -----

type createEventReq struct {
	HomeTeam       string    `json:"home_team"`
	AwayTeam       string    `json:"away_team"`
	Stadium        string    `json:"stadium"`
	StartsAt       time.Time `json:"starts_at"`
	BasePriceCents uint32    `json:"base_price_cents"`
	Zones          []string  `json:"zones"`          // empty = all stadium zones
	AreasPerZone   int       `json:"areas_per_zone"` // seats seeded per zone
}

// Create stores a new event and seeds its seat grid.  Admin only.
func (h *EventHandler) Create(c echo.Context) error {
	var req createEventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.HomeTeam == "" || req.AwayTeam == "" || req.Stadium == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "home_team/away_team/stadium required"})
	}
	if req.StartsAt.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	event := model.Event{
		HomeTeam:       req.HomeTeam,
		AwayTeam:       req.AwayTeam,
		Stadium:        req.Stadium,
		StartsAt:       req.StartsAt.UTC(),
		BasePriceCents: req.BasePriceCents,
	}
	if err := h.Events.Create(ctx, &event, req.Zones, req.AreasPerZone); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidZone):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown zone"})
		case errors.Is(err, repository.ErrDuplicateSeat):
			return c.JSON(http.StatusConflict, echo.Map{"error": "seat grid already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create event failed"})
	}
	return c.JSON(http.StatusCreated, toEventResp(event))
}

type updateStatusReq struct {
	Status string `json:"status"`
}

// UpdateStatus moves an event between UPCOMING, COMPLETED and
// CANCELLED.  Admin only.
func (h *EventHandler) UpdateStatus(c echo.Context) error {
	id, err := eventID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req updateStatusReq
	if err := c.Bind(&req); err != nil || req.Status == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Events.UpdateStatus(ctx, id, req.Status); err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "status": req.Status})
}
