package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/stadium-ticket-reservation/internal/notify"
)

// subscriberBuffer bounds how far a slow SSE client may lag before
// seat-change messages are dropped.  Clients that miss a message
// re-query availability, so a small buffer is enough.
const subscriberBuffer = 16

// heartbeatInterval keeps idle SSE connections alive through proxies.
const heartbeatInterval = 25 * time.Second

// StreamHandler serves the per-event seat-change stream over
// Server-Sent Events.  Browsers watching a seat map subscribe here and
// repaint on every message instead of polling.
type StreamHandler struct {
	Hub *notify.Hub
}

func NewStreamHandler(hub *notify.Hub) *StreamHandler {
	return &StreamHandler{Hub: hub}
}

// Stream subscribes the client to one event's seat changes and relays
// them until the client disconnects.
func (h *StreamHandler) Stream(c echo.Context) error {
	id, err := eventID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	sub := h.Hub.Subscribe(id, subscriberBuffer)
	defer sub.Close()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-heartbeat.C:
			// SSE comment line; ignored by EventSource clients.
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		case msg, ok := <-sub.C:
			if !ok {
				return nil
			}
			payload, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", msg.Kind, payload); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
