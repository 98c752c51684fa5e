package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health responds with a liveness payload.  Load balancers and
// orchestration probes hit this endpoint; it must not touch the
// database.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
