package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/stadium-ticket-reservation/internal/handler"
	"github.com/iliyamo/stadium-ticket-reservation/internal/middleware"
	"github.com/iliyamo/stadium-ticket-reservation/internal/model"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check used by load balancers and
// monitoring probes.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints.  Register,
// login and refresh are open; logout requires a valid access token.
// The optional rate limiter protects the credential endpoints from
// brute force.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, rateLimit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	if rateLimit != nil {
		g.Use(rateLimit)
	}
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)

	e.POST("/v1/auth/logout", a.Logout, middleware.JWTAuth(jwtSecret))
	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterPublic registers the unauthenticated browse endpoints: event
// listings, seat availability and the live seat-change stream.  The
// optional cache middleware serves repeated listing reads from Redis.
func RegisterPublic(e *echo.Echo, ev *handler.EventHandler, st *handler.StreamHandler, cache echo.MiddlewareFunc) {
	if cache != nil {
		e.GET("/v1/events", ev.List, cache)
		e.GET("/v1/events/:id", ev.Get, cache)
	} else {
		e.GET("/v1/events", ev.List)
		e.GET("/v1/events/:id", ev.Get)
	}
	// Availability and the stream are never cached; both must reflect
	// the current seat state.
	e.GET("/v1/events/:id/seats", ev.Seats)
	e.GET("/v1/events/:id/stream", st.Stream)
}

// RegisterCustomer registers the booking lifecycle under /v1.  All
// routes require a valid JWT; any authenticated role may book.  The
// optional rate limiter throttles booking attempts per user.
func RegisterCustomer(e *echo.Echo, t *handler.TicketHandler, jwtSecret string, rateLimit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleStaff, model.RoleAdmin),
	)
	if rateLimit != nil {
		g.Use(rateLimit)
	}
	g.POST("/tickets", t.Book)
	g.POST("/tickets/:id/pay", t.Pay)
	g.DELETE("/tickets/:id", t.Cancel)
	g.GET("/tickets/:id", t.Get)
}

// RegisterStaff registers the gate-scanner endpoints.  STAFF and ADMIN
// only.
func RegisterStaff(e *echo.Echo, v *handler.VerifyHandler, jwtSecret string) {
	g := e.Group(
		"/v1/verify",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStaff, model.RoleAdmin),
	)
	g.POST("/primary", v.Primary)
	g.POST("/secondary", v.Secondary)
	g.POST("", v.Verify) // legacy single-endpoint scan
	g.POST("/inspect", v.AdminVerify)

	staff := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStaff, model.RoleAdmin),
	)
	staff.POST("/tickets/:id/used", v.MarkUsed)
}

// RegisterAdmin registers event management.  ADMIN only.
func RegisterAdmin(e *echo.Echo, ev *handler.EventHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.POST("/events", ev.Create)
	g.PATCH("/events/:id/status", ev.UpdateStatus)
}
