package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/stadium-ticket-reservation/internal/model"
)

// currentUserID extracts the authenticated user's id from the request
// context.  JWTAuth stores the raw "sub" claim, which arrives as a
// float64 after JSON decoding but may be a string or integer depending
// on how the token was minted.
func currentUserID(c echo.Context) uint64 {
	switch v := c.Get("user_id").(type) {
	case float64:
		return uint64(v)
	case uint64:
		return v
	case int64:
		return uint64(v)
	case string:
		n, _ := strconv.ParseUint(v, 10, 64)
		return n
	default:
		return 0
	}
}

// currentRole extracts the authenticated user's role claim.
func currentRole(c echo.Context) string {
	if r, ok := c.Get("role").(string); ok {
		return r
	}
	return ""
}

// isPrivileged reports whether the request comes from staff or admin.
func isPrivileged(c echo.Context) bool {
	r := currentRole(c)
	return r == model.RoleStaff || r == model.RoleAdmin
}
