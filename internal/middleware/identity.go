package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// OwnerID returns the authenticated owner stored by JWTAuth.
func OwnerID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ContextOwnerID).(uint64)
	return id, ok && id > 0
}

// ownerKey is the owner id as a string, or "anon" for unauthenticated
// requests.  Rate limit keys use it.
func ownerKey(c echo.Context) string {
	if id, ok := OwnerID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
