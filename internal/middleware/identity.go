package middleware

// identity.go holds small helpers shared by the middleware in this package.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// currentUserID returns the authenticated user's ID as a string for use in
// Redis keys, or "anon" when the request carries no identity.
func currentUserID(c echo.Context) string {
    if v, ok := c.Get("user_id").(uint64); ok && v > 0 {
        return strconv.FormatUint(v, 10)
    }
    return "anon"
}
