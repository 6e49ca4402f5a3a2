package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/aquadapt/swimbook/internal/model"
)

// RequireCapability aborts the request with 403 Forbidden unless the
// authenticated user's role grants the capability.  It assumes JWTAuth has
// already stored the role in the context; a missing or mistyped role is
// treated as no capability at all.
func RequireCapability(cap model.Capability) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            role, ok := c.Get("role").(model.Role)
            if !ok || !role.Can(cap) {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}
