package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// Health reports process liveness.  It deliberately avoids touching the
// database so load balancers keep routing while a migration runs.
func Health(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
