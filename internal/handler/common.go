// Package handler contains the HTTP layer.  Handlers bind and validate the
// request, call one service method, and translate its result or error into a
// JSON response.  Domain rules live in the services; nothing here touches
// the database directly except the plain CRUD endpoints that need no flow
// logic.
package handler

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/aquadapt/swimbook/internal/model"
    "github.com/aquadapt/swimbook/internal/repository"
    "github.com/aquadapt/swimbook/internal/service"
)

// currentActor reads the identity JWTAuth stored in the context.
func currentActor(c echo.Context) service.Actor {
    id, _ := c.Get("user_id").(uint64)
    role, _ := c.Get("role").(model.Role)
    return service.Actor{ID: id, Role: role}
}

// pathID parses a numeric path parameter, returning 0 when absent or invalid.
func pathID(c echo.Context, name string) uint64 {
    v, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil {
        return 0
    }
    return v
}

// writeError maps a service or repository error onto an HTTP response.  The
// conflict family (full, held, overlap, daily limit, exhausted authorization)
// all render as 409 with their specific message so clients can tell the
// failures apart without parsing status codes further.
func writeError(c echo.Context, err error) error {
    switch {
    case errors.Is(err, service.ErrValidation):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    case errors.Is(err, repository.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, repository.ErrSessionNotFound),
        errors.Is(err, repository.ErrBookingNotFound),
        errors.Is(err, repository.ErrSwimmerNotFound),
        errors.Is(err, repository.ErrPurchaseOrderNotFound),
        errors.Is(err, repository.ErrNoActiveAuthorization):
        return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
    case errors.Is(err, repository.ErrConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
    default:
        c.Logger().Errorf("internal error: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
    }
}
