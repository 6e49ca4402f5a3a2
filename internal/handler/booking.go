package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/aquadapt/swimbook/internal/repository"
    "github.com/aquadapt/swimbook/internal/service"
)

// BookingHandler serves the booking confirmation flow and booking queries.
type BookingHandler struct {
    Bookings    *service.BookingService
    BookingRepo *repository.BookingRepo
}

func NewBookingHandler(bookings *service.BookingService, repo *repository.BookingRepo) *BookingHandler {
    return &BookingHandler{Bookings: bookings, BookingRepo: repo}
}

type confirmReq struct {
    SwimmerID           uint64   `json:"swimmer_id" validate:"required"`
    SessionIDs          []uint64 `json:"session_ids" validate:"required,min=1,dive,required"`
    AcknowledgeOverflow bool     `json:"acknowledge_overflow"`
}

// Confirm books the requested sessions for a swimmer.  When the request
// would exceed the swimmer's authorization and acknowledge_overflow is not
// set, the response is 409 carrying the warning payload; the client shows it
// and re-submits with the flag set.
func (h *BookingHandler) Confirm(c echo.Context) error {
    actor := currentActor(c)
    var req confirmReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := c.Validate(&req); err != nil {
        return err
    }
    result, err := h.Bookings.Confirm(c.Request().Context(), actor, service.ConfirmRequest{
        SwimmerID:           req.SwimmerID,
        SessionIDs:          req.SessionIDs,
        AcknowledgeOverflow: req.AcknowledgeOverflow,
    })
    if err != nil {
        return writeError(c, err)
    }
    if result.Warning != nil {
        return c.JSON(http.StatusConflict, echo.Map{
            "error":   "authorization overflow",
            "warning": result.Warning,
        })
    }
    return c.JSON(http.StatusCreated, result)
}

// ListMine returns the caller's bookings across all their swimmers.
func (h *BookingHandler) ListMine(c echo.Context) error {
    actor := currentActor(c)
    details, err := h.BookingRepo.ListByParent(c.Request().Context(), actor.ID)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"bookings": details})
}

type cancelReq struct {
    Reason string `json:"reason"`
}

// Cancel cancels one booking.  The reason is optional free text.
func (h *BookingHandler) Cancel(c echo.Context) error {
    actor := currentActor(c)
    bookingID := pathID(c, "id")
    if bookingID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    var req cancelReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    b, err := h.Bookings.Cancel(c.Request().Context(), actor, bookingID, req.Reason)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "booking_id": b.ID,
        "status":     b.Status,
    })
}
