package handler

import (
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/aquadapt/swimbook/internal/model"
    "github.com/aquadapt/swimbook/internal/repository"
    "github.com/aquadapt/swimbook/internal/service"
)

// SessionHandler serves availability browsing and the hold endpoints.
type SessionHandler struct {
    Sessions *repository.SessionRepo
    Holds    *service.HoldService
}

func NewSessionHandler(sessions *repository.SessionRepo, holds *service.HoldService) *SessionHandler {
    return &SessionHandler{Sessions: sessions, Holds: holds}
}

// sessionView is the availability listing shape.  is_held means a live hold
// by anyone; whether it blocks the viewer is decided at hold/book time.
type sessionView struct {
    ID             uint64    `json:"id"`
    InstructorID   uint64    `json:"instructor_id"`
    Location       string    `json:"location"`
    BookingType    string    `json:"booking_type"`
    StartsAt       time.Time `json:"starts_at"`
    EndsAt         time.Time `json:"ends_at"`
    MaxCapacity    uint32    `json:"max_capacity"`
    SpotsRemaining uint32    `json:"spots_remaining"`
    IsFull         bool      `json:"is_full"`
    IsHeld         bool      `json:"is_held"`
}

func toSessionView(s *model.Session, now time.Time) sessionView {
    held := s.HeldBy != nil && s.HoldExpiresAt != nil && now.Before(*s.HoldExpiresAt)
    return sessionView{
        ID:             s.ID,
        InstructorID:   s.InstructorID,
        Location:       s.Location,
        BookingType:    string(s.BookingType),
        StartsAt:       s.StartsAt.UTC(),
        EndsAt:         s.EndsAt.UTC(),
        MaxCapacity:    s.MaxCapacity,
        SpotsRemaining: s.SpotsRemaining(),
        IsFull:         s.IsFull(),
        IsHeld:         held,
    }
}

// ListAvailable returns open sessions matching the query filters:
// ?from=RFC3339&to=RFC3339&instructor_id=N&booking_type=RECURRING|SINGLE.
func (h *SessionHandler) ListAvailable(c echo.Context) error {
    var f repository.AvailabilityFilter
    if v := c.QueryParam("from"); v != "" {
        t, err := time.Parse(time.RFC3339, v)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from"})
        }
        f.StartDate = t
    }
    if v := c.QueryParam("to"); v != "" {
        t, err := time.Parse(time.RFC3339, v)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid to"})
        }
        f.EndDate = t
    }
    if v := c.QueryParam("instructor_id"); v != "" {
        id, err := strconv.ParseUint(v, 10, 64)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid instructor_id"})
        }
        f.InstructorID = id
    }
    if v := c.QueryParam("booking_type"); v != "" {
        bt := model.BookingType(v)
        if bt != model.BookingTypeRecurring && bt != model.BookingTypeSingle {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking_type"})
        }
        f.BookingType = bt
    }

    sessions, err := h.Sessions.ListAvailable(c.Request().Context(), f)
    if err != nil {
        return writeError(c, err)
    }
    now := time.Now().UTC()
    views := make([]sessionView, 0, len(sessions))
    for i := range sessions {
        views = append(views, toSessionView(&sessions[i], now))
    }
    return c.JSON(http.StatusOK, echo.Map{"sessions": views})
}

// PlaceHold takes (or refreshes) the caller's exclusive hold on a session.
func (h *SessionHandler) PlaceHold(c echo.Context) error {
    actor := currentActor(c)
    sessionID := pathID(c, "id")
    if sessionID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
    }
    holdUntil, err := h.Holds.Place(c.Request().Context(), sessionID, actor.ID)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "session_id":            sessionID,
        "hold_until":            holdUntil,
        "hold_duration_seconds": int(h.Holds.Duration().Seconds()),
    })
}

// ReleaseHold gives up the caller's hold.  Always 204: releasing a hold that
// expired, was taken over, or never existed leaves the same end state.
func (h *SessionHandler) ReleaseHold(c echo.Context) error {
    actor := currentActor(c)
    sessionID := pathID(c, "id")
    if sessionID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
    }
    if err := h.Holds.Release(c.Request().Context(), sessionID, actor.ID); err != nil {
        return writeError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}
