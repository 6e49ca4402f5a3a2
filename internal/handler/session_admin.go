package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/aquadapt/swimbook/internal/model"
    "github.com/aquadapt/swimbook/internal/repository"
    "github.com/aquadapt/swimbook/internal/service"
)

// SessionAdminHandler serves the staff schedule-management endpoints.  Route
// registration wraps these in the manage-sessions capability check.
type SessionAdminHandler struct {
    Sessions *repository.SessionRepo
    Bookings *service.BookingService
}

func NewSessionAdminHandler(sessions *repository.SessionRepo, bookings *service.BookingService) *SessionAdminHandler {
    return &SessionAdminHandler{Sessions: sessions, Bookings: bookings}
}

type sessionSpec struct {
    InstructorID uint64    `json:"instructor_id" validate:"required"`
    Location     string    `json:"location" validate:"required"`
    BookingType  string    `json:"booking_type" validate:"required,oneof=RECURRING SINGLE"`
    StartsAt     time.Time `json:"starts_at" validate:"required"`
    EndsAt       time.Time `json:"ends_at" validate:"required"`
    MaxCapacity  uint32    `json:"max_capacity" validate:"required,min=1"`
}

type createBatchReq struct {
    Sessions []sessionSpec `json:"sessions" validate:"required,min=1,dive"`
}

// CreateBatch inserts a term's worth of draft sessions in one call.  Drafts
// are invisible to parents until opened individually.
func (h *SessionAdminHandler) CreateBatch(c echo.Context) error {
    var req createBatchReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := c.Validate(&req); err != nil {
        return err
    }
    sessions := make([]model.Session, 0, len(req.Sessions))
    for _, s := range req.Sessions {
        if !s.EndsAt.After(s.StartsAt) {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "ends_at must be after starts_at"})
        }
        sessions = append(sessions, model.Session{
            InstructorID: s.InstructorID,
            Location:     s.Location,
            BookingType:  model.BookingType(s.BookingType),
            StartsAt:     s.StartsAt,
            EndsAt:       s.EndsAt,
            MaxCapacity:  s.MaxCapacity,
        })
    }
    if err := h.Sessions.CreateBatch(c.Request().Context(), sessions); err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"created": len(sessions)})
}

// Open publishes a draft session to parents.
func (h *SessionAdminHandler) Open(c echo.Context) error {
    id := pathID(c, "id")
    if id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
    }
    ok, err := h.Sessions.Open(c.Request().Context(), id)
    if err != nil {
        return writeError(c, err)
    }
    if !ok {
        return c.JSON(http.StatusConflict, echo.Map{"error": "session is not a draft"})
    }
    return c.JSON(http.StatusOK, echo.Map{"session_id": id, "status": model.SessionAvailable})
}

// Cancel withdraws a session from the schedule.
func (h *SessionAdminHandler) Cancel(c echo.Context) error {
    id := pathID(c, "id")
    if id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
    }
    ok, err := h.Sessions.Cancel(c.Request().Context(), id)
    if err != nil {
        return writeError(c, err)
    }
    if !ok {
        return c.JSON(http.StatusConflict, echo.Map{"error": "session already finished or cancelled"})
    }
    return c.JSON(http.StatusOK, echo.Map{"session_id": id, "status": model.SessionCancelled})
}

// Complete settles a past session: the session and its confirmed bookings
// move to COMPLETED together.  Completing an already-completed session is a
// no-op reported as such.
func (h *SessionAdminHandler) Complete(c echo.Context) error {
    actor := currentActor(c)
    id := pathID(c, "id")
    if id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
    }
    done, err := h.Bookings.CompleteSession(c.Request().Context(), actor, id)
    if err != nil {
        return writeError(c, err)
    }
    if !done {
        return c.JSON(http.StatusConflict, echo.Map{"error": "session is not completable"})
    }
    return c.JSON(http.StatusOK, echo.Map{"session_id": id, "status": model.SessionCompleted})
}

// Delete removes a session from the schedule.  Drafts are physically
// deleted; published sessions are cancelled instead, so booking history is
// never orphaned.
func (h *SessionAdminHandler) Delete(c echo.Context) error {
    id := pathID(c, "id")
    if id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
    }
    deleted, err := h.Sessions.DeleteDraft(c.Request().Context(), id)
    if err != nil {
        return writeError(c, err)
    }
    if deleted {
        return c.NoContent(http.StatusNoContent)
    }
    cancelled, err := h.Sessions.Cancel(c.Request().Context(), id)
    if err != nil {
        return writeError(c, err)
    }
    if !cancelled {
        return c.JSON(http.StatusConflict, echo.Map{"error": "session already finished or cancelled"})
    }
    return c.JSON(http.StatusOK, echo.Map{"session_id": id, "status": model.SessionCancelled})
}
