package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/aquadapt/swimbook/internal/model"
    "github.com/aquadapt/swimbook/internal/repository"
)

// SwimmerHandler serves swimmer management for parent accounts.
type SwimmerHandler struct {
    Swimmers *repository.SwimmerRepo
}

func NewSwimmerHandler(swimmers *repository.SwimmerRepo) *SwimmerHandler {
    return &SwimmerHandler{Swimmers: swimmers}
}

type swimmerView struct {
    ID        uint64    `json:"id"`
    FirstName string    `json:"first_name"`
    LastName  string    `json:"last_name"`
    BirthDate time.Time `json:"birth_date"`
    Notes     string    `json:"notes,omitempty"`
}

type createSwimmerReq struct {
    FirstName string    `json:"first_name" validate:"required"`
    LastName  string    `json:"last_name" validate:"required"`
    BirthDate time.Time `json:"birth_date" validate:"required"`
    Notes     string    `json:"notes"`
}

// Create registers a swimmer under the caller's account.
func (h *SwimmerHandler) Create(c echo.Context) error {
    actor := currentActor(c)
    var req createSwimmerReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := c.Validate(&req); err != nil {
        return err
    }
    s := &model.Swimmer{
        ParentID:  actor.ID,
        FirstName: req.FirstName,
        LastName:  req.LastName,
        BirthDate: req.BirthDate,
        Notes:     req.Notes,
    }
    if err := h.Swimmers.Create(c.Request().Context(), s); err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, swimmerView{
        ID: s.ID, FirstName: s.FirstName, LastName: s.LastName,
        BirthDate: s.BirthDate, Notes: s.Notes,
    })
}

// List returns the caller's swimmers; staff see everyone's.
func (h *SwimmerHandler) List(c echo.Context) error {
    actor := currentActor(c)
    var (
        swimmers []model.Swimmer
        err      error
    )
    if actor.Role.Can(model.CapManageAllBookings) || actor.Role.Can(model.CapApproveAuthorizations) {
        swimmers, err = h.Swimmers.ListAll(c.Request().Context())
    } else {
        swimmers, err = h.Swimmers.ListByParent(c.Request().Context(), actor.ID)
    }
    if err != nil {
        return writeError(c, err)
    }
    views := make([]swimmerView, 0, len(swimmers))
    for _, s := range swimmers {
        views = append(views, swimmerView{
            ID: s.ID, FirstName: s.FirstName, LastName: s.LastName,
            BirthDate: s.BirthDate, Notes: s.Notes,
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"swimmers": views})
}
