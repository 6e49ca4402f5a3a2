package handler

import (
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/aquadapt/swimbook/internal/model"
    "github.com/aquadapt/swimbook/internal/repository"
    "github.com/aquadapt/swimbook/internal/service"
)

// PurchaseOrderHandler serves the funding-authorization endpoints.
type PurchaseOrderHandler struct {
    Orders   *repository.PurchaseOrderRepo
    Swimmers *repository.SwimmerRepo
    Ledger   *service.LedgerService

    // DefaultThreshold is the renewal-alert threshold applied when a
    // purchase-order request does not name one.
    DefaultThreshold uint32
}

func NewPurchaseOrderHandler(orders *repository.PurchaseOrderRepo, swimmers *repository.SwimmerRepo, ledger *service.LedgerService, defaultThreshold uint32) *PurchaseOrderHandler {
    return &PurchaseOrderHandler{Orders: orders, Swimmers: swimmers, Ledger: ledger, DefaultThreshold: defaultThreshold}
}

type poView struct {
    ID                  uint64    `json:"id"`
    SwimmerID           uint64    `json:"swimmer_id"`
    FundingSource       string    `json:"funding_source"`
    Status              string    `json:"status"`
    AuthorizationNumber *string   `json:"authorization_number,omitempty"`
    SessionsAuthorized  uint32    `json:"sessions_authorized"`
    SessionsConsumed    uint32    `json:"sessions_consumed"`
    SessionsAvailable   uint32    `json:"sessions_available"`
    ValidFrom           time.Time `json:"valid_from"`
    ValidTo             time.Time `json:"valid_to"`
}

func toPOView(p *model.PurchaseOrder) poView {
    return poView{
        ID:                  p.ID,
        SwimmerID:           p.SwimmerID,
        FundingSource:       p.FundingSource,
        Status:              string(p.Status),
        AuthorizationNumber: p.AuthorizationNumber,
        SessionsAuthorized:  p.SessionsAuthorized,
        SessionsConsumed:    p.SessionsConsumed,
        SessionsAvailable:   p.SessionsAvailable(),
        ValidFrom:           p.ValidFrom.UTC(),
        ValidTo:             p.ValidTo.UTC(),
    }
}

type createPOReq struct {
    SwimmerID          uint64    `json:"swimmer_id" validate:"required"`
    FundingSource      string    `json:"funding_source" validate:"required"`
    SessionsAuthorized uint32    `json:"sessions_authorized" validate:"required,min=1"`
    RenewalThreshold   *uint32   `json:"renewal_threshold"`
    ValidFrom          time.Time `json:"valid_from" validate:"required"`
    ValidTo            time.Time `json:"valid_to" validate:"required"`
}

// Create files a purchase-order request in PENDING for a coordinator to
// decide.  Parents may file for their own swimmers; staff for anyone.
func (h *PurchaseOrderHandler) Create(c echo.Context) error {
    actor := currentActor(c)
    var req createPOReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := c.Validate(&req); err != nil {
        return err
    }
    if !req.ValidTo.After(req.ValidFrom) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "valid_to must be after valid_from"})
    }

    swimmer, err := h.Swimmers.GetByID(c.Request().Context(), req.SwimmerID)
    if err != nil {
        return writeError(c, err)
    }
    if !actor.Role.Can(model.CapApproveAuthorizations) && swimmer.ParentID != actor.ID {
        return writeError(c, repository.ErrForbidden)
    }

    threshold := h.DefaultThreshold
    if req.RenewalThreshold != nil {
        threshold = *req.RenewalThreshold
    }
    po := &model.PurchaseOrder{
        SwimmerID:          req.SwimmerID,
        FundingSource:      req.FundingSource,
        SessionsAuthorized: req.SessionsAuthorized,
        RenewalThreshold:   threshold,
        ValidFrom:          req.ValidFrom,
        ValidTo:            req.ValidTo,
    }
    if err := h.Orders.Create(c.Request().Context(), po); err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, toPOView(po))
}

type approveReq struct {
    AuthorizationNumber *string `json:"authorization_number"`
}

// Approve records a coordinator decision in favour.  With an authorization
// number the order activates and the swimmer's pending overflow bookings
// confirm; without one it becomes bookable while billing waits.
func (h *PurchaseOrderHandler) Approve(c echo.Context) error {
    actor := currentActor(c)
    poID := pathID(c, "id")
    if poID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid purchase order id"})
    }
    var req approveReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    po, confirmed, err := h.Ledger.Approve(c.Request().Context(), actor, poID, req.AuthorizationNumber)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "purchase_order":     toPOView(po),
        "confirmed_bookings": confirmed,
    })
}

// Decline records a coordinator rejection; the swimmer's pending overflow
// bookings are cancelled in the same unit.
func (h *PurchaseOrderHandler) Decline(c echo.Context) error {
    actor := currentActor(c)
    poID := pathID(c, "id")
    if poID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid purchase order id"})
    }
    po, cancelled, err := h.Ledger.Decline(c.Request().Context(), actor, poID)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "purchase_order":     toPOView(po),
        "cancelled_bookings": cancelled,
    })
}

// Balance returns the swimmer's usable authorization balance.  An unfunded
// swimmer gets funded=false rather than a 404; private pay is a normal state,
// not an error.
func (h *PurchaseOrderHandler) Balance(c echo.Context) error {
    actor := currentActor(c)
    swimmerID := pathID(c, "id")
    if swimmerID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid swimmer id"})
    }
    swimmer, err := h.Swimmers.GetByID(c.Request().Context(), swimmerID)
    if err != nil {
        return writeError(c, err)
    }
    if !actor.Role.Can(model.CapApproveAuthorizations) &&
        !actor.Role.Can(model.CapManageAllBookings) &&
        swimmer.ParentID != actor.ID {
        return writeError(c, repository.ErrForbidden)
    }
    balance, err := h.Ledger.AvailableSessions(c.Request().Context(), swimmerID)
    if errors.Is(err, repository.ErrNoActiveAuthorization) {
        return c.JSON(http.StatusOK, echo.Map{"swimmer_id": swimmerID, "funded": false})
    }
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "swimmer_id": swimmerID,
        "funded":     true,
        "balance":    balance,
    })
}

// ListBySwimmer returns a swimmer's purchase-order history, newest first.
func (h *PurchaseOrderHandler) ListBySwimmer(c echo.Context) error {
    actor := currentActor(c)
    swimmerID := pathID(c, "id")
    if swimmerID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid swimmer id"})
    }
    swimmer, err := h.Swimmers.GetByID(c.Request().Context(), swimmerID)
    if err != nil {
        return writeError(c, err)
    }
    if !actor.Role.Can(model.CapApproveAuthorizations) && swimmer.ParentID != actor.ID {
        return writeError(c, repository.ErrForbidden)
    }
    orders, err := h.Orders.ListBySwimmer(c.Request().Context(), swimmerID)
    if err != nil {
        return writeError(c, err)
    }
    views := make([]poView, 0, len(orders))
    for i := range orders {
        views = append(views, toPOView(&orders[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{"purchase_orders": views})
}
