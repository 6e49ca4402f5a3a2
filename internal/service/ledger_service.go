package service

import (
    "context"
    "time"

    "github.com/google/uuid"

    "github.com/aquadapt/swimbook/internal/model"
    q "github.com/aquadapt/swimbook/internal/queue"
    "github.com/aquadapt/swimbook/internal/repository"
)

// LedgerStore is the purchase-order persistence the ledger needs.  The
// Approve and Decline methods are transactional units: each one atomically
// updates the purchase order and resolves the swimmer's pending overflow
// bookings, returning the refreshed order plus how many bookings were
// confirmed or cancelled.  *repository.AuthorizationFlowRepo is the
// production implementation.
type LedgerStore interface {
    ActiveBySwimmer(ctx context.Context, swimmerID uint64) (*model.PurchaseOrder, error)
    GetByID(ctx context.Context, id uint64) (*model.PurchaseOrder, error)
    Approve(ctx context.Context, poID uint64, authNumber *string) (*model.PurchaseOrder, int, error)
    Decline(ctx context.Context, poID, actorID uint64) (*model.PurchaseOrder, int, error)
}

// Balance is a snapshot of a swimmer's usable authorization.
type Balance struct {
    PurchaseOrderID  uint64 `json:"purchase_order_id"`
    FundingSource    string `json:"funding_source"`
    Authorized       uint32 `json:"authorized"`
    Consumed         uint32 `json:"consumed"`
    Available        uint32 `json:"available"`
    RenewalThreshold uint32 `json:"-"`
}

// ReservationSplit partitions a requested booking count against a balance.
type ReservationSplit struct {
    WithinAuthorization uint32 `json:"within_authorization"`
    Overflow            uint32 `json:"overflow"`
}

// LedgerService tracks how many lesson sessions a funded swimmer may
// consume and runs the overflow-approval workflow.  Consumption itself
// happens inside the booking transaction (see BookingStore.Book); this
// service answers balance questions and carries coordinator decisions.
type LedgerService struct {
    store    LedgerStore
    notifier Notifier
    now      func() time.Time
}

// NewLedgerService returns an authorization ledger.
func NewLedgerService(store LedgerStore, notifier Notifier) *LedgerService {
    return &LedgerService{store: store, notifier: notifier, now: func() time.Time { return time.Now().UTC() }}
}

// AvailableSessions returns the swimmer's balance against their single
// usable authorization.  Available is clamped at zero: consumed can sit
// above authorized while an approved overflow batch awaits renewal, and the
// balance must never go negative in a response.  It returns
// repository.ErrNoActiveAuthorization for unfunded swimmers.
func (s *LedgerService) AvailableSessions(ctx context.Context, swimmerID uint64) (Balance, error) {
    po, err := s.store.ActiveBySwimmer(ctx, swimmerID)
    if err != nil {
        return Balance{}, err
    }
    return Balance{
        PurchaseOrderID:  po.ID,
        FundingSource:    po.FundingSource,
        Authorized:       po.SessionsAuthorized,
        Consumed:         po.SessionsConsumed,
        Available:        po.SessionsAvailable(),
        RenewalThreshold: po.RenewalThreshold,
    }, nil
}

// SplitReservation partitions count requested sessions into the part the
// balance covers now and the overflow that needs coordinator approval.
func SplitReservation(b Balance, count uint32) ReservationSplit {
    if count <= b.Available {
        return ReservationSplit{WithinAuthorization: count}
    }
    return ReservationSplit{
        WithinAuthorization: b.Available,
        Overflow:            count - b.Available,
    }
}

// Approve records a coordinator's approval of a purchase order.
//
// With an authorization number the order becomes ACTIVE, any other live
// authorization for the swimmer is expired, and the swimmer's pending
// overflow bookings are confirmed with their consumption counted.  Without
// a number the order becomes APPROVED_PENDING_AUTH: bookable and counted,
// but billing waits for the number.  Approving an already-active order is
// an idempotent no-op.  Only actors with the approve-authorizations
// capability may call this.
func (s *LedgerService) Approve(ctx context.Context, actor Actor, poID uint64, authNumber *string) (*model.PurchaseOrder, int, error) {
    if !actor.Role.Can(model.CapApproveAuthorizations) {
        return nil, 0, repository.ErrForbidden
    }
    po, confirmed, err := s.store.Approve(ctx, poID, authNumber)
    if err != nil {
        return nil, 0, err
    }
    s.notifier.AuthorizationDecided(ctx, q.AuthorizationDecidedEvent{
        EventID:           uuid.NewString(),
        PurchaseOrderID:   po.ID,
        SwimmerID:         po.SwimmerID,
        Status:            string(po.Status),
        Approved:          true,
        ConfirmedBookings: confirmed,
        DecidedAt:         s.now().Format(time.RFC3339),
    })
    if po.NeedsRenewal() {
        s.alertRenewal(ctx, po)
    }
    return po, confirmed, nil
}

// Decline records a coordinator's rejection.  The swimmer's pending
// overflow bookings are cancelled with "authorization declined" as the
// source, restoring the consumed <= authorized invariant: the overflow
// units were never consumed, and now never will be.  Declining an
// already-declined order is an idempotent no-op.
func (s *LedgerService) Decline(ctx context.Context, actor Actor, poID uint64) (*model.PurchaseOrder, int, error) {
    if !actor.Role.Can(model.CapApproveAuthorizations) {
        return nil, 0, repository.ErrForbidden
    }
    po, cancelled, err := s.store.Decline(ctx, poID, actor.ID)
    if err != nil {
        return nil, 0, err
    }
    s.notifier.AuthorizationDecided(ctx, q.AuthorizationDecidedEvent{
        EventID:           uuid.NewString(),
        PurchaseOrderID:   po.ID,
        SwimmerID:         po.SwimmerID,
        Status:            string(po.Status),
        Approved:          false,
        CancelledBookings: cancelled,
        DecidedAt:         s.now().Format(time.RFC3339),
    })
    return po, cancelled, nil
}

// CheckRenewalAlert reports whether the purchase order's remaining balance
// has fallen to or below its renewal threshold, raising the alert event
// when it has.
func (s *LedgerService) CheckRenewalAlert(ctx context.Context, poID uint64) (bool, error) {
    po, err := s.store.GetByID(ctx, poID)
    if err != nil {
        return false, err
    }
    if !po.NeedsRenewal() {
        return false, nil
    }
    s.alertRenewal(ctx, po)
    return true, nil
}

func (s *LedgerService) alertRenewal(ctx context.Context, po *model.PurchaseOrder) {
    s.notifier.RenewalAlert(ctx, q.RenewalAlertEvent{
        EventID:           uuid.NewString(),
        PurchaseOrderID:   po.ID,
        SwimmerID:         po.SwimmerID,
        FundingSource:     po.FundingSource,
        SessionsRemaining: po.SessionsAvailable(),
        RaisedAt:          s.now().Format(time.RFC3339),
    })
}
