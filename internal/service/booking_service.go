package service

import (
    "context"
    "errors"
    "fmt"
    "log"
    "time"

    "github.com/google/uuid"

    "github.com/aquadapt/swimbook/internal/model"
    q "github.com/aquadapt/swimbook/internal/queue"
    "github.com/aquadapt/swimbook/internal/repository"
)

// Actor is the authenticated user behind a request.
type Actor struct {
    ID   uint64
    Role model.Role
}

// BookingStore is the persistence contract for the booking flow.  Book and
// Cancel are transactional units: each runs the conflict checks, the
// conditional capacity update and the row writes in one database
// transaction, so a failure leaves nothing half-applied.
// *repository.BookingFlowRepo is the production implementation.
type BookingStore interface {
    GetSession(ctx context.Context, id uint64) (*model.Session, error)
    GetSwimmer(ctx context.Context, id uint64) (*model.Swimmer, error)
    Book(ctx context.Context, p repository.BookParams) (*model.Booking, error)
    GetBooking(ctx context.Context, id uint64) (*model.Booking, error)
    Cancel(ctx context.Context, p repository.CancelParams) (*model.Booking, bool, error)
    CompleteSession(ctx context.Context, sessionID uint64) (bool, error)
}

// ConfirmRequest asks to book one or more sessions for a swimmer.  Multiple
// sessions arrive when a parent books a recurring series in one step.
type ConfirmRequest struct {
    SwimmerID           uint64
    SessionIDs          []uint64
    AcknowledgeOverflow bool
}

// OverflowWarning is returned instead of bookings when the request would
// exceed the swimmer's authorization and the client has not yet consented.
// The client re-submits with AcknowledgeOverflow set after showing it.
type OverflowWarning struct {
    SessionsRequested uint32   `json:"sessions_requested"`
    SessionsAvailable uint32   `json:"sessions_available"`
    Warnings          []string `json:"warnings"`
}

// ConfirmResult carries the created bookings, or the warning that blocked
// them.
type ConfirmResult struct {
    Bookings []model.Booking  `json:"bookings"`
    Warning  *OverflowWarning `json:"warning,omitempty"`
}

// BookingService converts holds into bookings.  It owns the funding split:
// sessions covered by the swimmer's authorization confirm immediately and
// consume a unit; the overflow books as pending for coordinator approval;
// unfunded swimmers book as private pay.  Everything contended is delegated
// to the store's atomic transactional units.
type BookingService struct {
    store      BookingStore
    ledger     *LedgerService
    notifier   Notifier
    dailyLimit int
    now        func() time.Time
}

// NewBookingService wires the booking flow.
func NewBookingService(store BookingStore, ledger *LedgerService, notifier Notifier, dailyLimit int) *BookingService {
    return &BookingService{
        store:      store,
        ledger:     ledger,
        notifier:   notifier,
        dailyLimit: dailyLimit,
        now:        func() time.Time { return time.Now().UTC() },
    }
}

// Confirm books the requested sessions for the swimmer.
//
// The hold is never trusted: every precondition is re-validated inside the
// store's booking transaction, where the capacity increment is a single
// conditional update.  Sessions are booked one per transaction, in request
// order; on the first failure the error is returned and the bookings already
// made stand — each is an independently valid reservation the parent can
// keep or cancel.
func (s *BookingService) Confirm(ctx context.Context, actor Actor, req ConfirmRequest) (*ConfirmResult, error) {
    if req.SwimmerID == 0 || len(req.SessionIDs) == 0 {
        return nil, fmt.Errorf("%w: swimmer and sessions required", ErrValidation)
    }
    swimmer, err := s.store.GetSwimmer(ctx, req.SwimmerID)
    if err != nil {
        return nil, err
    }
    if !actor.Role.Can(model.CapManageAllBookings) {
        if !actor.Role.Can(model.CapBookSessions) || swimmer.ParentID != actor.ID {
            return nil, repository.ErrForbidden
        }
    }

    count := uint32(len(req.SessionIDs))
    var poID *uint64
    split := ReservationSplit{} // all overflow-free for private pay
    funded := false
    balance, err := s.ledger.AvailableSessions(ctx, req.SwimmerID)
    switch {
    case err == nil:
        funded = true
        poID = &balance.PurchaseOrderID
        split = SplitReservation(balance, count)
    case errors.Is(err, repository.ErrNoActiveAuthorization):
        // Unfunded swimmer: private pay, no overflow concept.
    default:
        return nil, err
    }

    if funded && split.Overflow > 0 && !req.AcknowledgeOverflow {
        return &ConfirmResult{Warning: &OverflowWarning{
            SessionsRequested: count,
            SessionsAvailable: balance.Available,
            Warnings: []string{
                fmt.Sprintf("authorization %d covers %d of %d requested sessions", balance.PurchaseOrderID, split.WithinAuthorization, count),
                fmt.Sprintf("%d sessions will be booked pending coordinator approval", split.Overflow),
            },
        }}, nil
    }

    bookings := make([]model.Booking, 0, count)
    for i, sessionID := range req.SessionIDs {
        p := repository.BookParams{
            SessionID:  sessionID,
            SwimmerID:  req.SwimmerID,
            ParentID:   swimmer.ParentID,
            ActorID:    actor.ID,
            Reference:  uuid.NewString(),
            DailyLimit: s.dailyLimit,
        }
        if funded {
            p.PurchaseOrderID = poID
            p.Overflow = uint32(i) >= split.WithinAuthorization
        }
        b, err := s.store.Book(ctx, p)
        if err != nil {
            return nil, err
        }
        bookings = append(bookings, *b)
        if b.Status == model.BookingConfirmed {
            s.publishConfirmed(ctx, b)
        }
    }

    if funded && split.WithinAuthorization > 0 {
        // Consumption may have crossed the renewal threshold.  Alerting is
        // best-effort; the bookings already stand.
        if _, err := s.ledger.CheckRenewalAlert(ctx, balance.PurchaseOrderID); err != nil {
            log.Printf("booking: renewal alert check failed for po=%d: %v", balance.PurchaseOrderID, err)
        }
    }
    return &ConfirmResult{Bookings: bookings}, nil
}

// Cancel cancels a booking on behalf of the actor.  Parents may cancel
// bookings they made; staff may cancel any.  Cancelling an already-cancelled
// or completed booking is an idempotent no-op returning the current row.
// The store's transactional unit releases the session spot and refunds the
// consumed authorization unit when the session has not started yet.
func (s *BookingService) Cancel(ctx context.Context, actor Actor, bookingID uint64, reason string) (*model.Booking, error) {
    b, err := s.store.GetBooking(ctx, bookingID)
    if err != nil {
        return nil, err
    }
    source := model.CancelledByStaff
    if !actor.Role.Can(model.CapManageAllBookings) {
        if b.ParentID != actor.ID {
            return nil, repository.ErrForbidden
        }
        source = model.CancelledByParent
    }
    cancelled, _, err := s.store.Cancel(ctx, repository.CancelParams{
        BookingID: bookingID,
        ActorID:   actor.ID,
        Reason:    reason,
        Source:    source,
    })
    return cancelled, err
}

// CompleteSession marks a past session and its confirmed bookings completed.
// It returns false when the session is not completable (not past, or not in
// a completable state), which a retried call treats as success already done.
func (s *BookingService) CompleteSession(ctx context.Context, actor Actor, sessionID uint64) (bool, error) {
    if !actor.Role.Can(model.CapManageSessions) {
        return false, repository.ErrForbidden
    }
    return s.store.CompleteSession(ctx, sessionID)
}

func (s *BookingService) publishConfirmed(ctx context.Context, b *model.Booking) {
    sess, err := s.store.GetSession(ctx, b.SessionID)
    if err != nil {
        // Event enrichment only; the booking itself is committed.
        return
    }
    s.notifier.BookingConfirmed(ctx, q.BookingConfirmedEvent{
        EventID:      uuid.NewString(),
        BookingID:    b.ID,
        Reference:    b.Reference,
        SessionID:    b.SessionID,
        SwimmerID:    b.SwimmerID,
        ParentID:     b.ParentID,
        Location:     sess.Location,
        StartsAt:     sess.StartsAt.Format(time.RFC3339),
        EndsAt:       sess.EndsAt.Format(time.RFC3339),
        FundingState: string(b.FundingState),
        ConfirmedAt:  s.now().Format(time.RFC3339),
    })
}

// ErrValidation marks malformed input the handlers map to HTTP 400.
var ErrValidation = errors.New("validation error")
