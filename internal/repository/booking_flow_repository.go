package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/aquadapt/swimbook/internal/model"
)

// BookParams describes one booking to persist atomically.
type BookParams struct {
    SessionID       uint64
    SwimmerID       uint64
    ParentID        uint64
    ActorID         uint64
    Reference       string
    Overflow        bool    // true books PENDING/AWAITING_APPROVAL without consuming
    PurchaseOrderID *uint64 // nil means private pay
    DailyLimit      int
}

// CancelParams describes a cancellation.
type CancelParams struct {
    BookingID uint64
    ActorID   uint64
    Reason    string
    Source    model.CancellationSource
}

// BookingFlowRepo implements service.BookingStore.  It composes the row
// repositories into the transactional units the booking flow needs: each
// Book/Cancel/CompleteSession call is one database transaction, so the
// conflict checks, the conditional capacity update and the row writes
// either all apply or none do.
type BookingFlowRepo struct {
    db       *sql.DB
    sessions *SessionRepo
    bookings *BookingRepo
    orders   *PurchaseOrderRepo
    swimmers *SwimmerRepo
}

// NewBookingFlowRepo builds the production booking store.
func NewBookingFlowRepo(db *sql.DB, sessions *SessionRepo, bookings *BookingRepo, orders *PurchaseOrderRepo, swimmers *SwimmerRepo) *BookingFlowRepo {
    return &BookingFlowRepo{db: db, sessions: sessions, bookings: bookings, orders: orders, swimmers: swimmers}
}

func (r *BookingFlowRepo) GetSession(ctx context.Context, id uint64) (*model.Session, error) {
    return r.sessions.GetByID(ctx, id)
}

func (r *BookingFlowRepo) GetSwimmer(ctx context.Context, id uint64) (*model.Swimmer, error) {
    return r.swimmers.GetByID(ctx, id)
}

func (r *BookingFlowRepo) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
    return r.bookings.GetByID(ctx, id)
}

// Book runs the whole booking unit in one transaction:
//
//  1. overlap check against the swimmer's pending/confirmed bookings
//  2. daily creation-count check (UTC calendar day)
//  3. conditional capacity increment that also re-validates the hold
//  4. authorization consumption (bounded conditional update), unless the
//     booking is overflow or private pay
//  5. booking row insert
//
// Steps 3 and 4 are single conditional UPDATEs; a zero row count rolls the
// transaction back with the matching sentinel error, so concurrent racers
// for the last spot or the last authorized session get exactly one winner.
func (r *BookingFlowRepo) Book(ctx context.Context, p BookParams) (*model.Booking, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    // Session schedule is needed for the overlap window.
    var startsAt, endsAt time.Time
    err = tx.QueryRowContext(ctx,
        `SELECT starts_at, ends_at FROM sessions WHERE id = ?`, p.SessionID).
        Scan(&startsAt, &endsAt)
    if err == sql.ErrNoRows {
        return nil, ErrSessionNotFound
    }
    if err != nil {
        return nil, err
    }

    overlap, err := r.bookings.HasOverlapTx(ctx, tx, p.SwimmerID, startsAt, endsAt)
    if err != nil {
        return nil, err
    }
    if overlap {
        return nil, ErrOverlap
    }

    now := time.Now().UTC()
    dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
    created, err := r.bookings.CountCreatedTodayTx(ctx, tx, p.SwimmerID, dayStart, dayStart.Add(24*time.Hour))
    if err != nil {
        return nil, err
    }
    if created >= p.DailyLimit {
        return nil, ErrDailyLimit
    }

    ok, err := r.sessions.TryBookTx(ctx, tx, p.SessionID, p.ActorID)
    if err != nil {
        return nil, err
    }
    if !ok {
        return nil, r.classifyBookFailure(ctx, tx, p.SessionID, p.ActorID)
    }

    b := &model.Booking{
        Reference:       p.Reference,
        SessionID:       p.SessionID,
        SwimmerID:       p.SwimmerID,
        ParentID:        p.ParentID,
        Status:          model.BookingConfirmed,
        FundingState:    model.FundingPrivatePay,
        PurchaseOrderID: nil,
    }
    switch {
    case p.PurchaseOrderID != nil && p.Overflow:
        b.Status = model.BookingPending
        b.FundingState = model.FundingAwaitingApproval
        // The purchase order is recorded once the overflow is approved.
    case p.PurchaseOrderID != nil:
        consumed, err := r.orders.ConsumeTx(ctx, tx, *p.PurchaseOrderID, 1)
        if err != nil {
            return nil, err
        }
        if !consumed {
            // Balance moved under us since the caller computed the split.
            return nil, ErrAuthorizationExhausted
        }
        b.FundingState = model.FundingAuthorized
        b.PurchaseOrderID = p.PurchaseOrderID
    }

    if err := r.bookings.CreateTx(ctx, tx, b); err != nil {
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true
    return b, nil
}

// classifyBookFailure names why the conditional capacity update matched
// nothing.  The read happens inside the same transaction but the UPDATE
// remains the authority; this only picks the sentinel.
func (r *BookingFlowRepo) classifyBookFailure(ctx context.Context, tx *sql.Tx, sessionID, actorID uint64) error {
    row := tx.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, sessionID)
    sess, err := scanSession(row)
    if err == sql.ErrNoRows {
        return ErrSessionNotFound
    }
    if err != nil {
        return err
    }
    switch {
    case sess.Status != model.SessionAvailable:
        if sess.Status == model.SessionBooked || sess.IsFull() {
            return ErrSessionFull
        }
        return ErrSessionNotOpen
    case sess.IsFull():
        return ErrSessionFull
    case sess.HeldAgainst(actorID, time.Now().UTC()):
        return ErrSessionHeld
    default:
        return ErrSessionHeld
    }
}

// Cancel cancels the booking, releases its session spot and refunds the
// consumed authorization unit when the session has not started yet.  The
// bool result reports whether anything changed; a repeat cancellation
// matches nothing and returns the current row unchanged.
func (r *BookingFlowRepo) Cancel(ctx context.Context, p CancelParams) (*model.Booking, bool, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, false, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    row := tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ? FOR UPDATE`, p.BookingID)
    b, err := scanBooking(row)
    if err == sql.ErrNoRows {
        return nil, false, ErrBookingNotFound
    }
    if err != nil {
        return nil, false, err
    }

    changed, err := r.bookings.CancelTx(ctx, tx, p.BookingID, p.Reason, p.Source, p.ActorID)
    if err != nil {
        return nil, false, err
    }
    if changed {
        if err := r.sessions.ReleaseSpotTx(ctx, tx, b.SessionID); err != nil {
            return nil, false, err
        }
        if b.FundingState == model.FundingAuthorized && b.PurchaseOrderID != nil {
            var startsAt time.Time
            if err := tx.QueryRowContext(ctx,
                `SELECT starts_at FROM sessions WHERE id = ?`, b.SessionID).Scan(&startsAt); err != nil {
                return nil, false, err
            }
            if startsAt.After(time.Now().UTC()) {
                if err := r.orders.RefundTx(ctx, tx, *b.PurchaseOrderID, 1); err != nil {
                    return nil, false, err
                }
            }
        }
    }

    row = tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, p.BookingID)
    updated, err := scanBooking(row)
    if err != nil {
        return nil, false, err
    }
    if err := tx.Commit(); err != nil {
        return nil, false, err
    }
    committed = true
    return updated, changed, nil
}

// CompleteSession marks a past session completed and settles its confirmed
// bookings in the same transaction.
func (r *BookingFlowRepo) CompleteSession(ctx context.Context, sessionID uint64) (bool, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return false, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    done, err := r.sessions.CompleteTx(ctx, tx, sessionID)
    if err != nil {
        return false, err
    }
    if done {
        if err := r.bookings.CompleteBySessionTx(ctx, tx, sessionID); err != nil {
            return false, err
        }
    }
    if err := tx.Commit(); err != nil {
        return false, err
    }
    committed = true
    return done, nil
}
