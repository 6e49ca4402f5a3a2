package repository

import (
    "context"
    "database/sql"

    "github.com/aquadapt/swimbook/internal/model"
)

// AuthorizationFlowRepo implements service.LedgerStore.  A coordinator
// decision touches the purchase order and the swimmer's pending overflow
// bookings together, so Approve and Decline each run as one transaction with
// the order row locked for the duration.
type AuthorizationFlowRepo struct {
    db       *sql.DB
    orders   *PurchaseOrderRepo
    bookings *BookingRepo
    sessions *SessionRepo
}

// NewAuthorizationFlowRepo builds the production ledger store.
func NewAuthorizationFlowRepo(db *sql.DB, orders *PurchaseOrderRepo, bookings *BookingRepo, sessions *SessionRepo) *AuthorizationFlowRepo {
    return &AuthorizationFlowRepo{db: db, orders: orders, bookings: bookings, sessions: sessions}
}

func (r *AuthorizationFlowRepo) ActiveBySwimmer(ctx context.Context, swimmerID uint64) (*model.PurchaseOrder, error) {
    return r.orders.ActiveBySwimmer(ctx, swimmerID)
}

func (r *AuthorizationFlowRepo) GetByID(ctx context.Context, id uint64) (*model.PurchaseOrder, error) {
    return r.orders.GetByID(ctx, id)
}

// Approve moves the purchase order forward and settles the swimmer's pending
// overflow bookings, returning the refreshed order and how many bookings
// were confirmed.
//
// Approving an ACTIVE order again is an idempotent no-op.  A DECLINED or
// EXPIRED order cannot be approved; that returns ErrConflict.  When the
// order becomes ACTIVE any other live authorization for the swimmer is
// expired, keeping a single billable order per swimmer.
func (r *AuthorizationFlowRepo) Approve(ctx context.Context, poID uint64, authNumber *string) (*model.PurchaseOrder, int, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, 0, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    po, err := r.orders.GetByIDTx(ctx, tx, poID)
    if err != nil {
        return nil, 0, err
    }
    switch po.Status {
    case model.PurchaseOrderActive:
        if err := tx.Commit(); err != nil {
            return nil, 0, err
        }
        committed = true
        return po, 0, nil
    case model.PurchaseOrderDeclined, model.PurchaseOrderExpired:
        return nil, 0, ErrConflict
    }

    ok, err := r.orders.ApproveTx(ctx, tx, poID, authNumber)
    if err != nil {
        return nil, 0, err
    }
    if !ok {
        // Guarded against above; a state change between the lock and the
        // update would still land here.
        return nil, 0, ErrConflict
    }
    if authNumber != nil {
        if err := r.orders.ExpireOthersTx(ctx, tx, po.SwimmerID, poID); err != nil {
            return nil, 0, err
        }
    }

    // Both approval outcomes make the order bookable, so pending overflow
    // resolves now and the excess consumption is recorded against it.
    pending, err := r.bookings.PendingOverflowBySwimmerTx(ctx, tx, po.SwimmerID)
    if err != nil {
        return nil, 0, err
    }
    confirmed := 0
    for _, b := range pending {
        done, err := r.bookings.ConfirmOverflowTx(ctx, tx, b.ID, poID)
        if err != nil {
            return nil, 0, err
        }
        if done {
            confirmed++
        }
    }
    if confirmed > 0 {
        if err := r.orders.ConsumeOverflowTx(ctx, tx, poID, uint32(confirmed)); err != nil {
            return nil, 0, err
        }
    }

    updated, err := r.orders.GetByIDTx(ctx, tx, poID)
    if err != nil {
        return nil, 0, err
    }
    if err := tx.Commit(); err != nil {
        return nil, 0, err
    }
    committed = true
    return updated, confirmed, nil
}

// Decline rejects the purchase order and cancels the swimmer's pending
// overflow bookings, returning the refreshed order and how many bookings
// were cancelled.  Declining an already-declined order is an idempotent
// no-op; an ACTIVE order cannot be declined and returns ErrConflict.
func (r *AuthorizationFlowRepo) Decline(ctx context.Context, poID, actorID uint64) (*model.PurchaseOrder, int, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, 0, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    po, err := r.orders.GetByIDTx(ctx, tx, poID)
    if err != nil {
        return nil, 0, err
    }
    switch po.Status {
    case model.PurchaseOrderDeclined:
        if err := tx.Commit(); err != nil {
            return nil, 0, err
        }
        committed = true
        return po, 0, nil
    case model.PurchaseOrderActive, model.PurchaseOrderExpired:
        return nil, 0, ErrConflict
    }

    ok, err := r.orders.DeclineTx(ctx, tx, poID)
    if err != nil {
        return nil, 0, err
    }
    if !ok {
        return nil, 0, ErrConflict
    }

    pending, err := r.bookings.PendingOverflowBySwimmerTx(ctx, tx, po.SwimmerID)
    if err != nil {
        return nil, 0, err
    }
    cancelled := 0
    for _, b := range pending {
        done, err := r.bookings.DeclineOverflowTx(ctx, tx, b.ID, actorID)
        if err != nil {
            return nil, 0, err
        }
        if done {
            // The overflow booking took a session spot when it was made;
            // cancelling it gives the spot back.
            if err := r.sessions.ReleaseSpotTx(ctx, tx, b.SessionID); err != nil {
                return nil, 0, err
            }
            cancelled++
        }
    }

    updated, err := r.orders.GetByIDTx(ctx, tx, poID)
    if err != nil {
        return nil, 0, err
    }
    if err := tx.Commit(); err != nil {
        return nil, 0, err
    }
    committed = true
    return updated, cancelled, nil
}
