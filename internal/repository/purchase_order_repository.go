package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/aquadapt/swimbook/internal/model"
)

// PurchaseOrderRepo provides data access to the purchase_orders table.  The
// consumption counter follows the same discipline as session capacity: every
// mutation is a single conditional UPDATE, so two bookings racing for the
// last authorized session resolve inside the database.
type PurchaseOrderRepo struct {
    db *sql.DB
}

// NewPurchaseOrderRepo returns a new PurchaseOrderRepo bound to the database.
func NewPurchaseOrderRepo(db *sql.DB) *PurchaseOrderRepo { return &PurchaseOrderRepo{db: db} }

const poColumns = `id, swimmer_id, funding_source, status, authorization_number,
    sessions_authorized, sessions_consumed, renewal_threshold, valid_from, valid_to,
    created_at, updated_at`

func scanPurchaseOrder(row interface {
    Scan(dest ...interface{}) error
}) (*model.PurchaseOrder, error) {
    var p model.PurchaseOrder
    var authNum sql.NullString
    err := row.Scan(&p.ID, &p.SwimmerID, &p.FundingSource, &p.Status, &authNum,
        &p.SessionsAuthorized, &p.SessionsConsumed, &p.RenewalThreshold,
        &p.ValidFrom, &p.ValidTo, &p.CreatedAt, &p.UpdatedAt)
    if err != nil {
        return nil, err
    }
    if authNum.Valid {
        p.AuthorizationNumber = &authNum.String
    }
    return &p, nil
}

// Create inserts a purchase-order request in PENDING status and populates
// the generated ID.
func (r *PurchaseOrderRepo) Create(ctx context.Context, p *model.PurchaseOrder) error {
    const q = `INSERT INTO purchase_orders
               (swimmer_id, funding_source, status, sessions_authorized, sessions_consumed, renewal_threshold, valid_from, valid_to)
               VALUES (?, ?, 'PENDING', ?, 0, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q, p.SwimmerID, p.FundingSource,
        p.SessionsAuthorized, p.RenewalThreshold, p.ValidFrom.UTC(), p.ValidTo.UTC())
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    p.ID = uint64(id)
    p.Status = model.PurchaseOrderPending
    return nil
}

// GetByID fetches one purchase order.  It returns ErrPurchaseOrderNotFound
// when the id does not exist.
func (r *PurchaseOrderRepo) GetByID(ctx context.Context, id uint64) (*model.PurchaseOrder, error) {
    row := r.db.QueryRowContext(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id = ?`, id)
    p, err := scanPurchaseOrder(row)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrPurchaseOrderNotFound
    }
    return p, err
}

// GetByIDTx is GetByID inside the caller's transaction, locking the row so
// an approval decision reads a stable consumed/authorized pair.
func (r *PurchaseOrderRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.PurchaseOrder, error) {
    row := tx.QueryRowContext(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id = ? FOR UPDATE`, id)
    p, err := scanPurchaseOrder(row)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrPurchaseOrderNotFound
    }
    return p, err
}

// ActiveBySwimmer returns the swimmer's usable authorization: ACTIVE first,
// otherwise APPROVED_PENDING_AUTH (bookable but not yet billable).  It
// returns ErrNoActiveAuthorization when neither exists; the booking flow
// treats that as private pay.
func (r *PurchaseOrderRepo) ActiveBySwimmer(ctx context.Context, swimmerID uint64) (*model.PurchaseOrder, error) {
    const q = `SELECT ` + poColumns + ` FROM purchase_orders
               WHERE swimmer_id = ? AND status IN ('ACTIVE','APPROVED_PENDING_AUTH')
                 AND valid_from <= UTC_TIMESTAMP() AND valid_to >= UTC_TIMESTAMP()
               ORDER BY FIELD(status, 'ACTIVE', 'APPROVED_PENDING_AUTH'), id DESC
               LIMIT 1`
    row := r.db.QueryRowContext(ctx, q, swimmerID)
    p, err := scanPurchaseOrder(row)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrNoActiveAuthorization
    }
    return p, err
}

// ConsumeTx takes n sessions from the authorization, bounded by the
// authorized total.  The sessions_consumed + n <= sessions_authorized guard
// makes the increment atomic; it returns false when the balance cannot cover
// n, in which case the caller books the remainder as overflow.
func (r *PurchaseOrderRepo) ConsumeTx(ctx context.Context, tx *sql.Tx, id uint64, n uint32) (bool, error) {
    const q = `UPDATE purchase_orders
               SET sessions_consumed = sessions_consumed + ?, updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND status IN ('ACTIVE','APPROVED_PENDING_AUTH')
                 AND sessions_consumed + ? <= sessions_authorized`
    res, err := execOnceRetry(ctx, tx, q, n, id, n)
    if err != nil {
        return false, err
    }
    rows, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return rows > 0, nil
}

// ConsumeOverflowTx increments consumption without the authorized bound.
// It is used only when a coordinator confirms overflow bookings: the excess
// is deliberate and visible until the authorization is renewed.
func (r *PurchaseOrderRepo) ConsumeOverflowTx(ctx context.Context, tx *sql.Tx, id uint64, n uint32) error {
    const q = `UPDATE purchase_orders
               SET sessions_consumed = sessions_consumed + ?, updated_at = UTC_TIMESTAMP()
               WHERE id = ?`
    _, err := execOnceRetry(ctx, tx, q, n, id)
    return err
}

// RefundTx returns n consumed sessions to the authorization after a funded
// booking is cancelled before its session starts.  The guard keeps the
// counter from going negative under a retried refund.
func (r *PurchaseOrderRepo) RefundTx(ctx context.Context, tx *sql.Tx, id uint64, n uint32) error {
    const q = `UPDATE purchase_orders
               SET sessions_consumed = sessions_consumed - ?, updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND sessions_consumed >= ?`
    _, err := execOnceRetry(ctx, tx, q, n, id, n)
    return err
}

// ApproveTx moves a pending purchase order to ACTIVE (when an authorization
// number is supplied) or APPROVED_PENDING_AUTH (approval granted, number
// still to come).  Supplying the number later upgrades
// APPROVED_PENDING_AUTH to ACTIVE.  It returns false when the order was in
// neither approvable state.
func (r *PurchaseOrderRepo) ApproveTx(ctx context.Context, tx *sql.Tx, id uint64, authNumber *string) (bool, error) {
    var res sql.Result
    var err error
    if authNumber != nil {
        const q = `UPDATE purchase_orders
                   SET status = 'ACTIVE', authorization_number = ?, updated_at = UTC_TIMESTAMP()
                   WHERE id = ? AND status IN ('PENDING','APPROVED_PENDING_AUTH')`
        res, err = tx.ExecContext(ctx, q, *authNumber, id)
    } else {
        const q = `UPDATE purchase_orders
                   SET status = 'APPROVED_PENDING_AUTH', updated_at = UTC_TIMESTAMP()
                   WHERE id = ? AND status = 'PENDING'`
        res, err = tx.ExecContext(ctx, q, id)
    }
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    return n > 0, err
}

// DeclineTx marks a pending purchase order DECLINED.  Overflow bookings tied
// to the swimmer are cancelled by the caller in the same transaction.
func (r *PurchaseOrderRepo) DeclineTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
    const q = `UPDATE purchase_orders
               SET status = 'DECLINED', updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND status IN ('PENDING','APPROVED_PENDING_AUTH')`
    res, err := tx.ExecContext(ctx, q, id)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    return n > 0, err
}

// ExpireOthersTx expires any other live authorization for the swimmer so at
// most one is active for billing at a time.
func (r *PurchaseOrderRepo) ExpireOthersTx(ctx context.Context, tx *sql.Tx, swimmerID, keepID uint64) error {
    const q = `UPDATE purchase_orders
               SET status = 'EXPIRED', updated_at = UTC_TIMESTAMP()
               WHERE swimmer_id = ? AND id <> ? AND status IN ('ACTIVE','APPROVED_PENDING_AUTH')`
    _, err := tx.ExecContext(ctx, q, swimmerID, keepID)
    return err
}

// ListBySwimmer returns all purchase orders for a swimmer, newest first.
func (r *PurchaseOrderRepo) ListBySwimmer(ctx context.Context, swimmerID uint64) ([]model.PurchaseOrder, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+poColumns+` FROM purchase_orders WHERE swimmer_id = ? ORDER BY created_at DESC`, swimmerID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.PurchaseOrder, 0)
    for rows.Next() {
        p, err := scanPurchaseOrder(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *p)
    }
    return out, rows.Err()
}
