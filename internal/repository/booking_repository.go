package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/aquadapt/swimbook/internal/model"
)

// BookingRepo provides CRUD operations for bookings.  A booking ties one
// swimmer to one session; the capacity accounting lives on the session row
// (see SessionRepo.TryBookTx), so this repository only ever inserts and
// mutates booking rows.  All timestamps are UTC.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, reference, session_id, swimmer_id, parent_id, status,
    funding_state, purchase_order_id, cancel_reason, cancel_source, cancelled_at,
    cancelled_by, created_at, updated_at`

func scanBooking(row interface {
    Scan(dest ...interface{}) error
}) (*model.Booking, error) {
    var b model.Booking
    var poID, cancelledBy sql.NullInt64
    var reason, source sql.NullString
    var cancelledAt sql.NullTime
    err := row.Scan(&b.ID, &b.Reference, &b.SessionID, &b.SwimmerID, &b.ParentID,
        &b.Status, &b.FundingState, &poID, &reason, &source, &cancelledAt,
        &cancelledBy, &b.CreatedAt, &b.UpdatedAt)
    if err != nil {
        return nil, err
    }
    if poID.Valid {
        v := uint64(poID.Int64)
        b.PurchaseOrderID = &v
    }
    if reason.Valid {
        b.CancelReason = &reason.String
    }
    if source.Valid {
        cs := model.CancellationSource(source.String)
        b.CancelSource = &cs
    }
    if cancelledAt.Valid {
        t := cancelledAt.Time.UTC()
        b.CancelledAt = &t
    }
    if cancelledBy.Valid {
        v := uint64(cancelledBy.Int64)
        b.CancelledBy = &v
    }
    return &b, nil
}

// CreateTx inserts a new booking within the provided transaction and
// populates the generated ID and row timestamps on the passed struct.  The
// caller must commit or roll back the transaction.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
    const q = `INSERT INTO bookings (reference, session_id, swimmer_id, parent_id, status, funding_state, purchase_order_id)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
    var poID interface{}
    if b.PurchaseOrderID != nil {
        poID = *b.PurchaseOrderID
    }
    result, err := tx.ExecContext(ctx, q, b.Reference, b.SessionID, b.SwimmerID,
        b.ParentID, b.Status, b.FundingState, poID)
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    b.ID = uint64(id)
    // Query back the row to populate DB-side defaults.
    row := tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, b.ID)
    got, err := scanBooking(row)
    if err != nil {
        return err
    }
    *b = *got
    return nil
}

// GetByID fetches one booking.  It returns ErrBookingNotFound when the id
// does not exist.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
    row := r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
    b, err := scanBooking(row)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrBookingNotFound
    }
    return b, err
}

// HasOverlapTx reports whether the swimmer already has a pending or
// confirmed booking whose session time range intersects [start, end).
func (r *BookingRepo) HasOverlapTx(ctx context.Context, tx *sql.Tx, swimmerID uint64, start, end time.Time) (bool, error) {
    const q = `SELECT EXISTS(
                 SELECT 1 FROM bookings b
                 JOIN sessions s ON s.id = b.session_id
                 WHERE b.swimmer_id = ?
                   AND b.status IN ('PENDING','CONFIRMED')
                   AND s.starts_at < ? AND s.ends_at > ?)`
    var exists bool
    err := tx.QueryRowContext(ctx, q, swimmerID, end.UTC(), start.UTC()).Scan(&exists)
    return exists, err
}

// CountCreatedTodayTx counts bookings the swimmer created during the given
// UTC calendar day, regardless of their current status.  Cancelling a
// booking does not give the day's slot back; the limit caps creations.
func (r *BookingRepo) CountCreatedTodayTx(ctx context.Context, tx *sql.Tx, swimmerID uint64, dayStart, dayEnd time.Time) (int, error) {
    const q = `SELECT COUNT(*) FROM bookings
               WHERE swimmer_id = ? AND created_at >= ? AND created_at < ?`
    var n int
    err := tx.QueryRowContext(ctx, q, swimmerID, dayStart.UTC(), dayEnd.UTC()).Scan(&n)
    return n, err
}

// CancelTx marks a booking cancelled with reason/source/actor metadata.  It
// returns false when the booking was not in a cancellable state, which lets
// a retried cancellation pass through as a no-op.
func (r *BookingRepo) CancelTx(ctx context.Context, tx *sql.Tx, bookingID uint64, reason string, source model.CancellationSource, actorID uint64) (bool, error) {
    const q = `UPDATE bookings
               SET status = 'CANCELLED', cancel_reason = ?, cancel_source = ?,
                   cancelled_by = ?, cancelled_at = UTC_TIMESTAMP(), updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND status IN ('PENDING','CONFIRMED')`
    res, err := tx.ExecContext(ctx, q, reason, source, actorID, bookingID)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    return n > 0, err
}

// PendingOverflowBySwimmerTx returns the swimmer's overflow bookings still
// awaiting a coordinator decision, oldest first.
func (r *BookingRepo) PendingOverflowBySwimmerTx(ctx context.Context, tx *sql.Tx, swimmerID uint64) ([]model.Booking, error) {
    const q = `SELECT ` + bookingColumns + ` FROM bookings
               WHERE swimmer_id = ? AND status = 'PENDING' AND funding_state = 'AWAITING_APPROVAL'
               ORDER BY created_at ASC`
    rows, err := tx.QueryContext(ctx, q, swimmerID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.Booking
    for rows.Next() {
        b, err := scanBooking(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *b)
    }
    return out, rows.Err()
}

// ConfirmOverflowTx flips one pending overflow booking to confirmed against
// the approved purchase order.  Already-resolved bookings match zero rows,
// keeping a retried approval idempotent.
func (r *BookingRepo) ConfirmOverflowTx(ctx context.Context, tx *sql.Tx, bookingID, purchaseOrderID uint64) (bool, error) {
    const q = `UPDATE bookings
               SET status = 'CONFIRMED', funding_state = 'AUTHORIZED',
                   purchase_order_id = ?, updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND status = 'PENDING' AND funding_state = 'AWAITING_APPROVAL'`
    res, err := tx.ExecContext(ctx, q, purchaseOrderID, bookingID)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    return n > 0, err
}

// DeclineOverflowTx cancels one pending overflow booking, recording the
// authorization decline as the cancellation source.
func (r *BookingRepo) DeclineOverflowTx(ctx context.Context, tx *sql.Tx, bookingID, actorID uint64) (bool, error) {
    const q = `UPDATE bookings
               SET status = 'CANCELLED', funding_state = 'DECLINED',
                   cancel_reason = 'authorization declined', cancel_source = ?,
                   cancelled_by = ?, cancelled_at = UTC_TIMESTAMP(), updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND status = 'PENDING' AND funding_state = 'AWAITING_APPROVAL'`
    res, err := tx.ExecContext(ctx, q, model.CancelledByAuthDecline, actorID, bookingID)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    return n > 0, err
}

// CompleteBySessionTx marks the session's confirmed bookings completed once
// the session itself completes.
func (r *BookingRepo) CompleteBySessionTx(ctx context.Context, tx *sql.Tx, sessionID uint64) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE bookings SET status = 'COMPLETED', updated_at = UTC_TIMESTAMP()
         WHERE session_id = ? AND status = 'CONFIRMED'`, sessionID)
    return err
}

// BookingDetail joins a booking with its session for client display.
type BookingDetail struct {
    ID           uint64              `json:"id"`
    Reference    string              `json:"reference"`
    SessionID    uint64              `json:"session_id"`
    SwimmerID    uint64              `json:"swimmer_id"`
    Status       model.BookingStatus `json:"status"`
    FundingState model.FundingState  `json:"funding_state"`
    Location     string              `json:"location"`
    StartsAt     time.Time           `json:"starts_at"`
    EndsAt       time.Time           `json:"ends_at"`
    CreatedAt    time.Time           `json:"created_at"`
}

// ListByParent returns bookings made by a parent across all their swimmers,
// newest first, with the session schedule joined in.
func (r *BookingRepo) ListByParent(ctx context.Context, parentID uint64) ([]BookingDetail, error) {
    const q = `SELECT b.id, b.reference, b.session_id, b.swimmer_id, b.status, b.funding_state,
                      s.location, s.starts_at, s.ends_at, b.created_at
               FROM bookings b
               JOIN sessions s ON s.id = b.session_id
               WHERE b.parent_id = ?
               ORDER BY b.created_at DESC`
    rows, err := r.db.QueryContext(ctx, q, parentID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    details := make([]BookingDetail, 0)
    for rows.Next() {
        var d BookingDetail
        if err := rows.Scan(&d.ID, &d.Reference, &d.SessionID, &d.SwimmerID,
            &d.Status, &d.FundingState, &d.Location, &d.StartsAt, &d.EndsAt, &d.CreatedAt); err != nil {
            return nil, err
        }
        d.StartsAt = d.StartsAt.UTC()
        d.EndsAt = d.EndsAt.UTC()
        details = append(details, d)
    }
    return details, rows.Err()
}
