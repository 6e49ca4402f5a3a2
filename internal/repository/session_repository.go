package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"
    "time"

    "github.com/aquadapt/swimbook/internal/model"
)

// SessionRepo provides data access to the sessions table.  The hold and
// capacity mutations are single conditional UPDATE statements whose
// RowsAffected value decides success.  Two concurrent requests racing for
// the last spot or for the hold therefore resolve inside the database; no
// method here ever reads a row and then writes it back.  All timestamps are
// UTC.
type SessionRepo struct {
    db *sql.DB
}

// NewSessionRepo returns a new SessionRepo bound to the provided database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions that
// span sessions, bookings and purchase orders.
func (r *SessionRepo) DB() *sql.DB { return r.db }

const sessionColumns = `id, instructor_id, location, booking_type, starts_at, ends_at,
    max_capacity, booking_count, status, held_by, hold_expires_at, created_at, updated_at`

func scanSession(row interface {
    Scan(dest ...interface{}) error
}) (*model.Session, error) {
    var s model.Session
    var heldBy sql.NullInt64
    var holdExp sql.NullTime
    err := row.Scan(&s.ID, &s.InstructorID, &s.Location, &s.BookingType,
        &s.StartsAt, &s.EndsAt, &s.MaxCapacity, &s.BookingCount, &s.Status,
        &heldBy, &holdExp, &s.CreatedAt, &s.UpdatedAt)
    if err != nil {
        return nil, err
    }
    if heldBy.Valid {
        v := uint64(heldBy.Int64)
        s.HeldBy = &v
    }
    if holdExp.Valid {
        t := holdExp.Time.UTC()
        s.HoldExpiresAt = &t
    }
    return &s, nil
}

// GetByID fetches one session.  It returns ErrSessionNotFound when the id
// does not exist.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (*model.Session, error) {
    row := r.db.QueryRowContext(ctx,
        `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
    s, err := scanSession(row)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrSessionNotFound
    }
    return s, err
}

// AcquireHold attempts to take (or refresh) the exclusive hold on a session
// in one atomic statement.  The WHERE clause admits exactly three holder
// states: unheld, already held by this user, or held by someone whose expiry
// has passed.  It also requires the session to be open and below capacity so
// a hold can never be placed on a full or cancelled slot.  It returns true
// when the hold was acquired.
func (r *SessionRepo) AcquireHold(ctx context.Context, sessionID, userID uint64, expiresAt time.Time) (bool, error) {
    const q = `UPDATE sessions
               SET held_by = ?, hold_expires_at = ?, updated_at = UTC_TIMESTAMP()
               WHERE id = ?
                 AND status = 'AVAILABLE'
                 AND booking_count < max_capacity
                 AND (held_by IS NULL OR held_by = ? OR hold_expires_at <= UTC_TIMESTAMP())`
    res, err := execOnceRetry(ctx, r.db, q, userID, expiresAt.UTC(), sessionID, userID)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

// ReleaseHold clears the hold only when userID is the current holder.  A
// release by a non-holder, or of a hold that no longer exists, matches zero
// rows and is silently ignored; releasing must never error or disturb
// someone else's hold.
func (r *SessionRepo) ReleaseHold(ctx context.Context, sessionID, userID uint64) error {
    const q = `UPDATE sessions
               SET held_by = NULL, hold_expires_at = NULL, updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND held_by = ?`
    _, err := execOnceRetry(ctx, r.db, q, sessionID, userID)
    return err
}

// TryBookTx increments booking_count by one inside the caller's transaction,
// flipping the status to BOOKED when the increment reaches capacity and
// clearing any hold in the same statement.  The guard re-checks everything
// the hold promised: open status, spare capacity, and that no live hold
// belongs to another user.  It returns false when the guard matched nothing,
// i.e. the spot was lost to a concurrent booking or the hold was stolen.
func (r *SessionRepo) TryBookTx(ctx context.Context, tx *sql.Tx, sessionID, userID uint64) (bool, error) {
    const q = `UPDATE sessions
               SET booking_count = booking_count + 1,
                   status = CASE WHEN booking_count + 1 >= max_capacity THEN 'BOOKED' ELSE status END,
                   held_by = NULL, hold_expires_at = NULL,
                   updated_at = UTC_TIMESTAMP()
               WHERE id = ?
                 AND status = 'AVAILABLE'
                 AND booking_count < max_capacity
                 AND (held_by IS NULL OR held_by = ? OR hold_expires_at <= UTC_TIMESTAMP())`
    res, err := execOnceRetry(ctx, tx, q, sessionID, userID)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

// ReleaseSpotTx decrements booking_count after a cancellation, reopening a
// BOOKED session.  The booking_count > 0 guard keeps a double cancellation
// from driving the counter negative.
func (r *SessionRepo) ReleaseSpotTx(ctx context.Context, tx *sql.Tx, sessionID uint64) error {
    const q = `UPDATE sessions
               SET booking_count = booking_count - 1,
                   status = CASE WHEN status = 'BOOKED' THEN 'AVAILABLE' ELSE status END,
                   updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND booking_count > 0`
    _, err := execOnceRetry(ctx, tx, q, sessionID)
    return err
}

// CreateBatch inserts multiple draft sessions in one statement.  Staff
// create a term's schedule in bulk and open sessions individually later.
// Passing an empty slice has no effect and returns nil.
func (r *SessionRepo) CreateBatch(ctx context.Context, sessions []model.Session) error {
    if len(sessions) == 0 {
        return nil
    }
    query := `INSERT INTO sessions (instructor_id, location, booking_type, starts_at, ends_at, max_capacity, status) VALUES `
    args := make([]interface{}, 0, len(sessions)*7)
    for i, s := range sessions {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?, ?, ?, 'DRAFT')"
        args = append(args, s.InstructorID, s.Location, s.BookingType,
            s.StartsAt.UTC(), s.EndsAt.UTC(), s.MaxCapacity)
    }
    _, err := r.db.ExecContext(ctx, query, args...)
    return err
}

// Open transitions a draft session to AVAILABLE.  It returns false when the
// session is not in DRAFT (already opened, cancelled, or missing).
func (r *SessionRepo) Open(ctx context.Context, id uint64) (bool, error) {
    res, err := r.db.ExecContext(ctx,
        `UPDATE sessions SET status = 'AVAILABLE', updated_at = UTC_TIMESTAMP()
         WHERE id = ? AND status = 'DRAFT'`, id)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    return n > 0, err
}

// Cancel marks a session CANCELLED from any non-terminal state and returns
// whether a row changed.  Bookings on the session are handled by the caller.
func (r *SessionRepo) Cancel(ctx context.Context, id uint64) (bool, error) {
    res, err := r.db.ExecContext(ctx,
        `UPDATE sessions SET status = 'CANCELLED', held_by = NULL, hold_expires_at = NULL,
            updated_at = UTC_TIMESTAMP()
         WHERE id = ? AND status IN ('DRAFT','AVAILABLE','BOOKED')`, id)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    return n > 0, err
}

// CompleteTx marks a past session COMPLETED inside the caller's transaction.
// Only sessions whose end time has passed qualify.
func (r *SessionRepo) CompleteTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
    res, err := tx.ExecContext(ctx,
        `UPDATE sessions SET status = 'COMPLETED', held_by = NULL, hold_expires_at = NULL,
            updated_at = UTC_TIMESTAMP()
         WHERE id = ? AND status IN ('AVAILABLE','BOOKED') AND ends_at <= UTC_TIMESTAMP()`, id)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    return n > 0, err
}

// DeleteDraft removes a draft session.  Draft is the only state in which a
// session may be physically deleted; anything else is cancelled instead.
func (r *SessionRepo) DeleteDraft(ctx context.Context, id uint64) (bool, error) {
    res, err := r.db.ExecContext(ctx,
        `DELETE FROM sessions WHERE id = ? AND status = 'DRAFT'`, id)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    return n > 0, err
}

// AvailabilityFilter narrows the availability listing.  Zero values mean
// "no filter" for that field.
type AvailabilityFilter struct {
    StartDate    time.Time
    EndDate      time.Time
    InstructorID uint64
    BookingType  model.BookingType
}

// ListAvailable returns open (and full-but-visible) sessions matching the
// filter, ordered by start time.  Cancelled, draft and completed sessions
// never appear.  Callers derive spots_remaining/is_held/is_full from the
// returned rows; holds whose expiry has passed are treated as absent.
func (r *SessionRepo) ListAvailable(ctx context.Context, f AvailabilityFilter) ([]model.Session, error) {
    var sb strings.Builder
    sb.WriteString(`SELECT ` + sessionColumns + ` FROM sessions WHERE status IN ('AVAILABLE','BOOKED')`)
    args := make([]interface{}, 0, 4)
    if !f.StartDate.IsZero() {
        sb.WriteString(` AND starts_at >= ?`)
        args = append(args, f.StartDate.UTC())
    }
    if !f.EndDate.IsZero() {
        sb.WriteString(` AND starts_at < ?`)
        args = append(args, f.EndDate.UTC())
    }
    if f.InstructorID != 0 {
        sb.WriteString(` AND instructor_id = ?`)
        args = append(args, f.InstructorID)
    }
    if f.BookingType != "" {
        sb.WriteString(` AND booking_type = ?`)
        args = append(args, f.BookingType)
    }
    sb.WriteString(` ORDER BY starts_at ASC`)
    rows, err := r.db.QueryContext(ctx, sb.String(), args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    sessions := make([]model.Session, 0)
    for rows.Next() {
        s, err := scanSession(rows)
        if err != nil {
            return nil, err
        }
        sessions = append(sessions, *s)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return sessions, nil
}
