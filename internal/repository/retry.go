package repository

import (
    "context"
    "database/sql"
    "errors"
    "log"
)

// execer is satisfied by both *sql.DB and *sql.Tx so the retry helper can be
// used inside and outside transactions.
type execer interface {
    ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// execOnceRetry runs a single-statement conditional UPDATE and retries it
// exactly once on a transient driver failure. The statements passed here are
// all-or-nothing by construction (one row, one statement), so a blind retry
// is safe: either the first attempt never applied, or the retry matches zero
// rows and reports no change. Context cancellation is never retried.
func execOnceRetry(ctx context.Context, e execer, query string, args ...interface{}) (sql.Result, error) {
    res, err := e.ExecContext(ctx, query, args...)
    if err == nil {
        return res, nil
    }
    if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
        return nil, err
    }
    log.Printf("repository: retrying conditional update after transient error: %v", err)
    return e.ExecContext(ctx, query, args...)
}
