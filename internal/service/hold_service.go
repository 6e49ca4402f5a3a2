package service

import (
    "context"
    "time"

    "github.com/aquadapt/swimbook/internal/model"
    "github.com/aquadapt/swimbook/internal/repository"
)

// HoldStore is the slice of session persistence the hold manager needs.
// *repository.SessionRepo satisfies it; tests use an in-memory stub.
type HoldStore interface {
    GetByID(ctx context.Context, id uint64) (*model.Session, error)
    AcquireHold(ctx context.Context, sessionID, userID uint64, expiresAt time.Time) (bool, error)
    ReleaseHold(ctx context.Context, sessionID, userID uint64) error
}

// HoldService grants a single user a short exclusive window on a session so
// they can finish the booking flow without losing the spot.  Correctness
// rests entirely on the store's atomic conditional update; this service adds
// the expiry computation and turns a failed acquire into the precise
// conflict the caller can act on.
//
// Expiry is lazy: nothing sweeps stale holds.  A hold past its expiry is
// simply overwritable by the next acquirer, which is enforced inside the
// store's single UPDATE statement.
type HoldService struct {
    store HoldStore
    ttl   time.Duration
    now   func() time.Time
}

// NewHoldService returns a hold manager with the given hold duration.
func NewHoldService(store HoldStore, ttl time.Duration) *HoldService {
    return &HoldService{store: store, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

// Duration exposes the configured hold window for response payloads.
func (s *HoldService) Duration() time.Duration { return s.ttl }

// Place acquires (or refreshes) the hold on a session for userID and
// returns the new expiry.  When the atomic acquire matches no row, the
// session is fetched once to classify the failure:
//
//	ErrSessionNotFound – the session does not exist
//	ErrSessionNotOpen  – draft, cancelled or completed
//	ErrSessionFull     – no spots remaining
//	ErrSessionHeld     – a live hold belongs to someone else
//
// Re-calling as the current holder refreshes the expiry rather than failing.
func (s *HoldService) Place(ctx context.Context, sessionID, userID uint64) (time.Time, error) {
    expiresAt := s.now().Add(s.ttl)
    ok, err := s.store.AcquireHold(ctx, sessionID, userID, expiresAt)
    if err != nil {
        return time.Time{}, err
    }
    if ok {
        return expiresAt, nil
    }
    // The acquire is the authority; this read only names the reason.
    sess, err := s.store.GetByID(ctx, sessionID)
    if err != nil {
        return time.Time{}, err
    }
    switch {
    case sess.Status != model.SessionAvailable && sess.Status != model.SessionBooked:
        return time.Time{}, repository.ErrSessionNotOpen
    case sess.IsFull():
        return time.Time{}, repository.ErrSessionFull
    case sess.HeldAgainst(userID, s.now()):
        return time.Time{}, repository.ErrSessionHeld
    default:
        // Lost a race that resolved between the UPDATE and the read.
        return time.Time{}, repository.ErrSessionHeld
    }
}

// Release clears the caller's hold.  Releasing a hold you no longer own —
// because it expired and was taken over, or was never yours — is a silent
// no-op: the conditional update in the store matches nothing and the other
// holder is untouched.
func (s *HoldService) Release(ctx context.Context, sessionID, userID uint64) error {
    return s.store.ReleaseHold(ctx, sessionID, userID)
}
