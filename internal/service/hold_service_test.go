package service

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/aquadapt/swimbook/internal/model"
    "github.com/aquadapt/swimbook/internal/repository"
)

// stubHoldStore mirrors the conditional-update semantics of the SQL store in
// memory: acquire succeeds only for an open, non-full session that is
// unheld, held by the caller, or held past expiry.
type stubHoldStore struct {
    sessions map[uint64]*model.Session
    now      func() time.Time
}

func (s *stubHoldStore) GetByID(_ context.Context, id uint64) (*model.Session, error) {
    sess, ok := s.sessions[id]
    if !ok {
        return nil, repository.ErrSessionNotFound
    }
    cp := *sess
    return &cp, nil
}

func (s *stubHoldStore) AcquireHold(_ context.Context, sessionID, userID uint64, expiresAt time.Time) (bool, error) {
    sess, ok := s.sessions[sessionID]
    if !ok {
        return false, nil
    }
    if sess.Status != model.SessionAvailable || sess.BookingCount >= sess.MaxCapacity {
        return false, nil
    }
    now := s.now()
    if sess.HeldBy != nil && *sess.HeldBy != userID && sess.HoldExpiresAt != nil && now.Before(*sess.HoldExpiresAt) {
        return false, nil
    }
    uid := userID
    exp := expiresAt
    sess.HeldBy = &uid
    sess.HoldExpiresAt = &exp
    return true, nil
}

func (s *stubHoldStore) ReleaseHold(_ context.Context, sessionID, userID uint64) error {
    sess, ok := s.sessions[sessionID]
    if !ok {
        return nil
    }
    if sess.HeldBy != nil && *sess.HeldBy == userID {
        sess.HeldBy = nil
        sess.HoldExpiresAt = nil
    }
    return nil
}

func newHoldFixture(t *testing.T) (*HoldService, *stubHoldStore, *time.Time) {
    t.Helper()
    base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
    now := base
    store := &stubHoldStore{
        sessions: map[uint64]*model.Session{
            1: {ID: 1, Status: model.SessionAvailable, MaxCapacity: 4, BookingCount: 0},
            2: {ID: 2, Status: model.SessionAvailable, MaxCapacity: 2, BookingCount: 2},
            3: {ID: 3, Status: model.SessionDraft, MaxCapacity: 4},
        },
        now: func() time.Time { return now },
    }
    svc := NewHoldService(store, 5*time.Minute)
    svc.now = func() time.Time { return now }
    return svc, store, &now
}

func TestPlaceHoldGrantsExclusiveWindow(t *testing.T) {
    svc, _, now := newHoldFixture(t)

    exp, err := svc.Place(context.Background(), 1, 100)
    if err != nil {
        t.Fatalf("place: %v", err)
    }
    if want := now.Add(5 * time.Minute); !exp.Equal(want) {
        t.Fatalf("expiry = %v, want %v", exp, want)
    }

    // A second user is blocked while the hold is live.
    if _, err := svc.Place(context.Background(), 1, 200); !errors.Is(err, repository.ErrSessionHeld) {
        t.Fatalf("second holder: got %v, want ErrSessionHeld", err)
    }
}

func TestPlaceHoldRefreshByHolder(t *testing.T) {
    svc, _, nowPtr := newHoldFixture(t)

    first, err := svc.Place(context.Background(), 1, 100)
    if err != nil {
        t.Fatalf("place: %v", err)
    }
    *nowPtr = nowPtr.Add(2 * time.Minute)
    second, err := svc.Place(context.Background(), 1, 100)
    if err != nil {
        t.Fatalf("refresh: %v", err)
    }
    if !second.After(first) {
        t.Fatalf("refresh did not extend expiry: first=%v second=%v", first, second)
    }
}

func TestPlaceHoldTakesOverExpiredHold(t *testing.T) {
    svc, _, nowPtr := newHoldFixture(t)

    if _, err := svc.Place(context.Background(), 1, 100); err != nil {
        t.Fatalf("place: %v", err)
    }
    // Past expiry the stale hold is overwritable; no sweeper involved.
    *nowPtr = nowPtr.Add(6 * time.Minute)
    if _, err := svc.Place(context.Background(), 1, 200); err != nil {
        t.Fatalf("takeover after expiry: %v", err)
    }
}

func TestPlaceHoldClassifiesFailures(t *testing.T) {
    svc, _, _ := newHoldFixture(t)

    if _, err := svc.Place(context.Background(), 2, 100); !errors.Is(err, repository.ErrSessionFull) {
        t.Fatalf("full session: got %v, want ErrSessionFull", err)
    }
    if _, err := svc.Place(context.Background(), 3, 100); !errors.Is(err, repository.ErrSessionNotOpen) {
        t.Fatalf("draft session: got %v, want ErrSessionNotOpen", err)
    }
    if _, err := svc.Place(context.Background(), 99, 100); !errors.Is(err, repository.ErrSessionNotFound) {
        t.Fatalf("missing session: got %v, want ErrSessionNotFound", err)
    }
}

func TestReleaseHoldIsSilentForNonHolder(t *testing.T) {
    svc, store, _ := newHoldFixture(t)

    if _, err := svc.Place(context.Background(), 1, 100); err != nil {
        t.Fatalf("place: %v", err)
    }
    // Someone else releasing must not error and must not disturb the hold.
    if err := svc.Release(context.Background(), 1, 200); err != nil {
        t.Fatalf("foreign release: %v", err)
    }
    if store.sessions[1].HeldBy == nil || *store.sessions[1].HeldBy != 100 {
        t.Fatal("foreign release removed the holder's hold")
    }

    if err := svc.Release(context.Background(), 1, 100); err != nil {
        t.Fatalf("owner release: %v", err)
    }
    if store.sessions[1].HeldBy != nil {
        t.Fatal("owner release left the hold in place")
    }
}
