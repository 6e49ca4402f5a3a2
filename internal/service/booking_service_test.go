package service

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/aquadapt/swimbook/internal/model"
    "github.com/aquadapt/swimbook/internal/repository"
)

// stubBookingStore executes bookings in memory the way the transactional
// store does, and records every Book call for assertions.
type stubBookingStore struct {
    swimmers  map[uint64]*model.Swimmer
    sessions  map[uint64]*model.Session
    bookings  map[uint64]*model.Booking
    nextID    uint64
    bookCalls []repository.BookParams
    bookErr   map[uint64]error // per session id
}

func (s *stubBookingStore) GetSession(_ context.Context, id uint64) (*model.Session, error) {
    sess, ok := s.sessions[id]
    if !ok {
        return nil, repository.ErrSessionNotFound
    }
    cp := *sess
    return &cp, nil
}

func (s *stubBookingStore) GetSwimmer(_ context.Context, id uint64) (*model.Swimmer, error) {
    sw, ok := s.swimmers[id]
    if !ok {
        return nil, repository.ErrSwimmerNotFound
    }
    cp := *sw
    return &cp, nil
}

func (s *stubBookingStore) GetBooking(_ context.Context, id uint64) (*model.Booking, error) {
    b, ok := s.bookings[id]
    if !ok {
        return nil, repository.ErrBookingNotFound
    }
    cp := *b
    return &cp, nil
}

// Book mirrors the transactional store's conflict checks: the half-open
// overlap window against the swimmer's active bookings, then the daily
// creation count (every stub booking counts as created today), then the
// injected per-session failure standing in for the capacity update.
func (s *stubBookingStore) Book(_ context.Context, p repository.BookParams) (*model.Booking, error) {
    s.bookCalls = append(s.bookCalls, p)
    sess, ok := s.sessions[p.SessionID]
    if !ok {
        return nil, repository.ErrSessionNotFound
    }
    created := 0
    for _, b := range s.bookings {
        if b.SwimmerID != p.SwimmerID || !b.Active() {
            continue
        }
        created++
        other := s.sessions[b.SessionID]
        if other.StartsAt.Before(sess.EndsAt) && other.EndsAt.After(sess.StartsAt) {
            return nil, repository.ErrOverlap
        }
    }
    if created >= p.DailyLimit {
        return nil, repository.ErrDailyLimit
    }
    if err := s.bookErr[p.SessionID]; err != nil {
        return nil, err
    }
    s.nextID++
    b := &model.Booking{
        ID:           s.nextID,
        Reference:    p.Reference,
        SessionID:    p.SessionID,
        SwimmerID:    p.SwimmerID,
        ParentID:     p.ParentID,
        Status:       model.BookingConfirmed,
        FundingState: model.FundingPrivatePay,
    }
    switch {
    case p.PurchaseOrderID != nil && p.Overflow:
        b.Status = model.BookingPending
        b.FundingState = model.FundingAwaitingApproval
    case p.PurchaseOrderID != nil:
        b.FundingState = model.FundingAuthorized
        b.PurchaseOrderID = p.PurchaseOrderID
    }
    s.bookings[b.ID] = b
    cp := *b
    return &cp, nil
}

func (s *stubBookingStore) Cancel(_ context.Context, p repository.CancelParams) (*model.Booking, bool, error) {
    b, ok := s.bookings[p.BookingID]
    if !ok {
        return nil, false, repository.ErrBookingNotFound
    }
    if !b.Active() {
        cp := *b
        return &cp, false, nil
    }
    b.Status = model.BookingCancelled
    src := p.Source
    b.CancelSource = &src
    cp := *b
    return &cp, true, nil
}

func (s *stubBookingStore) CompleteSession(_ context.Context, sessionID uint64) (bool, error) {
    _, ok := s.sessions[sessionID]
    return ok, nil
}

func newBookingFixture(available uint32) (*BookingService, *stubBookingStore, *stubLedgerStore, *recordingNotifier) {
    store := &stubBookingStore{
        swimmers: map[uint64]*model.Swimmer{
            3: {ID: 3, ParentID: 1, FirstName: "Maya"},
        },
        sessions: map[uint64]*model.Session{
            10: {ID: 10, Location: "Main Pool", StartsAt: time.Now().UTC().Add(24 * time.Hour), EndsAt: time.Now().UTC().Add(25 * time.Hour)},
            11: {ID: 11, Location: "Main Pool", StartsAt: time.Now().UTC().Add(48 * time.Hour), EndsAt: time.Now().UTC().Add(49 * time.Hour)},
            12: {ID: 12, Location: "Main Pool", StartsAt: time.Now().UTC().Add(72 * time.Hour), EndsAt: time.Now().UTC().Add(73 * time.Hour)},
        },
        bookings: map[uint64]*model.Booking{},
        bookErr:  map[uint64]error{},
    }
    po := testPO()
    po.Status = model.PurchaseOrderActive
    po.SessionsConsumed = po.SessionsAuthorized - available
    ledgerStore := &stubLedgerStore{po: po}
    notifier := &recordingNotifier{}
    ledger := NewLedgerService(ledgerStore, notifier)
    svc := NewBookingService(store, ledger, notifier, 4)
    return svc, store, ledgerStore, notifier
}

func TestConfirmRejectsForeignSwimmer(t *testing.T) {
    svc, store, _, _ := newBookingFixture(5)

    stranger := Actor{ID: 42, Role: model.RoleParent}
    _, err := svc.Confirm(context.Background(), stranger, ConfirmRequest{SwimmerID: 3, SessionIDs: []uint64{10}})
    if !errors.Is(err, repository.ErrForbidden) {
        t.Fatalf("got %v, want ErrForbidden", err)
    }
    if len(store.bookCalls) != 0 {
        t.Fatal("booking attempted for a foreign swimmer")
    }

    // Staff with manage-all may book for any swimmer.
    staff := Actor{ID: 42, Role: model.RoleInstructor}
    if _, err := svc.Confirm(context.Background(), staff, ConfirmRequest{SwimmerID: 3, SessionIDs: []uint64{10}}); err != nil {
        t.Fatalf("staff booking: %v", err)
    }
}

func TestConfirmPrivatePayWhenUnfunded(t *testing.T) {
    svc, store, ledgerStore, notifier := newBookingFixture(5)
    ledgerStore.po = nil // no authorization at all

    parent := Actor{ID: 1, Role: model.RoleParent}
    res, err := svc.Confirm(context.Background(), parent, ConfirmRequest{SwimmerID: 3, SessionIDs: []uint64{10, 11}})
    if err != nil {
        t.Fatalf("confirm: %v", err)
    }
    if len(res.Bookings) != 2 {
        t.Fatalf("bookings = %d, want 2", len(res.Bookings))
    }
    for _, b := range res.Bookings {
        if b.FundingState != model.FundingPrivatePay || b.Status != model.BookingConfirmed {
            t.Fatalf("booking %+v, want CONFIRMED/PRIVATE_PAY", b)
        }
    }
    for _, call := range store.bookCalls {
        if call.PurchaseOrderID != nil {
            t.Fatal("private pay booking carried a purchase order")
        }
    }
    if len(notifier.confirmed) != 2 {
        t.Fatalf("confirmed events = %d, want 2", len(notifier.confirmed))
    }
}

func TestConfirmFundedWithinAuthorization(t *testing.T) {
    svc, store, _, notifier := newBookingFixture(6)

    parent := Actor{ID: 1, Role: model.RoleParent}
    res, err := svc.Confirm(context.Background(), parent, ConfirmRequest{SwimmerID: 3, SessionIDs: []uint64{10, 11}})
    if err != nil {
        t.Fatalf("confirm: %v", err)
    }
    for _, b := range res.Bookings {
        if b.FundingState != model.FundingAuthorized || b.Status != model.BookingConfirmed {
            t.Fatalf("booking %+v, want CONFIRMED/AUTHORIZED", b)
        }
    }
    for _, call := range store.bookCalls {
        if call.PurchaseOrderID == nil || call.Overflow {
            t.Fatalf("call %+v, want funded non-overflow", call)
        }
    }
    if len(notifier.confirmed) != 2 {
        t.Fatalf("confirmed events = %d, want 2", len(notifier.confirmed))
    }
}

func TestConfirmOverflowRequiresAcknowledgement(t *testing.T) {
    svc, store, _, _ := newBookingFixture(1)

    parent := Actor{ID: 1, Role: model.RoleParent}
    res, err := svc.Confirm(context.Background(), parent, ConfirmRequest{SwimmerID: 3, SessionIDs: []uint64{10, 11, 12}})
    if err != nil {
        t.Fatalf("confirm: %v", err)
    }
    if res.Warning == nil {
        t.Fatal("expected an overflow warning")
    }
    if res.Warning.SessionsRequested != 3 || res.Warning.SessionsAvailable != 1 {
        t.Fatalf("warning = %+v, want requested=3 available=1", res.Warning)
    }
    if len(store.bookCalls) != 0 {
        t.Fatal("bookings were made before the client acknowledged the overflow")
    }
}

func TestConfirmAcknowledgedOverflowSplits(t *testing.T) {
    svc, store, _, notifier := newBookingFixture(1)

    parent := Actor{ID: 1, Role: model.RoleParent}
    res, err := svc.Confirm(context.Background(), parent, ConfirmRequest{
        SwimmerID:           3,
        SessionIDs:          []uint64{10, 11, 12},
        AcknowledgeOverflow: true,
    })
    if err != nil {
        t.Fatalf("confirm: %v", err)
    }
    if res.Warning != nil {
        t.Fatal("acknowledged request still returned a warning")
    }
    if len(res.Bookings) != 3 {
        t.Fatalf("bookings = %d, want 3", len(res.Bookings))
    }
    // First session fits the balance; the rest book as pending overflow.
    if res.Bookings[0].FundingState != model.FundingAuthorized {
        t.Fatalf("first booking %+v, want AUTHORIZED", res.Bookings[0])
    }
    for _, b := range res.Bookings[1:] {
        if b.Status != model.BookingPending || b.FundingState != model.FundingAwaitingApproval {
            t.Fatalf("overflow booking %+v, want PENDING/AWAITING_APPROVAL", b)
        }
    }
    if !store.bookCalls[1].Overflow || !store.bookCalls[2].Overflow {
        t.Fatal("overflow flag not set on the excess sessions")
    }
    // Only the confirmed booking publishes an event.
    if len(notifier.confirmed) != 1 {
        t.Fatalf("confirmed events = %d, want 1", len(notifier.confirmed))
    }
}

func TestConfirmStopsOnFirstFailure(t *testing.T) {
    svc, store, _, _ := newBookingFixture(6)
    store.bookErr[11] = repository.ErrOverlap

    parent := Actor{ID: 1, Role: model.RoleParent}
    _, err := svc.Confirm(context.Background(), parent, ConfirmRequest{SwimmerID: 3, SessionIDs: []uint64{10, 11, 12}})
    if !errors.Is(err, repository.ErrOverlap) {
        t.Fatalf("got %v, want ErrOverlap", err)
    }
    // The first booking stands; the third was never attempted.
    if len(store.bookings) != 1 {
        t.Fatalf("persisted bookings = %d, want 1", len(store.bookings))
    }
    if len(store.bookCalls) != 2 {
        t.Fatalf("book calls = %d, want 2 (fail fast)", len(store.bookCalls))
    }
}

func TestConfirmDailyLimitOnFifthBooking(t *testing.T) {
    svc, store, ledgerStore, _ := newBookingFixture(5)
    ledgerStore.po = nil // private pay; funding plays no part in the limit
    base := time.Now().UTC().Add(96 * time.Hour)
    store.sessions[13] = &model.Session{ID: 13, Location: "Main Pool", StartsAt: base, EndsAt: base.Add(time.Hour)}
    store.sessions[14] = &model.Session{ID: 14, Location: "Main Pool", StartsAt: base.Add(24 * time.Hour), EndsAt: base.Add(25 * time.Hour)}

    parent := Actor{ID: 1, Role: model.RoleParent}
    _, err := svc.Confirm(context.Background(), parent, ConfirmRequest{
        SwimmerID:  3,
        SessionIDs: []uint64{10, 11, 12, 13, 14},
    })
    if !errors.Is(err, repository.ErrDailyLimit) {
        t.Fatalf("got %v, want ErrDailyLimit", err)
    }
    // Four bookings fit the day; the fifth was refused.
    if len(store.bookings) != 4 {
        t.Fatalf("persisted bookings = %d, want 4", len(store.bookings))
    }
    if len(store.bookCalls) != 5 {
        t.Fatalf("book calls = %d, want 5", len(store.bookCalls))
    }
}

func TestConfirmAdjacentSessionsDoNotOverlap(t *testing.T) {
    svc, store, _, _ := newBookingFixture(6)
    base := time.Now().UTC().Add(96 * time.Hour)
    // Back to back: the first ends exactly when the second starts.
    store.sessions[20] = &model.Session{ID: 20, Location: "Main Pool", StartsAt: base, EndsAt: base.Add(time.Hour)}
    store.sessions[21] = &model.Session{ID: 21, Location: "Main Pool", StartsAt: base.Add(time.Hour), EndsAt: base.Add(2 * time.Hour)}
    // Starts halfway through the second.
    store.sessions[22] = &model.Session{ID: 22, Location: "Main Pool", StartsAt: base.Add(90 * time.Minute), EndsAt: base.Add(150 * time.Minute)}

    parent := Actor{ID: 1, Role: model.RoleParent}
    res, err := svc.Confirm(context.Background(), parent, ConfirmRequest{SwimmerID: 3, SessionIDs: []uint64{20, 21}})
    if err != nil {
        t.Fatalf("adjacent sessions: %v", err)
    }
    if len(res.Bookings) != 2 {
        t.Fatalf("bookings = %d, want 2", len(res.Bookings))
    }

    _, err = svc.Confirm(context.Background(), parent, ConfirmRequest{SwimmerID: 3, SessionIDs: []uint64{22}})
    if !errors.Is(err, repository.ErrOverlap) {
        t.Fatalf("got %v, want ErrOverlap", err)
    }
}

func TestConfirmValidatesInput(t *testing.T) {
    svc, _, _, _ := newBookingFixture(5)
    parent := Actor{ID: 1, Role: model.RoleParent}
    _, err := svc.Confirm(context.Background(), parent, ConfirmRequest{SwimmerID: 3})
    if !errors.Is(err, ErrValidation) {
        t.Fatalf("got %v, want ErrValidation", err)
    }
}

func TestCancelOwnershipAndSource(t *testing.T) {
    svc, _, _, _ := newBookingFixture(5)
    parent := Actor{ID: 1, Role: model.RoleParent}
    res, err := svc.Confirm(context.Background(), parent, ConfirmRequest{SwimmerID: 3, SessionIDs: []uint64{10}})
    if err != nil {
        t.Fatalf("confirm: %v", err)
    }
    bookingID := res.Bookings[0].ID

    stranger := Actor{ID: 42, Role: model.RoleParent}
    if _, err := svc.Cancel(context.Background(), stranger, bookingID, "x"); !errors.Is(err, repository.ErrForbidden) {
        t.Fatalf("stranger cancel: got %v, want ErrForbidden", err)
    }

    cancelled, err := svc.Cancel(context.Background(), parent, bookingID, "conflict")
    if err != nil {
        t.Fatalf("owner cancel: %v", err)
    }
    if cancelled.Status != model.BookingCancelled {
        t.Fatalf("status = %s, want CANCELLED", cancelled.Status)
    }
    if cancelled.CancelSource == nil || *cancelled.CancelSource != model.CancelledByParent {
        t.Fatalf("source = %v, want PARENT", cancelled.CancelSource)
    }

    // Repeat cancellation is a no-op returning the current row.
    again, err := svc.Cancel(context.Background(), parent, bookingID, "again")
    if err != nil {
        t.Fatalf("repeat cancel: %v", err)
    }
    if again.Status != model.BookingCancelled {
        t.Fatalf("repeat status = %s, want CANCELLED", again.Status)
    }
}

func TestCancelByStaffRecordsStaffSource(t *testing.T) {
    svc, _, _, _ := newBookingFixture(5)
    parent := Actor{ID: 1, Role: model.RoleParent}
    res, err := svc.Confirm(context.Background(), parent, ConfirmRequest{SwimmerID: 3, SessionIDs: []uint64{10}})
    if err != nil {
        t.Fatalf("confirm: %v", err)
    }

    staff := Actor{ID: 9, Role: model.RoleInstructor}
    cancelled, err := svc.Cancel(context.Background(), staff, res.Bookings[0].ID, "pool closure")
    if err != nil {
        t.Fatalf("staff cancel: %v", err)
    }
    if cancelled.CancelSource == nil || *cancelled.CancelSource != model.CancelledByStaff {
        t.Fatalf("source = %v, want STAFF", cancelled.CancelSource)
    }
}

func TestCompleteSessionRequiresCapability(t *testing.T) {
    svc, _, _, _ := newBookingFixture(5)

    parent := Actor{ID: 1, Role: model.RoleParent}
    if _, err := svc.CompleteSession(context.Background(), parent, 10); !errors.Is(err, repository.ErrForbidden) {
        t.Fatalf("parent complete: got %v, want ErrForbidden", err)
    }
    staff := Actor{ID: 9, Role: model.RoleInstructor}
    done, err := svc.CompleteSession(context.Background(), staff, 10)
    if err != nil || !done {
        t.Fatalf("staff complete: done=%v err=%v", done, err)
    }
}
