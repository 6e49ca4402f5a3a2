package service

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/aquadapt/swimbook/internal/model"
    q "github.com/aquadapt/swimbook/internal/queue"
    "github.com/aquadapt/swimbook/internal/repository"
)

// recordingNotifier captures published events for assertions.
type recordingNotifier struct {
    confirmed []q.BookingConfirmedEvent
    decided   []q.AuthorizationDecidedEvent
    renewals  []q.RenewalAlertEvent
}

func (r *recordingNotifier) BookingConfirmed(_ context.Context, ev q.BookingConfirmedEvent) {
    r.confirmed = append(r.confirmed, ev)
}
func (r *recordingNotifier) AuthorizationDecided(_ context.Context, ev q.AuthorizationDecidedEvent) {
    r.decided = append(r.decided, ev)
}
func (r *recordingNotifier) RenewalAlert(_ context.Context, ev q.RenewalAlertEvent) {
    r.renewals = append(r.renewals, ev)
}

type stubLedgerStore struct {
    po        *model.PurchaseOrder
    approved  int
    declined  int
    resolved  int // bookings the store reports confirmed/cancelled per decision
    failWith  error
}

func (s *stubLedgerStore) ActiveBySwimmer(_ context.Context, swimmerID uint64) (*model.PurchaseOrder, error) {
    if s.po == nil || s.po.SwimmerID != swimmerID {
        return nil, repository.ErrNoActiveAuthorization
    }
    cp := *s.po
    return &cp, nil
}

func (s *stubLedgerStore) GetByID(_ context.Context, id uint64) (*model.PurchaseOrder, error) {
    if s.po == nil || s.po.ID != id {
        return nil, repository.ErrPurchaseOrderNotFound
    }
    cp := *s.po
    return &cp, nil
}

func (s *stubLedgerStore) Approve(_ context.Context, poID uint64, authNumber *string) (*model.PurchaseOrder, int, error) {
    if s.failWith != nil {
        return nil, 0, s.failWith
    }
    s.approved++
    if authNumber != nil {
        s.po.Status = model.PurchaseOrderActive
        s.po.AuthorizationNumber = authNumber
    } else {
        s.po.Status = model.PurchaseOrderApprovedPendingAuth
    }
    cp := *s.po
    return &cp, s.resolved, nil
}

func (s *stubLedgerStore) Decline(_ context.Context, poID, actorID uint64) (*model.PurchaseOrder, int, error) {
    if s.failWith != nil {
        return nil, 0, s.failWith
    }
    s.declined++
    s.po.Status = model.PurchaseOrderDeclined
    cp := *s.po
    return &cp, s.resolved, nil
}

func testPO() *model.PurchaseOrder {
    return &model.PurchaseOrder{
        ID:                 7,
        SwimmerID:          3,
        FundingSource:      "Variety Club",
        Status:             model.PurchaseOrderPending,
        SessionsAuthorized: 10,
        SessionsConsumed:   4,
        RenewalThreshold:   3,
        ValidFrom:          time.Now().UTC().Add(-24 * time.Hour),
        ValidTo:            time.Now().UTC().Add(30 * 24 * time.Hour),
    }
}

func TestSplitReservation(t *testing.T) {
    cases := []struct {
        name      string
        available uint32
        count     uint32
        within    uint32
        overflow  uint32
    }{
        {"fully covered", 6, 4, 4, 0},
        {"exact", 6, 6, 6, 0},
        {"partial overflow", 6, 10, 6, 4},
        {"nothing left", 0, 3, 0, 3},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            got := SplitReservation(Balance{Available: tc.available}, tc.count)
            if got.WithinAuthorization != tc.within || got.Overflow != tc.overflow {
                t.Fatalf("split(%d,%d) = %+v, want within=%d overflow=%d",
                    tc.available, tc.count, got, tc.within, tc.overflow)
            }
        })
    }
}

func TestAvailableSessionsClampsAtZero(t *testing.T) {
    store := &stubLedgerStore{po: testPO()}
    store.po.Status = model.PurchaseOrderActive
    store.po.SessionsConsumed = 12 // approved overflow pushed past authorized
    svc := NewLedgerService(store, &recordingNotifier{})

    b, err := svc.AvailableSessions(context.Background(), 3)
    if err != nil {
        t.Fatalf("balance: %v", err)
    }
    if b.Available != 0 {
        t.Fatalf("available = %d, want 0 (never negative)", b.Available)
    }
}

func TestAvailableSessionsUnfunded(t *testing.T) {
    svc := NewLedgerService(&stubLedgerStore{}, &recordingNotifier{})
    _, err := svc.AvailableSessions(context.Background(), 3)
    if !errors.Is(err, repository.ErrNoActiveAuthorization) {
        t.Fatalf("got %v, want ErrNoActiveAuthorization", err)
    }
}

func TestApproveRequiresCapability(t *testing.T) {
    store := &stubLedgerStore{po: testPO()}
    svc := NewLedgerService(store, &recordingNotifier{})

    parent := Actor{ID: 1, Role: model.RoleParent}
    if _, _, err := svc.Approve(context.Background(), parent, 7, nil); !errors.Is(err, repository.ErrForbidden) {
        t.Fatalf("parent approve: got %v, want ErrForbidden", err)
    }
    if store.approved != 0 {
        t.Fatal("store was touched despite the forbidden actor")
    }
}

func TestApprovePublishesDecisionAndRenewalAlert(t *testing.T) {
    store := &stubLedgerStore{po: testPO(), resolved: 2}
    store.po.SessionsConsumed = 8 // 2 remaining, at/below threshold 3
    notifier := &recordingNotifier{}
    svc := NewLedgerService(store, notifier)

    coordinator := Actor{ID: 9, Role: model.RoleCoordinator}
    num := "AUTH-2025-014"
    po, confirmed, err := svc.Approve(context.Background(), coordinator, 7, &num)
    if err != nil {
        t.Fatalf("approve: %v", err)
    }
    if po.Status != model.PurchaseOrderActive {
        t.Fatalf("status = %s, want ACTIVE", po.Status)
    }
    if confirmed != 2 {
        t.Fatalf("confirmed = %d, want 2", confirmed)
    }
    if len(notifier.decided) != 1 || !notifier.decided[0].Approved {
        t.Fatalf("decided events = %+v, want one approved", notifier.decided)
    }
    if len(notifier.renewals) != 1 {
        t.Fatalf("renewal events = %d, want 1 (balance at threshold)", len(notifier.renewals))
    }
}

func TestApproveWithoutNumberStaysBookable(t *testing.T) {
    store := &stubLedgerStore{po: testPO()}
    notifier := &recordingNotifier{}
    svc := NewLedgerService(store, notifier)

    coordinator := Actor{ID: 9, Role: model.RoleCoordinator}
    po, _, err := svc.Approve(context.Background(), coordinator, 7, nil)
    if err != nil {
        t.Fatalf("approve: %v", err)
    }
    if po.Status != model.PurchaseOrderApprovedPendingAuth {
        t.Fatalf("status = %s, want APPROVED_PENDING_AUTH", po.Status)
    }
}

func TestDeclinePublishesDecision(t *testing.T) {
    store := &stubLedgerStore{po: testPO(), resolved: 3}
    notifier := &recordingNotifier{}
    svc := NewLedgerService(store, notifier)

    admin := Actor{ID: 1, Role: model.RoleAdmin}
    po, cancelled, err := svc.Decline(context.Background(), admin, 7)
    if err != nil {
        t.Fatalf("decline: %v", err)
    }
    if po.Status != model.PurchaseOrderDeclined {
        t.Fatalf("status = %s, want DECLINED", po.Status)
    }
    if cancelled != 3 {
        t.Fatalf("cancelled = %d, want 3", cancelled)
    }
    if len(notifier.decided) != 1 || notifier.decided[0].Approved {
        t.Fatalf("decided events = %+v, want one declined", notifier.decided)
    }
}

func TestCheckRenewalAlert(t *testing.T) {
    store := &stubLedgerStore{po: testPO()}
    store.po.Status = model.PurchaseOrderActive
    notifier := &recordingNotifier{}
    svc := NewLedgerService(store, notifier)

    // 6 remaining, threshold 3: no alert.
    raised, err := svc.CheckRenewalAlert(context.Background(), 7)
    if err != nil || raised {
        t.Fatalf("above threshold: raised=%v err=%v", raised, err)
    }

    store.po.SessionsConsumed = 7 // 3 remaining, at threshold
    raised, err = svc.CheckRenewalAlert(context.Background(), 7)
    if err != nil || !raised {
        t.Fatalf("at threshold: raised=%v err=%v", raised, err)
    }
    if len(notifier.renewals) != 1 {
        t.Fatalf("renewal events = %d, want 1", len(notifier.renewals))
    }
    if notifier.renewals[0].SessionsRemaining != 3 {
        t.Fatalf("sessions remaining in event = %d, want 3", notifier.renewals[0].SessionsRemaining)
    }
}
