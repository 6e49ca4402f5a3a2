package model

import "time"

// PurchaseOrderStatus enumerates the states of a funding authorization.
type PurchaseOrderStatus string

const (
    // PurchaseOrderPending is a freshly requested authorization awaiting a
    // coordinator decision.
    PurchaseOrderPending PurchaseOrderStatus = "PENDING"
    // PurchaseOrderApprovedPendingAuth is approved for booking but has no
    // authorization number yet, so billing cannot proceed.
    PurchaseOrderApprovedPendingAuth PurchaseOrderStatus = "APPROVED_PENDING_AUTH"
    // PurchaseOrderActive is fully approved with a number; it is the single
    // authorization counted for the swimmer's balance.
    PurchaseOrderActive PurchaseOrderStatus = "ACTIVE"
    // PurchaseOrderDeclined was rejected by the coordinator.
    PurchaseOrderDeclined PurchaseOrderStatus = "DECLINED"
    // PurchaseOrderExpired ran out by date or by sessions, or was superseded
    // by a newer active authorization.
    PurchaseOrderExpired PurchaseOrderStatus = "EXPIRED"
)

// PurchaseOrder represents a funding source's grant of a bounded number of
// sessions to one swimmer over a date range.
//
// Fields:
//  ID                  – primary key identifier.
//  SwimmerID           – swimmer the grant applies to.
//  FundingSource       – name of the funding body.
//  Status              – see PurchaseOrderStatus.
//  AuthorizationNumber – billing reference, nil until fully approved.
//  SessionsAuthorized  – total sessions granted.
//  SessionsConsumed    – sessions consumed by confirmed bookings.  May exceed
//                        SessionsAuthorized only while an overflow batch is
//                        pending; see the ledger service.
//  RenewalThreshold    – remaining-session count at which a renewal alert fires.
//  ValidFrom, ValidTo  – validity window.
//  CreatedAt, UpdatedAt – row timestamps.
type PurchaseOrder struct {
    ID                  uint64              // purchase_orders.id
    SwimmerID           uint64              // purchase_orders.swimmer_id
    FundingSource       string              // purchase_orders.funding_source
    Status              PurchaseOrderStatus // purchase_orders.status
    AuthorizationNumber *string             // purchase_orders.authorization_number (nullable)
    SessionsAuthorized  uint32              // purchase_orders.sessions_authorized
    SessionsConsumed    uint32              // purchase_orders.sessions_consumed
    RenewalThreshold    uint32              // purchase_orders.renewal_threshold
    ValidFrom           time.Time           // purchase_orders.valid_from
    ValidTo             time.Time           // purchase_orders.valid_to
    CreatedAt           time.Time           // purchase_orders.created_at
    UpdatedAt           time.Time           // purchase_orders.updated_at
}

// SessionsAvailable returns the remaining authorized sessions, clamped at zero.
func (p *PurchaseOrder) SessionsAvailable() uint32 {
    if p.SessionsConsumed >= p.SessionsAuthorized {
        return 0
    }
    return p.SessionsAuthorized - p.SessionsConsumed
}

// NeedsRenewal reports whether the remaining balance has fallen to or below
// the renewal threshold.
func (p *PurchaseOrder) NeedsRenewal() bool {
    return p.SessionsAvailable() <= p.RenewalThreshold
}
