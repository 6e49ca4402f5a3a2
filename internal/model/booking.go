package model

import "time"

// BookingStatus enumerates the lifecycle states of a booking.
type BookingStatus string

const (
    BookingPending   BookingStatus = "PENDING"   // overflow booking awaiting coordinator approval
    BookingConfirmed BookingStatus = "CONFIRMED" // seat taken, funding settled
    BookingCompleted BookingStatus = "COMPLETED" // session finished, attendance confirmed
    BookingCancelled BookingStatus = "CANCELLED"
    BookingNoShow    BookingStatus = "NO_SHOW"
)

// FundingState records, as one explicit column, how the booking is paid for.
// This replaces inferring overflow from booking status plus purchase-order
// status, which left the two fields free to drift apart.
type FundingState string

const (
    // FundingAuthorized means one unit was consumed from the swimmer's active
    // purchase order when the booking confirmed.
    FundingAuthorized FundingState = "AUTHORIZED"
    // FundingAwaitingApproval marks an overflow booking whose unit has not
    // been consumed yet; it resolves to AUTHORIZED or DECLINED.
    FundingAwaitingApproval FundingState = "AWAITING_APPROVAL"
    // FundingDeclined marks an overflow booking whose authorization request
    // was declined; the booking itself is cancelled alongside.
    FundingDeclined FundingState = "DECLINED"
    // FundingPrivatePay means the booking is charged directly to the parent.
    FundingPrivatePay FundingState = "PRIVATE_PAY"
)

// CancellationSource records who or what triggered a cancellation.
type CancellationSource string

const (
    CancelledByParent      CancellationSource = "PARENT"
    CancelledByStaff       CancellationSource = "STAFF"
    CancelledByAuthDecline CancellationSource = "AUTHORIZATION_DECLINED"
)

// Booking records one swimmer's reservation of one session.
//
// Fields:
//  ID              – primary key identifier.
//  Reference       – opaque code handed to the client (uuid).
//  SessionID       – session being booked.
//  SwimmerID       – swimmer attending.
//  ParentID        – guardian who made the booking.
//  Status          – lifecycle state, see BookingStatus.
//  FundingState    – how the booking is paid for, see FundingState.
//  PurchaseOrderID – purchase order consumed, when funded (nullable).
//  CancelReason    – free-text reason recorded on cancellation (nullable).
//  CancelSource    – who cancelled (nullable).
//  CancelledAt     – when cancelled (nullable).
//  CancelledBy     – user who cancelled (nullable).
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Booking struct {
    ID              uint64              // bookings.id
    Reference       string              // bookings.reference
    SessionID       uint64              // bookings.session_id
    SwimmerID       uint64              // bookings.swimmer_id
    ParentID        uint64              // bookings.parent_id
    Status          BookingStatus       // bookings.status
    FundingState    FundingState        // bookings.funding_state
    PurchaseOrderID *uint64             // bookings.purchase_order_id (nullable)
    CancelReason    *string             // bookings.cancel_reason (nullable)
    CancelSource    *CancellationSource // bookings.cancel_source (nullable)
    CancelledAt     *time.Time          // bookings.cancelled_at (nullable)
    CancelledBy     *uint64             // bookings.cancelled_by (nullable)
    CreatedAt       time.Time           // bookings.created_at
    UpdatedAt       time.Time           // bookings.updated_at
}

// Active reports whether the booking still occupies a spot on its session.
func (b *Booking) Active() bool {
    return b.Status == BookingPending || b.Status == BookingConfirmed
}
