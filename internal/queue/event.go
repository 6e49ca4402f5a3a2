// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names used by the publisher and the notification consumer.
const (
    BookingConfirmedQueue      = "booking.confirmed"
    AuthorizationDecidedQueue  = "authorization.decided"
    RenewalAlertQueue          = "authorization.renewal-alert"
)

// BookingConfirmedEvent is published after a booking confirms.  It carries
// enough information for downstream consumers to notify the parent without
// querying the primary database.  EventID is a uuid so consumers retried by
// the broker can deduplicate.
type BookingConfirmedEvent struct {
    EventID      string `json:"event_id"`
    BookingID    uint64 `json:"booking_id"`
    Reference    string `json:"reference"`
    SessionID    uint64 `json:"session_id"`
    SwimmerID    uint64 `json:"swimmer_id"`
    ParentID     uint64 `json:"parent_id"`
    Location     string `json:"location"`
    StartsAt     string `json:"starts_at"`
    EndsAt       string `json:"ends_at"`
    FundingState string `json:"funding_state"`
    ConfirmedAt  string `json:"confirmed_at"`
}

// AuthorizationDecidedEvent is published when a coordinator approves or
// declines a purchase order, so the parent can be told the outcome for
// their pending overflow bookings.
type AuthorizationDecidedEvent struct {
    EventID            string `json:"event_id"`
    PurchaseOrderID    uint64 `json:"purchase_order_id"`
    SwimmerID          uint64 `json:"swimmer_id"`
    Status             string `json:"status"`
    Approved           bool   `json:"approved"`
    ConfirmedBookings  int    `json:"confirmed_bookings"`
    CancelledBookings  int    `json:"cancelled_bookings"`
    DecidedAt          string `json:"decided_at"`
}

// RenewalAlertEvent is published when a swimmer's remaining authorized
// sessions fall to or below the purchase order's renewal threshold.
type RenewalAlertEvent struct {
    EventID           string `json:"event_id"`
    PurchaseOrderID   uint64 `json:"purchase_order_id"`
    SwimmerID         uint64 `json:"swimmer_id"`
    FundingSource     string `json:"funding_source"`
    SessionsRemaining uint32 `json:"sessions_remaining"`
    RaisedAt          string `json:"raised_at"`
}
