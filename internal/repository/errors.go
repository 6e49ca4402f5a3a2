// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. The
// booking flow needs a finer-grained taxonomy than plain "conflict":
// a full session, a stolen hold, an overlapping booking and an
// exhausted authorization all surface as HTTP 409 but carry different
// messages and different retry advice for the client.
package repository

import (
    "errors"
    "fmt"
)

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is the base error for every state conflict. Handlers
// translate it (and everything wrapping it) into an HTTP 409
// response. Use errors.Is(err, ErrConflict) to catch the whole
// family.
var ErrConflict = errors.New("conflict")

// Specific conflicts wrap ErrConflict so errors.Is matches both the
// concrete cause and the family.
var (
    // ErrSessionFull means booking_count reached max_capacity.
    ErrSessionFull = fmt.Errorf("%w: session full", ErrConflict)
    // ErrSessionHeld means another user holds a live hold on the session.
    ErrSessionHeld = fmt.Errorf("%w: session held by another user", ErrConflict)
    // ErrSessionNotOpen means the session is not in a bookable state.
    ErrSessionNotOpen = fmt.Errorf("%w: session not open for booking", ErrConflict)
    // ErrOverlap means the swimmer already has a booking in this time range.
    ErrOverlap = fmt.Errorf("%w: overlapping booking for swimmer", ErrConflict)
    // ErrDailyLimit means the swimmer reached the per-day booking cap.
    ErrDailyLimit = fmt.Errorf("%w: daily booking limit reached", ErrConflict)
    // ErrAuthorizationExhausted means the purchase order has no sessions left
    // and the caller did not consent to overflow booking.
    ErrAuthorizationExhausted = fmt.Errorf("%w: authorization exhausted", ErrConflict)
)

// Not-found sentinels. Handlers translate these into HTTP 404.
var (
    ErrSessionNotFound       = errors.New("session not found")
    ErrBookingNotFound       = errors.New("booking not found")
    ErrSwimmerNotFound       = errors.New("swimmer not found")
    ErrPurchaseOrderNotFound = errors.New("purchase order not found")
    // ErrNoActiveAuthorization means the swimmer has no usable funding
    // authorization; the booking falls back to private pay.
    ErrNoActiveAuthorization = errors.New("no active authorization for swimmer")
)
