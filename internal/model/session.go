package model

import "time"

// SessionStatus enumerates the lifecycle states of a lesson session.
// "Held" is intentionally absent: a hold lives in the held_by/hold_expires_at
// columns and decays lazily once the expiry passes, so it is derived state,
// never persisted as a status of its own.
type SessionStatus string

const (
    SessionDraft     SessionStatus = "DRAFT"     // batch-created, not yet visible to parents
    SessionAvailable SessionStatus = "AVAILABLE" // open for holds and bookings
    SessionBooked    SessionStatus = "BOOKED"    // booking_count reached max_capacity
    SessionCompleted SessionStatus = "COMPLETED" // end time passed, attendance settled
    SessionCancelled SessionStatus = "CANCELLED" // withdrawn by staff
)

// BookingType distinguishes recurring weekly slots from single floating ones.
type BookingType string

const (
    BookingTypeRecurring BookingType = "RECURRING"
    BookingTypeSingle    BookingType = "SINGLE"
)

// Session represents one bookable lesson slot.
//
// Fields:
//  ID            – primary key identifier.
//  InstructorID  – user teaching this session.
//  Location      – pool / facility name.
//  BookingType   – recurring or single floating slot.
//  StartsAt      – when the lesson begins (UTC).
//  EndsAt        – when the lesson ends (UTC, after StartsAt).
//  MaxCapacity   – maximum confirmed bookings.
//  BookingCount  – current confirmed/pending bookings; never exceeds MaxCapacity.
//  Status        – lifecycle state, see SessionStatus.
//  HeldBy        – user currently holding the slot (nullable).
//  HoldExpiresAt – when the hold lapses (nullable).
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Session struct {
    ID            uint64        // sessions.id
    InstructorID  uint64        // sessions.instructor_id
    Location      string        // sessions.location
    BookingType   BookingType   // sessions.booking_type
    StartsAt      time.Time     // sessions.starts_at
    EndsAt        time.Time     // sessions.ends_at
    MaxCapacity   uint32        // sessions.max_capacity
    BookingCount  uint32        // sessions.booking_count
    Status        SessionStatus // sessions.status
    HeldBy        *uint64       // sessions.held_by (nullable)
    HoldExpiresAt *time.Time    // sessions.hold_expires_at (nullable)
    CreatedAt     time.Time     // sessions.created_at
    UpdatedAt     time.Time     // sessions.updated_at
}

// IsFull reports whether the session has no remaining spots.
func (s *Session) IsFull() bool { return s.BookingCount >= s.MaxCapacity }

// HeldAgainst reports whether an actor other than userID currently holds a
// live (unexpired) hold on the session at the given instant.
func (s *Session) HeldAgainst(userID uint64, now time.Time) bool {
    if s.HeldBy == nil || *s.HeldBy == userID {
        return false
    }
    return s.HoldExpiresAt != nil && now.Before(*s.HoldExpiresAt)
}

// SpotsRemaining returns how many bookings the session can still accept.
func (s *Session) SpotsRemaining() uint32 {
    if s.IsFull() {
        return 0
    }
    return s.MaxCapacity - s.BookingCount
}
