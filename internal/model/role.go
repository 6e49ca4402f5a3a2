package model

// Role identifies the kind of account behind a request.  Roles are stored
// in the users table and embedded in the JWT "role" claim.  Authorization
// decisions go through Role.Can so that individual handlers never compare
// raw role strings.
type Role string

const (
    RoleParent      Role = "PARENT"      // guardian booking on behalf of their swimmers
    RoleInstructor  Role = "INSTRUCTOR"  // teaches sessions, manages the schedule
    RoleCoordinator Role = "COORDINATOR" // funding-source case manager
    RoleAdmin       Role = "ADMIN"       // full access
)

// Capability names a single permission checked by handlers and middleware.
type Capability int

const (
    // CapBookSessions allows holding and booking sessions for owned swimmers.
    CapBookSessions Capability = iota
    // CapManageSessions allows creating, opening, completing and cancelling sessions.
    CapManageSessions
    // CapApproveAuthorizations allows deciding purchase-order requests.
    CapApproveAuthorizations
    // CapManageAllBookings allows acting on bookings of any swimmer.
    CapManageAllBookings
)

// capabilities maps each role to the set of capabilities it grants.  Admin
// is handled in Can directly so the table only lists the restricted roles.
var capabilities = map[Role]map[Capability]bool{
    RoleParent: {
        CapBookSessions: true,
    },
    RoleInstructor: {
        CapManageSessions:    true,
        CapManageAllBookings: true,
    },
    RoleCoordinator: {
        CapApproveAuthorizations: true,
        CapBookSessions:          true,
    },
}

// Can reports whether the role grants the capability.  This is the single
// authorization check used across the codebase.
func (r Role) Can(cap Capability) bool {
    if r == RoleAdmin {
        return true
    }
    return capabilities[r][cap]
}

// ParseRole validates a raw role string (e.g. from a JWT claim) and returns
// the typed role.  Unknown values return false.
func ParseRole(s string) (Role, bool) {
    switch Role(s) {
    case RoleParent, RoleInstructor, RoleCoordinator, RoleAdmin:
        return Role(s), true
    }
    return "", false
}
