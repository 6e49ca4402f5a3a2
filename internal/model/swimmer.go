package model

import "time"

// Swimmer represents a lesson participant.  Swimmers do not log in; they are
// created and managed by their parent/guardian account.
//
// Fields:
//  ID        – primary key identifier.
//  ParentID  – guardian user who owns this swimmer.
//  FirstName – given name.
//  LastName  – family name.
//  BirthDate – date of birth (date precision).
//  Notes     – adaptive-needs notes visible to instructors.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Swimmer struct {
    ID        uint64    // swimmers.id
    ParentID  uint64    // swimmers.parent_id
    FirstName string    // swimmers.first_name
    LastName  string    // swimmers.last_name
    BirthDate time.Time // swimmers.birth_date
    Notes     string    // swimmers.notes
    CreatedAt time.Time // swimmers.created_at
    UpdatedAt time.Time // swimmers.updated_at
}
