package types

import (
	"time"
)

// ARCHITECTURAL DISCOVERY: Attendance status values are stored verbatim so the
// roster can be rendered without a lookup table
const (
	StatusPresent = "present"
	StatusLate    = "late"
	StatusExcused = "excused"
	StatusAbsent  = "absent"
)

// DateLayout is the only accepted attendance date format (YYYY-MM-DD)
const DateLayout = "2006-01-02"

// User is a member or leader as known to the identity store
type User struct {
	UserID    string    `json:"user_id" db:"user_id" yaml:"user_id"`
	Name      string    `json:"name" db:"name" yaml:"name"`
	Email     string    `json:"email,omitempty" db:"email" yaml:"email"`
	IsLeader  bool      `json:"is_leader" db:"is_leader" yaml:"is_leader"`
	CreatedAt time.Time `json:"created_at" db:"created_at" yaml:"-"`
}

// Club is a group that members join and a leader runs attendance for
// FUNCTIONAL DISCOVERY: Location lives on the club itself because every
// check-in for a club shares the same geofence policy
type Club struct {
	Code      string       `json:"club_code" db:"club_code" yaml:"club_code"`
	Name      string       `json:"name" db:"name" yaml:"name"`
	Location  ClubLocation `json:"location" yaml:"location"`
	CreatedAt time.Time    `json:"created_at" db:"created_at" yaml:"-"`
}

// ClubLocation is the geofence configuration of a club.
// Latitude and Longitude are nil when the leader has not set a centre yet.
type ClubLocation struct {
	Enabled   bool     `json:"location_enabled" db:"location_enabled" yaml:"enabled"`
	Latitude  *float64 `json:"latitude,omitempty" db:"latitude" yaml:"latitude"`
	Longitude *float64 `json:"longitude,omitempty" db:"longitude" yaml:"longitude"`
	RadiusKm  float64  `json:"radius_km" db:"radius_km" yaml:"radius_km"`
}

// HasCentre reports whether both coordinates of the club centre are set
func (l ClubLocation) HasCentre() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// AttendanceDate is a date a leader registered as a meeting day for a club
type AttendanceDate struct {
	ID        int64     `json:"id" db:"id"`
	ClubCode  string    `json:"club_code" db:"club_code"`
	Date      string    `json:"date" db:"date"`
	SetBy     string    `json:"set_by" db:"set_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// AttendanceRecord is one member's attendance on one registered date
// TECHNICAL DISCOVERY: ID is a ULID so records sort by creation time without
// relying on auto-increment behaviour that differs between sqlite and mysql
type AttendanceRecord struct {
	ID               string    `json:"id" db:"id"`
	UserID           string    `json:"user_id" db:"user_id"`
	AttendanceDateID int64     `json:"attendance_date_id" db:"attendance_date_id"`
	Status           string    `json:"status" db:"status"`
	CheckedAt        time.Time `json:"checked_at" db:"checked_at"`
}

// RosterEntry is one member row in a leader's roster view for a date.
// Status is empty when the member has no record for the date.
type RosterEntry struct {
	UserID    string     `json:"user_id"`
	Name      string     `json:"name"`
	Status    string     `json:"status"`
	CheckedAt *time.Time `json:"checked_at,omitempty"`
}

// Roster is the attendance sheet of a single registered date
type Roster struct {
	AttendanceDate AttendanceDate `json:"attendance_date"`
	Entries        []RosterEntry  `json:"entries"`
}

// MemberAttendance is one row of a member's own attendance history
type MemberAttendance struct {
	AttendanceDateID int64      `json:"attendance_date_id"`
	Date             string     `json:"date"`
	Status           string     `json:"status"`
	CheckedAt        *time.Time `json:"checked_at,omitempty"`
}

// AttendanceUpdate is a single status change in a bulk correction
type AttendanceUpdate struct {
	UserID string `json:"user_id" binding:"required"`
	Status string `json:"status" binding:"required"`
}
