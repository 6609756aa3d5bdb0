package types

import (
	"regexp"
	"time"
)

// FUNCTIONAL DISCOVERY: Regex compiled once at package initialization
// for better performance in high-frequency validation scenarios
var (
	userIDRegex   = regexp.MustCompile(`^[a-zA-Z0-9_.@-]+$`)
	clubCodeRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	dateRegex     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Validate ensures the club meets all requirements
// ARCHITECTURAL DISCOVERY: Validation at type level ensures consistency
// across all components without duplicating validation logic
func (c *Club) Validate() error {
	if !IsValidClubCode(c.Code) {
		return ErrInvalidClubCode
	}
	if len(c.Name) < 1 || len(c.Name) > 200 {
		return ErrInvalidClubName
	}
	return c.Location.Validate()
}

// Validate checks coordinate ranges. A location without a centre is valid;
// the geofence is skipped until the leader sets one.
func (l *ClubLocation) Validate() error {
	if l.Latitude != nil && (*l.Latitude < -90 || *l.Latitude > 90) {
		return ErrInvalidLocation
	}
	if l.Longitude != nil && (*l.Longitude < -180 || *l.Longitude > 180) {
		return ErrInvalidLocation
	}
	if l.RadiusKm < 0 {
		return ErrInvalidLocation
	}
	if l.Enabled && l.RadiusKm == 0 {
		return ErrInvalidLocation
	}
	return nil
}

// Validate ensures the user meets all requirements
func (u *User) Validate() error {
	if !IsValidUserID(u.UserID) {
		return ErrInvalidUserID
	}
	return nil
}

// IsValidUserID checks if a user ID meets format requirements
// FUNCTIONAL DISCOVERY: User IDs come from an external identity provider and
// are frequently email-shaped, so '.' and '@' are accepted
func IsValidUserID(userID string) bool {
	if len(userID) < 1 || len(userID) > 64 {
		return false
	}
	return userIDRegex.MatchString(userID)
}

// IsValidClubCode checks if a club code meets format requirements.
// Club codes never contain ':' which keeps "club:code" composites unambiguous.
func IsValidClubCode(code string) bool {
	if len(code) < 1 || len(code) > 32 {
		return false
	}
	return clubCodeRegex.MatchString(code)
}

// ParseAttendanceDate parses a YYYY-MM-DD date and returns its canonical form
// TECHNICAL DISCOVERY: The regex rejects forms time.Parse would otherwise
// accept loosely, the parse rejects impossible calendar days like 2025-02-30
func ParseAttendanceDate(value string) (string, error) {
	if !dateRegex.MatchString(value) {
		return "", ErrInvalidDate
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return "", ErrInvalidDate
	}
	return t.Format(DateLayout), nil
}

// IsValidStatus checks that an attendance status is one of the known values
func IsValidStatus(status string) bool {
	switch status {
	case StatusPresent, StatusLate, StatusExcused, StatusAbsent:
		return true
	default:
		return false
	}
}
