package types

import "errors"

// ARCHITECTURAL DISCOVERY: Specific error types enable proper error handling
// and user-friendly error messages throughout the system
var (
	ErrInvalidUserID   = errors.New("user ID must be 1-64 characters, alphanumeric + underscore/hyphen/dot/@ only")
	ErrInvalidClubCode = errors.New("club code must be 1-32 characters, alphanumeric + underscore/hyphen only")
	ErrInvalidClubName = errors.New("club name must be 1-200 characters")
	ErrInvalidDate     = errors.New("date must use the YYYY-MM-DD format")
	ErrInvalidStatus   = errors.New("status must be one of present, late, excused, absent")
	ErrInvalidLocation = errors.New("latitude must be within [-90, 90], longitude within [-180, 180], radius positive")
)
