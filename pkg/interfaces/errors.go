package interfaces

import "errors"

// Common interface errors used across components
var (
	ErrNotFound          = errors.New("not found")
	ErrClubNotFound      = errors.New("club not found")
	ErrDateNotRegistered = errors.New("attendance date is not registered for this club")
	ErrAlreadyRecorded   = errors.New("attendance already recorded for this date")
	ErrAlreadyMember     = errors.New("already a member of this club")
	ErrUnauthenticated   = errors.New("authentication failed")
	ErrForbidden         = errors.New("not authorized for this club")
)
