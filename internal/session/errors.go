package session

import "errors"

// Attendance session error types
var (
	ErrSessionConflict = errors.New("an attendance session is already open for this club")
	ErrSessionLocked   = errors.New("attendance session is locked")
	ErrSessionClosed   = errors.New("attendance session is closed")
	ErrMissingOpener   = errors.New("session opener must be set")
)
