package checkin

import "errors"

var (
	ErrSessionNotOpen = errors.New("attendance is not open for this club")
	ErrCodeMismatch   = errors.New("attendance code does not match")
	ErrMalformedQR    = errors.New("qr payload must be club:code")
	ErrNotMember      = errors.New("user is not a member of this club")
	ErrMissingCode    = errors.New("attendance code is required")
)
