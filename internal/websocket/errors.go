package websocket

import "errors"

// Connection-related errors
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrWriteTimeout     = errors.New("write timeout")
)

// Registry-related errors
var (
	ErrNilConnection     = errors.New("connection cannot be nil")
	ErrNotAuthenticated  = errors.New("connection must be authenticated before binding a club")
	ErrClubAlreadyBound  = errors.New("another live connection already controls this club")
	ErrConnectionUnknown = errors.New("connection is not registered")
)

// Reasons sent to the leader before the connection is closed
const (
	ReasonAuthFailed      = "authentication failed"
	ReasonAuthTimeout     = "authentication timeout"
	ReasonNotLeader       = "forbidden: not a club leader"
	ReasonInvalidDate     = "invalid date"
	ReasonDateNotFound    = "attendance date is not registered"
	ReasonSessionConflict = "attendance is already open for this club"
	ReasonInternal        = "internal error"
	ReasonStopped         = "attendance stopped"
	ReasonMaxDuration     = "attendance closed: maximum duration reached"
	ReasonShutdown        = "server shutting down"
)

// unknownCommandPrefix is prepended to unrecognised leader input echoed back
const unknownCommandPrefix = "unknown command: "
