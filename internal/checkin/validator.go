package checkin

import (
	"strings"

	"clubattend/internal/session"
)

// SessionLookup finds the open attendance session of a club
type SessionLookup interface {
	Get(clubCode string) (*session.Session, bool)
}

// Validator checks submitted codes against the live session of a club.
// It performs no persistence.
type Validator struct {
	sessions SessionLookup
}

// NewValidator creates a validator reading sessions from lookup
func NewValidator(sessions SessionLookup) *Validator {
	return &Validator{sessions: sessions}
}

// Validate compares a composite "club:code" value against the current and
// previous codes of the club's session. On success it returns a snapshot of
// the session so the caller knows which date to record against.
// TECHNICAL DISCOVERY: Only the session read lock is taken, so a check-in never
// waits on a rotation tick longer than the tick's own assignment
func (v *Validator) Validate(clubCode, submitted string) (session.Snapshot, error) {
	s, ok := v.sessions.Get(clubCode)
	if !ok {
		return session.Snapshot{}, ErrSessionNotOpen
	}

	snap := s.Snapshot()
	if snap.Phase == session.PhaseClosed.String() {
		return session.Snapshot{}, ErrSessionNotOpen
	}
	if !s.Matches(submitted) {
		return session.Snapshot{}, ErrCodeMismatch
	}
	return snap, nil
}

// ParseQR splits "club:code" on the first colon
func ParseQR(payload string) (clubCode, code string, err error) {
	clubCode, code, found := strings.Cut(strings.TrimSpace(payload), ":")
	if !found || clubCode == "" || code == "" {
		return "", "", ErrMalformedQR
	}
	return clubCode, code, nil
}

// Composite builds the "club:code" value a leader's screen shows
func Composite(clubCode, code string) string {
	return clubCode + ":" + code
}
