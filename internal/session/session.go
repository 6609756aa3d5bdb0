package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Phase is the lifecycle stage of an attendance session
type Phase int

const (
	PhaseRotating Phase = iota
	PhaseLocked
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseRotating:
		return "rotating"
	case PhaseLocked:
		return "locked"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is one club's open attendance window
// ARCHITECTURAL DISCOVERY: Each session owns its mutex, so a rotation tick in
// one club never contends with check-ins for another club
type Session struct {
	ID       string
	ClubCode string
	Date     string
	OpenedBy string
	OpenedAt time.Time

	generator Generator

	mu        sync.RWMutex
	current   string
	previous  string
	phase     Phase
	rotations int
	lockedAt  time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// Snapshot is a point-in-time copy of a session's public state
type Snapshot struct {
	ID          string     `json:"id"`
	ClubCode    string     `json:"club_code"`
	Date        string     `json:"date"`
	OpenedBy    string     `json:"opened_by"`
	OpenedAt    time.Time  `json:"opened_at"`
	Phase       string     `json:"phase"`
	CurrentCode string     `json:"current_code,omitempty"`
	Rotations   int        `json:"rotations"`
	LockedAt    *time.Time `json:"locked_at,omitempty"`
}

func newSession(clubCode, date, openedBy string, generator Generator) *Session {
	return &Session{
		ID:        uuid.New().String(),
		ClubCode:  clubCode,
		Date:      date,
		OpenedBy:  openedBy,
		OpenedAt:  time.Now(),
		generator: generator,
		phase:     PhaseRotating,
		done:      make(chan struct{}),
	}
}

// Rotate replaces the current code with a fresh one, keeping the old value as
// the previous code for one interval
func (s *Session) Rotate() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseLocked:
		return "", ErrSessionLocked
	case PhaseClosed:
		return "", ErrSessionClosed
	}

	next := s.generator.Generate(s.ClubCode)
	s.previous = s.current
	s.current = next
	s.rotations++
	return s.current, nil
}

// Lock freezes the current code. If no code was generated yet one is
// generated first. The pre-lock code is retired since no later rotation
// would ever expire it. Locking twice returns the same frozen code.
func (s *Session) Lock() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseClosed:
		return "", ErrSessionClosed
	case PhaseLocked:
		return s.current, nil
	}

	if s.current == "" {
		s.current = s.generator.Generate(s.ClubCode)
		s.rotations++
	}
	s.previous = s.current
	s.phase = PhaseLocked
	s.lockedAt = time.Now()
	return s.current, nil
}

// Matches reports whether code equals the current or the previous code.
// A closed session matches nothing.
func (s *Session) Matches(code string) bool {
	if code == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.phase == PhaseClosed {
		return false
	}
	return code == s.current || (s.previous != "" && code == s.previous)
}

// Close marks the session closed and releases Done waiters. Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.phase = PhaseClosed
		s.mu.Unlock()
		close(s.done)
	})
}

// Done is closed once the session is closed
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Phase returns the current lifecycle phase
func (s *Session) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// CurrentCode returns the code currently shown to the leader
func (s *Session) CurrentCode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Snapshot copies the public state of the session
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		ID:          s.ID,
		ClubCode:    s.ClubCode,
		Date:        s.Date,
		OpenedBy:    s.OpenedBy,
		OpenedAt:    s.OpenedAt,
		Phase:       s.phase.String(),
		CurrentCode: s.current,
		Rotations:   s.rotations,
	}
	if !s.lockedAt.IsZero() {
		t := s.lockedAt
		snap.LockedAt = &t
	}
	return snap
}
