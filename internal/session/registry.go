package session

import (
	"log"
	"sort"
	"sync"

	"clubattend/pkg/types"
)

// Registry holds the open attendance session of each club
// ARCHITECTURAL DISCOVERY: The map is the only shared mutable state; the lock
// guards map membership only and is never held while touching a session
type Registry struct {
	mu        sync.RWMutex
	sessions  map[string]*Session // clubCode -> Session
	generator Generator
}

// NewRegistry creates an empty registry whose sessions draw codes from generator
func NewRegistry(generator Generator) *Registry {
	if generator == nil {
		generator = NewNumericGenerator(DefaultCodeLength)
	}
	return &Registry{
		sessions:  make(map[string]*Session),
		generator: generator,
	}
}

// Create opens a session for the club
// FUNCTIONAL DISCOVERY: A second open for a club that already has a live
// session is rejected rather than preempting, so two leader screens can never
// both believe they own the window
func (r *Registry) Create(clubCode, date, openedBy string) (*Session, error) {
	if !types.IsValidClubCode(clubCode) {
		return nil, types.ErrInvalidClubCode
	}
	canonical, err := types.ParseAttendanceDate(date)
	if err != nil {
		return nil, err
	}
	if openedBy == "" {
		return nil, ErrMissingOpener
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[clubCode]; exists {
		return nil, ErrSessionConflict
	}

	s := newSession(clubCode, canonical, openedBy, r.generator)
	r.sessions[clubCode] = s

	log.Printf("Opened attendance session: id=%s club=%s date=%s by=%s", s.ID, clubCode, canonical, openedBy)
	return s, nil
}

// Get returns the open session of a club
func (r *Registry) Get(clubCode string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.sessions[clubCode]
	return s, exists
}

// Remove closes and removes the club's session. Reports whether one existed.
func (r *Registry) Remove(clubCode string) bool {
	r.mu.Lock()
	s, exists := r.sessions[clubCode]
	if exists {
		delete(r.sessions, clubCode)
	}
	r.mu.Unlock()

	if !exists {
		return false
	}
	s.Close()
	log.Printf("Removed attendance session: id=%s club=%s", s.ID, clubCode)
	return true
}

// Release removes s only if it is still the registered session of its club,
// then closes it. Idempotent.
// RACE CONDITION FIX: a handler tearing down an old session must not remove a
// newer session opened for the same club after the old one was removed
func (r *Registry) Release(s *Session) bool {
	if s == nil {
		return false
	}

	r.mu.Lock()
	registered, exists := r.sessions[s.ClubCode]
	removed := exists && registered == s
	if removed {
		delete(r.sessions, s.ClubCode)
	}
	r.mu.Unlock()

	s.Close()
	if removed {
		log.Printf("Released attendance session: id=%s club=%s", s.ID, s.ClubCode)
	}
	return removed
}

// List returns snapshots of all open sessions ordered by club code
func (r *Registry) List() []Snapshot {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	snaps := make([]Snapshot, 0, len(sessions))
	for _, s := range sessions {
		snaps = append(snaps, s.Snapshot())
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].ClubCode < snaps[j].ClubCode })
	return snaps
}

// Count returns the number of open sessions
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll closes and removes every session and returns how many were open
func (r *Registry) CloseAll() int {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	if len(sessions) > 0 {
		log.Printf("Closed %d attendance sessions", len(sessions))
	}
	return len(sessions)
}
