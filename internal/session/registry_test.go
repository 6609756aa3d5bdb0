package session

import (
	"sync"
	"testing"

	"clubattend/pkg/types"
)

func TestRegistry_CreateAndGet(t *testing.T) {
	r := NewRegistry(&sequenceGenerator{})

	s, err := r.Create("ABC", "2025-06-01", "leader1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, ok := r.Get("ABC")
	if !ok || got != s {
		t.Fatal("Get should return the created session")
	}
	if _, ok := r.Get("XYZ"); ok {
		t.Error("unknown club should not have a session")
	}
	if r.Count() != 1 {
		t.Errorf("expected 1 session, got %d", r.Count())
	}
}

func TestRegistry_CreateValidation(t *testing.T) {
	r := NewRegistry(nil)

	if _, err := r.Create("", "2025-06-01", "leader1"); err != types.ErrInvalidClubCode {
		t.Errorf("expected ErrInvalidClubCode, got %v", err)
	}
	if _, err := r.Create("ABC", "June 1st", "leader1"); err != types.ErrInvalidDate {
		t.Errorf("expected ErrInvalidDate, got %v", err)
	}
	if _, err := r.Create("ABC", "2025-06-01", ""); err != ErrMissingOpener {
		t.Errorf("expected ErrMissingOpener, got %v", err)
	}
	if r.Count() != 0 {
		t.Errorf("failed creates must not register sessions, got %d", r.Count())
	}
}

func TestRegistry_RejectsSecondSessionForClub(t *testing.T) {
	r := NewRegistry(&sequenceGenerator{})
	first, _ := r.Create("ABC", "2025-06-01", "leader1")

	if _, err := r.Create("ABC", "2025-06-01", "leader2"); err != ErrSessionConflict {
		t.Errorf("expected ErrSessionConflict, got %v", err)
	}
	if got, _ := r.Get("ABC"); got != first {
		t.Error("rejected create must leave the original session in place")
	}

	// Another club is independent
	if _, err := r.Create("XYZ", "2025-06-01", "leader3"); err != nil {
		t.Errorf("different club should not conflict: %v", err)
	}
}

func TestRegistry_ConcurrentCreateSingleWinner(t *testing.T) {
	r := NewRegistry(&sequenceGenerator{})

	const attempts = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Create("ABC", "2025-06-01", "leader1"); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			} else if err != ErrSessionConflict {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("expected exactly one session created, got %d", winners)
	}
	if r.Count() != 1 {
		t.Errorf("expected 1 registered session, got %d", r.Count())
	}
}

func TestRegistry_RemoveClosesSession(t *testing.T) {
	r := NewRegistry(&sequenceGenerator{})
	s, _ := r.Create("ABC", "2025-06-01", "leader1")

	if !r.Remove("ABC") {
		t.Fatal("Remove should report an existing session")
	}
	if r.Remove("ABC") {
		t.Error("second Remove should report nothing removed")
	}
	if _, ok := r.Get("ABC"); ok {
		t.Error("removed session should not be found")
	}
	select {
	case <-s.Done():
	default:
		t.Error("removed session should be closed")
	}

	// Club can open again after removal
	if _, err := r.Create("ABC", "2025-06-01", "leader1"); err != nil {
		t.Errorf("re-create after remove failed: %v", err)
	}
}

func TestRegistry_ReleaseOnlyOwnInstance(t *testing.T) {
	r := NewRegistry(&sequenceGenerator{})
	old, _ := r.Create("ABC", "2025-06-01", "leader1")
	r.Remove("ABC")
	newer, _ := r.Create("ABC", "2025-06-01", "leader1")

	if r.Release(old) {
		t.Error("releasing a stale session must not remove the newer one")
	}
	if got, ok := r.Get("ABC"); !ok || got != newer {
		t.Fatal("newer session should still be registered")
	}

	if !r.Release(newer) {
		t.Error("releasing the registered session should remove it")
	}
	if r.Release(newer) {
		t.Error("second release should be a no-op")
	}
	if r.Release(nil) {
		t.Error("nil release should be a no-op")
	}
}

func TestRegistry_ListAndCloseAll(t *testing.T) {
	r := NewRegistry(&sequenceGenerator{})
	a, _ := r.Create("XYZ", "2025-06-01", "leader2")
	b, _ := r.Create("ABC", "2025-06-01", "leader1")

	list := r.List()
	if len(list) != 2 || list[0].ClubCode != "ABC" || list[1].ClubCode != "XYZ" {
		t.Errorf("expected sorted ABC, XYZ, got %+v", list)
	}

	if n := r.CloseAll(); n != 2 {
		t.Errorf("expected 2 closed, got %d", n)
	}
	if r.Count() != 0 {
		t.Errorf("expected empty registry, got %d", r.Count())
	}
	for _, s := range []*Session{a, b} {
		if s.Phase() != PhaseClosed {
			t.Errorf("session %s should be closed", s.ClubCode)
		}
	}
}
