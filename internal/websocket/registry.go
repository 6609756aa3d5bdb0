package websocket

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Registry tracks open live connections and which club each one controls
// ARCHITECTURAL DISCOVERY: Pure connection management without business logic;
// the session registry stays the source of truth for "is attendance open"
type Registry struct {
	mu          sync.RWMutex             // TECHNICAL DISCOVERY: RWMutex optimizes for read-heavy lookup patterns
	connections map[*Connection]struct{} // every upgraded connection, authenticated or not
	clubs       map[string]*Connection   // clubCode -> controlling connection
}

// NewRegistry creates a new connection registry
func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[*Connection]struct{}),
		clubs:       make(map[string]*Connection),
	}
}

// Add tracks a freshly upgraded connection
func (r *Registry) Add(conn *Connection) error {
	if conn == nil {
		return ErrNilConnection
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections[conn] = struct{}{}
	return nil
}

// BindClub marks conn as the controller of its club's window
func (r *Registry) BindClub(conn *Connection) error {
	if conn == nil {
		return ErrNilConnection
	}
	if !conn.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	clubCode := conn.ClubCode()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.connections[conn]; !ok {
		return ErrConnectionUnknown
	}
	if existing, ok := r.clubs[clubCode]; ok && existing != conn {
		return ErrClubAlreadyBound
	}
	r.clubs[clubCode] = conn
	return nil
}

// Remove forgets conn. Idempotent.
// RACE CONDITION FIX: Only removes the club binding if it still points at this connection
func (r *Registry) Remove(conn *Connection) {
	if conn == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.connections, conn)
	clubCode := conn.ClubCode()
	if registered, ok := r.clubs[clubCode]; ok && registered == conn {
		delete(r.clubs, clubCode)
	}
}

// ClubConnection returns the connection controlling a club's window
func (r *Registry) ClubConnection(clubCode string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.clubs[clubCode]
	return conn, ok
}

// GetStats returns registry statistics for monitoring and debugging
func (r *Registry) GetStats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return map[string]int{
		"total_connections":  len(r.connections),
		"leader_connections": len(r.clubs),
	}
}

// CloseAll shuts down every tracked connection with reason and returns the count
func (r *Registry) CloseAll(reason string) int {
	r.mu.Lock()
	conns := make([]*Connection, 0, len(r.connections))
	for conn := range r.connections {
		conns = append(conns, conn)
	}
	r.connections = make(map[*Connection]struct{})
	r.clubs = make(map[string]*Connection)
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, conn := range conns {
		wg.Add(1)
		go func(c *Connection) {
			defer wg.Done()
			if err := c.Shutdown(websocket.CloseGoingAway, reason); err != nil {
				log.Printf("Failed to close connection for %s: %v", c.UserID(), err)
			}
		}(conn)
	}
	wg.Wait()

	return len(conns)
}
