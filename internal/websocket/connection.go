package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// FUNCTIONAL DISCOVERY: One leader screen receives at most one code per
	// interval plus command replies, so a small buffer never fills in practice
	writeBufferSize = 16

	defaultWriteWait = 5 * time.Second

	// closeGrace bounds how long Shutdown waits for queued frames to flush
	closeGrace = time.Second

	// maxCloseReason is the close frame payload limit minus the status code
	maxCloseReason = 123
)

type frame struct {
	close     bool
	closeCode int
	data      []byte
}

// Connection wraps one leader's WebSocket with a single writer goroutine
// ARCHITECTURAL DISCOVERY: WebSocket writes must be serialized to prevent race conditions
// TECHNICAL DISCOVERY: writeCh is never closed; writers select on ctx and
// writerDone instead, so a late rotation tick can never panic on a closed channel
type Connection struct {
	conn       *websocket.Conn
	writeCh    chan frame
	writeWait  time.Duration
	writerDone chan struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu       sync.RWMutex
	userID   string
	clubCode string
}

// NewConnection creates a connection wrapper and starts its writer
func NewConnection(conn *websocket.Conn, writeWait time.Duration) *Connection {
	if writeWait <= 0 {
		writeWait = defaultWriteWait
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		conn:       conn,
		writeCh:    make(chan frame, writeBufferSize),
		writeWait:  writeWait,
		writerDone: make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}

	go c.writeLoop()

	return c
}

// ARCHITECTURAL DISCOVERY: Single writer goroutine pattern eliminates races
func (c *Connection) writeLoop() {
	defer close(c.writerDone)

	for {
		select {
		case f := <-c.writeCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
				c.cancel()
				return
			}

			if f.close {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(f.closeCode, string(f.data)))
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, f.data); err != nil {
				c.cancel()
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// WriteText queues a text frame
func (c *Connection) WriteText(text string) error {
	return c.enqueue(frame{data: []byte(text)})
}

func (c *Connection) enqueue(f frame) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	timer := time.NewTimer(c.writeWait)
	defer timer.Stop()

	select {
	case c.writeCh <- f:
		return nil
	case <-timer.C:
		return ErrWriteTimeout
	case <-c.writerDone:
		return ErrConnectionClosed
	case <-c.ctx.Done():
		return ErrConnectionClosed
	}
}

// Shutdown sends message as a text frame followed by a close frame carrying
// the same reason, waits briefly for them to flush, and closes the socket.
// An empty message skips the text frame.
func (c *Connection) Shutdown(closeCode int, message string) error {
	if message != "" {
		_ = c.WriteText(message)
	}

	reason := message
	if len(reason) > maxCloseReason {
		reason = reason[:maxCloseReason]
	}
	if err := c.enqueue(frame{close: true, closeCode: closeCode, data: []byte(reason)}); err == nil {
		select {
		case <-c.writerDone:
		case <-time.After(closeGrace):
		}
	}
	return c.Close()
}

// Close cancels the writer and closes the socket. Idempotent.
// ARCHITECTURAL DISCOVERY: Clean shutdown requires careful goroutine coordination
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

// Done is closed when the connection is closed or its writer failed
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// SetUser records the authenticated leader
func (c *Connection) SetUser(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
}

// SetClub records the club whose window this connection controls
func (c *Connection) SetClub(clubCode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clubCode = clubCode
}

// IsAuthenticated reports whether the leader credential was accepted
func (c *Connection) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID != ""
}

// UserID returns the authenticated leader, empty before authentication
func (c *Connection) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// ClubCode returns the club this connection controls
func (c *Connection) ClubCode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clubCode
}
