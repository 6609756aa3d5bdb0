package websocket

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"clubattend/internal/session"
)

// liveSession owns one open attendance window for the life of its connection
// ARCHITECTURAL DISCOVERY: Acquire on entry, release through finish only; every
// exit path (stop, disconnect, read error, rotation failure, external removal,
// max duration) funnels into the same sync.Once
type liveSession struct {
	h    *Handler
	conn *Connection
	sess *session.Session

	rotateCtx    context.Context
	stopRotation context.CancelFunc
	rotationDone chan struct{}

	finishOnce sync.Once
}

func newLiveSession(h *Handler, conn *Connection, sess *session.Session) *liveSession {
	ctx, cancel := context.WithCancel(context.Background())
	return &liveSession{
		h:            h,
		conn:         conn,
		sess:         sess,
		rotateCtx:    ctx,
		stopRotation: cancel,
		rotationDone: make(chan struct{}),
	}
}

func (l *liveSession) run() {
	log.Printf("Live attendance started: club=%s date=%s leader=%s", l.sess.ClubCode, l.sess.Date, l.sess.OpenedBy)

	first, err := l.sess.Rotate()
	if err != nil {
		log.Printf("Failed to generate first code for club %s: %v", l.sess.ClubCode, err)
		close(l.rotationDone)
		l.finish(websocket.CloseInternalServerErr, ReasonInternal)
		return
	}
	if err := l.conn.WriteText(first); err != nil {
		close(l.rotationDone)
		l.finish(0, "")
		return
	}

	go l.rotate()
	go l.watch()

	l.readLoop()
	l.finish(0, "")
}

// rotate replaces the code every interval until cancelled or locked
// TECHNICAL DISCOVERY: Cancellation is checked before and after each wait, so
// no tick commits once lock or teardown cancelled the loop
func (l *liveSession) rotate() {
	defer close(l.rotationDone)

	ticker := time.NewTicker(l.h.opts.RotationInterval)
	defer ticker.Stop()

	for {
		if l.rotateCtx.Err() != nil {
			return
		}
		select {
		case <-l.rotateCtx.Done():
			return
		case <-ticker.C:
		}
		if l.rotateCtx.Err() != nil {
			return
		}

		code, err := l.sess.Rotate()
		if err != nil {
			if !errors.Is(err, session.ErrSessionLocked) && !errors.Is(err, session.ErrSessionClosed) {
				log.Printf("Rotation failed for club %s: %v", l.sess.ClubCode, err)
				go l.finish(websocket.CloseInternalServerErr, ReasonInternal)
			}
			return
		}

		if err := l.conn.WriteText(code); err != nil {
			log.Printf("Failed to push code to leader of club %s: %v", l.sess.ClubCode, err)
			go l.finish(0, "")
			return
		}
	}
}

// watch ends the window when the session is removed elsewhere or times out
func (l *liveSession) watch() {
	var expired <-chan time.Time
	if limit := l.h.opts.MaxSessionDuration; limit > 0 {
		timer := time.NewTimer(limit)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-l.sess.Done():
		l.finish(websocket.CloseNormalClosure, ReasonStopped)
	case <-expired:
		log.Printf("Attendance window for club %s reached its maximum duration", l.sess.ClubCode)
		l.finish(websocket.CloseNormalClosure, ReasonMaxDuration)
	case <-l.conn.Done():
	}
}

func (l *liveSession) readLoop() {
	for {
		messageType, data, err := l.conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error for club %s: %v", l.sess.ClubCode, err)
			}
			return
		}
		// Leader frames count as liveness too
		_ = l.conn.conn.SetReadDeadline(time.Now().Add(l.h.opts.ReadTimeout))

		if messageType != websocket.TextMessage {
			continue
		}

		text := strings.TrimSpace(string(data))
		switch strings.ToLower(text) {
		case "lock":
			l.lock()
		case "stop":
			l.finish(websocket.CloseNormalClosure, ReasonStopped)
			return
		default:
			if err := l.conn.WriteText(unknownCommandPrefix + text); err != nil {
				return
			}
		}
	}
}

// lock stops rotation, waits for the loop to exit, then freezes the code
// FUNCTIONAL DISCOVERY: Waiting on rotationDone guarantees the frozen code is
// the last one the leader saw; no tick can land after the confirmation
func (l *liveSession) lock() {
	l.stopRotation()
	<-l.rotationDone

	code, err := l.sess.Lock()
	if err != nil {
		return
	}
	if err := l.conn.WriteText(code); err != nil {
		log.Printf("Failed to confirm lock to leader of club %s: %v", l.sess.ClubCode, err)
		return
	}
	log.Printf("Attendance locked: club=%s", l.sess.ClubCode)
}

// finish tears the window down exactly once. A zero closeCode closes the
// socket without a farewell frame. rotate must only call it from a new
// goroutine since finish waits for rotate to return.
func (l *liveSession) finish(closeCode int, reason string) {
	l.finishOnce.Do(func() {
		l.stopRotation()
		// A tick already past its cancellation check must not land after the farewell
		<-l.rotationDone
		l.h.sessions.Release(l.sess)
		l.h.registry.Remove(l.conn)

		if closeCode != 0 {
			_ = l.conn.Shutdown(closeCode, reason)
		} else {
			_ = l.conn.Close()
		}
		log.Printf("Live attendance ended: club=%s reason=%q", l.sess.ClubCode, reason)
	})
}
