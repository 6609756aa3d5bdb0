package websocket

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"clubattend/internal/session"
	"clubattend/pkg/interfaces"
	"clubattend/pkg/types"
)

// LeaderDirectory answers who runs which club
type LeaderDirectory interface {
	ResolveLeaderClub(ctx context.Context, userID string) (string, error)
	IsClubLeader(ctx context.Context, userID, clubCode string) (bool, error)
}

// DateRegistry reports whether a club registered a meeting date
type DateRegistry interface {
	DateIsRegistered(ctx context.Context, clubCode, date string) (bool, error)
}

// Options tunes the live attendance channel
type Options struct {
	RotationInterval   time.Duration
	AuthTimeout        time.Duration
	PingInterval       time.Duration
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	MaxSessionDuration time.Duration // 0 keeps the window open for the connection's lifetime
	Location           *time.Location
	AllowedOrigins     []string // empty allows any origin
}

// DefaultOptions mirrors the config defaults
func DefaultOptions() Options {
	return Options{
		RotationInterval: 10 * time.Second,
		AuthTimeout:      10 * time.Second,
		PingInterval:     30 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		Location:         time.Local,
	}
}

// Handler serves the leader's live attendance connection
// ARCHITECTURAL DISCOVERY: Clean separation of WebSocket handling from business logic;
// the handler only sequences auth, authorization, date check and session lifetime
type Handler struct {
	registry *Registry
	sessions *session.Registry
	authn    interfaces.Authenticator
	leaders  LeaderDirectory
	dates    DateRegistry
	opts     Options
	upgrader websocket.Upgrader
	now      func() time.Time
}

// NewHandler creates a new WebSocket handler with dependency injection
func NewHandler(registry *Registry, sessions *session.Registry, authn interfaces.Authenticator,
	leaders LeaderDirectory, dates DateRegistry, opts Options) *Handler {
	defaults := DefaultOptions()
	if opts.RotationInterval <= 0 {
		opts.RotationInterval = defaults.RotationInterval
	}
	if opts.AuthTimeout <= 0 {
		opts.AuthTimeout = defaults.AuthTimeout
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaults.PingInterval
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaults.ReadTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaults.WriteTimeout
	}
	if opts.Location == nil {
		opts.Location = defaults.Location
	}

	h := &Handler{
		registry: registry,
		sessions: sessions,
		authn:    authn,
		leaders:  leaders,
		dates:    dates,
		opts:     opts,
		now:      time.Now,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin:      h.checkOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
	return h
}

// FUNCTIONAL DISCOVERY: Allow all origins unless an allow-list is configured,
// matching the REST CORS settings
func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range h.opts.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) || strings.EqualFold(allowed, u.Host) {
			return true
		}
	}
	return false
}

// HandleWebSocket upgrades GET /ws/attendance?date=YYYY-MM-DD and runs the
// leader's attendance window until it is stopped or the connection drops
// ARCHITECTURAL DISCOVERY: Every check happens after the upgrade so failures
// reach the leader as a reason string instead of a bare HTTP status
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	rawDate := r.URL.Query().Get("date")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	conn.SetReadLimit(4096)

	wsConn := NewConnection(conn, h.opts.WriteTimeout)
	if err := h.registry.Add(wsConn); err != nil {
		log.Printf("Failed to register connection: %v", err)
		_ = wsConn.Close()
		return
	}

	h.serve(wsConn, rawDate)
}

func (h *Handler) serve(conn *Connection, rawDate string) {
	defer func() {
		h.registry.Remove(conn)
		_ = conn.Close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-conn.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	user, reason := h.authenticate(ctx, conn)
	if reason != "" {
		h.reject(conn, websocket.ClosePolicyViolation, reason)
		return
	}
	conn.SetUser(user.UserID)

	clubCode, closeCode, reason := h.authorize(ctx, user)
	if reason != "" {
		h.reject(conn, closeCode, reason)
		return
	}

	date, closeCode, reason := h.resolveDate(ctx, clubCode, rawDate)
	if reason != "" {
		h.reject(conn, closeCode, reason)
		return
	}

	sess, err := h.sessions.Create(clubCode, date, user.UserID)
	if err != nil {
		if errors.Is(err, session.ErrSessionConflict) {
			h.reject(conn, websocket.ClosePolicyViolation, ReasonSessionConflict)
		} else {
			log.Printf("Failed to open attendance session for club %s: %v", clubCode, err)
			h.reject(conn, websocket.CloseInternalServerErr, ReasonInternal)
		}
		return
	}

	conn.SetClub(clubCode)
	if err := h.registry.BindClub(conn); err != nil {
		log.Printf("Failed to bind connection to club %s: %v", clubCode, err)
		h.sessions.Release(sess)
		h.reject(conn, websocket.CloseInternalServerErr, ReasonInternal)
		return
	}

	h.startHeartbeat(conn)
	newLiveSession(h, conn, sess).run()
}

// authenticate reads the first frame as the bearer credential
func (h *Handler) authenticate(ctx context.Context, conn *Connection) (*types.User, string) {
	if err := conn.conn.SetReadDeadline(time.Now().Add(h.opts.AuthTimeout)); err != nil {
		return nil, ReasonInternal
	}

	messageType, data, err := conn.conn.ReadMessage()
	if err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, ReasonAuthTimeout
		}
		return nil, ReasonAuthFailed
	}
	if messageType != websocket.TextMessage {
		return nil, ReasonAuthFailed
	}

	user, err := h.authn.Authenticate(ctx, string(data))
	if err != nil {
		if !errors.Is(err, interfaces.ErrUnauthenticated) {
			log.Printf("Authentication backend error: %v", err)
		}
		return nil, ReasonAuthFailed
	}
	return user, ""
}

// authorize resolves the club the user leads and confirms leadership
func (h *Handler) authorize(ctx context.Context, user *types.User) (string, int, string) {
	clubCode, err := h.leaders.ResolveLeaderClub(ctx, user.UserID)
	if err != nil {
		if errors.Is(err, interfaces.ErrForbidden) || errors.Is(err, interfaces.ErrNotFound) {
			return "", websocket.ClosePolicyViolation, ReasonNotLeader
		}
		log.Printf("Failed to resolve club for leader %s: %v", user.UserID, err)
		return "", websocket.CloseInternalServerErr, ReasonInternal
	}

	isLeader, err := h.leaders.IsClubLeader(ctx, user.UserID, clubCode)
	if err != nil {
		log.Printf("Failed to check leadership of %s for %s: %v", user.UserID, clubCode, err)
		return "", websocket.CloseInternalServerErr, ReasonInternal
	}
	if !isLeader {
		return "", websocket.ClosePolicyViolation, ReasonNotLeader
	}
	return clubCode, 0, ""
}

// resolveDate defaults to today in the configured zone and requires registration
func (h *Handler) resolveDate(ctx context.Context, clubCode, rawDate string) (string, int, string) {
	date := rawDate
	if date == "" {
		date = h.now().In(h.opts.Location).Format(types.DateLayout)
	}
	canonical, err := types.ParseAttendanceDate(date)
	if err != nil {
		return "", websocket.ClosePolicyViolation, ReasonInvalidDate + ": " + rawDate
	}

	registered, err := h.dates.DateIsRegistered(ctx, clubCode, canonical)
	if err != nil {
		log.Printf("Failed to check date %s for club %s: %v", canonical, clubCode, err)
		return "", websocket.CloseInternalServerErr, ReasonInternal
	}
	if !registered {
		return "", websocket.ClosePolicyViolation, ReasonDateNotFound + ": " + canonical
	}
	return canonical, 0, ""
}

func (h *Handler) reject(conn *Connection, closeCode int, reason string) {
	log.Printf("Rejected live connection user=%q: %s", conn.UserID(), reason)
	_ = conn.Shutdown(closeCode, reason)
}

// startHeartbeat enforces the liveness timeout with ping/pong
// TECHNICAL DISCOVERY: The read deadline is extended only by pongs (and
// leader frames), so a partitioned client without a close frame still tears
// down the window within ReadTimeout
func (h *Handler) startHeartbeat(conn *Connection) {
	_ = conn.conn.SetReadDeadline(time.Now().Add(h.opts.ReadTimeout))
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(h.opts.ReadTimeout))
	})

	go func() {
		ticker := time.NewTicker(h.opts.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.opts.WriteTimeout)); err != nil {
					return
				}
			case <-conn.Done():
				return
			}
		}
	}()
}

// Stats returns live connection counts
func (h *Handler) Stats() map[string]int {
	return h.registry.GetStats()
}

// CloseAll disconnects every live connection during shutdown
func (h *Handler) CloseAll() int {
	return h.registry.CloseAll(ReasonShutdown)
}
