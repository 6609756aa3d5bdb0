package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"clubattend/internal/app"
	"clubattend/internal/config"
)

// Seed shared by the end-to-end scenarios
const testSeed = `
users:
  - user_id: leader1
    name: Leader One
    is_leader: true
  - user_id: member1
    name: Member One
  - user_id: member2
    name: Member Two
  - user_id: leader2
    name: Leader Two
    is_leader: true
clubs:
  - club_code: ABC
    name: Alpha Book Club
  - club_code: XYZ
    name: Xylophone Club
memberships:
  - {user_id: leader1, club_code: ABC}
  - {user_id: member1, club_code: ABC}
  - {user_id: member2, club_code: ABC}
  - {user_id: leader2, club_code: XYZ}
dates:
  - club_code: ABC
    set_by: leader1
    dates: ["2025-06-01"]
  - club_code: XYZ
    set_by: leader2
    dates: ["2025-06-01"]
`

const readWait = 3 * time.Second

// testEnv is a running application behind an httptest server
type testEnv struct {
	app    *app.Application
	server *httptest.Server
}

// InitializeTestApplication starts the full application on a temp sqlite
// database seeded with two clubs
func InitializeTestApplication(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	seedPath := filepath.Join(dir, "seed.yaml")
	if err := os.WriteFile(seedPath, []byte(testSeed), 0o600); err != nil {
		t.Fatalf("Failed to write seed file: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(dir, "integration.db")
	cfg.Database.SeedFile = seedPath
	cfg.HTTP.Mode = "test"
	cfg.Auth.JWTSecret = "integration-secret"
	cfg.Attendance.Timezone = "UTC"

	application, err := app.NewApplication(cfg)
	if err != nil {
		t.Fatalf("Failed to create application: %v", err)
	}
	server := httptest.NewServer(application.Handler())

	t.Cleanup(server.Close)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := application.Stop(ctx); err != nil {
			t.Logf("Failed to stop application: %v", err)
		}
	})

	return &testEnv{app: application, server: server}
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := e.app.Verifier().Issue(userID, time.Hour)
	if err != nil {
		t.Fatalf("Failed to issue token for %s: %v", userID, err)
	}
	return token
}

// request sends an authenticated JSON request and decodes the response body into out
func (e *testEnv) request(t *testing.T, method, path, userID string, body, out interface{}) int {
	t.Helper()

	token := ""
	if userID != "" {
		token = e.token(t, userID)
	}
	status, err := e.send(method, path, token, body, out)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return status
}

// send performs the request without a *testing.T so it can run from any goroutine
func (e *testEnv) send(method, path, token string, body, out interface{}) (int, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, err
		}
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

// errorBody is the API failure shape
type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// leaderClient is a leader screen connected to the live channel
type leaderClient struct {
	t    *testing.T
	conn *websocket.Conn
}

// openLeader dials the live channel and authenticates as userID
func (e *testEnv) openLeader(t *testing.T, userID, date string) *leaderClient {
	t.Helper()

	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws/attendance"
	if date != "" {
		url += "?date=" + date
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial live channel: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := conn.WriteMessage(websocket.TextMessage, []byte(e.token(t, userID))); err != nil {
		t.Fatalf("Failed to send credential: %v", err)
	}
	return &leaderClient{t: t, conn: conn}
}

// next returns the next text frame
func (c *leaderClient) next() string {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(readWait))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		c.t.Fatalf("Expected a message from the server: %v", err)
	}
	return string(data)
}

func (c *leaderClient) send(text string) {
	c.t.Helper()
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		c.t.Fatalf("Failed to send %q: %v", text, err)
	}
}

// expectClosed reads until the server closes the connection
func (c *leaderClient) expectClosed() {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(readWait))
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway,
				websocket.ClosePolicyViolation, websocket.CloseInternalServerErr) {
				c.t.Fatalf("Expected a close frame, got %v", err)
			}
			return
		}
	}
}

// waitFor polls cond until it holds or the read wait elapses
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(readWait)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
