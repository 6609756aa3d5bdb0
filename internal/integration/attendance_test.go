package integration

import (
	"net/http"
	"regexp"
	"strings"
	"sync"
	"testing"

	"clubattend/internal/websocket"
)

var codePattern = regexp.MustCompile(`^ABC:\d{3}$`)

type checkInBody struct {
	ClubCode  string   `json:"club_code"`
	Code      string   `json:"code"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

type rosterBody struct {
	Entries []struct {
		UserID string `json:"user_id"`
		Status string `json:"status"`
	} `json:"entries"`
}

func digits(code string) string {
	_, d, _ := strings.Cut(code, ":")
	return d
}

// TestAttendance_EndToEnd runs the leader/member flow for ABC on 2025-06-01:
// open, lock, check in, duplicate, stop, then check in after close
func TestAttendance_EndToEnd(t *testing.T) {
	env := InitializeTestApplication(t)

	leader := env.openLeader(t, "leader1", "2025-06-01")
	code := leader.next()
	if !codePattern.MatchString(code) {
		t.Fatalf("expected a code like ABC:789, got %q", code)
	}

	leader.send("lock")
	locked := leader.next()
	if locked != code {
		t.Fatalf("lock should freeze the displayed code %s, got %s", code, locked)
	}

	var snap struct {
		Phase string `json:"phase"`
		Date  string `json:"date"`
	}
	if status := env.request(t, http.MethodGet, "/api/admin/session", "leader1", nil, &snap); status != http.StatusOK {
		t.Fatalf("session status: expected 200, got %d", status)
	}
	if snap.Phase != "locked" || snap.Date != "2025-06-01" {
		t.Errorf("unexpected session %+v", snap)
	}

	var errResp errorBody
	if status := env.request(t, http.MethodPost, "/api/attend/check", "member1",
		checkInBody{ClubCode: "ABC", Code: "nope"}, &errResp); status != http.StatusBadRequest || errResp.Code != "code_mismatch" {
		t.Errorf("wrong code: expected 400 code_mismatch, got %d %s", status, errResp.Code)
	}

	if status := env.request(t, http.MethodPost, "/api/attend/check", "member1",
		checkInBody{ClubCode: "ABC", Code: digits(locked)}, nil); status != http.StatusCreated {
		t.Fatalf("check-in: expected 201, got %d", status)
	}
	if status := env.request(t, http.MethodPost, "/api/attend/check", "member1",
		checkInBody{ClubCode: "ABC", Code: digits(locked)}, &errResp); status != http.StatusConflict || errResp.Code != "duplicate_checkin" {
		t.Errorf("duplicate: expected 409 duplicate_checkin, got %d %s", status, errResp.Code)
	}

	var roster rosterBody
	if status := env.request(t, http.MethodGet, "/api/admin/attendance/2025-06-01", "leader1", nil, &roster); status != http.StatusOK {
		t.Fatalf("roster: expected 200, got %d", status)
	}
	statuses := make(map[string]string)
	for _, e := range roster.Entries {
		statuses[e.UserID] = e.Status
	}
	if statuses["member1"] != "present" || statuses["member2"] != "" {
		t.Errorf("unexpected roster %+v", statuses)
	}

	leader.send("stop")
	if msg := leader.next(); msg != websocket.ReasonStopped {
		t.Errorf("expected stop acknowledgement, got %q", msg)
	}
	leader.expectClosed()

	if status := env.request(t, http.MethodPost, "/api/attend/check", "member2",
		checkInBody{ClubCode: "ABC", Code: digits(locked)}, &errResp); status != http.StatusNotFound || errResp.Code != "not_open" {
		t.Errorf("after stop: expected 404 not_open, got %d %s", status, errResp.Code)
	}
	if env.app.Sessions().Count() != 0 {
		t.Errorf("expected no open sessions, got %d", env.app.Sessions().Count())
	}
}

func TestAttendance_QRCheckIn(t *testing.T) {
	env := InitializeTestApplication(t)

	leader := env.openLeader(t, "leader1", "2025-06-01")
	code := leader.next()

	body := map[string]string{"qr_code": code}
	if status := env.request(t, http.MethodPost, "/api/attend/check_qr", "member1", body, nil); status != http.StatusCreated {
		t.Fatalf("QR check-in: expected 201, got %d", status)
	}
}

func TestAttendance_GeofenceRejectsMatchingCode(t *testing.T) {
	env := InitializeTestApplication(t)

	location := map[string]interface{}{
		"location_enabled": true, "latitude": 37.5665, "longitude": 126.9780, "radius_km": 0.3,
	}
	if status := env.request(t, http.MethodPut, "/api/admin/location", "leader1", location, nil); status != http.StatusOK {
		t.Fatalf("location update: expected 200, got %d", status)
	}

	leader := env.openLeader(t, "leader1", "2025-06-01")
	code := leader.next()

	var errResp errorBody
	if status := env.request(t, http.MethodPost, "/api/attend/check", "member1",
		checkInBody{ClubCode: "ABC", Code: code}, &errResp); status != http.StatusBadRequest || errResp.Code != "location_required" {
		t.Errorf("no coordinates: expected 400 location_required, got %d %s", status, errResp.Code)
	}

	farLat, farLon := 35.1796, 129.0756
	if status := env.request(t, http.MethodPost, "/api/attend/check", "member1",
		checkInBody{ClubCode: "ABC", Code: code, Latitude: &farLat, Longitude: &farLon}, &errResp); status != http.StatusBadRequest || errResp.Code != "out_of_geofence" {
		t.Errorf("far away: expected 400 out_of_geofence, got %d %s", status, errResp.Code)
	}

	nearLat, nearLon := 37.5670, 126.9785
	if status := env.request(t, http.MethodPost, "/api/attend/check", "member1",
		checkInBody{ClubCode: "ABC", Code: code, Latitude: &nearLat, Longitude: &nearLon}, nil); status != http.StatusCreated {
		t.Errorf("inside geofence: expected 201, got %d", status)
	}
}

func TestAttendance_LiveChannelRejections(t *testing.T) {
	env := InitializeTestApplication(t)

	member := env.openLeader(t, "member1", "2025-06-01")
	if msg := member.next(); msg != websocket.ReasonNotLeader {
		t.Errorf("member: expected %q, got %q", websocket.ReasonNotLeader, msg)
	}
	member.expectClosed()

	unknownDate := env.openLeader(t, "leader1", "2030-01-01")
	if msg := unknownDate.next(); !strings.HasPrefix(msg, websocket.ReasonDateNotFound) {
		t.Errorf("unregistered date: got %q", msg)
	}
	unknownDate.expectClosed()

	first := env.openLeader(t, "leader1", "2025-06-01")
	first.next()
	second := env.openLeader(t, "leader1", "2025-06-01")
	if msg := second.next(); msg != websocket.ReasonSessionConflict {
		t.Errorf("second screen: expected %q, got %q", websocket.ReasonSessionConflict, msg)
	}
	second.expectClosed()

	// The first screen is unaffected and can still lock
	first.send("lock")
	if code := first.next(); !codePattern.MatchString(code) {
		t.Errorf("first screen should keep its session, got %q", code)
	}
}

func TestAttendance_RestStopClosesLiveChannel(t *testing.T) {
	env := InitializeTestApplication(t)

	leader := env.openLeader(t, "leader1", "2025-06-01")
	leader.next()

	if status := env.request(t, http.MethodDelete, "/api/admin/session", "leader1", nil, nil); status != http.StatusOK {
		t.Fatalf("stop: expected 200, got %d", status)
	}
	if msg := leader.next(); msg != websocket.ReasonStopped {
		t.Errorf("expected stop notice on the live channel, got %q", msg)
	}
	leader.expectClosed()
}

func TestAttendance_DisconnectReleasesSession(t *testing.T) {
	env := InitializeTestApplication(t)

	leader := env.openLeader(t, "leader1", "2025-06-01")
	leader.next()
	leader.conn.Close()

	waitFor(t, func() bool { return env.app.Sessions().Count() == 0 })

	// The club can open again at once
	again := env.openLeader(t, "leader1", "2025-06-01")
	if code := again.next(); !codePattern.MatchString(code) {
		t.Errorf("reopen: expected a code, got %q", code)
	}
}

func TestAttendance_ClubsAreIndependent(t *testing.T) {
	env := InitializeTestApplication(t)

	abc := env.openLeader(t, "leader1", "2025-06-01")
	abcCode := abc.next()
	xyz := env.openLeader(t, "leader2", "2025-06-01")
	xyzCode := xyz.next()
	if !strings.HasPrefix(xyzCode, "XYZ:") {
		t.Fatalf("expected an XYZ code, got %q", xyzCode)
	}

	// An ABC member cannot use the XYZ code
	var errResp errorBody
	if status := env.request(t, http.MethodPost, "/api/attend/check", "member1",
		checkInBody{ClubCode: "XYZ", Code: xyzCode}, &errResp); status != http.StatusForbidden || errResp.Code != "not_member" {
		t.Errorf("foreign club: expected 403 not_member, got %d %s", status, errResp.Code)
	}

	// Concurrent check-ins of distinct members all land
	tokens := []string{env.token(t, "member1"), env.token(t, "member2")}
	var wg sync.WaitGroup
	statuses := make([]int, len(tokens))
	errs := make([]error, len(tokens))
	for i, token := range tokens {
		wg.Add(1)
		go func(i int, token string) {
			defer wg.Done()
			statuses[i], errs[i] = env.send(http.MethodPost, "/api/attend/check", token,
				checkInBody{ClubCode: "ABC", Code: abcCode}, nil)
		}(i, token)
	}
	wg.Wait()
	for i := range tokens {
		if errs[i] != nil || statuses[i] != http.StatusCreated {
			t.Errorf("concurrent check-in %d: expected 201, got %d %v", i, statuses[i], errs[i])
		}
	}
}
