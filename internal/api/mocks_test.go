package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"clubattend/internal/auth"
	"clubattend/pkg/interfaces"
	"clubattend/pkg/types"
)

// mockDatabaseManager is an in-memory DatabaseManager for handler tests
type mockDatabaseManager struct {
	mu          sync.Mutex
	users       map[string]*types.User
	clubs       map[string]*types.Club
	memberships map[string]string // userID -> clubCode
	dates       map[string]*types.AttendanceDate
	records     map[string]*types.AttendanceRecord // userID|dateID
	nextDateID  int64
	healthErr   error
	backendErr  error
}

func newMockDatabaseManager() *mockDatabaseManager {
	return &mockDatabaseManager{
		users:       make(map[string]*types.User),
		clubs:       make(map[string]*types.Club),
		memberships: make(map[string]string),
		dates:       make(map[string]*types.AttendanceDate),
		records:     make(map[string]*types.AttendanceRecord),
	}
}

func dateKey(clubCode, date string) string { return clubCode + "|" + date }

func (m *mockDatabaseManager) GetUser(ctx context.Context, userID string) (*types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return u, nil
}

func (m *mockDatabaseManager) CreateUser(ctx context.Context, user *types.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.UserID] = user
	return nil
}

func (m *mockDatabaseManager) CreateClub(ctx context.Context, club *types.Club) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clubs[club.Code] = club
	return nil
}

func (m *mockDatabaseManager) GetClub(ctx context.Context, clubCode string) (*types.Club, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clubs[clubCode]
	if !ok {
		return nil, interfaces.ErrClubNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *mockDatabaseManager) JoinClub(ctx context.Context, userID, clubCode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clubs[clubCode]; !ok {
		return interfaces.ErrClubNotFound
	}
	if m.memberships[userID] == clubCode {
		return interfaces.ErrAlreadyMember
	}
	m.memberships[userID] = clubCode
	return nil
}

func (m *mockDatabaseManager) IsMember(ctx context.Context, userID, clubCode string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.backendErr != nil {
		return false, m.backendErr
	}
	return m.memberships[userID] == clubCode, nil
}

func (m *mockDatabaseManager) IsClubLeader(ctx context.Context, userID, clubCode string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	return ok && u.IsLeader && m.memberships[userID] == clubCode, nil
}

func (m *mockDatabaseManager) ResolveLeaderClub(ctx context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok || !u.IsLeader {
		return "", interfaces.ErrForbidden
	}
	club, ok := m.memberships[userID]
	if !ok {
		return "", interfaces.ErrNotFound
	}
	return club, nil
}

func (m *mockDatabaseManager) UpdateClubLocation(ctx context.Context, clubCode string, location types.ClubLocation) error {
	if err := location.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clubs[clubCode]
	if !ok {
		return interfaces.ErrClubNotFound
	}
	c.Location = location
	return nil
}

func (m *mockDatabaseManager) RegisterDates(ctx context.Context, clubCode, setBy string, dates []string) ([]*types.AttendanceDate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*types.AttendanceDate, 0, len(dates))
	for _, d := range dates {
		key := dateKey(clubCode, d)
		existing, ok := m.dates[key]
		if !ok {
			m.nextDateID++
			existing = &types.AttendanceDate{ID: m.nextDateID, ClubCode: clubCode, Date: d, SetBy: setBy, CreatedAt: time.Now()}
			m.dates[key] = existing
		}
		out = append(out, existing)
	}
	return out, nil
}

func (m *mockDatabaseManager) GetAttendanceDate(ctx context.Context, clubCode, date string) (*types.AttendanceDate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.dates[dateKey(clubCode, date)]
	if !ok {
		return nil, interfaces.ErrDateNotRegistered
	}
	return d, nil
}

func (m *mockDatabaseManager) DateIsRegistered(ctx context.Context, clubCode, date string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.dates[dateKey(clubCode, date)]
	return ok, nil
}

func (m *mockDatabaseManager) RecordAttendance(ctx context.Context, userID, clubCode, date, status string) (*types.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.dates[dateKey(clubCode, date)]
	if !ok {
		return nil, interfaces.ErrDateNotRegistered
	}
	key := fmt.Sprintf("%s|%d", userID, d.ID)
	if _, exists := m.records[key]; exists {
		return nil, interfaces.ErrAlreadyRecorded
	}
	rec := &types.AttendanceRecord{ID: key, UserID: userID, AttendanceDateID: d.ID, Status: status, CheckedAt: time.Now()}
	m.records[key] = rec
	return rec, nil
}

func (m *mockDatabaseManager) Roster(ctx context.Context, clubCode, date string) (*types.Roster, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.dates[dateKey(clubCode, date)]
	if !ok {
		return nil, interfaces.ErrDateNotRegistered
	}
	roster := &types.Roster{AttendanceDate: *d, Entries: []types.RosterEntry{}}
	for userID, club := range m.memberships {
		if club != clubCode {
			continue
		}
		entry := types.RosterEntry{UserID: userID, Name: m.users[userID].Name}
		if rec, ok := m.records[fmt.Sprintf("%s|%d", userID, d.ID)]; ok {
			entry.Status = rec.Status
			t := rec.CheckedAt
			entry.CheckedAt = &t
		}
		roster.Entries = append(roster.Entries, entry)
	}
	return roster, nil
}

func (m *mockDatabaseManager) MemberHistory(ctx context.Context, userID, clubCode string) ([]*types.MemberAttendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var history []*types.MemberAttendance
	for _, d := range m.dates {
		if d.ClubCode != clubCode {
			continue
		}
		item := &types.MemberAttendance{AttendanceDateID: d.ID, Date: d.Date}
		if rec, ok := m.records[fmt.Sprintf("%s|%d", userID, d.ID)]; ok {
			item.Status = rec.Status
		}
		history = append(history, item)
	}
	return history, nil
}

func (m *mockDatabaseManager) BulkUpdateAttendance(ctx context.Context, clubCode string, attendanceDateID int64, updates []types.AttendanceUpdate) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range updates {
		if !types.IsValidStatus(u.Status) {
			return 0, types.ErrInvalidStatus
		}
	}
	for _, u := range updates {
		key := fmt.Sprintf("%s|%d", u.UserID, attendanceDateID)
		m.records[key] = &types.AttendanceRecord{ID: key, UserID: u.UserID, AttendanceDateID: attendanceDateID, Status: u.Status}
	}
	return len(updates), nil
}

func (m *mockDatabaseManager) HealthCheck(ctx context.Context) error {
	return m.healthErr
}

func (m *mockDatabaseManager) Close() error { return nil }

// mockAuthenticator accepts "<user>-token" credentials for known users
type mockAuthenticator struct {
	db *mockDatabaseManager
}

func (a *mockAuthenticator) Authenticate(ctx context.Context, credential string) (*types.User, error) {
	userID, ok := strings.CutSuffix(auth.StripBearer(credential), "-token")
	if !ok || userID == "" {
		return nil, interfaces.ErrUnauthenticated
	}
	user, err := a.db.GetUser(ctx, userID)
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil, interfaces.ErrUnauthenticated
	}
	return user, err
}

// mockLive records that the WebSocket route was hit
type mockLive struct {
	mu   sync.Mutex
	hits int
}

func (l *mockLive) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	l.mu.Lock()
	l.hits++
	l.mu.Unlock()
	w.WriteHeader(http.StatusTeapot)
}

func (l *mockLive) Stats() map[string]int {
	return map[string]int{"total_connections": 1, "leader_connections": 1}
}
