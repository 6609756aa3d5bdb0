package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"clubattend/pkg/interfaces"
	"clubattend/pkg/types"
)

// RegisterDates registers meeting dates for a club and returns their rows
func (m *Manager) RegisterDates(ctx context.Context, clubCode, setBy string, dates []string) ([]*types.AttendanceDate, error) {
	if len(dates) == 0 {
		return nil, nil
	}

	// Canonicalise and dedupe before touching the database
	canonical := make([]string, 0, len(dates))
	seen := make(map[string]bool, len(dates))
	for _, d := range dates {
		c, err := types.ParseAttendanceDate(d)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", err, d)
		}
		if !seen[c] {
			seen[c] = true
			canonical = append(canonical, c)
		}
	}

	err := m.executeTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM clubs WHERE club_code = ?", clubCode).Scan(&count); err != nil {
			return fmt.Errorf("failed to query club: %w", err)
		}
		if count == 0 {
			return interfaces.ErrClubNotFound
		}
		for _, d := range canonical {
			if _, err := tx.ExecContext(ctx, m.dialect.insertDateIgnore, clubCode, d, setBy); err != nil {
				return fmt.Errorf("failed to insert attendance date %s: %w", d, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	args := make([]interface{}, 0, len(canonical)+1)
	args = append(args, clubCode)
	for _, d := range canonical {
		args = append(args, d)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(canonical)), ", ")

	rows, err := m.db.QueryContext(ctx, `
		SELECT id, club_code, date, set_by, created_at
		FROM attendance_dates
		WHERE club_code = ? AND date IN (`+placeholders+`)
		ORDER BY date ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance dates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*types.AttendanceDate
	for rows.Next() {
		var d types.AttendanceDate
		if err := rows.Scan(&d.ID, &d.ClubCode, &d.Date, &d.SetBy, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attendance date: %w", err)
		}
		result = append(result, &d)
	}
	return result, rows.Err()
}

// GetAttendanceDate retrieves the registered date row of a club
func (m *Manager) GetAttendanceDate(ctx context.Context, clubCode, date string) (*types.AttendanceDate, error) {
	row := m.db.QueryRowContext(ctx, `
		SELECT id, club_code, date, set_by, created_at
		FROM attendance_dates
		WHERE club_code = ? AND date = ?
	`, clubCode, date)

	var d types.AttendanceDate
	if err := row.Scan(&d.ID, &d.ClubCode, &d.Date, &d.SetBy, &d.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, interfaces.ErrDateNotRegistered
		}
		return nil, fmt.Errorf("failed to query attendance date: %w", err)
	}
	return &d, nil
}

// DateIsRegistered reports whether the club registered the date
func (m *Manager) DateIsRegistered(ctx context.Context, clubCode, date string) (bool, error) {
	var count int
	err := m.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM attendance_dates WHERE club_code = ? AND date = ?", clubCode, date,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query attendance date: %w", err)
	}
	return count > 0, nil
}

// RecordAttendance stores a member's attendance for a registered date
// FUNCTIONAL DISCOVERY: The unique (user_id, attendance_date_id) constraint is
// the only duplicate guard, so two concurrent check-ins cannot both succeed
func (m *Manager) RecordAttendance(ctx context.Context, userID, clubCode, date, status string) (*types.AttendanceRecord, error) {
	if status == "" {
		status = types.StatusPresent
	}
	if !types.IsValidStatus(status) {
		return nil, types.ErrInvalidStatus
	}

	attendanceDate, err := m.GetAttendanceDate(ctx, clubCode, date)
	if err != nil {
		return nil, err
	}

	record := &types.AttendanceRecord{
		ID:               ulid.Make().String(),
		UserID:           userID,
		AttendanceDateID: attendanceDate.ID,
		Status:           status,
		CheckedAt:        time.Now().UTC(),
	}

	err = m.executeWrite(ctx, func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO attendances (id, user_id, attendance_date_id, status, checked_at)
			VALUES (?, ?, ?, ?, ?)
		`, record.ID, record.UserID, record.AttendanceDateID, record.Status, record.CheckedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return interfaces.ErrAlreadyRecorded
			}
			return fmt.Errorf("failed to insert attendance: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Roster lists every member of the club with their status for the date
func (m *Manager) Roster(ctx context.Context, clubCode, date string) (*types.Roster, error) {
	attendanceDate, err := m.GetAttendanceDate(ctx, clubCode, date)
	if err != nil {
		return nil, err
	}

	// TECHNICAL DISCOVERY: LEFT JOIN keeps members without a record so the
	// leader sees who is missing, not only who checked in
	rows, err := m.db.QueryContext(ctx, `
		SELECT u.user_id, u.name, a.status, a.checked_at
		FROM memberships m
		JOIN users u ON u.user_id = m.user_id
		LEFT JOIN attendances a ON a.user_id = m.user_id AND a.attendance_date_id = ?
		WHERE m.club_code = ?
		ORDER BY u.name ASC, u.user_id ASC
	`, attendanceDate.ID, clubCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query roster: %w", err)
	}
	defer func() { _ = rows.Close() }()

	roster := &types.Roster{AttendanceDate: *attendanceDate, Entries: []types.RosterEntry{}}
	for rows.Next() {
		var entry types.RosterEntry
		var status sql.NullString
		var checkedAt sql.NullTime
		if err := rows.Scan(&entry.UserID, &entry.Name, &status, &checkedAt); err != nil {
			return nil, fmt.Errorf("failed to scan roster row: %w", err)
		}
		entry.Status = status.String
		if checkedAt.Valid {
			t := checkedAt.Time
			entry.CheckedAt = &t
		}
		roster.Entries = append(roster.Entries, entry)
	}
	return roster, rows.Err()
}

// MemberHistory lists every registered date of the club with the member's status
func (m *Manager) MemberHistory(ctx context.Context, userID, clubCode string) ([]*types.MemberAttendance, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT d.id, d.date, a.status, a.checked_at
		FROM attendance_dates d
		LEFT JOIN attendances a ON a.attendance_date_id = d.id AND a.user_id = ?
		WHERE d.club_code = ?
		ORDER BY d.date ASC
	`, userID, clubCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query member history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	history := []*types.MemberAttendance{}
	for rows.Next() {
		var item types.MemberAttendance
		var status sql.NullString
		var checkedAt sql.NullTime
		if err := rows.Scan(&item.AttendanceDateID, &item.Date, &status, &checkedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member history row: %w", err)
		}
		item.Status = status.String
		if checkedAt.Valid {
			t := checkedAt.Time
			item.CheckedAt = &t
		}
		history = append(history, &item)
	}
	return history, rows.Err()
}

// BulkUpdateAttendance applies leader corrections for one date atomically
func (m *Manager) BulkUpdateAttendance(ctx context.Context, clubCode string, attendanceDateID int64, updates []types.AttendanceUpdate) (int, error) {
	for _, u := range updates {
		if !types.IsValidStatus(u.Status) {
			return 0, fmt.Errorf("%w: %s", types.ErrInvalidStatus, u.Status)
		}
	}

	applied := 0
	err := m.executeTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM attendance_dates WHERE id = ? AND club_code = ?", attendanceDateID, clubCode,
		).Scan(&count); err != nil {
			return fmt.Errorf("failed to query attendance date: %w", err)
		}
		if count == 0 {
			return interfaces.ErrDateNotRegistered
		}

		now := time.Now().UTC()
		for _, u := range updates {
			if err := tx.QueryRowContext(ctx,
				"SELECT COUNT(*) FROM memberships WHERE user_id = ? AND club_code = ?", u.UserID, clubCode,
			).Scan(&count); err != nil {
				return fmt.Errorf("failed to query membership: %w", err)
			}
			if count == 0 {
				return fmt.Errorf("%w: member %s", interfaces.ErrNotFound, u.UserID)
			}
			if _, err := tx.ExecContext(ctx, m.dialect.upsertAttendance,
				ulid.Make().String(), u.UserID, attendanceDateID, u.Status, now,
			); err != nil {
				return fmt.Errorf("failed to upsert attendance for %s: %w", u.UserID, err)
			}
		}
		applied = len(updates)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return applied, nil
}
