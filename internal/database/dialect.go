package database

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"

	dbconfig "clubattend/pkg/database"
)

// dialect holds the statements whose syntax differs between drivers
// TECHNICAL DISCOVERY: Only upserts diverge; every other statement is
// portable SQL with '?' placeholders, which both drivers accept
type dialect struct {
	upsertUser       string
	upsertClub       string
	insertDateIgnore string
	upsertAttendance string
}

var sqliteDialect = dialect{
	upsertUser: `
		INSERT INTO users (user_id, name, email, is_leader) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			name = excluded.name, email = excluded.email, is_leader = excluded.is_leader`,
	upsertClub: `
		INSERT INTO clubs (club_code, name, location_enabled, latitude, longitude, radius_km)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(club_code) DO UPDATE SET
			name = excluded.name, location_enabled = excluded.location_enabled,
			latitude = excluded.latitude, longitude = excluded.longitude, radius_km = excluded.radius_km`,
	insertDateIgnore: `
		INSERT INTO attendance_dates (club_code, date, set_by) VALUES (?, ?, ?)
		ON CONFLICT(club_code, date) DO NOTHING`,
	upsertAttendance: `
		INSERT INTO attendances (id, user_id, attendance_date_id, status, checked_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, attendance_date_id) DO UPDATE SET
			status = excluded.status, checked_at = excluded.checked_at`,
}

var mysqlDialect = dialect{
	upsertUser: `
		INSERT INTO users (user_id, name, email, is_leader) VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			name = VALUES(name), email = VALUES(email), is_leader = VALUES(is_leader)`,
	upsertClub: `
		INSERT INTO clubs (club_code, name, location_enabled, latitude, longitude, radius_km)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			name = VALUES(name), location_enabled = VALUES(location_enabled),
			latitude = VALUES(latitude), longitude = VALUES(longitude), radius_km = VALUES(radius_km)`,
	insertDateIgnore: `
		INSERT IGNORE INTO attendance_dates (club_code, date, set_by) VALUES (?, ?, ?)`,
	upsertAttendance: `
		INSERT INTO attendances (id, user_id, attendance_date_id, status, checked_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			status = VALUES(status), checked_at = VALUES(checked_at)`,
}

func dialectFor(driver string) dialect {
	if driver == dbconfig.DriverMySQL {
		return mysqlDialect
	}
	return sqliteDialect
}

// MySQL server error numbers
const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

// isUniqueViolation reports whether err is a unique or primary key violation
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlErrDuplicateEntry
	}
	return false
}

// isBusy reports whether err is transient lock contention worth retrying
func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlErrDeadlock || mysqlErr.Number == mysqlErrLockWaitTimeout
	}
	return false
}
