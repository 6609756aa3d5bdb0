package database

import (
	"database/sql"
	"fmt"
	"strings"
)

// SchemaValidator provides database schema validation functionality
// ARCHITECTURAL DISCOVERY: Separate validation component enables testing
// and deployment verification without coupling to migration system
type SchemaValidator struct {
	db     *sql.DB
	driver string
}

// NewSchemaValidator creates a new schema validator
func NewSchemaValidator(db *sql.DB, driver string) *SchemaValidator {
	return &SchemaValidator{db: db, driver: driver}
}

var requiredTables = map[string]string{
	"users":             "User identities",
	"clubs":             "Clubs and geofence settings",
	"memberships":       "Club membership",
	"attendance_dates":  "Registered meeting dates",
	"attendances":       "Attendance records",
	"schema_migrations": "Migration tracking",
}

var requiredIndexes = map[string]string{
	"idx_memberships_club":      "Roster member lookups",
	"idx_attendance_dates_club": "Date lookups per club",
	"idx_attendances_date":      "Roster record lookups",
}

// ValidateTablesExist verifies that all required tables exist
// FUNCTIONAL DISCOVERY: Explicit table validation prevents runtime errors
// from missing tables during database operations
func (v *SchemaValidator) ValidateTablesExist() error {
	for table, description := range requiredTables {
		exists, err := v.tableExists(table)
		if err != nil {
			return fmt.Errorf("error checking table %s (%s): %w", table, description, err)
		}
		if !exists {
			return fmt.Errorf("required table %s (%s) does not exist", table, description)
		}
	}
	return nil
}

// ValidateTableStructure verifies the columns the data layer reads and writes
// TECHNICAL DISCOVERY: Declared types are only compared on sqlite, where the
// migration text is the type; mysql reports normalised types
func (v *SchemaValidator) ValidateTableStructure() error {
	expected := map[string]map[string]string{
		"users": {
			"user_id": "TEXT", "name": "TEXT", "email": "TEXT",
			"is_leader": "INTEGER", "created_at": "DATETIME",
		},
		"clubs": {
			"club_code": "TEXT", "name": "TEXT", "location_enabled": "INTEGER",
			"latitude": "REAL", "longitude": "REAL", "radius_km": "REAL",
		},
		"memberships": {
			"user_id": "TEXT", "club_code": "TEXT", "joined_at": "DATETIME",
		},
		"attendance_dates": {
			"id": "INTEGER", "club_code": "TEXT", "date": "TEXT", "set_by": "TEXT",
		},
		"attendances": {
			"id": "TEXT", "user_id": "TEXT", "attendance_date_id": "INTEGER",
			"status": "TEXT", "checked_at": "DATETIME",
		},
	}

	for table, columns := range expected {
		if err := v.validateColumns(table, columns); err != nil {
			return fmt.Errorf("%s table structure invalid: %w", table, err)
		}
	}
	return nil
}

// ValidateIndexes verifies that all performance indexes exist
func (v *SchemaValidator) ValidateIndexes() error {
	for index, purpose := range requiredIndexes {
		exists, err := v.indexExists(index)
		if err != nil {
			return fmt.Errorf("error checking index %s (%s): %w", index, purpose, err)
		}
		if !exists {
			return fmt.Errorf("required index %s (%s) does not exist", index, purpose)
		}
	}
	return nil
}

// ValidateConstraints verifies that database constraints are properly enforced
// ARCHITECTURAL DISCOVERY: Constraint validation ensures data integrity rules
// are enforced at the database level. Probes run inside a rolled back
// transaction so no test rows survive.
func (v *SchemaValidator) ValidateConstraints() error {
	tx, err := v.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Foreign key: attendances.user_id -> users.user_id
	if _, err := tx.Exec(`
		INSERT INTO attendances (id, user_id, attendance_date_id, status)
		VALUES ('probe', 'missing-user', -1, 'present')
	`); err == nil {
		return fmt.Errorf("foreign key constraint not enforced: attendances.user_id")
	}

	return nil
}

func (v *SchemaValidator) tableExists(tableName string) (bool, error) {
	query := "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?"
	if v.driver == DriverMySQL {
		query = "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?"
	}
	var count int
	if err := v.db.QueryRow(query, tableName).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (v *SchemaValidator) indexExists(indexName string) (bool, error) {
	query := "SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?"
	if v.driver == DriverMySQL {
		query = "SELECT COUNT(*) FROM information_schema.statistics WHERE table_schema = DATABASE() AND index_name = ?"
	}
	var count int
	if err := v.db.QueryRow(query, indexName).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// columns returns column name -> declared type for a table
func (v *SchemaValidator) columns(tableName string) (map[string]string, error) {
	found := make(map[string]string)

	if v.driver == DriverMySQL {
		rows, err := v.db.Query(
			"SELECT column_name, data_type FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ?",
			tableName,
		)
		if err != nil {
			return nil, err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var name, dataType string
			if err := rows.Scan(&name, &dataType); err != nil {
				return nil, err
			}
			found[name] = strings.ToUpper(dataType)
		}
		return found, rows.Err()
	}

	rows, err := v.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var cid, notNull, pk int
		var name, dataType string
		var defaultValue interface{}
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pk); err != nil {
			return nil, err
		}
		found[name] = strings.ToUpper(dataType)
	}
	return found, rows.Err()
}

// validateColumns checks that a table has the expected columns
func (v *SchemaValidator) validateColumns(tableName string, expectedColumns map[string]string) error {
	found, err := v.columns(tableName)
	if err != nil {
		return err
	}
	for col, expectedType := range expectedColumns {
		foundType, exists := found[col]
		if !exists {
			return fmt.Errorf("column %s not found", col)
		}
		if v.driver == DriverSQLite && foundType != expectedType {
			return fmt.Errorf("column %s has type %s, expected %s", col, foundType, expectedType)
		}
	}
	return nil
}
