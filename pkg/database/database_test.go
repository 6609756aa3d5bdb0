package database

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"
)

// openTestDB opens a migrated sqlite database in a temp dir
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "test.db")

	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := NewMigrationManager(db, DriverSQLite).ApplyMigrations(); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}
	return db
}

// Architectural Validation Tests

func TestDatabase_ArchitecturalCompliance(t *testing.T) {
	_ = &Config{}
	_ = &Migration{}
	_ = &MigrationManager{}
	_ = &SchemaValidator{}
}

// Functional Validation Tests - Config

func TestConfig_DefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config == nil {
		t.Fatal("DefaultConfig should not return nil")
	}
	if config.Driver != DriverSQLite {
		t.Errorf("Expected driver sqlite3, got %s", config.Driver)
	}
	if config.DatabasePath != "./data/clubattend.db" {
		t.Errorf("Expected DatabasePath './data/clubattend.db', got %s", config.DatabasePath)
	}
	if config.MaxConnections != 10 {
		t.Errorf("Expected MaxConnections 10, got %d", config.MaxConnections)
	}
	if config.ConnMaxLifetime != time.Hour {
		t.Errorf("Expected ConnMaxLifetime 1 hour, got %v", config.ConnMaxLifetime)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

func TestConfig_Validation(t *testing.T) {
	mysqlConfig := func() *Config {
		c := DefaultConfig()
		c.Driver = DriverMySQL
		c.Name = "clubattend"
		c.User = "club"
		return c
	}

	tests := []struct {
		name    string
		mutate  func() *Config
		wantErr bool
	}{
		{"valid sqlite config", DefaultConfig, false},
		{"valid mysql config", mysqlConfig, false},
		{"empty database path", func() *Config { c := DefaultConfig(); c.DatabasePath = ""; return c }, true},
		{"zero max connections", func() *Config { c := DefaultConfig(); c.MaxConnections = 0; return c }, true},
		{"zero lifetime", func() *Config { c := DefaultConfig(); c.ConnMaxLifetime = 0; return c }, true},
		{"unknown driver", func() *Config { c := DefaultConfig(); c.Driver = "postgres"; return c }, true},
		{"mysql without name", func() *Config { c := mysqlConfig(); c.Name = ""; return c }, true},
		{"mysql bad port", func() *Config { c := mysqlConfig(); c.Port = 70000; return c }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mutate().Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_DSN(t *testing.T) {
	c := DefaultConfig()
	c.DatabasePath = "/tmp/x.db"
	if dsn := c.DSN(); !strings.HasPrefix(dsn, "/tmp/x.db?") || !strings.Contains(dsn, "_foreign_keys=on") {
		t.Errorf("unexpected sqlite DSN %q", dsn)
	}

	c.Driver = DriverMySQL
	c.Host = "db.internal"
	c.Port = 3307
	c.User = "club"
	c.Password = "secret"
	c.Name = "clubattend"
	dsn := c.DSN()
	for _, part := range []string{"club:secret@tcp(db.internal:3307)/clubattend", "parseTime=true", "multiStatements=true"} {
		if !strings.Contains(dsn, part) {
			t.Errorf("expected %q in mysql DSN %q", part, dsn)
		}
	}
}

// Functional Validation Tests - Migrations

func TestMigrationManager_ApplyMigrations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "migrate.db")
	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = db.Close() }()

	mm := NewMigrationManager(db, DriverSQLite)
	applied, err := mm.ApplyMigrations()
	if err != nil {
		t.Fatalf("ApplyMigrations failed: %v", err)
	}
	if applied != 1 {
		t.Errorf("expected 1 migration applied, got %d", applied)
	}

	// Second run is a no-op
	applied, err = mm.ApplyMigrations()
	if err != nil {
		t.Fatalf("second ApplyMigrations failed: %v", err)
	}
	if applied != 0 {
		t.Errorf("expected no migrations on second run, got %d", applied)
	}

	if err := mm.ValidateSchema(); err != nil {
		t.Errorf("ValidateSchema failed: %v", err)
	}
}

func TestMigrationManager_OrdersByVersion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "order.db")
	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = db.Close() }()

	fsys := fstest.MapFS{
		"m/002_add_notes.sql":    {Data: []byte("ALTER TABLE notes ADD COLUMN body TEXT;")},
		"m/001_create_notes.sql": {Data: []byte("CREATE TABLE notes (id INTEGER PRIMARY KEY);")},
		"m/README.md":            {Data: []byte("ignored")},
	}

	mm := NewMigrationManagerFS(db, DriverSQLite, fsys, "m")
	applied, err := mm.ApplyMigrations()
	if err != nil {
		t.Fatalf("ApplyMigrations failed: %v", err)
	}
	if applied != 2 {
		t.Errorf("expected 2 migrations, got %d", applied)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 recorded migrations, got %d", count)
	}
}

func TestMigrationManager_FailedMigrationNotRecorded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "fail.db")
	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = db.Close() }()

	fsys := fstest.MapFS{
		"m/001_broken.sql": {Data: []byte("CREATE TABLE ((;")},
	}
	if _, err := NewMigrationManagerFS(db, DriverSQLite, fsys, "m").ApplyMigrations(); err == nil {
		t.Fatal("expected broken migration to fail")
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 0 {
		t.Errorf("failed migration must not be recorded, got %d rows", count)
	}
}

// Functional Validation Tests - Schema constraints

func TestSchema_AttendanceUniqueness(t *testing.T) {
	db := openTestDB(t)

	mustExec(t, db, "INSERT INTO users (user_id, name) VALUES ('u1', 'Member')")
	mustExec(t, db, "INSERT INTO clubs (club_code, name) VALUES ('ABC', 'Astronomy')")
	mustExec(t, db, "INSERT INTO attendance_dates (club_code, date, set_by) VALUES ('ABC', '2025-06-01', 'u1')")
	mustExec(t, db, "INSERT INTO attendances (id, user_id, attendance_date_id, status) VALUES ('a1', 'u1', 1, 'present')")

	if _, err := db.Exec("INSERT INTO attendances (id, user_id, attendance_date_id, status) VALUES ('a2', 'u1', 1, 'present')"); err == nil {
		t.Error("second attendance for the same user and date should violate uniqueness")
	}
	if _, err := db.Exec("INSERT INTO attendance_dates (club_code, date, set_by) VALUES ('ABC', '2025-06-01', 'u1')"); err == nil {
		t.Error("duplicate date registration should violate uniqueness")
	}
	if _, err := db.Exec("INSERT INTO attendances (id, user_id, attendance_date_id, status) VALUES ('a3', 'u1', 1, 'bogus')"); err == nil {
		t.Error("unknown status should violate check constraint")
	}
}

func TestDatabase_SQLiteOptimizations(t *testing.T) {
	db := openTestDB(t)

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if strings.ToLower(journalMode) != "wal" {
		t.Errorf("expected WAL journal mode, got %s", journalMode)
	}

	var foreignKeys int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if foreignKeys != 1 {
		t.Errorf("expected foreign keys enabled, got %d", foreignKeys)
	}
}

func mustExec(t *testing.T, db *sql.DB, query string, args ...interface{}) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}
