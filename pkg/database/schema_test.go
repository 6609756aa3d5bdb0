package database

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestSchemaValidator_ValidateTablesExist(t *testing.T) {
	db := openTestDB(t)
	v := NewSchemaValidator(db, DriverSQLite)

	if err := v.ValidateTablesExist(); err != nil {
		t.Errorf("ValidateTablesExist failed on migrated schema: %v", err)
	}

	mustExec(t, db, "DROP TABLE attendances")
	err := v.ValidateTablesExist()
	if err == nil || !strings.Contains(err.Error(), "attendances") {
		t.Errorf("expected missing attendances table error, got %v", err)
	}
}

func TestSchemaValidator_EmptyDatabase(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "empty.db")
	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := NewSchemaValidator(db, DriverSQLite).ValidateTablesExist(); err == nil {
		t.Error("empty database should fail table validation")
	}
}

func TestSchemaValidator_ValidateTableStructure(t *testing.T) {
	db := openTestDB(t)
	v := NewSchemaValidator(db, DriverSQLite)

	if err := v.ValidateTableStructure(); err != nil {
		t.Errorf("ValidateTableStructure failed: %v", err)
	}
}

func TestSchemaValidator_ValidateIndexes(t *testing.T) {
	db := openTestDB(t)
	v := NewSchemaValidator(db, DriverSQLite)

	if err := v.ValidateIndexes(); err != nil {
		t.Errorf("ValidateIndexes failed: %v", err)
	}

	mustExec(t, db, "DROP INDEX idx_attendances_date")
	if err := v.ValidateIndexes(); err == nil {
		t.Error("expected missing index error")
	}
}

func TestSchemaValidator_ValidateConstraints(t *testing.T) {
	db := openTestDB(t)
	v := NewSchemaValidator(db, DriverSQLite)

	if err := v.ValidateConstraints(); err != nil {
		t.Errorf("ValidateConstraints failed: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM attendances").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("constraint probe left %d rows behind", count)
	}
}
