package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpenDBCreatesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	db, err := OpenDB(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Join(dir, DBFile)); err != nil {
		t.Errorf("database file missing: %v", err)
	}
}

func TestMigrate(t *testing.T) {
	db, err := OpenDB(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	steps := []string{
		`CREATE TABLE a (id INTEGER PRIMARY KEY)`,
		`CREATE TABLE b (id INTEGER PRIMARY KEY); INSERT INTO b (id) VALUES (1);`,
	}
	if err := Migrate(db, steps[:1]); err != nil {
		t.Fatalf("migrate v1: %v", err)
	}
	if v, _ := SchemaVersion(db); v != 1 {
		t.Fatalf("version = %d, want 1", v)
	}

	if err := Migrate(db, steps); err != nil {
		t.Fatalf("migrate v2: %v", err)
	}
	// Re-running applies nothing.
	if err := Migrate(db, steps); err != nil {
		t.Fatalf("migrate again: %v", err)
	}
	if v, _ := SchemaVersion(db); v != 2 {
		t.Fatalf("version = %d, want 2", v)
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM b`).Scan(&n); err != nil || n != 1 {
		t.Errorf("b rows = %d, %v", n, err)
	}

	if err := Migrate(db, steps[:1]); err == nil {
		t.Error("expected error when the database is newer than the steps")
	}
}

func TestMigrateFailureRollsBack(t *testing.T) {
	db, err := OpenDB(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	err = Migrate(db, []string{`CREATE TABLE ok (id INTEGER); NOT VALID SQL`})
	if err == nil {
		t.Fatal("expected error")
	}
	if v, _ := SchemaVersion(db); v != 0 {
		t.Errorf("version = %d, want 0", v)
	}
	var n int
	db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = 'ok'`).Scan(&n)
	if n != 0 {
		t.Error("failed step should be rolled back")
	}
}
