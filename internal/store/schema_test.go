package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInitSchema_Fresh(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := InitSchema(ctx, db); err != nil {
		t.Fatalf("InitSchema() error = %v", err)
	}

	version, err := getSchemaVersion(ctx, db)
	if err != nil {
		t.Fatalf("getSchemaVersion() error = %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("version = %d, want %d", version, SchemaVersion)
	}

	for _, table := range []string{"meta_nodes", "meta_edges", "xref_index", "kinetic_parameters", "regulatory_interactions"} {
		var name string
		err := db.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestInitSchema_MigratesV1(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, schemaV1); err != nil {
		t.Fatalf("create v1 error = %v", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO schema_version (version, applied_at) VALUES (1, datetime('now'))`); err != nil {
		t.Fatalf("record v1 error = %v", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO meta_nodes (id, kind, name) VALUES ('cpd:x', 'compound', 'X')`); err != nil {
		t.Fatalf("insert error = %v", err)
	}

	if err := InitSchema(ctx, db); err != nil {
		t.Fatalf("InitSchema() error = %v", err)
	}

	version, _ := getSchemaVersion(ctx, db)
	if version != 2 {
		t.Errorf("version = %d, want 2", version)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM meta_nodes`).Scan(&count); err != nil {
		t.Fatalf("count error = %v", err)
	}
	if count != 1 {
		t.Errorf("existing rows lost during migration: count = %d", count)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO kinetic_parameters (id, reaction_id) VALUES ('kp:1', 'rxn:x')`); err != nil {
		t.Errorf("kinetic_parameters not usable after migration: %v", err)
	}
}

func TestInitSchema_Idempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := InitSchema(ctx, db); err != nil {
			t.Fatalf("InitSchema() run %d error = %v", i, err)
		}
	}
}

func TestResetSchema(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := InitSchema(ctx, db); err != nil {
		t.Fatalf("InitSchema() error = %v", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO meta_nodes (id, kind, name) VALUES ('cpd:x', 'compound', 'X')`); err != nil {
		t.Fatalf("insert error = %v", err)
	}
	if err := ResetSchema(ctx, db); err != nil {
		t.Fatalf("ResetSchema() error = %v", err)
	}
	var count int
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM meta_nodes`).Scan(&count)
	if count != 0 {
		t.Errorf("count after reset = %d, want 0", count)
	}
}

func TestValidateIntegrity(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if err := InitSchema(ctx, db); err != nil {
		t.Fatalf("InitSchema() error = %v", err)
	}
	if err := ValidateIntegrity(ctx, db); err != nil {
		t.Errorf("ValidateIntegrity() error = %v", err)
	}
}
