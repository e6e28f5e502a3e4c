package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 2

// schemaV1 holds the graph tables.
const schemaV1 = `
-- Nodes (compounds, reactions, enzymes, pathways)
CREATE TABLE IF NOT EXISTS meta_nodes (
    id            TEXT PRIMARY KEY,
    kind          TEXT NOT NULL,
    name          TEXT NOT NULL,
    description   TEXT,
    formula       TEXT,
    charge        INTEGER,
    ec_number     TEXT,
    stoichiometry TEXT,  -- JSON, reactions only
    xrefs         TEXT,  -- JSON object db -> ext id
    source_format TEXT,
    source_file   TEXT
);
CREATE INDEX IF NOT EXISTS idx_meta_nodes_kind ON meta_nodes(kind);
CREATE INDEX IF NOT EXISTS idx_meta_nodes_name ON meta_nodes(name COLLATE NOCASE);
CREATE INDEX IF NOT EXISTS idx_meta_nodes_ec   ON meta_nodes(ec_number);

-- Edges; rowid order is insertion order and drives pathway scope order
CREATE TABLE IF NOT EXISTS meta_edges (
    src      TEXT NOT NULL,
    rel      TEXT NOT NULL,
    dst      TEXT NOT NULL,
    evidence TEXT,  -- JSON: {"stoich": 2.0, "compartment": "cytosol"}
    PRIMARY KEY (src, rel, dst)
);
CREATE INDEX IF NOT EXISTS idx_meta_edges_src ON meta_edges(src);
CREATE INDEX IF NOT EXISTS idx_meta_edges_dst ON meta_edges(dst);
CREATE INDEX IF NOT EXISTS idx_meta_edges_rel ON meta_edges(rel);

-- External identifier lookup
CREATE TABLE IF NOT EXISTS xref_index (
    node_id TEXT NOT NULL,
    db_name TEXT NOT NULL,
    ext_id  TEXT NOT NULL,
    PRIMARY KEY (db_name, ext_id)
);
CREATE INDEX IF NOT EXISTS idx_xref_node ON xref_index(node_id);

-- Schema version
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// schemaV2 adds kinetic and regulatory tables.
const schemaV2 = `
CREATE TABLE IF NOT EXISTS kinetic_parameters (
    id                   TEXT PRIMARY KEY,
    enzyme_id            TEXT,
    reaction_id          TEXT NOT NULL,
    substrate_id         TEXT,
    km                   REAL,
    kcat                 REAL,
    vmax                 REAL,
    ki                   REAL,
    hill_coefficient     REAL,
    delta_g_prime        REAL,
    equilibrium_constant REAL,
    ph                   REAL,
    temperature_celsius  REAL,
    source_database      TEXT,
    literature_reference TEXT,
    organism             TEXT,
    confidence_score     REAL
);
CREATE INDEX IF NOT EXISTS idx_kp_reaction ON kinetic_parameters(reaction_id);
CREATE INDEX IF NOT EXISTS idx_kp_enzyme   ON kinetic_parameters(enzyme_id);

CREATE TABLE IF NOT EXISTS regulatory_interactions (
    id               TEXT PRIMARY KEY,
    enzyme_id        TEXT NOT NULL,
    compound_id      TEXT NOT NULL,
    interaction_type TEXT NOT NULL,
    ki_allosteric    REAL,
    hill_coefficient REAL,
    site             TEXT,
    organism         TEXT,
    source_database  TEXT
);
CREATE INDEX IF NOT EXISTS idx_ri_enzyme ON regulatory_interactions(enzyme_id);
`

// migrations maps a target version to the DDL that upgrades the previous one.
var migrations = map[int]string{
	2: schemaV2,
}

// InitSchema initializes the database schema.
// It creates all tables and applies migrations as needed.
// Runs integrity validation before migrations on existing databases.
func InitSchema(ctx context.Context, db *sql.DB) error {
	currentVersion, err := getSchemaVersion(ctx, db)
	if err != nil {
		// Schema version table doesn't exist yet, create fresh schema
		if err := createSchema(ctx, db); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		return nil
	}

	if err := ValidateIntegrity(ctx, db); err != nil {
		return fmt.Errorf("database integrity check failed: %w", err)
	}

	if currentVersion < SchemaVersion {
		if err := migrateSchema(ctx, db, currentVersion); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}

	return nil
}

// getSchemaVersion returns the current schema version from the database.
// Returns 0 and an error if the schema_version table doesn't exist.
func getSchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

// createSchema creates the full current schema in one transaction.
func createSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	for v := 2; v <= SchemaVersion; v++ {
		if _, err := tx.ExecContext(ctx, migrations[v]); err != nil {
			return fmt.Errorf("failed to create v%d tables: %w", v, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`,
		SchemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	return tx.Commit()
}

// migrateSchema applies migrations from currentVersion to SchemaVersion.
func migrateSchema(ctx context.Context, db *sql.DB, currentVersion int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for v := currentVersion + 1; v <= SchemaVersion; v++ {
		ddl, ok := migrations[v]
		if !ok {
			return fmt.Errorf("no migration to schema v%d", v)
		}
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to apply v%d migration: %w", v, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`, v); err != nil {
			return fmt.Errorf("failed to record schema v%d: %w", v, err)
		}
	}

	return tx.Commit()
}

// ValidateIntegrity runs SQLite integrity checks on the database.
// Returns an error if PRAGMA integrity_check reports anything but "ok".
func ValidateIntegrity(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, `PRAGMA integrity_check`)
	if err != nil {
		return fmt.Errorf("failed to run integrity_check: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var result string
		if err := rows.Scan(&result); err != nil {
			return fmt.Errorf("failed to scan integrity_check result: %w", err)
		}
		if result != "ok" {
			return fmt.Errorf("integrity_check failed: %s", result)
		}
	}
	return rows.Err()
}

// ResetSchema drops all tables and recreates the schema.
// Only use for testing.
func ResetSchema(ctx context.Context, db *sql.DB) error {
	tables := []string{
		"regulatory_interactions",
		"kinetic_parameters",
		"xref_index",
		"meta_edges",
		"meta_nodes",
		"schema_version",
	}

	for _, table := range tables {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}

	return InitSchema(ctx, db)
}
