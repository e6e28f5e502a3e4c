package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nvandessel/metakg/internal/models"
)

func TestNewSQLiteGraphStore(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewSQLiteGraphStore(tmpDir)
	if err != nil {
		t.Fatalf("NewSQLiteGraphStore() error = %v", err)
	}
	defer store.Close()

	dbPath := filepath.Join(tmpDir, ".metakg", "metakg.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("metakg.db was not created")
	}
	if store.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", store.Path(), dbPath)
	}
}

func TestSQLiteGraphStore_NodeRoundTrip(t *testing.T) {
	store, err := NewSQLiteGraphStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewSQLiteGraphStore() error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	charge := -2
	node := models.Node{
		ID:          "cpd:kegg:C00092",
		Kind:        models.KindCompound,
		Name:        "Glucose-6-phosphate",
		Formula:     "C6H13O9P",
		Charge:      &charge,
		Xrefs:       map[string]string{"kegg": "C00092", "chebi": "CHEBI:4170"},
		SourceFile:  "hsa00010.xml",
		Description: "phosphorylated hexose",
	}
	if err := store.WriteGraph(ctx, []models.Node{node}, nil); err != nil {
		t.Fatalf("WriteGraph() error = %v", err)
	}

	got, err := store.GetNode(ctx, node.ID)
	if err != nil {
		t.Fatalf("GetNode() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetNode() returned nil")
	}
	if got.Charge == nil || *got.Charge != -2 {
		t.Errorf("Charge = %v, want -2", got.Charge)
	}
	if got.Xrefs["chebi"] != "CHEBI:4170" {
		t.Errorf("Xrefs = %v", got.Xrefs)
	}
	if got.Formula != node.Formula || got.Description != node.Description {
		t.Errorf("GetNode() = %+v", got)
	}

	missing, err := store.GetNode(ctx, "cpd:none")
	if err != nil {
		t.Fatalf("GetNode(missing) error = %v", err)
	}
	if missing != nil {
		t.Errorf("GetNode(missing) = %+v, want nil", missing)
	}
}

func TestSQLiteGraphStore_MalformedStoichiometryIsReversible(t *testing.T) {
	store, err := NewSQLiteGraphStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewSQLiteGraphStore() error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if _, err := store.db.ExecContext(ctx,
		`INSERT INTO meta_nodes (id, kind, name, stoichiometry) VALUES ('rxn:bad', 'reaction', 'bad', '{not json')`); err != nil {
		t.Fatalf("insert error = %v", err)
	}

	meta, err := store.ReactionMetadata(ctx, "rxn:bad")
	if err != nil {
		t.Fatalf("ReactionMetadata() error = %v", err)
	}
	if meta == nil || !meta.Reversible {
		t.Errorf("ReactionMetadata() = %+v, want reversible", meta)
	}
}

func TestSQLiteGraphStore_Persistence(t *testing.T) {
	tmpDir := t.TempDir()
	ctx := context.Background()

	store, err := NewSQLiteGraphStore(tmpDir)
	if err != nil {
		t.Fatalf("NewSQLiteGraphStore() error = %v", err)
	}
	seedFixture(t, store)
	store.Close()

	reopened, err := NewSQLiteGraphStore(tmpDir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	ids, err := reopened.ReactionsForPathway(ctx, "pwy:kegg:hsa00010")
	if err != nil {
		t.Fatalf("ReactionsForPathway() error = %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("after reopen got %d reactions, want 2", len(ids))
	}
}

func TestSQLiteGraphStore_Clear(t *testing.T) {
	store, err := NewSQLiteGraphStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewSQLiteGraphStore() error = %v", err)
	}
	defer store.Close()
	seedFixture(t, store)

	ctx := context.Background()
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	st, _ := store.Stats(ctx)
	if st.Nodes != 0 || st.Edges != 0 {
		t.Errorf("Stats after Clear = %+v", st)
	}
	if id, _ := store.ResolveID(ctx, "kegg:C00031"); id != "" {
		t.Errorf("xref index not cleared, resolved %q", id)
	}
}
