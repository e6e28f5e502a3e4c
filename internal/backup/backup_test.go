package backup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/metakg/internal/models"
	"github.com/nvandessel/metakg/internal/store"
)

func createTestStore(t *testing.T) *store.SQLiteGraphStore {
	t.Helper()
	s, err := store.NewSQLiteGraphStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewSQLiteGraphStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// addTestData writes glucose -> G6P via hexokinase plus one kinetic row.
func addTestData(t *testing.T, s store.GraphStore) {
	t.Helper()
	ctx := context.Background()

	nodes := []models.Node{
		{ID: "cpd:kegg:C00031", Kind: models.KindCompound, Name: "D-Glucose", Xrefs: map[string]string{"kegg": "C00031"}},
		{ID: "cpd:kegg:C00092", Kind: models.KindCompound, Name: "D-Glucose 6-phosphate"},
		{ID: "rxn:kegg:R00299", Kind: models.KindReaction, Name: "hexokinase",
			Stoichiometry: &models.Stoichiometry{Direction: models.DirectionIrreversible}},
		{ID: "enz:ec:2.7.1.1", Kind: models.KindEnzyme, Name: "Hexokinase", ECNumber: "2.7.1.1"},
	}
	edges := []models.Edge{
		{Source: "cpd:kegg:C00031", Target: "rxn:kegg:R00299", Relation: models.RelSubstrateOf, Stoich: 1},
		{Source: "rxn:kegg:R00299", Target: "cpd:kegg:C00092", Relation: models.RelProductOf, Stoich: 1},
		{Source: "enz:ec:2.7.1.1", Target: "rxn:kegg:R00299", Relation: models.RelCatalyzes},
	}
	if err := s.WriteGraph(ctx, nodes, edges); err != nil {
		t.Fatalf("WriteGraph() error = %v", err)
	}
	if _, err := s.UpsertKineticParams(ctx, []models.KineticParam{{
		EnzymeID:       "enz:ec:2.7.1.1",
		ReactionID:     "rxn:kegg:R00299",
		Vmax:           models.Float(2.8),
		Km:             models.Float(0.1),
		SourceDatabase: "literature",
	}}); err != nil {
		t.Fatalf("UpsertKineticParams() error = %v", err)
	}
}

func TestBackupRestore_RoundTrip(t *testing.T) {
	src := createTestStore(t)
	addTestData(t, src)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "backups", "test.json.gz")
	b, err := Backup(ctx, src, path, map[string]string{"root": "/project"})
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if len(b.Graph.Nodes) != 4 || len(b.Graph.Edges) != 3 || len(b.Graph.Kinetics) != 1 {
		t.Errorf("backup = %d nodes, %d edges, %d kinetics; want 4, 3, 1",
			len(b.Graph.Nodes), len(b.Graph.Edges), len(b.Graph.Kinetics))
	}

	dst := createTestStore(t)
	result, err := Restore(ctx, dst, path, RestoreMerge)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if result.NodesRestored != 4 || result.EdgesRestored != 3 || result.KineticRestored != 1 {
		t.Errorf("Restore() = %+v, want 4 nodes, 3 edges, 1 kinetic", result)
	}

	node, err := dst.GetNode(ctx, "cpd:kegg:C00031")
	if err != nil || node == nil {
		t.Fatalf("GetNode() = %v, %v; want glucose", node, err)
	}
	if node.Xrefs["kegg"] != "C00031" {
		t.Errorf("xrefs not restored: %+v", node.Xrefs)
	}
	kps, err := dst.KineticParamsForReaction(ctx, "rxn:kegg:R00299")
	if err != nil {
		t.Fatalf("KineticParamsForReaction() error = %v", err)
	}
	if len(kps) != 1 || kps[0].Vmax == nil || *kps[0].Vmax != 2.8 {
		t.Errorf("kinetic rows not restored: %+v", kps)
	}
}

func TestRestore_MergeMode(t *testing.T) {
	src := createTestStore(t)
	addTestData(t, src)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "merge.json.gz")
	if _, err := Backup(ctx, src, path, nil); err != nil {
		t.Fatalf("Backup() error = %v", err)
	}

	// Restoring into the same store should skip everything.
	result, err := Restore(ctx, src, path, RestoreMerge)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if result.NodesRestored != 0 || result.NodesSkipped != 4 {
		t.Errorf("nodes restored/skipped = %d/%d, want 0/4", result.NodesRestored, result.NodesSkipped)
	}
	if result.EdgesSkipped != 3 || result.KineticSkipped != 1 {
		t.Errorf("edges/kinetic skipped = %d/%d, want 3/1", result.EdgesSkipped, result.KineticSkipped)
	}
}

func TestRestore_ReplaceMode(t *testing.T) {
	src := store.NewInMemoryGraphStore()
	addTestData(t, src)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "replace.json.gz")
	if _, err := Backup(ctx, src, path, nil); err != nil {
		t.Fatalf("Backup() error = %v", err)
	}

	dst := store.NewInMemoryGraphStore()
	extra := models.Node{ID: "cpd:test:extra", Kind: models.KindCompound, Name: "Extra"}
	if err := dst.WriteGraph(ctx, []models.Node{extra}, nil); err != nil {
		t.Fatalf("WriteGraph() error = %v", err)
	}

	result, err := Restore(ctx, dst, path, RestoreReplace)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if result.NodesRestored != 4 {
		t.Errorf("NodesRestored = %d, want 4", result.NodesRestored)
	}
	if n, _ := dst.GetNode(ctx, extra.ID); n != nil {
		t.Error("replace restore should remove nodes absent from the backup")
	}
}

func TestRestore_MissingFile(t *testing.T) {
	_, err := Restore(context.Background(), store.NewInMemoryGraphStore(), "/nonexistent/backup.json.gz", RestoreMerge)
	if err == nil {
		t.Error("expected error for missing backup file")
	}
}

func TestRestore_V1PlainJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.json")
	content := `{
  "version": 1,
  "created_at": "2026-02-01T12:00:00Z",
  "graph": {
    "nodes": [{"id": "cpd:kegg:C00022", "kind": "compound", "name": "Pyruvate"}],
    "edges": []
  }
}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	dst := store.NewInMemoryGraphStore()
	result, err := Restore(context.Background(), dst, path, RestoreMerge)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if result.NodesRestored != 1 {
		t.Errorf("NodesRestored = %d, want 1", result.NodesRestored)
	}
}

func TestBackup_FilePermissions(t *testing.T) {
	src := store.NewInMemoryGraphStore()
	addTestData(t, src)

	path := filepath.Join(t.TempDir(), "perm.json.gz")
	if _, err := Backup(context.Background(), src, path, nil); err != nil {
		t.Fatalf("Backup() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("backup file permissions = %o, want 600", perm)
	}
}

func TestInspect(t *testing.T) {
	src := store.NewInMemoryGraphStore()
	addTestData(t, src)

	path := filepath.Join(t.TempDir(), "inspect.json.gz")
	if _, err := Backup(context.Background(), src, path, nil); err != nil {
		t.Fatalf("Backup() error = %v", err)
	}

	s, err := Inspect(path)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if s.Version != FormatV2 || s.Nodes != 4 || s.Edges != 3 || s.Kinetics != 1 {
		t.Errorf("Inspect() = %+v", s)
	}
	if s.NodesKinds[models.KindCompound] != 2 {
		t.Errorf("compound count = %d, want 2", s.NodesKinds[models.KindCompound])
	}
}

func TestParseRestoreMode(t *testing.T) {
	tests := []struct {
		in      string
		want    RestoreMode
		wantErr bool
	}{
		{"", RestoreMerge, false},
		{"merge", RestoreMerge, false},
		{"Replace", RestoreReplace, false},
		{"overwrite", "", true},
	}
	for _, tt := range tests {
		got, err := ParseRestoreMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseRestoreMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseRestoreMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGenerateBackupPath(t *testing.T) {
	path := GenerateBackupPath("/tmp/backups")

	if filepath.Dir(path) != "/tmp/backups" {
		t.Errorf("dir = %q, want /tmp/backups", filepath.Dir(path))
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, FilePrefix) || !strings.HasSuffix(base, ".json.gz") {
		t.Errorf("unexpected backup filename %q", base)
	}
	if !isBackupFile(base) {
		t.Errorf("generated name %q not recognized as a backup", base)
	}
}
