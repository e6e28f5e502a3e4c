// Package backup provides backup and restore of the metabolic knowledge
// graph: nodes, edges, kinetic parameters, and regulatory interactions.
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nvandessel/metakg/internal/models"
	"github.com/nvandessel/metakg/internal/store"
)

// FilePrefix starts every generated backup filename.
const FilePrefix = "metakg-backup-"

// Format is the JSON structure of a backup payload.
type Format struct {
	Version   int               `json:"version"`
	CreatedAt time.Time         `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Graph     store.Snapshot    `json:"graph"`
}

// DefaultBackupDir returns the default backup directory (~/.metakg/backups/).
func DefaultBackupDir() (string, error) {
	global, err := store.GlobalMetaKGPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(global, "backups"), nil
}

// GenerateBackupPath creates a timestamped backup filename in the given directory.
func GenerateBackupPath(dir string) string {
	ts := time.Now().UTC().Format("20060102-150405")
	return filepath.Join(dir, FilePrefix+ts+".json.gz")
}

// isBackupFile reports whether name looks like a generated backup.
func isBackupFile(name string) bool {
	return strings.HasPrefix(name, FilePrefix) &&
		(strings.HasSuffix(name, ".json.gz") || strings.HasSuffix(name, ".json"))
}

// Backup snapshots the store and writes it to outputPath in the V2 format.
func Backup(ctx context.Context, gs store.GraphStore, outputPath string, metadata map[string]string) (*Format, error) {
	snap, err := store.TakeSnapshot(ctx, gs)
	if err != nil {
		return nil, err
	}

	b := &Format{
		Version:   FormatV2,
		CreatedAt: time.Now().UTC(),
		Metadata:  metadata,
		Graph:     *snap,
	}
	if err := WriteV2(outputPath, b); err != nil {
		return nil, fmt.Errorf("failed to write backup: %w", err)
	}
	return b, nil
}

// RestoreMode controls how restore handles existing data.
type RestoreMode string

const (
	// RestoreMerge skips rows that already exist (default).
	RestoreMerge RestoreMode = "merge"
	// RestoreReplace clears the store before restoring.
	RestoreReplace RestoreMode = "replace"
)

// ParseRestoreMode maps "" and "merge" to RestoreMerge and "replace" to RestoreReplace.
func ParseRestoreMode(s string) (RestoreMode, error) {
	switch RestoreMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", RestoreMerge:
		return RestoreMerge, nil
	case RestoreReplace:
		return RestoreReplace, nil
	default:
		return "", fmt.Errorf("invalid restore mode %q (valid: merge, replace)", s)
	}
}

// RestoreResult contains statistics about the restore operation.
type RestoreResult struct {
	NodesRestored   int `json:"nodes_restored"`
	NodesSkipped    int `json:"nodes_skipped"`
	EdgesRestored   int `json:"edges_restored"`
	EdgesSkipped    int `json:"edges_skipped"`
	KineticRestored int `json:"kinetic_restored"`
	KineticSkipped  int `json:"kinetic_skipped"`
}

// Restore imports a backup file into the store. Replace mode requires a
// store that implements store.Clearer.
func Restore(ctx context.Context, gs store.GraphStore, inputPath string, mode RestoreMode) (*RestoreResult, error) {
	b, err := Read(inputPath)
	if err != nil {
		return nil, err
	}

	if mode == RestoreReplace {
		c, ok := gs.(store.Clearer)
		if !ok {
			return nil, fmt.Errorf("store does not support replace restore")
		}
		if err := c.Clear(ctx); err != nil {
			return nil, fmt.Errorf("failed to clear store: %w", err)
		}
	}

	filtered, result, err := filterExisting(ctx, gs, &b.Graph, mode)
	if err != nil {
		return nil, err
	}
	if err := filtered.Apply(ctx, gs); err != nil {
		return nil, fmt.Errorf("restore failed: %w", err)
	}
	return result, nil
}

// filterExisting drops rows already present in gs when merging.
func filterExisting(ctx context.Context, gs store.GraphStore, snap *store.Snapshot, mode RestoreMode) (*store.Snapshot, *RestoreResult, error) {
	result := &RestoreResult{}
	if mode == RestoreReplace {
		result.NodesRestored = len(snap.Nodes)
		result.EdgesRestored = len(snap.Edges)
		result.KineticRestored = len(snap.Kinetics) + len(snap.Regulations)
		return snap, result, nil
	}

	current, err := store.TakeSnapshot(ctx, gs)
	if err != nil {
		return nil, nil, err
	}
	nodeIDs := make(map[string]bool, len(current.Nodes))
	for _, n := range current.Nodes {
		nodeIDs[n.ID] = true
	}
	edgeKeys := make(map[string]bool, len(current.Edges))
	for _, e := range current.Edges {
		edgeKeys[e.Key()] = true
	}
	kineticIDs := make(map[string]bool, len(current.Kinetics)+len(current.Regulations))
	for _, k := range current.Kinetics {
		kineticIDs[k.ID] = true
	}
	for _, r := range current.Regulations {
		kineticIDs[r.ID] = true
	}

	out := &store.Snapshot{}
	for _, n := range snap.Nodes {
		if nodeIDs[n.ID] {
			result.NodesSkipped++
			continue
		}
		out.Nodes = append(out.Nodes, n)
		result.NodesRestored++
	}
	for _, e := range snap.Edges {
		if edgeKeys[e.Key()] {
			result.EdgesSkipped++
			continue
		}
		out.Edges = append(out.Edges, e)
		result.EdgesRestored++
	}
	for _, k := range snap.Kinetics {
		if kineticIDs[k.ID] {
			result.KineticSkipped++
			continue
		}
		out.Kinetics = append(out.Kinetics, k)
		result.KineticRestored++
	}
	for _, r := range snap.Regulations {
		if kineticIDs[r.ID] {
			result.KineticSkipped++
			continue
		}
		out.Regulations = append(out.Regulations, r)
		result.KineticRestored++
	}
	return out, result, nil
}

// Summary describes a backup file without restoring it.
type Summary struct {
	Path       string                  `json:"path"`
	Version    int                     `json:"version"`
	CreatedAt  time.Time               `json:"created_at"`
	Nodes      int                     `json:"nodes"`
	Edges      int                     `json:"edges"`
	Kinetics   int                     `json:"kinetics"`
	NodesKinds map[models.NodeKind]int `json:"nodes_by_kind"`
}

// Inspect reads and summarizes a backup, verifying its checksum when present.
func Inspect(path string) (*Summary, error) {
	b, err := Read(path)
	if err != nil {
		return nil, err
	}
	s := &Summary{
		Path:       path,
		Version:    b.Version,
		CreatedAt:  b.CreatedAt,
		Nodes:      len(b.Graph.Nodes),
		Edges:      len(b.Graph.Edges),
		Kinetics:   len(b.Graph.Kinetics) + len(b.Graph.Regulations),
		NodesKinds: make(map[models.NodeKind]int),
	}
	for _, n := range b.Graph.Nodes {
		s.NodesKinds[n.Kind]++
	}
	if info, err := os.Stat(path); err == nil && s.CreatedAt.IsZero() {
		s.CreatedAt = info.ModTime()
	}
	return s, nil
}
