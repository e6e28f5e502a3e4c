package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/nvandessel/metakg/internal/models"
)

// Record types written to graph JSONL files.
const (
	RecordNode       = "node"
	RecordEdge       = "edge"
	RecordKinetic    = "kinetic"
	RecordRegulation = "regulation"
)

// Record is one line of a graph JSONL file. Exactly one payload is set.
type Record struct {
	Type       string                        `json:"type"`
	Node       *models.Node                  `json:"node,omitempty"`
	Edge       *models.Edge                  `json:"edge,omitempty"`
	Kinetic    *models.KineticParam          `json:"kinetic,omitempty"`
	Regulation *models.RegulatoryInteraction `json:"regulation,omitempty"`
}

// ImportSummary counts what an import wrote and skipped.
type ImportSummary struct {
	Nodes       int `json:"nodes"`
	Edges       int `json:"edges"`
	Kinetics    int `json:"kinetics"`
	Regulations int `json:"regulations"`
	Skipped     int `json:"skipped"`
}

// Snapshot is the full contents of a store.
type Snapshot struct {
	Nodes       []models.Node                  `json:"nodes"`
	Edges       []models.Edge                  `json:"edges"`
	Kinetics    []models.KineticParam          `json:"kinetics,omitempty"`
	Regulations []models.RegulatoryInteraction `json:"regulations,omitempty"`
}

// TakeSnapshot reads every node, edge, and kinetic row from gs.
func TakeSnapshot(ctx context.Context, gs GraphStore) (*Snapshot, error) {
	nodes, err := gs.AllNodes(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to read nodes: %w", err)
	}
	edges, err := gs.AllEdges(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read edges: %w", err)
	}
	kinetics, err := gs.AllKineticParams(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read kinetic params: %w", err)
	}
	regs, err := gs.AllRegulatoryInteractions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read regulatory interactions: %w", err)
	}
	return &Snapshot{Nodes: nodes, Edges: edges, Kinetics: kinetics, Regulations: regs}, nil
}

// Apply writes the snapshot into gs, upserting every row.
func (snap *Snapshot) Apply(ctx context.Context, gs GraphStore) error {
	if err := gs.WriteGraph(ctx, snap.Nodes, snap.Edges); err != nil {
		return fmt.Errorf("failed to write graph: %w", err)
	}
	if _, err := gs.UpsertKineticParams(ctx, snap.Kinetics); err != nil {
		return fmt.Errorf("failed to write kinetic params: %w", err)
	}
	if _, err := gs.UpsertRegulatoryInteractions(ctx, snap.Regulations); err != nil {
		return fmt.Errorf("failed to write regulatory interactions: %w", err)
	}
	return nil
}

// ExportJSONL writes the store contents as one Record per line.
func ExportJSONL(ctx context.Context, gs GraphStore, w io.Writer) error {
	snap, err := TakeSnapshot(ctx, gs)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	for i := range snap.Nodes {
		if err := enc.Encode(Record{Type: RecordNode, Node: &snap.Nodes[i]}); err != nil {
			return fmt.Errorf("failed to encode node: %w", err)
		}
	}
	for i := range snap.Edges {
		if err := enc.Encode(Record{Type: RecordEdge, Edge: &snap.Edges[i]}); err != nil {
			return fmt.Errorf("failed to encode edge: %w", err)
		}
	}
	for i := range snap.Kinetics {
		if err := enc.Encode(Record{Type: RecordKinetic, Kinetic: &snap.Kinetics[i]}); err != nil {
			return fmt.Errorf("failed to encode kinetic param: %w", err)
		}
	}
	for i := range snap.Regulations {
		if err := enc.Encode(Record{Type: RecordRegulation, Regulation: &snap.Regulations[i]}); err != nil {
			return fmt.Errorf("failed to encode regulatory interaction: %w", err)
		}
	}
	return nil
}

// ImportJSONL reads Records from r and writes them into gs.
// Malformed lines are logged and skipped.
func ImportJSONL(ctx context.Context, gs GraphStore, r io.Reader, logger *slog.Logger) (ImportSummary, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var snap Snapshot
	var summary ImportSummary

	scanner := bufio.NewScanner(r)
	// Increase buffer size for long lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024) // 1MB max line length

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			logger.Warn("skipping malformed line", "line", lineNum, "error", err)
			summary.Skipped++
			continue
		}

		switch {
		case rec.Type == RecordNode && rec.Node != nil && rec.Node.ID != "":
			snap.Nodes = append(snap.Nodes, *rec.Node)
		case rec.Type == RecordEdge && rec.Edge != nil:
			snap.Edges = append(snap.Edges, *rec.Edge)
		case rec.Type == RecordKinetic && rec.Kinetic != nil && rec.Kinetic.ReactionID != "":
			snap.Kinetics = append(snap.Kinetics, *rec.Kinetic)
		case rec.Type == RecordRegulation && rec.Regulation != nil:
			snap.Regulations = append(snap.Regulations, *rec.Regulation)
		default:
			logger.Warn("skipping unrecognized record", "line", lineNum, "type", rec.Type)
			summary.Skipped++
		}
	}

	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("scanner error: %w", err)
	}

	if err := snap.Apply(ctx, gs); err != nil {
		return summary, err
	}

	summary.Nodes = len(snap.Nodes)
	summary.Edges = len(snap.Edges)
	summary.Kinetics = len(snap.Kinetics)
	summary.Regulations = len(snap.Regulations)
	return summary, nil
}
