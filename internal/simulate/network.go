package simulate

import (
	"context"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/nvandessel/metakg/internal/models"
)

// Network is the stoichiometric view of a reaction scope.
//
// S has one row per compound (sorted by ID) and one column per reaction (in
// scope order). S[i][j] is the net coefficient of compound i in reaction j:
// negative when consumed, positive when produced. S is nil when the scope has
// no reactions or no compounds.
type Network struct {
	ReactionIDs []string
	CompoundIDs []string
	S           *mat.Dense
	Reversible  map[string]bool

	rxnIndex map[string]int
	cpdIndex map[string]int
}

// ReactionIndex returns the column of a reaction.
func (n *Network) ReactionIndex(id string) (int, bool) {
	j, ok := n.rxnIndex[id]
	return j, ok
}

// CompoundIndex returns the row of a compound.
func (n *Network) CompoundIndex(id string) (int, bool) {
	i, ok := n.cpdIndex[id]
	return i, ok
}

// Coefficient returns S[compound, reaction], or 0 when either is absent.
func (n *Network) Coefficient(compoundID, reactionID string) float64 {
	i, ok := n.cpdIndex[compoundID]
	if !ok {
		return 0
	}
	j, ok := n.rxnIndex[reactionID]
	if !ok {
		return 0
	}
	return n.S.At(i, j)
}

// at is S[i][j] with a nil matrix reading as zeros.
func (n *Network) at(i, j int) float64 {
	if n.S == nil {
		return 0
	}
	return n.S.At(i, j)
}

// BalancedRows returns the rows constrained to zero net accumulation in FBA.
// A closed system balances every compound. Otherwise a compound whose non-zero
// entries all share one sign is an exchange boundary and is left free.
func (n *Network) BalancedRows(closed bool) []int {
	rows := make([]int, 0, len(n.CompoundIDs))
	for i := range n.CompoundIDs {
		if closed || !n.isBoundary(i) {
			rows = append(rows, i)
		}
	}
	return rows
}

func (n *Network) isBoundary(i int) bool {
	var consumed, produced bool
	for j := range n.ReactionIDs {
		switch v := n.at(i, j); {
		case v < 0:
			consumed = true
		case v > 0:
			produced = true
		}
	}
	return consumed != produced
}

// BuildNetwork resolves the config's reaction scope and assembles its
// stoichiometric matrix from SUBSTRATE_OF and PRODUCT_OF edges. An empty
// scope yields an empty Network, not an error.
func BuildNetwork(ctx context.Context, src ReactionSource, cfg SimulationConfig) (*Network, error) {
	rxnIDs, err := resolveScope(ctx, src, cfg)
	if err != nil {
		return nil, err
	}

	net := &Network{
		ReactionIDs: rxnIDs,
		Reversible:  make(map[string]bool, len(rxnIDs)),
		rxnIndex:    make(map[string]int, len(rxnIDs)),
		cpdIndex:    map[string]int{},
	}
	for j, id := range rxnIDs {
		net.rxnIndex[id] = j
	}
	if len(rxnIDs) == 0 {
		return net, nil
	}

	// compound -> column -> net coefficient
	entries := make(map[string]map[int]float64)
	for j, rxnID := range rxnIDs {
		meta, err := src.ReactionMetadata(ctx, rxnID)
		if err != nil {
			return nil, fmt.Errorf("reaction metadata %s: %w", rxnID, err)
		}
		if meta == nil {
			// Unknown reaction: keep an empty reversible column.
			net.Reversible[rxnID] = true
			continue
		}
		net.Reversible[rxnID] = meta.Reversible

		edges, err := src.EdgesOf(ctx, rxnID)
		if err != nil {
			return nil, fmt.Errorf("edges of %s: %w", rxnID, err)
		}
		for _, e := range edges {
			cpdID, coeff, ok := e.SignedCoefficient(rxnID)
			if !ok {
				continue
			}
			col, ok := entries[cpdID]
			if !ok {
				col = make(map[int]float64)
				entries[cpdID] = col
			}
			col[j] += coeff
		}
	}

	if len(entries) == 0 {
		return net, nil
	}

	net.CompoundIDs = make([]string, 0, len(entries))
	for id := range entries {
		net.CompoundIDs = append(net.CompoundIDs, id)
	}
	sort.Strings(net.CompoundIDs)

	net.S = mat.NewDense(len(net.CompoundIDs), len(rxnIDs), nil)
	for i, cpdID := range net.CompoundIDs {
		net.cpdIndex[cpdID] = i
		for j, v := range entries[cpdID] {
			net.S.Set(i, j, v)
		}
	}
	return net, nil
}

// resolveScope returns the ordered, de-duplicated reaction IDs for cfg.
func resolveScope(ctx context.Context, src ReactionSource, cfg SimulationConfig) ([]string, error) {
	var ids []string
	switch {
	case len(cfg.ReactionIDs) > 0:
		ids = cfg.ReactionIDs
	case cfg.PathwayID != "":
		pwyID, err := src.ResolveID(ctx, cfg.PathwayID)
		if err != nil {
			return nil, fmt.Errorf("resolve pathway %s: %w", cfg.PathwayID, err)
		}
		if pwyID == "" {
			return []string{}, nil
		}
		ids, err = src.ReactionsForPathway(ctx, pwyID)
		if err != nil {
			return nil, fmt.Errorf("reactions for pathway %s: %w", pwyID, err)
		}
	default:
		nodes, err := src.AllNodes(ctx, models.KindReaction)
		if err != nil {
			return nil, fmt.Errorf("list reactions: %w", err)
		}
		ids = make([]string, 0, len(nodes))
		for _, n := range nodes {
			ids = append(ids, n.ID)
		}
	}

	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

// reactionsForEnzyme resolves an enzyme reference and lists its reactions.
// An unknown enzyme has no reactions.
func reactionsForEnzyme(ctx context.Context, src ReactionSource, enzymeID string) ([]string, error) {
	id, err := src.ResolveID(ctx, enzymeID)
	if err != nil {
		return nil, fmt.Errorf("resolve enzyme %s: %w", enzymeID, err)
	}
	if id == "" {
		return nil, nil
	}
	rxns, err := src.ReactionsForEnzyme(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reactions for enzyme %s: %w", id, err)
	}
	return rxns, nil
}
