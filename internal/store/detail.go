package store

import (
	"context"
	"fmt"

	"github.com/nvandessel/metakg/internal/models"
)

// ParticipantDetail is one compound participating in a reaction.
type ParticipantDetail struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Stoich float64 `json:"stoich"`
}

// EnzymeDetail is an enzyme linked to a reaction, with its role.
type EnzymeDetail struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ECNumber string `json:"ec_number,omitempty"`
	Role     string `json:"role"`
}

// RegulatorDetail is a compound that inhibits or activates a reaction.
type RegulatorDetail struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Relation models.Relation `json:"relation"`
}

// ReactionView is a reaction with its resolved participants and enzymes.
type ReactionView struct {
	Node          models.Node           `json:"node"`
	Reversible    bool                  `json:"reversible"`
	Substrates    []ParticipantDetail   `json:"substrates"`
	Products      []ParticipantDetail   `json:"products"`
	Enzymes       []EnzymeDetail        `json:"enzymes"`
	Regulators    []RegulatorDetail     `json:"regulators,omitempty"`
	KineticParams []models.KineticParam `json:"kinetic_params,omitempty"`
}

// ReactionDetail assembles a ReactionView from the edges touching reactionID.
// Returns nil, nil when the node does not exist or is not a reaction.
func ReactionDetail(ctx context.Context, gs GraphStore, reactionID string) (*ReactionView, error) {
	node, err := gs.GetNode(ctx, reactionID)
	if err != nil {
		return nil, err
	}
	if node == nil || node.Kind != models.KindReaction {
		return nil, nil
	}

	edges, err := gs.EdgesOf(ctx, reactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load edges for %s: %w", reactionID, err)
	}

	view := &ReactionView{
		Node:       *node,
		Reversible: node.Stoichiometry.Reversible(),
	}

	names := make(map[string]*models.Node)
	lookup := func(id string) *models.Node {
		if n, ok := names[id]; ok {
			return n
		}
		n, _ := gs.GetNode(ctx, id)
		names[id] = n
		return n
	}
	nameOf := func(id string) string {
		if n := lookup(id); n != nil {
			return n.Name
		}
		return id
	}

	for _, e := range edges {
		switch {
		case e.Relation == models.RelSubstrateOf && e.Target == reactionID:
			view.Substrates = append(view.Substrates, ParticipantDetail{ID: e.Source, Name: nameOf(e.Source), Stoich: e.Coefficient()})
		case e.Relation == models.RelProductOf && e.Source == reactionID:
			view.Products = append(view.Products, ParticipantDetail{ID: e.Target, Name: nameOf(e.Target), Stoich: e.Coefficient()})
		case e.Relation == models.RelCatalyzes && e.Target == reactionID:
			ed := EnzymeDetail{ID: e.Source, Name: nameOf(e.Source), Role: "catalyst"}
			if n := lookup(e.Source); n != nil {
				ed.ECNumber = n.ECNumber
			}
			view.Enzymes = append(view.Enzymes, ed)
		case (e.Relation == models.RelInhibits || e.Relation == models.RelActivates) && e.Target == reactionID:
			view.Regulators = append(view.Regulators, RegulatorDetail{ID: e.Source, Name: nameOf(e.Source), Relation: e.Relation})
		}
	}

	params, err := gs.KineticParamsForReaction(ctx, reactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load kinetics for %s: %w", reactionID, err)
	}
	view.KineticParams = params
	return view, nil
}
