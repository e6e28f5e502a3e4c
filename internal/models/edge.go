package models

import "fmt"

// Relation tags the meaning of a directed edge.
type Relation string

const (
	RelSubstrateOf Relation = "SUBSTRATE_OF" // compound -> reaction
	RelProductOf   Relation = "PRODUCT_OF"   // reaction -> compound
	RelCatalyzes   Relation = "CATALYZES"    // enzyme -> reaction
	RelInhibits    Relation = "INHIBITS"     // compound -> reaction
	RelActivates   Relation = "ACTIVATES"    // compound -> reaction
	RelContains    Relation = "CONTAINS"     // pathway -> reaction|compound
	RelXref        Relation = "XREF"         // any -> any
)

// Valid reports whether r is a known relation.
func (r Relation) Valid() bool {
	switch r {
	case RelSubstrateOf, RelProductOf, RelCatalyzes, RelInhibits, RelActivates, RelContains, RelXref:
		return true
	default:
		return false
	}
}

// DefaultStoich is the coefficient assumed when an edge carries none.
const DefaultStoich = 1.0

// Edge is a directed, relation-tagged link between two nodes.
// Stoich is meaningful only for SUBSTRATE_OF and PRODUCT_OF edges.
type Edge struct {
	Source      string   `json:"source" yaml:"source"`
	Target      string   `json:"target" yaml:"target"`
	Relation    Relation `json:"relation" yaml:"relation"`
	Stoich      float64  `json:"stoich,omitempty" yaml:"stoich,omitempty"`
	Compartment string   `json:"compartment,omitempty" yaml:"compartment,omitempty"`
}

// Coefficient returns the edge's stoichiometric magnitude, defaulting to 1.
func (e Edge) Coefficient() float64 {
	if e.Stoich == 0 {
		return DefaultStoich
	}
	return e.Stoich
}

// Key returns the identity triple used for upserts.
func (e Edge) Key() string {
	return fmt.Sprintf("%s|%s|%s", e.Source, e.Relation, e.Target)
}

// SignedCoefficient reports the contribution of this edge to the given
// reaction's stoichiometric column. ok is false when the edge does not
// describe a compound participating in reactionID.
func (e Edge) SignedCoefficient(reactionID string) (compoundID string, coeff float64, ok bool) {
	switch {
	case e.Relation == RelSubstrateOf && e.Target == reactionID:
		return e.Source, -e.Coefficient(), true
	case e.Relation == RelProductOf && e.Source == reactionID:
		return e.Target, e.Coefficient(), true
	default:
		return "", 0, false
	}
}
