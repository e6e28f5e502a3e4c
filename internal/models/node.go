// Package models defines the typed primitives of the metabolic knowledge graph:
// nodes, relation-tagged edges, and kinetic parameter records.
package models

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// NodeKind identifies what a graph node represents.
type NodeKind string

const (
	KindCompound NodeKind = "compound"
	KindReaction NodeKind = "reaction"
	KindEnzyme   NodeKind = "enzyme"
	KindPathway  NodeKind = "pathway"
)

// AllKinds lists every node kind in display order.
var AllKinds = []NodeKind{KindCompound, KindReaction, KindEnzyme, KindPathway}

// Valid reports whether k is a known node kind.
func (k NodeKind) Valid() bool {
	switch k {
	case KindCompound, KindReaction, KindEnzyme, KindPathway:
		return true
	default:
		return false
	}
}

// prefix returns the short namespace used in stable node IDs.
func (k NodeKind) prefix() string {
	switch k {
	case KindCompound:
		return "cpd"
	case KindReaction:
		return "rxn"
	case KindEnzyme:
		return "enz"
	case KindPathway:
		return "pwy"
	default:
		return string(k)
	}
}

// Node is a compound, reaction, enzyme, or pathway in the graph.
type Node struct {
	ID          string   `json:"id" yaml:"id"`
	Kind        NodeKind `json:"kind" yaml:"kind"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`

	// Compound fields
	Formula string `json:"formula,omitempty" yaml:"formula,omitempty"`
	Charge  *int   `json:"charge,omitempty" yaml:"charge,omitempty"`

	// Enzyme fields
	ECNumber string `json:"ec_number,omitempty" yaml:"ec_number,omitempty"`

	// Reaction fields. Stoichiometry is nil for non-reactions.
	Stoichiometry *Stoichiometry `json:"stoichiometry,omitempty" yaml:"stoichiometry,omitempty"`

	// Xrefs maps a database namespace to an external identifier,
	// e.g. {"kegg": "C00022", "chebi": "CHEBI:15361"}.
	Xrefs map[string]string `json:"xrefs,omitempty" yaml:"xrefs,omitempty"`

	SourceFormat string `json:"source_format,omitempty" yaml:"source_format,omitempty"`
	SourceFile   string `json:"source_file,omitempty" yaml:"source_file,omitempty"`
}

// Direction values recorded on reaction stoichiometry.
const (
	DirectionReversible   = "reversible"
	DirectionIrreversible = "irreversible"
)

// Participant is one side entry of a reaction's stoichiometry record.
type Participant struct {
	ID     string  `json:"id" yaml:"id"`
	Stoich float64 `json:"stoich" yaml:"stoich"`
}

// Stoichiometry is the reaction metadata captured by the parsers. The
// simulator takes its coefficients from edges; only Direction is read here.
type Stoichiometry struct {
	Direction  string        `json:"direction,omitempty" yaml:"direction,omitempty"`
	Substrates []Participant `json:"substrates,omitempty" yaml:"substrates,omitempty"`
	Products   []Participant `json:"products,omitempty" yaml:"products,omitempty"`
}

// Reversible reports whether the reaction may run in both directions.
// Reactions are reversible unless explicitly marked irreversible.
func (s *Stoichiometry) Reversible() bool {
	if s == nil {
		return true
	}
	return !strings.EqualFold(s.Direction, DirectionIrreversible)
}

// ParseStoichiometry decodes a JSON stoichiometry blob. Malformed or empty
// input yields nil so callers fall back to the reversible default.
func ParseStoichiometry(raw string) *Stoichiometry {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var s Stoichiometry
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil
	}
	return &s
}

// NodeID builds a stable, URI-style identifier such as "cpd:kegg:C00022".
func NodeID(kind NodeKind, db, extID string) string {
	return kind.prefix() + ":" + db + ":" + extID
}

// SyntheticID builds a deterministic identifier for entities without a
// database accession, hashing the lowercased display name.
func SyntheticID(kind NodeKind, name string) string {
	sum := sha1.Sum([]byte(strings.ToLower(name)))
	return kind.prefix() + ":syn:" + hex.EncodeToString(sum[:])[:8]
}

// ReactionMeta is the subset of reaction metadata the simulator needs.
type ReactionMeta struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Reversible bool   `json:"reversible"`
}
