package models

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// KineticParam is one measured or curated kinetic record. Units follow the
// project conventions: Km in mM, Vmax in mM/s, kcat in 1/s, Keq dimensionless.
// Nil pointers mean "not measured".
type KineticParam struct {
	ID                  string   `json:"id" yaml:"id"`
	EnzymeID            string   `json:"enzyme_id,omitempty" yaml:"enzyme_id,omitempty"`
	ReactionID          string   `json:"reaction_id" yaml:"reaction_id"`
	SubstrateID         string   `json:"substrate_id,omitempty" yaml:"substrate_id,omitempty"`
	Km                  *float64 `json:"km,omitempty" yaml:"km,omitempty"`
	Kcat                *float64 `json:"kcat,omitempty" yaml:"kcat,omitempty"`
	Vmax                *float64 `json:"vmax,omitempty" yaml:"vmax,omitempty"`
	Ki                  *float64 `json:"ki,omitempty" yaml:"ki,omitempty"`
	HillCoefficient     *float64 `json:"hill_coefficient,omitempty" yaml:"hill_coefficient,omitempty"`
	DeltaGPrime         *float64 `json:"delta_g_prime,omitempty" yaml:"delta_g_prime,omitempty"`
	EquilibriumConstant *float64 `json:"equilibrium_constant,omitempty" yaml:"equilibrium_constant,omitempty"`
	PH                  *float64 `json:"ph,omitempty" yaml:"ph,omitempty"`
	TemperatureCelsius  *float64 `json:"temperature_celsius,omitempty" yaml:"temperature_celsius,omitempty"`
	SourceDatabase      string   `json:"source_database,omitempty" yaml:"source_database,omitempty"`
	LiteratureReference string   `json:"literature_reference,omitempty" yaml:"literature_reference,omitempty"`
	Organism            string   `json:"organism,omitempty" yaml:"organism,omitempty"`
	ConfidenceScore     *float64 `json:"confidence_score,omitempty" yaml:"confidence_score,omitempty"`
}

// RegulatoryInteraction records an allosteric or feedback effect of a
// compound on an enzyme. It is stored for reference; the rate laws ignore it.
type RegulatoryInteraction struct {
	ID              string   `json:"id" yaml:"id"`
	EnzymeID        string   `json:"enzyme_id" yaml:"enzyme_id"`
	CompoundID      string   `json:"compound_id" yaml:"compound_id"`
	InteractionType string   `json:"interaction_type" yaml:"interaction_type"`
	KiAllosteric    *float64 `json:"ki_allosteric,omitempty" yaml:"ki_allosteric,omitempty"`
	HillCoefficient *float64 `json:"hill_coefficient,omitempty" yaml:"hill_coefficient,omitempty"`
	Site            string   `json:"site,omitempty" yaml:"site,omitempty"`
	Organism        string   `json:"organism,omitempty" yaml:"organism,omitempty"`
	SourceDatabase  string   `json:"source_database,omitempty" yaml:"source_database,omitempty"`
}

// KineticParamID derives a stable row ID from the record's identity fields.
func KineticParamID(enzymeID, reactionID, substrateID, source string) string {
	return "kp:" + shortHash(enzymeID, reactionID, substrateID, source)
}

// RegulatoryInteractionID derives a stable row ID for a regulatory record.
func RegulatoryInteractionID(enzymeID, compoundID, interactionType string) string {
	return "ri:" + shortHash(enzymeID, compoundID, interactionType)
}

func shortHash(parts ...string) string {
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])[:12]
}

// Float returns a pointer to v, for building optional kinetic fields.
func Float(v float64) *float64 {
	return &v
}
