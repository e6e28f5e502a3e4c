// Package kinetics seeds the knowledge graph with curated literature
// kinetic parameters and regulatory interactions for the KEGG reactions
// found in the bundled central-carbon pathways.
package kinetics

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/metakg/internal/models"
	"github.com/nvandessel/metakg/internal/store"
)

// Organism is recorded on every curated row.
const Organism = "Homo sapiens"

// curatedConfidence is the confidence score attached to curated kinetic rows.
const curatedConfidence = 0.8

//go:embed curated.yaml
var curatedYAML []byte

// CuratedReaction is one literature entry keyed by KEGG reaction accession.
type CuratedReaction struct {
	KEGG                string   `yaml:"kegg"`
	Vmax                *float64 `yaml:"vmax"`
	Km                  *float64 `yaml:"km"`
	Kcat                *float64 `yaml:"kcat"`
	Ki                  *float64 `yaml:"ki"`
	HillCoefficient     *float64 `yaml:"hill_coefficient"`
	EquilibriumConstant *float64 `yaml:"equilibrium_constant"`
	DeltaGPrime         *float64 `yaml:"delta_g_prime"`
	PH                  *float64 `yaml:"ph"`
	TemperatureCelsius  *float64 `yaml:"temperature_celsius"`
	SourceDatabase      string   `yaml:"source_database"`
	LiteratureReference string   `yaml:"literature_reference"`
	Notes               string   `yaml:"notes"`
}

// Effector is a compound that modulates the enzymes of a reaction.
type Effector struct {
	Compound        string   `yaml:"compound"`
	InteractionType string   `yaml:"interaction_type"`
	KiAllosteric    *float64 `yaml:"ki_allosteric"`
	HillCoefficient *float64 `yaml:"hill_coefficient"`
	Site            string   `yaml:"site"`
}

// CuratedRegulation lists the effectors for one KEGG reaction.
type CuratedRegulation struct {
	KEGG      string     `yaml:"kegg"`
	Effectors []Effector `yaml:"effectors"`
}

// Curated is the full literature table.
type Curated struct {
	Reactions  []CuratedReaction   `yaml:"reactions"`
	Regulation []CuratedRegulation `yaml:"regulation"`
}

// LoadCurated decodes the embedded literature table.
func LoadCurated() (*Curated, error) {
	var c Curated
	if err := yaml.Unmarshal(curatedYAML, &c); err != nil {
		return nil, fmt.Errorf("decoding curated kinetics: %w", err)
	}
	for i := range c.Reactions {
		if c.Reactions[i].SourceDatabase == "" {
			c.Reactions[i].SourceDatabase = "literature"
		}
	}
	return &c, nil
}

// SeedResult reports what a seeding pass wrote. Added and Skipped hold row
// IDs; MissingReactions holds KEGG accessions not present in the graph.
type SeedResult struct {
	KineticParams          int      `json:"kinetic_params"`
	RegulatoryInteractions int      `json:"regulatory_interactions"`
	Added                  []string `json:"added"`
	Skipped                []string `json:"skipped"`
	MissingReactions       []string `json:"missing_reactions,omitempty"`
}

// Seeder writes curated kinetics into a graph store.
type Seeder struct {
	store   store.GraphStore
	curated *Curated
}

// NewSeeder creates a seeder over gs using the embedded literature table.
func NewSeeder(gs store.GraphStore) *Seeder {
	return &Seeder{store: gs}
}

// WithCurated replaces the literature table, mainly for tests.
func (s *Seeder) WithCurated(c *Curated) *Seeder {
	s.curated = c
	return s
}

// Seed populates kinetic parameters and regulatory interactions for every
// curated reaction present in the store. Existing rows are skipped unless
// force is set. Reactions with no catalysing enzyme still get one kinetic
// row without an enzyme; their regulation is skipped.
func (s *Seeder) Seed(ctx context.Context, force bool) (*SeedResult, error) {
	curated := s.curated
	if curated == nil {
		c, err := LoadCurated()
		if err != nil {
			return nil, err
		}
		curated = c
	}

	existingKP := map[string]bool{}
	existingRI := map[string]bool{}
	if !force {
		kps, err := s.store.AllKineticParams(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing kinetic params: %w", err)
		}
		for _, kp := range kps {
			existingKP[kp.ID] = true
		}
		ris, err := s.store.AllRegulatoryInteractions(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing regulatory interactions: %w", err)
		}
		for _, ri := range ris {
			existingRI[ri.ID] = true
		}
	}

	result := &SeedResult{}
	var params []models.KineticParam
	for _, entry := range curated.Reactions {
		rxnID, enzymes, found, err := s.reaction(ctx, entry.KEGG)
		if err != nil {
			return nil, err
		}
		if !found {
			result.MissingReactions = append(result.MissingReactions, entry.KEGG)
			continue
		}
		if len(enzymes) == 0 {
			enzymes = []string{""}
		}
		for _, enz := range enzymes {
			kp := entry.param(enz, rxnID)
			if existingKP[kp.ID] {
				result.Skipped = append(result.Skipped, kp.ID)
				continue
			}
			params = append(params, kp)
		}
	}

	var interactions []models.RegulatoryInteraction
	for _, reg := range curated.Regulation {
		_, enzymes, found, err := s.reaction(ctx, reg.KEGG)
		if err != nil {
			return nil, err
		}
		if !found || len(enzymes) == 0 {
			continue
		}
		for _, eff := range reg.Effectors {
			cpdID := models.NodeID(models.KindCompound, "kegg", eff.Compound)
			cpd, err := s.store.GetNode(ctx, cpdID)
			if err != nil {
				return nil, fmt.Errorf("looking up %s: %w", cpdID, err)
			}
			if cpd == nil {
				continue
			}
			for _, enz := range enzymes {
				ri := models.RegulatoryInteraction{
					ID:              models.RegulatoryInteractionID(enz, cpdID, eff.InteractionType),
					EnzymeID:        enz,
					CompoundID:      cpdID,
					InteractionType: eff.InteractionType,
					KiAllosteric:    eff.KiAllosteric,
					HillCoefficient: eff.HillCoefficient,
					Site:            eff.Site,
					Organism:        Organism,
					SourceDatabase:  "literature",
				}
				if existingRI[ri.ID] {
					result.Skipped = append(result.Skipped, ri.ID)
					continue
				}
				interactions = append(interactions, ri)
			}
		}
	}

	if len(params) > 0 {
		n, err := s.store.UpsertKineticParams(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("writing kinetic params: %w", err)
		}
		result.KineticParams = n
		for _, kp := range params {
			result.Added = append(result.Added, kp.ID)
		}
	}
	if len(interactions) > 0 {
		n, err := s.store.UpsertRegulatoryInteractions(ctx, interactions)
		if err != nil {
			return nil, fmt.Errorf("writing regulatory interactions: %w", err)
		}
		result.RegulatoryInteractions = n
		for _, ri := range interactions {
			result.Added = append(result.Added, ri.ID)
		}
	}
	return result, nil
}

// reaction looks up rxn:kegg:<accession> and the enzymes catalysing it.
func (s *Seeder) reaction(ctx context.Context, kegg string) (string, []string, bool, error) {
	rxnID := models.NodeID(models.KindReaction, "kegg", kegg)
	node, err := s.store.GetNode(ctx, rxnID)
	if err != nil {
		return "", nil, false, fmt.Errorf("looking up %s: %w", rxnID, err)
	}
	if node == nil {
		return "", nil, false, nil
	}
	edges, err := s.store.GetEdges(ctx, rxnID, store.DirectionInbound, models.RelCatalyzes)
	if err != nil {
		return "", nil, false, fmt.Errorf("loading enzymes for %s: %w", rxnID, err)
	}
	var enzymes []string
	for _, e := range edges {
		enzymes = append(enzymes, e.Source)
	}
	return rxnID, enzymes, true, nil
}

func (c CuratedReaction) param(enzymeID, reactionID string) models.KineticParam {
	idEnzyme := enzymeID
	if idEnzyme == "" {
		idEnzyme = "none"
	}
	return models.KineticParam{
		ID:                  models.KineticParamID(idEnzyme, reactionID, "", c.SourceDatabase),
		EnzymeID:            enzymeID,
		ReactionID:          reactionID,
		Km:                  c.Km,
		Kcat:                c.Kcat,
		Vmax:                c.Vmax,
		Ki:                  c.Ki,
		HillCoefficient:     c.HillCoefficient,
		DeltaGPrime:         c.DeltaGPrime,
		EquilibriumConstant: c.EquilibriumConstant,
		PH:                  c.PH,
		TemperatureCelsius:  c.TemperatureCelsius,
		SourceDatabase:      c.SourceDatabase,
		LiteratureReference: c.LiteratureReference,
		Organism:            Organism,
		ConfidenceScore:     models.Float(curatedConfidence),
	}
}
