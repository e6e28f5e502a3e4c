package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nvandessel/metakg/internal/models"
)

const kineticColumns = `id, enzyme_id, reaction_id, substrate_id, km, kcat, vmax, ki,
	hill_coefficient, delta_g_prime, equilibrium_constant, ph, temperature_celsius,
	source_database, literature_reference, organism, confidence_score`

// UpsertKineticParams inserts or replaces kinetic rows by ID.
// Rows without an ID get one derived from their identity fields.
func (s *SQLiteGraphStore) UpsertKineticParams(ctx context.Context, params []models.KineticParam) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, p := range params {
		if p.ID == "" {
			p.ID = models.KineticParamID(p.EnzymeID, p.ReactionID, p.SubstrateID, p.SourceDatabase)
		}
		_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO kinetic_parameters (`+kineticColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, nullString(p.EnzymeID), p.ReactionID, nullString(p.SubstrateID),
			nullFloat(p.Km), nullFloat(p.Kcat), nullFloat(p.Vmax), nullFloat(p.Ki),
			nullFloat(p.HillCoefficient), nullFloat(p.DeltaGPrime), nullFloat(p.EquilibriumConstant),
			nullFloat(p.PH), nullFloat(p.TemperatureCelsius),
			nullString(p.SourceDatabase), nullString(p.LiteratureReference), nullString(p.Organism),
			nullFloat(p.ConfidenceScore))
		if err != nil {
			return 0, fmt.Errorf("failed to upsert kinetic param %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit kinetic params: %w", err)
	}
	return len(params), nil
}

// UpsertRegulatoryInteractions inserts or replaces regulatory rows by ID.
func (s *SQLiteGraphStore) UpsertRegulatoryInteractions(ctx context.Context, interactions []models.RegulatoryInteraction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, ri := range interactions {
		if ri.ID == "" {
			ri.ID = models.RegulatoryInteractionID(ri.EnzymeID, ri.CompoundID, ri.InteractionType)
		}
		_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO regulatory_interactions
			(id, enzyme_id, compound_id, interaction_type, ki_allosteric, hill_coefficient,
			 site, organism, source_database)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ri.ID, ri.EnzymeID, ri.CompoundID, ri.InteractionType,
			nullFloat(ri.KiAllosteric), nullFloat(ri.HillCoefficient),
			nullString(ri.Site), nullString(ri.Organism), nullString(ri.SourceDatabase))
		if err != nil {
			return 0, fmt.Errorf("failed to upsert regulatory interaction %s: %w", ri.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit regulatory interactions: %w", err)
	}
	return len(interactions), nil
}

// KineticParamsForReaction returns every kinetic row for the reaction, ordered by ID.
func (s *SQLiteGraphStore) KineticParamsForReaction(ctx context.Context, reactionID string) ([]models.KineticParam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryKineticParams(ctx,
		`SELECT `+kineticColumns+` FROM kinetic_parameters WHERE reaction_id = ? ORDER BY id`, reactionID)
}

// AllKineticParams returns every kinetic row ordered by ID.
func (s *SQLiteGraphStore) AllKineticParams(ctx context.Context) ([]models.KineticParam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryKineticParams(ctx, `SELECT `+kineticColumns+` FROM kinetic_parameters ORDER BY id`)
}

func (s *SQLiteGraphStore) queryKineticParams(ctx context.Context, query string, args ...interface{}) ([]models.KineticParam, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query kinetic params: %w", err)
	}
	defer rows.Close()

	var out []models.KineticParam
	for rows.Next() {
		var p models.KineticParam
		var enzyme, substrate, source, ref, organism sql.NullString
		var km, kcat, vmax, ki, hill, dg, keq, ph, temp, conf sql.NullFloat64
		if err := rows.Scan(&p.ID, &enzyme, &p.ReactionID, &substrate, &km, &kcat, &vmax, &ki,
			&hill, &dg, &keq, &ph, &temp, &source, &ref, &organism, &conf); err != nil {
			return nil, fmt.Errorf("failed to scan kinetic param: %w", err)
		}
		p.EnzymeID = enzyme.String
		p.SubstrateID = substrate.String
		p.SourceDatabase = source.String
		p.LiteratureReference = ref.String
		p.Organism = organism.String
		p.Km = floatPtr(km)
		p.Kcat = floatPtr(kcat)
		p.Vmax = floatPtr(vmax)
		p.Ki = floatPtr(ki)
		p.HillCoefficient = floatPtr(hill)
		p.DeltaGPrime = floatPtr(dg)
		p.EquilibriumConstant = floatPtr(keq)
		p.PH = floatPtr(ph)
		p.TemperatureCelsius = floatPtr(temp)
		p.ConfidenceScore = floatPtr(conf)
		out = append(out, p)
	}
	return out, rows.Err()
}

// AllRegulatoryInteractions returns every regulatory row ordered by ID.
func (s *SQLiteGraphStore) AllRegulatoryInteractions(ctx context.Context) ([]models.RegulatoryInteraction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, enzyme_id, compound_id, interaction_type,
		ki_allosteric, hill_coefficient, site, organism, source_database
		FROM regulatory_interactions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query regulatory interactions: %w", err)
	}
	defer rows.Close()

	var out []models.RegulatoryInteraction
	for rows.Next() {
		var ri models.RegulatoryInteraction
		var ki, hill sql.NullFloat64
		var site, organism, source sql.NullString
		if err := rows.Scan(&ri.ID, &ri.EnzymeID, &ri.CompoundID, &ri.InteractionType,
			&ki, &hill, &site, &organism, &source); err != nil {
			return nil, fmt.Errorf("failed to scan regulatory interaction: %w", err)
		}
		ri.KiAllosteric = floatPtr(ki)
		ri.HillCoefficient = floatPtr(hill)
		ri.Site = site.String
		ri.Organism = organism.String
		ri.SourceDatabase = source.String
		out = append(out, ri)
	}
	return out, rows.Err()
}
