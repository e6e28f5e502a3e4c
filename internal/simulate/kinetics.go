package simulate

import (
	"context"
	"fmt"
)

// RateParams are the resolved Michaelis-Menten parameters of one reaction.
type RateParams struct {
	Vmax float64 `json:"vmax"`
	Km   float64 `json:"km"`
	Keq  float64 `json:"keq"`
	// KmBySubstrate overrides Km for individual compounds.
	KmBySubstrate map[string]float64 `json:"km_by_substrate,omitempty"`
}

// KmFor returns the Km used for a compound.
func (p RateParams) KmFor(compoundID string) float64 {
	if km, ok := p.KmBySubstrate[compoundID]; ok {
		return km
	}
	return p.Km
}

// ResolveKinetics merges stored kinetic rows with defaults and the config's
// Vmax overrides and factors.
//
// Stored Vmax, Km, and Keq are averaged across rows; a per-substrate Km is the
// mean of the rows naming that substrate. Values no row provides come from d.
// Overrides replace Vmax; factors then multiply it. Both apply only to
// reactions in rxnIDs. Stored data is never modified.
func ResolveKinetics(ctx context.Context, src ReactionSource, rxnIDs []string, cfg SimulationConfig, d Defaults) (map[string]RateParams, error) {
	out := make(map[string]RateParams, len(rxnIDs))
	for _, rxnID := range rxnIDs {
		rows, err := src.KineticParamsForReaction(ctx, rxnID)
		if err != nil {
			return nil, fmt.Errorf("kinetic parameters for %s: %w", rxnID, err)
		}

		var vmax, km, keq mean
		bySub := map[string]*mean{}
		for _, row := range rows {
			vmax.addPtr(row.Vmax)
			km.addPtr(row.Km)
			keq.addPtr(row.EquilibriumConstant)
			if row.SubstrateID != "" && row.Km != nil {
				m, ok := bySub[row.SubstrateID]
				if !ok {
					m = &mean{}
					bySub[row.SubstrateID] = m
				}
				m.add(*row.Km)
			}
		}

		p := RateParams{
			Vmax: vmax.or(d.Vmax),
			Km:   km.or(d.Km),
			Keq:  keq.or(d.Keq),
		}
		if len(bySub) > 0 {
			p.KmBySubstrate = make(map[string]float64, len(bySub))
			for id, m := range bySub {
				p.KmBySubstrate[id] = m.or(d.Km)
			}
		}
		out[rxnID] = p
	}

	for rxnID, v := range cfg.VmaxOverrides {
		if p, ok := out[rxnID]; ok {
			p.Vmax = v
			out[rxnID] = p
		}
	}
	for rxnID, f := range cfg.VmaxFactors {
		if p, ok := out[rxnID]; ok {
			p.Vmax *= f
			out[rxnID] = p
		}
	}
	return out, nil
}

// mean is a running arithmetic mean.
type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v float64) {
	m.sum += v
	m.n++
}

func (m *mean) addPtr(v *float64) {
	if v != nil {
		m.add(*v)
	}
}

func (m mean) or(fallback float64) float64 {
	if m.n == 0 {
		return fallback
	}
	return m.sum / float64(m.n)
}
