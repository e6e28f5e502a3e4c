package simulate

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
)

// RunWhatIf runs cfg unchanged and with scenario applied, and reports the
// difference. It returns an error only for an invalid mode or scenario; every
// simulation outcome, including a store failure while applying the scenario,
// is reported through the result statuses.
func (s *Simulator) RunWhatIf(ctx context.Context, cfg SimulationConfig, scenario WhatIfScenario, mode Mode) (*WhatIfResult, error) {
	mode, err := ParseMode(string(mode))
	if err != nil {
		return nil, err
	}
	if err := scenario.Validate(); err != nil {
		return nil, err
	}

	baseline, _ := s.Run(ctx, cfg, mode)
	return s.compare(ctx, cfg, baseline, scenario, mode), nil
}

// RunWhatIfBatch runs one baseline and compares every scenario against it.
// Scenarios run concurrently, bounded by SimulatorConfig.Concurrency; results
// keep the order of scenarios. Each result holds its own copy of the baseline.
func (s *Simulator) RunWhatIfBatch(ctx context.Context, cfg SimulationConfig, scenarios []WhatIfScenario, mode Mode) ([]*WhatIfResult, error) {
	mode, err := ParseMode(string(mode))
	if err != nil {
		return nil, err
	}
	for _, sc := range scenarios {
		if err := sc.Validate(); err != nil {
			return nil, err
		}
	}
	if len(scenarios) == 0 {
		return []*WhatIfResult{}, nil
	}

	baseline, _ := s.Run(ctx, cfg, mode)

	results := make([]*WhatIfResult, len(scenarios))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, sc := range scenarios {
		g.Go(func() error {
			results[i] = s.compare(gctx, cfg, baseline, sc, mode)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// compare runs the perturbed config and builds the delta maps.
func (s *Simulator) compare(ctx context.Context, cfg SimulationConfig, baseline RunResult, scenario WhatIfScenario, mode Mode) *WhatIfResult {
	var perturbed RunResult
	pcfg, err := s.ApplyScenario(ctx, cfg, scenario, mode)
	if err != nil {
		msg := fmt.Sprintf("failed to apply scenario %q: %v", scenario.Name, err)
		if mode == ModeFBA {
			perturbed.FBA = newFBAError(s.newID(), StatusError, msg)
		} else {
			perturbed.ODE = newODEError(s.newID(), StatusError, msg)
		}
	} else {
		perturbed, _ = s.Run(ctx, pcfg, mode)
	}

	res := &WhatIfResult{
		ScenarioName:   scenario.Name,
		Mode:           mode,
		Baseline:       baseline.Clone(),
		Perturbed:      perturbed,
		DeltaFluxes:    map[string]float64{},
		DeltaFinalConc: map[string]float64{},
	}
	if mode == ModeFBA {
		res.DeltaFluxes = fluxDeltas(baseline.FBA, perturbed.FBA)
	} else {
		res.DeltaFinalConc = finalConcDeltas(baseline.ODE, perturbed.ODE)
	}

	s.logger.Debug("what-if compared",
		"scenario", scenario.Name,
		"mode", mode,
		"baseline", baseline.Status(),
		"perturbed", perturbed.Status())
	return res
}

// ApplyScenario returns a copy of cfg with the scenario's perturbations
// applied; cfg itself is not modified.
//
// Knockouts pin the enzyme's reactions to zero flux (FBA) or zero Vmax (ODE).
// Activity factors scale the upper flux bound (FBA) or compound the Vmax
// factor (ODE). Concentration overrides replace initial concentrations. An
// enzyme that catalyzes nothing is a no-op.
func (s *Simulator) ApplyScenario(ctx context.Context, cfg SimulationConfig, scenario WhatIfScenario, mode Mode) (SimulationConfig, error) {
	out := cfg.Clone()

	for _, enzID := range scenario.EnzymeKnockouts {
		rxns, err := reactionsForEnzyme(ctx, s.src, enzID)
		if err != nil {
			return SimulationConfig{}, err
		}
		for _, rxnID := range rxns {
			if mode == ModeFBA {
				setBounds(&out, rxnID, Bounds{})
			} else {
				setVmaxOverride(&out, rxnID, 0)
			}
		}
	}

	enzymes := make([]string, 0, len(scenario.EnzymeFactors))
	for id := range scenario.EnzymeFactors {
		enzymes = append(enzymes, id)
	}
	sort.Strings(enzymes)
	for _, enzID := range enzymes {
		factor := scenario.EnzymeFactors[enzID]
		rxns, err := reactionsForEnzyme(ctx, s.src, enzID)
		if err != nil {
			return SimulationConfig{}, err
		}
		for _, rxnID := range rxns {
			if mode == ModeODE {
				f, ok := out.VmaxFactors[rxnID]
				if !ok {
					f = 1
				}
				if out.VmaxFactors == nil {
					out.VmaxFactors = map[string]float64{}
				}
				out.VmaxFactors[rxnID] = f * factor
				continue
			}
			b, ok := out.FluxBounds[rxnID]
			if !ok {
				reversible := true
				meta, err := s.src.ReactionMetadata(ctx, rxnID)
				if err != nil {
					return SimulationConfig{}, fmt.Errorf("reaction metadata %s: %w", rxnID, err)
				}
				if meta != nil {
					reversible = meta.Reversible
				}
				b = defaultBounds(reversible, s.defaults.FluxCap)
			}
			setBounds(&out, rxnID, Bounds{Lower: b.Lower, Upper: b.Upper * factor})
		}
	}

	for cpdID, conc := range scenario.InitialConcOverrides {
		if out.InitialConcentrations == nil {
			out.InitialConcentrations = map[string]float64{}
		}
		out.InitialConcentrations[cpdID] = conc
	}
	return out, nil
}

func setBounds(cfg *SimulationConfig, rxnID string, b Bounds) {
	if cfg.FluxBounds == nil {
		cfg.FluxBounds = map[string]Bounds{}
	}
	cfg.FluxBounds[rxnID] = b
}

func setVmaxOverride(cfg *SimulationConfig, rxnID string, v float64) {
	if cfg.VmaxOverrides == nil {
		cfg.VmaxOverrides = map[string]float64{}
	}
	cfg.VmaxOverrides[rxnID] = v
}
