package simulate

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvandessel/metakg/internal/logging"
	"github.com/nvandessel/metakg/internal/metrics"
	"github.com/nvandessel/metakg/internal/solver"
)

func TestNew_FillsZeroConfig(t *testing.T) {
	sim := New(newStore(t, nil), SimulatorConfig{})

	assert.Equal(t, StandardDefaults(), sim.Defaults())
	assert.NotNil(t, sim.lp)
	assert.Equal(t, solver.MethodRosenbrock23, sim.integrator.Name())
	assert.Equal(t, solver.DefaultSettings(), sim.odeSettings)
	assert.Equal(t, 4, sim.concurrency)
	assert.NotEmpty(t, sim.newID())
	assert.NotEqual(t, sim.newID(), sim.newID())
}

func TestSimulator_NewConfigUsesDefaults(t *testing.T) {
	cfg := DefaultSimulatorConfig()
	cfg.Defaults.Concentration = 2.5
	sim := New(newStore(t, nil), cfg)

	got := sim.NewConfig()
	require.NotNil(t, got.DefaultConcentration)
	assert.Equal(t, 2.5, *got.DefaultConcentration)
	assert.True(t, got.Maximize)
	assert.Nil(t, NewConfig().DefaultConcentration)
}

func TestRunODE_DefaultConcentrationSource(t *testing.T) {
	ctx := context.Background()
	src := newStore(t, glycolysisReactions())

	simCfg := DefaultSimulatorConfig()
	simCfg.Defaults.Concentration = 2.0
	sim := New(src, simCfg)

	zero := 0.0
	tests := []struct {
		name string
		conc *float64
		want float64
	}{
		{"unset uses simulator default", nil, 2.0},
		{"explicit zero is honored", &zero, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := SimulationConfig{PathwayID: pathwayGlyco, TEnd: 1, TPoints: 3, DefaultConcentration: tt.conc}
			res := sim.RunODE(ctx, cfg)
			require.Equal(t, StatusOK, res.Status, res.Message)
			assert.Equal(t, tt.want, res.Concentrations[glucose][0])
		})
	}

	negative := -1.0
	res := sim.RunODE(ctx, SimulationConfig{PathwayID: pathwayGlyco, TEnd: 1, TPoints: 3, DefaultConcentration: &negative})
	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Message, "default_concentration")
}

func TestRunODE_ZeroConfiguredDefaultConcentration(t *testing.T) {
	simCfg := DefaultSimulatorConfig()
	simCfg.Defaults.Concentration = 0
	sim := New(newStore(t, glycolysisReactions()), simCfg)
	assert.Equal(t, 0.0, sim.Defaults().Concentration)

	res := sim.RunODE(context.Background(), SimulationConfig{PathwayID: pathwayGlyco, TEnd: 1, TPoints: 3})
	require.Equal(t, StatusOK, res.Status, res.Message)
	assert.Equal(t, 0.0, res.Concentrations[glucose][0])
}

func TestSimulator_Run(t *testing.T) {
	sim := newTestSimulator(newStore(t, glycolysisReactions()))
	ctx := context.Background()

	fba, err := sim.Run(ctx, NewConfig(), ModeFBA)
	require.NoError(t, err)
	assert.NotNil(t, fba.FBA)
	assert.Nil(t, fba.ODE)

	cfg := NewConfig()
	cfg.TEnd, cfg.TPoints = 5, 3
	ode, err := sim.Run(ctx, cfg, ModeODE)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, ode.Status())

	_, err = sim.Run(ctx, NewConfig(), "sbml")
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestSimulator_RecordsRuns(t *testing.T) {
	dir := t.TempDir()
	runLog := logging.NewRunLogger(dir, "debug")
	require.NotNil(t, runLog)
	defer runLog.Close()

	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	require.NoError(t, err)

	var logBuf bytes.Buffer
	cfg := DefaultSimulatorConfig()
	cfg.RunLog = runLog
	cfg.Metrics = collector
	cfg.Logger = logging.NewLogger("debug", &logBuf)
	sim := New(newStore(t, glycolysisReactions()), cfg)

	ctx := context.Background()
	fba := sim.RunFBA(ctx, NewConfig())
	odeCfg := NewConfig()
	odeCfg.TEnd, odeCfg.TPoints = 5, 3
	sim.RunODE(ctx, odeCfg)
	empty := NewConfig()
	empty.PathwayID = "pwy:none"
	sim.RunFBA(ctx, empty)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.RunsTotal.WithLabelValues("fba", StatusOptimal)))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.RunsTotal.WithLabelValues("ode", StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.RunsTotal.WithLabelValues("fba", StatusError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.LPSolves.WithLabelValues("optimal")))

	runs, err := logging.ReadRunLog(filepath.Join(dir, logging.RunLogFileName))
	require.NoError(t, err)
	require.Len(t, runs, 3)

	assert.Equal(t, fba.RunID, runs[0].RunID)
	assert.Equal(t, "fba", runs[0].Mode)
	assert.Equal(t, StatusOptimal, runs[0].Status)
	assert.Equal(t, 2, runs[0].Reactions)
	assert.Equal(t, 5, runs[0].Compounds)
	assert.Empty(t, runs[0].Message)
	assert.False(t, runs[0].Time.IsZero())

	assert.Equal(t, "ode", runs[1].Mode)
	assert.Positive(t, runs[1].Steps)

	assert.Equal(t, StatusError, runs[2].Status)
	assert.Equal(t, MsgNoReactions, runs[2].Message)

	assert.Contains(t, logBuf.String(), "simulation finished")
	assert.Contains(t, logBuf.String(), fba.RunID)
}

func TestSimulationConfig_Clone(t *testing.T) {
	orig := NewConfig()
	orig.ReactionIDs = []string{"a"}
	orig.InitialConcentrations = map[string]float64{"c": 1}
	orig.FluxBounds = map[string]Bounds{"a": {0, 1}}
	orig.VmaxOverrides = map[string]float64{"a": 2}
	orig.VmaxFactors = map[string]float64{"a": 3}

	clone := orig.Clone()
	require.Equal(t, orig, clone)

	clone.ReactionIDs[0] = "b"
	clone.InitialConcentrations["c"] = 9
	clone.FluxBounds["a"] = Bounds{5, 5}
	clone.VmaxOverrides["a"] = 9
	clone.VmaxFactors["x"] = 1

	assert.Equal(t, []string{"a"}, orig.ReactionIDs)
	assert.Equal(t, 1.0, orig.InitialConcentrations["c"])
	assert.Equal(t, Bounds{0, 1}, orig.FluxBounds["a"])
	assert.Equal(t, 2.0, orig.VmaxOverrides["a"])
	assert.NotContains(t, orig.VmaxFactors, "x")
}
