package simulate

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nvandessel/metakg/internal/logging"
	"github.com/nvandessel/metakg/internal/metrics"
	"github.com/nvandessel/metakg/internal/solver"
)

// SimulatorConfig configures a Simulator. Zero-valued fields fall back to
// the values from DefaultSimulatorConfig.
type SimulatorConfig struct {
	Defaults Defaults

	// LP solves FBA problems.
	LP solver.LinearProgramSolver
	// Integrator is used when a config does not name a method.
	Integrator  solver.Integrator
	ODESettings solver.Settings

	// Concurrency bounds parallel scenario runs in RunWhatIfBatch.
	Concurrency int
	// MaxFBAReactions bounds the scope of an FBA run. Negative disables the check.
	MaxFBAReactions int

	Logger  *slog.Logger
	Metrics *metrics.Collector
	RunLog  *logging.RunLogger

	// NewID generates run IDs.
	NewID func() string
}

// DefaultMaxFBAReactions is the largest scope RunFBA accepts by default.
// The dense simplex solve grows steeply with scope size.
const DefaultMaxFBAReactions = 250

// DefaultSimulatorConfig returns the standard kinetic defaults, the simplex LP
// solver, and the Rosenbrock integrator with solver-controlled step size.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		Defaults:        StandardDefaults(),
		LP:              solver.NewSimplexSolver(),
		Integrator:      solver.Rosenbrock23{},
		ODESettings:     solver.DefaultSettings(),
		Concurrency:     4,
		MaxFBAReactions: DefaultMaxFBAReactions,
		NewID:           uuid.NewString,
	}
}

// Simulator runs FBA, ODE, and what-if analyses against a ReactionSource.
// It holds no per-run state and is safe for concurrent use when the source is.
type Simulator struct {
	src         ReactionSource
	defaults    Defaults
	lp          solver.LinearProgramSolver
	integrator  solver.Integrator
	odeSettings solver.Settings
	concurrency int
	maxFBA      int
	logger      *slog.Logger
	metrics     *metrics.Collector
	runLog      *logging.RunLogger
	newID       func() string
}

// New creates a Simulator reading from src.
func New(src ReactionSource, config SimulatorConfig) *Simulator {
	def := DefaultSimulatorConfig()
	if config.LP == nil {
		config.LP = def.LP
	}
	if config.Integrator == nil {
		config.Integrator = def.Integrator
	}
	if config.ODESettings == (solver.Settings{}) {
		config.ODESettings = def.ODESettings
	}
	if config.Concurrency <= 0 {
		config.Concurrency = def.Concurrency
	}
	if config.MaxFBAReactions == 0 {
		config.MaxFBAReactions = def.MaxFBAReactions
	}
	if config.Logger == nil {
		config.Logger = logging.Discard()
	}
	if config.NewID == nil {
		config.NewID = def.NewID
	}

	return &Simulator{
		src:         src,
		defaults:    config.Defaults.withFallbacks(),
		lp:          config.LP,
		integrator:  config.Integrator,
		odeSettings: config.ODESettings,
		concurrency: config.Concurrency,
		maxFBA:      config.MaxFBAReactions,
		logger:      config.Logger,
		metrics:     config.Metrics,
		runLog:      config.RunLog,
		newID:       config.NewID,
	}
}

// Defaults returns the simulator's kinetic defaults.
func (s *Simulator) Defaults() Defaults {
	return s.defaults
}

// MaxFBAReactions returns the largest scope RunFBA accepts, or a negative
// value when unbounded.
func (s *Simulator) MaxFBAReactions() int {
	return s.maxFBA
}

// NewConfig returns NewConfig with the simulator's default concentration
// filled in, so callers and reports see the value a run will use.
func (s *Simulator) NewConfig() SimulationConfig {
	cfg := NewConfig()
	conc := s.defaults.Concentration
	cfg.DefaultConcentration = &conc
	return cfg
}

// Run dispatches to RunFBA or RunODE.
func (s *Simulator) Run(ctx context.Context, cfg SimulationConfig, mode Mode) (RunResult, error) {
	switch mode {
	case ModeFBA:
		return RunResult{FBA: s.RunFBA(ctx, cfg)}, nil
	case ModeODE:
		return RunResult{ODE: s.RunODE(ctx, cfg)}, nil
	default:
		_, err := ParseMode(string(mode))
		return RunResult{}, err
	}
}

// runRecord carries the bookkeeping for one finished run.
type runRecord struct {
	id        string
	mode      Mode
	status    string
	message   string
	start     time.Time
	reactions int
	compounds int
	steps     int
}

// finish logs, traces, and counts a completed run.
func (s *Simulator) finish(rec runRecord) {
	elapsed := time.Since(rec.start)
	s.metrics.ObserveRun(string(rec.mode), rec.status, elapsed)

	s.logger.Debug("simulation finished",
		"run_id", rec.id,
		"mode", rec.mode,
		"status", rec.status,
		"reactions", rec.reactions,
		"compounds", rec.compounds,
		"duration", elapsed)

	entry := logging.RunRecord{
		RunID:      rec.id,
		Mode:       string(rec.mode),
		Status:     rec.status,
		DurationMS: float64(elapsed.Microseconds()) / 1000,
		Reactions:  rec.reactions,
		Compounds:  rec.compounds,
		Steps:      rec.steps,
	}
	if rec.status == StatusError || rec.status == StatusFailed {
		entry.Message = rec.message
	}
	s.runLog.Record(entry)
}
