// Package config provides unified configuration loading for metakg.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/metakg/internal/backup"
	"github.com/nvandessel/metakg/internal/simulate"
	"github.com/nvandessel/metakg/internal/solver"
	"github.com/nvandessel/metakg/internal/store"
)

// FileName is the config file looked up in the global and project .metakg dirs.
const FileName = "config.yaml"

// MetaKGConfig contains all metakg configuration settings.
type MetaKGConfig struct {
	// Database locates the SQLite knowledge graph.
	Database DatabaseConfig `json:"database" yaml:"database"`

	// Logging contains settings for operational and run logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Simulation holds kinetic defaults and numeric solver settings.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Metrics configures the optional Prometheus endpoint.
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	// Backup controls how many backups the CLI keeps.
	Backup BackupConfig `json:"backup" yaml:"backup"`
}

// BackupConfig configures backup retention.
type BackupConfig struct {
	Retention RetentionConfig `json:"retention" yaml:"retention"`
}

// RetentionConfig bounds the backups kept per directory. A backup survives
// if any configured limit keeps it.
type RetentionConfig struct {
	// MaxCount keeps the N most recent backups. Zero with no MaxAge means 10.
	MaxCount int `json:"max_count" yaml:"max_count"`
	// MaxAge keeps backups younger than this, e.g. "30d", "2w", "720h".
	MaxAge string `json:"max_age,omitempty" yaml:"max_age,omitempty"`
}

// Policy builds the retention policy the settings describe.
func (r RetentionConfig) Policy() backup.RetentionPolicy {
	var policies backup.AnyPolicy
	if r.MaxCount > 0 {
		policies = append(policies, backup.CountPolicy{MaxCount: r.MaxCount})
	}
	if r.MaxAge != "" {
		if d, err := backup.ParseDuration(r.MaxAge); err == nil {
			policies = append(policies, backup.AgePolicy{MaxAge: d})
		}
	}
	switch len(policies) {
	case 0:
		return backup.DefaultPolicy()
	case 1:
		return policies[0]
	default:
		return policies
	}
}

// DatabaseConfig locates the graph database.
type DatabaseConfig struct {
	// Path overrides <root>/.metakg/metakg.db. Supports ${VAR} syntax.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// LoggingConfig configures metakg's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables run logging to .metakg/runs.jsonl.
	// "trace" additionally logs resolved per-reaction kinetics.
	Level string `json:"level" yaml:"level"`
}

// MetricsConfig configures the Prometheus exposition endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics, e.g. ":9464". Empty disables it.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// SimulationConfig holds the process-wide simulation defaults.
type SimulationConfig struct {
	Defaults simulate.Defaults `json:"defaults" yaml:"defaults"`
	ODE      ODEConfig         `json:"ode" yaml:"ode"`
}

// ODEConfig selects and tunes the ODE integrator.
type ODEConfig struct {
	// Method is "rosenbrock23" (default, stiff-aware) or "rk45".
	Method string  `json:"method" yaml:"method"`
	RTol   float64 `json:"rtol" yaml:"rtol"`
	ATol   float64 `json:"atol" yaml:"atol"`
	// MaxSteps bounds step attempts per integration.
	MaxSteps int `json:"max_steps" yaml:"max_steps"`
	// MaxStep caps the step size. Zero leaves it to the error controller.
	MaxStep float64 `json:"max_step" yaml:"max_step"`
}

// Settings converts the ODE section into integrator settings.
func (c ODEConfig) Settings() solver.Settings {
	return solver.Settings{
		RTol:     c.RTol,
		ATol:     c.ATol,
		MaxSteps: c.MaxSteps,
		MaxStep:  c.MaxStep,
	}
}

// Default returns a MetaKGConfig with sensible defaults.
func Default() *MetaKGConfig {
	settings := solver.DefaultSettings()
	return &MetaKGConfig{
		Logging: LoggingConfig{
			Level: "info",
		},
		Backup: BackupConfig{
			Retention: RetentionConfig{MaxCount: backup.DefaultKeep},
		},
		Simulation: SimulationConfig{
			Defaults: simulate.StandardDefaults(),
			ODE: ODEConfig{
				Method:   solver.MethodRosenbrock23,
				RTol:     settings.RTol,
				ATol:     settings.ATol,
				MaxSteps: settings.MaxSteps,
			},
		},
	}
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.metakg/config.yaml -> <root>/.metakg/config.yaml -> environment variables
func Load(projectRoot string) (*MetaKGConfig, error) {
	config := Default()

	var paths []string
	if global, err := store.GlobalMetaKGPath(); err == nil {
		paths = append(paths, filepath.Join(global, FileName))
	}
	if projectRoot != "" {
		paths = append(paths, filepath.Join(store.LocalMetaKGPath(projectRoot), FileName))
	}

	for _, p := range paths {
		if _, statErr := os.Stat(p); statErr != nil {
			continue
		}
		if err := mergeFile(config, p); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file on top of defaults.
func LoadFromFile(path string) (*MetaKGConfig, error) {
	config := Default()
	if err := mergeFile(config, path); err != nil {
		return nil, err
	}
	return config, nil
}

// mergeFile decodes path over the current values, so later files only
// replace the keys they set.
func mergeFile(config *MetaKGConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	config.Database.Path = expandEnvVars(config.Database.Path)
	return nil
}

// DBPath returns the configured database path, or the project default.
func (c *MetaKGConfig) DBPath(projectRoot string) string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return store.DefaultDBPath(projectRoot)
}

// Validate checks that the configuration is valid.
func (c *MetaKGConfig) Validate() error {
	d := c.Simulation.Defaults
	positive := []struct {
		name  string
		value float64
	}{
		{"vmax", d.Vmax},
		{"km", d.Km},
		{"keq", d.Keq},
		{"flux_cap", d.FluxCap},
	}
	for _, p := range positive {
		if !(p.value > 0) || math.IsInf(p.value, 0) {
			return fmt.Errorf("simulation.defaults.%s must be positive and finite, got %g", p.name, p.value)
		}
	}
	if d.Concentration < 0 || math.IsNaN(d.Concentration) || math.IsInf(d.Concentration, 0) {
		return fmt.Errorf("simulation.defaults.concentration must be non-negative and finite, got %g", d.Concentration)
	}

	ode := c.Simulation.ODE
	if _, err := solver.New(ode.Method); err != nil {
		return fmt.Errorf("simulation.ode.method: %w (valid: %s, %s)", err, solver.MethodRosenbrock23, solver.MethodRK45)
	}
	if !(ode.RTol > 0) || ode.RTol >= 1 {
		return fmt.Errorf("simulation.ode.rtol must be in (0, 1), got %g", ode.RTol)
	}
	if !(ode.ATol > 0) {
		return fmt.Errorf("simulation.ode.atol must be positive, got %g", ode.ATol)
	}
	if ode.MaxSteps < 0 {
		return fmt.Errorf("simulation.ode.max_steps must be non-negative, got %d", ode.MaxSteps)
	}
	if ode.MaxStep < 0 {
		return fmt.Errorf("simulation.ode.max_step must be non-negative, got %g", ode.MaxStep)
	}

	if c.Backup.Retention.MaxCount < 0 {
		return fmt.Errorf("backup.retention.max_count must be non-negative, got %d", c.Backup.Retention.MaxCount)
	}
	if c.Backup.Retention.MaxAge != "" {
		if _, err := backup.ParseDuration(c.Backup.Retention.MaxAge); err != nil {
			return fmt.Errorf("backup.retention.max_age: %w", err)
		}
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *MetaKGConfig) {
	if v := os.Getenv("METAKG_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("METAKG_DB_PATH"); v != "" {
		config.Database.Path = v
	}

	if v := os.Getenv("METAKG_ODE_METHOD"); v != "" {
		config.Simulation.ODE.Method = strings.ToLower(v)
	}

	if v := os.Getenv("METAKG_ODE_RTOL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Simulation.ODE.RTol = f
		}
	}

	if v := os.Getenv("METAKG_ODE_ATOL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Simulation.ODE.ATol = f
		}
	}

	if v := os.Getenv("METAKG_FLUX_CAP"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Simulation.Defaults.FluxCap = f
		}
	}

	if v := os.Getenv("METAKG_METRICS_ADDR"); v != "" {
		config.Metrics.Addr = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
