package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nvandessel/metakg/internal/config"
	"github.com/nvandessel/metakg/internal/store"
	"github.com/spf13/cobra"
)

// configKeys lists every settable key in display order.
var configKeys = []string{
	"database.path",
	"logging.level",
	"metrics.addr",
	"simulation.defaults.vmax",
	"simulation.defaults.km",
	"simulation.defaults.keq",
	"simulation.defaults.concentration",
	"simulation.defaults.flux_cap",
	"simulation.ode.method",
	"simulation.ode.rtol",
	"simulation.ode.atol",
	"simulation.ode.max_steps",
	"simulation.ode.max_step",
	"backup.retention.max_count",
	"backup.retention.max_age",
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage metakg configuration",
		Long: `View and modify metakg configuration settings.

Settings are read from ~/.metakg/config.yaml, then <root>/.metakg/config.yaml,
then METAKG_* environment variables. "config set" writes the project file
unless --global is given.

Examples:
  metakg config list                              # Show effective settings
  metakg config get simulation.ode.method         # Get a specific setting
  metakg config set simulation.ode.method rk45    # Set a project setting
  metakg config set --global logging.level debug  # Set a global setting`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
	)

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := config.Load(root)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Effective configuration:")
			section := ""
			for _, key := range configKeys {
				if s := key[:strings.Index(key, ".")]; s != section {
					section = s
					fmt.Fprintln(out)
				}
				value, _ := getConfigValue(cfg, key)
				display := fmt.Sprint(value)
				if key == "database.path" {
					display = valueOrDefault(cfg.Database.Path, "(default: "+cfg.DBPath(root)+")")
				} else if key == "metrics.addr" || key == "backup.retention.max_age" {
					display = valueOrDefault(display, "(not set)")
				}
				fmt.Fprintf(out, "  %-36s %s\n", key+":", display)
			}
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]

			cfg, err := config.Load(root)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			value, found := getConfigValue(cfg, key)
			if !found {
				if jsonOut {
					return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
						"error": "key not found",
						"key":   key,
					})
				}
				return fmt.Errorf("unknown configuration key: %s", key)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"key":   key,
					"value": value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, value)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			global, _ := cmd.Flags().GetBool("global")
			key, value := args[0], args[1]

			path, err := configFilePath(root, global)
			if err != nil {
				return err
			}

			// Only the target file is rewritten, so values inherited from
			// other files or the environment are not copied into it.
			cfg := config.Default()
			if _, statErr := os.Stat(path); statErr == nil {
				cfg, err = config.LoadFromFile(path)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
			}

			if err := setConfigValue(cfg, key, value); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			if err := writeConfigFile(path, cfg); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"status": "updated",
					"key":    key,
					"value":  value,
					"file":   path,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s (%s)\n", key, value, path)
			return nil
		},
	}

	cmd.Flags().Bool("global", false, "Write ~/.metakg/config.yaml instead of the project file")

	return cmd
}

// configFilePath returns the project or global config file path.
func configFilePath(root string, global bool) (string, error) {
	if !global {
		return filepath.Join(store.LocalMetaKGPath(root), config.FileName), nil
	}
	dir, err := store.GlobalMetaKGPath()
	if err != nil {
		return "", fmt.Errorf("failed to get global path: %w", err)
	}
	return filepath.Join(dir, config.FileName), nil
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.MetaKGConfig, key string) (interface{}, bool) {
	d := cfg.Simulation.Defaults
	ode := cfg.Simulation.ODE
	switch key {
	case "database.path":
		return cfg.Database.Path, true
	case "logging.level":
		return cfg.Logging.Level, true
	case "metrics.addr":
		return cfg.Metrics.Addr, true
	case "simulation.defaults.vmax":
		return d.Vmax, true
	case "simulation.defaults.km":
		return d.Km, true
	case "simulation.defaults.keq":
		return d.Keq, true
	case "simulation.defaults.concentration":
		return d.Concentration, true
	case "simulation.defaults.flux_cap":
		return d.FluxCap, true
	case "simulation.ode.method":
		return ode.Method, true
	case "simulation.ode.rtol":
		return ode.RTol, true
	case "simulation.ode.atol":
		return ode.ATol, true
	case "simulation.ode.max_steps":
		return ode.MaxSteps, true
	case "simulation.ode.max_step":
		return ode.MaxStep, true
	case "backup.retention.max_count":
		return cfg.Backup.Retention.MaxCount, true
	case "backup.retention.max_age":
		return cfg.Backup.Retention.MaxAge, true
	default:
		return nil, false
	}
}

// setConfigValue sets a configuration value by dot-notation key. Range
// checks are left to Validate.
func setConfigValue(cfg *config.MetaKGConfig, key, value string) error {
	float := func(dst *float64) error {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number for %s: %s", key, value)
		}
		*dst = f
		return nil
	}
	integer := func(dst *int) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer for %s: %s", key, value)
		}
		*dst = n
		return nil
	}

	d := &cfg.Simulation.Defaults
	ode := &cfg.Simulation.ODE
	switch key {
	case "database.path":
		cfg.Database.Path = value
	case "logging.level":
		cfg.Logging.Level = strings.ToLower(value)
	case "metrics.addr":
		cfg.Metrics.Addr = value
	case "simulation.defaults.vmax":
		return float(&d.Vmax)
	case "simulation.defaults.km":
		return float(&d.Km)
	case "simulation.defaults.keq":
		return float(&d.Keq)
	case "simulation.defaults.concentration":
		return float(&d.Concentration)
	case "simulation.defaults.flux_cap":
		return float(&d.FluxCap)
	case "simulation.ode.method":
		ode.Method = strings.ToLower(value)
	case "simulation.ode.rtol":
		return float(&ode.RTol)
	case "simulation.ode.atol":
		return float(&ode.ATol)
	case "simulation.ode.max_steps":
		return integer(&ode.MaxSteps)
	case "simulation.ode.max_step":
		return float(&ode.MaxStep)
	case "backup.retention.max_count":
		return integer(&cfg.Backup.Retention.MaxCount)
	case "backup.retention.max_age":
		cfg.Backup.Retention.MaxAge = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// valueOrDefault returns the value if non-empty, otherwise the default.
func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
