package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvandessel/metakg/internal/config"
	"github.com/nvandessel/metakg/internal/store"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a metakg graph in the current directory",
		Long: `Create the .metakg directory with an empty graph database and a
config.yaml holding the default settings.

Examples:
  metakg init                 # Initialize ./.metakg
  metakg init --global        # Initialize ~/.metakg (config only)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			globalInit, _ := cmd.Flags().GetBool("global")

			var dir string
			if globalInit {
				var err error
				dir, err = store.GlobalMetaKGPath()
				if err != nil {
					return fmt.Errorf("failed to get global path: %w", err)
				}
			} else {
				dir = store.LocalMetaKGPath(root)
			}

			if err := os.MkdirAll(dir, 0700); err != nil {
				return fmt.Errorf("failed to create .metakg directory: %w", err)
			}

			configPath := filepath.Join(dir, config.FileName)
			configCreated := false
			if _, err := os.Stat(configPath); os.IsNotExist(err) {
				if err := writeConfigFile(configPath, config.Default()); err != nil {
					return err
				}
				configCreated = true
			}

			dbPath := ""
			if !globalInit {
				gs, cfg, err := openStore(root)
				if err != nil {
					return err
				}
				dbPath = cfg.DBPath(root)
				if err := gs.Close(); err != nil {
					return fmt.Errorf("failed to close store: %w", err)
				}
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"status":         "initialized",
					"path":           dir,
					"database":       dbPath,
					"config_created": configCreated,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Initialized %s\n", dir)
			if configCreated {
				fmt.Fprintf(out, "  Created %s\n", configPath)
			}
			if dbPath != "" {
				fmt.Fprintf(out, "  Database: %s\n", dbPath)
			}
			return nil
		},
	}

	cmd.Flags().Bool("global", false, "Initialize ~/.metakg instead of the project directory")

	return cmd
}

// writeConfigFile writes cfg as YAML to path, creating its directory.
func writeConfigFile(path string, cfg *config.MetaKGConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
