package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "metakg",
		Short: "Metabolic knowledge graph and pathway simulator",
		Long: `metakg stores a metabolic network (compounds, reactions, enzymes and
pathways) in a local SQLite graph and simulates it.

It runs flux balance analysis, kinetic ODE integration and what-if
perturbations, and serves the same operations to agents over MCP.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("root", ".", "Project root directory")

	rootCmd.AddCommand(
		newVersionCmd(),
		newInitCmd(),
		// Graph data
		newImportCmd(),
		newExportCmd(),
		newSeedKineticsCmd(),
		newStatsCmd(),
		// Analysis
		newSimulateCmd(),
		// Backup and restore
		newBackupCmd(),
		newRestoreCmd(),
		// Settings and serving
		newConfigCmd(),
		newMCPServerCmd(),
	)

	return rootCmd
}
