package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nvandessel/metakg/internal/kinetics"
	"github.com/spf13/cobra"
)

func newSeedKineticsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed-kinetics",
		Short: "Seed literature kinetic parameters for known reactions",
		Long: `Write curated Km, kcat and Vmax values and regulatory interactions for
every curated reaction present in the graph. Reactions are matched by
their KEGG accession. Existing rows are kept unless --force is given.

Examples:
  metakg seed-kinetics
  metakg seed-kinetics --force --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			force, _ := cmd.Flags().GetBool("force")

			gs, _, err := openStore(root)
			if err != nil {
				return err
			}
			defer gs.Close()

			result, err := kinetics.NewSeeder(gs).Seed(context.Background(), force)
			if err != nil {
				return fmt.Errorf("seeding failed: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(result)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Seeded %d kinetic parameters and %d regulatory interactions\n",
				result.KineticParams, result.RegulatoryInteractions)
			fmt.Fprintf(out, "  Added: %d, skipped: %d\n", len(result.Added), len(result.Skipped))
			if n := len(result.MissingReactions); n > 0 {
				fmt.Fprintf(out, "  %d curated reactions are not in the graph\n", n)
			}
			return nil
		},
	}

	cmd.Flags().Bool("force", false, "Overwrite existing kinetic rows")

	return cmd
}
