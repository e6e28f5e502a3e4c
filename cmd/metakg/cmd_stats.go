package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/nvandessel/metakg/internal/store"
	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show graph counts by node kind and relation",
		Long: `Summarize the knowledge graph: node counts per kind, edge counts per
relation, and kinetic data. With --validate, also check edges for
dangling endpoints and kind mismatches.

Examples:
  metakg stats
  metakg stats --validate --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			validate, _ := cmd.Flags().GetBool("validate")

			gs, _, err := openStore(root)
			if err != nil {
				return err
			}
			defer gs.Close()

			ctx := context.Background()
			stats, err := gs.Stats(ctx)
			if err != nil {
				return fmt.Errorf("failed to get stats: %w", err)
			}

			var issues []store.ValidationError
			if validate {
				issues, err = store.ValidateGraph(ctx, gs)
				if err != nil {
					return fmt.Errorf("validation failed: %w", err)
				}
			}

			if jsonOut {
				payload := map[string]interface{}{"stats": stats}
				if validate {
					if issues == nil {
						issues = []store.ValidationError{}
					}
					payload["issues"] = issues
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(payload)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Nodes: %d\n", stats.Nodes)
			for _, k := range sortedKeys(stats.NodesByKind) {
				fmt.Fprintf(out, "  %-10s %d\n", k, stats.NodesByKind[k])
			}
			fmt.Fprintf(out, "Edges: %d\n", stats.Edges)
			for _, k := range sortedKeys(stats.EdgesByRelation) {
				fmt.Fprintf(out, "  %-14s %d\n", k, stats.EdgesByRelation[k])
			}
			fmt.Fprintf(out, "Kinetic parameters: %d\n", stats.KineticParams)
			fmt.Fprintf(out, "Regulatory interactions: %d\n", stats.RegulatoryInteractions)

			if validate {
				if len(issues) == 0 {
					fmt.Fprintln(out, "\nGraph is valid")
					return nil
				}
				fmt.Fprintf(out, "\n%d validation issues:\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(out, "  %s\n", issue)
				}
			}
			return nil
		},
	}

	cmd.Flags().Bool("validate", false, "Also check graph integrity")

	return cmd
}

// sortedKeys returns the map's keys in ascending order.
func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
