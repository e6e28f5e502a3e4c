package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nvandessel/metakg/internal/backup"
	"github.com/nvandessel/metakg/internal/pathutil"
	"github.com/spf13/cobra"
)

func newRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Restore the graph from a backup file",
		Long: `Restore the knowledge graph from a backup file (V1 or V2 format).
The format is auto-detected and V2 checksums are verified first.

Modes:
  merge   - Keep existing nodes, edges and kinetic rows (default)
  replace - Clear the store first, then restore

Examples:
  metakg restore ~/.metakg/backups/metakg-backup-20260206-120000.json.gz
  metakg restore .metakg/backups/pre-import.json.gz --mode replace`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputPath := args[0]
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			modeFlag, _ := cmd.Flags().GetString("mode")

			mode, err := backup.ParseRestoreMode(modeFlag)
			if err != nil {
				return err
			}

			allowedDirs, err := pathutil.BackupDirs(root)
			if err != nil {
				return fmt.Errorf("failed to determine allowed backup dirs: %w", err)
			}
			if err := pathutil.ValidatePath(inputPath, allowedDirs); err != nil {
				return fmt.Errorf("restore path rejected: %w", err)
			}

			gs, _, err := openStore(root)
			if err != nil {
				return err
			}
			defer gs.Close()

			result, err := backup.Restore(context.Background(), gs, inputPath, mode)
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"mode":             mode,
					"nodes_restored":   result.NodesRestored,
					"nodes_skipped":    result.NodesSkipped,
					"edges_restored":   result.EdgesRestored,
					"edges_skipped":    result.EdgesSkipped,
					"kinetic_restored": result.KineticRestored,
					"kinetic_skipped":  result.KineticSkipped,
					"message":          fmt.Sprintf("Restore complete: %d nodes, %d edges", result.NodesRestored, result.EdgesRestored),
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Restore complete (mode: %s)\n", mode)
			fmt.Fprintf(out, "  Nodes: %d restored, %d skipped\n", result.NodesRestored, result.NodesSkipped)
			fmt.Fprintf(out, "  Edges: %d restored, %d skipped\n", result.EdgesRestored, result.EdgesSkipped)
			fmt.Fprintf(out, "  Kinetics: %d restored, %d skipped\n", result.KineticRestored, result.KineticSkipped)
			return nil
		},
	}

	cmd.Flags().String("mode", string(backup.RestoreMerge), "Restore mode: merge or replace")

	return cmd
}
