package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvandessel/metakg/internal/backup"
	"github.com/nvandessel/metakg/internal/pathutil"
	"github.com/spf13/cobra"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export the full graph and kinetics to a backup file",
		Long: `Backup the complete knowledge graph (nodes, edges, kinetic parameters
and regulatory interactions) to a compressed, checksummed file.

Default location: ~/.metakg/backups/metakg-backup-YYYYMMDD-HHMMSS.json.gz
Older backups in the same directory are pruned by backup.retention.

Examples:
  metakg backup                                      # Backup to default location
  metakg backup --output .metakg/backups/pre-import.json.gz
  metakg backup list                                 # List all backups
  metakg backup verify <file>                        # Verify backup integrity`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			outputPath, _ := cmd.Flags().GetString("output")

			if outputPath == "" {
				dir, err := backup.DefaultBackupDir()
				if err != nil {
					return fmt.Errorf("failed to get backup directory: %w", err)
				}
				outputPath = backup.GenerateBackupPath(dir)
			} else {
				allowedDirs, err := pathutil.BackupDirs(root)
				if err != nil {
					return fmt.Errorf("failed to determine allowed backup dirs: %w", err)
				}
				if err := pathutil.ValidatePath(outputPath, allowedDirs); err != nil {
					return fmt.Errorf("backup path rejected: %w", err)
				}
			}

			gs, cfg, err := openStore(root)
			if err != nil {
				return err
			}
			defer gs.Close()

			result, err := backup.Backup(context.Background(), gs, outputPath, map[string]string{
				"metakg_version": version,
				"database":       filepath.Base(cfg.DBPath(root)),
			})
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}

			dir := filepath.Dir(outputPath)
			if _, err := backup.ApplyRetention(dir, cfg.Backup.Retention.Policy()); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to apply retention: %v\n", err)
			}

			graph := result.Graph
			if jsonOut {
				info, _ := os.Stat(outputPath)
				var sizeBytes int64
				if info != nil {
					sizeBytes = info.Size()
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"path":          outputPath,
					"node_count":    len(graph.Nodes),
					"edge_count":    len(graph.Edges),
					"kinetic_count": len(graph.Kinetics),
					"version":       result.Version,
					"size_bytes":    sizeBytes,
					"message":       fmt.Sprintf("Backup created: %d nodes, %d edges", len(graph.Nodes), len(graph.Edges)),
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Backup created: %d nodes, %d edges, %d kinetic rows\n",
				len(graph.Nodes), len(graph.Edges), len(graph.Kinetics))
			fmt.Fprintf(cmd.OutOrStdout(), "  Path: %s\n", outputPath)
			return nil
		},
	}

	cmd.Flags().String("output", "", "Output file path (default: auto-generated in ~/.metakg/backups/)")

	cmd.AddCommand(
		newBackupListCmd(),
		newBackupVerifyCmd(),
		newBackupInspectCmd(),
	)

	return cmd
}

func newBackupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all backups with metadata",
		Long: `List backup files in ~/.metakg/backups with version, size, and
node/edge counts.

Examples:
  metakg backup list
  metakg backup list --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			dir, err := backup.DefaultBackupDir()
			if err != nil {
				return fmt.Errorf("failed to get backup directory: %w", err)
			}

			backups, err := backup.ListBackups(dir)
			if err != nil {
				return fmt.Errorf("failed to list backups: %w", err)
			}

			type entry struct {
				Path      string `json:"path"`
				Version   int    `json:"version"`
				Size      int64  `json:"size_bytes"`
				CreatedAt string `json:"created_at"`
				NodeCount int    `json:"node_count,omitempty"`
				EdgeCount int    `json:"edge_count,omitempty"`
				Checksum  string `json:"checksum,omitempty"`
			}
			entries := make([]entry, 0, len(backups))
			for _, b := range backups {
				e := entry{
					Path:      b.Path,
					Version:   b.Version,
					Size:      b.Size,
					CreatedAt: b.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
				}
				if b.Version == backup.FormatV2 {
					if header, err := backup.ReadV2Header(b.Path); err == nil {
						e.NodeCount = header.NodeCount
						e.EdgeCount = header.EdgeCount
						e.Checksum = header.Checksum
					}
				}
				entries = append(entries, e)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"backups":     entries,
					"total_count": len(entries),
					"directory":   dir,
				})
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "No backups found in %s\n", dir)
				return nil
			}

			fmt.Fprintf(out, "Backups in %s:\n", dir)
			var totalSize int64
			for i, e := range entries {
				totalSize += e.Size
				fmt.Fprintf(out, "  %s  v%d  %s  %d nodes  %d edges  %s\n",
					backups[i].CreatedAt.Format("2006-01-02 15:04"),
					e.Version,
					formatBytes(e.Size),
					e.NodeCount,
					e.EdgeCount,
					filepath.Base(e.Path),
				)
			}
			fmt.Fprintf(out, "Total: %d backups, %s\n", len(entries), formatBytes(totalSize))
			return nil
		},
	}
}

func newBackupVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>",
		Short: "Verify backup file integrity",
		Long: `Verify a backup file by checking its SHA-256 checksum.
Only V2 (compressed) backups carry a checksum.

Examples:
  metakg backup verify ~/.metakg/backups/metakg-backup-20260206-120000.json.gz`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filePath := args[0]
			jsonOut, _ := cmd.Flags().GetBool("json")
			out := cmd.OutOrStdout()

			formatVersion, err := backup.DetectFormat(filePath)
			if err != nil {
				if jsonOut {
					return json.NewEncoder(out).Encode(map[string]interface{}{
						"file":    filePath,
						"valid":   false,
						"error":   err.Error(),
						"message": fmt.Sprintf("Failed to detect format: %v", err),
					})
				}
				return fmt.Errorf("failed to detect format: %w", err)
			}

			if formatVersion == backup.FormatV1 {
				if jsonOut {
					return json.NewEncoder(out).Encode(map[string]interface{}{
						"file":    filePath,
						"version": backup.FormatV1,
						"valid":   true,
						"message": "V1 format: no checksum to verify (integrity check N/A)",
					})
				}
				fmt.Fprintf(out, "V1 format: no checksum to verify (integrity check N/A)\n")
				fmt.Fprintf(out, "  File: %s\n", filePath)
				return nil
			}

			if err := backup.VerifyChecksum(filePath); err != nil {
				if jsonOut {
					return json.NewEncoder(out).Encode(map[string]interface{}{
						"file":    filePath,
						"version": backup.FormatV2,
						"valid":   false,
						"error":   err.Error(),
						"message": "Checksum verification FAILED",
					})
				}
				fmt.Fprintf(out, "FAILED: %v\n", err)
				fmt.Fprintf(out, "  File: %s\n", filePath)
				return fmt.Errorf("checksum verification failed")
			}

			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"file":    filePath,
					"version": backup.FormatV2,
					"valid":   true,
					"message": "Checksum OK",
				})
			}
			fmt.Fprintf(out, "OK: checksum verified\n")
			fmt.Fprintf(out, "  File: %s\n", filePath)
			return nil
		},
	}
}

func newBackupInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Summarize a backup without restoring it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			summary, err := backup.Inspect(args[0])
			if err != nil {
				return fmt.Errorf("failed to inspect backup: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(summary)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Backup %s\n", summary.Path)
			fmt.Fprintf(out, "  Version: v%d\n", summary.Version)
			fmt.Fprintf(out, "  Created: %s\n", summary.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "  Nodes: %d\n", summary.Nodes)
			for _, k := range sortedKeys(summary.NodesKinds) {
				fmt.Fprintf(out, "    %-10s %d\n", k, summary.NodesKinds[k])
			}
			fmt.Fprintf(out, "  Edges: %d\n", summary.Edges)
			fmt.Fprintf(out, "  Kinetic rows: %d\n", summary.Kinetics)
			return nil
		},
	}
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(b int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.1fGB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1fMB", float64(b)/float64(mb))
	case b >= kb:
		return fmt.Sprintf("%.1fKB", float64(b)/float64(kb))
	default:
		return fmt.Sprintf("%dB", b)
	}
}
