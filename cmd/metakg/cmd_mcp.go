package main

import (
	"context"
	"fmt"

	"github.com/nvandessel/metakg/internal/logging"
	"github.com/nvandessel/metakg/internal/mcp"
	"github.com/nvandessel/metakg/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve the graph and simulator over MCP (stdio)",
		Long: `Run a Model Context Protocol server on stdin/stdout exposing reaction
and compound lookups, FBA, ODE and what-if simulations, and graph stats.

When metrics.addr is set (or --metrics-addr is given), Prometheus metrics
are served at http://<addr>/metrics for the lifetime of the server.

Example MCP client configuration:
  {"command": "metakg", "args": ["mcp-server", "--root", "/path/to/project"]}`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

			settings, err := loadSettings(root)
			if err != nil {
				return err
			}
			if metricsAddr == "" {
				metricsAddr = settings.Metrics.Addr
			}

			logger := logging.NewLogger(settings.Logging.Level, cmd.ErrOrStderr())

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			var collector *metrics.Collector
			if metricsAddr != "" {
				collector, err = metrics.NewCollector(prometheus.NewRegistry())
				if err != nil {
					return fmt.Errorf("failed to create metrics collector: %w", err)
				}
				go func() {
					if err := collector.Serve(ctx, metricsAddr); err != nil {
						logger.Error("metrics endpoint stopped", "addr", metricsAddr, "error", err)
					}
				}()
				logger.Info("serving metrics", "addr", metricsAddr)
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:     "metakg",
				Version:  version,
				Root:     root,
				Settings: settings,
				Metrics:  collector,
				Logger:   logger,
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			logger.Info("mcp server starting", "root", root, "version", version)
			return server.Run(ctx)
		},
	}

	cmd.Flags().String("metrics-addr", "", "Listen address for /metrics (overrides metrics.addr)")

	return cmd
}
