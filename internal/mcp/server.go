package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/metakg/internal/config"
	"github.com/nvandessel/metakg/internal/logging"
	"github.com/nvandessel/metakg/internal/metrics"
	"github.com/nvandessel/metakg/internal/ratelimit"
	"github.com/nvandessel/metakg/internal/simulate"
	"github.com/nvandessel/metakg/internal/solver"
	"github.com/nvandessel/metakg/internal/store"
)

// Server wraps the MCP SDK server and exposes the metakg graph and simulator.
type Server struct {
	server       *sdk.Server
	store        store.GraphStore
	ownsStore    bool
	sim          *simulate.Simulator
	root         string
	settings     *config.MetaKGConfig
	toolLimiters ratelimit.ToolLimiters
	auditLogger  *AuditLogger
	runLog       *logging.RunLogger
	metrics      *metrics.Collector
	logger       *slog.Logger
	closeOnce    sync.Once
	closeErr     error
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "metakg")
	Version string // Server version
	Root    string // Project root directory

	// Settings defaults to config.Load(Root).
	Settings *config.MetaKGConfig
	// Store defaults to the SQLite database at Settings.DBPath(Root). A
	// provided store is not closed by the server.
	Store   store.GraphStore
	Metrics *metrics.Collector
	Logger  *slog.Logger
}

// NewServer creates a new MCP server with the metakg tools registered.
func NewServer(cfg *Config) (*Server, error) {
	settings := cfg.Settings
	if settings == nil {
		loaded, err := config.Load(cfg.Root)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		settings = loaded
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewLogger(settings.Logging.Level, os.Stderr)
	}

	graphStore, ownsStore := cfg.Store, false
	if graphStore == nil {
		sqlStore, err := store.OpenSQLiteGraphStore(settings.DBPath(cfg.Root))
		if err != nil {
			return nil, fmt.Errorf("failed to open graph store: %w", err)
		}
		graphStore, ownsStore = sqlStore, true
	}

	integrator, err := solver.New(settings.Simulation.ODE.Method)
	if err != nil {
		if ownsStore {
			graphStore.Close()
		}
		return nil, err
	}

	runLog := logging.NewRunLogger(store.LocalMetaKGPath(cfg.Root), settings.Logging.Level)
	sim := simulate.New(graphStore, simulate.SimulatorConfig{
		Defaults:    settings.Simulation.Defaults,
		Integrator:  integrator,
		ODESettings: settings.Simulation.ODE.Settings(),
		Logger:      logger,
		Metrics:     cfg.Metrics,
		RunLog:      runLog,
	})

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	s := &Server{
		server:       mcpServer,
		store:        graphStore,
		ownsStore:    ownsStore,
		sim:          sim,
		root:         cfg.Root,
		settings:     settings,
		toolLimiters: ratelimit.NewToolLimiters(),
		auditLogger:  NewAuditLogger(cfg.Root),
		runLog:       runLog,
		metrics:      cfg.Metrics,
		logger:       logger,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	go func() {
		select {
		case <-sigChan:
			s.logger.Info("shutting down mcp server")
			cancel()
		case <-ctx.Done():
		}
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})

	if closeErr := s.Close(); err == nil {
		err = closeErr
	}
	return err
}

// Close releases the audit log, the run log, and a store the server opened.
// It is safe to call more than once.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.auditLogger.Close()
		s.runLog.Close()
		if s.ownsStore {
			s.closeErr = s.store.Close()
		}
	})
	return s.closeErr
}
