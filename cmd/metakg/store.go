package main

import (
	"fmt"

	"github.com/nvandessel/metakg/internal/config"
	"github.com/nvandessel/metakg/internal/store"
)

// loadSettings loads and validates the configuration for root.
func loadSettings(root string) (*config.MetaKGConfig, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openStore opens the graph database configured for root.
func openStore(root string) (*store.SQLiteGraphStore, *config.MetaKGConfig, error) {
	cfg, err := loadSettings(root)
	if err != nil {
		return nil, nil, err
	}
	gs, err := store.OpenSQLiteGraphStore(cfg.DBPath(root))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	return gs, cfg, nil
}
