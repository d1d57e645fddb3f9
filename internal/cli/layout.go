package cli

import (
	"fmt"

	"crossvoice/internal/config"
)

// loadLayout loads the configuration and ensures the dataset layout exists.
// Every command starts here.
func loadLayout(env *Env) (config.Config, config.Layout, error) {
	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		return config.Config{}, config.Layout{}, err
	}
	if cfg.DataDir == "" {
		return config.Config{}, config.Layout{}, ErrDataDirMissing
	}

	layout := config.NewLayout(cfg.DataDir)
	if err := layout.Ensure(); err != nil {
		return config.Config{}, config.Layout{}, fmt.Errorf("failed to prepare data directory: %w", err)
	}
	return cfg, layout, nil
}
