package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/deployhook/internal/cli/config"
	"github.com/leapstack-labs/deployhook/internal/state"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
}

// NewCommandContext reads the config and logger stored by the root command.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	return &CommandContext{
		Cfg:    config.GetConfig(cmd.Context()),
		Logger: config.GetLogger(cmd.Context()),
	}
}

// OpenStore opens the configured store, creating the SQLite directory if needed.
// Migrations run as part of opening.
func (c *CommandContext) OpenStore(ctx context.Context) (*state.SQLStore, error) {
	db := c.Cfg.Database
	driver, err := state.NormalizeDriver(db.Driver)
	if err != nil {
		return nil, err
	}
	if driver == state.DriverSQLite && db.DSN != ":memory:" {
		if dir := filepath.Dir(db.DSN); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
	}

	store, err := state.Open(ctx, state.Config{
		Driver: driver,
		DSN:    db.DSN,
		Logger: c.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", driver, err)
	}
	return store, nil
}
