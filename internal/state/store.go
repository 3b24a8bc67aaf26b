// Package state persists repo bindings in SQLite or PostgreSQL.
package state

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/deployhook/pkg/core"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Drivers lists the canonical values for Config.Driver.
var Drivers = []string{DriverSQLite, DriverPostgres}

// NormalizeDriver maps a configured driver name onto one of Drivers.
// Matching is case-insensitive, empty means SQLite and "postgresql" is an
// alias for postgres.
func NormalizeDriver(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", DriverSQLite:
		return DriverSQLite, nil
	case DriverPostgres, "postgresql":
		return DriverPostgres, nil
	}
	return "", fmt.Errorf("unknown database driver %q (available: %s)", name, strings.Join(Drivers, ", "))
}

// Config selects and configures the backing database.
type Config struct {
	Driver string
	DSN    string
	Logger *slog.Logger
}

// Open connects to the configured database and runs pending migrations.
func Open(ctx context.Context, cfg Config) (*SQLStore, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	driver, err := NormalizeDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}

	var store *SQLStore
	if driver == DriverPostgres {
		store, err = OpenPostgres(ctx, cfg.DSN, logger)
	} else {
		store, err = OpenSQLite(ctx, cfg.DSN, logger)
	}
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

var _ core.Store = (*SQLStore)(nil)
