// Package bootstrap initializes shared infrastructure ahead of the bot
// runtime: logging, database, migrations, and the settings store.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	coreconfig "wabot/core/config"
	coredatabase "wabot/core/database"
	"wabot/core/logger"
	"wabot/core/settings"
)

// Options control the bootstrap pipeline.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config

	// SkipDatabase runs without Postgres; settings fall back to an
	// in-memory store that does not survive restarts.
	SkipDatabase bool
}

// Result exposes the initialized infrastructure.
type Result struct {
	DB       *sqlx.DB
	Settings settings.Store
}

// Run initializes the logger, connects to the database, applies
// migrations, and builds the settings store.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	if err := logger.Init(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	if opts.SkipDatabase {
		return &Result{Settings: settings.NewMemory()}, nil
	}

	db, err := coredatabase.Connect(ctx, opts.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	if err := coredatabase.RunMigrations(opts.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}

	return &Result{
		DB:       db,
		Settings: settings.NewPG(db),
	}, nil
}

// Close releases bootstrap-owned resources.
func (r *Result) Close() error {
	if r.DB != nil {
		return r.DB.Close()
	}
	return nil
}
