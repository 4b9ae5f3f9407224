package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytdash/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the configured database and runs migrations.
//
// With --rollback the newest SQLite migration is reverted instead.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Database

	if cmd.Bool("rollback") {
		if cfg.Driver == shared.DialectPostgres {
			return fmt.Errorf("%w: rollback for postgres", shared.ErrNotImplemented)
		}
		db, err := shared.NewDatabase(cfg.Path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		if err := shared.RollbackMigration(db); err != nil {
			return err
		}
		r.logger.Info("rolled back latest migration", "path", cfg.Path)
		return nil
	}

	r.logger.Info("initializing database", "driver", cfg.Driver, "path", cfg.Path)

	store, err := r.store(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	r.logger.Info("setup complete", "driver", cfg.Driver)
	return r.writePlain("✓ database ready\n")
}

// ConfigInit writes the embedded example configuration to disk.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("output")
	if path == "" {
		path = r.configPath
	}
	if path == "" {
		return fmt.Errorf("%w: no destination path", shared.ErrMissingArgument)
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	r.writePlain("✓ wrote %s\n", path)
	r.writePlain("Set session.secret and the Google client credentials before running 'ytdash serve'.\n")
	return nil
}
