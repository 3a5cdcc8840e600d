package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/vibesync/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	store, err := r.Store()
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}

	counts, err := store.Counts(ctx)
	if err != nil {
		return err
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.writePlain("✓ Library ready at %s (%d albums, %d songs, %d playlists)\n",
		r.config.Database.Path, counts.Albums, counts.Songs, counts.Playlists)
}

// SetupConfig writes config.toml from the embedded template.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	r.writePlain("✓ Configuration written to %s\n", path)
	return r.writePlain("Edit sync.api_url to point at your VibeSync server, then run 'vibe auth login'\n")
}

// SetupReset clears the local library.
//
// Deletes are not tombstoned, so the next sync downloads the account's library again.
func (r *Runner) SetupReset(ctx context.Context, cmd *cli.Command) error {
	if !cmd.Bool("yes") {
		return fmt.Errorf("%w: pass --yes to delete the local library", shared.ErrMissingArgument)
	}

	store, err := r.Store()
	if err != nil {
		return err
	}
	if err := store.ClearAll(ctx); err != nil {
		return fmt.Errorf("failed to reset library: %w", err)
	}

	r.logger.Warn("local library cleared", "path", r.config.Database.Path)
	return r.writePlain("✓ Local library cleared\n")
}
