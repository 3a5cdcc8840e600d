package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/vibesync/internal/backup"
	"github.com/urfave/cli/v3"
)

// BackupExport writes the library to a JSON backup.
//
// The default destination is vibe-music-backup-<ms>.json in the working directory.
func (r *Runner) BackupExport(ctx context.Context, cmd *cli.Command) error {
	store, err := r.Store()
	if err != nil {
		return err
	}

	now := r.clock()
	b, err := backup.Export(ctx, store, now)
	if err != nil {
		return err
	}

	output := cmd.String("output")
	if output == "-" {
		return backup.Write(r.output, b)
	}
	if output == "" {
		output = backup.Filename(now)
	} else if info, err := os.Stat(output); err == nil && info.IsDir() {
		output = filepath.Join(output, backup.Filename(now))
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer f.Close()

	if err := backup.Write(f, b); err != nil {
		return err
	}

	r.logger.Info("backup written", "path", output)
	return r.writePlain("✓ Exported %d albums, %d songs and %d playlists to %s\n",
		b.Metadata.TotalAlbums, b.Metadata.TotalSongs, b.Metadata.TotalPlaylists, output)
}

// BackupImport loads a backup file into the library.
func (r *Runner) BackupImport(ctx context.Context, cmd *cli.Command) error {
	path, err := requireArg(cmd, "path")
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer f.Close()

	b, err := backup.Read(f)
	if err != nil {
		return err
	}

	store, err := r.Store()
	if err != nil {
		return err
	}
	result, err := backup.Import(ctx, store, b)
	if err != nil {
		return fmt.Errorf("import stopped after %d albums, %d songs, %d playlists: %w",
			result.Albums, result.Songs, result.Playlists, err)
	}

	return r.writePlain("✓ Imported %d albums, %d songs and %d playlists from %s\n",
		result.Albums, result.Songs, result.Playlists, path)
}
