// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/vibesync/internal/formatter"
	"github.com/urfave/cli/v3"
)

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format (json, csv, markdown, text)",
		Value:   string(formatter.Text),
	}
}

func credentialFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "email",
			Aliases: []string{"e"},
			Usage:   "Account email",
			Sources: cli.EnvVars("VIBE_EMAIL"),
		},
		&cli.StringFlag{
			Name:    "password",
			Aliases: []string{"p"},
			Usage:   "Account password",
			Sources: cli.EnvVars("VIBE_PASSWORD"),
		},
	}
}

// setupCommand handles setup operations for the database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize the library database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "config",
				Usage:  "Write a configuration file from the default template",
				Action: r.SetupConfig,
			},
			{
				Name:  "reset",
				Usage: "Delete every album, song, playlist, setting and tombstone",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Confirm the reset",
					},
				},
				Action: r.SetupReset,
			},
		},
	}
}

// authCommand handles VibeSync account operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the VibeSync account",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Sign in and store the session",
				Flags:  credentialFlags(),
				Action: r.AuthLogin,
			},
			{
				Name:   "register",
				Usage:  "Create an account and store the session",
				Flags:  credentialFlags(),
				Action: r.AuthRegister,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored session",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show the signed-in account",
				Action: r.AuthStatus,
			},
		},
	}
}

// syncCommand handles sync operations
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Synchronize the library with VibeSync",
		Commands: []*cli.Command{
			{
				Name:   "now",
				Usage:  "Run one sync cycle and show its progress",
				Action: r.SyncNow,
			},
			{
				Name:   "daemon",
				Usage:  "Sync in the background on startup, on local changes and periodically",
				Action: r.SyncDaemon,
			},
			{
				Name:   "status",
				Usage:  "Show account, last sync and library size",
				Action: r.SyncStatus,
			},
			{
				Name:  "size",
				Usage: "Estimate the size of the sync payload",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "bytes",
						Usage: "Print the exact byte count only",
					},
				},
				Action: r.SyncSize,
			},
			{
				Name:  "history",
				Usage: "List versions stored on the server",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SyncHistory,
			},
			{
				Name:  "restore",
				Usage: "Make a stored version current, then sync",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "version"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-sync",
						Usage: "Only restore on the server",
					},
				},
				Action: r.SyncRestore,
			},
		},
	}
}

// albumCommand handles album operations
func albumCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "album",
		Aliases: []string{"albums"},
		Usage:   "Manage albums",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Add an album with its songs",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "Album title", Required: true},
					&cli.StringFlag{Name: "artist", Usage: "Album artist", Required: true},
					&cli.StringFlag{Name: "year", Usage: "Release year"},
					&cli.StringFlag{Name: "type", Usage: "Release type (album, ep, single)"},
					&cli.StringFlag{Name: "cover", Usage: "Cover art URL"},
					&cli.StringSliceFlag{
						Name:  "song",
						Usage: `Song as "Title" or "Title | URL", repeatable`,
					},
				},
				Action: r.AlbumAdd,
			},
			{
				Name:   "list",
				Usage:  "List albums",
				Flags:  []cli.Flag{formatFlag()},
				Action: r.AlbumList,
			},
			{
				Name:  "rename",
				Usage: "Change an album's title",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "New title", Required: true},
				},
				Action: r.AlbumRename,
			},
			{
				Name:  "delete",
				Usage: "Delete an album and its songs",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.AlbumDelete,
			},
		},
	}
}

// songCommand handles song operations
func songCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "song",
		Aliases: []string{"songs"},
		Usage:   "Manage songs",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Add a song to an album",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "album"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "Song title", Required: true},
					&cli.StringFlag{Name: "url", Usage: "Playback URL"},
					&cli.IntFlag{Name: "duration", Usage: "Duration in seconds"},
					&cli.IntFlag{Name: "position", Usage: "Track number"},
				},
				Action: r.SongAdd,
			},
			{
				Name:  "list",
				Usage: "List songs",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "album", Usage: "Only songs of this album"},
					formatFlag(),
				},
				Action: r.SongList,
			},
			{
				Name:  "delete",
				Usage: "Delete a song",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.SongDelete,
			},
			{
				Name:  "like",
				Usage: "Toggle a song in Liked Music",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.SongLike,
			},
		},
	}
}

// playlistCommand handles playlist operations
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"playlists", "pl"},
		Usage:   "Manage playlists",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create an empty playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Usage: "Playlist description"},
				},
				Action: r.PlaylistCreate,
			},
			{
				Name:   "list",
				Usage:  "List playlists",
				Flags:  []cli.Flag{formatFlag()},
				Action: r.PlaylistList,
			},
			{
				Name:  "add",
				Usage: "Add a song to a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist"},
					&cli.StringArg{Name: "song"},
				},
				Action: r.PlaylistAdd,
			},
			{
				Name:  "delete",
				Usage: "Delete a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.PlaylistDelete,
			},
		},
	}
}

// statsCommand handles listening statistics
func statsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Listening statistics",
		Commands: []*cli.Command{
			{
				Name:  "play",
				Usage: "Count a play of a song",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "song"},
				},
				Action: r.StatsPlay,
			},
			{
				Name:  "show",
				Usage: "Show totals and recent daily plays",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "days", Usage: "Number of days to chart", Value: 7},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.StatsShow,
			},
			{
				Name:  "top",
				Usage: "Most played songs",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Number of songs", Value: 10},
				},
				Action: r.StatsTop,
			},
		},
	}
}

// backupCommand handles JSON backups of the library
func backupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Export and import library backups",
		Commands: []*cli.Command{
			{
				Name:  "export",
				Usage: "Write the library to a backup file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   `Output file or directory, "-" for stdout`,
					},
				},
				Action: r.BackupExport,
			},
			{
				Name:  "import",
				Usage: "Load a backup file into the library",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Action: r.BackupImport,
			},
		},
	}
}

// serveCommand runs the reference sync server
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run a local VibeSync server (in-memory)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "Listen host (overrides server.host)"},
			&cli.IntFlag{Name: "port", Usage: "Listen port (overrides server.port)"},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for browsing the library.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive library browser",
		Action:  r.TUI,
	}
}
