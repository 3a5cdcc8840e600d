package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/desertthunder/vibesync/internal/events"
	"github.com/desertthunder/vibesync/internal/shared"
	"github.com/desertthunder/vibesync/internal/tasks"
	"github.com/desertthunder/vibesync/internal/watch"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// SyncNow runs one sync cycle, printing each phase as it starts.
func (r *Runner) SyncNow(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.Engine()
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			if update.Phase == tasks.Complete {
				continue
			}
			r.writePlain("[%d/%d] %s\n", update.Step, update.Total, update.Message)
		}
	}()

	result, err := engine.PerformSync(ctx, progress)
	close(progress)
	wg.Wait()

	if err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) {
			return fmt.Errorf("%w\nRun 'vibe auth login' first", err)
		}
		return err
	}

	r.writePlainln("✓ Sync complete")
	r.writePlain("Albums: %d\nSongs: %d\nPlaylists: %d\n", result.Albums, result.Songs, result.Playlists)
	return nil
}

// SyncDaemon keeps the library in sync until interrupted.
//
// Syncs run shortly after startup, after local changes (including ones made by other vibe processes,
// noticed through the change marker) and on the configured interval.
func (r *Runner) SyncDaemon(ctx context.Context, cmd *cli.Command) error {
	if err := r.useFileLogger(""); err != nil {
		return err
	}

	engine, err := r.Engine()
	if err != nil {
		return err
	}
	client := r.Client()
	if !client.IsAuthenticated() {
		return fmt.Errorf("%w: run 'vibe auth login' before starting the daemon", shared.ErrNotAuthenticated)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	unsubscribe := r.bus.Subscribe(r.logSyncEvent)
	defer unsubscribe()

	scheduler := tasks.NewScheduler(engine, tasks.SchedulerConfigFrom(r.config.Sync),
		tasks.WithBus(r.bus),
		tasks.WithSchedulerLogger(r.logger),
		tasks.WithEligibility(func() bool {
			r.sessions.Reload()
			return client.IsAuthenticated()
		}),
	)

	var wg sync.WaitGroup
	if path := r.config.ChangeMarkerPath(); path != "" {
		watcher, err := watch.New(path, r.logger)
		if err != nil {
			return err
		}
		defer watcher.Close()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := watcher.Run(ctx, func() { scheduler.RequestSync(-1) }); err != nil {
				r.logger.Warn("change watcher stopped", "error", err)
			}
		}()
	}

	scheduler.Start(ctx)
	r.logger.Info("sync daemon started", "interval", r.config.Sync.Interval.Duration, "server", r.config.Sync.APIURL)
	r.writePlain("Syncing in the background, press Ctrl+C to stop\n")

	<-ctx.Done()
	scheduler.Stop()
	wg.Wait()

	r.logger.Info("sync daemon stopped")
	return nil
}

func (r *Runner) logSyncEvent(e events.Event) {
	switch e.Type {
	case events.SyncStarted:
		r.logger.Debug("sync scheduled")
	case events.SyncCompleted:
		if e.Result != nil {
			r.logger.Info("background sync complete", "albums", e.Result.Albums, "songs", e.Result.Songs, "playlists", e.Result.Playlists)
		}
	case events.SyncError:
		r.logger.Warn("background sync failed", "error", e.Message)
	}
}

// SyncStatus prints the account, last sync time and the size of the library.
func (r *Runner) SyncStatus(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.Engine()
	if err != nil {
		return err
	}
	store, _ := r.Store()

	r.writePlainHeader("VibeSync")
	if session := r.Client().Session(); session != nil {
		r.writePlain("Account:   %s\n", session.User.Email)
	} else {
		r.writePlain("Account:   not signed in\n")
	}
	r.writePlain("Server:    %s\n", r.config.Sync.APIURL)

	last, err := engine.LastSync(ctx)
	if err != nil {
		return err
	}
	if last.IsZero() {
		r.writePlain("Last sync: never\n")
	} else {
		r.writePlain("Last sync: %s (%s)\n", humanize.Time(last), last.Local().Format("2006-01-02 15:04:05"))
	}

	counts, err := store.Counts(ctx)
	if err != nil {
		return err
	}
	r.writePlain("Library:   %d albums, %d songs, %d playlists, %d deletions\n",
		counts.Albums, counts.Songs, counts.Playlists, counts.Tombstones)
	r.writePlain("Payload:   %s\n", humanize.Bytes(uint64(engine.PayloadSize(ctx))))
	return nil
}

// SyncSize prints the estimated upload size.
func (r *Runner) SyncSize(ctx context.Context, cmd *cli.Command) error {
	store, err := r.Store()
	if err != nil {
		return err
	}

	size, err := tasks.PayloadSize(ctx, store)
	if err != nil {
		return err
	}

	if cmd.Bool("bytes") {
		return r.writePlain("%d\n", size)
	}
	return r.writePlain("%s (%s bytes)\n", humanize.Bytes(uint64(size)), humanize.Comma(int64(size)))
}

// SyncHistory lists the versions stored on the server, newest first.
func (r *Runner) SyncHistory(ctx context.Context, cmd *cli.Command) error {
	versions, err := r.Client().History(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(versions, true)
	}
	if len(versions) == 0 {
		return r.writePlain("No versions stored yet\n")
	}

	r.writePlainHeader(fmt.Sprintf("%d stored versions", len(versions)))
	for _, v := range versions {
		r.writePlain("%s  %-14s  %4d albums  %5d songs  %3d playlists  %s\n",
			v.ID,
			humanize.Time(shared.FromMillis(v.CreatedAt)),
			v.Albums, v.Songs, v.Playlists,
			humanize.Bytes(uint64(v.Size)),
		)
	}
	return nil
}

// SyncRestore makes a stored version current on the server and, unless --no-sync is set, merges it locally.
func (r *Runner) SyncRestore(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("version")
	if id == "" {
		return fmt.Errorf("%w: version id (see 'vibe sync history')", shared.ErrMissingArgument)
	}

	if err := r.Client().Restore(ctx, id); err != nil {
		return err
	}
	r.writePlain("✓ Restored version %s on the server\n", id)

	if cmd.Bool("no-sync") {
		return nil
	}
	return r.SyncNow(ctx, cmd)
}
