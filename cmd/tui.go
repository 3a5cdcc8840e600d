package main

import (
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/vibesync/internal/tasks"
	"github.com/desertthunder/vibesync/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive library browser.
//
// When signed in, background sync runs while the browser is open and its events show in the status line.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	if err := r.useFileLogger("./tmp/vibe-tui.log"); err != nil {
		return err
	}

	store, err := r.Store()
	if err != nil {
		return err
	}
	engine, err := r.Engine()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := ui.NewModel(ctx, store, engine)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	unsubscribe := r.bus.Subscribe(ui.Forward(p.Send))
	defer unsubscribe()

	var scheduler *tasks.Scheduler
	var wg sync.WaitGroup
	if client := r.Client(); client.IsAuthenticated() {
		scheduler = tasks.NewScheduler(engine, tasks.SchedulerConfigFrom(r.config.Sync),
			tasks.WithBus(r.bus),
			tasks.WithSchedulerLogger(r.logger),
			tasks.WithEligibility(client.IsAuthenticated),
		)

		// Start publishes sync-started, which blocks in p.Send until the program is running.
		wg.Add(1)
		go func() {
			defer wg.Done()
			scheduler.Start(ctx)
		}()
	}

	_, err = p.Run()
	cancel()
	wg.Wait()
	if scheduler != nil {
		scheduler.Stop()
	}

	if err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
