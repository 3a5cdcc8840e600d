package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/vibesync/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the in-memory reference server until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	conf := r.config.Server
	if host := cmd.String("host"); host != "" {
		conf.Host = host
	}
	if port := int(cmd.Int("port")); port > 0 {
		conf.Port = port
	}

	if err := r.useFileLogger(""); err != nil {
		return err
	}

	srv, err := server.New(conf, r.logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.writePlain("VibeSync server listening on http://%s (accounts are kept in memory)\n", conf.Addr())
	return srv.ListenAndServe(ctx)
}
