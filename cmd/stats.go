package main

import (
	"context"
	"strings"

	"github.com/desertthunder/vibesync/internal/models"
	"github.com/desertthunder/vibesync/internal/shared"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// StatsPlay counts a play of a song.
func (r *Runner) StatsPlay(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "song")
	if err != nil {
		return err
	}

	store, err := r.Store()
	if err != nil {
		return err
	}
	stats, err := store.RecordPlay(ctx, id)
	if err != nil {
		return err
	}

	play := stats.SongPlays[id]
	return r.writePlain("▶ %s - %s (%s plays)\n", play.Artist, play.Title, humanize.Comma(int64(play.Count)))
}

// loadStats returns the stored statistics, or an empty blob.
func (r *Runner) loadStats(ctx context.Context) (*models.Stats, error) {
	store, err := r.Store()
	if err != nil {
		return nil, err
	}
	stats, err := store.Settings.Stats(ctx)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = models.NewStats(r.clock())
	}
	return stats, nil
}

// StatsShow prints the totals and a chart of recent daily plays.
func (r *Runner) StatsShow(ctx context.Context, cmd *cli.Command) error {
	stats, err := r.loadStats(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(stats, true)
	}

	r.writePlainHeader("Listening Stats")
	r.writePlain("Total plays:         %s\n", humanize.Comma(int64(stats.TotalPlays)))
	r.writePlain("Albums added:        %s\n", humanize.Comma(int64(stats.TotalAlbumsAdded)))
	r.writePlain("Songs with links:    %s\n", humanize.Comma(int64(stats.TotalSongsWithURLs)))
	if lp := stats.LastPlayed; lp != nil {
		r.writePlain("Last played:         %s - %s, %s\n", lp.Artist, lp.Title, humanize.Time(shared.FromMillis(lp.Timestamp)))
	}

	days := int(cmd.Int("days"))
	if days <= 0 {
		return nil
	}

	daily := stats.DailyPlayCounts(days, r.clock())
	peak := 0
	for _, d := range daily {
		peak = max(peak, d.Count)
	}

	r.writePlainln("Daily plays")
	for _, d := range daily {
		bar := ""
		if peak > 0 {
			bar = strings.Repeat("█", d.Count*30/peak)
		}
		r.writePlain("%s %4d %s\n", d.Date, d.Count, bar)
	}
	return nil
}

// StatsTop prints the most played songs.
func (r *Runner) StatsTop(ctx context.Context, cmd *cli.Command) error {
	stats, err := r.loadStats(ctx)
	if err != nil {
		return err
	}

	top := stats.TopSongs(int(cmd.Int("limit")))
	if len(top) == 0 {
		return r.writePlain("No plays recorded yet\n")
	}

	for i, s := range top {
		r.writePlain("%2d. %s - %s (%s plays)\n", i+1, s.Artist, s.Title, humanize.Comma(int64(s.Count)))
	}
	return nil
}
