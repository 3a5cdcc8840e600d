package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/vibesync/internal/formatter"
	"github.com/desertthunder/vibesync/internal/models"
	"github.com/desertthunder/vibesync/internal/repositories"
	"github.com/desertthunder/vibesync/internal/shared"
	"github.com/urfave/cli/v3"
)

// requireArg reads a positional argument or fails with [shared.ErrMissingArgument].
func requireArg(cmd *cli.Command, name string) (string, error) {
	v := strings.TrimSpace(cmd.StringArg(name))
	if v == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	return v, nil
}

// parseSong reads a --song value of the form "Title" or "Title | URL".
func parseSong(s string) models.Song {
	title, url, _ := strings.Cut(s, "|")
	return models.Song{Title: strings.TrimSpace(title), URL: strings.TrimSpace(url)}
}

// AlbumAdd adds an album and its songs.
func (r *Runner) AlbumAdd(ctx context.Context, cmd *cli.Command) error {
	store, err := r.Store()
	if err != nil {
		return err
	}

	album := models.Album{
		Title:    cmd.String("title"),
		Artist:   cmd.String("artist"),
		Year:     cmd.String("year"),
		Type:     cmd.String("type"),
		CoverArt: cmd.String("cover"),
	}

	var songs []models.Song
	for _, s := range cmd.StringSlice("song") {
		if song := parseSong(s); song.Title != "" {
			songs = append(songs, song)
		}
	}

	album, songs, err = store.AddAlbum(ctx, album, songs)
	if err != nil {
		return err
	}

	r.logger.Debug("album added", "id", album.ID, "songs", len(songs))
	return r.writePlain("✓ Added %q by %s (%s) with %d songs\n", album.Title, album.Artist, album.ID, len(songs))
}

// AlbumList prints albums in the requested format.
func (r *Runner) AlbumList(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	store, err := r.Store()
	if err != nil {
		return err
	}
	albums, err := store.Albums.GetAll(ctx)
	if err != nil {
		return err
	}

	data, err := formatter.Albums(format, albums)
	if err != nil {
		return err
	}
	return r.writeBytes(data)
}

// AlbumRename changes an album's title.
func (r *Runner) AlbumRename(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	title := strings.TrimSpace(cmd.String("title"))
	if title == "" {
		return fmt.Errorf("%w: title", shared.ErrMissingArgument)
	}

	store, err := r.Store()
	if err != nil {
		return err
	}
	album, err := store.Albums.Update(ctx, id, func(a *models.Album) { a.Title = title })
	if err != nil {
		return err
	}
	return r.writePlain("✓ Renamed %s to %q\n", album.ID, album.Title)
}

// AlbumDelete deletes an album with its songs.
func (r *Runner) AlbumDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	store, err := r.Store()
	if err != nil {
		return err
	}
	if err := store.Albums.Delete(ctx, id, repositories.Notify); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted album %s\n", id)
}

// SongAdd adds a song to an existing album.
func (r *Runner) SongAdd(ctx context.Context, cmd *cli.Command) error {
	albumID, err := requireArg(cmd, "album")
	if err != nil {
		return err
	}

	store, err := r.Store()
	if err != nil {
		return err
	}
	album, err := store.Albums.Get(ctx, albumID)
	if err != nil {
		return err
	}

	position := int(cmd.Int("position"))
	if position == 0 {
		existing, err := store.Songs.ListByAlbum(ctx, album.ID)
		if err != nil {
			return err
		}
		position = len(existing) + 1
	}

	song, err := store.Songs.Save(ctx, models.Song{
		AlbumID:  album.ID,
		Album:    album.Title,
		Artist:   album.Artist,
		CoverArt: album.CoverArt,
		Title:    cmd.String("title"),
		URL:      cmd.String("url"),
		Duration: int(cmd.Int("duration")),
		Position: position,
	}, repositories.Notify)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Added %q to %q (%s)\n", song.Title, album.Title, song.ID)
}

// SongList prints songs, optionally limited to one album.
func (r *Runner) SongList(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	store, err := r.Store()
	if err != nil {
		return err
	}

	title := "Songs"
	var songs []models.Song
	if albumID := cmd.String("album"); albumID != "" {
		album, err := store.Albums.Get(ctx, albumID)
		if err != nil {
			return err
		}
		title = fmt.Sprintf("%s - %s", album.Artist, album.Title)
		songs, err = store.Songs.ListByAlbum(ctx, albumID)
		if err != nil {
			return err
		}
	} else if songs, err = store.Songs.GetAll(ctx); err != nil {
		return err
	}

	data, err := formatter.Songs(format, title, songs)
	if err != nil {
		return err
	}
	return r.writeBytes(data)
}

// SongDelete deletes a song and removes it from every playlist.
func (r *Runner) SongDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	store, err := r.Store()
	if err != nil {
		return err
	}
	if err := store.Songs.Delete(ctx, id, repositories.Notify); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted song %s\n", id)
}

// SongLike toggles a song in Liked Music.
func (r *Runner) SongLike(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	store, err := r.Store()
	if err != nil {
		return err
	}
	liked, err := store.Playlists.ToggleLike(ctx, id)
	if err != nil {
		return err
	}

	if liked {
		return r.writePlain("♥ Added %s to %s\n", id, repositories.LikedMusicName)
	}
	return r.writePlain("Removed %s from %s\n", id, repositories.LikedMusicName)
}

// PlaylistCreate creates an empty playlist.
func (r *Runner) PlaylistCreate(ctx context.Context, cmd *cli.Command) error {
	name, err := requireArg(cmd, "name")
	if err != nil {
		return err
	}

	store, err := r.Store()
	if err != nil {
		return err
	}
	playlist, err := store.Playlists.Save(ctx, models.Playlist{
		Name:        name,
		Description: cmd.String("description"),
	}, repositories.Notify)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Created playlist %q (%s)\n", playlist.Name, playlist.ID)
}

// PlaylistList prints playlists in the requested format.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	store, err := r.Store()
	if err != nil {
		return err
	}
	playlists, err := store.Playlists.GetAll(ctx)
	if err != nil {
		return err
	}

	data, err := formatter.Playlists(format, playlists)
	if err != nil {
		return err
	}
	return r.writeBytes(data)
}

// PlaylistAdd appends a song to a playlist.
func (r *Runner) PlaylistAdd(ctx context.Context, cmd *cli.Command) error {
	playlistID, err := requireArg(cmd, "playlist")
	if err != nil {
		return err
	}
	songID, err := requireArg(cmd, "song")
	if err != nil {
		return err
	}

	store, err := r.Store()
	if err != nil {
		return err
	}
	playlist, err := store.Playlists.AddSong(ctx, playlistID, songID)
	if err != nil {
		return err
	}
	return r.writePlain("✓ %q now has %d songs\n", playlist.Name, len(playlist.SongIDs))
}

// PlaylistDelete deletes a user playlist.
func (r *Runner) PlaylistDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	store, err := r.Store()
	if err != nil {
		return err
	}
	if err := store.Playlists.Delete(ctx, id, repositories.Notify); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted playlist %s\n", id)
}
