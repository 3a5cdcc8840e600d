package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/vibesync/internal/formatter"
	"github.com/desertthunder/vibesync/internal/models"
)

var (
	_ list.Item = albumItem{}
	_ list.Item = songItem{}
)

// albumItem wraps [models.Album] to implement [list.Item].
type albumItem struct {
	album models.Album
}

func (i albumItem) FilterValue() string { return i.album.Title + " " + i.album.Artist }
func (i albumItem) Title() string       { return i.album.Title }
func (i albumItem) Description() string {
	desc := i.album.Artist
	if i.album.Year != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.album.Year)
	}
	return desc
}

// songItem wraps [models.Song] to implement [list.Item].
type songItem struct {
	song  models.Song
	liked bool
}

func (i songItem) FilterValue() string { return i.song.Title }
func (i songItem) Title() string {
	title := fmt.Sprintf("%d. %s", i.song.Position, i.song.Title)
	if i.liked {
		title += " ♥"
	}
	return title
}
func (i songItem) Description() string {
	desc := i.song.Artist
	if d := formatter.FormatDuration(i.song.Duration); d != "-" {
		desc = fmt.Sprintf("%s • %s", desc, d)
	}
	if !i.song.HasURL {
		desc += " • no link"
	}
	return desc
}

func albumItems(albums []models.Album) []list.Item {
	items := make([]list.Item, len(albums))
	for i, a := range albums {
		items[i] = albumItem{album: a}
	}
	return items
}

func songItems(songs []models.Song, liked models.Playlist) []list.Item {
	items := make([]list.Item, len(songs))
	for i, s := range songs {
		items[i] = songItem{song: s, liked: liked.Contains(s.ID)}
	}
	return items
}
