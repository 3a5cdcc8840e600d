// package formatter renders library listings as JSON, CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/vibesync/internal/models"
	"github.com/desertthunder/vibesync/internal/shared"
)

// Format selects an output encoding.
type Format string

const (
	JSON     Format = "json"
	CSV      Format = "csv"
	Markdown Format = "markdown"
	Text     Format = "text"
)

// Formats lists every supported format.
var Formats = []Format{JSON, CSV, Markdown, Text}

// ParseFormat accepts a format name, case-insensitively. "md" and "txt" are aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return Text, nil
	case "json":
		return JSON, nil
	case "csv":
		return CSV, nil
	case "markdown", "md":
		return Markdown, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want json, csv, markdown or text)", shared.ErrInvalidFlag, s)
	}
}

// FormatDuration renders seconds as m:ss, or h:mm:ss past an hour.
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "-"
	}
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// Albums renders albums in f.
func Albums(f Format, albums []models.Album) ([]byte, error) {
	switch f {
	case JSON:
		return toJSON(albums)
	case CSV:
		return AlbumsToCSV(albums)
	case Markdown:
		return AlbumsToMarkdown(albums), nil
	default:
		return AlbumsToText(albums), nil
	}
}

// Songs renders songs in f. title heads the Markdown and text forms.
func Songs(f Format, title string, songs []models.Song) ([]byte, error) {
	switch f {
	case JSON:
		return toJSON(songs)
	case CSV:
		return SongsToCSV(songs)
	case Markdown:
		return SongsToMarkdown(title, songs), nil
	default:
		return SongsToText(title, songs), nil
	}
}

// Playlists renders playlists in f.
func Playlists(f Format, playlists []models.Playlist) ([]byte, error) {
	switch f {
	case JSON:
		return toJSON(playlists)
	case CSV:
		return PlaylistsToCSV(playlists)
	case Markdown:
		return PlaylistsToMarkdown(playlists), nil
	default:
		return PlaylistsToText(playlists), nil
	}
}

func toJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(data, '\n'), nil
}

func writeCSV(headers []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, record := range rows {
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// AlbumsToCSV writes columns: ID, Title, Artist, Year, Type, Updated
func AlbumsToCSV(albums []models.Album) ([]byte, error) {
	rows := make([][]string, len(albums))
	for i, a := range albums {
		rows[i] = []string{a.ID, a.Title, a.Artist, a.Year, a.Type, strconv.FormatInt(a.UpdatedAt, 10)}
	}
	return writeCSV([]string{"ID", "Title", "Artist", "Year", "Type", "Updated"}, rows)
}

// SongsToCSV writes columns: ID, Album ID, Position, Title, Artist, Album, Duration, URL
func SongsToCSV(songs []models.Song) ([]byte, error) {
	rows := make([][]string, len(songs))
	for i, s := range songs {
		rows[i] = []string{
			s.ID,
			s.AlbumID,
			strconv.Itoa(s.Position),
			s.Title,
			s.Artist,
			s.Album,
			strconv.Itoa(s.Duration),
			s.URL,
		}
	}
	return writeCSV([]string{"ID", "Album ID", "Position", "Title", "Artist", "Album", "Duration", "URL"}, rows)
}

// PlaylistsToCSV writes columns: ID, Name, Type, Songs, Description
func PlaylistsToCSV(playlists []models.Playlist) ([]byte, error) {
	rows := make([][]string, len(playlists))
	for i, p := range playlists {
		rows[i] = []string{p.ID, p.Name, string(p.Type), strconv.Itoa(len(p.SongIDs)), p.Description}
	}
	return writeCSV([]string{"ID", "Name", "Type", "Songs", "Description"}, rows)
}

// escapeCell keeps a value inside its Markdown table cell.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// AlbumsToMarkdown renders a table of albums.
func AlbumsToMarkdown(albums []models.Album) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Albums\n\n")
	buf.WriteString(fmt.Sprintf("**Albums**: %d\n\n", len(albums)))
	if len(albums) == 0 {
		return buf.Bytes()
	}

	buf.WriteString("| Artist | Title | Year | ID |\n")
	buf.WriteString("| --- | --- | --- | --- |\n")
	for _, a := range albums {
		buf.WriteString(fmt.Sprintf("| %s | %s | %s | `%s` |\n", escapeCell(a.Artist), escapeCell(a.Title), a.Year, a.ID))
	}
	return buf.Bytes()
}

// SongsToMarkdown renders a numbered track list with the cover of the first song that has one.
func SongsToMarkdown(title string, songs []models.Song) []byte {
	var buf bytes.Buffer

	if title == "" {
		title = "Songs"
	}
	buf.WriteString(fmt.Sprintf("# %s\n\n", title))

	for _, s := range songs {
		if s.CoverArt != "" {
			buf.WriteString(fmt.Sprintf("![Cover](%s)\n\n", s.CoverArt))
			break
		}
	}

	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n\n", len(songs)))
	if len(songs) == 0 {
		return buf.Bytes()
	}

	buf.WriteString("## Tracks\n\n")
	for i, s := range songs {
		albumPart := ""
		if s.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", s.Album)
		}
		line := fmt.Sprintf("%d. %s - %s%s [%s]", i+1, s.Artist, s.Title, albumPart, FormatDuration(s.Duration))
		if s.URL != "" {
			line += fmt.Sprintf(" [listen](%s)", s.URL)
		}
		buf.WriteString(line + "\n")
	}
	return buf.Bytes()
}

// PlaylistsToMarkdown renders a table of playlists.
func PlaylistsToMarkdown(playlists []models.Playlist) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Playlists\n\n")
	buf.WriteString(fmt.Sprintf("**Playlists**: %d\n\n", len(playlists)))
	if len(playlists) == 0 {
		return buf.Bytes()
	}

	buf.WriteString("| Name | Songs | Type | Description |\n")
	buf.WriteString("| --- | --- | --- | --- |\n")
	for _, p := range playlists {
		buf.WriteString(fmt.Sprintf("| %s | %d | %s | %s |\n",
			escapeCell(p.Name), len(p.SongIDs), p.Type, escapeCell(p.Description)))
	}
	return buf.Bytes()
}

// AlbumsToText renders one album per line.
func AlbumsToText(albums []models.Album) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Albums: %d\n\n", len(albums)))
	for i, a := range albums {
		year := ""
		if a.Year != "" {
			year = fmt.Sprintf(" (%s)", a.Year)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s [%s]\n", i+1, a.Artist, a.Title, year, a.ID))
	}
	return buf.Bytes()
}

// SongsToText renders one song per line.
func SongsToText(title string, songs []models.Song) []byte {
	var buf bytes.Buffer

	if title != "" {
		buf.WriteString(fmt.Sprintf("%s\n", title))
	}
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(songs)))
	for i, s := range songs {
		buf.WriteString(fmt.Sprintf("%d. %s - %s [%s]\n", i+1, s.Artist, s.Title, s.ID))
	}
	return buf.Bytes()
}

// PlaylistsToText renders one playlist per line.
func PlaylistsToText(playlists []models.Playlist) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlists: %d\n\n", len(playlists)))
	for i, p := range playlists {
		marker := ""
		if p.IsSystem() {
			marker = " *"
		}
		buf.WriteString(fmt.Sprintf("%d. %s%s (%d songs) [%s]\n", i+1, p.Name, marker, len(p.SongIDs), p.ID))
	}
	return buf.Bytes()
}
