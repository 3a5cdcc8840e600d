package models

import (
	"maps"
	"sort"
	"time"
)

// StatsSettingsKey is the settings key the statistics blob is stored under.
const StatsSettingsKey = "listening_stats"

// dayLayout formats dailyPlays keys (UTC calendar day).
const dayLayout = "2006-01-02"

// SongPlay is the per-song play counter with display metadata.
type SongPlay struct {
	Count    int    `json:"count"`
	Title    string `json:"title,omitempty"`
	Artist   string `json:"artist,omitempty"`
	CoverArt string `json:"coverArt,omitempty"`
}

// LastPlayed marks the most recent play.
type LastPlayed struct {
	SongID    string `json:"songId"`
	Title     string `json:"title,omitempty"`
	Artist    string `json:"artist,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Stats is the listening statistics blob. It has no id and is merged field by field.
type Stats struct {
	TotalPlays         int                 `json:"totalPlays"`
	TotalAlbumsAdded   int                 `json:"totalAlbumsAdded"`
	TotalSongsWithURLs int                 `json:"totalSongsWithUrls"`
	DailyPlays         map[string]int      `json:"dailyPlays"`
	AlbumsAdded        map[string]int      `json:"albumsAdded"`
	SongPlays          map[string]SongPlay `json:"songPlays"`
	LastPlayed         *LastPlayed         `json:"lastPlayed,omitempty"`
	CreatedAt          int64               `json:"createdAt,omitempty"`
}

// NewStats returns an empty blob created at now.
func NewStats(now time.Time) *Stats {
	return &Stats{
		DailyPlays:  map[string]int{},
		AlbumsAdded: map[string]int{},
		SongPlays:   map[string]SongPlay{},
		CreatedAt:   now.UnixMilli(),
	}
}

// DayKey returns the dailyPlays key for t.
func DayKey(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

func (s *Stats) ensureMaps() {
	if s.DailyPlays == nil {
		s.DailyPlays = map[string]int{}
	}
	if s.AlbumsAdded == nil {
		s.AlbumsAdded = map[string]int{}
	}
	if s.SongPlays == nil {
		s.SongPlays = map[string]SongPlay{}
	}
}

// RecordPlay counts one play of song at t.
func (s *Stats) RecordPlay(song Song, at time.Time) {
	s.ensureMaps()

	s.TotalPlays++
	s.DailyPlays[DayKey(at)]++

	play := s.SongPlays[song.ID]
	play.Count++
	play.Title = song.Title
	play.Artist = song.Artist
	if song.CoverArt != "" {
		play.CoverArt = song.CoverArt
	}
	s.SongPlays[song.ID] = play

	s.LastPlayed = &LastPlayed{
		SongID:    song.ID,
		Title:     song.Title,
		Artist:    song.Artist,
		Timestamp: at.UnixMilli(),
	}
}

// RecordAlbumAdded counts an album added at t and how many of its songs are playable.
func (s *Stats) RecordAlbumAdded(at time.Time, songsWithURLs int) {
	s.ensureMaps()
	s.TotalAlbumsAdded++
	s.AlbumsAdded[DayKey(at)]++
	s.TotalSongsWithURLs += songsWithURLs
}

// SongPlayCount pairs a song id with its counter.
type SongPlayCount struct {
	SongID string `json:"songId"`
	SongPlay
}

// TopSongs returns up to n songs ordered by play count, then by id.
func (s *Stats) TopSongs(n int) []SongPlayCount {
	out := make([]SongPlayCount, 0, len(s.SongPlays))
	for id, play := range s.SongPlays {
		out = append(out, SongPlayCount{SongID: id, SongPlay: play})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].SongID < out[j].SongID
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// DailyCount is the number of plays on a calendar day.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// DailyPlayCounts returns one entry per day for the last days days ending at now, oldest first.
func (s *Stats) DailyPlayCounts(days int, now time.Time) []DailyCount {
	out := make([]DailyCount, 0, days)
	for i := days - 1; i >= 0; i-- {
		key := DayKey(now.AddDate(0, 0, -i))
		out = append(out, DailyCount{Date: key, Count: s.DailyPlays[key]})
	}
	return out
}

// Clone returns a deep copy.
func (s *Stats) Clone() *Stats {
	if s == nil {
		return nil
	}
	c := *s
	c.DailyPlays = maps.Clone(s.DailyPlays)
	c.AlbumsAdded = maps.Clone(s.AlbumsAdded)
	c.SongPlays = maps.Clone(s.SongPlays)
	if s.LastPlayed != nil {
		lp := *s.LastPlayed
		c.LastPlayed = &lp
	}
	return &c
}
