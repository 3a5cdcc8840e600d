package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestTimestamps(t *testing.T) {
	t.Run("Stamp keeps existing values", func(t *testing.T) {
		ts := Timestamps{CreatedAt: 10, UpdatedAt: 20}
		ts.Stamp(99)
		if ts.CreatedAt != 10 || ts.UpdatedAt != 20 {
			t.Errorf("Stamp() changed non-zero timestamps: %+v", ts)
		}
	})

	t.Run("Stamp fills zero values", func(t *testing.T) {
		var ts Timestamps
		ts.Stamp(99)
		if ts.CreatedAt != 99 || ts.UpdatedAt != 99 {
			t.Errorf("Stamp() = %+v, want both 99", ts)
		}
	})

	t.Run("Touch never moves backwards", func(t *testing.T) {
		ts := Timestamps{CreatedAt: 10, UpdatedAt: 500}
		ts.Touch(400)
		if ts.UpdatedAt != 501 {
			t.Errorf("Touch() UpdatedAt = %d, want 501", ts.UpdatedAt)
		}
		ts.Touch(900)
		if ts.UpdatedAt != 900 {
			t.Errorf("Touch() UpdatedAt = %d, want 900", ts.UpdatedAt)
		}
		if ts.CreatedAt != 10 {
			t.Errorf("Touch() changed CreatedAt to %d", ts.CreatedAt)
		}
	})
}

func TestValidate(t *testing.T) {
	tc := []struct {
		name    string
		entity  Entity
		wantErr string
	}{
		{name: "valid album", entity: Album{ID: "a1", Title: "Blue", Artist: "Joni"}},
		{name: "album without id", entity: Album{Title: "Blue", Artist: "Joni"}, wantErr: "album missing id"},
		{name: "album without artist", entity: Album{ID: "a1", Title: "Blue"}, wantErr: "album a1 missing artist"},
		{name: "valid song", entity: Song{ID: "s1", AlbumID: "a1", Title: "River"}},
		{name: "song without album", entity: Song{ID: "s1", Title: "River"}, wantErr: "song s1 missing albumId"},
		{name: "valid playlist", entity: Playlist{ID: "p1", Name: "Mix", SongIDs: []string{}}},
		{name: "playlist without songIds", entity: Playlist{ID: "p1", Name: "Mix"}, wantErr: "playlist p1 missing songIds"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entity.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("Validate() = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestWireFormat(t *testing.T) {
	album := Album{ID: "a1", Title: "Blue", Artist: "Joni", MBReleaseID: "r1", Timestamps: Timestamps{CreatedAt: 1, UpdatedAt: 2}}
	data, err := json.Marshal(album)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	for _, key := range []string{`"mbReleaseId":"r1"`, `"createdAt":1`, `"updatedAt":2`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("expected %s in %s", key, data)
		}
	}

	var song Song
	if err := json.Unmarshal([]byte(`{"id":"s1","albumId":"a1","title":"River","hasUrl":true,"updatedAt":7}`), &song); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !song.HasURL || song.AlbumID != "a1" || song.LastModified() != 7 {
		t.Errorf("unexpected song %+v", song)
	}
}

func TestPlaylist(t *testing.T) {
	p := Playlist{ID: "p1", Name: "Mix", SongIDs: []string{"s1", "s2", "s1"}}

	if !p.Contains("s2") || p.Contains("s3") {
		t.Error("Contains() returned wrong membership")
	}

	ids, removed := p.Without("s1")
	if !removed || len(ids) != 1 || ids[0] != "s2" {
		t.Errorf("Without() = %v, %v", ids, removed)
	}

	if _, removed := p.Without("s9"); removed {
		t.Error("Without() should report nothing removed")
	}
}

func TestStats(t *testing.T) {
	day := time.Date(2024, 3, 10, 22, 0, 0, 0, time.UTC)
	song := Song{ID: "s1", Title: "River", Artist: "Joni", CoverArt: "c.jpg"}

	t.Run("RecordPlay", func(t *testing.T) {
		s := NewStats(day)
		s.RecordPlay(song, day)
		s.RecordPlay(song, day.Add(3*time.Hour))

		if s.TotalPlays != 2 {
			t.Errorf("TotalPlays = %d, want 2", s.TotalPlays)
		}
		if s.DailyPlays["2024-03-10"] != 1 || s.DailyPlays["2024-03-11"] != 1 {
			t.Errorf("unexpected DailyPlays %v", s.DailyPlays)
		}
		if got := s.SongPlays["s1"]; got.Count != 2 || got.CoverArt != "c.jpg" {
			t.Errorf("unexpected SongPlays entry %+v", got)
		}
		if s.LastPlayed == nil || s.LastPlayed.Timestamp != day.Add(3*time.Hour).UnixMilli() {
			t.Errorf("unexpected LastPlayed %+v", s.LastPlayed)
		}
	})

	t.Run("RecordPlay on zero value", func(t *testing.T) {
		var s Stats
		s.RecordPlay(song, day)
		if s.TotalPlays != 1 || s.SongPlays["s1"].Count != 1 {
			t.Errorf("zero-value stats not initialised: %+v", s)
		}
	})

	t.Run("RecordAlbumAdded", func(t *testing.T) {
		s := NewStats(day)
		s.RecordAlbumAdded(day, 4)
		if s.TotalAlbumsAdded != 1 || s.TotalSongsWithURLs != 4 || s.AlbumsAdded["2024-03-10"] != 1 {
			t.Errorf("unexpected stats %+v", s)
		}
	})

	t.Run("TopSongs", func(t *testing.T) {
		s := NewStats(day)
		s.SongPlays = map[string]SongPlay{
			"b": {Count: 3},
			"a": {Count: 3},
			"c": {Count: 9},
			"d": {Count: 1},
		}

		top := s.TopSongs(3)
		if len(top) != 3 {
			t.Fatalf("expected 3 songs, got %d", len(top))
		}
		want := []string{"c", "a", "b"}
		for i, id := range want {
			if top[i].SongID != id {
				t.Errorf("TopSongs()[%d] = %s, want %s", i, top[i].SongID, id)
			}
		}
	})

	t.Run("DailyPlayCounts", func(t *testing.T) {
		s := NewStats(day)
		s.DailyPlays["2024-03-09"] = 4
		s.DailyPlays["2024-03-10"] = 2

		counts := s.DailyPlayCounts(3, day)
		if len(counts) != 3 {
			t.Fatalf("expected 3 days, got %d", len(counts))
		}
		if counts[0].Date != "2024-03-08" || counts[0].Count != 0 {
			t.Errorf("unexpected first day %+v", counts[0])
		}
		if counts[2].Date != "2024-03-10" || counts[2].Count != 2 {
			t.Errorf("unexpected last day %+v", counts[2])
		}
	})

	t.Run("Clone", func(t *testing.T) {
		s := NewStats(day)
		s.RecordPlay(song, day)

		c := s.Clone()
		c.DailyPlays["2024-03-10"] = 50
		c.LastPlayed.SongID = "other"

		if s.DailyPlays["2024-03-10"] != 1 || s.LastPlayed.SongID != "s1" {
			t.Error("Clone() shares state with the original")
		}
		if (*Stats)(nil).Clone() != nil {
			t.Error("Clone() of nil should be nil")
		}
	})
}

func TestRemoteSnapshot(t *testing.T) {
	var snap RemoteSnapshot
	if err := json.Unmarshal([]byte(`{"message":"No sync data found"}`), &snap); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !snap.Empty() || snap.Message != NoSyncDataMessage {
		t.Errorf("expected empty snapshot, got %+v", snap)
	}

	full := SnapshotFromPayload(SyncPayload{Albums: []Album{{ID: "a1"}}, LastSynced: 5})
	if full.Empty() || full.LastSynced != 5 {
		t.Errorf("unexpected snapshot %+v", full)
	}
}
