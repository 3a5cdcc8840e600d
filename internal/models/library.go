package models

// Album is a catalogued album.
type Album struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Artist            string `json:"artist"`
	Year              string `json:"year,omitempty"`
	Type              string `json:"type,omitempty"`
	CoverArt          string `json:"coverArt,omitempty"`
	CoverArtThumbnail string `json:"coverArtThumbnail,omitempty"`
	MBID              string `json:"mbid,omitempty"`
	MBReleaseID       string `json:"mbReleaseId,omitempty"`
	Timestamps
}

func (a Album) EntityID() string { return a.ID }
func (a Album) EntityKind() Kind { return KindAlbum }

// Validate requires id, title and artist.
func (a Album) Validate() error {
	switch {
	case a.ID == "":
		return missingField(KindAlbum, a.ID, "id")
	case a.Title == "":
		return missingField(KindAlbum, a.ID, "title")
	case a.Artist == "":
		return missingField(KindAlbum, a.ID, "artist")
	}
	return nil
}

// Song is a track of an album. Duration is in seconds.
type Song struct {
	ID       string `json:"id"`
	AlbumID  string `json:"albumId"`
	Title    string `json:"title"`
	Artist   string `json:"artist,omitempty"`
	Album    string `json:"album,omitempty"`
	Position int    `json:"position,omitempty"`
	Duration int    `json:"duration,omitempty"`
	CoverArt string `json:"coverArt,omitempty"`
	URL      string `json:"url,omitempty"`
	HasURL   bool   `json:"hasUrl"`
	Timestamps
}

func (s Song) EntityID() string { return s.ID }
func (s Song) EntityKind() Kind { return KindSong }

// Validate requires id, title and albumId.
func (s Song) Validate() error {
	switch {
	case s.ID == "":
		return missingField(KindSong, s.ID, "id")
	case s.Title == "":
		return missingField(KindSong, s.ID, "title")
	case s.AlbumID == "":
		return missingField(KindSong, s.ID, "albumId")
	}
	return nil
}

// PlaylistType separates user playlists from ones the application maintains.
type PlaylistType string

const (
	PlaylistManual PlaylistType = "manual"
	PlaylistSystem PlaylistType = "system"
)

// LikedMusicID is the id of the system playlist holding liked songs.
const LikedMusicID = "liked-music"

// Playlist is an ordered list of song ids.
type Playlist struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Type        PlaylistType `json:"type,omitempty"`
	SongIDs     []string     `json:"songIds"`
	Timestamps
}

func (p Playlist) EntityID() string { return p.ID }
func (p Playlist) EntityKind() Kind { return KindPlaylist }

// Validate requires id, name and a songIds list.
func (p Playlist) Validate() error {
	switch {
	case p.ID == "":
		return missingField(KindPlaylist, p.ID, "id")
	case p.Name == "":
		return missingField(KindPlaylist, p.ID, "name")
	case p.SongIDs == nil:
		return missingField(KindPlaylist, p.ID, "songIds")
	}
	return nil
}

// IsSystem reports whether the playlist is maintained by the application.
func (p Playlist) IsSystem() bool {
	return p.Type == PlaylistSystem
}

// Contains reports whether songID is in the playlist.
func (p Playlist) Contains(songID string) bool {
	for _, id := range p.SongIDs {
		if id == songID {
			return true
		}
	}
	return false
}

// Without returns SongIDs minus songID and whether anything was removed.
func (p Playlist) Without(songID string) ([]string, bool) {
	out := make([]string, 0, len(p.SongIDs))
	for _, id := range p.SongIDs {
		if id != songID {
			out = append(out, id)
		}
	}
	return out, len(out) != len(p.SongIDs)
}

// Tombstone records that an entity was deleted at UpdatedAt.
type Tombstone struct {
	ID        string `json:"id"`
	Type      Kind   `json:"type"`
	UpdatedAt int64  `json:"updatedAt"`
}

// NewTombstone builds a deletion record for e.
func NewTombstone(e Entity, now int64) Tombstone {
	return Tombstone{ID: e.EntityID(), Type: e.EntityKind(), UpdatedAt: now}
}
