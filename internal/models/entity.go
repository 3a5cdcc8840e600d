package models

import (
	"fmt"
)

// Kind names an entity collection. It is also the tombstone type.
type Kind string

const (
	KindAlbum    Kind = "album"
	KindSong     Kind = "song"
	KindPlaylist Kind = "playlist"
)

// Kinds lists every entity kind in dependency order (albums before songs before playlists).
var Kinds = []Kind{KindAlbum, KindSong, KindPlaylist}

// Valid reports whether k is one of the known entity kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindAlbum, KindSong, KindPlaylist:
		return true
	default:
		return false
	}
}

func (k Kind) String() string { return string(k) }

// Entity is the shape the merge engine needs: a stable id and a last-modified stamp.
type Entity interface {
	EntityID() string    // EntityID returns the id shared across devices
	EntityKind() Kind    // EntityKind returns the collection the entity belongs to
	LastModified() int64 // LastModified returns UpdatedAt in epoch milliseconds
	Validate() error     // Validate checks required fields
}

// Timestamps holds the creation and modification times common to every entity.
type Timestamps struct {
	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`
}

// LastModified returns UpdatedAt.
func (t Timestamps) LastModified() int64 { return t.UpdatedAt }

// Stamp fills zero timestamps with now. Non-zero values are left untouched.
func (t *Timestamps) Stamp(now int64) {
	if t.CreatedAt == 0 {
		t.CreatedAt = now
	}
	if t.UpdatedAt == 0 {
		t.UpdatedAt = t.CreatedAt
	}
}

// Touch records a user-visible modification at now.
//
// UpdatedAt never moves backwards, so a skewed clock cannot make an edit lose to its own past.
func (t *Timestamps) Touch(now int64) {
	if t.CreatedAt == 0 {
		t.CreatedAt = now
	}
	if now <= t.UpdatedAt {
		now = t.UpdatedAt + 1
	}
	t.UpdatedAt = now
}

func missingField(kind Kind, id, field string) error {
	if id == "" {
		return fmt.Errorf("%s missing %s", kind, field)
	}
	return fmt.Errorf("%s %s missing %s", kind, id, field)
}
