package models

import (
	"encoding/json"
)

// LastSyncDateKey is the settings key holding the last successful sync time.
const LastSyncDateKey = "lastSyncDate"

// SyncSuccessMessage is the only upload response treated as success.
const SyncSuccessMessage = "Sync successful"

// NoSyncDataMessage is returned by GET /sync for accounts that never uploaded.
const NoSyncDataMessage = "No sync data found"

// Settings is the raw settings map, keyed by setting name with JSON values.
type Settings map[string]json.RawMessage

// SyncPayload is the body of POST /sync.
type SyncPayload struct {
	Albums     []Album     `json:"albums"`
	Songs      []Song      `json:"songs"`
	Playlists  []Playlist  `json:"playlists"`
	Settings   Settings    `json:"settings"`
	Stats      *Stats      `json:"stats"`
	Tombstones []Tombstone `json:"tombstones"`
	LastSynced int64       `json:"lastSynced"`
}

// RemoteSnapshot is the body of GET /sync.
//
// New accounts get only a Message, which [RemoteSnapshot.Empty] reports.
type RemoteSnapshot struct {
	Albums     []Album     `json:"albums,omitempty"`
	Songs      []Song      `json:"songs,omitempty"`
	Playlists  []Playlist  `json:"playlists,omitempty"`
	Settings   Settings    `json:"settings,omitempty"`
	Stats      *Stats      `json:"stats,omitempty"`
	Tombstones []Tombstone `json:"tombstones,omitempty"`
	LastSynced int64       `json:"lastSynced,omitempty"`
	Message    string      `json:"message,omitempty"`
}

// Empty reports whether the snapshot carries no library data.
func (r *RemoteSnapshot) Empty() bool {
	if r == nil {
		return true
	}
	return len(r.Albums) == 0 && len(r.Songs) == 0 && len(r.Playlists) == 0 &&
		len(r.Tombstones) == 0 && r.Stats == nil
}

// SnapshotFromPayload converts an uploaded payload into what GET /sync returns.
func SnapshotFromPayload(p SyncPayload) RemoteSnapshot {
	return RemoteSnapshot{
		Albums:     p.Albums,
		Songs:      p.Songs,
		Playlists:  p.Playlists,
		Settings:   p.Settings,
		Stats:      p.Stats,
		Tombstones: p.Tombstones,
		LastSynced: p.LastSynced,
	}
}

// SyncResult summarises a completed sync.
type SyncResult struct {
	Albums    int   `json:"albums"`
	Songs     int   `json:"songs"`
	Playlists int   `json:"playlists"`
	Timestamp int64 `json:"timestamp"`
}

// MessageResponse is the generic {"message": ...} body used by the sync endpoint.
type MessageResponse struct {
	Message string `json:"message"`
}

// User is a sync account.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	CreatedAt int64  `json:"createdAt,omitempty"`
}

// Credentials is the login/register request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is an authenticated account, persisted between runs.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// AuthResponse is the login/register response body.
type AuthResponse struct {
	Token   string `json:"token,omitempty"`
	User    User   `json:"user"`
	Message string `json:"message,omitempty"`
}

// SyncVersion describes one stored upload in the account history.
type SyncVersion struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"createdAt"`
	Albums    int    `json:"albums"`
	Songs     int    `json:"songs"`
	Playlists int    `json:"playlists"`
	Size      int    `json:"size"`
}

// HistoryResponse is the body of GET /sync/history.
type HistoryResponse struct {
	Versions []SyncVersion `json:"versions"`
}
