// Package models defines the library records exchanged between the local store and the sync endpoint.
//
// The package contains three groups of types:
//
// 1. Library entities, reconciled by last-writer-wins on UpdatedAt:
//   - [Album] : an album with cover art and MusicBrainz identifiers
//   - [Song] : a track belonging to an album, optionally playable via URL
//   - [Playlist] : an ordered list of song ids (manual or system)
//
// 2. Sync bookkeeping:
//   - [Tombstone] : a deletion record propagated to other devices
//   - [Stats] : the listening statistics blob, merged by max/union instead of replacement
//   - [SyncPayload] and [RemoteSnapshot] : the POST and GET bodies of the /sync endpoint
//
// 3. Account types: [User], [Session] and [SyncVersion].
//
// All timestamps are int64 milliseconds since the Unix epoch so they round-trip through the wire format unchanged.
package models
