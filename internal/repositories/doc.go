// Package repositories implements the local library store on SQLite.
//
// A [Store] groups one repository per collection:
//   - [AlbumRepository], [SongRepository], [PlaylistRepository] : library entities keyed by id
//   - [SettingsRepository] : JSON values by key, including the listening statistics blob
//   - [TombstoneRepository] : the deletion ledger exchanged during sync
//
// Every entity write takes a [WriteMode]. [Notify] is the user-visible path: it publishes a
// storage-updated event with local origin and, for deletes, records a tombstone and cascades
// (album to its songs, song out of every playlist). [Silent] is used by the sync engine when
// applying merged state: no event, no tombstone, no cascade, and timestamps are stored as given
// so applying the same state twice changes nothing.
package repositories
