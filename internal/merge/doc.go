// Package merge reconciles a local library with a remote copy.
//
// Three pure functions cover the three kinds of data:
//
//   - [Entities] : last-writer-wins on UpdatedAt for albums, songs and playlists, with tombstone filtering
//   - [Tombstones] : union of two deletion ledgers, newest record per id, expired after [RetentionWindow]
//   - [Stats] : max/union merge of listening counters, safe to repeat
//
// Ties are resolved explicitly: on equal UpdatedAt the local entity wins, and an entity
// survives a tombstone with the same timestamp. Outputs are sorted by id so repeated
// merges of the same inputs produce identical results.
package merge
