// Package tasks runs library synchronisation with real-time progress reporting.
//
// # Sync Cycle
//
// [SyncEngine.PerformSync] executes one read-merge-write-upload cycle:
//
//  1. Require a signed-in session
//  2. Fetch the remote snapshot (a new account yields an empty snapshot)
//  3. Read albums, songs, playlists, tombstones, settings and stats
//  4. Merge the tombstone ledgers, then each entity kind, then the stats
//  5. Apply merged deletes and saves in silent mode, persist stats and the ledger
//  6. Publish one storage update, upload the payload, record lastSyncDate
//
// Concurrent callers share the in-flight cycle instead of starting a second one.
//
// # Scheduling
//
// [Scheduler] owns a debounce timer and a periodic ticker. Local storage updates
// request a debounced sync; the batch update published after a sync carries the sync
// origin and is ignored, so a sync never schedules another.
//
// # Progress Reporting
//
// Operations accept an optional channel of [ProgressUpdate]. Sends use select with
// default so reporting never blocks the cycle.
package tasks
