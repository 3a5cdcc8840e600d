// Package ui implements an interactive library browser using bubbletea's Elm architecture.
//
// The TUI has four views:
//  1. [AlbumListView] : Browse albums in the local library
//  2. [SongListView] : Songs of the selected album; like them or count a play
//  3. [SyncView] : Progress of a manual sync with a spinner
//  4. [ResultView] : Outcome of the last manual sync
//
// A status line under every view shows when the library last synced and what the background scheduler is doing.
// Scheduler and storage events reach the model through [Forward], which turns bus events into messages.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, s, l, p, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
