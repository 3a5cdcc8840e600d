package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/vibesync/internal/events"
	"github.com/desertthunder/vibesync/internal/models"
	"github.com/desertthunder/vibesync/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgAlbumsLoaded MsgKind = iota
	MsgSongsLoaded
	MsgLastSyncLoaded
	MsgProgressUpdate
	MsgSyncComplete
	MsgSyncEvent
	MsgActionDone
)

type albumsLoaded struct {
	albums []models.Album
	err    error
}

type songsLoaded struct {
	album models.Album
	songs []models.Song
	liked models.Playlist
	err   error
}

type syncComplete struct {
	result models.SyncResult
	err    error
}

type actionDone struct {
	status string
	err    error
}

// albumsLoadedMsg is the constructor for [MsgAlbumsLoaded]
func albumsLoadedMsg(albums []models.Album, err error) Msg {
	return Msg{kind: MsgAlbumsLoaded, data: albumsLoaded{albums, err}}
}

// songsLoadedMsg is the constructor for [MsgSongsLoaded]
func songsLoadedMsg(album models.Album, songs []models.Song, liked models.Playlist, err error) Msg {
	return Msg{kind: MsgSongsLoaded, data: songsLoaded{album, songs, liked, err}}
}

// lastSyncLoadedMsg is the constructor for [MsgLastSyncLoaded]
func lastSyncLoadedMsg(t time.Time) Msg {
	return Msg{kind: MsgLastSyncLoaded, data: t}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// syncCompleteMsg is the constructor for [MsgSyncComplete]
func syncCompleteMsg(result models.SyncResult, err error) Msg {
	return Msg{kind: MsgSyncComplete, data: syncComplete{result, err}}
}

// syncEventMsg is the constructor for [MsgSyncEvent]
func syncEventMsg(e events.Event) Msg {
	return Msg{kind: MsgSyncEvent, data: e}
}

// actionDoneMsg is the constructor for [MsgActionDone]
func actionDoneMsg(status string, err error) Msg {
	return Msg{kind: MsgActionDone, data: actionDone{status, err}}
}

// Forward returns an [events.Handler] that delivers bus events to a running program, e.g. [tea.Program.Send].
func Forward(send func(tea.Msg)) events.Handler {
	return func(e events.Event) {
		send(syncEventMsg(e))
	}
}
