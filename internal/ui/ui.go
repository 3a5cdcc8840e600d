package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/vibesync/internal/events"
	"github.com/desertthunder/vibesync/internal/models"
	"github.com/desertthunder/vibesync/internal/repositories"
	"github.com/desertthunder/vibesync/internal/shared"
	"github.com/desertthunder/vibesync/internal/tasks"
	"github.com/dustin/go-humanize"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	AlbumListView ViewState = iota
	SongListView
	SyncView
	ResultView
)

// Syncer runs a sync cycle on demand and reports when the last one succeeded.
type Syncer interface {
	PerformSync(ctx context.Context, progress chan<- tasks.ProgressUpdate) (models.SyncResult, error)
	LastSync(ctx context.Context) (time.Time, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	store        *repositories.Store
	syncer       Syncer
	width        int
	height       int
	albumList    list.Model
	songList     list.Model
	album        *models.Album
	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	result       *models.SyncResult
	lastSync     time.Time
	status       string
	err          error
	spinner      spinner.Model
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, store *repositories.Store, syncer Syncer) *Model {
	albums := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	albums.Title = "Albums"
	albums.SetShowHelp(false)

	songs := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	songs.SetShowHelp(false)

	return &Model{
		ctx:       ctx,
		view:      AlbumListView,
		store:     store,
		syncer:    syncer,
		albumList: albums,
		songList:  songs,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.ok)),
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Init loads the album list and the last sync time.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadAlbums(), m.loadLastSync())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.albumList.SetSize(msg.Width-4, msg.Height-8)
		m.songList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case AlbumListView:
			return m.handleAlbumListKeys(msg)
		case SongListView:
			return m.handleSongListKeys(msg)
		case SyncView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != SyncView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgAlbumsLoaded:
		data := msg.data.(albumsLoaded)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.err = nil
		return m, m.albumList.SetItems(albumItems(data.albums))

	case MsgSongsLoaded:
		data := msg.data.(songsLoaded)
		if data.err != nil {
			m.status = styles.err.Render(data.err.Error())
			m.view = AlbumListView
			return m, nil
		}
		m.album = &data.album
		m.songList.Title = fmt.Sprintf("%s - %s", data.album.Artist, data.album.Title)
		m.view = SongListView
		return m, m.songList.SetItems(songItems(data.songs, data.liked))

	case MsgLastSyncLoaded:
		m.lastSync = msg.data.(time.Time)
		return m, nil

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, waitForProgress(m.progressChan)

	case MsgSyncComplete:
		data := msg.data.(syncComplete)
		m.progressChan = nil
		m.view = ResultView
		m.err = data.err
		m.result = nil
		if data.err == nil {
			m.result = &data.result
		}
		return m, tea.Batch(m.loadAlbums(), m.loadLastSync())

	case MsgSyncEvent:
		return m, m.handleEvent(msg.data.(events.Event))

	case MsgActionDone:
		data := msg.data.(actionDone)
		if data.err != nil {
			m.status = styles.err.Render(data.err.Error())
			return m, nil
		}
		m.status = data.status
		return m, m.reloadSongs()
	}
	return m, nil
}

// handleEvent updates the status line from background sync activity.
func (m *Model) handleEvent(e events.Event) tea.Cmd {
	switch e.Type {
	case events.SyncStarted:
		m.status = "Sync scheduled..."
	case events.SyncCompleted:
		if e.Result != nil {
			m.status = styles.ok.Render(fmt.Sprintf("Synced %d albums, %d songs", e.Result.Albums, e.Result.Songs))
		}
		return m.loadLastSync()
	case events.SyncError:
		m.status = styles.warn.Render("Sync failed: " + e.Message)
	case events.StorageUpdated:
		if e.Origin == events.OriginSync {
			return tea.Batch(m.loadAlbums(), m.reloadSongs())
		}
	}
	return nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	var body string
	switch m.view {
	case AlbumListView:
		body = m.renderAlbumList()
	case SongListView:
		body = m.renderSongList()
	case SyncView:
		body = m.renderSync()
	case ResultView:
		body = m.renderResult()
	}
	return fmt.Sprintf("%s\n%s", body, m.renderStatus())
}

func (m *Model) filtering(l list.Model) bool {
	return l.FilterState() == list.Filtering
}

func (m *Model) handleAlbumListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !m.filtering(m.albumList) {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.sync):
			return m, m.startSync()
		case key.Matches(msg, m.keys.enter):
			if item, ok := m.albumList.SelectedItem().(albumItem); ok {
				return m, m.loadSongs(item.album)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.albumList, cmd = m.albumList.Update(msg)
	return m, cmd
}

func (m *Model) handleSongListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !m.filtering(m.songList) {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.back):
			m.view = AlbumListView
			m.album = nil
			return m, nil
		case key.Matches(msg, m.keys.sync):
			return m, m.startSync()
		case key.Matches(msg, m.keys.like):
			if item, ok := m.songList.SelectedItem().(songItem); ok {
				return m, m.toggleLike(item.song)
			}
			return m, nil
		case key.Matches(msg, m.keys.play):
			if item, ok := m.songList.SelectedItem().(songItem); ok {
				return m, m.recordPlay(item.song)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.songList, cmd = m.songList.Update(msg)
	return m, cmd
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.sync):
		return m, m.startSync()
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.enter):
		m.view = AlbumListView
		m.album = nil
		m.result = nil
		m.err = nil
		return m, nil
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case AlbumListView:
		m.albumList, cmd = m.albumList.Update(msg)
	case SongListView:
		m.songList, cmd = m.songList.Update(msg)
	}
	return m, cmd
}

func (m *Model) loadAlbums() tea.Cmd {
	return func() tea.Msg {
		albums, err := m.store.Albums.GetAll(m.ctx)
		return albumsLoadedMsg(albums, err)
	}
}

func (m *Model) loadSongs(album models.Album) tea.Cmd {
	return func() tea.Msg {
		songs, err := m.store.Songs.ListByAlbum(m.ctx, album.ID)
		if err != nil {
			return songsLoadedMsg(album, nil, models.Playlist{}, err)
		}
		liked, err := m.store.Playlists.Get(m.ctx, models.LikedMusicID)
		if errors.Is(err, shared.ErrNotFound) {
			err = nil
		}
		return songsLoadedMsg(album, songs, liked, err)
	}
}

// reloadSongs refreshes the open album, if any.
func (m *Model) reloadSongs() tea.Cmd {
	if m.view != SongListView || m.album == nil {
		return nil
	}
	return m.loadSongs(*m.album)
}

func (m *Model) loadLastSync() tea.Cmd {
	return func() tea.Msg {
		t, err := m.syncer.LastSync(m.ctx)
		if err != nil {
			return nil
		}
		return lastSyncLoadedMsg(t)
	}
}

func (m *Model) toggleLike(song models.Song) tea.Cmd {
	return func() tea.Msg {
		liked, err := m.store.Playlists.ToggleLike(m.ctx, song.ID)
		if err != nil {
			return actionDoneMsg("", err)
		}
		if liked {
			return actionDoneMsg(fmt.Sprintf("Liked %q", song.Title), nil)
		}
		return actionDoneMsg(fmt.Sprintf("Unliked %q", song.Title), nil)
	}
}

func (m *Model) recordPlay(song models.Song) tea.Cmd {
	return func() tea.Msg {
		stats, err := m.store.RecordPlay(m.ctx, song.ID)
		if err != nil {
			return actionDoneMsg("", err)
		}
		return actionDoneMsg(fmt.Sprintf("Played %q (%d total plays)", song.Title, stats.TotalPlays), nil)
	}
}

func (m *Model) startSync() tea.Cmd {
	if m.progressChan != nil {
		return nil
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	m.progressChan = progress
	m.progress = tasks.ProgressUpdate{Message: "Starting sync..."}
	m.view = SyncView

	run := func() tea.Msg {
		result, err := m.syncer.PerformSync(m.ctx, progress)
		close(progress)
		return syncCompleteMsg(result, err)
	}
	return tea.Batch(run, waitForProgress(progress), m.spinner.Tick)
}

// waitForProgress reads the next update from ch; a closed channel yields no message.
func waitForProgress(ch chan tasks.ProgressUpdate) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		update, ok := <-ch
		if !ok {
			return nil
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderAlbumList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.sync, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.albumList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderSongList() string {
	helpKeys := []key.Binding{m.keys.like, m.keys.play, m.keys.back, m.keys.sync, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.songList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderSync() string {
	title := styles.title.Render("Syncing Library")

	step := ""
	if m.progress.Total > 0 {
		step = fmt.Sprintf(" (%d/%d)", m.progress.Step, m.progress.Total)
	}
	return fmt.Sprintf("%s\n\n%s %s%s\n", title, m.spinner.View(), m.progress.Message, step)
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.sync, m.keys.quit})

	if m.err != nil {
		msg := fmt.Sprintf("Sync failed: %v", m.err)
		if errors.Is(m.err, shared.ErrNotAuthenticated) {
			msg += "\n\nRun `vibe auth login` first."
		}
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(msg), helpView)
	}
	if m.result == nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render("No result available"), helpView)
	}

	title := styles.ok.Render("✓ Sync Complete!")
	info := fmt.Sprintf(
		"\nAlbums: %d\nSongs: %d\nPlaylists: %d",
		m.result.Albums, m.result.Songs, m.result.Playlists,
	)
	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}

func (m *Model) renderStatus() string {
	last := "Never synced"
	if !m.lastSync.IsZero() {
		last = "Last synced " + humanize.Time(m.lastSync)
	}
	if m.status != "" {
		last = fmt.Sprintf("%s • %s", last, m.status)
	}
	return styles.status.Render(last)
}
