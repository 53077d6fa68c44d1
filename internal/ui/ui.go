package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotsync/internal/models"
)

// ViewState represents the current pane in the TUI.
type ViewState int

const (
	ArtistListView ViewState = iota
	TrackListView
)

// Library supplies the synced entities the browser displays.
type Library interface {
	Artists(ctx context.Context) ([]models.Artist, error)
	Tracks(ctx context.Context) ([]models.Track, error)
}

type libraryLoadedMsg struct {
	artists []models.Artist
	tracks  []models.Track
	err     error
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	view    ViewState
	library Library

	width  int
	height int

	artistList list.Model
	trackList  list.Model
	loaded     bool
	err        error

	help help.Model
	keys keyMap
}

// NewModel creates a library browser over the given library source.
func NewModel(ctx context.Context, library Library) *Model {
	artistList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	artistList.Title = "Artists"
	artistList.SetShowHelp(false)

	trackList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	trackList.Title = "Tracks"
	trackList.SetShowHelp(false)

	return &Model{
		ctx:        ctx,
		view:       ArtistListView,
		library:    library,
		artistList: artistList,
		trackList:  trackList,
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

// Init starts loading the library.
func (m *Model) Init() tea.Cmd {
	return m.loadLibrary()
}

func (m *Model) loadLibrary() tea.Cmd {
	return func() tea.Msg {
		artists, err := m.library.Artists(m.ctx)
		if err != nil {
			return libraryLoadedMsg{err: err}
		}
		tracks, err := m.library.Tracks(m.ctx)
		if err != nil {
			return libraryLoadedMsg{err: err}
		}
		return libraryLoadedMsg{artists: artists, tracks: tracks}
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.artistList.SetSize(msg.Width-4, msg.Height-8)
		m.trackList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.tab):
			if m.view == ArtistListView {
				m.view = TrackListView
			} else {
				m.view = ArtistListView
			}
			return m, nil
		case key.Matches(msg, m.keys.refresh):
			m.loaded = false
			m.err = nil
			return m, m.loadLibrary()
		}

	case libraryLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		artistItems := make([]list.Item, 0, len(msg.artists))
		for _, artist := range msg.artists {
			artistItems = append(artistItems, artistItem{artist: artist})
		}
		trackItems := make([]list.Item, 0, len(msg.tracks))
		for _, track := range msg.tracks {
			trackItems = append(trackItems, trackItem{track: track})
		}

		m.artistList.SetItems(artistItems)
		m.trackList.SetItems(trackItems)
		m.loaded = true
		return m, nil
	}

	var cmd tea.Cmd
	switch m.view {
	case ArtistListView:
		m.artistList, cmd = m.artistList.Update(msg)
	case TrackListView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

// View renders the current pane.
func (m *Model) View() string {
	if m.err != nil {
		return fmt.Sprintf("%s\n\n%s\n",
			styles.err.Render(fmt.Sprintf("Error: %v", m.err)),
			styles.help.Render("press r to retry, q to quit"))
	}

	if !m.loaded {
		return styles.warn.Render("Loading library...") + "\n"
	}

	var pane string
	switch m.view {
	case ArtistListView:
		pane = m.artistList.View()
	case TrackListView:
		pane = m.trackList.View()
	}

	return fmt.Sprintf("%s\n%s\n", pane, m.help.View(m.keys))
}
