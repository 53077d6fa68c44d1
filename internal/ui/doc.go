// Package ui implements an interactive terminal library browser using bubbletea's Elm architecture.
//
// The TUI shows the user's synced Spotify library in two switchable panes:
//  1. [ArtistListView] : Browse synced artists with genres and rank
//  2. [TrackListView] : Browse synced tracks with flags (top, saved)
//
// The [Model] implements bubbletea/Elm's standard Init/Update/View pattern;
// library data is loaded asynchronously from the repositories on startup and
// on refresh.
//
// Keyboard navigation uses vim-style bindings (j/k, tab, r, q) with contextual
// help displayed via charmbracelet/bubbles/help.
package ui
