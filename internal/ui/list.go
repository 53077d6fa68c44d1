package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/spotsync/internal/models"
)

var (
	_ list.Item = artistItem{}
	_ list.Item = trackItem{}
)

// artistItem wraps [models.Artist] to implement [list.Item].
type artistItem struct {
	artist models.Artist
}

func (i artistItem) FilterValue() string { return i.artist.Name }
func (i artistItem) Title() string {
	if i.artist.IsTop {
		return fmt.Sprintf("#%d %s", i.artist.TopPosition, i.artist.Name)
	}
	return i.artist.Name
}
func (i artistItem) Description() string {
	if len(i.artist.Genres) == 0 {
		return fmt.Sprintf("popularity %d", i.artist.Popularity)
	}
	return strings.Join(i.artist.Genres, ", ")
}

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track models.Track
}

func (i trackItem) FilterValue() string { return i.track.Name }
func (i trackItem) Title() string       { return i.track.Name }
func (i trackItem) Description() string {
	names := make([]string, 0, len(i.track.Artists))
	for _, artist := range i.track.Artists {
		names = append(names, artist.Name)
	}
	desc := strings.Join(names, ", ")

	var flags []string
	if i.track.IsTop {
		flags = append(flags, fmt.Sprintf("top #%d", i.track.TopPosition))
	}
	if i.track.IsSaved {
		flags = append(flags, "saved")
	}
	if len(flags) > 0 {
		desc = fmt.Sprintf("%s • %s", desc, strings.Join(flags, ", "))
	}
	return desc
}
