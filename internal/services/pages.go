package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/desertthunder/spotsync/internal/shared"
)

// pageItem is implemented by every decoded Spotify collection entry so the
// fetch engine can reject malformed pages before they reach the mappers.
type pageItem interface {
	validate() error
}

// page is the Spotify pagination envelope shared by every collection endpoint.
type page[T pageItem] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func (p page[T]) validate() error {
	if p.Items == nil {
		return fmt.Errorf("missing items field")
	}
	if p.Limit < 1 {
		return fmt.Errorf("invalid limit %d", p.Limit)
	}
	if p.Total < 0 {
		return fmt.Errorf("invalid total %d", p.Total)
	}
	if p.Offset < 0 {
		return fmt.Errorf("invalid offset %d", p.Offset)
	}
	for i, item := range p.Items {
		if err := item.validate(); err != nil {
			return fmt.Errorf("item %d: %w", p.Offset+i, err)
		}
	}
	return nil
}

// decodePage unmarshals and validates one page of a collection endpoint.
// Any failure is reported as a [PageValidationError] so callers can decide
// whether the collection is skippable.
func decodePage[T pageItem](endpoint string, offset int, data []byte) (page[T], error) {
	var p page[T]
	if err := json.Unmarshal(data, &p); err != nil {
		return page[T]{}, &PageValidationError{Endpoint: endpoint, Offset: offset, Err: err}
	}
	if err := p.validate(); err != nil {
		return page[T]{}, &PageValidationError{Endpoint: endpoint, Offset: offset, Err: err}
	}
	return p, nil
}

// PageValidationError reports a structurally invalid page from a collection
// endpoint. It matches [shared.ErrPageValidation] under [errors.Is].
type PageValidationError struct {
	Endpoint string
	Offset   int
	Err      error
}

func (e *PageValidationError) Error() string {
	return fmt.Sprintf("invalid page from %s at offset %d: %v", e.Endpoint, e.Offset, e.Err)
}

func (e *PageValidationError) Unwrap() error { return e.Err }

func (e *PageValidationError) Is(target error) bool {
	return target == shared.ErrPageValidation
}

// spotifyTrackArtist is an artist reference embedded in a track payload.
type spotifyTrackArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (a spotifyTrackArtist) validate() error {
	if a.ID == "" {
		return fmt.Errorf("track artist is missing an id")
	}
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("track artist %s is missing a name", a.ID)
	}
	return nil
}

// spotifyArtist is a full artist object from /me/top/artists.
type spotifyArtist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Popularity int      `json:"popularity"`
	Genres     []string `json:"genres"`
}

func (a spotifyArtist) validate() error {
	if a.ID == "" {
		return fmt.Errorf("artist is missing an id")
	}
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("artist %s is missing a name", a.ID)
	}
	return nil
}

// spotifyTrack is a track object from the top-tracks, saved-tracks and
// playlist-items endpoints.
type spotifyTrack struct {
	ID         string               `json:"id"`
	Name       string               `json:"name"`
	Popularity int                  `json:"popularity"`
	Artists    []spotifyTrackArtist `json:"artists"`
}

func (t spotifyTrack) validate() error {
	if t.ID == "" {
		return fmt.Errorf("track is missing an id")
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("track %s is missing a name", t.ID)
	}
	for _, artist := range t.Artists {
		if err := artist.validate(); err != nil {
			return fmt.Errorf("track %s: %w", t.ID, err)
		}
	}
	return nil
}

// savedTrackItem wraps a track in the /me/tracks envelope.
type savedTrackItem struct {
	AddedAt string       `json:"added_at"`
	Track   spotifyTrack `json:"track"`
}

func (s savedTrackItem) validate() error {
	return s.Track.validate()
}

// playlistTrackItem wraps a track in the /playlists/{id}/items envelope.
// Item is nil for entries that are not tracks (episodes, removed content);
// those are tolerated here and skipped by the extractor.
type playlistTrackItem struct {
	Item *spotifyTrack `json:"item"`
}

func (p playlistTrackItem) validate() error {
	if p.Item == nil {
		return nil
	}
	return p.Item.validate()
}

// spotifyPlaylist is a playlist summary from /me/playlists.
type spotifyPlaylist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (p spotifyPlaylist) validate() error {
	if p.ID == "" {
		return fmt.Errorf("playlist is missing an id")
	}
	return nil
}
