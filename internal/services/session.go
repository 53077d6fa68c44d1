package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/shared"
)

// Time ranges accepted by the Spotify top-item endpoints.
const (
	TimeRangeShort  = "short_term"
	TimeRangeMedium = "medium_term"
	TimeRangeLong   = "long_term"
)

// DefaultMaxConcurrency bounds simultaneous per-playlist fetches.
const DefaultMaxConcurrency = 20

// playlistTrackFields projects playlist items down to the fields the track
// mapper consumes.
const playlistTrackFields = "total,limit,offset,items(item(id,name,popularity,artists(id,name)))"

// ValidTimeRange reports whether s is an accepted top-item time range.
func ValidTimeRange(s string) bool {
	switch s {
	case TimeRangeShort, TimeRangeMedium, TimeRangeLong:
		return true
	}
	return false
}

// UserTokenStore persists refreshed Spotify credentials for a user.
type UserTokenStore interface {
	UpdateSpotifyAccount(ctx context.Context, userID string, ts models.TokenState) error
}

// SpotifySessionFactory builds per-user sessions, rejecting users without a
// linked Spotify account.
type SpotifySessionFactory struct {
	users          UserTokenStore
	client         *SpotifyClient
	maxConcurrency int
	logger         *log.Logger
}

// NewSpotifySessionFactory creates a session factory. A non-positive
// maxConcurrency falls back to [DefaultMaxConcurrency].
func NewSpotifySessionFactory(users UserTokenStore, client *SpotifyClient, maxConcurrency int, logger *log.Logger) *SpotifySessionFactory {
	if maxConcurrency < 1 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &SpotifySessionFactory{
		users:          users,
		client:         client,
		maxConcurrency: maxConcurrency,
		logger:         logger,
	}
}

// Create returns a session bound to the given user, or
// [shared.ErrSpotifyAccountNotFound] when no account is linked.
func (f *SpotifySessionFactory) Create(user *models.User) (*SpotifyUserSession, error) {
	if !user.HasSpotifyAccount() {
		return nil, fmt.Errorf("%w: user %s", shared.ErrSpotifyAccountNotFound, user.Email)
	}

	return &SpotifyUserSession{
		user:           user,
		users:          f.users,
		client:         f.client,
		maxConcurrency: f.maxConcurrency,
		logger:         f.logger,
	}, nil
}

// SpotifyUserSession binds one user's Spotify credentials to the client for
// the duration of a sync run.
//
// The session refreshes the stored token at most once per lifetime, no matter
// how many fetch operations run or how concurrently they run. Refreshed
// credentials are persisted only when the access token value changed.
type SpotifyUserSession struct {
	user           *models.User
	users          UserTokenStore
	client         *SpotifyClient
	maxConcurrency int
	logger         *log.Logger

	mu        sync.Mutex
	refreshed atomic.Bool
}

// refreshToken performs the once-per-session proactive refresh. Concurrent
// callers block until the first refresh completes; a failed refresh leaves
// the flag unset so a later call may retry.
func (s *SpotifyUserSession) refreshToken(ctx context.Context) error {
	if s.refreshed.Load() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refreshed.Load() {
		return nil
	}

	account := s.user.SpotifyAccount
	ts, err := s.client.RefreshAccessToken(ctx, account.TokenRefresh)
	if err != nil {
		return err
	}

	if ts.AccessToken != account.TokenAccess {
		if err := s.users.UpdateSpotifyAccount(ctx, s.user.ID, ts); err != nil {
			return fmt.Errorf("failed to persist refreshed token: %w", err)
		}
		account.ApplyTokenState(ts)
		s.logger.Debug("persisted refreshed spotify token", "user", s.user.ID)
	}

	s.refreshed.Store(true)
	return nil
}

// executeRequest runs one GET against the user API, refreshing the session
// token first and persisting any token the client renewed mid-call.
func (s *SpotifyUserSession) executeRequest(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	if err := s.refreshToken(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	token := s.user.SpotifyAccount.TokenState()
	s.mu.Unlock()

	data, newToken, err := s.client.MakeUserAPICall(ctx, http.MethodGet, endpoint, token, params, nil)
	if err != nil {
		return nil, err
	}

	if newToken.AccessToken != token.AccessToken {
		s.mu.Lock()
		defer s.mu.Unlock()
		if newToken.AccessToken != s.user.SpotifyAccount.TokenAccess {
			if err := s.users.UpdateSpotifyAccount(ctx, s.user.ID, newToken); err != nil {
				return nil, fmt.Errorf("failed to persist refreshed token: %w", err)
			}
			s.user.SpotifyAccount.ApplyTokenState(newToken)
		}
	}

	return data, nil
}

// fetchPages walks a paginated collection endpoint, mapping each page's items
// through extract. It stops once every reported item has been collected or a
// short page signals the end of the collection.
func fetchPages[T pageItem, M any](
	ctx context.Context,
	s *SpotifyUserSession,
	endpoint string,
	params url.Values,
	limit int,
	extract func(p page[T]) []M,
) ([]M, error) {
	var collected []M
	offset := 0

	for {
		query := url.Values{}
		for key, values := range params {
			query[key] = values
		}
		query.Set("limit", strconv.Itoa(limit))
		query.Set("offset", strconv.Itoa(offset))

		data, err := s.executeRequest(ctx, endpoint, query)
		if err != nil {
			return nil, err
		}

		p, err := decodePage[T](endpoint, offset, data)
		if err != nil {
			return nil, err
		}

		collected = append(collected, extract(p)...)
		s.logger.Debug("fetched page", "endpoint", endpoint, "offset", offset, "items", len(p.Items), "total", p.Total)

		if len(collected) >= p.Total || len(p.Items) < limit {
			return collected, nil
		}
		offset += limit
	}
}

// TopArtists fetches the user's top artists for the given time range, ranked
// by listening position.
func (s *SpotifyUserSession) TopArtists(ctx context.Context, limit int, timeRange string) ([]models.Artist, error) {
	if !ValidTimeRange(timeRange) {
		return nil, fmt.Errorf("%w: invalid time range %q", shared.ErrInvalidInput, timeRange)
	}

	params := url.Values{"time_range": {timeRange}}
	return fetchPages(ctx, s, "/me/top/artists", params, limit, func(p page[spotifyArtist]) []models.Artist {
		artists := make([]models.Artist, 0, len(p.Items))
		for i, item := range p.Items {
			artists = append(artists, models.Artist{
				ProviderID:  item.ID,
				UserID:      s.user.ID,
				Name:        item.Name,
				Popularity:  item.Popularity,
				Genres:      item.Genres,
				IsTop:       true,
				TopPosition: p.Offset + i + 1,
			})
		}
		return artists
	})
}

// TopTracks fetches the user's top tracks for the given time range, ranked
// by listening position.
func (s *SpotifyUserSession) TopTracks(ctx context.Context, limit int, timeRange string) ([]models.Track, error) {
	if !ValidTimeRange(timeRange) {
		return nil, fmt.Errorf("%w: invalid time range %q", shared.ErrInvalidInput, timeRange)
	}

	params := url.Values{"time_range": {timeRange}}
	return fetchPages(ctx, s, "/me/top/tracks", params, limit, func(p page[spotifyTrack]) []models.Track {
		tracks := make([]models.Track, 0, len(p.Items))
		for i, item := range p.Items {
			track := s.mapTrack(item)
			track.IsTop = true
			track.TopPosition = p.Offset + i + 1
			tracks = append(tracks, track)
		}
		return tracks
	})
}

// SavedTracks fetches the user's saved (liked) tracks.
func (s *SpotifyUserSession) SavedTracks(ctx context.Context, limit int) ([]models.Track, error) {
	return fetchPages(ctx, s, "/me/tracks", nil, limit, func(p page[savedTrackItem]) []models.Track {
		tracks := make([]models.Track, 0, len(p.Items))
		for _, item := range p.Items {
			track := s.mapTrack(item.Track)
			track.IsSaved = true
			tracks = append(tracks, track)
		}
		return tracks
	})
}

// PlaylistTracks fetches the tracks of every playlist in the user's library,
// deduplicated by provider id.
//
// Playlists are listed first, then fetched concurrently under the session's
// concurrency bound. A playlist whose pages fail validation is skipped with a
// logged error and contributes nothing; any other failure aborts the whole
// operation.
func (s *SpotifyUserSession) PlaylistTracks(ctx context.Context, limit int) ([]models.Track, error) {
	playlists, err := fetchPages(ctx, s, "/me/playlists", nil, limit, func(p page[spotifyPlaylist]) []spotifyPlaylist {
		return p.Items
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("fetching playlist tracks", "playlists", len(playlists), "concurrency", s.maxConcurrency)

	semaphore := make(chan struct{}, s.maxConcurrency)
	results := make([][]models.Track, len(playlists))
	failures := make([]error, len(playlists))

	var wg sync.WaitGroup
	for i, playlist := range playlists {
		wg.Add(1)
		go func(i int, playlist spotifyPlaylist) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			results[i], failures[i] = s.playlistTracks(ctx, playlist, limit)
		}(i, playlist)
	}
	wg.Wait()

	byID := make(map[string]models.Track)
	for i := range playlists {
		if failures[i] != nil {
			return nil, failures[i]
		}
		for _, track := range results[i] {
			byID[track.ProviderID] = track
		}
	}

	tracks := make([]models.Track, 0, len(byID))
	for _, track := range byID {
		tracks = append(tracks, track)
	}
	return tracks, nil
}

// playlistTracks fetches one playlist's tracks. Validation failures degrade to
// an empty result so a single malformed playlist cannot abort the whole fetch.
func (s *SpotifyUserSession) playlistTracks(ctx context.Context, playlist spotifyPlaylist, limit int) ([]models.Track, error) {
	params := url.Values{
		"fields":           {playlistTrackFields},
		"additional_types": {"track"},
	}

	endpoint := "/playlists/" + playlist.ID + "/items"
	tracks, err := fetchPages(ctx, s, endpoint, params, limit, func(p page[playlistTrackItem]) []models.Track {
		mapped := make([]models.Track, 0, len(p.Items))
		for _, item := range p.Items {
			if item.Item == nil {
				continue
			}
			mapped = append(mapped, s.mapTrack(*item.Item))
		}
		return mapped
	})
	if err != nil {
		var validationErr *PageValidationError
		if errors.As(err, &validationErr) {
			s.logger.Error("skipping playlist with invalid data", "playlist", strings.TrimSpace(playlist.Name), "error", err)
			return nil, nil
		}
		return nil, err
	}
	return tracks, nil
}

// mapTrack converts a raw track payload into the persistence model. Flags
// (top, saved) are the caller's to set.
func (s *SpotifyUserSession) mapTrack(item spotifyTrack) models.Track {
	artists := make([]models.TrackArtist, 0, len(item.Artists))
	for _, artist := range item.Artists {
		artists = append(artists, models.TrackArtist{ProviderID: artist.ID, Name: artist.Name})
	}

	return models.Track{
		ProviderID: item.ID,
		UserID:     s.user.ID,
		Name:       item.Name,
		Popularity: item.Popularity,
		Artists:    artists,
	}
}
