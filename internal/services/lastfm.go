// Last.fm similarity client.
//
// API documented at https://www.last.fm/api/show/track.getSimilar
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/desertthunder/spotsync/internal/shared"
	"golang.org/x/time/rate"
)

const lastfmBaseURL = "https://ws.audioscrobbler.com/2.0/"

// LastFMClient queries the Last.fm track similarity API. Calls are
// unauthenticated beyond the API key and are not retried.
type LastFMClient struct {
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter

	// baseURL is overridable in tests.
	baseURL string
}

// NewLastFMClient creates a Last.fm client from the given credentials.
func NewLastFMClient(creds shared.LastFMConfig) (*LastFMClient, error) {
	if creds.APIKey == "" {
		return nil, fmt.Errorf("%w: lastfm api_key must be set", shared.ErrMissingCredentials)
	}

	return &LastFMClient{
		apiKey:     creds.APIKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(5), 1),
		baseURL:    lastfmBaseURL,
	}, nil
}

// SimilarTrack is one similarity result, ordered by descending match score.
type SimilarTrack struct {
	Name   string
	Artist string
	MBID   string
	Match  float64
}

// SimilarTracks returns up to limit tracks similar to the given artist/track
// pair, sorted by match score descending.
func (c *LastFMClient) SimilarTracks(ctx context.Context, artist, track string, limit int) ([]SimilarTrack, error) {
	params := url.Values{
		"method":  {"track.getsimilar"},
		"artist":  {artist},
		"track":   {track},
		"api_key": {c.apiKey},
		"format":  {"json"},
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d from last.fm", shared.ErrAPIRequest, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var payload lastfmSimilarResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode last.fm response: %w", err)
	}

	results := make([]SimilarTrack, 0, len(payload.SimilarTracks.Track))
	for _, t := range payload.SimilarTracks.Track {
		results = append(results, SimilarTrack{
			Name:   t.Name,
			Artist: t.Artist.Name,
			MBID:   t.MBID,
			Match:  t.Match,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Match > results[j].Match
	})

	return results, nil
}

type lastfmSimilarResponse struct {
	SimilarTracks struct {
		Track lastfmTrackList `json:"track"`
	} `json:"similartracks"`
}

type lastfmTrack struct {
	Name   string  `json:"name"`
	MBID   string  `json:"mbid"`
	Match  float64 `json:"match"`
	Artist struct {
		Name string `json:"name"`
	} `json:"artist"`
}

// lastfmTrackList tolerates the API quirk of returning a bare object instead
// of a single-element array when there is exactly one result.
type lastfmTrackList []lastfmTrack

func (l *lastfmTrackList) UnmarshalJSON(data []byte) error {
	var many []lastfmTrack
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}

	var one lastfmTrack
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = lastfmTrackList{one}
	return nil
}
