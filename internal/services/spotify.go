// Spotify user API client.
//
// Endpoint semantics based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// Tokens within this window of expiry are refreshed before use.
	defaultTokenBuffer = 5 * time.Minute

	// Retry policy for user API calls.
	maxAttempts    = 5
	baseRetryDelay = 2 * time.Second
	maxRetryDelay  = 60 * time.Second
)

// spotifyScopes are the OAuth scopes required for library synchronization.
var spotifyScopes = []string{
	"user-top-read",
	"user-library-read",
	"playlist-read-private",
}

// SpotifyClient performs authenticated calls against the Spotify user API.
//
// The client owns retry/backoff and 401/429 recovery but never persists tokens;
// persistence on change is the session's responsibility.
type SpotifyClient struct {
	config      *oauth2.Config
	httpClient  *http.Client
	limiter     *rate.Limiter
	tokenBuffer time.Duration

	// baseURL is overridable in tests.
	baseURL string
	// sleep is overridable in tests to avoid real backoff delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewSpotifyClient creates a Spotify client from the given credentials.
func NewSpotifyClient(creds shared.SpotifyConfig) (*SpotifyClient, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret must be set", shared.ErrMissingCredentials)
	}

	redirectURI := creds.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://localhost:3000/callback"
	}

	config := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       spotifyScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyClient{
		config:      config,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		limiter:     rate.NewLimiter(rate.Limit(10), 1),
		tokenBuffer: defaultTokenBuffer,
		baseURL:     spotifyBaseURL,
		sleep:       sleepContext,
	}, nil
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (c *SpotifyClient) AuthURL(state string) string {
	return c.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// ExchangeCode exchanges an authorization code for a token state.
func (c *SpotifyClient) ExchangeCode(ctx context.Context, code string) (models.TokenState, error) {
	token, err := c.config.Exchange(ctx, code)
	if err != nil {
		return models.TokenState{}, fmt.Errorf("%w: %v", shared.ErrTokenExchange, err)
	}

	return tokenStateFromOAuth2(token, "")
}

// RefreshAccessToken obtains a new token state using the refresh-token grant.
//
// Spotify does not always return a new refresh token; the given one is carried
// over when the response omits it.
func (c *SpotifyClient) RefreshAccessToken(ctx context.Context, refreshToken string) (models.TokenState, error) {
	if refreshToken == "" {
		return models.TokenState{}, fmt.Errorf("%w: no refresh token available", shared.ErrTokenRefresh)
	}

	source := c.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return models.TokenState{}, fmt.Errorf("%w: %v", shared.ErrTokenRefresh, err)
	}

	return tokenStateFromOAuth2(token, refreshToken)
}

// MakeUserAPICall performs an authenticated request against the user API.
//
// The token is proactively refreshed when expired (within the configured buffer).
// A 401 from the endpoint triggers exactly one forced refresh and retry of the
// same call; network errors and 5xx are retried with exponential backoff; a 429
// with a Retry-After header sleeps the requested duration plus one second and
// retries without advancing the backoff schedule. The possibly-refreshed token
// state is returned alongside the response body so callers can persist it.
func (c *SpotifyClient) MakeUserAPICall(
	ctx context.Context,
	method, endpoint string,
	token models.TokenState,
	params url.Values,
	body any,
) (json.RawMessage, models.TokenState, error) {
	return c.makeUserAPICall(ctx, method, endpoint, token, params, body, false)
}

func (c *SpotifyClient) makeUserAPICall(
	ctx context.Context,
	method, endpoint string,
	token models.TokenState,
	params url.Values,
	body any,
	enforceRefresh bool,
) (json.RawMessage, models.TokenState, error) {
	if enforceRefresh || token.IsExpired(c.tokenBuffer) {
		refreshed, err := c.RefreshAccessToken(ctx, token.RefreshToken)
		if err != nil {
			return nil, token, err
		}
		token = refreshed
	}

	delay := baseRetryDelay
	var lastErr error

	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, token, err
		}

		resp, err := c.request(ctx, method, endpoint, token, params, body)
		if err != nil {
			// Network failure: retryable.
			lastErr = fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		} else {
			switch {
			case resp.StatusCode == http.StatusUnauthorized:
				drainBody(resp)
				if enforceRefresh {
					return nil, token, fmt.Errorf("%w: unauthorized after token refresh on %s", shared.ErrAuthFailed, endpoint)
				}
				// Token may have been invalidated out-of-band; refresh once and retry the call.
				return c.makeUserAPICall(ctx, method, endpoint, token, params, body, true)

			case resp.StatusCode == http.StatusTooManyRequests:
				retryAfter := resp.Header.Get("Retry-After")
				drainBody(resp)
				if secs, convErr := strconv.Atoi(retryAfter); convErr == nil && secs >= 0 {
					if attempt >= maxAttempts {
						return nil, token, fmt.Errorf("%w: rate limited on %s (status 429)", shared.ErrAPIRequest, endpoint)
					}
					// Sleep exactly as asked (plus a second of slack) and skip the
					// exponential backoff for this attempt.
					if err := c.sleep(ctx, time.Duration(secs+1)*time.Second); err != nil {
						return nil, token, err
					}
					continue
				}
				lastErr = fmt.Errorf("%w: status 429 on %s", shared.ErrAPIRequest, endpoint)

			case resp.StatusCode >= 500:
				drainBody(resp)
				lastErr = fmt.Errorf("%w: status %d on %s", shared.ErrAPIRequest, resp.StatusCode, endpoint)

			case resp.StatusCode >= 400:
				drainBody(resp)
				return nil, token, fmt.Errorf("%w: status %d on %s", shared.ErrAPIRequest, resp.StatusCode, endpoint)

			case resp.StatusCode == http.StatusNoContent:
				drainBody(resp)
				return json.RawMessage("{}"), token, nil

			default:
				data, readErr := io.ReadAll(resp.Body)
				resp.Body.Close()
				if readErr != nil {
					return nil, token, fmt.Errorf("failed to read response body: %w", readErr)
				}
				return data, token, nil
			}
		}

		if attempt >= maxAttempts {
			return nil, token, lastErr
		}
		if err := c.sleep(ctx, delay); err != nil {
			return nil, token, err
		}
		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}

// request builds and executes a single HTTP request against the user API.
func (c *SpotifyClient) request(
	ctx context.Context,
	method, endpoint string,
	token models.TokenState,
	params url.Values,
	body any,
) (*http.Response, error) {
	apiURL := c.baseURL + endpoint
	if len(params) > 0 {
		apiURL += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", token.AuthorizationHeader())
	req.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(req)
}

// tokenStateFromOAuth2 maps an [oauth2.Token] into a [models.TokenState],
// carrying over the previous refresh token when the provider omitted one.
func tokenStateFromOAuth2(token *oauth2.Token, previousRefresh string) (models.TokenState, error) {
	refresh := token.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}

	tokenType := token.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	return models.NewTokenState(tokenType, token.AccessToken, refresh, token.Expiry)
}

func drainBody(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
