package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/shared"
	"golang.org/x/time/rate"
)

// newTestClient builds a client pointed at the given test server, with
// recorded (not slept) backoff delays and no rate limiting.
func newTestClient(t *testing.T, server *httptest.Server, sleeps *[]time.Duration) *SpotifyClient {
	t.Helper()

	client, err := NewSpotifyClient(shared.SpotifyConfig{
		ClientID:     "test_client_id",
		ClientSecret: "test_client_secret",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	client.baseURL = server.URL
	client.config.Endpoint.TokenURL = server.URL + "/token"
	client.limiter = rate.NewLimiter(rate.Inf, 0)
	client.sleep = func(_ context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}

	return client
}

func validToken(t *testing.T) models.TokenState {
	t.Helper()

	token, err := models.NewTokenState("Bearer", "old-access", "old-refresh", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return token
}

func writeTokenResponse(w http.ResponseWriter, accessToken string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"access_token":  accessToken,
		"token_type":    "Bearer",
		"refresh_token": "new-refresh",
		"expires_in":    3600,
	})
}

func TestNewSpotifyClient(t *testing.T) {
	t.Run("With Valid Credentials", func(t *testing.T) {
		client, err := NewSpotifyClient(shared.SpotifyConfig{
			ClientID:     "test_client_id",
			ClientSecret: "test_client_secret",
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if client == nil {
			t.Fatal("expected client to be created")
		}
	})

	t.Run("Missing Credentials", func(t *testing.T) {
		_, err := NewSpotifyClient(shared.SpotifyConfig{ClientID: "only-id"})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Default Redirect URI", func(t *testing.T) {
		client, err := NewSpotifyClient(shared.SpotifyConfig{
			ClientID:     "test_client_id",
			ClientSecret: "test_client_secret",
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if client.config.RedirectURL != "http://localhost:3000/callback" {
			t.Errorf("expected default redirect URI, got %s", client.config.RedirectURL)
		}
	})

	t.Run("AuthURL Contains Scopes And State", func(t *testing.T) {
		client, _ := NewSpotifyClient(shared.SpotifyConfig{
			ClientID:     "test_client_id",
			ClientSecret: "test_client_secret",
		})

		authURL := client.AuthURL("state-token")
		if !strings.Contains(authURL, "state=state-token") {
			t.Errorf("expected state parameter in %s", authURL)
		}
		if !strings.Contains(authURL, "user-top-read") {
			t.Errorf("expected scopes in %s", authURL)
		}
	})
}

func TestMakeUserAPICall(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		var requests atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			if got := r.Header.Get("Authorization"); got != "Bearer old-access" {
				t.Errorf("expected bearer header, got %q", got)
			}
			w.Write([]byte(`{"ok":true}`))
		}))
		defer server.Close()

		var sleeps []time.Duration
		client := newTestClient(t, server, &sleeps)

		data, token, err := client.MakeUserAPICall(ctx, http.MethodGet, "/me", validToken(t), nil, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if string(data) != `{"ok":true}` {
			t.Errorf("unexpected body %s", data)
		}
		if token.AccessToken != "old-access" {
			t.Errorf("expected unchanged token, got %s", token.AccessToken)
		}
		if requests.Load() != 1 {
			t.Errorf("expected 1 request, got %d", requests.Load())
		}
	})

	t.Run("No Content Returns Empty Object", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		var sleeps []time.Duration
		client := newTestClient(t, server, &sleeps)

		data, _, err := client.MakeUserAPICall(ctx, http.MethodGet, "/me", validToken(t), nil, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if string(data) != "{}" {
			t.Errorf("expected empty object, got %s", data)
		}
	})

	t.Run("Retries Server Errors With Backoff", func(t *testing.T) {
		var requests atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requests.Add(1) <= 2 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		var sleeps []time.Duration
		client := newTestClient(t, server, &sleeps)

		_, _, err := client.MakeUserAPICall(ctx, http.MethodGet, "/me", validToken(t), nil, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if requests.Load() != 3 {
			t.Errorf("expected 3 requests, got %d", requests.Load())
		}
		want := []time.Duration{2 * time.Second, 4 * time.Second}
		if len(sleeps) != len(want) {
			t.Fatalf("expected %d sleeps, got %v", len(want), sleeps)
		}
		for i := range want {
			if sleeps[i] != want[i] {
				t.Errorf("sleep %d: expected %v, got %v", i, want[i], sleeps[i])
			}
		}
	})

	t.Run("Exhausts Retries", func(t *testing.T) {
		var requests atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		var sleeps []time.Duration
		client := newTestClient(t, server, &sleeps)

		_, _, err := client.MakeUserAPICall(ctx, http.MethodGet, "/me", validToken(t), nil, nil)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if requests.Load() != maxAttempts {
			t.Errorf("expected %d requests, got %d", maxAttempts, requests.Load())
		}
		if len(sleeps) != maxAttempts-1 {
			t.Errorf("expected %d sleeps, got %d", maxAttempts-1, len(sleeps))
		}
	})

	t.Run("Client Error Is Fatal", func(t *testing.T) {
		var requests atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		var sleeps []time.Duration
		client := newTestClient(t, server, &sleeps)

		_, _, err := client.MakeUserAPICall(ctx, http.MethodGet, "/me", validToken(t), nil, nil)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if requests.Load() != 1 {
			t.Errorf("expected 1 request, got %d", requests.Load())
		}
		if len(sleeps) != 0 {
			t.Errorf("expected no sleeps, got %v", sleeps)
		}
	})

	t.Run("Rate Limited Honors Retry-After", func(t *testing.T) {
		var requests atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requests.Add(1) == 1 {
				w.Header().Set("Retry-After", "3")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		var sleeps []time.Duration
		client := newTestClient(t, server, &sleeps)

		_, _, err := client.MakeUserAPICall(ctx, http.MethodGet, "/me", validToken(t), nil, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if requests.Load() != 2 {
			t.Errorf("expected 2 requests, got %d", requests.Load())
		}
		if len(sleeps) != 1 || sleeps[0] != 4*time.Second {
			t.Errorf("expected one 4s sleep, got %v", sleeps)
		}
	})

	t.Run("Unauthorized Refreshes Once And Retries", func(t *testing.T) {
		var apiRequests, tokenRequests atomic.Int32
		mux := http.NewServeMux()
		mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
			tokenRequests.Add(1)
			writeTokenResponse(w, "new-access")
		})
		mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
			apiRequests.Add(1)
			if r.Header.Get("Authorization") != "Bearer new-access" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{}`))
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		var sleeps []time.Duration
		client := newTestClient(t, server, &sleeps)

		_, token, err := client.MakeUserAPICall(ctx, http.MethodGet, "/me", validToken(t), nil, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token.AccessToken != "new-access" {
			t.Errorf("expected refreshed token to be returned, got %s", token.AccessToken)
		}
		if tokenRequests.Load() != 1 {
			t.Errorf("expected 1 token refresh, got %d", tokenRequests.Load())
		}
		if apiRequests.Load() != 2 {
			t.Errorf("expected 2 api requests, got %d", apiRequests.Load())
		}
	})

	t.Run("Unauthorized After Refresh Is Fatal", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
			writeTokenResponse(w, "new-access")
		})
		mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		var sleeps []time.Duration
		client := newTestClient(t, server, &sleeps)

		_, _, err := client.MakeUserAPICall(ctx, http.MethodGet, "/me", validToken(t), nil, nil)
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Fatalf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("Expired Token Is Refreshed Proactively", func(t *testing.T) {
		var tokenRequests atomic.Int32
		mux := http.NewServeMux()
		mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
			tokenRequests.Add(1)
			writeTokenResponse(w, "new-access")
		})
		mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer new-access" {
				t.Errorf("expected refreshed bearer header, got %q", got)
			}
			w.Write([]byte(`{}`))
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		var sleeps []time.Duration
		client := newTestClient(t, server, &sleeps)

		expired, err := models.NewTokenState("Bearer", "old-access", "old-refresh", time.Now().Add(time.Minute))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		_, token, err := client.MakeUserAPICall(ctx, http.MethodGet, "/me", expired, nil, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if tokenRequests.Load() != 1 {
			t.Errorf("expected 1 token refresh, got %d", tokenRequests.Load())
		}
		if token.AccessToken != "new-access" {
			t.Errorf("expected refreshed token, got %s", token.AccessToken)
		}
	})

	t.Run("Refresh Without Refresh Token Fails", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		}))
		defer server.Close()

		var sleeps []time.Duration
		client := newTestClient(t, server, &sleeps)

		_, err := client.RefreshAccessToken(ctx, "")
		if !errors.Is(err, shared.ErrTokenRefresh) {
			t.Errorf("expected ErrTokenRefresh, got %v", err)
		}
	})
}
