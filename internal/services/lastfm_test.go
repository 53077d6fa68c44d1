package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/spotsync/internal/shared"
)

func newTestLastFM(t *testing.T, handler http.HandlerFunc) *LastFMClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewLastFMClient(shared.LastFMConfig{APIKey: "test_api_key"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	client.baseURL = server.URL
	return client
}

func TestLastFMClient(t *testing.T) {
	ctx := context.Background()

	t.Run("Missing API Key", func(t *testing.T) {
		_, err := NewLastFMClient(shared.LastFMConfig{})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Sorts By Match Descending", func(t *testing.T) {
		client := newTestLastFM(t, func(w http.ResponseWriter, r *http.Request) {
			query := r.URL.Query()
			if query.Get("method") != "track.getsimilar" {
				t.Errorf("expected method track.getsimilar, got %q", query.Get("method"))
			}
			if query.Get("api_key") != "test_api_key" {
				t.Errorf("expected api key, got %q", query.Get("api_key"))
			}
			w.Write([]byte(`{"similartracks":{"track":[
				{"name":"Low Match","match":0.2,"artist":{"name":"A"}},
				{"name":"High Match","match":0.9,"artist":{"name":"B"}},
				{"name":"Mid Match","match":0.5,"artist":{"name":"C"}}
			]}}`))
		})

		results, err := client.SimilarTracks(ctx, "Artist", "Track", 10)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(results) != 3 {
			t.Fatalf("expected 3 results, got %d", len(results))
		}
		if results[0].Name != "High Match" || results[1].Name != "Mid Match" || results[2].Name != "Low Match" {
			t.Errorf("expected descending match order, got %+v", results)
		}
	})

	t.Run("Single Object Response", func(t *testing.T) {
		client := newTestLastFM(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"similartracks":{"track":{"name":"Only One","match":0.7,"artist":{"name":"Solo"}}}}`))
		})

		results, err := client.SimilarTracks(ctx, "Artist", "Track", 10)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(results) != 1 {
			t.Fatalf("expected 1 result, got %d", len(results))
		}
		if results[0].Name != "Only One" || results[0].Artist != "Solo" {
			t.Errorf("unexpected result %+v", results[0])
		}
	})

	t.Run("Empty Result", func(t *testing.T) {
		client := newTestLastFM(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"similartracks":{"track":[]}}`))
		})

		results, err := client.SimilarTracks(ctx, "Artist", "Track", 10)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(results) != 0 {
			t.Errorf("expected no results, got %d", len(results))
		}
	})

	t.Run("Error Status", func(t *testing.T) {
		client := newTestLastFM(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		_, err := client.SimilarTracks(ctx, "Artist", "Track", 10)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}
