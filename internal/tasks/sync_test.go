package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/repositories"
	"github.com/desertthunder/spotsync/internal/shared"
)

type fakeSession struct {
	topArtists    []models.Artist
	topTracks     []models.Track
	savedTracks   []models.Track
	playlistTrack []models.Track

	topArtistsErr  error
	topTracksErr   error
	savedTracksErr error
	playlistErr    error
}

func (f *fakeSession) TopArtists(_ context.Context, _ int, _ string) ([]models.Artist, error) {
	return f.topArtists, f.topArtistsErr
}

func (f *fakeSession) TopTracks(_ context.Context, _ int, _ string) ([]models.Track, error) {
	return f.topTracks, f.topTracksErr
}

func (f *fakeSession) SavedTracks(_ context.Context, _ int) ([]models.Track, error) {
	return f.savedTracks, f.savedTracksErr
}

func (f *fakeSession) PlaylistTracks(_ context.Context, _ int) ([]models.Track, error) {
	return f.playlistTrack, f.playlistErr
}

type fakeArtistStore struct {
	existing  map[string]bool
	upsertErr error
	purgeErr  error
	purged    []repositories.PurgeFilters
	upserts   int
}

func (f *fakeArtistStore) BulkUpsert(_ context.Context, artists []models.Artist, _ int) ([]string, int, error) {
	if f.upsertErr != nil {
		return nil, 0, f.upsertErr
	}
	f.upserts++
	ids := make([]string, len(artists))
	created := 0
	for i, artist := range artists {
		ids[i] = "row-" + artist.ProviderID
		if !f.existing[artist.ProviderID] {
			created++
		}
	}
	return ids, created, nil
}

func (f *fakeArtistStore) Purge(_ context.Context, _ string, filters repositories.PurgeFilters) (int64, error) {
	if f.purgeErr != nil {
		return 0, f.purgeErr
	}
	f.purged = append(f.purged, filters)
	return 3, nil
}

type fakeTrackStore struct {
	existing  map[string]bool
	upsertErr error
	purgeErr  error
	purged    []repositories.PurgeFilters
	upserts   int
}

func (f *fakeTrackStore) BulkUpsert(_ context.Context, tracks []models.Track, _ int) ([]string, int, error) {
	if f.upsertErr != nil {
		return nil, 0, f.upsertErr
	}
	f.upserts++
	ids := make([]string, len(tracks))
	created := 0
	for i, track := range tracks {
		ids[i] = "row-" + track.ProviderID
		if !f.existing[track.ProviderID] {
			created++
		}
	}
	return ids, created, nil
}

func (f *fakeTrackStore) Purge(_ context.Context, _ string, filters repositories.PurgeFilters) (int64, error) {
	if f.purgeErr != nil {
		return 0, f.purgeErr
	}
	f.purged = append(f.purged, filters)
	return 7, nil
}

func sessionFactory(session Session) SessionFactory {
	return SessionFactoryFunc(func(_ *models.User) (Session, error) {
		return session, nil
	})
}

func failingFactory() SessionFactory {
	return SessionFactoryFunc(func(_ *models.User) (Session, error) {
		return nil, shared.ErrSpotifyAccountNotFound
	})
}

func makeArtists(count int) []models.Artist {
	artists := make([]models.Artist, count)
	for i := range artists {
		artists[i] = models.Artist{ProviderID: fmt.Sprintf("a%d", i), Name: fmt.Sprintf("Artist %d", i)}
	}
	return artists
}

func makeTracks(prefix string, count int) []models.Track {
	tracks := make([]models.Track, count)
	for i := range tracks {
		tracks[i] = models.Track{ProviderID: fmt.Sprintf("%s%d", prefix, i), Name: fmt.Sprintf("Track %s%d", prefix, i)}
	}
	return tracks
}

func syncEverything() SyncOptions {
	return SyncOptions{SyncAll: true, PageLimit: 50, TimeRange: "long_term", BatchSize: 300}
}

func TestSyncOptions(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		if err := syncEverything().Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("Rejects Out Of Range Values", func(t *testing.T) {
		cases := []struct {
			name string
			opts SyncOptions
		}{
			{"Page Limit Too Small", SyncOptions{PageLimit: 0, TimeRange: "long_term", BatchSize: 300}},
			{"Page Limit Too Large", SyncOptions{PageLimit: 51, TimeRange: "long_term", BatchSize: 300}},
			{"Batch Size Too Large", SyncOptions{PageLimit: 50, TimeRange: "long_term", BatchSize: 501}},
			{"Bad Time Range", SyncOptions{PageLimit: 50, TimeRange: "all_time", BatchSize: 300}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				if err := tc.opts.Validate(); !errors.Is(err, shared.ErrInvalidFlag) {
					t.Errorf("expected ErrInvalidFlag, got %v", err)
				}
			})
		}
	})

	t.Run("Defaults From Config", func(t *testing.T) {
		opts := DefaultSyncOptions(shared.SyncConfig{PageLimit: 50, TimeRange: "long_term", BatchSize: 300})
		if err := opts.Validate(); err != nil {
			t.Errorf("expected defaults to validate, got %v", err)
		}
	})
}

func TestSync(t *testing.T) {
	ctx := context.Background()
	user := &models.User{ID: "user-1", Email: "listener@example.com"}
	logger := log.New(io.Discard)

	t.Run("Counts Created And Updated", func(t *testing.T) {
		session := &fakeSession{topArtists: makeArtists(10)}
		artists := &fakeArtistStore{existing: map[string]bool{"a0": true, "a1": true, "a2": true, "a3": true}}
		tracks := &fakeTrackStore{}
		syncer := NewSyncer(sessionFactory(session), artists, tracks, logger)

		report := syncer.Sync(ctx, user, SyncOptions{SyncTopArtists: true, PageLimit: 50, TimeRange: "long_term", BatchSize: 300})

		if report.HasErrors() {
			t.Fatalf("expected no errors, got %v", report.Errors)
		}
		if report.ArtistsCreated != 6 || report.ArtistsUpdated != 4 {
			t.Errorf("expected created=6 updated=4, got created=%d updated=%d", report.ArtistsCreated, report.ArtistsUpdated)
		}
	})

	t.Run("Track Totals Accumulate Across Categories", func(t *testing.T) {
		session := &fakeSession{
			topTracks:     makeTracks("top", 3),
			savedTracks:   makeTracks("saved", 2),
			playlistTrack: makeTracks("pl", 4),
		}
		tracks := &fakeTrackStore{existing: map[string]bool{"saved0": true}}
		syncer := NewSyncer(sessionFactory(session), &fakeArtistStore{}, tracks, logger)

		report := syncer.Sync(ctx, user, syncEverything())

		if report.HasErrors() {
			t.Fatalf("expected no errors, got %v", report.Errors)
		}
		if report.TracksCreated != 8 || report.TracksUpdated != 1 {
			t.Errorf("expected created=8 updated=1, got created=%d updated=%d", report.TracksCreated, report.TracksUpdated)
		}
		if tracks.upserts != 3 {
			t.Errorf("expected 3 track upserts, got %d", tracks.upserts)
		}
	})

	t.Run("Missing Account Short-Circuits", func(t *testing.T) {
		artists := &fakeArtistStore{}
		tracks := &fakeTrackStore{}
		syncer := NewSyncer(failingFactory(), artists, tracks, logger)

		report := syncer.Sync(ctx, user, syncEverything())

		if len(report.Errors) != 1 || report.Errors[0] != "You must connect your Spotify account first." {
			t.Errorf("expected single connect-first error, got %v", report.Errors)
		}
		if artists.upserts != 0 || tracks.upserts != 0 {
			t.Error("expected no sync phases to run")
		}
	})

	t.Run("Purge Failure Gates Sync", func(t *testing.T) {
		session := &fakeSession{topArtists: makeArtists(2)}
		artists := &fakeArtistStore{purgeErr: errors.New("disk full")}
		tracks := &fakeTrackStore{}
		opts := syncEverything()
		opts.PurgeAll = true
		syncer := NewSyncer(sessionFactory(session), artists, tracks, logger)

		report := syncer.Sync(ctx, user, opts)

		if len(report.Errors) != 1 || report.Errors[0] != "An error occurred while purging your artists." {
			t.Errorf("expected single artist purge error, got %v", report.Errors)
		}
		if report.ArtistsCreated != 0 || report.TracksCreated != 0 {
			t.Error("expected all sync counts to remain zero")
		}
		if artists.upserts != 0 || tracks.upserts != 0 {
			t.Error("expected no sync phases to run after purge failure")
		}
	})

	t.Run("Purge Counts Are Reported", func(t *testing.T) {
		session := &fakeSession{}
		artists := &fakeArtistStore{}
		tracks := &fakeTrackStore{}
		opts := SyncOptions{PurgeAll: true, PageLimit: 50, TimeRange: "long_term", BatchSize: 300}
		syncer := NewSyncer(sessionFactory(session), artists, tracks, logger)

		report := syncer.Sync(ctx, user, opts)

		if report.HasErrors() {
			t.Fatalf("expected no errors, got %v", report.Errors)
		}
		if report.PurgedArtists != 3 || report.PurgedTracks != 7 {
			t.Errorf("expected purge counts 3/7, got %d/%d", report.PurgedArtists, report.PurgedTracks)
		}
		if len(artists.purged) != 1 || !artists.purged[0].All {
			t.Errorf("expected unconditional artist purge, got %+v", artists.purged)
		}
		if len(tracks.purged) != 1 || !tracks.purged[0].All {
			t.Errorf("expected unconditional track purge, got %+v", tracks.purged)
		}
	})

	t.Run("Purge Sub-Filters Pass Through", func(t *testing.T) {
		tracks := &fakeTrackStore{}
		artists := &fakeArtistStore{}
		opts := SyncOptions{PurgeSavedTracks: true, PurgePlaylistTracks: true, PageLimit: 50, TimeRange: "long_term", BatchSize: 300}
		syncer := NewSyncer(sessionFactory(&fakeSession{}), artists, tracks, logger)

		syncer.Sync(ctx, user, opts)

		if len(artists.purged) != 0 {
			t.Errorf("expected no artist purge, got %+v", artists.purged)
		}
		if len(tracks.purged) != 1 {
			t.Fatalf("expected one track purge, got %d", len(tracks.purged))
		}
		filters := tracks.purged[0]
		if filters.All || filters.Top || !filters.Saved || !filters.Playlist {
			t.Errorf("unexpected filters %+v", filters)
		}
	})

	t.Run("Fetch Failure Isolates Category", func(t *testing.T) {
		session := &fakeSession{
			topArtists:     makeArtists(2),
			topTracks:      makeTracks("top", 3),
			savedTracksErr: errors.New("boom"),
			playlistTrack:  makeTracks("pl", 1),
		}
		artists := &fakeArtistStore{}
		tracks := &fakeTrackStore{}
		syncer := NewSyncer(sessionFactory(session), artists, tracks, logger)

		report := syncer.Sync(ctx, user, syncEverything())

		if len(report.Errors) != 1 || report.Errors[0] != "An error occurred while fetching Spotify saved tracks." {
			t.Errorf("expected saved-tracks fetch error, got %v", report.Errors)
		}
		if report.ArtistsCreated != 2 {
			t.Errorf("expected artists to sync, got %d", report.ArtistsCreated)
		}
		if report.TracksCreated != 4 {
			t.Errorf("expected other track categories to sync (3+1), got %d", report.TracksCreated)
		}
		if tracks.upserts != 2 {
			t.Errorf("expected 2 track upserts, got %d", tracks.upserts)
		}
	})

	t.Run("Upsert Failure Uses Save Message", func(t *testing.T) {
		session := &fakeSession{topArtists: makeArtists(2), topTracks: makeTracks("top", 1)}
		artists := &fakeArtistStore{upsertErr: errors.New("constraint")}
		tracks := &fakeTrackStore{}
		opts := SyncOptions{SyncTopArtists: true, SyncTopTracks: true, PageLimit: 50, TimeRange: "long_term", BatchSize: 300}
		syncer := NewSyncer(sessionFactory(session), artists, tracks, logger)

		report := syncer.Sync(ctx, user, opts)

		if len(report.Errors) != 1 || report.Errors[0] != "An error occurred while saving Spotify top artists." {
			t.Errorf("expected top-artists save error, got %v", report.Errors)
		}
		if report.ArtistsCreated != 0 || report.ArtistsUpdated != 0 {
			t.Error("expected zero artist counts after upsert failure")
		}
		if report.TracksCreated != 1 {
			t.Errorf("expected top tracks to still sync, got %d", report.TracksCreated)
		}
	})

	t.Run("Disabled Phases Do Not Run", func(t *testing.T) {
		session := &fakeSession{topArtists: makeArtists(2), savedTracks: makeTracks("saved", 2)}
		artists := &fakeArtistStore{}
		tracks := &fakeTrackStore{}
		opts := SyncOptions{SyncSavedTracks: true, PageLimit: 50, TimeRange: "long_term", BatchSize: 300}
		syncer := NewSyncer(sessionFactory(session), artists, tracks, logger)

		report := syncer.Sync(ctx, user, opts)

		if artists.upserts != 0 {
			t.Error("expected artist phase to be skipped")
		}
		if report.TracksCreated != 2 {
			t.Errorf("expected saved tracks to sync, got %d", report.TracksCreated)
		}
	})
}
