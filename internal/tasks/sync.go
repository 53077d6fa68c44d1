package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/repositories"
	"github.com/desertthunder/spotsync/internal/shared"
)

// User-facing messages placed on the report. Internal causes are logged, not reported.
const msgConnectFirst = "You must connect your Spotify account first."

func purgeErrorMessage(category string) string {
	return fmt.Sprintf("An error occurred while purging your %s.", category)
}

func fetchErrorMessage(category string) string {
	return fmt.Sprintf("An error occurred while fetching Spotify %s.", category)
}

func saveErrorMessage(category string) string {
	return fmt.Sprintf("An error occurred while saving Spotify %s.", category)
}

// Session is the per-user fetch surface the orchestrator consumes.
type Session interface {
	TopArtists(ctx context.Context, limit int, timeRange string) ([]models.Artist, error)
	TopTracks(ctx context.Context, limit int, timeRange string) ([]models.Track, error)
	SavedTracks(ctx context.Context, limit int) ([]models.Track, error)
	PlaylistTracks(ctx context.Context, limit int) ([]models.Track, error)
}

// SessionFactory constructs a session for a user, failing when no provider
// account is linked.
type SessionFactory interface {
	Create(user *models.User) (Session, error)
}

// SessionFactoryFunc adapts a function to the [SessionFactory] interface.
type SessionFactoryFunc func(user *models.User) (Session, error)

func (f SessionFactoryFunc) Create(user *models.User) (Session, error) { return f(user) }

// ArtistStore is the artist persistence surface the orchestrator consumes.
type ArtistStore interface {
	BulkUpsert(ctx context.Context, artists []models.Artist, batchSize int) ([]string, int, error)
	Purge(ctx context.Context, userID string, filters repositories.PurgeFilters) (int64, error)
}

// TrackStore is the track persistence surface the orchestrator consumes.
type TrackStore interface {
	BulkUpsert(ctx context.Context, tracks []models.Track, batchSize int) ([]string, int, error)
	Purge(ctx context.Context, userID string, filters repositories.PurgeFilters) (int64, error)
}

// SyncOptions selects which categories to purge and/or sync, plus fetch and
// upsert tuning.
type SyncOptions struct {
	PurgeAll            bool
	PurgeTopArtists     bool
	PurgeTopTracks      bool
	PurgeSavedTracks    bool
	PurgePlaylistTracks bool

	SyncAll            bool
	SyncTopArtists     bool
	SyncTopTracks      bool
	SyncSavedTracks    bool
	SyncPlaylistTracks bool

	PageLimit int    // 1-50
	TimeRange string // short_term, medium_term or long_term
	BatchSize int    // 1-500
}

// DefaultSyncOptions derives options from the configured sync defaults.
func DefaultSyncOptions(cfg shared.SyncConfig) SyncOptions {
	return SyncOptions{
		PageLimit: cfg.PageLimit,
		TimeRange: cfg.TimeRange,
		BatchSize: cfg.BatchSize,
	}
}

// Validate checks the tuning parameters against their accepted ranges.
func (o SyncOptions) Validate() error {
	if o.PageLimit < 1 || o.PageLimit > 50 {
		return fmt.Errorf("%w: page limit must be between 1 and 50, got %d", shared.ErrInvalidFlag, o.PageLimit)
	}
	if o.BatchSize < 1 || o.BatchSize > 500 {
		return fmt.Errorf("%w: batch size must be between 1 and 500, got %d", shared.ErrInvalidFlag, o.BatchSize)
	}
	switch o.TimeRange {
	case "short_term", "medium_term", "long_term":
	default:
		return fmt.Errorf("%w: invalid time range %q", shared.ErrInvalidFlag, o.TimeRange)
	}
	return nil
}

func (o SyncOptions) anyPurge() bool {
	return o.PurgeAll || o.PurgeTopArtists || o.PurgeTopTracks || o.PurgeSavedTracks || o.PurgePlaylistTracks
}

func (o SyncOptions) purgeArtists() bool {
	return o.PurgeAll || o.PurgeTopArtists
}

func (o SyncOptions) purgeTracks() bool {
	return o.PurgeAll || o.PurgeTopTracks || o.PurgeSavedTracks || o.PurgePlaylistTracks
}

// SyncReport accumulates the outcome of one sync run. Values are extended,
// never mutated in place, so each phase's contribution is auditable.
type SyncReport struct {
	PurgedArtists int64
	PurgedTracks  int64

	ArtistsCreated int
	ArtistsUpdated int
	TracksCreated  int
	TracksUpdated  int

	Errors []string
}

// HasErrors reports whether any phase placed an error message on the report.
func (r SyncReport) HasErrors() bool { return len(r.Errors) > 0 }

func (r SyncReport) withPurgedArtists(count int64) SyncReport {
	r.PurgedArtists = count
	return r
}

func (r SyncReport) withPurgedTracks(count int64) SyncReport {
	r.PurgedTracks = count
	return r
}

func (r SyncReport) withArtistCounts(created, updated int) SyncReport {
	r.ArtistsCreated += created
	r.ArtistsUpdated += updated
	return r
}

func (r SyncReport) withTrackCounts(created, updated int) SyncReport {
	r.TracksCreated += created
	r.TracksUpdated += updated
	return r
}

func (r SyncReport) withError(message string) SyncReport {
	errs := make([]string, 0, len(r.Errors)+1)
	errs = append(errs, r.Errors...)
	errs = append(errs, message)
	r.Errors = errs
	return r
}

// Syncer orchestrates purge and sync phases for one user per call.
type Syncer struct {
	factory SessionFactory
	artists ArtistStore
	tracks  TrackStore
	logger  *log.Logger
}

// NewSyncer creates a sync orchestrator over the given collaborators.
func NewSyncer(factory SessionFactory, artists ArtistStore, tracks TrackStore, logger *log.Logger) *Syncer {
	return &Syncer{factory: factory, artists: artists, tracks: tracks, logger: logger}
}

// Sync runs the purge and sync phases selected by opts for the given user.
//
// Purges run first and gate the rest: any purge failure ends the run with no
// sync phases attempted. Sync phases then run in fixed order (top artists, top
// tracks, saved tracks, playlist tracks), each isolated at both the fetch and
// the upsert step. Failures never propagate as errors; they appear as
// user-facing messages on the report while completed phases keep their counts.
func (s *Syncer) Sync(ctx context.Context, user *models.User, opts SyncOptions) SyncReport {
	report := SyncReport{}

	if opts.anyPurge() {
		report = s.purge(ctx, user, opts, report)
		if report.HasErrors() {
			return report
		}
	}

	session, err := s.factory.Create(user)
	if err != nil {
		s.logger.Error("cannot create spotify session", "user", user.Email, "error", err)
		return report.withError(msgConnectFirst)
	}

	if opts.SyncAll || opts.SyncTopArtists {
		report = s.syncTopArtists(ctx, session, user, opts, report)
	}

	trackPhases := []struct {
		category string
		enabled  bool
		fetch    func(context.Context) ([]models.Track, error)
	}{
		{"top tracks", opts.SyncAll || opts.SyncTopTracks, func(ctx context.Context) ([]models.Track, error) {
			return session.TopTracks(ctx, opts.PageLimit, opts.TimeRange)
		}},
		{"saved tracks", opts.SyncAll || opts.SyncSavedTracks, func(ctx context.Context) ([]models.Track, error) {
			return session.SavedTracks(ctx, opts.PageLimit)
		}},
		{"playlist tracks", opts.SyncAll || opts.SyncPlaylistTracks, func(ctx context.Context) ([]models.Track, error) {
			return session.PlaylistTracks(ctx, opts.PageLimit)
		}},
	}

	for _, phase := range trackPhases {
		if !phase.enabled {
			continue
		}
		report = s.syncTracks(ctx, phase.category, phase.fetch, opts, report)
	}

	return report
}

// purge removes the selected categories. Each purge is caught independently,
// but any failure gates the remaining pipeline via the report's errors.
func (s *Syncer) purge(ctx context.Context, user *models.User, opts SyncOptions, report SyncReport) SyncReport {
	if opts.purgeArtists() {
		deleted, err := s.artists.Purge(ctx, user.ID, repositories.PurgeFilters{
			All: opts.PurgeAll,
			Top: opts.PurgeTopArtists,
		})
		if err != nil {
			s.logger.Error("artist purge failed", "user", user.Email, "error", err)
			report = report.withError(purgeErrorMessage("artists"))
		} else {
			report = report.withPurgedArtists(deleted)
			s.logger.Info("purged artists", "user", user.Email, "deleted", deleted)
		}
	}

	if opts.purgeTracks() {
		deleted, err := s.tracks.Purge(ctx, user.ID, repositories.PurgeFilters{
			All:      opts.PurgeAll,
			Top:      opts.PurgeTopTracks,
			Saved:    opts.PurgeSavedTracks,
			Playlist: opts.PurgePlaylistTracks,
		})
		if err != nil {
			s.logger.Error("track purge failed", "user", user.Email, "error", err)
			report = report.withError(purgeErrorMessage("tracks"))
		} else {
			report = report.withPurgedTracks(deleted)
			s.logger.Info("purged tracks", "user", user.Email, "deleted", deleted)
		}
	}

	return report
}

func (s *Syncer) syncTopArtists(ctx context.Context, session Session, user *models.User, opts SyncOptions, report SyncReport) SyncReport {
	const category = "top artists"

	artists, err := session.TopArtists(ctx, opts.PageLimit, opts.TimeRange)
	if err != nil {
		s.logger.Error("fetch failed", "category", category, "user", user.Email, "error", err)
		return report.withError(fetchErrorMessage(category))
	}

	ids, created, err := s.artists.BulkUpsert(ctx, artists, opts.BatchSize)
	if err != nil {
		s.logger.Error("upsert failed", "category", category, "user", user.Email, "error", err)
		return report.withError(saveErrorMessage(category))
	}

	s.logger.Info("synced category", "category", category, "created", created, "updated", len(ids)-created)
	return report.withArtistCounts(created, len(ids)-created)
}

func (s *Syncer) syncTracks(ctx context.Context, category string, fetch func(context.Context) ([]models.Track, error), opts SyncOptions, report SyncReport) SyncReport {
	tracks, err := fetch(ctx)
	if err != nil {
		s.logger.Error("fetch failed", "category", category, "error", err)
		return report.withError(fetchErrorMessage(category))
	}

	ids, created, err := s.tracks.BulkUpsert(ctx, tracks, opts.BatchSize)
	if err != nil {
		s.logger.Error("upsert failed", "category", category, "error", err)
		return report.withError(saveErrorMessage(category))
	}

	s.logger.Info("synced category", "category", category, "created", created, "updated", len(ids)-created)
	return report.withTrackCounts(created, len(ids)-created)
}
