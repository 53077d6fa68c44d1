package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/spotsync/internal/formatter"
	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/repositories"
	"github.com/desertthunder/spotsync/internal/server"
	"github.com/desertthunder/spotsync/internal/services"
	"github.com/desertthunder/spotsync/internal/shared"
	"github.com/desertthunder/spotsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// SpotifyConnect performs the OAuth2 authorization flow for a user and links
// the resulting account.
//
// Starts a local HTTP server, opens the browser for authorization, and stores
// the exchanged token against the user's record.
func (r *Runner) SpotifyConnect(ctx context.Context, cmd *cli.Command) error {
	email := cmd.String("email")
	if email == "" {
		return fmt.Errorf("%w: --email flag is required", shared.ErrMissingArgument)
	}

	client, err := r.spotifyClient()
	if err != nil {
		return err
	}

	return r.withDatabase(func(db *sql.DB) error {
		users := repositories.NewUserRepository(db)
		user, err := users.GetByEmail(ctx, email)
		if err != nil {
			return err
		}

		state, err := shared.GenerateState()
		if err != nil {
			return fmt.Errorf("failed to generate state token: %w", err)
		}
		if err := users.SetSpotifyState(ctx, user.ID, state); err != nil {
			return fmt.Errorf("failed to store authorization state: %w", err)
		}

		token, err := r.doOAuth(client, state)
		if err != nil {
			return err
		}

		if err := users.LinkSpotifyAccount(ctx, user.ID, token); err != nil {
			return fmt.Errorf("failed to link spotify account: %w", err)
		}

		r.writePlainln("✓ Authorization successful")
		r.writePlain("✓ Spotify account linked to %s\n\n", user.Email)
		r.writePlain("You can now use: spotsync spotify sync --email %s\n", user.Email)
		return nil
	})
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(client *services.SpotifyClient, state string) (models.TokenState, error) {
	authURL := client.AuthURL(state)
	handler := server.NewCallbackHandler(client, state)
	router := server.NewBasicRouter()
	router.Handler(handler)

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("starting OAuth callback server", "addr", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser automatically", "error", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.CallbackResult

	select {
	case result = <-handler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return models.TokenState{}, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return models.TokenState{}, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return models.TokenState{}, fmt.Errorf("authorization failed: %w", result.Error())
	}

	return result.Token, nil
}

// SpotifySync runs the purge and sync pipeline for a user and prints the report.
func (r *Runner) SpotifySync(ctx context.Context, cmd *cli.Command) error {
	email := cmd.String("email")
	if email == "" {
		return fmt.Errorf("%w: --email flag is required", shared.ErrMissingArgument)
	}

	client, err := r.spotifyClient()
	if err != nil {
		return err
	}

	opts := syncOptionsFromFlags(cmd, r.config.Sync)
	if err := opts.Validate(); err != nil {
		return err
	}

	return r.withDatabase(func(db *sql.DB) error {
		users := repositories.NewUserRepository(db)
		user, err := users.GetByEmail(ctx, email)
		if err != nil {
			return err
		}

		factory := services.NewSpotifySessionFactory(users, client, r.config.Sync.MaxConcurrency, r.logger)
		syncer := tasks.NewSyncer(
			tasks.SessionFactoryFunc(func(user *models.User) (tasks.Session, error) {
				return factory.Create(user)
			}),
			repositories.NewArtistRepository(db),
			repositories.NewTrackRepository(db),
			r.logger,
		)

		r.logger.Info("starting sync", "user", user.Email, "time_range", opts.TimeRange)
		report := syncer.Sync(ctx, user, opts)

		if cmd.Bool("json") {
			if err := r.writeJSON(report, cmd.Bool("pretty")); err != nil {
				return err
			}
		} else if _, err := r.output.Write(formatter.ReportToText(report)); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}

		if report.HasErrors() {
			return fmt.Errorf("%w: %d error(s)", shared.ErrSyncFailed, len(report.Errors))
		}
		return nil
	})
}

// syncOptionsFromFlags builds sync options from command flags, falling back to
// configured defaults. When no sync or purge flag is given, a full sync runs.
func syncOptionsFromFlags(cmd *cli.Command, cfg shared.SyncConfig) tasks.SyncOptions {
	opts := tasks.DefaultSyncOptions(cfg)

	opts.PurgeAll = cmd.Bool("purge-all")
	opts.PurgeTopArtists = cmd.Bool("purge-top-artists")
	opts.PurgeTopTracks = cmd.Bool("purge-top-tracks")
	opts.PurgeSavedTracks = cmd.Bool("purge-saved-tracks")
	opts.PurgePlaylistTracks = cmd.Bool("purge-playlist-tracks")

	opts.SyncAll = cmd.Bool("all")
	opts.SyncTopArtists = cmd.Bool("top-artists")
	opts.SyncTopTracks = cmd.Bool("top-tracks")
	opts.SyncSavedTracks = cmd.Bool("saved-tracks")
	opts.SyncPlaylistTracks = cmd.Bool("playlist-tracks")

	if !opts.SyncAll && !opts.SyncTopArtists && !opts.SyncTopTracks &&
		!opts.SyncSavedTracks && !opts.SyncPlaylistTracks {
		opts.SyncAll = true
	}

	if limit := cmd.Int("page-limit"); limit > 0 {
		opts.PageLimit = int(limit)
	}
	if timeRange := cmd.String("time-range"); timeRange != "" {
		opts.TimeRange = timeRange
	}
	if batch := cmd.Int("batch-size"); batch > 0 {
		opts.BatchSize = int(batch)
	}

	return opts
}
