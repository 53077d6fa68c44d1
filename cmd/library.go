package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/desertthunder/spotsync/internal/formatter"
	"github.com/desertthunder/spotsync/internal/repositories"
	"github.com/desertthunder/spotsync/internal/shared"
	"github.com/urfave/cli/v3"
)

const (
	defaultListLimit   = 50
	defaultExportLimit = 10000
)

// LibraryList prints synced artists or tracks in text, JSON or CSV form.
func (r *Runner) LibraryList(ctx context.Context, cmd *cli.Command) error {
	email := cmd.String("email")
	if email == "" {
		return fmt.Errorf("%w: --email flag is required", shared.ErrMissingArgument)
	}

	kind := cmd.String("kind")
	if kind != "artists" && kind != "tracks" {
		return fmt.Errorf("%w: kind must be artists or tracks, got %q", shared.ErrInvalidFlag, kind)
	}

	limit := cmd.Int("limit")
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := cmd.Int("offset")

	return r.withDatabase(func(db *sql.DB) error {
		user, err := repositories.NewUserRepository(db).GetByEmail(ctx, email)
		if err != nil {
			return err
		}

		var output []byte
		switch kind {
		case "artists":
			artists, err := repositories.NewArtistRepository(db).GetList(ctx, user.ID, offset, limit)
			if err != nil {
				return fmt.Errorf("failed to list artists: %w", err)
			}
			if cmd.Bool("json") {
				return r.writeJSON(artists, cmd.Bool("pretty"))
			}
			if cmd.Bool("csv") {
				if output, err = formatter.ArtistsToCSV(artists); err != nil {
					return err
				}
			} else {
				output = formatter.ArtistsToText(artists)
			}
		case "tracks":
			tracks, err := repositories.NewTrackRepository(db).GetList(ctx, user.ID, offset, limit)
			if err != nil {
				return fmt.Errorf("failed to list tracks: %w", err)
			}
			if cmd.Bool("json") {
				return r.writeJSON(tracks, cmd.Bool("pretty"))
			}
			if cmd.Bool("csv") {
				if output, err = formatter.TracksToCSV(tracks); err != nil {
					return err
				}
			} else {
				output = formatter.TracksToText(tracks)
			}
		}

		if _, err := r.output.Write(output); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	})
}

// LibraryExport writes synced artists or tracks to a CSV file.
func (r *Runner) LibraryExport(ctx context.Context, cmd *cli.Command) error {
	email := cmd.String("email")
	if email == "" {
		return fmt.Errorf("%w: --email flag is required", shared.ErrMissingArgument)
	}

	kind := cmd.String("kind")
	if kind != "artists" && kind != "tracks" {
		return fmt.Errorf("%w: kind must be artists or tracks, got %q", shared.ErrInvalidFlag, kind)
	}

	outputFile := cmd.String("output")
	if outputFile == "" {
		outputFile = fmt.Sprintf("spotify_%s.csv", kind)
	}

	limit := cmd.Int("limit")
	if limit <= 0 {
		limit = defaultExportLimit
	}

	return r.withDatabase(func(db *sql.DB) error {
		user, err := repositories.NewUserRepository(db).GetByEmail(ctx, email)
		if err != nil {
			return err
		}

		var data []byte
		var count int
		switch kind {
		case "artists":
			artists, err := repositories.NewArtistRepository(db).GetList(ctx, user.ID, 0, limit)
			if err != nil {
				return fmt.Errorf("failed to list artists: %w", err)
			}
			if data, err = formatter.ArtistsToCSV(artists); err != nil {
				return err
			}
			count = len(artists)
		case "tracks":
			tracks, err := repositories.NewTrackRepository(db).GetList(ctx, user.ID, 0, limit)
			if err != nil {
				return fmt.Errorf("failed to list tracks: %w", err)
			}
			if data, err = formatter.TracksToCSV(tracks); err != nil {
				return err
			}
			count = len(tracks)
		}

		if err := os.WriteFile(outputFile, data, 0644); err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}

		r.logger.Info("library exported", "file", outputFile, "rows", count)
		r.writePlain("✓ Exported %d %s to %s\n", count, kind, outputFile)
		return nil
	})
}
