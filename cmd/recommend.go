package main

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/repositories"
	"github.com/desertthunder/spotsync/internal/services"
	"github.com/desertthunder/spotsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// seedTrackCount bounds how many library tracks seed a recommendation run.
const seedTrackCount = 5

// Recommend prints tracks similar to a seed track using Last.fm. The seed is
// either given explicitly (--artist and --track) or drawn from the user's
// synced library (--email).
func (r *Runner) Recommend(ctx context.Context, cmd *cli.Command) error {
	artist := cmd.String("artist")
	track := cmd.String("track")
	email := cmd.String("email")

	if (artist == "" || track == "") && email == "" {
		return fmt.Errorf("%w: provide --artist and --track, or --email to seed from the library", shared.ErrMissingArgument)
	}

	client, err := r.lastfmClient()
	if err != nil {
		return err
	}

	limit := cmd.Int("limit")
	if limit <= 0 {
		limit = 10
	}

	if artist != "" && track != "" {
		similar, err := client.SimilarTracks(ctx, artist, track, limit)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}
		return r.printSimilar(cmd, fmt.Sprintf("%s - %s", artist, track), similar)
	}

	return r.withDatabase(func(db *sql.DB) error {
		user, err := repositories.NewUserRepository(db).GetByEmail(ctx, email)
		if err != nil {
			return err
		}

		seeds, err := repositories.NewTrackRepository(db).GetList(ctx, user.ID, 0, seedTrackCount)
		if err != nil {
			return fmt.Errorf("failed to load seed tracks: %w", err)
		}
		if len(seeds) == 0 {
			return fmt.Errorf("%w: no synced tracks to seed from, run a sync first", shared.ErrInvalidInput)
		}

		similar, err := r.similarForSeeds(ctx, client, seeds, limit)
		if err != nil {
			return err
		}
		return r.printSimilar(cmd, fmt.Sprintf("%s's library", user.Email), similar)
	})
}

// similarForSeeds merges recommendations across seed tracks, deduplicating by
// artist and name with the best match score kept.
func (r *Runner) similarForSeeds(ctx context.Context, client *services.LastFMClient, seeds []models.Track, limit int) ([]services.SimilarTrack, error) {
	byKey := make(map[string]services.SimilarTrack)

	for _, seed := range seeds {
		if len(seed.Artists) == 0 {
			continue
		}

		similar, err := client.SimilarTracks(ctx, seed.Artists[0].Name, seed.Name, limit)
		if err != nil {
			r.logger.Warn("similar lookup failed for seed", "track", seed.Name, "error", err)
			continue
		}

		for _, s := range similar {
			key := s.Artist + "\x00" + s.Name
			if existing, ok := byKey[key]; !ok || s.Match > existing.Match {
				byKey[key] = s
			}
		}
	}

	merged := make([]services.SimilarTrack, 0, len(byKey))
	for _, s := range byKey {
		merged = append(merged, s)
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Match > merged[j].Match })

	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

func (r *Runner) printSimilar(cmd *cli.Command, seed string, similar []services.SimilarTrack) error {
	if cmd.Bool("json") {
		return r.writeJSON(similar, cmd.Bool("pretty"))
	}

	if len(similar) == 0 {
		r.writePlain("No similar tracks found for %s\n", seed)
		return nil
	}

	r.writePlain("Tracks similar to %s:\n\n", seed)
	for i, s := range similar {
		r.writePlain("%d. %s - %s (match %.2f)\n", i+1, s.Artist, s.Name, s.Match)
	}
	return nil
}
