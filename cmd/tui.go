package main

import (
	"context"
	"database/sql"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/repositories"
	"github.com/desertthunder/spotsync/internal/shared"
	"github.com/desertthunder/spotsync/internal/ui"
	"github.com/urfave/cli/v3"
)

// repoLibrary adapts the repositories to the browser's library source,
// scoped to one user.
type repoLibrary struct {
	userID  string
	artists *repositories.ArtistRepository
	tracks  *repositories.TrackRepository
	limit   int
}

func (l *repoLibrary) Artists(ctx context.Context) ([]models.Artist, error) {
	return l.artists.GetList(ctx, l.userID, 0, l.limit)
}

func (l *repoLibrary) Tracks(ctx context.Context) ([]models.Track, error) {
	return l.tracks.GetList(ctx, l.userID, 0, l.limit)
}

// TUI launches the interactive library browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	email := cmd.String("email")
	if email == "" {
		return fmt.Errorf("%w: --email flag is required", shared.ErrMissingArgument)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/spotsync-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	return r.withDatabase(func(db *sql.DB) error {
		user, err := repositories.NewUserRepository(db).GetByEmail(ctx, email)
		if err != nil {
			return err
		}

		library := &repoLibrary{
			userID:  user.ID,
			artists: repositories.NewArtistRepository(db),
			tracks:  repositories.NewTrackRepository(db),
			limit:   defaultExportLimit,
		}

		model := ui.NewModel(ctx, library)
		p := tea.NewProgram(model)

		if _, err := p.Run(); err != nil {
			return fmt.Errorf("error running TUI: %w", err)
		}
		return nil
	})
}
