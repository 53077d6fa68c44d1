package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/repositories"
	"github.com/desertthunder/spotsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// UsersCreate registers a new user account.
func (r *Runner) UsersCreate(ctx context.Context, cmd *cli.Command) error {
	email := cmd.String("email")
	if email == "" {
		return fmt.Errorf("%w: --email flag is required", shared.ErrMissingArgument)
	}

	return r.withDatabase(func(db *sql.DB) error {
		repo := repositories.NewUserRepository(db)
		user := &models.User{Email: email, Name: cmd.String("name")}

		if err := repo.Create(ctx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		r.logger.Info("user created", "id", user.ID, "email", user.Email)
		r.writePlain("✓ User created\n")
		r.writePlain("  ID:    %s\n", user.ID)
		r.writePlain("  Email: %s\n", user.Email)
		return nil
	})
}

// UsersShow prints a user's details and Spotify link status.
func (r *Runner) UsersShow(ctx context.Context, cmd *cli.Command) error {
	email := cmd.String("email")
	if email == "" {
		return fmt.Errorf("%w: --email flag is required", shared.ErrMissingArgument)
	}

	return r.withDatabase(func(db *sql.DB) error {
		user, err := repositories.NewUserRepository(db).GetByEmail(ctx, email)
		if err != nil {
			return err
		}

		if cmd.Bool("json") {
			return r.writeJSON(map[string]any{
				"id":        user.ID,
				"email":     user.Email,
				"name":      user.Name,
				"connected": user.HasSpotifyAccount(),
			}, cmd.Bool("pretty"))
		}

		r.writePlain("User #%d\n", user.Sequence)
		r.writePlain("  ID:    %s\n", user.ID)
		r.writePlain("  Email: %s\n", user.Email)
		if user.Name != "" {
			r.writePlain("  Name:  %s\n", user.Name)
		}
		if user.HasSpotifyAccount() {
			r.writePlain("  Spotify: connected (token expires %s)\n", user.SpotifyAccount.TokenExpiresAt.Format("2006-01-02 15:04:05 MST"))
		} else {
			r.writePlain("  Spotify: not connected\n")
		}
		return nil
	})
}
