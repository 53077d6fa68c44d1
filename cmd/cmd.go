// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles setup operations for database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// usersCommand handles user account operations
func usersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "users",
		Aliases: []string{"user"},
		Usage:   "Manage user accounts",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a new user account",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Usage:    "Email address for the account",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Display name",
					},
				},
				Action: r.UsersCreate,
			},
			{
				Name:  "show",
				Usage: "Show a user and their Spotify link status",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Usage:    "Email address of the account",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.UsersShow,
			},
		},
	}
}

// spotifyCommand handles Spotify account and sync operations
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify account and sync operations",
		Commands: []*cli.Command{
			{
				Name:  "connect",
				Usage: "Link a Spotify account using OAuth2",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Usage:    "Email address of the account to link",
						Required: true,
					},
				},
				Action: r.SpotifyConnect,
			},
			{
				Name:  "sync",
				Usage: "Sync the Spotify library into the local database",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Usage:    "Email address of the account to sync",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Sync every category (default when no category flag is given)",
					},
					&cli.BoolFlag{
						Name:  "top-artists",
						Usage: "Sync top artists",
					},
					&cli.BoolFlag{
						Name:  "top-tracks",
						Usage: "Sync top tracks",
					},
					&cli.BoolFlag{
						Name:  "saved-tracks",
						Usage: "Sync saved tracks",
					},
					&cli.BoolFlag{
						Name:  "playlist-tracks",
						Usage: "Sync playlist tracks",
					},
					&cli.BoolFlag{
						Name:  "purge-all",
						Usage: "Delete all synced records before syncing",
					},
					&cli.BoolFlag{
						Name:  "purge-top-artists",
						Usage: "Delete top artists before syncing",
					},
					&cli.BoolFlag{
						Name:  "purge-top-tracks",
						Usage: "Delete top tracks before syncing",
					},
					&cli.BoolFlag{
						Name:  "purge-saved-tracks",
						Usage: "Delete saved tracks before syncing",
					},
					&cli.BoolFlag{
						Name:  "purge-playlist-tracks",
						Usage: "Delete playlist tracks before syncing",
					},
					&cli.IntFlag{
						Name:  "page-limit",
						Usage: "Items per API page (1-50)",
					},
					&cli.StringFlag{
						Name:  "time-range",
						Usage: "Time range for top items (short_term, medium_term, long_term)",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Rows per upsert batch (1-500)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output the report as JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.SpotifySync,
			},
		},
	}
}

// libraryCommand handles synced library inspection and export
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Browse and export the synced library",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List synced artists or tracks",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Usage:    "Email address of the account",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "kind",
						Usage: "What to list (artists or tracks)",
						Value: "tracks",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of rows to return",
						Value: 50,
					},
					&cli.IntFlag{
						Name:  "offset",
						Usage: "Number of rows to skip",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
					&cli.BoolFlag{
						Name:  "csv",
						Usage: "Output CSV",
					},
				},
				Action: r.LibraryList,
			},
			{
				Name:  "export",
				Usage: "Export synced artists or tracks to a CSV file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Usage:    "Email address of the account",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "kind",
						Usage: "What to export (artists or tracks)",
						Value: "tracks",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of rows to export",
					},
				},
				Action: r.LibraryExport,
			},
		},
	}
}

// recommendCommand handles Last.fm similar track lookups
func recommendCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "recommend",
		Aliases: []string{"rec"},
		Usage:   "Find similar tracks via Last.fm",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "artist",
				Usage: "Seed track artist",
			},
			&cli.StringFlag{
				Name:  "track",
				Usage: "Seed track name",
			},
			&cli.StringFlag{
				Name:  "email",
				Usage: "Seed from this account's synced library instead",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of recommendations",
				Value: 10,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.Recommend,
	}
}

// tuiCommand returns the top-level TUI command for interactive library browsing.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive library browser",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "email",
				Usage:    "Email address of the account",
				Required: true,
			},
		},
		Action: r.TUI,
	}
}
