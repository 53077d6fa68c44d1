package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotsync/internal/services"
	"github.com/desertthunder/spotsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	logger *log.Logger
	output io.Writer

	// db is injected in tests; commands otherwise open the configured database per invocation.
	db *sql.DB

	spotify *services.SpotifyClient
	lastfm  *services.LastFMClient
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config  *shared.Config
	Logger  *log.Logger
	Output  io.Writer
	DB      *sql.DB
	Spotify *services.SpotifyClient
	LastFM  *services.LastFMClient
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:  opts.Config,
		logger:  opts.Logger,
		output:  opts.Output,
		db:      opts.DB,
		spotify: opts.Spotify,
		lastfm:  opts.LastFM,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, usersCommand, spotifyCommand, libraryCommand, recommendCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the runner's logger, e.g. to redirect logs to a file
// while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// withDatabase runs fn against the injected database, or opens the configured
// one for the duration of the call.
func (r *Runner) withDatabase(fn func(db *sql.DB) error) error {
	if r.db != nil {
		return fn(r.db)
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	return fn(db)
}

// spotifyClient returns the configured Spotify client, constructing it on
// first use.
func (r *Runner) spotifyClient() (*services.SpotifyClient, error) {
	if r.spotify != nil {
		return r.spotify, nil
	}

	client, err := services.NewSpotifyClient(r.config.Credentials.Spotify)
	if err != nil {
		return nil, fmt.Errorf("%w: set credentials.spotify in config.toml", err)
	}
	r.spotify = client
	return client, nil
}

// lastfmClient returns the configured Last.fm client, constructing it on
// first use.
func (r *Runner) lastfmClient() (*services.LastFMClient, error) {
	if r.lastfm != nil {
		return r.lastfm, nil
	}

	client, err := services.NewLastFMClient(r.config.Credentials.LastFM)
	if err != nil {
		return nil, fmt.Errorf("%w: set credentials.lastfm in config.toml", err)
	}
	r.lastfm = client
	return client, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
