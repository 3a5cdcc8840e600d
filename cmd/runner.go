package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibesync/internal/events"
	"github.com/desertthunder/vibesync/internal/repositories"
	"github.com/desertthunder/vibesync/internal/services"
	"github.com/desertthunder/vibesync/internal/shared"
	"github.com/desertthunder/vibesync/internal/tasks"
	"github.com/desertthunder/vibesync/internal/watch"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database, sync client and engine are opened on first use so commands that do not need them stay cheap.
type Runner struct {
	config     *shared.Config
	logger     *log.Logger
	output     io.Writer
	httpClient *http.Client
	clock      shared.Clock
	bus        *events.Bus

	db       *sql.DB
	ownsDB   bool
	touching bool
	store    *repositories.Store
	sessions *services.SessionStore
	client   *services.SyncClient
	engine   *tasks.SyncEngine
	closers  []io.Closer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	Logger     *log.Logger
	Output     io.Writer
	HTTPClient *http.Client
	DB         *sql.DB // an already migrated library; opened from config when nil
	Clock      shared.Clock
}

// NewRunner creates a new Runner with the provided configuration.
//
// A nil Config is loaded from the --config flag before any command runs.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Clock == nil {
		opts.Clock = shared.SystemClock
	}

	return &Runner{
		config:     opts.Config,
		logger:     opts.Logger,
		output:     opts.Output,
		httpClient: opts.HTTPClient,
		clock:      opts.Clock,
		bus:        events.NewBus(),
		db:         opts.DB,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, syncCommand, albumCommand, songCommand, playlistCommand,
		statsCommand, backupCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// app builds the root command.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "vibe",
		Usage:   "Offline-first music library with VibeSync",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("VIBE_CONFIG"),
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before:   r.before,
		After:    r.after,
		Commands: r.register(),
	}
}

// before loads the configuration unless one was injected, and applies the log level.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.config == nil || cmd.IsSet("config") {
		config, err := shared.LoadConfigOrDefault(cmd.String("config"))
		if err != nil {
			return ctx, err
		}
		r.config = config
	}

	if err := r.config.Validate(); err != nil {
		return ctx, err
	}
	if err := shared.ApplyLogLevel(r.logger, r.config.Log.Level); err != nil {
		r.logger.Warn("invalid log level, keeping default", "level", r.config.Log.Level)
	}
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	return ctx, nil
}

func (r *Runner) after(context.Context, *cli.Command) error {
	return r.Close()
}

// SetLogger replaces the logger, e.g. with a file logger for long-running commands.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// useFileLogger switches to the rotating file logger, falling back to fallback when no file is configured.
func (r *Runner) useFileLogger(fallback string) error {
	conf := r.config.Log
	if conf.File == "" {
		conf.File = fallback
	}
	if conf.File == "" {
		return nil
	}

	logger, closer, err := shared.NewFileLogger(conf)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	logger.SetLevel(r.logger.GetLevel())
	r.SetLogger(logger)
	r.closers = append(r.closers, closer)
	return nil
}

// Store opens the local library.
//
// Local writes made through it publish on the runner's bus and touch the change marker so a running daemon notices them.
func (r *Runner) Store() (*repositories.Store, error) {
	if r.store != nil {
		return r.store, nil
	}

	if r.db == nil {
		db, err := shared.OpenLibrary(r.config.Database)
		if err != nil {
			return nil, err
		}
		r.db, r.ownsDB = db, true
	}

	if path := r.config.ChangeMarkerPath(); path != "" && !r.touching {
		r.bus.Subscribe(watch.Toucher(path, r.logger))
		r.touching = true
	}

	r.store = repositories.NewStore(r.db, repositories.WithPublisher(r.bus), repositories.WithClock(r.clock))
	return r.store, nil
}

// Client returns the VibeSync API client.
func (r *Runner) Client() *services.SyncClient {
	if r.client == nil {
		api := services.NewAPIService(r.config.Sync.APIURL, r.httpClient, r.config.Sync.RequestsPerSecond)
		r.sessions = services.NewSessionStore(r.config.Sync.SessionPath)
		r.client = services.NewSyncClient(api, r.sessions, r.logger)
	}
	return r.client
}

// Engine returns the sync engine over the local library and the API client.
func (r *Runner) Engine() (*tasks.SyncEngine, error) {
	if r.engine != nil {
		return r.engine, nil
	}

	store, err := r.Store()
	if err != nil {
		return nil, err
	}

	r.engine = tasks.NewSyncEngine(store, r.Client(),
		tasks.WithEvents(r.bus),
		tasks.WithEngineClock(r.clock),
		tasks.WithEngineLogger(r.logger),
	)
	return r.engine, nil
}

// Close releases the database and any log files.
func (r *Runner) Close() error {
	var errs []error
	if r.ownsDB && r.db != nil {
		errs = append(errs, r.db.Close())
		r.db, r.ownsDB, r.store, r.engine = nil, false, nil, nil
	}
	for _, c := range r.closers {
		errs = append(errs, c.Close())
	}
	r.closers = nil
	return errors.Join(errs...)
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

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
