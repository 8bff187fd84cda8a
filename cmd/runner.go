package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/simsa/internal/catalog"
	"github.com/desertthunder/simsa/internal/models"
	"github.com/desertthunder/simsa/internal/playback"
	"github.com/desertthunder/simsa/internal/repositories"
	"github.com/desertthunder/simsa/internal/services"
	"github.com/desertthunder/simsa/internal/shared"
	"github.com/desertthunder/simsa/internal/tasks"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	api         *services.APIService
	logger      *log.Logger
	output      io.Writer
	coordinator *tasks.Coordinator
	cache       *catalog.Cache
	loader      playback.Loader
	customLoad  playback.Loader
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	API    *services.APIService
	Logger *log.Logger
	Output io.Writer
	Loader playback.Loader // defaults to the configured player command
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
	if opts.API == nil {
		opts.API = services.NewAPIServiceFromConfig(opts.Config.Backend)
	}

	r := &Runner{
		config:     opts.Config,
		api:        opts.API,
		output:     opts.Output,
		customLoad: opts.Loader,
	}
	r.SetLogger(opts.Logger)
	return r
}

// SetLogger replaces the logger used by the runner and the components it owns.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
	r.coordinator = tasks.NewCoordinator(r.api, shared.WithLogger(logger, "component", "upload"))
	r.cache = catalog.NewCache(r.api, shared.WithLogger(logger, "component", "catalog"))
	r.loader = r.customLoad
	if r.loader == nil {
		r.loader = playback.ProcessLoader(r.config.Player, r.api, shared.WithLogger(logger, "component", "player"))
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, pingCommand, datasetCommand, catalogCommand, searchCommand, historyCommand, galleryCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// openHistory opens the configured database. The returned close func is always safe to call.
func (r *Runner) openHistory() (*repositories.SearchRepository, func(), error) {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, func() {}, err
	}
	return repositories.NewSearchRepository(db), func() { closeDB(r.logger, db) }, nil
}

func closeDB(logger *log.Logger, db *sql.DB) {
	if err := db.Close(); err != nil {
		logger.Warn("failed to close database", "error", err)
	}
}

// recorder returns a history recorder, or nil when the database cannot be opened.
func (r *Runner) recorder() (tasks.Recorder, func()) {
	repo, closeFn, err := r.openHistory()
	if err != nil {
		r.logger.Warn("search history disabled", "error", err)
		return nil, closeFn
	}
	return repositories.NewHistoryRecorder(repo), closeFn
}

func (r *Runner) controllerOpts(gate *playback.Gate, entries func() []models.CatalogEntry) playback.ControllerOpts {
	return playback.ControllerOpts{
		Gate:              gate,
		Entries:           entries,
		EstimatedDuration: time.Duration(r.config.Player.EstimatedDurationSeconds) * time.Second,
		TickInterval:      time.Duration(r.config.Player.TickSeconds) * time.Second,
		Logger:            shared.WithLogger(r.logger, "component", "player"),
	}
}

// playAndWait plays track and blocks until it finishes, is stopped or ctx is done.
func (r *Runner) playAndWait(ctx context.Context, entries []models.CatalogEntry, track models.CatalogEntry) error {
	gate := playback.NewGate()
	gate.Load(ctx, r.loader, nil)
	if err := gate.Wait(ctx); err != nil {
		return err
	}

	finished := make(chan struct{})
	var once sync.Once

	opts := r.controllerOpts(gate, func() []models.CatalogEntry { return entries })
	opts.OnChange = func(s playback.State) {
		if s.Status == playback.Stopped {
			once.Do(func() { close(finished) })
		}
	}
	player := playback.NewController(opts)
	defer player.Close()

	if err := player.Play(ctx, track); err != nil {
		return err
	}
	r.writePlain("▶ Playing %s (ctrl+c to stop)\n", track.Title())

	select {
	case <-finished:
		r.writePlain("■ Finished %s\n", track.Title())
	case <-ctx.Done():
		r.writePlain("■ Stopped %s\n", track.Title())
	}
	return nil
}

// reportProgress prints updates until progress is closed; the returned channel closes after the last one.
func (r *Runner) reportProgress(progress <-chan tasks.ProgressUpdate) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Debug("progress", "phase", update.Phase, "step", update.Step, "total", update.Total)
			r.writePlain("[%d/%d] %s\n", update.Step, update.Total, update.Message)
		}
	}()
	return done
}

// isTerminal reports whether output is an interactive terminal.
func (r *Runner) isTerminal() bool {
	file, ok := r.output.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
