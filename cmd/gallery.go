package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/simsa/internal/playback"
	"github.com/desertthunder/simsa/internal/shared"
	"github.com/desertthunder/simsa/internal/ui"
	"github.com/urfave/cli/v3"
)

// Gallery launches the interactive terminal UI.
func (r *Runner) Gallery(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Logging.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Logging.Level))
	r.SetLogger(fileLogger)

	recorder, closeHistory := r.recorder()
	defer closeHistory()

	gate := playback.NewGate()
	player := playback.NewController(r.controllerOpts(gate, r.cache.Entries))
	defer player.Close()

	start := ui.GalleryView
	if cmd.Bool("import") {
		start = ui.ImportView
	}

	model := ui.NewModel(ctx, ui.Options{
		Coordinator: r.coordinator,
		Cache:       r.cache,
		Results:     r.api,
		Player:      player,
		Gate:        gate,
		Loader:      r.loader,
		Recorder:    recorder,
		CoverPrefix: r.config.Backend.CoverAssetPrefix,
		PageSize:    r.config.Gallery.PageSize,
		Start:       start,
		Logger:      fileLogger,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
