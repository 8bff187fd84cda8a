package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/simsa/internal/services"
	"github.com/desertthunder/simsa/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config, err := shared.LoadConfig("config.toml")
	if err != nil {
		if !errors.Is(err, shared.ErrMissingConfig) {
			logger.Warn("failed to load config.toml, using defaults", "error", err)
		}
		config = shared.DefaultConfig()
	}
	shared.SetLogLevel(logger, shared.ParseLogLevel(config.Logging.Level))

	runner := NewRunner(RunnerOpts{
		Config: config,
		API:    services.NewAPIServiceFromConfig(config.Backend),
		Logger: logger,
	})

	app := &cli.Command{
		Name:     "simsa",
		Usage:    "Upload song datasets, search them by cover image or MIDI, and play the matches",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		logger.Fatal(shared.UserMessage(err), "error", err)
	}
}
