package playback

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/simsa/internal/services"
	"github.com/desertthunder/simsa/internal/shared"
	"github.com/dustin/go-humanize"
)

// ProcessEngine plays MIDI files with an external player command.
//
// Each Play downloads the asset to a temporary file and starts
// `command args... file` without waiting for it to exit.
type ProcessEngine struct {
	command string
	args    []string
	assets  services.AssetFetcher
	logger  *log.Logger

	playMu sync.Mutex // serializes Play; Stop never waits on it

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewProcessEngine creates an engine for command. logger may be nil.
func NewProcessEngine(command string, args []string, assets services.AssetFetcher, logger *log.Logger) *ProcessEngine {
	return &ProcessEngine{
		command: command,
		args:    slices.Clone(args),
		assets:  assets,
		logger:  logger,
	}
}

// ProcessLoader returns a [Loader] that resolves cfg.Command on PATH.
func ProcessLoader(cfg shared.PlayerConfig, assets services.AssetFetcher, logger *log.Logger) Loader {
	return func(ctx context.Context) (Engine, error) {
		path, err := exec.LookPath(cfg.Command)
		if err != nil {
			return nil, fmt.Errorf("player %q not found: %w", cfg.Command, err)
		}
		if logger != nil {
			logger.Debug("player resolved", "command", path)
		}
		return NewProcessEngine(path, cfg.Args, assets, logger), nil
	}
}

// Play stops any running player, fetches ref and launches the player on it.
// Nothing is launched once ctx is done.
func (e *ProcessEngine) Play(ctx context.Context, ref string) error {
	e.playMu.Lock()
	defer e.playMu.Unlock()

	if err := e.Stop(); err != nil {
		return err
	}

	path, err := e.download(ctx, ref)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		os.Remove(path)
		return err
	}

	cmd := exec.Command(e.command, append(slices.Clone(e.args), path)...)
	if err := cmd.Start(); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to start %s: %w", filepath.Base(e.command), err)
	}

	e.mu.Lock()
	e.cmd = cmd
	e.mu.Unlock()

	go func() {
		_ = cmd.Wait()
		os.Remove(path)

		e.mu.Lock()
		if e.cmd == cmd {
			e.cmd = nil
		}
		e.mu.Unlock()
	}()

	return nil
}

func (e *ProcessEngine) download(ctx context.Context, ref string) (string, error) {
	f, err := os.CreateTemp("", "simsa-*"+filepath.Ext(ref))
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	n, err := e.assets.DownloadAsset(ctx, ref, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(f.Name())
		return "", err
	}

	if e.logger != nil {
		e.logger.Debug("asset downloaded", "ref", ref, "size", humanize.Bytes(uint64(n)))
	}
	return f.Name(), nil
}

// Stop kills the running player, if any.
func (e *ProcessEngine) Stop() error {
	e.mu.Lock()
	cmd := e.cmd
	e.cmd = nil
	e.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to stop player: %w", err)
	}
	return nil
}
