package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/simsa/internal/catalog"
	"github.com/desertthunder/simsa/internal/models"
	"github.com/desertthunder/simsa/internal/playback"
	"github.com/desertthunder/simsa/internal/shared"
	"github.com/desertthunder/simsa/internal/tasks"
)

func fetchCatalog(ctx context.Context, cache *catalog.Cache) tea.Cmd {
	return func() tea.Msg {
		entries, err := cache.Fetch(ctx)
		return catalogFetchedMsg(entries, err)
	}
}

func submitDataset(ctx context.Context, c *tasks.Coordinator, jobs []models.UploadJob, progress chan tasks.ProgressUpdate) tea.Cmd {
	return func() tea.Msg {
		defer close(progress)
		if c == nil {
			return importCompleteMsg(shared.ErrServiceUnavailable)
		}
		return importCompleteMsg(c.Submit(ctx, jobs, progress))
	}
}

func submitQuery(ctx context.Context, c *tasks.Coordinator, flow models.Flow, job models.UploadJob, progress chan tasks.ProgressUpdate) tea.Cmd {
	return func() tea.Msg {
		defer close(progress)
		if c == nil {
			return queryUploadedMsg(flow, "", shared.ErrServiceUnavailable)
		}
		resp, err := c.SubmitQuery(ctx, job, progress)
		if err != nil {
			return queryUploadedMsg(flow, "", err)
		}
		return queryUploadedMsg(flow, resp.Message, nil)
	}
}

// awaitSession blocks until the current attempt settles.
func awaitSession(ctx context.Context, s *tasks.Session) tea.Cmd {
	return func() tea.Msg {
		snap, err := s.Wait(ctx)
		if err != nil && isCanceled(err) {
			return nil
		}
		return searchSettledMsg(snap)
	}
}

// waitForProgress reads the next update; a closed channel ends the loop.
func waitForProgress(progress chan tasks.ProgressUpdate) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			return nil
		}
		return progressUpdateMsg(update)
	}
}

func playbackCmd(fn func() error) tea.Cmd {
	return func() tea.Msg {
		return playbackMsg(fn())
	}
}

func loadEngine(ctx context.Context, gate *playback.Gate, loader playback.Loader) tea.Cmd {
	return func() tea.Msg {
		gate.Load(ctx, loader, nil)
		return engineLoadedMsg(gate.Wait(ctx))
	}
}

func playerTick() tea.Cmd {
	return tea.Tick(playerTickInterval, func(time.Time) tea.Msg {
		return playerTickMsg()
	})
}
