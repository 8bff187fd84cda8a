package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/simsa/internal/models"
	"github.com/desertthunder/simsa/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Ping checks that the backend answers its connection test endpoint.
func (r *Runner) Ping(ctx context.Context, cmd *cli.Command) error {
	if err := r.api.Ping(ctx); err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}

	r.writePlain("✓ Backend is reachable at %s\n", r.config.Backend.BaseURL)
	return nil
}

// DatasetImport uploads the three dataset files strictly in order, stopping at the first failure.
//
// Every slot is checked locally before anything is sent.
func (r *Runner) DatasetImport(ctx context.Context, cmd *cli.Command) error {
	slots := []struct {
		kind models.FileKind
		flag string
	}{
		{models.AudioArchive, "audio"},
		{models.CoverArchive, "cover"},
		{models.CatalogDocument, "mapper"},
	}

	jobs := make([]models.UploadJob, 0, len(slots))
	for _, slot := range slots {
		job, err := models.NewUploadJob(slot.kind, cmd.String(slot.flag))
		if err != nil {
			return err
		}
		jobs = append(jobs, *job)
	}

	r.writePlainHeader("Importing dataset")

	progress := make(chan tasks.ProgressUpdate, 10)
	done := r.reportProgress(progress)
	err := r.coordinator.Submit(ctx, jobs, progress)
	close(progress)
	<-done

	if err != nil {
		return err
	}

	r.logger.Info("dataset imported", "files", len(jobs))
	r.writePlainln("✓ Dataset imported. Run 'simsa catalog list' or 'simsa gallery' to browse it.")
	return nil
}
