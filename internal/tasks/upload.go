package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/simsa/internal/models"
	"github.com/desertthunder/simsa/internal/services"
	"github.com/desertthunder/simsa/internal/shared"
)

// UploadError is the first failed job of a submission.
type UploadError struct {
	Job models.UploadJob
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload of %s (%s) failed: %v", e.Job.Filename(), e.Job.Kind.Label(), e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// Coordinator submits upload jobs strictly in order.
type Coordinator struct {
	uploader services.Uploader
	logger   *log.Logger
}

// NewCoordinator creates a Coordinator. logger may be nil.
func NewCoordinator(uploader services.Uploader, logger *log.Logger) *Coordinator {
	return &Coordinator{uploader: uploader, logger: logger}
}

// Submit validates all jobs, then uploads them sequentially and stops at the first failure.
//
// Validation errors are returned as-is and no request is made. An upload
// failure is returned as an [*UploadError]; jobs after it are never attempted.
func (c *Coordinator) Submit(ctx context.Context, jobs []models.UploadJob, progress chan<- ProgressUpdate) error {
	if c.uploader == nil {
		return fmt.Errorf("%w: uploader not initialized", shared.ErrServiceUnavailable)
	}
	if _, err := c.send(ctx, jobs, progress); err != nil {
		return err
	}

	sendProgress(progress, importSucceededUpdate(len(jobs)))
	return nil
}

// SubmitQuery uploads a single cover image or MIDI file to be searched.
func (c *Coordinator) SubmitQuery(ctx context.Context, job models.UploadJob, progress chan<- ProgressUpdate) (*services.UploadResponse, error) {
	if c.uploader == nil {
		return nil, fmt.Errorf("%w: uploader not initialized", shared.ErrServiceUnavailable)
	}
	if job.Kind != models.SingleImage && job.Kind != models.SingleAudio {
		return nil, fmt.Errorf("%w: %s is not a query file kind", shared.ErrInvalidArgument, job.Kind.Label())
	}

	responses, err := c.send(ctx, []models.UploadJob{job}, progress)
	if err != nil {
		return nil, err
	}

	sendProgress(progress, queryUploadedUpdate(job, responses[0]))
	return responses[0], nil
}

func (c *Coordinator) send(ctx context.Context, jobs []models.UploadJob, progress chan<- ProgressUpdate) ([]*services.UploadResponse, error) {
	if len(jobs) == 0 {
		return nil, fmt.Errorf("%w: no files to upload", shared.ErrMissingArgument)
	}

	for _, job := range jobs {
		if err := job.Validate(); err != nil {
			return nil, err
		}
	}

	total := len(jobs)
	sendProgress(progress, validateUpdate(total))

	responses := make([]*services.UploadResponse, 0, total)
	for i, job := range jobs {
		sendProgress(progress, uploadingUpdate(i+1, total, job))

		resp, err := c.uploader.Upload(ctx, job)
		if err != nil {
			if c.logger != nil {
				c.logger.Error("upload failed", "file", job.Filename(), "folder", job.Folder, "skipped", total-i-1, "error", err)
			}
			return nil, &UploadError{Job: job, Err: err}
		}

		if c.logger != nil {
			c.logger.Info("uploaded", "file", job.Filename(), "folder", job.Folder, "bytes", resp.Bytes)
		}
		sendProgress(progress, uploadedUpdate(i+1, total, job, resp))
		responses = append(responses, resp)
	}

	return responses, nil
}
