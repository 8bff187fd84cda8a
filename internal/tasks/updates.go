package tasks

import (
	"fmt"

	"github.com/desertthunder/simsa/internal/models"
	"github.com/desertthunder/simsa/internal/services"
	"github.com/dustin/go-humanize"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ValidateFiles Phase = iota
	UploadFile
	ImportSucceeded
	QueryUploaded
	FetchCatalog
	FetchResult
	MatchResult
)

func (p Phase) String() string {
	switch p {
	case ValidateFiles:
		return "validate_files"
	case UploadFile:
		return "upload_file"
	case ImportSucceeded:
		return "import_succeeded"
	case QueryUploaded:
		return "query_uploaded"
	case FetchCatalog:
		return "fetch_catalog"
	case FetchResult:
		return "fetch_result"
	case MatchResult:
		return "match_result"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func validateUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ValidateFiles,
		Step:    total,
		Total:   total,
		Message: fmt.Sprintf("Validated %d file(s)", total),
	}
}

func uploadingUpdate(step, total int, job models.UploadJob) ProgressUpdate {
	return ProgressUpdate{
		Phase:   UploadFile,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Uploading %s to %s...", step, total, job.Filename(), job.Folder),
	}
}

func uploadedUpdate(step, total int, job models.UploadJob, resp *services.UploadResponse) ProgressUpdate {
	return ProgressUpdate{
		Phase:   UploadFile,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%s): %s", step, total, job.Filename(), humanize.Bytes(uint64(resp.Bytes)), resp.Message),
		Data:    resp,
	}
}

func importSucceededUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportSucceeded,
		Step:    total,
		Total:   total,
		Message: "Dataset imported successfully",
	}
}

func queryUploadedUpdate(job models.UploadJob, resp *services.UploadResponse) ProgressUpdate {
	return ProgressUpdate{
		Phase:   QueryUploaded,
		Step:    1,
		Total:   1,
		Message: resp.Message,
		Data:    job,
	}
}
