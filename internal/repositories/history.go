package repositories

import (
	"github.com/desertthunder/simsa/internal/models"
)

// HistoryRecorder implements tasks.Recorder using [SearchRepository].
type HistoryRecorder struct {
	repo *SearchRepository
}

// NewHistoryRecorder creates a new HistoryRecorder with the given repository
func NewHistoryRecorder(repo *SearchRepository) *HistoryRecorder {
	return &HistoryRecorder{repo: repo}
}

// RecordSearch stores the outcome of a settled search. match and err may be nil.
func (h *HistoryRecorder) RecordSearch(flow models.Flow, result *models.SearchResult, match *models.CatalogEntry, err error) error {
	return h.repo.Create(models.NewSearchRecord(flow, result, match, err))
}
