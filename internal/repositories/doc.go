// Package repositories implements SQLite persistence for search history.
//
// [SearchRepository] implements [models.Repository] for [models.SearchRecord].
// Records are soft-deleted via deleted_at and excluded from queries by default.
//
// [HistoryRecorder] adapts the repository to the search session so every
// settled search is logged without disrupting the session on failure.
package repositories
