package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/simsa/internal/models"
	"github.com/desertthunder/simsa/internal/shared"
)

var _ models.Repository[*models.SearchRecord] = (*SearchRepository)(nil)

// SearchRepository implements [models.Repository] for [models.SearchRecord] persistence.
type SearchRepository struct {
	db *sql.DB
}

// NewSearchRepository creates a new [SearchRepository] with the given database connection
func NewSearchRepository(db *sql.DB) *SearchRepository {
	return &SearchRepository{db: db}
}

const searchColumns = `id, flow, matched_ref, similarity, elapsed_ms, entry_name, entry_singer, error, created_at`

// Create inserts a settled search with a generated ID
func (r *SearchRepository) Create(record *models.SearchRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO searches (` + searchColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		id,
		record.Flow().String(),
		record.MatchedRef(),
		record.Similarity(),
		record.Elapsed().Milliseconds(),
		record.EntryName(),
		record.EntrySinger(),
		record.ErrorMessage(),
		record.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert search: %w", err)
	}

	record.SetID(id)
	return nil
}

// Get retrieves a search by ID, excluding soft-deleted rows
func (r *SearchRepository) Get(id string) (*models.SearchRecord, error) {
	query := `SELECT ` + searchColumns + ` FROM searches WHERE id = ? AND deleted_at IS NULL`

	record, err := scanSearch(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: search %s", shared.ErrRecordNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query search: %w", err)
	}
	return record, nil
}

// Delete soft-deletes a search by ID
func (r *SearchRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE searches SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete search: %w", err)
	}
	return affectOne(result, "search", id)
}

// List retrieves the most recent searches, newest first. A non-positive limit returns all.
func (r *SearchRepository) List(limit int) ([]*models.SearchRecord, error) {
	query := `SELECT ` + searchColumns + ` FROM searches WHERE deleted_at IS NULL ORDER BY created_at DESC, rowid DESC`

	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query searches: %w", err)
	}
	defer rows.Close()

	var records []*models.SearchRecord
	for rows.Next() {
		record, err := scanSearch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// Clear soft-deletes every live search and returns how many were removed
func (r *SearchRepository) Clear() (int64, error) {
	result, err := r.db.Exec(`UPDATE searches SET deleted_at = ? WHERE deleted_at IS NULL`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to clear searches: %w", err)
	}
	return result.RowsAffected()
}

func scanSearch(row scanner) (*models.SearchRecord, error) {
	var (
		id          string
		flow        string
		matchedRef  string
		similarity  float64
		elapsedMS   int64
		entryName   string
		entrySinger string
		errMessage  string
		createdAt   time.Time
	)

	if err := row.Scan(&id, &flow, &matchedRef, &similarity, &elapsedMS, &entryName, &entrySinger, &errMessage, &createdAt); err != nil {
		return nil, err
	}

	f, err := models.ParseFlow(flow)
	if err != nil {
		return nil, err
	}

	return models.RestoreSearchRecord(id, f, matchedRef, similarity, time.Duration(elapsedMS)*time.Millisecond,
		entryName, entrySinger, errMessage, createdAt), nil
}
