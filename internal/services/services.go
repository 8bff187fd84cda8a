package services

import (
	"context"
	"io"

	"github.com/desertthunder/simsa/internal/models"
)

// CatalogFetcher retrieves the full catalog document.
type CatalogFetcher interface {
	FetchCatalog(ctx context.Context) ([]models.CatalogEntry, error)
}

// Uploader sends a single file to the endpoint its kind maps to.
type Uploader interface {
	Upload(ctx context.Context, job models.UploadJob) (*UploadResponse, error)
}

// ResultFetcher retrieves the latest similarity-search outcome for a flow.
type ResultFetcher interface {
	FetchResult(ctx context.Context, flow models.Flow) (*ResultPayload, error)
}

// AssetFetcher streams a static asset (cover image or MIDI file) by its reference path.
type AssetFetcher interface {
	DownloadAsset(ctx context.Context, ref string, w io.Writer) (int64, error)
}

// Backend is everything the client consumes from the server.
type Backend interface {
	CatalogFetcher
	Uploader
	ResultFetcher
	AssetFetcher
	Ping(ctx context.Context) error
}

// UploadResponse is the `{message}` body returned by every upload endpoint.
type UploadResponse struct {
	Message string `json:"message"`
	Bytes   int64  `json:"-"` // payload size sent
}

// ResultPayload is the decoded body of a search-result endpoint.
type ResultPayload struct {
	MatchedRef string
	Similarity float64
}
