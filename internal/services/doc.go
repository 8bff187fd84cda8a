// Package services implements the HTTP client for the similarity-search backend.
//
// # Backend Interface
//
// Consumers depend on the narrow interfaces in this package ([CatalogFetcher], [Uploader], [ResultFetcher],
// [AssetFetcher]) rather than on [APIService] directly, so tests can substitute doubles.
//
// # Endpoints
//
// All API paths are relative to the configured prefix (default /simsalabim/):
//   - fetch-mapper/ : catalog document
//   - upload-zip/, upload-json/, upload-img/, upload-mid/ : multipart uploads (file, folder)
//   - cover-search-result/, audio-search-result/ : latest query outcome
//   - test/ : connection check
//
// Static assets (cover images, MIDI files) are fetched by reference path relative to the base URL.
//
// # Error Handling
//
// Errors wrap sentinels from the shared package:
//   - [shared.ErrNetwork] : transport failure or non-success status ([shared.ResponseError] carries the server message)
//   - [shared.ErrParse] : body was not the expected JSON
//
// No request is retried.
package services
