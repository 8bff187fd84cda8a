// Package models defines the domain types shared by the simsa client.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects: values decoded from, or sent to, the similarity-search backend
//   - [CatalogEntry] : one record of the dataset mapping document
//   - [UploadJob] : a file selected for upload, tagged with its [FileKind]
//   - [SearchResult] : the outcome of a cover or sound query
//
// 2. Persistent Entities: database-backed records
//   - [SearchRecord] : one settled search, kept as local history
//
// Persistent entities implement the [Model] interface and are stored through a [Repository].
package models
