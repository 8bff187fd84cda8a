package models

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/desertthunder/simsa/internal/shared"
)

// FileKind classifies an upload and determines its endpoint, target folder and allowed extensions.
type FileKind int

const (
	AudioArchive FileKind = iota
	CoverArchive
	CatalogDocument
	SingleImage
	SingleAudio
)

type kindSpec struct {
	name       string
	label      string
	endpoint   string
	folder     string
	extensions []string
}

var kinds = map[FileKind]kindSpec{
	AudioArchive:    {"audio_archive", "audio archive", "upload-zip/", "audio", []string{"zip"}},
	CoverArchive:    {"cover_archive", "cover archive", "upload-zip/", "cover", []string{"zip"}},
	CatalogDocument: {"catalog_document", "mapper document", "upload-json/", "mapper", []string{"json"}},
	SingleImage:     {"single_image", "cover image", "upload-img/", "cover", []string{"jpg", "jpeg", "png"}},
	SingleAudio:     {"single_audio", "MIDI", "upload-mid/", "audio", []string{"mid"}},
}

func (k FileKind) String() string { return kinds[k].name }

// Label is the human-readable kind used in messages.
func (k FileKind) Label() string { return kinds[k].label }

// Endpoint is the backend path, relative to the API prefix, that accepts this kind.
func (k FileKind) Endpoint() string { return kinds[k].endpoint }

// Folder is the server-side dataset folder sent with the upload.
func (k FileKind) Folder() string { return kinds[k].folder }

// Extensions lists the allowed lowercase extensions without the leading dot.
func (k FileKind) Extensions() []string { return kinds[k].extensions }

// Allows reports whether the file name has an extension permitted for k.
func (k FileKind) Allows(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	return ext != "" && slices.Contains(k.Extensions(), ext)
}

// UploadJob is a file selected for upload.
//
// An empty Path means nothing was selected for this slot; it fails validation without touching the network.
type UploadJob struct {
	ID     string
	Kind   FileKind
	Path   string
	Folder string
}

// NewUploadJob selects path for kind.
//
// A path with a disallowed extension returns an error and no job, so an invalid selection is never sent.
func NewUploadJob(kind FileKind, path string) (*UploadJob, error) {
	job := &UploadJob{
		ID:     shared.GenerateID(),
		Kind:   kind,
		Path:   path,
		Folder: kind.Folder(),
	}
	if path != "" {
		if err := job.Validate(); err != nil {
			return nil, err
		}
	}
	return job, nil
}

// Validate runs the local checks done before any network call.
func (j UploadJob) Validate() error {
	if j.Path == "" {
		return &shared.MissingFileError{Kind: j.Kind.Label(), Folder: j.Folder}
	}
	if !j.Kind.Allows(j.Path) {
		exts := make([]string, len(j.Kind.Extensions()))
		for i, ext := range j.Kind.Extensions() {
			exts[i] = "." + ext
		}
		return fmt.Errorf("%w: only %s files are allowed for the %s, got %s",
			shared.ErrInvalidFileType, strings.Join(exts, "/"), j.Kind.Label(), filepath.Base(j.Path))
	}
	return nil
}

// Filename is the base name sent in the multipart form.
func (j UploadJob) Filename() string {
	return filepath.Base(j.Path)
}
