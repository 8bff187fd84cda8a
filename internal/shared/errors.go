package shared

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Input validation errors, all caught before any network call
	ErrValidation      = fmt.Errorf("validation failed")
	ErrMissingFile     = fmt.Errorf("%w: no file selected", ErrValidation)
	ErrInvalidFileType = fmt.Errorf("%w: file type not allowed", ErrValidation)
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")

	// Backend errors
	ErrNetwork            = fmt.Errorf("network request failed")
	ErrParse              = fmt.Errorf("malformed response")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Playback errors
	ErrPlaybackPrecondition = fmt.Errorf("playback unavailable")
	ErrEngineNotLoaded      = fmt.Errorf("%w: transport engine not loaded", ErrPlaybackPrecondition)
	ErrNoActiveTrack        = fmt.Errorf("%w: no active track", ErrPlaybackPrecondition)

	// Persistence errors
	ErrRecordNotFound = fmt.Errorf("record not found")
)

// ResponseError is a non-success HTTP status from the backend.
//
// Message carries the server's `message` (or `error`) field when the body had one.
type ResponseError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *ResponseError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s returned %d: %s", ErrNetwork, e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s returned %d", ErrNetwork, e.Endpoint, e.StatusCode)
}

func (e *ResponseError) Unwrap() error { return ErrNetwork }

// MissingFileError reports an upload slot with no selected file.
type MissingFileError struct {
	Kind   string
	Folder string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("please select the %s file to upload to %s", e.Kind, e.Folder)
}

func (e *MissingFileError) Unwrap() error { return ErrMissingFile }

// UserMessage converts err into the status line shown to the user.
//
// Server-provided messages are surfaced verbatim; transport failures get a generic retry hint.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var respErr *ResponseError
	var missing *MissingFileError
	switch {
	case errors.As(err, &respErr) && respErr.Message != "":
		return "Error: " + respErr.Message
	case errors.As(err, &missing):
		return missing.Error()
	case errors.Is(err, ErrValidation), errors.Is(err, ErrPlaybackPrecondition):
		return err.Error()
	case errors.Is(err, ErrParse):
		return "The server sent a response that could not be read."
	case errors.Is(err, ErrNetwork):
		return "An unexpected error occurred. Please try again."
	default:
		return err.Error()
	}
}
