package data

import (
	"errors"
	"fmt"
)

var (
	// ErrRejected is returned when a source URL is not on the host allow-list.
	ErrRejected = errors.New("url is not an accepted video link")
	// ErrFetchFailed matches every *FetchError.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrEngineUnavailable means the retrieval engine is not installed or not reachable.
	ErrEngineUnavailable = errors.New("downloader unavailable")
	// ErrScratchUnavailable means a scratch directory could not be created.
	ErrScratchUnavailable = errors.New("scratch storage unavailable")
	// ErrStorageUnavailable wraps any persistence gateway failure.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ValidationError reports the first field of a submission that is out of bounds.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// FetchError carries the engine's own failure message. Inconsistent is set
// when the engine reported success but left no output file behind.
type FetchError struct {
	Detail       string
	Inconsistent bool
}

func (e *FetchError) Error() string {
	if e.Inconsistent {
		return "failed to download video: " + e.Detail
	}
	return "download error: " + e.Detail
}

func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }
