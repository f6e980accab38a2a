package media

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a collection or asset does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller may not act on a collection.
var ErrForbidden = errors.New("forbidden")

// ValidationError rejects an upload before anything is written.
type ValidationError struct {
	Field   string
	Message string
	// Limit is the configured maximum size in bytes when the upload was too large.
	Limit int64
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// TooLarge reports whether the error is a size-limit rejection.
func (e *ValidationError) TooLarge() bool { return e.Limit > 0 }

// StorageWriteError is a failed put; no asset record was created.
type StorageWriteError struct {
	Err error
}

func (e *StorageWriteError) Error() string { return fmt.Sprintf("store file: %v", e.Err) }

func (e *StorageWriteError) Unwrap() error { return e.Err }

// StorageDeleteError is a local delete failure while removing a single asset.
type StorageDeleteError struct {
	URL string
	Err error
}

func (e *StorageDeleteError) Error() string {
	return fmt.Sprintf("delete file %s: %v", e.URL, e.Err)
}

func (e *StorageDeleteError) Unwrap() error { return e.Err }
