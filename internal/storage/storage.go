// Package storage puts and deletes media objects on the local web root or on
// S3-compatible cloud object storage. The active backend for new objects comes
// from the settings snapshot; deletes dispatch on the shape of each URL so that
// objects written under an earlier setting are still removed from where they live.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/campfolio/service/internal/settings"
)

// LocalURLPrefix is the public prefix of every locally stored object.
const LocalURLPrefix = "/uploads"

// ErrInvalidKey is returned for folder or file names that escape the storage root.
var ErrInvalidKey = errors.New("invalid object key")

// Backend is a single storage target.
type Backend interface {
	// Put writes data under key and returns its public URL.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Delete removes the object at key; a missing object is not an error.
	Delete(ctx context.Context, key string) error
	// Type identifies the backend.
	Type() settings.StorageType
}

// Object is one upload handed to Store.Put.
type Object struct {
	Data        []byte
	FileName    string
	Folder      string
	ContentType string
}

// ObjectKey joins folder and file name into a slash-separated key.
func ObjectKey(folder, fileName string) (string, error) {
	if fileName == "" || strings.ContainsAny(fileName, `/\`) {
		return "", fmt.Errorf("%w: file name %q", ErrInvalidKey, fileName)
	}
	key := path.Join(strings.Trim(folder, "/"), fileName)
	if key == ".." || strings.HasPrefix(key, "../") || strings.Contains(key, "/../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return key, nil
}
