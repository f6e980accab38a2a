package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/campfolio/service/internal/settings"
	"github.com/campfolio/service/internal/thumbnail"
)

// LocalStorage writes objects below a root directory served at LocalURLPrefix.
type LocalStorage struct {
	root string
}

// NewLocalStorage returns a LocalStorage rooted at root. The directory is
// created lazily on the first Put.
func NewLocalStorage(root string) *LocalStorage {
	return &LocalStorage{root: filepath.Clean(root)}
}

// Root returns the storage root directory.
func (l *LocalStorage) Root() string { return l.root }

func (l *LocalStorage) Type() settings.StorageType { return settings.StorageLocal }

// AbsRoot returns the storage root as an absolute path.
func (l *LocalStorage) AbsRoot() (string, error) {
	root, err := filepath.Abs(l.root)
	if err != nil {
		return "", fmt.Errorf("resolve storage root: %w", err)
	}
	return root, nil
}

// Path resolves a key to its absolute file path.
func (l *LocalStorage) Path(key string) (string, error) {
	root, err := l.AbsRoot()
	if err != nil {
		return "", err
	}
	p := filepath.Join(root, filepath.FromSlash(key))
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return p, nil
}

// Put creates parent directories as needed and writes data to root/key.
func (l *LocalStorage) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	p, err := l.Path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("write file %q: %w", key, err)
	}
	return LocalURL(key), nil
}

// Delete removes root/key together with any derivative siblings of it.
// Absence is silently tolerated.
func (l *LocalStorage) Delete(ctx context.Context, key string) error {
	return l.DeleteExcept(ctx, key, nil)
}

// DeleteExcept is Delete, but derivative siblings whose key satisfies keep
// are left in place.
func (l *LocalStorage) DeleteExcept(_ context.Context, key string, keep func(key string) bool) error {
	p, err := l.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove file %q: %w", key, err)
	}
	if thumbnail.IsDerivativeName(filepath.Base(p)) {
		return nil
	}
	siblings, err := thumbnail.Derivatives(p)
	if err != nil {
		return fmt.Errorf("list derivatives of %q: %w", key, err)
	}
	dir := path.Dir(key)
	for _, s := range siblings {
		if keep != nil && keep(path.Join(dir, filepath.Base(s))) {
			continue
		}
		if err := os.Remove(s); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove derivative %q: %w", filepath.Base(s), err)
		}
	}
	return nil
}
