package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/campfolio/service/internal/logger"
	"github.com/campfolio/service/internal/metrics"
	"github.com/campfolio/service/internal/settings"
)

// ErrCloudUnavailable is returned when a cloud URL must be deleted but the
// current settings carry no usable credentials.
var ErrCloudUnavailable = errors.New("cloud storage credentials unavailable")

// CloudFactory builds a cloud Backend for a credential tuple.
type CloudFactory func(cred CloudCredentials) (Backend, error)

// Option configures a Store.
type Option func(*Store)

// WithCloudFactory replaces the minio-backed cloud constructor.
func WithCloudFactory(f CloudFactory) Option {
	return func(s *Store) { s.newCloud = f }
}

// Store is the StorageBackend used by the rest of the service. It holds no
// settings of its own: every call receives the snapshot to act on.
type Store struct {
	log      *logger.Logger
	newCloud CloudFactory
}

// NewStore creates a Store. endpointSuffix is the object storage domain used
// to reach "cos.<region>.<endpointSuffix>".
func NewStore(log *logger.Logger, endpointSuffix string, opts ...Option) *Store {
	s := &Store{
		log: log.With("component", "storage"),
		newCloud: func(cred CloudCredentials) (Backend, error) {
			return NewCloudStorage(cred, endpointSuffix)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Local returns the local backend rooted at the snapshot's storage path.
func (s *Store) Local(snap settings.Snapshot) *LocalStorage {
	return NewLocalStorage(snap.LocalStoragePath)
}

// backendFor picks the backend for new objects. Cloud mode with incomplete
// credentials degrades to local instead of failing.
func (s *Store) backendFor(snap settings.Snapshot) (Backend, error) {
	if snap.StorageType != settings.StorageCloud {
		return s.Local(snap), nil
	}
	if !snap.CloudReady() {
		s.log.Warn("cloud storage selected but credentials incomplete, writing locally")
		return s.Local(snap), nil
	}
	b, err := s.newCloud(CredentialsFrom(snap))
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Put writes obj to the active backend and returns its URL.
func (s *Store) Put(ctx context.Context, snap settings.Snapshot, obj Object) (string, error) {
	key, err := ObjectKey(obj.Folder, obj.FileName)
	if err != nil {
		return "", err
	}
	b, err := s.backendFor(snap)
	if err != nil {
		metrics.StorageOperationsTotal.WithLabelValues(string(settings.StorageCloud), "put", "error").Inc()
		return "", err
	}
	url, err := b.Put(ctx, key, obj.Data, obj.ContentType)
	metrics.StorageOperationsTotal.WithLabelValues(string(b.Type()), "put", metrics.Status(err)).Inc()
	if err != nil {
		return "", err
	}
	metrics.UploadBytesTotal.WithLabelValues(string(b.Type())).Add(float64(len(obj.Data)))
	s.log.Debug("object stored", "backend", b.Type(), "key", key, "bytes", len(obj.Data))
	return url, nil
}

// Delete removes the object behind rawURL. A missing object is not an error.
// Local failures are returned; cloud failures are logged and swallowed.
func (s *Store) Delete(ctx context.Context, snap settings.Snapshot, rawURL string) error {
	loc, err := ParseLocation(rawURL)
	if err != nil {
		return err
	}
	err = s.remove(ctx, snap, loc)
	if err != nil && loc.Kind == LocationCloud {
		s.log.Warn("cloud delete failed", "url", rawURL, "error", err)
		return nil
	}
	return err
}

// DeleteAll attempts every URL and reports each outcome; it never stops early.
func (s *Store) DeleteAll(ctx context.Context, snap settings.Snapshot, urls []string) DeleteResult {
	var res DeleteResult
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}

		loc, err := ParseLocation(u)
		if err == nil {
			err = s.remove(ctx, snap, loc)
		}
		if err != nil {
			s.log.Warn("delete failed", "url", u, "error", err)
			res.Failed = append(res.Failed, DeleteFailure{URL: u, Err: err})
			continue
		}
		res.Succeeded = append(res.Succeeded, u)
	}
	return res
}

// LocalPath resolves a local URL to its file path under the snapshot's root.
func (s *Store) LocalPath(snap settings.Snapshot, rawURL string) (string, bool) {
	loc, err := ParseLocation(rawURL)
	if err != nil || loc.Kind != LocationLocal {
		return "", false
	}
	p, err := s.Local(snap).Path(loc.Key)
	if err != nil {
		return "", false
	}
	return p, true
}

func (s *Store) remove(ctx context.Context, snap settings.Snapshot, loc Location) error {
	switch loc.Kind {
	case LocationLocal:
		err := s.Local(snap).Delete(ctx, loc.Key)
		metrics.StorageOperationsTotal.WithLabelValues(string(settings.StorageLocal), "delete", metrics.Status(err)).Inc()
		return err
	case LocationCloud:
		err := s.removeCloud(ctx, snap, loc)
		metrics.StorageOperationsTotal.WithLabelValues(string(settings.StorageCloud), "delete", metrics.Status(err)).Inc()
		return err
	default:
		return fmt.Errorf("%w: kind %s", ErrUnrecognizedURL, loc.Kind)
	}
}

func (s *Store) removeCloud(ctx context.Context, snap settings.Snapshot, loc Location) error {
	cred := CredentialsFrom(snap)
	if loc.Bucket != "" {
		cred.Bucket, cred.Region = loc.Bucket, loc.Region
	}
	if cred.SecretID == "" || cred.SecretKey == "" || cred.Bucket == "" || cred.Region == "" {
		return ErrCloudUnavailable
	}
	b, err := s.newCloud(cred)
	if err != nil {
		return err
	}
	return b.Delete(ctx, loc.Key)
}
