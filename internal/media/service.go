package media

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campfolio/service/internal/cache"
	"github.com/campfolio/service/internal/logger"
	"github.com/campfolio/service/internal/metrics"
	"github.com/campfolio/service/internal/settings"
	"github.com/campfolio/service/internal/storage"
	"github.com/campfolio/service/internal/thumbnail"
)

// GalleryCacheKey holds the cached public gallery listing.
const GalleryCacheKey = "gallery:public"

const galleryLimit = 60

// Service contains the upload, cover and deletion logic for collections.
type Service struct {
	store  Store
	files  *storage.Store
	thumbs *thumbnail.Deriver
	cache  *cache.Cache
	ttl    time.Duration
	log    *logger.Logger
	now    func() time.Time

	cleanup sync.WaitGroup
}

// NewService creates a media Service.
func NewService(store Store, files *storage.Store, thumbs *thumbnail.Deriver, c *cache.Cache, ttl time.Duration, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		files:  files,
		thumbs: thumbs,
		cache:  c,
		ttl:    ttl,
		log:    log.With("component", "media"),
		now:    time.Now,
	}
}

// CollectionFolder is the storage folder of a collection's files.
func CollectionFolder(collectionID string) string {
	return "portfolios/" + collectionID
}

// CreateCollectionInput is the payload for a new collection.
type CreateCollectionInput struct {
	Title       string
	Description *string
}

// CreateCollection creates a collection owned by the caller. Under the
// approval policy it starts pending and private.
func (s *Service) CreateCollection(ctx context.Context, caller Caller, snap settings.Snapshot, in CreateCollectionInput) (*Collection, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, &ValidationError{Field: "title", Message: "title is required"}
	}
	if caller.UserID == "" {
		return nil, ErrForbidden
	}
	c := &Collection{
		ID:          uuid.NewString(),
		OwnerID:     caller.UserID,
		Title:       title,
		Description: in.Description,
		Status:      StatusApproved,
		IsPublic:    true,
	}
	if snap.RequireApproval {
		c.Status, c.IsPublic = StatusPending, false
	}
	if err := s.store.CreateCollection(ctx, c); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return c, nil
}

// GetCollection returns a collection with its assets in display order.
// Collections that are not approved and public are only visible to their
// owner and administrators. Views by anyone else are counted.
func (s *Service) GetCollection(ctx context.Context, caller Caller, id string) (*Collection, error) {
	c, err := s.store.GetCollection(ctx, id)
	if err != nil {
		return nil, err
	}
	editor := caller.CanEdit(c)
	if !editor && (c.Status != StatusApproved || !c.IsPublic) {
		return nil, ErrNotFound
	}
	assets, err := s.store.ListAssets(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Assets = assets
	if !editor {
		if err := s.store.IncrementViews(ctx, id); err != nil {
			s.log.Warn("view count not updated", "collection", id, "error", err)
		} else {
			c.ViewCount++
		}
	}
	return c, nil
}

// Gallery lists approved public collections through the cache.
func (s *Service) Gallery(ctx context.Context) ([]Collection, error) {
	return cache.GetOrLoad(ctx, s.cache, GalleryCacheKey, s.ttl, func(ctx context.Context) ([]Collection, error) {
		return s.store.ListPublic(ctx, galleryLimit)
	})
}

// UploadInput is one file uploaded into a collection.
type UploadInput struct {
	CollectionID string
	FileName     string
	ContentType  string
	Data         []byte
}

// Upload validates, stores and records a new asset. The file write, thumbnail
// derivation, record insert and cover update happen strictly in that order.
func (s *Service) Upload(ctx context.Context, caller Caller, snap settings.Snapshot, in UploadInput) (*Asset, error) {
	a, err := s.upload(ctx, caller, snap, in)
	kind := "unknown"
	if k, _, ok := KindOf(in.ContentType, head(in.Data)); ok {
		kind = string(k)
	}
	metrics.UploadsTotal.WithLabelValues(kind, metrics.Status(err)).Inc()
	return a, err
}

func (s *Service) upload(ctx context.Context, caller Caller, snap settings.Snapshot, in UploadInput) (*Asset, error) {
	if len(in.Data) == 0 || strings.TrimSpace(in.FileName) == "" {
		return nil, &ValidationError{Field: "file", Message: "file is required"}
	}
	kind, contentType, ok := KindOf(in.ContentType, head(in.Data))
	if !ok {
		return nil, &ValidationError{Field: "file", Message: fmt.Sprintf("unsupported file type %q", contentType)}
	}
	if snap.MaxFileSize > 0 && int64(len(in.Data)) > snap.MaxFileSize {
		return nil, &ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("file exceeds the maximum size of %d bytes", snap.MaxFileSize),
			Limit:   snap.MaxFileSize,
		}
	}

	col, err := s.editable(ctx, caller, in.CollectionID)
	if err != nil {
		return nil, err
	}

	name := GenerateFileName(in.FileName, contentType, s.now())
	folder := CollectionFolder(col.ID)
	url, err := s.files.Put(ctx, snap, storage.Object{
		Data:        in.Data,
		FileName:    name,
		Folder:      folder,
		ContentType: contentType,
	})
	if err != nil {
		return nil, &StorageWriteError{Err: err}
	}

	var thumb *string
	if kind == KindImage {
		if t, ok := s.thumbnail(ctx, snap, url, folder, name, in.Data); ok {
			thumb = &t
		}
	}

	count, err := s.store.CountAssets(ctx, col.ID)
	if err != nil {
		return nil, err
	}
	original := in.FileName
	a := &Asset{
		ID:           uuid.NewString(),
		CollectionID: col.ID,
		Kind:         kind,
		URL:          url,
		ThumbnailURL: thumb,
		OriginalName: &original,
		Order:        count,
	}
	if err := s.store.CreateAsset(ctx, a); err != nil {
		return nil, err
	}

	if count == 0 {
		if err := s.store.UpdateCover(ctx, col.ID, a.URL); err != nil {
			return nil, fmt.Errorf("set first cover: %w", err)
		}
	}
	if col.Status == StatusApproved && snap.RequireApproval {
		if err := s.store.UpdateReview(ctx, col.ID, StatusPending, false); err != nil {
			return nil, fmt.Errorf("request re-review: %w", err)
		}
		s.log.Info("collection returned to review", "collection", col.ID, "asset", a.ID)
	}

	s.invalidate(ctx)
	s.log.Info("asset uploaded", "collection", col.ID, "asset", a.ID, "kind", kind, "bytes", len(in.Data))
	return a, nil
}

// thumbnail derives the thumbnail-size copy of a stored image. Local files are
// derived in place; cloud objects are derived in memory and put beside the
// original. Any failure only means the asset has no thumbnail.
func (s *Service) thumbnail(ctx context.Context, snap settings.Snapshot, url, folder, name string, data []byte) (string, bool) {
	if !thumbnail.IsSupported(name) {
		return "", false
	}
	if p, ok := s.files.LocalPath(snap, url); ok {
		root, err := s.files.Local(snap).AbsRoot()
		if err != nil {
			s.log.Warn("thumbnail skipped", "url", url, "error", err)
			return "", false
		}
		return s.thumbs.Derive(root, p, thumbnail.SizeThumbnail)
	}

	out, err := s.thumbs.DeriveBytes(data, thumbnail.SizeThumbnail)
	if err != nil {
		s.log.Warn("thumbnail derivation failed", "url", url, "error", err)
		return "", false
	}
	thumbURL, err := s.files.Put(ctx, snap, storage.Object{
		Data:        out,
		FileName:    thumbnail.DerivativeName(name, thumbnail.SizeThumbnail, s.thumbs.Ext()),
		Folder:      folder,
		ContentType: mime.TypeByExtension("." + s.thumbs.Ext()),
	})
	if err != nil {
		s.log.Warn("thumbnail upload failed", "url", url, "error", err)
		return "", false
	}
	return thumbURL, true
}

// DeleteAsset removes an asset's files and record. When the asset backed the
// collection's cover, the cover moves to the lowest-ordered survivor or is
// cleared.
func (s *Service) DeleteAsset(ctx context.Context, caller Caller, snap settings.Snapshot, assetID string) error {
	a, err := s.store.GetAsset(ctx, assetID)
	if err != nil {
		return err
	}
	col, err := s.editable(ctx, caller, a.CollectionID)
	if err != nil {
		return err
	}

	for _, u := range a.URLs() {
		err := s.files.Delete(ctx, snap, u)
		if errors.Is(err, storage.ErrUnrecognizedURL) {
			s.log.Warn("leaving file with unrecognized url", "asset", a.ID, "url", u)
			continue
		}
		if err != nil {
			return &StorageDeleteError{URL: u, Err: err}
		}
	}

	if err := s.store.DeleteAsset(ctx, a.ID); err != nil {
		return err
	}

	if col.Cover != "" && backsCover(*a, col.Cover) {
		if err := s.reassignCover(ctx, col.ID); err != nil {
			return err
		}
	}
	s.invalidate(ctx)
	return nil
}

func backsCover(a Asset, cover string) bool {
	for _, u := range a.URLs() {
		if u == cover {
			return true
		}
	}
	return false
}

func (s *Service) reassignCover(ctx context.Context, collectionID string) error {
	remaining, err := s.store.ListAssets(ctx, collectionID)
	if err != nil {
		return err
	}
	cover := ""
	if len(remaining) > 0 {
		cover = remaining[0].URL
	}
	if err := s.store.UpdateCover(ctx, collectionID, cover); err != nil {
		return fmt.Errorf("reassign cover: %w", err)
	}
	return nil
}

// SetCover overrides a collection's cover with any URL.
func (s *Service) SetCover(ctx context.Context, caller Caller, collectionID, cover string) (*Collection, error) {
	col, err := s.editable(ctx, caller, collectionID)
	if err != nil {
		return nil, err
	}
	cover = strings.TrimSpace(cover)
	if err := s.store.UpdateCover(ctx, col.ID, cover); err != nil {
		return nil, err
	}
	col.Cover = cover
	s.invalidate(ctx)
	return col, nil
}

// Review sets a collection's review status. Approval publishes it.
func (s *Service) Review(ctx context.Context, caller Caller, collectionID string, status ReviewStatus) (*Collection, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	if !status.Valid() {
		return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
	}
	col, err := s.store.GetCollection(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	public := status == StatusApproved
	if err := s.store.UpdateReview(ctx, col.ID, status, public); err != nil {
		return nil, err
	}
	col.Status, col.IsPublic = status, public
	s.invalidate(ctx)
	return col, nil
}

// ReferencedURLs lists every storage URL referenced by collection data.
func (s *Service) ReferencedURLs(ctx context.Context) ([]string, error) {
	return s.store.ReferencedURLs(ctx)
}

// editable loads a collection the caller may modify.
func (s *Service) editable(ctx context.Context, caller Caller, collectionID string) (*Collection, error) {
	col, err := s.store.GetCollection(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	if !caller.CanEdit(col) {
		return nil, ErrForbidden
	}
	return col, nil
}

func (s *Service) invalidate(ctx context.Context) {
	s.cache.Delete(context.WithoutCancel(ctx), GalleryCacheKey)
}

func head(data []byte) []byte {
	if len(data) > 512 {
		return data[:512]
	}
	return data
}
