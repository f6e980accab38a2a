package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campfolio/service/internal/logger"
	"github.com/campfolio/service/internal/media"
	"github.com/campfolio/service/internal/settings"
	"github.com/campfolio/service/internal/storage"
)

// Store is the user persistence the Service needs.
type Store interface {
	GetByID(ctx context.Context, id string) (*User, error)
	UpdateAvatar(ctx context.Context, id, avatar string) (*User, error)
	ReferencedURLs(ctx context.Context) ([]string, error)
}

// Service contains business logic for user profiles.
type Service struct {
	repo  Store
	files *storage.Store
	log   *logger.Logger
	now   func() time.Time
}

// NewService creates a new user Service.
func NewService(repo Store, files *storage.Store, log *logger.Logger) *Service {
	return &Service{repo: repo, files: files, log: log.With("component", "user"), now: time.Now}
}

// GetByID returns a user by their UUID.
func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// IsNotFound returns true when the error indicates a user was not found.
func (s *Service) IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ReferencedURLs lists every avatar URL for reconciliation.
func (s *Service) ReferencedURLs(ctx context.Context) ([]string, error) {
	return s.repo.ReferencedURLs(ctx)
}

// AvatarFolder is the storage folder for a user's avatars.
func AvatarFolder(userID string) string {
	return "avatars/" + userID
}

// UploadAvatar stores a new avatar image and removes the previous one.
// Upload errors use the media error types.
func (s *Service) UploadAvatar(ctx context.Context, userID string, snap settings.Snapshot, fileName, contentType string, data []byte) (*User, error) {
	if len(data) == 0 || strings.TrimSpace(fileName) == "" {
		return nil, &media.ValidationError{Field: "avatar", Message: "file is required"}
	}
	kind, ct, ok := media.KindOf(contentType, data)
	if !ok || kind != media.KindImage {
		return nil, &media.ValidationError{Field: "avatar", Message: "avatar must be an image"}
	}
	if snap.MaxFileSize > 0 && int64(len(data)) > snap.MaxFileSize {
		return nil, &media.ValidationError{
			Field:   "avatar",
			Message: fmt.Sprintf("file exceeds the maximum size of %d bytes", snap.MaxFileSize),
			Limit:   snap.MaxFileSize,
		}
	}

	current, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	url, err := s.files.Put(ctx, snap, storage.Object{
		Data:        data,
		FileName:    media.GenerateFileName(fileName, ct, s.now()),
		Folder:      AvatarFolder(userID),
		ContentType: ct,
	})
	if err != nil {
		return nil, &media.StorageWriteError{Err: err}
	}

	u, err := s.repo.UpdateAvatar(ctx, userID, url)
	if err != nil {
		return nil, err
	}

	if current.Avatar != "" && current.Avatar != url {
		if err := s.files.Delete(ctx, snap, current.Avatar); err != nil {
			s.log.Warn("previous avatar not removed", "user", userID, "url", current.Avatar, "error", err)
		}
	}
	return u, nil
}
