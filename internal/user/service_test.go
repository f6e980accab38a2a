package user

import (
	"bytes"
	"context"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campfolio/service/internal/logger"
	"github.com/campfolio/service/internal/media"
	"github.com/campfolio/service/internal/settings"
	"github.com/campfolio/service/internal/storage"
)

type fakeRepo struct {
	users map[string]*User
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) UpdateAvatar(_ context.Context, id, avatar string) (*User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u.Avatar = avatar
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) ReferencedURLs(context.Context) ([]string, error) {
	var out []string
	for _, u := range f.users {
		if u.Avatar != "" {
			out = append(out, u.Avatar)
		}
	}
	return out, nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(8, 8, color.White), imaging.PNG))
	return buf.Bytes()
}

func TestUploadAvatarReplacesPrevious(t *testing.T) {
	root := t.TempDir()
	snap := settings.Snapshot{StorageType: settings.StorageLocal, LocalStoragePath: root, MaxFileSize: 1 << 20}
	repo := &fakeRepo{users: map[string]*User{"u1": {ID: "u1", Username: "ana"}}}
	svc := NewService(repo, storage.NewStore(logger.Nop(), "myqcloud.com"), logger.Nop())
	ctx := context.Background()

	first, err := svc.UploadAvatar(ctx, "u1", snap, "me.png", "image/png", pngBytes(t))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first.Avatar, "/uploads/avatars/u1/me-"), first.Avatar)
	firstPath := filepath.Join(root, strings.TrimPrefix(first.Avatar, "/uploads/"))
	assert.FileExists(t, firstPath)

	second, err := svc.UploadAvatar(ctx, "u1", snap, "new.png", "", pngBytes(t))
	require.NoError(t, err)
	assert.NotEqual(t, first.Avatar, second.Avatar)
	assert.NoFileExists(t, firstPath)

	urls, err := svc.ReferencedURLs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{second.Avatar}, urls)
}

func TestUploadAvatarValidation(t *testing.T) {
	root := t.TempDir()
	snap := settings.Snapshot{StorageType: settings.StorageLocal, LocalStoragePath: root, MaxFileSize: 10}
	repo := &fakeRepo{users: map[string]*User{"u1": {ID: "u1"}}}
	svc := NewService(repo, storage.NewStore(logger.Nop(), "myqcloud.com"), logger.Nop())

	_, err := svc.UploadAvatar(context.Background(), "u1", snap, "clip.mp4", "video/mp4", []byte("0123"))
	var invalid *media.ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.False(t, invalid.TooLarge())

	_, err = svc.UploadAvatar(context.Background(), "u1", snap, "me.png", "image/png", pngBytes(t))
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, int64(10), invalid.Limit)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
