package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campfolio/service/internal/cache"
	"github.com/campfolio/service/internal/logger"
	"github.com/campfolio/service/internal/settings"
	"github.com/campfolio/service/internal/storage"
	"github.com/campfolio/service/internal/thumbnail"
)

const ownerID = "6f1c2a5e-0d6b-4a0e-9a57-1f3c8a3d7b21"

var owner = Caller{UserID: ownerID, Role: "user"}

type harness struct {
	svc   *Service
	store *fakeStore
	snap  settings.Snapshot
}

func newHarness(t *testing.T, opts ...storage.Option) *harness {
	t.Helper()
	log := logger.Nop()
	store := newFakeStore()
	files := storage.NewStore(log, "myqcloud.com", opts...)
	thumbs := thumbnail.NewDeriver(thumbnail.JPEGEncoder{}, storage.LocalURLPrefix, log)
	return &harness{
		svc:   NewService(store, files, thumbs, cache.New(nil, log), time.Minute, log),
		store: store,
		snap: settings.Snapshot{
			StorageType:      settings.StorageLocal,
			MaxFileSize:      10 << 20,
			LocalStoragePath: t.TempDir(),
			RequireApproval:  true,
		},
	}
}

func (h *harness) collection(t *testing.T, status ReviewStatus, public bool) *Collection {
	t.Helper()
	c := &Collection{ID: uuid.NewString(), OwnerID: ownerID, Title: "Trip", Status: status, IsPublic: public}
	require.NoError(t, h.store.CreateCollection(context.Background(), c))
	return c
}

func (h *harness) cover(t *testing.T, id string) string {
	t.Helper()
	c, err := h.store.GetCollection(context.Background(), id)
	require.NoError(t, err)
	return c.Cover
}

func (h *harness) upload(t *testing.T, collectionID, name string) *Asset {
	t.Helper()
	a, err := h.svc.Upload(context.Background(), owner, h.snap, UploadInput{
		CollectionID: collectionID,
		FileName:     name,
		ContentType:  "image/jpeg",
		Data:         jpegBytes(t, 800, 600),
	})
	require.NoError(t, err)
	return a
}

func (h *harness) localFile(t *testing.T, url string) string {
	t.Helper()
	require.True(t, strings.HasPrefix(url, storage.LocalURLPrefix+"/"), url)
	return filepath.Join(h.snap.LocalStoragePath, filepath.FromSlash(strings.TrimPrefix(url, storage.LocalURLPrefix+"/")))
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 120, B: 40, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG))
	return buf.Bytes()
}

func TestUploadCoverFollowsFirstAsset(t *testing.T) {
	h := newHarness(t)
	c := h.collection(t, StatusPending, false)

	a := h.upload(t, c.ID, "beach.jpg")
	assert.Equal(t, 0, a.Order)
	assert.Equal(t, a.URL, h.cover(t, c.ID))

	b := h.upload(t, c.ID, "dunes.jpg")
	assert.Equal(t, 1, b.Order)
	assert.Equal(t, a.URL, h.cover(t, c.ID))
}

func TestUploadWritesLocalFileAndThumbnail(t *testing.T) {
	h := newHarness(t)
	c := h.collection(t, StatusPending, false)

	a := h.upload(t, c.ID, "Beach Day!.JPG")
	assert.True(t, strings.HasPrefix(a.URL, "/uploads/portfolios/"+c.ID+"/beach-day-"), a.URL)
	assert.Equal(t, KindImage, a.Kind)
	require.NotNil(t, a.OriginalName)
	assert.Equal(t, "Beach Day!.JPG", *a.OriginalName)
	assert.FileExists(t, h.localFile(t, a.URL))

	require.NotNil(t, a.ThumbnailURL)
	assert.True(t, strings.HasSuffix(*a.ThumbnailURL, "_thumbnail.jpg"), *a.ThumbnailURL)
	thumb, err := imaging.Open(h.localFile(t, *a.ThumbnailURL))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(400, 300), thumb.Bounds().Size())
}

func TestUploadVideoHasNoThumbnail(t *testing.T) {
	h := newHarness(t)
	c := h.collection(t, StatusPending, false)

	a, err := h.svc.Upload(context.Background(), owner, h.snap, UploadInput{
		CollectionID: c.ID,
		FileName:     "clip.mp4",
		ContentType:  "video/mp4",
		Data:         []byte("not really a video"),
	})
	require.NoError(t, err)
	assert.Equal(t, KindVideo, a.Kind)
	assert.Nil(t, a.ThumbnailURL)
}

func TestUploadCorruptImageStillRecorded(t *testing.T) {
	h := newHarness(t)
	c := h.collection(t, StatusPending, false)

	a, err := h.svc.Upload(context.Background(), owner, h.snap, UploadInput{
		CollectionID: c.ID,
		FileName:     "broken.png",
		ContentType:  "image/png",
		Data:         []byte("definitely not a png"),
	})
	require.NoError(t, err)
	assert.Nil(t, a.ThumbnailURL)
	assert.Equal(t, a.URL, h.cover(t, c.ID))
}

func TestUploadValidation(t *testing.T) {
	h := newHarness(t)
	c := h.collection(t, StatusPending, false)
	h.snap.MaxFileSize = 100

	tests := []struct {
		name     string
		in       UploadInput
		tooLarge bool
	}{
		{"missing file", UploadInput{CollectionID: c.ID, FileName: "a.jpg"}, false},
		{"unsupported kind", UploadInput{CollectionID: c.ID, FileName: "notes.txt", ContentType: "text/plain", Data: []byte("hi")}, false},
		{"too large", UploadInput{CollectionID: c.ID, FileName: "big.jpg", ContentType: "image/jpeg", Data: make([]byte, 101)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.Upload(context.Background(), owner, h.snap, tt.in)
			var invalid *ValidationError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.tooLarge, invalid.TooLarge())
			if tt.tooLarge {
				assert.Equal(t, int64(100), invalid.Limit)
			}
		})
	}

	entries, err := os.ReadDir(h.snap.LocalStoragePath)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUploadRequiresOwnership(t *testing.T) {
	h := newHarness(t)
	c := h.collection(t, StatusPending, false)
	in := UploadInput{CollectionID: c.ID, FileName: "a.jpg", ContentType: "image/jpeg", Data: jpegBytes(t, 10, 10)}

	_, err := h.svc.Upload(context.Background(), Caller{UserID: uuid.NewString()}, h.snap, in)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = h.svc.Upload(context.Background(), Caller{UserID: uuid.NewString(), Role: RoleAdmin}, h.snap, in)
	assert.NoError(t, err)
}

func TestUploadReReview(t *testing.T) {
	for _, requireApproval := range []bool{true, false} {
		h := newHarness(t)
		h.snap.RequireApproval = requireApproval
		c := h.collection(t, StatusApproved, true)

		h.upload(t, c.ID, "a.jpg")

		got, err := h.store.GetCollection(context.Background(), c.ID)
		require.NoError(t, err)
		if requireApproval {
			assert.Equal(t, StatusPending, got.Status)
			assert.False(t, got.IsPublic)
		} else {
			assert.Equal(t, StatusApproved, got.Status)
			assert.True(t, got.IsPublic)
		}
	}
}

func TestUploadStorageWriteError(t *testing.T) {
	h := newHarness(t)
	c := h.collection(t, StatusPending, false)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	h.snap.LocalStoragePath = blocker

	_, err := h.svc.Upload(context.Background(), owner, h.snap, UploadInput{
		CollectionID: c.ID, FileName: "a.jpg", ContentType: "image/jpeg", Data: jpegBytes(t, 10, 10),
	})
	var writeErr *StorageWriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Empty(t, h.cover(t, c.ID))
	n, _ := h.store.CountAssets(context.Background(), c.ID)
	assert.Zero(t, n)
}

func TestUploadCloudModeWithoutCredentialsWritesLocally(t *testing.T) {
	h := newHarness(t)
	c := h.collection(t, StatusPending, false)
	h.snap.StorageType = settings.StorageCloud
	h.snap.COSSecretID = "id"
	h.snap.COSBucket = "photos-1250000000"
	h.snap.COSRegion = "ap-guangzhou"

	a := h.upload(t, c.ID, "a.jpg")
	assert.True(t, strings.HasPrefix(a.URL, "/uploads/"), a.URL)
	assert.FileExists(t, h.localFile(t, a.URL))
}

type memBackend struct {
	mu      sync.Mutex
	objects map[string]string
}

func (m *memBackend) Put(_ context.Context, key string, _ []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = contentType
	return "https://photos-1250000000.cos.ap-guangzhou.myqcloud.com/" + key, nil
}

func (m *memBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memBackend) Type() settings.StorageType { return settings.StorageCloud }

func TestUploadCloudDerivesThumbnailInMemory(t *testing.T) {
	cloud := &memBackend{objects: map[string]string{}}
	h := newHarness(t, storage.WithCloudFactory(func(storage.CloudCredentials) (storage.Backend, error) {
		return cloud, nil
	}))
	c := h.collection(t, StatusPending, false)
	h.snap.StorageType = settings.StorageCloud
	h.snap.COSSecretID, h.snap.COSSecretKey = "id", "key"
	h.snap.COSBucket, h.snap.COSRegion = "photos-1250000000", "ap-guangzhou"

	a := h.upload(t, c.ID, "a.jpg")
	assert.True(t, strings.HasPrefix(a.URL, "https://"), a.URL)
	require.NotNil(t, a.ThumbnailURL)
	assert.True(t, strings.HasSuffix(*a.ThumbnailURL, "_thumbnail.jpg"))
	assert.Len(t, cloud.objects, 2)

	require.NoError(t, h.svc.DeleteAsset(context.Background(), owner, h.snap, a.ID))
	assert.Empty(t, cloud.objects)
}

func TestDeleteAssetCoverScenario(t *testing.T) {
	h := newHarness(t)
	c := h.collection(t, StatusPending, false)
	ctx := context.Background()

	a := h.upload(t, c.ID, "a.jpg")
	b := h.upload(t, c.ID, "b.jpg")
	assert.Equal(t, a.URL, h.cover(t, c.ID))

	require.NoError(t, h.svc.DeleteAsset(ctx, owner, h.snap, a.ID))
	assert.Equal(t, b.URL, h.cover(t, c.ID))
	assert.NoFileExists(t, h.localFile(t, a.URL))
	assert.NoFileExists(t, h.localFile(t, *a.ThumbnailURL))

	require.NoError(t, h.svc.DeleteAsset(ctx, owner, h.snap, b.ID))
	assert.Equal(t, "", h.cover(t, c.ID))
}

func TestDeleteAssetReassignsToLowestOrder(t *testing.T) {
	h := newHarness(t)
	c := h.collection(t, StatusPending, false)
	ctx := context.Background()

	h.upload(t, c.ID, "a.jpg")
	b := h.upload(t, c.ID, "b.jpg")
	cc := h.upload(t, c.ID, "c.jpg")

	_, err := h.svc.SetCover(ctx, owner, c.ID, b.URL)
	require.NoError(t, err)
	require.NoError(t, h.svc.DeleteAsset(ctx, owner, h.snap, b.ID))
	got := h.cover(t, c.ID)
	assert.NotEqual(t, cc.URL, got)
	list, _ := h.store.ListAssets(ctx, c.ID)
	assert.Equal(t, list[0].URL, got)
}

func TestDeleteAssetKeepsIndependentCover(t *testing.T) {
	h := newHarness(t)
	c := h.collection(t, StatusPending, false)
	ctx := context.Background()

	a := h.upload(t, c.ID, "a.jpg")
	_, err := h.svc.SetCover(ctx, owner, c.ID, "https://cdn.example.com/hero.jpg")
	require.NoError(t, err)

	require.NoError(t, h.svc.DeleteAsset(ctx, owner, h.snap, a.ID))
	assert.Equal(t, "https://cdn.example.com/hero.jpg", h.cover(t, c.ID))
}

func TestDeleteCollectionCascade(t *testing.T) {
	h := newHarness(t)
	c := h.collection(t, StatusApproved, true)
	ctx := context.Background()

	a := h.upload(t, c.ID, "a.jpg")
	b := h.upload(t, c.ID, "b.jpg")

	coverPath := filepath.Join(h.snap.LocalStoragePath, "covers", "hero.jpg")
	require.NoError(t, os.MkdirAll(filepath.Dir(coverPath), 0o755))
	require.NoError(t, os.WriteFile(coverPath, jpegBytes(t, 4, 4), 0o644))
	_, err := h.svc.SetCover(ctx, owner, c.ID, "/uploads/covers/hero.jpg")
	require.NoError(t, err)
	h.store.featured[c.ID] = true

	require.NoError(t, h.svc.DeleteCollection(ctx, owner, h.snap, c.ID))
	h.svc.Wait()

	_, err = h.store.GetCollection(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, h.store.featured[c.ID])
	assets, _ := h.store.ListAssets(ctx, c.ID)
	assert.Empty(t, assets)
	for _, u := range append(a.URLs(), b.URLs()...) {
		assert.NoFileExists(t, h.localFile(t, u))
	}
	assert.NoFileExists(t, coverPath)
}

func TestDeleteCollectionKeepsFilesWhenRowDeleteFails(t *testing.T) {
	h := newHarness(t)
	c := h.collection(t, StatusApproved, false)
	ctx := context.Background()
	a := h.upload(t, c.ID, "a.jpg")

	h.store.deleteCollectionErr = errors.New("connection reset")
	err := h.svc.DeleteCollection(ctx, owner, h.snap, c.ID)
	require.Error(t, err)
	h.svc.Wait()

	_, err = h.store.GetCollection(ctx, c.ID)
	require.NoError(t, err)
	for _, u := range a.URLs() {
		assert.FileExists(t, h.localFile(t, u))
	}
}

func TestDeleteCollectionSurvivesCloudFailure(t *testing.T) {
	h := newHarness(t, storage.WithCloudFactory(func(storage.CloudCredentials) (storage.Backend, error) {
		return nil, errors.New("endpoint unreachable")
	}))
	c := h.collection(t, StatusPending, false)
	ctx := context.Background()
	thumb := "https://photos-1250000000.cos.ap-guangzhou.myqcloud.com/portfolios/x_thumbnail.webp"
	require.NoError(t, h.store.CreateAsset(ctx, &Asset{
		ID: uuid.NewString(), CollectionID: c.ID, Kind: KindImage,
		URL:          "https://photos-1250000000.cos.ap-guangzhou.myqcloud.com/portfolios/x.jpg",
		ThumbnailURL: &thumb,
	}))

	require.NoError(t, h.svc.DeleteCollection(ctx, owner, h.snap, c.ID))
	h.svc.Wait()
	_, err := h.store.GetCollection(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCollectionsBlocksCarouselTargets(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	linked := h.collection(t, StatusApproved, true)
	free := h.collection(t, StatusApproved, true)
	h.store.carousel[linked.ID] = true
	missing := uuid.NewString()

	admin := Caller{UserID: uuid.NewString(), Role: RoleAdmin}
	res, err := h.svc.DeleteCollections(ctx, admin, h.snap, []string{linked.ID, free.ID, free.ID, missing})
	require.NoError(t, err)
	h.svc.Wait()

	assert.Equal(t, []string{free.ID}, res.Deleted)
	assert.Equal(t, []string{linked.ID}, res.Blocked)
	assert.Contains(t, res.Failed, missing)

	_, err = h.store.GetCollection(ctx, linked.ID)
	assert.NoError(t, err)

	_, err = h.svc.DeleteCollections(ctx, admin, h.snap, nil)
	var invalid *ValidationError
	assert.ErrorAs(t, err, &invalid)
}

func TestGetCollectionVisibility(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	hidden := h.collection(t, StatusPending, false)
	public := h.collection(t, StatusApproved, true)
	stranger := Caller{UserID: uuid.NewString()}

	_, err := h.svc.GetCollection(ctx, stranger, hidden.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := h.svc.GetCollection(ctx, owner, hidden.ID)
	require.NoError(t, err)
	assert.Zero(t, got.ViewCount)

	got, err = h.svc.GetCollection(ctx, stranger, public.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ViewCount)
}

func TestGalleryIsCachedUntilMutation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.collection(t, StatusApproved, true)

	list, err := h.svc.Gallery(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	_, err = h.svc.Gallery(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, h.store.publicCalls)

	admin := Caller{UserID: uuid.NewString(), Role: RoleAdmin}
	_, err = h.svc.Review(ctx, admin, c.ID, StatusRejected)
	require.NoError(t, err)

	list, err = h.svc.Gallery(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, 2, h.store.publicCalls)
}

func TestReviewRequiresAdmin(t *testing.T) {
	h := newHarness(t)
	c := h.collection(t, StatusPending, false)

	_, err := h.svc.Review(context.Background(), owner, c.ID, StatusApproved)
	assert.ErrorIs(t, err, ErrForbidden)

	admin := Caller{UserID: uuid.NewString(), Role: RoleAdmin}
	_, err = h.svc.Review(context.Background(), admin, c.ID, "maybe")
	var invalid *ValidationError
	assert.ErrorAs(t, err, &invalid)
}

func TestCreateCollectionFollowsApprovalPolicy(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c, err := h.svc.CreateCollection(ctx, owner, h.snap, CreateCollectionInput{Title: "  Trip  "})
	require.NoError(t, err)
	assert.Equal(t, "Trip", c.Title)
	assert.Equal(t, StatusPending, c.Status)
	assert.False(t, c.IsPublic)

	h.snap.RequireApproval = false
	c, err = h.svc.CreateCollection(ctx, owner, h.snap, CreateCollectionInput{Title: "Open"})
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, c.Status)
	assert.True(t, c.IsPublic)

	_, err = h.svc.CreateCollection(ctx, owner, h.snap, CreateCollectionInput{})
	var invalid *ValidationError
	assert.ErrorAs(t, err, &invalid)
}
