package media

import (
	"context"
	"sort"
	"sync"
	"time"
)

type fakeStore struct {
	mu          sync.Mutex
	collections map[string]*Collection
	assets      map[string]*Asset
	featured    map[string]bool
	carousel    map[string]bool
	seq         int64
	publicCalls int

	deleteCollectionErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		collections: map[string]*Collection{},
		assets:      map[string]*Asset{},
		featured:    map[string]bool{},
		carousel:    map[string]bool{},
	}
}

func (f *fakeStore) CreateCollection(_ context.Context, c *Collection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *c
	f.collections[c.ID] = &cp
	return nil
}

func (f *fakeStore) GetCollection(_ context.Context, id string) (*Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.collections[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	cp.Featured = f.featured[id]
	return &cp, nil
}

func (f *fakeStore) IncrementViews(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.collections[id]; ok {
		c.ViewCount++
	}
	return nil
}

func (f *fakeStore) UpdateCover(_ context.Context, id, cover string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.collections[id]
	if !ok {
		return ErrNotFound
	}
	c.Cover = cover
	return nil
}

func (f *fakeStore) UpdateReview(_ context.Context, id string, status ReviewStatus, public bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.collections[id]
	if !ok {
		return ErrNotFound
	}
	c.Status, c.IsPublic = status, public
	return nil
}

func (f *fakeStore) DeleteFeatured(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.featured, id)
	return nil
}

func (f *fakeStore) DeleteCollection(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteCollectionErr != nil {
		return f.deleteCollectionErr
	}
	if _, ok := f.collections[id]; !ok {
		return ErrNotFound
	}
	delete(f.collections, id)
	return nil
}

func (f *fakeStore) CarouselLinked(_ context.Context, ids []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, id := range ids {
		if f.carousel[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeStore) ListPublic(_ context.Context, _ int) ([]Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publicCalls++
	out := []Collection{}
	for _, c := range f.collections {
		if c.Status == StatusApproved && c.IsPublic {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateAsset(_ context.Context, a *Asset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	a.CreatedAt = time.Unix(f.seq, 0)
	cp := *a
	f.assets[a.ID] = &cp
	return nil
}

func (f *fakeStore) GetAsset(_ context.Context, id string) (*Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assets[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) ListAssets(_ context.Context, collectionID string) ([]Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []Asset{}
	for _, a := range f.assets {
		if a.CollectionID == collectionID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeStore) CountAssets(ctx context.Context, collectionID string) (int, error) {
	list, err := f.ListAssets(ctx, collectionID)
	return len(list), err
}

func (f *fakeStore) DeleteAsset(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.assets[id]; !ok {
		return ErrNotFound
	}
	delete(f.assets, id)
	return nil
}

func (f *fakeStore) DeleteAssetsByCollection(_ context.Context, collectionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, a := range f.assets {
		if a.CollectionID == collectionID {
			delete(f.assets, id)
		}
	}
	return nil
}

func (f *fakeStore) ReferencedURLs(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var urls []string
	for _, a := range f.assets {
		urls = append(urls, a.URLs()...)
	}
	for _, c := range f.collections {
		if c.Cover != "" {
			urls = append(urls, c.Cover)
		}
	}
	return urls, nil
}
