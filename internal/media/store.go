package media

import "context"

// Store is the persistence the media service depends on. Repository is the
// PostgreSQL implementation.
type Store interface {
	CreateCollection(ctx context.Context, c *Collection) error
	GetCollection(ctx context.Context, id string) (*Collection, error)
	IncrementViews(ctx context.Context, id string) error
	UpdateCover(ctx context.Context, collectionID, cover string) error
	UpdateReview(ctx context.Context, collectionID string, status ReviewStatus, public bool) error
	DeleteFeatured(ctx context.Context, collectionID string) error
	DeleteCollection(ctx context.Context, id string) error
	// CarouselLinked returns the subset of ids that an active carousel entry links to.
	CarouselLinked(ctx context.Context, ids []string) ([]string, error)
	// ListPublic returns approved public collections, featured first then newest.
	ListPublic(ctx context.Context, limit int) ([]Collection, error)

	CreateAsset(ctx context.Context, a *Asset) error
	GetAsset(ctx context.Context, id string) (*Asset, error)
	// ListAssets returns a collection's assets ordered by display order.
	ListAssets(ctx context.Context, collectionID string) ([]Asset, error)
	CountAssets(ctx context.Context, collectionID string) (int, error)
	DeleteAsset(ctx context.Context, id string) error
	DeleteAssetsByCollection(ctx context.Context, collectionID string) error

	// ReferencedURLs returns every storage URL referenced by asset, collection
	// and carousel rows.
	ReferencedURLs(ctx context.Context) ([]string, error)
}
