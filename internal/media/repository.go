package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles collection and asset database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const collectionColumns = `p.id, p.owner_id, p.title, p.description, p.cover, p.status, p.is_public, p.view_count,
	EXISTS (SELECT 1 FROM featured_portfolios f WHERE f.portfolio_id = p.id) AS featured,
	p.created_at, p.updated_at`

func scanCollection(row pgx.Row) (*Collection, error) {
	c := &Collection{}
	var status string
	err := row.Scan(&c.ID, &c.OwnerID, &c.Title, &c.Description, &c.Cover, &status,
		&c.IsPublic, &c.ViewCount, &c.Featured, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Status = ReviewStatus(status)
	return c, nil
}

const assetColumns = `id, portfolio_id, type, url, thumbnail_url, original_name, sort_order, created_at`

func scanAsset(row pgx.Row) (*Asset, error) {
	a := &Asset{}
	var kind string
	err := row.Scan(&a.ID, &a.CollectionID, &kind, &a.URL, &a.ThumbnailURL, &a.OriginalName, &a.Order, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.Kind = Kind(kind)
	return a, nil
}

// CreateCollection inserts c and fills in its timestamps.
func (r *Repository) CreateCollection(ctx context.Context, c *Collection) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO portfolios (id, owner_id, title, description, cover, status, is_public)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at, updated_at`,
		c.ID, c.OwnerID, c.Title, c.Description, c.Cover, string(c.Status), c.IsPublic,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create portfolio: %w", err)
	}
	return nil
}

// GetCollection fetches a collection without its assets.
func (r *Repository) GetCollection(ctx context.Context, id string) (*Collection, error) {
	c, err := scanCollection(r.db.QueryRow(ctx,
		`SELECT `+collectionColumns+` FROM portfolios p WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get portfolio: %w", err)
	}
	return c, nil
}

func (r *Repository) IncrementViews(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `UPDATE portfolios SET view_count = view_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	return nil
}

func (r *Repository) UpdateCover(ctx context.Context, collectionID, cover string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE portfolios SET cover = $2, updated_at = NOW() WHERE id = $1`, collectionID, cover)
	if err != nil {
		return fmt.Errorf("update cover: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) UpdateReview(ctx context.Context, collectionID string, status ReviewStatus, public bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE portfolios SET status = $2, is_public = $3, updated_at = NOW() WHERE id = $1`,
		collectionID, string(status), public)
	if err != nil {
		return fmt.Errorf("update review status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteFeatured(ctx context.Context, collectionID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM featured_portfolios WHERE portfolio_id = $1`, collectionID); err != nil {
		return fmt.Errorf("delete featured: %w", err)
	}
	return nil
}

func (r *Repository) DeleteCollection(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM portfolios WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete portfolio: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) CarouselLinked(ctx context.Context, ids []string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT link_portfolio_id::text
		 FROM carousel_items
		 WHERE is_active AND link_portfolio_id::text = ANY($1::text[])`, ids)
	if err != nil {
		return nil, fmt.Errorf("query carousel links: %w", err)
	}
	linked, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan carousel links: %w", err)
	}
	return linked, nil
}

func (r *Repository) ListPublic(ctx context.Context, limit int) ([]Collection, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+collectionColumns+`
		 FROM portfolios p
		 WHERE p.status = 'approved' AND p.is_public
		 ORDER BY featured DESC, p.created_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list public portfolios: %w", err)
	}
	defer rows.Close()

	out := []Collection{}
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan portfolio: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// CreateAsset inserts a and fills in its creation time.
func (r *Repository) CreateAsset(ctx context.Context, a *Asset) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO portfolio_media (id, portfolio_id, type, url, thumbnail_url, original_name, sort_order)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		a.ID, a.CollectionID, string(a.Kind), a.URL, a.ThumbnailURL, a.OriginalName, a.Order,
	).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("create media: %w", err)
	}
	return nil
}

func (r *Repository) GetAsset(ctx context.Context, id string) (*Asset, error) {
	a, err := scanAsset(r.db.QueryRow(ctx,
		`SELECT `+assetColumns+` FROM portfolio_media WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get media: %w", err)
	}
	return a, nil
}

func (r *Repository) ListAssets(ctx context.Context, collectionID string) ([]Asset, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+assetColumns+`
		 FROM portfolio_media
		 WHERE portfolio_id = $1
		 ORDER BY sort_order, created_at`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	defer rows.Close()

	out := []Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan media: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *Repository) CountAssets(ctx context.Context, collectionID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM portfolio_media WHERE portfolio_id = $1`, collectionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count media: %w", err)
	}
	return n, nil
}

func (r *Repository) DeleteAsset(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM portfolio_media WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete media: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteAssetsByCollection(ctx context.Context, collectionID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM portfolio_media WHERE portfolio_id = $1`, collectionID); err != nil {
		return fmt.Errorf("delete portfolio media: %w", err)
	}
	return nil
}

func (r *Repository) ReferencedURLs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT url FROM portfolio_media
		 UNION SELECT thumbnail_url FROM portfolio_media WHERE thumbnail_url IS NOT NULL
		 UNION SELECT cover FROM portfolios WHERE cover <> ''
		 UNION SELECT cover FROM carousel_items WHERE cover <> ''`)
	if err != nil {
		return nil, fmt.Errorf("query referenced urls: %w", err)
	}
	urls, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan referenced urls: %w", err)
	}
	return urls, nil
}
