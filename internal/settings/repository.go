package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoSettings is returned when the system_settings table is empty.
var ErrNoSettings = errors.New("no settings record")

// Repository reads the settings record. It never caches: every call is a
// fresh read so that a mode change applies to the very next operation.
type Repository struct {
	db       *pgxpool.Pool
	defaults Snapshot
}

// NewRepository creates a settings Repository; defaults fill in for a missing row.
func NewRepository(db *pgxpool.Pool, defaults Snapshot) *Repository {
	return &Repository{db: db, defaults: defaults}
}

// Current returns the first settings row, or the defaults when there is none.
func (r *Repository) Current(ctx context.Context) (Snapshot, error) {
	s, err := r.first(ctx)
	if errors.Is(err, ErrNoSettings) {
		return r.defaults, nil
	}
	if err != nil {
		return Snapshot{}, err
	}
	if s.LocalStoragePath == "" {
		s.LocalStoragePath = r.defaults.LocalStoragePath
	}
	if s.MaxFileSize <= 0 {
		s.MaxFileSize = r.defaults.MaxFileSize
	}
	return s, nil
}

func (r *Repository) first(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	var storageType string
	err := r.db.QueryRow(ctx,
		`SELECT storage_type, max_file_size, local_storage_path,
		        cos_secret_id, cos_secret_key, cos_bucket, cos_region, require_approval
		 FROM system_settings
		 ORDER BY id
		 LIMIT 1`,
	).Scan(&storageType, &s.MaxFileSize, &s.LocalStoragePath,
		&s.COSSecretID, &s.COSSecretKey, &s.COSBucket, &s.COSRegion, &s.RequireApproval)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, ErrNoSettings
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("get settings: %w", err)
	}
	s.StorageType = StorageType(storageType)
	return s, nil
}
