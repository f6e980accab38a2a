// Package settings reads the system settings record that drives storage mode,
// upload limits and the approval policy.
package settings

import (
	"strings"

	"github.com/campfolio/service/internal/config"
)

// StorageType selects the active backend for new uploads.
type StorageType string

const (
	StorageLocal StorageType = "local"
	StorageCloud StorageType = "cloud"
)

// Snapshot is one read of the settings record. Handlers fetch it once per
// request and pass it into every storage and media call.
type Snapshot struct {
	StorageType      StorageType `json:"storageType"`
	MaxFileSize      int64       `json:"maxFileSize"`
	LocalStoragePath string      `json:"localStoragePath"`
	COSSecretID      string      `json:"-"`
	COSSecretKey     string      `json:"-"`
	COSBucket        string      `json:"cosBucket"`
	COSRegion        string      `json:"cosRegion"`
	RequireApproval  bool        `json:"requireApproval"`
}

// CloudReady reports whether all four cloud credential fields are present.
func (s Snapshot) CloudReady() bool {
	return strings.TrimSpace(s.COSSecretID) != "" &&
		strings.TrimSpace(s.COSSecretKey) != "" &&
		strings.TrimSpace(s.COSBucket) != "" &&
		strings.TrimSpace(s.COSRegion) != ""
}

// EffectiveStorage is the backend a put will actually use: cloud only when
// selected and fully configured, otherwise local.
func (s Snapshot) EffectiveStorage() StorageType {
	if s.StorageType == StorageCloud && s.CloudReady() {
		return StorageCloud
	}
	return StorageLocal
}

// Defaults builds the snapshot used when no settings row exists.
func Defaults(cfg *config.Config) Snapshot {
	return Snapshot{
		StorageType:      StorageType(strings.ToLower(cfg.DefaultStorageType)),
		MaxFileSize:      cfg.DefaultMaxFileSize,
		LocalStoragePath: cfg.DefaultLocalStoragePath,
		RequireApproval:  cfg.DefaultRequireApproval,
	}
}
