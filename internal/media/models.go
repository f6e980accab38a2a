// Package media manages portfolios (collections) and their uploaded assets:
// upload with thumbnailing, cover maintenance, single-asset delete and the
// collection delete cascade.
package media

import "time"

// Kind is the media type of an asset.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// ReviewStatus is the moderation state of a collection.
type ReviewStatus string

const (
	StatusPending  ReviewStatus = "pending"
	StatusApproved ReviewStatus = "approved"
	StatusRejected ReviewStatus = "rejected"
)

// Valid reports whether s is one of the three review states.
func (s ReviewStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// Asset is one uploaded media file belonging to a collection.
type Asset struct {
	ID           string    `json:"id"`
	CollectionID string    `json:"portfolioId"`
	Kind         Kind      `json:"type"`
	URL          string    `json:"url"`
	ThumbnailURL *string   `json:"thumbnailUrl,omitempty"`
	OriginalName *string   `json:"originalName,omitempty"`
	Order        int       `json:"order"`
	CreatedAt    time.Time `json:"createdAt"`
}

// URLs returns the canonical and, when present, thumbnail URL.
func (a Asset) URLs() []string {
	urls := []string{a.URL}
	if a.ThumbnailURL != nil && *a.ThumbnailURL != "" {
		urls = append(urls, *a.ThumbnailURL)
	}
	return urls
}

// Collection is a portfolio: an ordered set of assets with a review lifecycle.
type Collection struct {
	ID          string       `json:"id"`
	OwnerID     string       `json:"ownerId"`
	Title       string       `json:"title"`
	Description *string      `json:"description,omitempty"`
	Cover       string       `json:"cover"`
	Status      ReviewStatus `json:"status"`
	IsPublic    bool         `json:"isPublic"`
	ViewCount   int64        `json:"viewCount"`
	Featured    bool         `json:"featured"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	Assets      []Asset      `json:"assets,omitempty"`
}

// RoleAdmin is the role that may act on any collection.
const RoleAdmin = "admin"

// Caller is the already-authenticated identity behind a request.
type Caller struct {
	UserID string
	Role   string
}

// IsAdmin reports whether the caller holds the administrative override.
func (c Caller) IsAdmin() bool { return c.Role == RoleAdmin }

// CanEdit reports whether the caller owns col or is an administrator.
func (c Caller) CanEdit(col *Collection) bool {
	return c.IsAdmin() || (c.UserID != "" && c.UserID == col.OwnerID)
}
