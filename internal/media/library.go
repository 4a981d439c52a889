// Package media implements the media library catalog and the per-batch
// resource cache that prepares footage for analysis.
package media

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/storycut-backend/internal/platform/apperr"
	"github.com/yungbote/storycut-backend/internal/platform/logger"
)

// Asset is one catalogued source video.
type Asset struct {
	ID              string    `gorm:"primaryKey" json:"video_id"`
	Tenant          string    `gorm:"index" json:"tenant"`
	Filename        string    `json:"filename"`
	MimeType        string    `json:"mime_type"`
	DurationSeconds float64   `json:"duration_seconds"`
	Locator         string    `json:"locator"`
	// NarrationSafeLocator points at a voice-stripped variant of the same
	// footage, when one has been produced. Empty means none exists.
	NarrationSafeLocator string    `json:"narration_safe_locator,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func (Asset) TableName() string { return "media_assets" }

// Library resolves opaque video ids against the asset catalog.
type Library interface {
	Resolve(ctx context.Context, videoID string) (*Asset, error)
	ListAssets(ctx context.Context, tenant string) ([]*Asset, error)
}

type library struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLibrary(db *gorm.DB, baseLog *logger.Logger) Library {
	return &library{db: db, log: baseLog.With("repo", "MediaLibrary")}
}

func (l *library) Resolve(ctx context.Context, videoID string) (*Asset, error) {
	var asset Asset
	err := l.db.WithContext(ctx).Where("id = ?", videoID).First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperr.NotFoundError{Kind: "video", ID: videoID}
		}
		return nil, err
	}
	return &asset, nil
}

func (l *library) ListAssets(ctx context.Context, tenant string) ([]*Asset, error) {
	var assets []*Asset
	if err := l.db.WithContext(ctx).
		Where("tenant = ?", tenant).
		Order("created_at ASC").
		Find(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}
