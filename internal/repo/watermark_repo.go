// Package repo – per-source watermark tracking.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/psitech/go-attendance-backend/internal/domain"
)

// GetWatermark returns the last ingested event timestamp for a source, or
// ErrNotFound when the source has never completed a sync.
func GetWatermark(ctx context.Context, db *gorm.DB, scope, sourceID string) (time.Time, error) {
	var wm domain.Watermark
	err := db.WithContext(ctx).
		Where("scope = ? AND source_id = ?", scope, sourceID).
		First(&wm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, err
	}
	return wm.LastSeenUTC.UTC(), nil
}

// AdvanceWatermark moves a source's watermark forward to ts. The update is
// monotonic: an older or equal timestamp leaves the stored value unchanged,
// which makes replayed cycles idempotent.
func AdvanceWatermark(ctx context.Context, db *gorm.DB, scope, sourceID string, ts time.Time) error {
	ts = ts.UTC()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wm domain.Watermark
		err := tx.Where("scope = ? AND source_id = ?", scope, sourceID).First(&wm).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&domain.Watermark{
				Scope:       scope,
				SourceID:    sourceID,
				LastSeenUTC: ts,
				UpdatedAt:   time.Now().UTC(),
			}).Error
		case err != nil:
			return err
		}
		if !ts.After(wm.LastSeenUTC.UTC()) {
			return nil
		}
		return tx.Model(&domain.Watermark{}).
			Where("scope = ? AND source_id = ?", scope, sourceID).
			Updates(map[string]any{"last_seen_utc": ts, "updated_at": time.Now().UTC()}).Error
	})
}
