// Package repo – user identity map.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/psitech/go-attendance-backend/internal/domain"
)

// UpsertIdentity records a display name for a user id within a scope.
// Last write wins when sources disagree about the name.
func UpsertIdentity(ctx context.Context, db *gorm.DB, scope, userID, displayName string) error {
	rec := &domain.UserIdentity{
		Scope:       scope,
		UserID:      userID,
		DisplayName: displayName,
		UpdatedAt:   time.Now().UTC(),
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scope"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "updated_at"}),
	}).Create(rec).Error
}

// EnsureIdentity inserts a placeholder name for a user id only when no name is
// known yet. Used for orphan user ids seen in attendance but not in any device
// user list.
func EnsureIdentity(ctx context.Context, db *gorm.DB, scope, userID string) error {
	rec := &domain.UserIdentity{
		Scope:       scope,
		UserID:      userID,
		DisplayName: domain.PlaceholderName(userID),
		UpdatedAt:   time.Now().UTC(),
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scope"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(rec).Error
}

// ListIdentities returns every known identity in a scope.
func ListIdentities(ctx context.Context, db *gorm.DB, scope string) ([]domain.UserIdentity, error) {
	var ids []domain.UserIdentity
	err := db.WithContext(ctx).Where("scope = ?", scope).Order("user_id ASC").Find(&ids).Error
	return ids, err
}
