// Package repo – punch event store.
//
// PutEvent is the one place in the system that needs a true atomic
// "insert if absent": the unique index over (scope, source_id, user_id,
// timestamp_utc) carries the idempotency invariant, so concurrent writers
// for different sources commute and replays collapse to duplicates.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/psitech/go-attendance-backend/internal/domain"
)

// PutResult reports the outcome of an idempotent event write.
type PutResult int

const (
	// PutInserted means the event was durably written for the first time.
	PutInserted PutResult = iota
	// PutDuplicate means an event with the same identity key already existed.
	// This is a success outcome, not an error.
	PutDuplicate
)

// PutEvent inserts a punch event, treating an identity-key collision as a
// no-op. Any other database error is returned verbatim so callers can
// distinguish "already exists" from "write failed".
func PutEvent(ctx context.Context, db *gorm.DB, ev *domain.PunchEvent) (PutResult, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	ev.TimestampUTC = ev.TimestampUTC.UTC()
	if err := db.WithContext(ctx).Create(ev).Error; err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return PutDuplicate, nil
		}
		return 0, err
	}
	return PutInserted, nil
}

// RangeFilter narrows a QueryRange call. Zero values mean "no bound".
type RangeFilter struct {
	SourceID string
	UserID   string
	FromUTC  time.Time // inclusive
	ToUTC    time.Time // exclusive
}

// QueryRange returns events in a scope ordered by timestamp ascending.
// The query is restartable: re-running it over the same committed range
// yields the same prefix even while ingestion continues elsewhere.
func QueryRange(ctx context.Context, db *gorm.DB, scope string, f RangeFilter) ([]domain.PunchEvent, error) {
	q := db.WithContext(ctx).Where("scope = ?", scope)
	if f.SourceID != "" {
		q = q.Where("source_id = ?", f.SourceID)
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if !f.FromUTC.IsZero() {
		q = q.Where("timestamp_utc >= ?", f.FromUTC.UTC())
	}
	if !f.ToUTC.IsZero() {
		q = q.Where("timestamp_utc < ?", f.ToUTC.UTC())
	}
	var evs []domain.PunchEvent
	err := q.Order("timestamp_utc ASC").Find(&evs).Error
	return evs, err
}

// EventsForMonth returns all of a scope's events within one calendar month.
func EventsForMonth(ctx context.Context, db *gorm.DB, scope string, m domain.Month) ([]domain.PunchEvent, error) {
	from := m.Day(1)
	return QueryRange(ctx, db, scope, RangeFilter{FromUTC: from, ToUTC: from.AddDate(0, 1, 0)})
}

// CountEvents returns the number of stored events for a scope.
func CountEvents(ctx context.Context, db *gorm.DB, scope string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.PunchEvent{}).Where("scope = ?", scope).Count(&n).Error
	return n, err
}

// ListMonths returns the distinct "YYYY-MM" months with data, ascending.
func ListMonths(ctx context.Context, db *gorm.DB, scope string) ([]string, error) {
	var months []string
	err := db.WithContext(ctx).
		Model(&domain.PunchEvent{}).
		Where("scope = ?", scope).
		Distinct("strftime('%Y-%m', timestamp_utc)").
		Order("strftime('%Y-%m', timestamp_utc) ASC").
		Pluck("strftime('%Y-%m', timestamp_utc)", &months).Error
	return months, err
}

// MaxTimestamp returns the newest event timestamp stored for one source, or
// ErrNotFound when the source has no events. Used to seed a cold watermark.
func MaxTimestamp(ctx context.Context, db *gorm.DB, scope, sourceID string) (time.Time, error) {
	var ev domain.PunchEvent
	err := db.WithContext(ctx).
		Where("scope = ? AND source_id = ?", scope, sourceID).
		Order("timestamp_utc DESC").
		First(&ev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, err
	}
	return ev.TimestampUTC.UTC(), nil
}
