// Package domain defines the core persistence models for the attendance
// pipeline. These types are used by GORM for database schema mapping and are
// shared across the repository and service layers.
package domain

import "time"

// PunchKind classifies a raw device punch code as clock-in, clock-out, or
// neither. Unknown codes are retained for audit but excluded from session
// pairing.
type PunchKind int

const (
	PunchUnclassified PunchKind = iota
	PunchIn
	PunchOut
)

// String returns a short human-readable label for logs and JSON.
func (k PunchKind) String() string {
	switch k {
	case PunchIn:
		return "in"
	case PunchOut:
		return "out"
	default:
		return "unclassified"
	}
}

// ClassifyPunch maps a raw device punch code to a PunchKind. The code sets are
// fixed device firmware semantics: {0,3,4} are check-in variants, {1,2,5} are
// check-out variants. Anything else is unclassified.
func ClassifyPunch(code int) PunchKind {
	switch code {
	case 0, 3, 4:
		return PunchIn
	case 1, 2, 5:
		return PunchOut
	default:
		return PunchUnclassified
	}
}

// PunchEvent is one clock event reported by a device. Rows are immutable once
// stored; the unique index over (scope, source_id, user_id, timestamp_utc) is
// the identity key that makes ingestion idempotent across repeated polls.
type PunchEvent struct {
	ID           string    `json:"id"            gorm:"type:char(36);primaryKey"`
	Scope        string    `json:"scope"         gorm:"type:varchar(64);not null;uniqueIndex:ux_punch_identity,priority:1"`
	SourceID     string    `json:"source_id"     gorm:"type:varchar(64);not null;uniqueIndex:ux_punch_identity,priority:2"`
	UserID       string    `json:"user_id"       gorm:"type:varchar(64);not null;uniqueIndex:ux_punch_identity,priority:3;index:idx_punch_user"`
	TimestampUTC time.Time `json:"timestamp_utc" gorm:"type:DATETIME;not null;uniqueIndex:ux_punch_identity,priority:4;index:idx_punch_ts"`
	Punch        int       `json:"punch"         gorm:"type:INTEGER;not null"`
	IngestedAt   time.Time `json:"ingested_at"   gorm:"type:DATETIME;not null;autoCreateTime"`
}

// TableName implements the GORM tabler interface.
func (PunchEvent) TableName() string { return "punch_events" }

// Kind classifies the stored raw punch code.
func (e PunchEvent) Kind() PunchKind { return ClassifyPunch(e.Punch) }

// UserIdentity maps a device user id to a display name within a scope.
// Names are last-write-wins across sources sharing a user id.
type UserIdentity struct {
	Scope       string    `json:"scope"        gorm:"type:varchar(64);not null;uniqueIndex:ux_identity,priority:1"`
	UserID      string    `json:"user_id"      gorm:"type:varchar(64);not null;uniqueIndex:ux_identity,priority:2"`
	DisplayName string    `json:"display_name" gorm:"type:varchar(255);not null"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName implements the GORM tabler interface.
func (UserIdentity) TableName() string { return "user_identities" }

// PlaceholderName is the synthetic display name assigned to a user id that
// appears in attendance records but not in any device user list.
func PlaceholderName(userID string) string { return "Unknown " + userID }

// Watermark records the newest event timestamp durably ingested from one
// source. It only ever advances; absence means no prior sync.
type Watermark struct {
	Scope        string    `json:"scope"         gorm:"type:varchar(64);not null;uniqueIndex:ux_watermark,priority:1"`
	SourceID     string    `json:"source_id"     gorm:"type:varchar(64);not null;uniqueIndex:ux_watermark,priority:2"`
	LastSeenUTC  time.Time `json:"last_seen_utc" gorm:"type:DATETIME;not null"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName implements the GORM tabler interface.
func (Watermark) TableName() string { return "watermarks" }
