// Package repo implements the data persistence layer for punch events,
// user identities, and per-source watermarks, backed by GORM. This file
// defines the sentinel errors shared by all repositories.
package repo

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate indicates a record with the same identity key already
	// exists. Callers must treat it as "already ingested", never as a write
	// failure: conflating the two would silently drop data under outages.
	ErrDuplicate = errors.New("duplicate")
)
