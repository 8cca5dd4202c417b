// Package services implements the attendance business logic: day
// reconciliation, monthly aggregation, and the sync orchestrator. This file
// centralizes service-level error values so that they can be consistently
// returned by service methods and checked by callers.
package services

import "errors"

var (
	// ErrSyncRunning is returned when a snapshot cycle is requested while a
	// continuous sync (or another snapshot) is already in flight.
	ErrSyncRunning = errors.New("sync already running")

	// ErrScopeLocked is returned when a scope switch is requested mid-cycle.
	// Scope changes only apply between sync cycles.
	ErrScopeLocked = errors.New("scope cannot change during a sync cycle")

	// ErrInvalidScope is returned for an empty or unusable scope name.
	ErrInvalidScope = errors.New("invalid scope name")

	// ErrStoreUnavailable wraps a storage failure that aborts a whole cycle.
	// It is distinct from a duplicate write, which is a success outcome.
	ErrStoreUnavailable = errors.New("event store unavailable")

	// ErrMonthNotFound indicates no data exists for the requested month.
	ErrMonthNotFound = errors.New("no data for month")
)
