// HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case. Generic codes mirror common HTTP status
// semantics; domain-specific codes cover outcomes a status alone cannot
// convey (a sync already in flight, a mid-cycle scope switch). Clients are
// expected to branch on these codes rather than on messages.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeSyncRunning   = "sync_running"
	ErrCodeScopeLocked   = "scope_locked"
	ErrCodeInvalidScope  = "invalid_scope"
	ErrCodeInvalidMonth  = "invalid_month"
	ErrCodeMonthNotFound = "month_not_found"
	ErrCodeSyncFailed    = "sync_failed"
	ErrCodeReportFailed  = "report_failed"
)
