// Sync HTTP handlers.
//
// This file exposes REST endpoints for the sync lifecycle:
//   - POST /sync/run     (one full snapshot, synchronous)
//   - POST /sync/start   (begin continuous sync)
//   - POST /sync/stop    (end continuous sync)
//   - GET  /sync/status  (orchestrator state and watermarks)
//   - PUT  /scope        (switch the active organization scope)
//
// Handlers are transport-thin: they validate input, call the orchestrator,
// and translate results into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/psitech/go-attendance-backend/internal/domain"
	"github.com/psitech/go-attendance-backend/internal/services"
)

// SyncService defines the sync lifecycle operations consumed by HTTP
// handlers. Implementations must be safe for concurrent use and honor the
// provided context for cancellation.
type SyncService interface {
	// RunSnapshot performs one full fetch-and-ingest pass over all sources.
	RunSnapshot(ctx context.Context) (services.CycleReport, error)
	// Start begins the continuous cycle; false means it was already running.
	Start(ctx context.Context) bool
	// Stop ends the continuous cycle; false means it was not running.
	Stop() bool
	// Status reports orchestrator state and per-source watermarks.
	Status(ctx context.Context) services.SyncStatus
	// SetScope switches the active scope between cycles.
	SetScope(scope string) error
	// Scope returns the active scope.
	Scope() string
}

// AttendanceService defines the read-side operations consumed by HTTP
// handlers.
type AttendanceService interface {
	// Months lists the months with stored data, ascending.
	Months(ctx context.Context) ([]string, error)
	// Matrix computes the attendance grid for one month.
	Matrix(ctx context.Context, month domain.Month) (domain.MonthlyMatrix, error)
}

// Handlers groups the HTTP endpoints for sync control and attendance reads.
type Handlers struct {
	syncSvc SyncService
	attSvc  AttendanceService
}

// New constructs a Handlers instance bound to the given services.
func New(syncSvc SyncService, attSvc AttendanceService) *Handlers {
	return &Handlers{syncSvc: syncSvc, attSvc: attSvc}
}

// RunSync performs one synchronous snapshot and returns the cycle report.
func (h *Handlers) RunSync(c *gin.Context) {
	rep, err := h.syncSvc.RunSnapshot(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSyncRunning):
			fail(c, http.StatusConflict, ErrCodeSyncRunning, "a sync cycle is already in flight")
		case errors.Is(err, services.ErrStoreUnavailable):
			fail(c, http.StatusInternalServerError, ErrCodeSyncFailed, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, rep)
}

// StartSync begins the continuous cycle. Repeated starts are no-ops.
func (h *Handlers) StartSync(c *gin.Context) {
	started := h.syncSvc.Start(c.Request.Context())
	ok(c, http.StatusOK, gin.H{"running": true, "started": started})
}

// StopSync ends the continuous cycle. Repeated stops are no-ops.
func (h *Handlers) StopSync(c *gin.Context) {
	stopped := h.syncSvc.Stop()
	ok(c, http.StatusOK, gin.H{"running": false, "stopped": stopped})
}

// SyncStatus reports orchestrator state and per-source watermarks.
func (h *Handlers) SyncStatus(c *gin.Context) {
	ok(c, http.StatusOK, h.syncSvc.Status(c.Request.Context()))
}

// SetScopeRequest is the JSON payload for switching the active scope.
type SetScopeRequest struct {
	Scope string `json:"scope" binding:"required,min=1,max=128"`
}

// SetScope switches the active organization scope. The switch applies only
// between sync cycles; a mid-cycle request gets a 409.
func (h *Handlers) SetScope(c *gin.Context) {
	var req SetScopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if err := h.syncSvc.SetScope(strings.TrimSpace(req.Scope)); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidScope):
			fail(c, http.StatusBadRequest, ErrCodeInvalidScope, "scope must contain at least one usable character")
		case errors.Is(err, services.ErrScopeLocked):
			fail(c, http.StatusConflict, ErrCodeScopeLocked, "cannot switch scope while a sync cycle is in flight")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, gin.H{"scope": h.syncSvc.Scope()})
}
