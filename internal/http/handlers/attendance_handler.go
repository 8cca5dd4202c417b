// Attendance HTTP handlers.
//
// This file exposes the read-side endpoints:
//   - GET /months                 (months with stored data)
//   - GET /attendance/{month}     (monthly matrix as JSON)
//   - GET /reports/{month}        (monthly matrix as an .xlsx download)
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/psitech/go-attendance-backend/internal/domain"
	"github.com/psitech/go-attendance-backend/internal/report"
	"github.com/psitech/go-attendance-backend/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// MonthsResponse wraps the list of months that have stored data.
type MonthsResponse struct {
	Scope  string   `json:"scope"`
	Months []string `json:"months"`
}

// ListMonths returns the months with at least one stored punch, ascending.
func (h *Handlers) ListMonths(c *gin.Context) {
	months, err := h.attSvc.Months(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	if months == nil {
		months = []string{}
	}
	ok(c, http.StatusOK, MonthsResponse{Scope: h.syncSvc.Scope(), Months: months})
}

// monthParam parses the :month path parameter, writing a 400 on failure.
func monthParam(c *gin.Context) (domain.Month, bool) {
	m, err := domain.ParseMonth(c.Param("month"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeInvalidMonth, "month must be YYYY-MM")
		return domain.Month{}, false
	}
	return m, true
}

// GetAttendance returns the monthly matrix as JSON.
func (h *Handlers) GetAttendance(c *gin.Context) {
	m, valid := monthParam(c)
	if !valid {
		return
	}
	matrix, err := h.attSvc.Matrix(c.Request.Context(), m)
	if err != nil {
		if errors.Is(err, services.ErrMonthNotFound) {
			fail(c, http.StatusNotFound, ErrCodeMonthNotFound, "no attendance data for "+m.String())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, matrix)
}

// GetReport streams the monthly matrix as an .xlsx workbook.
func (h *Handlers) GetReport(c *gin.Context) {
	m, valid := monthParam(c)
	if !valid {
		return
	}
	matrix, err := h.attSvc.Matrix(c.Request.Context(), m)
	if err != nil {
		if errors.Is(err, services.ErrMonthNotFound) {
			fail(c, http.StatusNotFound, ErrCodeMonthNotFound, "no attendance data for "+m.String())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	filename := fmt.Sprintf("attendance-%s.xlsx", m)
	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := report.Write(c.Writer, matrix); err != nil {
		// Headers may already be out; log and abort rather than rewriting.
		fail(c, http.StatusInternalServerError, ErrCodeReportFailed, err.Error())
		return
	}
	c.Status(http.StatusOK)
}
