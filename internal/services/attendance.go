package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/psitech/go-attendance-backend/internal/domain"
	"github.com/psitech/go-attendance-backend/internal/repo"
)

// AttendanceService is the read side: it derives months, matrices, and
// report inputs from the store on demand. Scope is resolved per call so the
// service always follows the orchestrator's active scope.
type AttendanceService struct {
	DB    *gorm.DB
	Scope func() string
}

// NewAttendanceService binds the read side to a database and a scope source.
func NewAttendanceService(db *gorm.DB, scope func() string) *AttendanceService {
	return &AttendanceService{DB: db, Scope: scope}
}

// Months lists the "YYYY-MM" months with at least one stored punch, ascending.
func (s *AttendanceService) Months(ctx context.Context) ([]string, error) {
	return repo.ListMonths(ctx, s.DB, s.Scope())
}

// Matrix computes the month's attendance grid across the full known user
// universe. A month with no punches and no known users does not exist.
func (s *AttendanceService) Matrix(ctx context.Context, month domain.Month) (domain.MonthlyMatrix, error) {
	scope := s.Scope()
	users, err := repo.ListIdentities(ctx, s.DB, scope)
	if err != nil {
		return domain.MonthlyMatrix{}, err
	}
	events, err := repo.EventsForMonth(ctx, s.DB, scope, month)
	if err != nil {
		return domain.MonthlyMatrix{}, err
	}
	if len(users) == 0 && len(events) == 0 {
		return domain.MonthlyMatrix{}, ErrMonthNotFound
	}
	return BuildMatrix(month, users, events), nil
}
