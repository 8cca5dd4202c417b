// Package domain – derived attendance types.
//
// DailyRecord and MonthlyMatrix are computed on demand from stored punches;
// they are never persisted. Given the same set of punches they are always
// reproduced bit-identically.
package domain

import (
	"fmt"
	"time"
)

// DayStatus is the attendance verdict for one user on one calendar day.
type DayStatus string

const (
	StatusPresent DayStatus = "P"
	StatusHalfDay DayStatus = "HD"
	StatusAbsent  DayStatus = "A"
)

// DailyRecord is the reconciled outcome for one (user, date).
// FirstIn and LastOut are "HH:MM" times of day, or "-" when absent.
type DailyRecord struct {
	Date          string    `json:"date"` // YYYY-MM-DD
	Status        DayStatus `json:"status"`
	FirstIn       string    `json:"first_in"`
	LastOut       string    `json:"last_out"`
	WorkedMinutes int       `json:"worked_minutes"`
}

// MatrixRow is one user's month: a record per calendar day plus the
// summed worked minutes.
type MatrixRow struct {
	UserID       string        `json:"user_id"`
	DisplayName  string        `json:"display_name"`
	Days         []DailyRecord `json:"days"`
	TotalMinutes int           `json:"total_minutes"`
}

// MonthlyMatrix is the month-shaped aggregation over the full user universe,
// including users with zero punches in the month.
type MonthlyMatrix struct {
	Month Month       `json:"month"`
	Rows  []MatrixRow `json:"rows"`
}

// Month identifies one calendar month.
type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// String renders the month as "YYYY-MM".
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Days returns the number of calendar days in the month, leap years included.
func (m Month) Days() int {
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Day returns the UTC date of the given 1-based day of the month.
func (m Month) Day(day int) time.Time {
	return time.Date(m.Year, m.Month, day, 0, 0, 0, 0, time.UTC)
}

// Contains reports whether t (interpreted in UTC) falls inside the month.
func (m Month) Contains(t time.Time) bool {
	u := t.UTC()
	return u.Year() == m.Year && u.Month() == m.Month
}

// FormatMinutes renders worked minutes as "H:MM". Hours are not zero padded,
// matching the report contract (e.g. 540 -> "9:00", 65 -> "1:05", 0 -> "0:00").
func FormatMinutes(total int) string {
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// RenderCell produces the fixed per-cell report text for a daily record.
func RenderCell(r DailyRecord) string {
	return fmt.Sprintf("%s\nIn: %s\nOut: %s\nHrs: %s",
		r.Status, r.FirstIn, r.LastOut, FormatMinutes(r.WorkedMinutes))
}
