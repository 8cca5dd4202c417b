// Package services – monthly aggregation.
package services

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/psitech/go-attendance-backend/internal/domain"
)

// BuildMatrix folds reconciled daily results across the full user universe
// and every calendar day of the month into a MonthlyMatrix. Users with zero
// punches in the month still get a row (all absent): the matrix is total over
// the known users, not just the users who punched.
//
// The function is pure: the same inputs always produce bit-identical output.
func BuildMatrix(month domain.Month, users []domain.UserIdentity, events []domain.PunchEvent) domain.MonthlyMatrix {
	// Bucket the month's events by user and day; events outside the month
	// are ignored so a sloppy caller cannot skew totals.
	byUserDay := make(map[string]map[int][]domain.PunchEvent)
	for _, ev := range events {
		if !month.Contains(ev.TimestampUTC) {
			continue
		}
		d := ev.TimestampUTC.UTC().Day()
		if byUserDay[ev.UserID] == nil {
			byUserDay[ev.UserID] = make(map[int][]domain.PunchEvent)
		}
		byUserDay[ev.UserID][d] = append(byUserDay[ev.UserID][d], ev)
	}

	rows := make([]domain.MatrixRow, 0, len(users))
	days := month.Days()
	for _, u := range sortedUsers(users) {
		row := domain.MatrixRow{
			UserID:      u.UserID,
			DisplayName: u.DisplayName,
			Days:        make([]domain.DailyRecord, 0, days),
		}
		for d := 1; d <= days; d++ {
			rec := ReconcileDay(month.Day(d), byUserDay[u.UserID][d])
			row.TotalMinutes += rec.WorkedMinutes
			row.Days = append(row.Days, rec)
		}
		rows = append(rows, row)
	}
	return domain.MonthlyMatrix{Month: month, Rows: rows}
}

// sortedUsers orders rows by collated display name, ties broken by user id so
// equal names cannot flip order between runs.
func sortedUsers(users []domain.UserIdentity) []domain.UserIdentity {
	out := make([]domain.UserIdentity, len(users))
	copy(out, users)
	c := collate.New(language.Und)
	sort.SliceStable(out, func(i, j int) bool {
		if cmp := c.CompareString(out[i].DisplayName, out[j].DisplayName); cmp != 0 {
			return cmp < 0
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}
