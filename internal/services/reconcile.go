// Package services – session reconciliation.
//
// ReconcileDay is the pure heart of the pipeline: it maps the unordered set
// of one user's punches on one calendar day to a status and worked-minutes
// value. It has no dependencies and no hidden state, so the same punch set
// always reproduces the same record regardless of input order.
package services

import (
	"sort"
	"time"

	"github.com/psitech/go-attendance-backend/internal/domain"
)

// DefaultShiftMinutes is assumed worked when a day has clock-in evidence but
// no clock-out at all: a forgotten clock-out should not zero out the day.
const DefaultShiftMinutes = 9 * 60

// AbsentMarker is the rendered placeholder for a missing first-in/last-out.
const AbsentMarker = "-"

// ReconcileDay computes the DailyRecord for one user's punches on one date.
// The input order is irrelevant; punches are re-sorted internally.
func ReconcileDay(date time.Time, punches []domain.PunchEvent) domain.DailyRecord {
	rec := domain.DailyRecord{
		Date:    date.UTC().Format("2006-01-02"),
		Status:  domain.StatusAbsent,
		FirstIn: AbsentMarker,
		LastOut: AbsentMarker,
	}
	if len(punches) == 0 {
		return rec
	}

	var (
		hasIn, hasOut    bool
		firstIn, lastOut time.Time
	)
	for _, p := range punches {
		switch p.Kind() {
		case domain.PunchIn:
			at := p.TimestampUTC.UTC()
			if !hasIn || at.Before(firstIn) {
				firstIn = at
			}
			hasIn = true
		case domain.PunchOut:
			at := p.TimestampUTC.UTC()
			if !hasOut || at.After(lastOut) {
				lastOut = at
			}
			hasOut = true
		}
		// Unclassified codes are retained for audit only: they contribute
		// neither In nor Out evidence.
	}

	switch {
	case hasIn && hasOut:
		rec.Status = domain.StatusPresent
	case hasIn || hasOut:
		rec.Status = domain.StatusHalfDay
	default:
		// Non-empty set but nothing classifiable: stays Absent.
		return rec
	}

	if hasIn {
		rec.FirstIn = firstIn.Format("15:04")
	}
	if hasOut {
		rec.LastOut = lastOut.Format("15:04")
	}
	rec.WorkedMinutes = pairMinutes(punches, hasIn, hasOut)
	return rec
}

// pairMinutes runs the sequential In/Out pairing loop over the punches,
// sorted by timestamp. At most one In is open at a time: a second In replaces
// it (the earlier one is discarded unpaired) and an Out with no open In is
// ignored. Each closed pair contributes max(0, floor(minutes)).
func pairMinutes(punches []domain.PunchEvent, hasIn, hasOut bool) int {
	if !hasIn && !hasOut {
		return 0
	}
	if hasIn && !hasOut {
		return DefaultShiftMinutes
	}

	sorted := make([]domain.PunchEvent, len(punches))
	copy(sorted, punches)
	// Ties on the timestamp order In before Out, so a same-instant pair
	// closes as a zero-minute pair no matter how the input was ordered.
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, tj := sorted[i].TimestampUTC, sorted[j].TimestampUTC
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return kindRank(sorted[i].Kind()) < kindRank(sorted[j].Kind())
	})

	var (
		openIn *time.Time
		total  int
	)
	for _, p := range sorted {
		switch p.Kind() {
		case domain.PunchIn:
			at := p.TimestampUTC.UTC()
			openIn = &at
		case domain.PunchOut:
			if openIn != nil {
				if delta := int(p.TimestampUTC.Sub(*openIn).Minutes()); delta > 0 {
					total += delta
				}
				openIn = nil
			}
		}
	}
	return total
}

// kindRank orders punch kinds for timestamp ties: In, then Out, then
// unclassified.
func kindRank(k domain.PunchKind) int {
	switch k {
	case domain.PunchIn:
		return 0
	case domain.PunchOut:
		return 1
	default:
		return 2
	}
}
