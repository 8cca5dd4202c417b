package services

import (
	"math/rand"
	"testing"
	"time"

	"github.com/psitech/go-attendance-backend/internal/domain"
)

func punch(s string, code int) domain.PunchEvent {
	at, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return domain.PunchEvent{
		Scope:        "org",
		SourceID:     "d1",
		UserID:       "7",
		TimestampUTC: at.UTC(),
		Punch:        code,
	}
}

var day = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func TestReconcileDay_EmptyIsAbsent(t *testing.T) {
	rec := ReconcileDay(day, nil)
	if rec.Status != domain.StatusAbsent || rec.WorkedMinutes != 0 {
		t.Fatalf("empty day = %+v, want absent with 0 minutes", rec)
	}
	if rec.FirstIn != "-" || rec.LastOut != "-" {
		t.Fatalf("absent markers missing: %+v", rec)
	}
	if rec.Date != "2025-06-02" {
		t.Fatalf("date = %q", rec.Date)
	}
}

func TestReconcileDay_PairingDeterminism(t *testing.T) {
	punches := []domain.PunchEvent{
		punch("2025-06-02 08:55", 0), // in
		punch("2025-06-02 13:00", 1), // out
		punch("2025-06-02 14:00", 0), // in
		punch("2025-06-02 18:10", 1), // out
	}
	wantMinutes := 245 + 250 // (13:00-08:55) + (18:10-14:00)

	rec := ReconcileDay(day, punches)
	if rec.Status != domain.StatusPresent {
		t.Fatalf("status = %v, want present", rec.Status)
	}
	if rec.WorkedMinutes != wantMinutes {
		t.Fatalf("minutes = %d, want %d", rec.WorkedMinutes, wantMinutes)
	}
	if rec.FirstIn != "08:55" || rec.LastOut != "18:10" {
		t.Fatalf("first/last = %q/%q", rec.FirstIn, rec.LastOut)
	}

	// Shuffling the input never changes the result.
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := make([]domain.PunchEvent, len(punches))
		copy(shuffled, punches)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		if got := ReconcileDay(day, shuffled); got != rec {
			t.Fatalf("shuffle %d changed the result: %+v vs %+v", i, got, rec)
		}
	}
}

func TestReconcileDay_InOnlyGetsDefaultShift(t *testing.T) {
	rec := ReconcileDay(day, []domain.PunchEvent{punch("2025-06-02 09:00", 0)})
	if rec.Status != domain.StatusHalfDay {
		t.Fatalf("status = %v, want half day for a single kind", rec.Status)
	}
	if rec.WorkedMinutes != DefaultShiftMinutes {
		t.Fatalf("minutes = %d, want the %d default for a forgotten clock-out", rec.WorkedMinutes, DefaultShiftMinutes)
	}
	if rec.FirstIn != "09:00" || rec.LastOut != "-" {
		t.Fatalf("first/last = %q/%q", rec.FirstIn, rec.LastOut)
	}
}

func TestReconcileDay_OutOnlyPairsNothing(t *testing.T) {
	rec := ReconcileDay(day, []domain.PunchEvent{punch("2025-06-02 17:00", 1)})
	if rec.Status != domain.StatusHalfDay {
		t.Fatalf("status = %v, want half day", rec.Status)
	}
	if rec.WorkedMinutes != 0 {
		t.Fatalf("minutes = %d, want 0: no In was ever open", rec.WorkedMinutes)
	}
	if rec.FirstIn != "-" || rec.LastOut != "17:00" {
		t.Fatalf("first/last = %q/%q", rec.FirstIn, rec.LastOut)
	}
}

func TestReconcileDay_SecondInReplacesOpenIn(t *testing.T) {
	rec := ReconcileDay(day, []domain.PunchEvent{
		punch("2025-06-02 08:00", 0), // discarded unpaired
		punch("2025-06-02 09:00", 0), // replaces the open In
		punch("2025-06-02 10:00", 1),
	})
	if rec.WorkedMinutes != 60 {
		t.Fatalf("minutes = %d, want 60: only the latest open In pairs", rec.WorkedMinutes)
	}
	if rec.FirstIn != "08:00" {
		t.Fatalf("firstIn = %q: earliest In still reported even when unpaired", rec.FirstIn)
	}
}

func TestReconcileDay_LeadingOutIgnored(t *testing.T) {
	rec := ReconcileDay(day, []domain.PunchEvent{
		punch("2025-06-02 07:00", 1), // no open In, ignored by the loop
		punch("2025-06-02 09:00", 0),
		punch("2025-06-02 17:00", 1),
	})
	if rec.WorkedMinutes != 480 {
		t.Fatalf("minutes = %d, want 480", rec.WorkedMinutes)
	}
	if rec.LastOut != "17:00" {
		t.Fatalf("lastOut = %q", rec.LastOut)
	}
}

func TestReconcileDay_UnclassifiableCodes(t *testing.T) {
	// All codes unknown: non-empty set but no In/Out evidence stays Absent.
	rec := ReconcileDay(day, []domain.PunchEvent{
		punch("2025-06-02 09:00", 9),
		punch("2025-06-02 10:00", 15),
	})
	if rec.Status != domain.StatusAbsent || rec.WorkedMinutes != 0 {
		t.Fatalf("all-unclassifiable day = %+v, want absent", rec)
	}

	// Mixed: only the classified punches pair.
	rec = ReconcileDay(day, []domain.PunchEvent{
		punch("2025-06-02 09:00", 0),
		punch("2025-06-02 12:00", 9), // ignored
		punch("2025-06-02 17:00", 2),
	})
	if rec.Status != domain.StatusPresent || rec.WorkedMinutes != 480 {
		t.Fatalf("mixed day = %+v, want present with 480 minutes", rec)
	}
}

func TestReconcileDay_AlternateCodeSets(t *testing.T) {
	// Codes 3/4 are In variants, 2/5 are Out variants.
	rec := ReconcileDay(day, []domain.PunchEvent{
		punch("2025-06-02 09:00", 4),
		punch("2025-06-02 13:00", 5),
		punch("2025-06-02 14:00", 3),
		punch("2025-06-02 18:00", 2),
	})
	if rec.Status != domain.StatusPresent {
		t.Fatalf("status = %v", rec.Status)
	}
	if rec.WorkedMinutes != 240+240 {
		t.Fatalf("minutes = %d", rec.WorkedMinutes)
	}
}

func TestReconcileDay_SubMinutePairTruncates(t *testing.T) {
	in := punch("2025-06-02 09:00", 0)
	out := punch("2025-06-02 09:00", 1)
	out.TimestampUTC = out.TimestampUTC.Add(45 * time.Second)
	rec := ReconcileDay(day, []domain.PunchEvent{in, out})
	if rec.WorkedMinutes != 0 {
		t.Fatalf("minutes = %d, want 0 for a 45-second pair", rec.WorkedMinutes)
	}
}

func TestReconcileDay_EqualTimestampsOrderIndependent(t *testing.T) {
	// Two sources can report an In and an Out carrying the same timestamp.
	// Whatever order they arrive in, the In sorts first and the pair closes
	// with zero minutes, then the later pair counts normally.
	in := punch("2025-06-02 09:00", 0)
	out := punch("2025-06-02 09:00", 1)
	in2 := punch("2025-06-02 10:00", 0)
	out2 := punch("2025-06-02 18:00", 1)

	forward := ReconcileDay(day, []domain.PunchEvent{in, out, in2, out2})
	reversed := ReconcileDay(day, []domain.PunchEvent{out, in, in2, out2})

	if forward != reversed {
		t.Fatalf("tie order changed the outcome: %+v vs %+v", forward, reversed)
	}
	if forward.WorkedMinutes != 480 {
		t.Fatalf("minutes = %d, want 480", forward.WorkedMinutes)
	}
	if forward.Status != domain.StatusPresent {
		t.Fatalf("status = %v", forward.Status)
	}
}
