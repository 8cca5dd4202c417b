package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/psitech/go-attendance-backend/internal/domain"
)

func june() domain.Month { return domain.Month{Year: 2025, Month: time.June} }

func ident(id, name string) domain.UserIdentity {
	return domain.UserIdentity{Scope: "org", UserID: id, DisplayName: name}
}

func TestBuildMatrix_Completeness(t *testing.T) {
	users := []domain.UserIdentity{ident("1", "Asha"), ident("2", "Ravi"), ident("3", "Zoya")}
	m := BuildMatrix(june(), users, nil)

	if len(m.Rows) != 3 {
		t.Fatalf("got %d rows, want one per known user", len(m.Rows))
	}
	for _, row := range m.Rows {
		if len(row.Days) != 30 {
			t.Fatalf("user %s has %d day entries, want 30", row.UserID, len(row.Days))
		}
		if row.TotalMinutes != 0 {
			t.Fatalf("user %s total = %d, want 0 for an all-absent month", row.UserID, row.TotalMinutes)
		}
		for _, d := range row.Days {
			if d.Status != domain.StatusAbsent {
				t.Fatalf("user %s day %s = %v, want absent", row.UserID, d.Date, d.Status)
			}
		}
	}
}

func TestBuildMatrix_LeapFebruary(t *testing.T) {
	m := BuildMatrix(domain.Month{Year: 2024, Month: time.February}, []domain.UserIdentity{ident("1", "A")}, nil)
	if len(m.Rows[0].Days) != 29 {
		t.Fatalf("feb 2024 has %d days in matrix, want 29", len(m.Rows[0].Days))
	}
}

func TestBuildMatrix_RowOrderDeterministic(t *testing.T) {
	users := []domain.UserIdentity{
		ident("9", "Ravi"),
		ident("2", "Asha"),
		ident("1", "Ravi"), // same name, lower user id
	}
	m := BuildMatrix(june(), users, nil)

	got := []string{m.Rows[0].UserID, m.Rows[1].UserID, m.Rows[2].UserID}
	want := []string{"2", "1", "9"} // Asha first, then Ravi ties broken by id
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("row order = %v, want %v", got, want)
		}
	}
}

func TestBuildMatrix_MultiSourceMerge(t *testing.T) {
	users := []domain.UserIdentity{ident("7", "Asha K")}
	events := []domain.PunchEvent{
		punch("2025-06-02 08:55", 0), // source d1
		punch("2025-06-02 13:00", 1),
	}
	second := punch("2025-06-03 09:00", 0)
	second.SourceID = "d2"
	secondOut := punch("2025-06-03 17:00", 1)
	secondOut.SourceID = "d2"
	events = append(events, second, secondOut)

	m := BuildMatrix(june(), users, events)
	row := m.Rows[0]
	if row.DisplayName != "Asha K" {
		t.Fatalf("display name = %q", row.DisplayName)
	}
	// Both sources contribute to the same user's total.
	want := 245 + 480
	if row.TotalMinutes != want {
		t.Fatalf("total = %d, want %d across sources", row.TotalMinutes, want)
	}
	if row.Days[1].Status != domain.StatusPresent || row.Days[2].Status != domain.StatusPresent {
		t.Fatalf("days 2 and 3 should be present: %+v %+v", row.Days[1], row.Days[2])
	}
}

func TestBuildMatrix_IgnoresEventsOutsideMonth(t *testing.T) {
	users := []domain.UserIdentity{ident("7", "Asha")}
	events := []domain.PunchEvent{
		punch("2025-05-31 09:00", 0),
		punch("2025-07-01 09:00", 0),
	}
	m := BuildMatrix(june(), users, events)
	if m.Rows[0].TotalMinutes != 0 {
		t.Fatalf("out-of-month events leaked into the total: %d", m.Rows[0].TotalMinutes)
	}
}

func TestBuildMatrix_Reproducible(t *testing.T) {
	users := []domain.UserIdentity{ident("7", "Asha"), ident("8", "Ravi")}
	events := []domain.PunchEvent{
		punch("2025-06-02 08:55", 0),
		punch("2025-06-02 18:10", 1),
		punch("2025-06-15 10:00", 4),
	}
	a, _ := json.Marshal(BuildMatrix(june(), users, events))
	b, _ := json.Marshal(BuildMatrix(june(), users, events))
	if string(a) != string(b) {
		t.Fatal("BuildMatrix is not reproducible for identical inputs")
	}
}
