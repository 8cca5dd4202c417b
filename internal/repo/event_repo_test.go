package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/psitech/go-attendance-backend/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Use a unique in-memory database per test to avoid schema leakage across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func ts(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func mkEvent(scope, source, user string, at time.Time, punch int) *domain.PunchEvent {
	return &domain.PunchEvent{
		Scope:        scope,
		SourceID:     source,
		UserID:       user,
		TimestampUTC: at,
		Punch:        punch,
	}
}

func TestPutEvent_InsertThenDuplicate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	at := ts("2025-06-02 08:55")

	res, err := PutEvent(ctx, db, mkEvent("org", "192.168.1.250", "7", at, 0))
	if err != nil || res != PutInserted {
		t.Fatalf("first put = (%v, %v), want (PutInserted, nil)", res, err)
	}

	// Same identity key again: no error, no second row.
	res, err = PutEvent(ctx, db, mkEvent("org", "192.168.1.250", "7", at, 0))
	if err != nil || res != PutDuplicate {
		t.Fatalf("second put = (%v, %v), want (PutDuplicate, nil)", res, err)
	}

	n, err := CountEvents(ctx, db, "org")
	if err != nil || n != 1 {
		t.Fatalf("CountEvents = (%d, %v), want exactly one row", n, err)
	}
}

func TestPutEvent_DistinctSourcesCoexist(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	at := ts("2025-06-02 08:55")

	for _, src := range []string{"192.168.1.250", "192.168.1.251"} {
		if res, err := PutEvent(ctx, db, mkEvent("org", src, "7", at, 0)); err != nil || res != PutInserted {
			t.Fatalf("put for %s = (%v, %v)", src, res, err)
		}
	}
	n, _ := CountEvents(ctx, db, "org")
	if n != 2 {
		t.Fatalf("same user+time from two sources should keep both rows, got %d", n)
	}
}

func TestPutEvent_ScopesArePartitions(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	at := ts("2025-06-02 08:55")

	if res, _ := PutEvent(ctx, db, mkEvent("hostel_a", "d1", "7", at, 0)); res != PutInserted {
		t.Fatal("expected insert in first scope")
	}
	if res, _ := PutEvent(ctx, db, mkEvent("hostel_b", "d1", "7", at, 0)); res != PutInserted {
		t.Fatal("same key in another scope must insert, scopes are independent partitions")
	}
}

func TestQueryRange_OrderAndBounds(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// Insert deliberately out of timestamp order.
	times := []string{"2025-06-02 18:10", "2025-06-02 08:55", "2025-06-02 13:00", "2025-06-03 09:00"}
	for i, s := range times {
		if _, err := PutEvent(ctx, db, mkEvent("org", "d1", "7", ts(s), i)); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	evs, err := QueryRange(ctx, db, "org", RangeFilter{})
	if err != nil {
		t.Fatalf("QueryRange: %v", err)
	}
	if len(evs) != 4 {
		t.Fatalf("got %d events, want 4", len(evs))
	}
	for i := 1; i < len(evs); i++ {
		if evs[i].TimestampUTC.Before(evs[i-1].TimestampUTC) {
			t.Fatalf("events not ascending at %d", i)
		}
	}

	// Bounded: [08:55, next day) on June 2 only.
	evs, err = QueryRange(ctx, db, "org", RangeFilter{
		FromUTC: ts("2025-06-02 00:00"),
		ToUTC:   ts("2025-06-03 00:00"),
	})
	if err != nil || len(evs) != 3 {
		t.Fatalf("bounded range = (%d, %v), want 3 events", len(evs), err)
	}

	// Filter by user that does not exist.
	evs, err = QueryRange(ctx, db, "org", RangeFilter{UserID: "nobody"})
	if err != nil || len(evs) != 0 {
		t.Fatalf("missing user = (%d, %v), want empty", len(evs), err)
	}
}

func TestEventsForMonth(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, s := range []string{"2025-05-31 23:59", "2025-06-01 00:00", "2025-06-30 23:59", "2025-07-01 00:00"} {
		if _, err := PutEvent(ctx, db, mkEvent("org", "d1", "7", ts(s), 0)); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	evs, err := EventsForMonth(ctx, db, "org", domain.Month{Year: 2025, Month: time.June})
	if err != nil {
		t.Fatalf("EventsForMonth: %v", err)
	}
	if len(evs) != 2 {
		t.Fatalf("got %d events for June, want 2", len(evs))
	}
}

func TestListMonths(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, s := range []string{"2025-06-02 08:55", "2025-06-15 09:00", "2025-04-01 10:00"} {
		if _, err := PutEvent(ctx, db, mkEvent("org", "d1", "7", ts(s), 0)); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	// A different scope must not leak into the listing.
	if _, err := PutEvent(ctx, db, mkEvent("other", "d1", "7", ts("2025-01-01 10:00"), 0)); err != nil {
		t.Fatalf("put: %v", err)
	}

	months, err := ListMonths(ctx, db, "org")
	if err != nil {
		t.Fatalf("ListMonths: %v", err)
	}
	want := []string{"2025-04", "2025-06"}
	if len(months) != len(want) {
		t.Fatalf("months = %v, want %v", months, want)
	}
	for i := range want {
		if months[i] != want[i] {
			t.Fatalf("months = %v, want %v", months, want)
		}
	}
}

func TestMaxTimestamp(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := MaxTimestamp(ctx, db, "org", "d1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for empty source, got %v", err)
	}

	for _, s := range []string{"2025-06-02 08:55", "2025-06-02 18:10", "2025-06-01 07:00"} {
		if _, err := PutEvent(ctx, db, mkEvent("org", "d1", "7", ts(s), 0)); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	got, err := MaxTimestamp(ctx, db, "org", "d1")
	if err != nil {
		t.Fatalf("MaxTimestamp: %v", err)
	}
	if !got.Equal(ts("2025-06-02 18:10")) {
		t.Fatalf("MaxTimestamp = %v", got)
	}
}
