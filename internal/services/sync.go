// Package services – sync orchestration.
//
// The SyncService drives adapter → store → watermark for a configured list of
// sources, either once (snapshot) or on a repeating cadence (live sync).
// Source failures are isolated: one unreachable device never aborts the cycle
// or affects another source's state. Store unavailability does abort the
// cycle, leaving watermarks untouched so nothing is skipped on retry.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/psitech/go-attendance-backend/internal/device"
	"github.com/psitech/go-attendance-backend/internal/domain"
	"github.com/psitech/go-attendance-backend/internal/repo"
)

// SourceReport is the per-source outcome of one cycle.
type SourceReport struct {
	SourceID   string `json:"source_id"`
	Fetched    int    `json:"fetched"`
	Inserted   int    `json:"inserted"`
	Duplicates int    `json:"duplicates"`
	Error      string `json:"error,omitempty"`
}

// CycleReport summarizes one snapshot or incremental pass over all sources.
type CycleReport struct {
	Scope      string         `json:"scope"`
	Mode       string         `json:"mode"` // "snapshot" or "incremental"
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Sources    []SourceReport `json:"sources"`
	Months     []string       `json:"months,omitempty"`
}

// SourceStatus reports one source's watermark for the status endpoint.
type SourceStatus struct {
	SourceID  string     `json:"source_id"`
	Watermark *time.Time `json:"watermark,omitempty"`
}

// SyncStatus is the orchestrator's observable state.
type SyncStatus struct {
	Running  bool           `json:"running"`
	Scope    string         `json:"scope"`
	Interval time.Duration  `json:"interval_ns"`
	Sources  []SourceStatus `json:"sources"`
}

// SyncService owns all sync state explicitly: current scope, source list,
// and the live-sync lifecycle. No ambient globals.
type SyncService struct {
	DB       *gorm.DB
	Adapter  device.Adapter
	Interval time.Duration
	Log      zerolog.Logger

	// cycleMu serializes cycles: at most one pass (snapshot or tick) is in
	// flight, and scope switches only apply while it is free.
	cycleMu sync.Mutex

	mu      sync.Mutex // guards the fields below
	scope   string
	sources []device.Source
	running bool
	stop    context.CancelFunc
	done    chan struct{}
}

// NewSyncService constructs an orchestrator for the given scope and sources.
func NewSyncService(db *gorm.DB, adapter device.Adapter, scope string, sources []device.Source, interval time.Duration, log zerolog.Logger) (*SyncService, error) {
	clean, err := SanitizeScope(scope)
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &SyncService{
		DB:       db,
		Adapter:  adapter,
		Interval: interval,
		Log:      log,
		scope:    clean,
		sources:  sources,
	}, nil
}

// SanitizeScope normalizes an organization name into a storage scope:
// spaces become underscores and anything outside [A-Za-z0-9_] is replaced.
func SanitizeScope(scope string) (string, error) {
	out := make([]rune, 0, len(scope))
	for _, r := range scope {
		switch {
		case r == ' ':
			out = append(out, '_')
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "", ErrInvalidScope
	}
	return string(out), nil
}

// Scope returns the active storage scope.
func (s *SyncService) Scope() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scope
}

// SetScope switches the active scope. The switch only applies between sync
// cycles: if a cycle is in flight the call fails with ErrScopeLocked rather
// than racing it.
func (s *SyncService) SetScope(scope string) error {
	clean, err := SanitizeScope(scope)
	if err != nil {
		return err
	}
	if !s.cycleMu.TryLock() {
		return ErrScopeLocked
	}
	defer s.cycleMu.Unlock()

	s.mu.Lock()
	s.scope = clean
	s.mu.Unlock()
	s.Log.Info().Str("scope", clean).Msg("scope switched")
	return nil
}

// Status reports the orchestrator state and per-source watermarks.
func (s *SyncService) Status(ctx context.Context) SyncStatus {
	s.mu.Lock()
	st := SyncStatus{
		Running:  s.running,
		Scope:    s.scope,
		Interval: s.Interval,
	}
	sources := make([]device.Source, len(s.sources))
	copy(sources, s.sources)
	s.mu.Unlock()

	for _, src := range sources {
		ss := SourceStatus{SourceID: src.ID()}
		if wm, err := repo.GetWatermark(ctx, s.DB, st.Scope, src.ID()); err == nil {
			ss.Watermark = &wm
		}
		st.Sources = append(st.Sources, ss)
	}
	return st
}

// RunSnapshot performs one full fetch across all sources: user lists and
// complete attendance logs, idempotently ingested, watermarks advanced, and
// the available months rebuilt from store contents.
func (s *SyncService) RunSnapshot(ctx context.Context) (CycleReport, error) {
	if !s.cycleMu.TryLock() {
		return CycleReport{}, ErrSyncRunning
	}
	defer s.cycleMu.Unlock()
	return s.runCycle(ctx, true)
}

// Start launches the continuous cycle. Starting while already running is a
// no-op; the returned bool reports whether a new run began.
func (s *SyncService) Start(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.running = true
	s.stop = cancel
	s.done = make(chan struct{})
	go s.loop(runCtx, s.done)
	s.Log.Info().Dur("interval", s.Interval).Msg("live sync started")
	return true
}

// Stop cancels the continuous cycle. It prevents further ticks from starting
// but never interrupts a tick already in flight; it returns once the loop has
// fully wound down. Stopping while not running is a no-op.
func (s *SyncService) Stop() bool {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return false
	}
	cancel, done := s.stop, s.done
	s.mu.Unlock()

	cancel()
	<-done

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	s.Log.Info().Msg("live sync stopped")
	return true
}

// loop drives incremental ticks until cancelled. Cancellation is checked at
// the top of each tick; a tick is a short bounded sequence of fallible calls,
// so no mid-tick suspension is needed.
func (s *SyncService) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		s.cycleMu.Lock()
		if ctx.Err() != nil {
			s.cycleMu.Unlock()
			return
		}
		if _, err := s.runCycle(ctx, false); err != nil {
			// A tick-level failure (store down) must not stop the timer.
			s.Log.Error().Err(err).Msg("live sync tick failed")
		}
		s.cycleMu.Unlock()
	}
}

// runCycle processes every configured source sequentially with per-source
// failure isolation. Callers hold cycleMu.
func (s *SyncService) runCycle(ctx context.Context, snapshot bool) (CycleReport, error) {
	s.mu.Lock()
	scope := s.scope
	sources := make([]device.Source, len(s.sources))
	copy(sources, s.sources)
	s.mu.Unlock()

	mode := "incremental"
	if snapshot {
		mode = "snapshot"
	}
	report := CycleReport{Scope: scope, Mode: mode, StartedAt: time.Now().UTC()}

	var storeErr error
	for _, src := range sources {
		res := s.syncSourceResult(ctx, scope, src, snapshot)
		res.SourceID = src.ID()
		report.Sources = append(report.Sources, res.SourceReport)
		if res.Error != "" {
			sourceFailures.WithLabelValues(src.ID()).Inc()
		}
		if res.storeFailed {
			// Ingestion correctness cannot be guaranteed without the store:
			// finish reporting but fail the cycle.
			storeErr = fmt.Errorf("%w: source %s: %s", ErrStoreUnavailable, src.ID(), res.Error)
			break
		}
	}
	report.FinishedAt = time.Now().UTC()

	if storeErr != nil {
		syncCycles.WithLabelValues(mode, "store_failed").Inc()
		return report, storeErr
	}
	if snapshot {
		months, err := repo.ListMonths(ctx, s.DB, scope)
		if err != nil {
			syncCycles.WithLabelValues(mode, "store_failed").Inc()
			return report, fmt.Errorf("%w: list months: %v", ErrStoreUnavailable, err)
		}
		report.Months = months
	}
	syncCycles.WithLabelValues(mode, "ok").Inc()
	return report, nil
}

// sourceResult extends the public report with the internal store-failure flag.
type sourceResult struct {
	SourceReport
	storeFailed bool
}

func (r sourceResult) withError(err error) sourceResult {
	r.Error = err.Error()
	return r
}

// syncSource runs one source's pass: fetch, filter (incremental), ingest,
// advance watermark. Adapter failures are reported but isolated; store
// failures set storeFailed so the cycle can abort.
func (s *SyncService) syncSource(ctx context.Context, scope string, src device.Source, snapshot bool) SourceReport {
	res := s.syncSourceResult(ctx, scope, src, snapshot)
	res.SourceReport.SourceID = src.ID()
	return res.SourceReport
}

func (s *SyncService) syncSourceResult(ctx context.Context, scope string, src device.Source, snapshot bool) sourceResult {
	log := s.Log.With().Str("scope", scope).Str("source", src.ID()).Logger()
	var res sourceResult

	sess, err := s.Adapter.Open(ctx, src)
	if err != nil {
		log.Warn().Err(err).Msg("source unreachable")
		return res.withError(err)
	}
	defer sess.Close()

	var users []device.User
	if snapshot {
		users, err = sess.ListUsers(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("user list fetch failed")
			return res.withError(err)
		}
	}

	punches, err := sess.ListAttendance(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("attendance fetch failed")
		return res.withError(err)
	}
	res.Fetched = len(punches)

	if !snapshot {
		wm, ok, err := s.currentWatermark(ctx, scope, src.ID())
		if err != nil {
			res.storeFailed = true
			return res.withError(err)
		}
		if ok {
			punches = filterNewer(punches, wm)
		}
		if len(punches) == 0 {
			return res
		}
		// Identities refresh lazily: only when a tick actually has new
		// events, and best-effort.
		if u, err := sess.ListUsers(ctx); err == nil {
			users = u
		} else {
			log.Debug().Err(err).Msg("lazy identity refresh failed")
		}
	}

	// Merge identities first (last write wins per user id), then ingest.
	for _, u := range users {
		name := u.Name
		if name == "" {
			name = "User " + u.UserID
		}
		if err := repo.UpsertIdentity(ctx, s.DB, scope, u.UserID, name); err != nil {
			res.storeFailed = true
			return res.withError(err)
		}
	}

	known := make(map[string]struct{}, len(users))
	for _, u := range users {
		known[u.UserID] = struct{}{}
	}

	var maxTS time.Time
	for _, p := range punches {
		if _, ok := known[p.UserID]; !ok {
			if err := repo.EnsureIdentity(ctx, s.DB, scope, p.UserID); err != nil {
				res.storeFailed = true
				return res.withError(err)
			}
			known[p.UserID] = struct{}{}
		}
		result, err := repo.PutEvent(ctx, s.DB, &domain.PunchEvent{
			Scope:        scope,
			SourceID:     src.ID(),
			UserID:       p.UserID,
			TimestampUTC: p.Timestamp,
			Punch:        p.Code,
		})
		if err != nil {
			// A write failure is never a duplicate: surface it so the cycle
			// retries instead of silently dropping data.
			res.storeFailed = true
			return res.withError(err)
		}
		switch result {
		case repo.PutInserted:
			res.Inserted++
			punchesIngested.WithLabelValues(src.ID()).Inc()
		case repo.PutDuplicate:
			res.Duplicates++
			punchesDuplicate.WithLabelValues(src.ID()).Inc()
		}
		if ts := p.Timestamp.UTC(); ts.After(maxTS) {
			maxTS = ts
		}
	}

	// The watermark only advances over events durably ingested above.
	if !maxTS.IsZero() {
		if err := repo.AdvanceWatermark(ctx, s.DB, scope, src.ID(), maxTS); err != nil {
			res.storeFailed = true
			return res.withError(err)
		}
	}

	log.Info().Int("fetched", res.Fetched).Int("inserted", res.Inserted).
		Int("duplicates", res.Duplicates).Msg("source synced")
	return res
}

// currentWatermark returns the source's watermark, seeding it from the
// newest stored event when the tracker is cold (e.g. after a restart).
func (s *SyncService) currentWatermark(ctx context.Context, scope, sourceID string) (time.Time, bool, error) {
	wm, err := repo.GetWatermark(ctx, s.DB, scope, sourceID)
	if err == nil {
		return wm, true, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return time.Time{}, false, err
	}
	wm, err = repo.MaxTimestamp(ctx, s.DB, scope, sourceID)
	if err == nil {
		return wm, true, nil
	}
	if errors.Is(err, repo.ErrNotFound) {
		return time.Time{}, false, nil
	}
	return time.Time{}, false, err
}

// filterNewer keeps only punches strictly newer than the watermark. Events at
// or before it are safe to resubmit (the store deduplicates) but skipping
// them keeps per-cycle insert metrics honest.
func filterNewer(punches []device.RawPunch, wm time.Time) []device.RawPunch {
	fresh := punches[:0:0]
	for _, p := range punches {
		if p.Timestamp.UTC().After(wm) {
			fresh = append(fresh, p)
		}
	}
	return fresh
}
