package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// punchesIngested counts punch events durably inserted, by source.
	punchesIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_punches_ingested_total",
			Help: "Total number of punch events inserted into the store.",
		},
		[]string{"source"},
	)

	// punchesDuplicate counts resubmitted events absorbed by the unique
	// identity key instead of inserted.
	punchesDuplicate = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_punches_duplicate_total",
			Help: "Total number of punch events rejected as duplicates.",
		},
		[]string{"source"},
	)

	// syncCycles counts completed sync passes by mode and outcome. Mode is
	// "snapshot" or "incremental"; outcome is "ok" or "store_failed".
	syncCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_sync_cycles_total",
			Help: "Total number of sync cycles by mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)

	// sourceFailures counts per-source pass failures (unreachable device,
	// fetch error, or store error attributed to that source).
	sourceFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_source_failures_total",
			Help: "Total number of failed per-source sync passes.",
		},
		[]string{"source"},
	)
)

func init() {
	prometheus.MustRegister(punchesIngested, punchesDuplicate, syncCycles, sourceFailures)
}
