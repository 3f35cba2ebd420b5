package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ScanCycles = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "threadwarden_scan_cycles_total",
		Help: "Completed scan cycles over all configured forums.",
	})

	ForumResolveFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threadwarden_forum_resolve_failures_total",
		Help: "Forums that could not be resolved during a scan.",
	}, []string{"forum_id"})

	ThreadsScanned = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threadwarden_threads_scanned_total",
		Help: "Threads evaluated for inactivity.",
	}, []string{"forum_id"})

	ThreadsClosed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threadwarden_threads_closed_total",
		Help: "Threads locked and archived for inactivity.",
	}, []string{"forum_id"})

	LockStepFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threadwarden_lock_step_failures_total",
		Help: "Lock-and-close steps rejected by Discord.",
	}, []string{"step"})

	ThreadsResolved = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "threadwarden_threads_resolved_total",
		Help: "Threads renamed after the resolved tag was applied.",
	})

	StatsReports = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threadwarden_stats_reports_total",
		Help: "Closing statistics reports by outcome.",
	}, []string{"outcome"})

	LastScanTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "threadwarden_last_scan_timestamp_seconds",
		Help: "Unix time at which the last scan cycle finished.",
	})
)

func init() {
	prometheus.MustRegister(
		ScanCycles,
		ForumResolveFailures,
		ThreadsScanned,
		ThreadsClosed,
		LockStepFailures,
		ThreadsResolved,
		StatsReports,
		LastScanTimestamp,
	)
}
