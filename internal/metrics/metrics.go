package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	EmailsIngested      prometheus.Counter
	DuplicatesSkipped   prometheus.Counter
	ExtractionsByMethod *prometheus.CounterVec
	Matches             prometheus.Counter
	MismatchApprovals   prometheus.Counter
	Unmatched           prometheus.Counter
	SettlementConflicts prometheus.Counter
	SweepRuns           prometheus.Counter
	FetchCycles         prometheus.Counter
	ProcessingTime      prometheus.Histogram
	PendingPayments     prometheus.Gauge
}

// NewMetrics creates new Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		EmailsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reconciler_emails_ingested_total",
			Help: "Total number of unique emails ingested",
		}),
		DuplicatesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reconciler_duplicate_emails_total",
			Help: "Total number of duplicate email deliveries skipped by dedupe",
		}),
		ExtractionsByMethod: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reconciler_extractions_total",
			Help: "Total number of extractions by method",
		}, []string{"method"}),
		Matches: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reconciler_matches_total",
			Help: "Total number of emails matched to a payment",
		}),
		MismatchApprovals: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reconciler_mismatch_approvals_total",
			Help: "Total number of payments approved with an amount mismatch inside tolerance",
		}),
		Unmatched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reconciler_unmatched_total",
			Help: "Total number of match evaluations that found no payment",
		}),
		SettlementConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reconciler_settlement_conflicts_total",
			Help: "Total number of settlement attempts lost to a concurrent match",
		}),
		SweepRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reconciler_sweep_runs_total",
			Help: "Total number of global reconciliation sweeps",
		}),
		FetchCycles: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reconciler_fetch_cycles_total",
			Help: "Total number of inbox fetch cycles",
		}),
		ProcessingTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "reconciler_processing_duration_seconds",
			Help:    "Time spent processing emails",
			Buckets: prometheus.DefBuckets,
		}),
		PendingPayments: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "reconciler_pending_payments",
			Help: "Number of currently pending payment requests",
		}),
	}
}
