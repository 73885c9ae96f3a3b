package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	// ScansTotal counts finished scans by scan type and outcome.
	ScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safescan_scans_total",
			Help: "Number of completed file scans",
		},
		[]string{"scan_type", "outcome"},
	)

	// ScanDuration tracks the duration of full pipeline scans.
	ScanDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "safescan_scan_duration_seconds",
			Help:    "Time spent scanning a file end to end",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"scan_type"},
	)

	// StageBlocks counts files blocked per pipeline stage.
	StageBlocks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safescan_stage_blocks_total",
			Help: "Files blocked, by pipeline stage",
		},
		[]string{"stage"},
	)

	// ExternalFailures counts failed calls to external classification services.
	ExternalFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safescan_external_failures_total",
			Help: "Failed calls to external scan services",
		},
		[]string{"service"},
	)

	// ActiveScans tracks the number of scans currently in flight.
	ActiveScans = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "safescan_active_scans",
			Help: "Number of scans currently in flight",
		},
	)
)

func init() {
	prometheus.MustRegister(ScansTotal, ScanDuration, StageBlocks, ExternalFailures, ActiveScans)
}

// ObserveScan records a completed scan with its outcome and duration.
func ObserveScan(scanType string, safe bool, started time.Time) {
	outcome := "blocked"
	if safe {
		outcome = "passed"
	}
	ScansTotal.WithLabelValues(scanType, outcome).Inc()
	ScanDuration.WithLabelValues(scanType).Observe(time.Since(started).Seconds())
}

// Serve starts the Prometheus metrics endpoint on the given address.
// It blocks, so callers run it in a goroutine.
func Serve(addr string, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn("Metrics server exited", zap.Error(err))
	}
}
