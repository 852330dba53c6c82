package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
)

// Metrics holds the scan instrumentation. A nil *Metrics records nothing.
type Metrics struct {
	scansTotal      *prometheus.CounterVec
	scanDuration    *prometheus.HistogramVec
	scansInProgress *prometheus.GaugeVec
	itemsProcessed  *prometheus.CounterVec
	itemsRemoved    *prometheus.CounterVec
	lastSuccess     *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		scansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catalog",
			Name:      "scans_total",
			Help:      "Library scans by outcome.",
		}, []string{"source", "mode", "outcome"}),
		scanDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "catalog",
			Name:      "scan_duration_seconds",
			Help:      "Library scan duration.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}, []string{"source", "mode"}),
		scansInProgress: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "catalog",
			Name:      "scans_in_progress",
			Help:      "Library scans currently running.",
		}, []string{"source"}),
		itemsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catalog",
			Name:      "items_processed_total",
			Help:      "Items processed by scans, by result.",
		}, []string{"source", "result"}),
		itemsRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catalog",
			Name:      "items_removed_total",
			Help:      "Stale items pruned by full scans.",
		}, []string{"source"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "catalog",
			Name:      "last_successful_scan_timestamp_seconds",
			Help:      "Unix time of the last successful scan per source.",
		}, []string{"source"}),
	}
	reg.MustRegister(
		m.scansTotal,
		m.scanDuration,
		m.scansInProgress,
		m.itemsProcessed,
		m.itemsRemoved,
		m.lastSuccess,
	)
	return m
}

func outcome(r domain.ScanResult) string {
	switch {
	case r.Cancelled:
		return "cancelled"
	case r.Success:
		return "success"
	default:
		return "failed"
	}
}

func scanMode(r domain.ScanResult) string {
	if r.Incremental {
		return "incremental"
	}
	return "full"
}

func (m *Metrics) scanStarted(source string) {
	if m == nil {
		return
	}
	m.scansInProgress.WithLabelValues(source).Inc()
}

func (m *Metrics) scanFinished(r domain.ScanResult, took time.Duration) {
	if m == nil {
		return
	}
	m.scansInProgress.WithLabelValues(r.SourceID).Dec()
	m.scansTotal.WithLabelValues(r.SourceID, scanMode(r), outcome(r)).Inc()
	m.scanDuration.WithLabelValues(r.SourceID, scanMode(r)).Observe(took.Seconds())
	if r.Success {
		m.lastSuccess.WithLabelValues(r.SourceID).SetToCurrentTime()
	}
}

func (m *Metrics) itemProcessed(source, result string) {
	if m == nil {
		return
	}
	m.itemsProcessed.WithLabelValues(source, result).Inc()
}

func (m *Metrics) itemRemoved(source string) {
	if m == nil {
		return
	}
	m.itemsRemoved.WithLabelValues(source).Inc()
}
