// Package metrics records per-run counters for a preparation run and
// writes them as a node-exporter textfile.
//
// A run is a short batch job, so nothing is served over HTTP. The textfile
// collector picks the file up and the counters describe the latest run.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "plateprep"

// Metrics holds the collectors of one run on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	recordsLoaded  prometheus.Counter
	recordsInvalid prometheus.Counter
	recordsSkipped *prometheus.CounterVec
	recordsKept    *prometheus.CounterVec
	splitRecords   *prometheus.GaugeVec
	fallbacks      prometheus.Counter
	stageDuration  *prometheus.HistogramVec
	lastRun        *prometheus.GaugeVec
	auditScore     *prometheus.GaugeVec
}

// New creates and registers the run collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		recordsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_loaded_total",
			Help:      "Records read from the labels file",
		}),
		recordsInvalid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_invalid_total",
			Help:      "Records dropped by the loader for missing or malformed fields",
		}),
		recordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Records dropped by the filter, by reason",
		}, []string{"reason"}),
		recordsKept: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_kept_total",
			Help:      "Records that resolved to an image, by resolver rule",
		}, []string{"rule"}),
		splitRecords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "split_records",
			Help:      "Records written per split",
		}, []string{"split"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "converter_fallbacks_total",
			Help:      "Split files copied verbatim after a converter failure",
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time per pipeline stage",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}, []string{"run_id", "status"}),
		auditScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "audit_score",
			Help:      "OCR baseline audit results (exact_match, cer)",
		}, []string{"split", "score"}),
	}
	m.registry.MustRegister(
		m.recordsLoaded,
		m.recordsInvalid,
		m.recordsSkipped,
		m.recordsKept,
		m.splitRecords,
		m.fallbacks,
		m.stageDuration,
		m.lastRun,
		m.auditScore,
	)
	return m
}

// Registry exposes the private registry, e.g. for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Loaded records the loader outcome.
func (m *Metrics) Loaded(total, invalid int) {
	m.recordsLoaded.Add(float64(total))
	m.recordsInvalid.Add(float64(invalid))
}

// Filtered records the filter outcome.
func (m *Metrics) Filtered(skipped, byRule map[string]int) {
	for reason, n := range skipped {
		m.recordsSkipped.WithLabelValues(reason).Add(float64(n))
	}
	for rule, n := range byRule {
		m.recordsKept.WithLabelValues(rule).Add(float64(n))
	}
}

// SplitWritten sets the record count of one split.
func (m *Metrics) SplitWritten(split string, n int) {
	m.splitRecords.WithLabelValues(split).Set(float64(n))
}

// FellBack counts one converter fallback.
func (m *Metrics) FellBack() { m.fallbacks.Inc() }

// ObserveStage records how long a stage took since start.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	m.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Finished stamps the run with its id and outcome.
func (m *Metrics) Finished(runID string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.lastRun.WithLabelValues(runID, status).SetToCurrentTime()
}

// Audit records the OCR baseline of a split.
func (m *Metrics) Audit(split string, exactMatch, cer float64) {
	m.auditScore.WithLabelValues(split, "exact_match").Set(exactMatch)
	m.auditScore.WithLabelValues(split, "cer").Set(cer)
}

// WriteTextfile writes all collectors in the text exposition format.
// The file is written to a temp name and renamed, as the textfile
// collector requires.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics %s: %w", path, err)
	}
	return nil
}
