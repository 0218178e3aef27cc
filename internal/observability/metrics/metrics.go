package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "blastcharge_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	templateApplyTotal   *prometheus.CounterVec
	templateApplyLatency *prometheus.HistogramVec

	rescaleTotal   *prometheus.CounterVec
	rescaleLatency *prometheus.HistogramVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec

	formulaFailures *prometheus.CounterVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		templateApplyTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "template_apply_total",
				Help: "Total template applications by result",
			},
			[]string{"result"},
		)
		templateApplyLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "template_apply_latency_seconds",
				Help:    "Template application latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		rescaleTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "rescale_total",
				Help: "Total charge column rescales by result",
			},
			[]string{"result"},
		)
		rescaleLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "rescale_latency_seconds",
				Help:    "Charge column rescale latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "charge_sheet_export_total",
				Help: "Total charge sheet exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "charge_sheet_export_latency_seconds",
				Help:    "Charge sheet export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		formulaFailures = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "formula_failures_total",
				Help: "Total formula evaluations resolved to null by stage",
			},
			[]string{"stage"},
		)

		prometheus.MustRegister(
			templateApplyTotal,
			templateApplyLatency,
			rescaleTotal,
			rescaleLatency,
			exportTotal,
			exportLatency,
			formulaFailures,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveTemplateApply records template application latency and result.
func ObserveTemplateApply(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if templateApplyTotal != nil {
		templateApplyTotal.WithLabelValues(result).Inc()
	}
	if templateApplyLatency != nil {
		templateApplyLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveRescale records rescale latency and result.
func ObserveRescale(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if rescaleTotal != nil {
		rescaleTotal.WithLabelValues(result).Inc()
	}
	if rescaleLatency != nil {
		rescaleLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveExport records charge sheet export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncFormulaFailure counts a formula that resolved to null.
func IncFormulaFailure(stage string) {
	if stage == "" {
		stage = "unknown"
	}
	if formulaFailures != nil {
		formulaFailures.WithLabelValues(stage).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
