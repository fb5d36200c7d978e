// Package metrics registers the pipeline's Prometheus instrumentation.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "gridswitch_"

var (
	registerOnce sync.Once

	tablesWritten *prometheus.CounterVec
	rowsWritten   *prometheus.CounterVec
	stageLatency  *prometheus.HistogramVec
	decodeErrors  prometheus.Counter
	gridsBuilt    prometheus.Counter
)

// Init registers the pipeline metrics. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		tablesWritten = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "tables_written_total",
				Help: "Input tables written, by table name",
			},
			[]string{"table"},
		)
		rowsWritten = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "table_rows_written_total",
				Help: "Input table rows written, by table name",
			},
			[]string{"table"},
		)
		stageLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "stage_latency_seconds",
				Help:    "Pipeline stage latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		)
		decodeErrors = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "decode_errors_total",
				Help: "Identifier or solution decode failures",
			},
		)
		gridsBuilt = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "grids_reconstructed_total",
				Help: "Per-year grids reconstructed from solver output",
			},
		)

		prometheus.MustRegister(tablesWritten, rowsWritten, stageLatency, decodeErrors, gridsBuilt)
	})
}

// ObserveTableWritten records one written table and its row count.
func ObserveTableWritten(table string, rows int) {
	if tablesWritten == nil {
		return
	}
	tablesWritten.WithLabelValues(table).Inc()
	rowsWritten.WithLabelValues(table).Add(float64(rows))
}

// ObserveStage records the duration of one pipeline stage.
func ObserveStage(stage string, start time.Time) {
	if stageLatency == nil {
		return
	}
	stageLatency.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// ObserveDecodeError counts one decode failure.
func ObserveDecodeError() {
	if decodeErrors == nil {
		return
	}
	decodeErrors.Inc()
}

// ObserveGridReconstructed counts one reconstructed per-year grid.
func ObserveGridReconstructed() {
	if gridsBuilt == nil {
		return
	}
	gridsBuilt.Inc()
}
