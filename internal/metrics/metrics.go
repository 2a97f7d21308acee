// Package metrics holds the per-run Prometheus registry. The ETL is a batch
// job, so metrics are exported as a node-exporter textfile instead of served.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds the pipeline metrics on a private prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	Rows         *prometheus.CounterVec // entity, stage (raw|cleaned|loaded)
	Dropped      *prometheus.CounterVec // entity, reason
	Repaired     *prometheus.CounterVec // entity, repair
	LoadDuration prometheus.Histogram
	Runs         *prometheus.CounterVec // status (success|failure|dry_run)
	LastSuccess  prometheus.Gauge
}

// NewRegistry creates and registers every pipeline metric.
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleximart_etl_rows_total",
		Help: "Rows seen per entity and pipeline stage.",
	}, []string{"entity", "stage"})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleximart_etl_rows_dropped_total",
		Help: "Rows excluded per entity and reason.",
	}, []string{"entity", "reason"})
	repaired := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleximart_etl_fields_repaired_total",
		Help: "Field repairs per entity and kind.",
	}, []string{"entity", "repair"})
	loadDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fleximart_etl_load_duration_seconds",
		Help:    "Duration of the truncate-and-reload transaction.",
		Buckets: prometheus.DefBuckets,
	})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleximart_etl_runs_total",
		Help: "Pipeline runs by outcome.",
	}, []string{"status"})
	lastSuccess := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fleximart_etl_last_success_timestamp_seconds",
		Help: "Unix time of the last committed load.",
	})

	r.MustRegister(rows, dropped, repaired, loadDuration, runs, lastSuccess)
	return &Registry{
		reg:          r,
		Rows:         rows,
		Dropped:      dropped,
		Repaired:     repaired,
		LoadDuration: loadDuration,
		Runs:         runs,
		LastSuccess:  lastSuccess,
	}
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// WriteTextfile writes all metrics to path in the text exposition format.
// The file is replaced atomically.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
