package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the extraction metrics.
type Metrics struct {
	StatementsProcessed *prometheus.CounterVec
	StatementsFailed    prometheus.Counter
	ItemsEmitted        *prometheus.CounterVec
	ExtractErrors       *prometheus.CounterVec
	FXPairs             *prometheus.CounterVec
	ExtractDuration     prometheus.Histogram

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StatementsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "importer_statements_processed_total",
				Help: "Statements extracted, by detected layout",
			},
			[]string{"layout"},
		),
		StatementsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "importer_statements_failed_total",
			Help: "Statements rejected as a whole",
		}),
		ItemsEmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "importer_items_emitted_total",
				Help: "Items emitted, by kind",
			},
			[]string{"kind"},
		),
		ExtractErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "importer_extract_errors_total",
				Help: "Non-fatal extraction errors, by kind",
			},
			[]string{"kind"},
		),
		FXPairs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "importer_fx_legs_total",
				Help: "Currency exchange legs, by outcome",
			},
			[]string{"outcome"},
		),
		ExtractDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "importer_extract_duration_seconds",
			Help:    "Duration of one statement extraction",
			Buckets: prometheus.DefBuckets,
		}),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "importer_http_requests_total",
				Help: "HTTP requests, by route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "importer_http_request_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}
