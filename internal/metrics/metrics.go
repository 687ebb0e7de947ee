// Package metrics exposes Prometheus metrics for feed loading, facet
// evaluation and HTTP traffic.
//
// All methods are safe to call on a nil *Metrics, which records nothing.
// This lets callers run with metrics disabled without branching.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/catalog/internal/core"
)

const namespace = "catalog"

// Metrics holds every collector and the registry they are registered with.
type Metrics struct {
	registry *prometheus.Registry

	// Feed metrics
	FetchesTotal   *prometheus.CounterVec
	FetchDuration  *prometheus.HistogramVec
	FeedBytes      prometheus.Gauge
	Records        prometheus.Gauge
	RowsSkipped    prometheus.Gauge
	RecordsDropped prometheus.Gauge
	LastSuccess    prometheus.Gauge

	// Facet metrics
	EvaluateDuration prometheus.Histogram
	FilteredRecords  prometheus.Histogram

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates the collectors on a private registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		FetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "feed",
				Name:      "fetches_total",
				Help:      "Feed fetch attempts by trigger and outcome",
			},
			[]string{"trigger", "outcome"},
		),
		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "feed",
				Name:      "fetch_duration_seconds",
				Help:      "Time to download and parse the feed",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"outcome"},
		),
		FeedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "bytes",
			Help:      "Size of the last downloaded feed",
		}),
		Records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "records",
			Help:      "Records in the current catalog",
		}),
		RowsSkipped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "rows_skipped",
			Help:      "Blank rows skipped in the last successful fetch",
		}),
		RecordsDropped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "records_dropped",
			Help:      "Rows without a part number in the last successful fetch",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful fetch",
		}),

		EvaluateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "facet",
			Name:      "evaluate_duration_seconds",
			Help:      "Time to filter the catalog and derive facet options",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		FilteredRecords: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "facet",
			Name:      "filtered_records",
			Help:      "Records left after filtering",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),

		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration by route",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}

	m.registry.MustRegister(
		m.FetchesTotal,
		m.FetchDuration,
		m.FeedBytes,
		m.Records,
		m.RowsSkipped,
		m.RecordsDropped,
		m.LastSuccess,
		m.EvaluateDuration,
		m.FilteredRecords,
		m.RequestsTotal,
		m.RequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// ObserveFetch implements core.Observer.
func (m *Metrics) ObserveFetch(r core.FetchReport) {
	if m == nil {
		return
	}

	outcome := "ok"
	if r.Err != nil {
		outcome = r.Kind.String()
	}
	m.FetchesTotal.WithLabelValues(r.Trigger, outcome).Inc()
	m.FetchDuration.WithLabelValues(outcome).Observe(r.Duration.Seconds())

	if r.Err != nil {
		m.Records.Set(0)
		return
	}
	m.FeedBytes.Set(float64(r.Bytes))
	m.Records.Set(float64(r.Records))
	m.RowsSkipped.Set(float64(r.RowsSkipped))
	m.RecordsDropped.Set(float64(r.RecordsDropped))
	m.LastSuccess.SetToCurrentTime()
}

// ObserveEvaluate records one facet evaluation.
func (m *Metrics) ObserveEvaluate(d time.Duration, filtered int) {
	if m == nil {
		return
	}
	m.EvaluateDuration.Observe(d.Seconds())
	m.FilteredRecords.Observe(float64(filtered))
}

// Middleware counts requests by chi route pattern so path parameters do not
// create a series per product.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

var _ core.Observer = (*Metrics)(nil)
