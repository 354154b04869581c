// Package metrics holds the Prometheus collectors for the API server and the
// cleaning pipeline. All methods are safe to call on a nil *Metrics, so
// instrumentation stays optional in tests and one-off tools.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "demographics"

// Metrics owns a private registry and the collectors registered on it.
type Metrics struct {
	reg *prometheus.Registry

	httpRequests *prometheus.CounterVec   // http_requests_total{route,method,status}
	httpDuration *prometheus.HistogramVec // http_request_duration_seconds{route,method}

	warehouseQueries  *prometheus.CounterVec   // warehouse_queries_total{operation,status}
	warehouseDuration *prometheus.HistogramVec // warehouse_query_duration_seconds{operation}

	cacheReady    prometheus.Gauge       // value_cache_ready
	cacheValues   *prometheus.GaugeVec   // value_cache_values{attribute}
	filterRejects *prometheus.CounterVec // filter_rejections_total{reason}

	cleaningRecords *prometheus.CounterVec // cleaning_records_total{kind}
	stepDuration    *prometheus.SummaryVec // cleaning_step_duration_seconds{step,status}
}

// New builds the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() (*Metrics, error) {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, partitioned by route pattern, method and status code.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, partitioned by route pattern and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		warehouseQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warehouse_queries_total",
			Help:      "Warehouse queries issued, partitioned by operation and outcome.",
		}, []string{"operation", "status"}),
		warehouseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "warehouse_query_duration_seconds",
			Help:      "Warehouse query latency, partitioned by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		cacheReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "value_cache_ready",
			Help:      "1 when the unique-value cache holds a snapshot, 0 otherwise.",
		}),
		cacheValues: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "value_cache_values",
			Help:      "Number of legal values cached per attribute.",
		}, []string{"attribute"}),
		filterRejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filter_rejections_total",
			Help:      "Filter requests rejected before reaching the warehouse, by reason.",
		}, []string{"reason"}),
		cleaningRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleaning_records_total",
			Help:      "Record-level counts from the cleaning pipeline per kind (processed, loaded, country_name_mismatch, ...).",
		}, []string{"kind"}),
		stepDuration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Namespace:  namespace,
			Name:       "cleaning_step_duration_seconds",
			Help:       "Duration of cleaning pipeline steps, partitioned by step and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}, []string{"step", "status"}),
	}

	for name, c := range map[string]prometheus.Collector{
		"http requests":      m.httpRequests,
		"http duration":      m.httpDuration,
		"warehouse queries":  m.warehouseQueries,
		"warehouse duration": m.warehouseDuration,
		"cache ready":        m.cacheReady,
		"cache values":       m.cacheValues,
		"filter rejections":  m.filterRejects,
		"cleaning records":   m.cleaningRecords,
		"step duration":      m.stepDuration,
		"go":                 collectors.NewGoCollector(),
		"process":            collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := m.reg.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: register %s collector: %w", name, err)
		}
	}
	return m, nil
}

// Registry exposes the underlying registry (for tests and custom gatherers).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// ObserveWarehouse records one warehouse round trip.
func (m *Metrics) ObserveWarehouse(operation string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.warehouseQueries.WithLabelValues(operation, statusLabel(err)).Inc()
	m.warehouseDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// SetCacheSnapshot publishes the size of a freshly built value cache.
func (m *Metrics) SetCacheSnapshot(valueCounts map[string]int) {
	if m == nil {
		return
	}
	m.cacheReady.Set(1)
	for attr, n := range valueCounts {
		m.cacheValues.WithLabelValues(attr).Set(float64(n))
	}
}

// RecordFilterRejection counts a filter request refused during validation.
func (m *Metrics) RecordFilterRejection(reason string) {
	if m == nil {
		return
	}
	m.filterRejects.WithLabelValues(reason).Inc()
}

// RecordCleaning adds n to the cleaning record counter for kind.
func (m *Metrics) RecordCleaning(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.cleaningRecords.WithLabelValues(kind).Add(float64(n))
}

// ObserveStep records the duration and outcome of one pipeline step.
func (m *Metrics) ObserveStep(step string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.stepDuration.WithLabelValues(step, statusLabel(err)).Observe(d.Seconds())
}

// Push sends the registry to a Prometheus Pushgateway. Batch runs of the
// cleaning pipeline exit before a scrape could happen, so they push instead.
func (m *Metrics) Push(ctx context.Context, gatewayURL, job string) error {
	if m == nil || gatewayURL == "" {
		return nil
	}
	if job == "" {
		job = "member_cleaning"
	}
	if err := push.New(gatewayURL, job).Gatherer(m.reg).PushContext(ctx); err != nil {
		return fmt.Errorf("metrics: push to %s: %w", gatewayURL, err)
	}
	return nil
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
