// Package observability holds the Prometheus collectors shared by the
// service components.
package observability

import (
	"errors"
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var enabled atomic.Bool

func init() {
	enabled.Store(true)
	registerAll(prometheus.DefaultRegisterer)
}

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		},
		[]string{"method", "route", "status"},
	)

	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crs_queries_total",
			Help: "Containment queries by geometry type, combinator and outcome.",
		},
		[]string{"kind", "op", "outcome"},
	)

	queryDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crs_query_duration_seconds",
			Help:    "Time spent evaluating containment queries.",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14),
		},
		[]string{"op"},
	)

	queryRows = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crs_query_rows",
			Help:    "Rows returned per query.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		},
	)

	queryWarningsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crs_query_skipped_geometries_total",
			Help: "Geometries dropped from queries because they failed to parse or validate.",
		},
	)

	catalogRows = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_rows",
			Help: "Rows in the active catalog snapshot.",
		},
	)

	catalogSkippedRows = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_skipped_rows",
			Help: "Rows dropped from the active snapshot as invalid or duplicate.",
		},
	)

	catalogReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_reloads_total",
			Help: "Catalog reloads by outcome.",
		},
		[]string{"source", "outcome"},
	)

	catalogReloadSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_reload_duration_seconds",
			Help:    "Time to load and index a catalog snapshot.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
	)

	cacheOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_op_total",
			Help: "Redis operations by op and result.",
		},
		[]string{"op", "result"},
	)

	redisOpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Redis operation latency in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		},
		[]string{"op"},
	)

	cacheResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "result_cache_total",
			Help: "Result cache lookups by tier and outcome.",
		},
		[]string{"tier", "outcome"},
	)

	invalidationEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invalidation_events_total",
			Help: "Catalog invalidation events by op and outcome.",
		},
		[]string{"op", "outcome"},
	)

	hotCells = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hotspot_cells",
			Help: "H3 cells currently tracked by the query hotspot tracker.",
		},
	)

	queryEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_events_total",
			Help: "Query events handed to the Kafka publisher by outcome.",
		},
		[]string{"outcome"},
	)

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crsfinder_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal, httpRequestDurationSeconds,
		queriesTotal, queryDurationSeconds, queryRows, queryWarningsTotal,
		catalogRows, catalogSkippedRows, catalogReloadsTotal, catalogReloadSeconds,
		cacheOpsTotal, redisOpDurationSeconds, cacheResults,
		invalidationEventsTotal, hotCells, queryEventsTotal, buildInfo,
	}
}

func registerAll(reg prometheus.Registerer) {
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
}

// Init registers the collectors with reg and switches recording on or off.
// A nil reg only toggles recording.
func Init(reg prometheus.Registerer, on bool) {
	enabled.Store(on)
	if reg != nil && on {
		registerAll(reg)
	}
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	if !enabled.Load() {
		return
	}
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

// ObserveQuery records one executed query. outcome is "ok", "error" or
// "cached".
func ObserveQuery(kind, op, outcome string, rows, skipped int, durationSeconds float64) {
	if !enabled.Load() {
		return
	}
	queriesTotal.WithLabelValues(kind, op, outcome).Inc()
	if outcome == "error" {
		return
	}
	queryDurationSeconds.WithLabelValues(op).Observe(durationSeconds)
	queryRows.Observe(float64(rows))
	if skipped > 0 {
		queryWarningsTotal.Add(float64(skipped))
	}
}

func ObserveCatalogReload(source string, err error, rows, skipped int, durationSeconds float64) {
	if !enabled.Load() {
		return
	}
	if err != nil {
		catalogReloadsTotal.WithLabelValues(source, "error").Inc()
		return
	}
	catalogReloadsTotal.WithLabelValues(source, "ok").Inc()
	catalogReloadSeconds.Observe(durationSeconds)
	catalogRows.Set(float64(rows))
	catalogSkippedRows.Set(float64(skipped))
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	if !enabled.Load() {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	cacheOpsTotal.WithLabelValues(op, result).Inc()
	redisOpDurationSeconds.WithLabelValues(op).Observe(durationSeconds)
}

func IncCacheHit(tier string) {
	if enabled.Load() {
		cacheResults.WithLabelValues(tier, "hit").Inc()
	}
}

func IncCacheMiss(tier string) {
	if enabled.Load() {
		cacheResults.WithLabelValues(tier, "miss").Inc()
	}
}

func ObserveInvalidation(op string, err error) {
	if !enabled.Load() {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	invalidationEventsTotal.WithLabelValues(op, outcome).Inc()
}

func SetHotCells(n int) {
	if enabled.Load() {
		hotCells.Set(float64(n))
	}
}

// IncQueryEvent counts a query event; outcome is "sent", "dropped" or
// "error".
func IncQueryEvent(outcome string) {
	if enabled.Load() {
		queryEventsTotal.WithLabelValues(outcome).Inc()
	}
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
