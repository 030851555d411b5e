// Package metrics holds the Prometheus collectors of the award interval service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// =============================================================================
// Interval report
// =============================================================================

var (
	// intervalComputations counts report computations by outcome
	intervalComputations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "movies_interval_computations_total",
		Help: "Total award interval report computations by result",
	}, []string{"result"})

	// intervalDuration tracks fetch + compute latency
	intervalDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "movies_interval_computation_duration_seconds",
		Help:    "Award interval report computation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
	})

	// reportCache counts cache lookups by result ("hit" or "miss")
	reportCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "movies_report_cache_total",
		Help: "Report cache lookups by result",
	}, []string{"result"})

	// intervalExtreme holds the last computed global min and max interval
	intervalExtreme = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "movies_interval_extreme_years",
		Help: "Last computed global interval extreme in years",
	}, []string{"bound"})

	// winningRecords is the number of records fed to the last computation
	winningRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "movies_winning_records",
		Help: "Winning (producer, year) records in the last computation",
	})
)

// =============================================================================
// Dataset import
// =============================================================================

var (
	datasetLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "movies_dataset_loads_total",
		Help: "Dataset imports by result",
	}, []string{"result"})

	datasetSkippedRows = promauto.NewCounter(prometheus.CounterOpts{
		Name: "movies_dataset_skipped_rows_total",
		Help: "Malformed dataset rows skipped during import",
	})

	catalogSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "movies_catalog_entities",
		Help: "Stored catalog entities after the last import",
	}, []string{"entity"})
)

// =============================================================================
// HTTP
// =============================================================================

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "movies_http_requests_total",
		Help: "HTTP requests by route, method and status code",
	}, []string{"route", "method", "code"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "movies_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "movies_http_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	})
)

// ObserveComputation records one report computation
func ObserveComputation(d time.Duration, records int, err error) {
	intervalDuration.Observe(d.Seconds())
	if err != nil {
		intervalComputations.WithLabelValues("error").Inc()
		return
	}
	intervalComputations.WithLabelValues("ok").Inc()
	winningRecords.Set(float64(records))
}

// SetExtremes publishes the global min and max interval; ok is false for an empty report
func SetExtremes(min, max int, ok bool) {
	if !ok {
		intervalExtreme.DeleteLabelValues("min")
		intervalExtreme.DeleteLabelValues("max")
		return
	}
	intervalExtreme.WithLabelValues("min").Set(float64(min))
	intervalExtreme.WithLabelValues("max").Set(float64(max))
}

// CacheLookup counts a report cache hit or miss
func CacheLookup(hit bool) {
	if hit {
		reportCache.WithLabelValues("hit").Inc()
		return
	}
	reportCache.WithLabelValues("miss").Inc()
}

// ObserveLoad records one dataset import
func ObserveLoad(movies, producers, studios, skipped int, err error) {
	if err != nil {
		datasetLoads.WithLabelValues("error").Inc()
		return
	}
	datasetLoads.WithLabelValues("ok").Inc()
	datasetSkippedRows.Add(float64(skipped))
	catalogSize.WithLabelValues("movies").Set(float64(movies))
	catalogSize.WithLabelValues("producers").Set(float64(producers))
	catalogSize.WithLabelValues("studios").Set(float64(studios))
}

// ObserveRequest records one served HTTP request
func ObserveRequest(route, method string, status int, d time.Duration) {
	httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// RateLimited counts a rejected request
func RateLimited() {
	rateLimited.Inc()
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
