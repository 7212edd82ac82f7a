package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache and provider metrics
var (
	// CacheLookupsTotal counts cache lookups by result (hit, miss, error)
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_cache_lookups_total",
			Help: "Total number of historical cache lookups",
		},
		[]string{"result"},
	)

	// ProviderFetchesTotal counts provider fetch attempts by outcome
	ProviderFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_provider_fetches_total",
			Help: "Total number of provider fetch attempts",
		},
		[]string{"provider", "status"},
	)

	// ProviderFetchDuration tracks the duration of single provider fetch attempts
	ProviderFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weather_provider_fetch_duration_seconds",
			Help:    "Duration of provider fetch attempts in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// FetchRetriesTotal counts retries scheduled after transient failures
	FetchRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weather_fetch_retries_total",
			Help: "Total number of retries after transient provider failures",
		},
	)

	// YearsObtained records how many years each batch produced
	YearsObtained = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "weather_history_years_obtained",
			Help:    "Number of historical years obtained per prediction",
			Buckets: prometheus.LinearBuckets(0, 2, 11),
		},
	)

	// PredictionsTotal counts predictions by status
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_predictions_total",
			Help: "Total number of prediction requests",
		},
		[]string{"status"},
	)
)

// Database metrics
var (
	// DBQueriesTotal tracks the total number of database queries
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_queries_total",
			Help: "Total number of database queries executed",
		},
		[]string{"query_type", "table", "status"},
	)

	// DBQueryDuration tracks the duration of database queries
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query_type", "table"},
	)
)

// RecordCacheLookup records the outcome of a cache lookup
func RecordCacheLookup(hit bool, err error) {
	switch {
	case err != nil:
		CacheLookupsTotal.WithLabelValues("error").Inc()
	case hit:
		CacheLookupsTotal.WithLabelValues("hit").Inc()
	default:
		CacheLookupsTotal.WithLabelValues("miss").Inc()
	}
}

// RecordProviderFetch records a single provider attempt
func RecordProviderFetch(provider, status string, duration time.Duration) {
	ProviderFetchesTotal.WithLabelValues(provider, status).Inc()
	ProviderFetchDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordDBQuery records a database query execution
func RecordDBQuery(queryType, table string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DBQueriesTotal.WithLabelValues(queryType, table, status).Inc()
	DBQueryDuration.WithLabelValues(queryType, table).Observe(duration.Seconds())
}
