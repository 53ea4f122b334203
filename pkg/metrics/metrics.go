// Package metrics provides Prometheus metrics for the Sage service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LookupsTotal tracks lookups by outcome
	LookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "lookup",
			Name:      "requests_total",
			Help:      "Total number of lookups by outcome",
		},
		[]string{"outcome"},
	)

	// LookupDuration tracks end-to-end lookup duration in seconds
	LookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sage",
			Subsystem: "lookup",
			Name:      "duration_seconds",
			Help:      "Duration of lookups in seconds",
			Buckets:   []float64{0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"outcome"},
	)

	// VariationMatchesTotal tracks which tier resolved a variation
	VariationMatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "matching",
			Name:      "variation_matches_total",
			Help:      "Total number of variation resolutions by tier",
		},
		[]string{"tier"},
	)

	// CategoryResolutionsTotal tracks how categories were resolved
	CategoryResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "matching",
			Name:      "category_resolutions_total",
			Help:      "Total number of category resolutions by outcome",
		},
		[]string{"outcome"},
	)

	// OracleCallsTotal tracks oracle calls
	OracleCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "oracle",
			Name:      "calls_total",
			Help:      "Total number of oracle calls by operation and status",
		},
		[]string{"operation", "status"},
	)

	// CrawlSessionsTotal tracks crawl sessions
	CrawlSessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "crawler",
			Name:      "sessions_total",
			Help:      "Total number of crawl sessions by status",
		},
		[]string{"status"},
	)

	// CrawlGateWait tracks time spent waiting for a crawl slot
	CrawlGateWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sage",
			Subsystem: "crawler",
			Name:      "gate_wait_seconds",
			Help:      "Time spent waiting for a crawl slot in seconds",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30},
		},
	)

	// PriceCorrectionsTotal tracks prices rescaled as formatting outliers
	PriceCorrectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "pricing",
			Name:      "corrections_total",
			Help:      "Total number of listing prices corrected as missing a decimal point",
		},
	)

	// OfferCacheTotal tracks offer cache lookups
	OfferCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "cache",
			Name:      "offer_lookups_total",
			Help:      "Total number of recent offer cache lookups by result",
		},
		[]string{"result"},
	)

	// HTTPRequestsTotal tracks outbound HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "http_client",
			Name:      "requests_total",
			Help:      "Total number of outbound HTTP requests",
		},
		[]string{"method", "status_code"},
	)

	// HTTPRequestDuration tracks outbound HTTP request duration
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sage",
			Subsystem: "http_client",
			Name:      "request_duration_seconds",
			Help:      "Duration of outbound HTTP requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method"},
	)

	// APIRequestsTotal tracks inbound API requests
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of API requests by route and status",
		},
		[]string{"method", "route", "status_code"},
	)

	// APIRequestDuration tracks inbound API request duration
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sage",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Duration of API requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.25, 1, 2.5, 10, 30, 60, 120, 300},
		},
		[]string{"method", "route"},
	)

	// KafkaMessagesPublished tracks published messages
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)

	// KafkaMessagesConsumed tracks consumed messages
	KafkaMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "kafka",
			Name:      "messages_consumed_total",
			Help:      "Total number of messages consumed from Kafka by status",
		},
		[]string{"topic", "status"},
	)
)

// RecordLookup records a finished lookup
func RecordLookup(outcome string, durationSeconds float64) {
	LookupsTotal.WithLabelValues(outcome).Inc()
	LookupDuration.WithLabelValues(outcome).Observe(durationSeconds)
}

// RecordVariationMatch records the tier that resolved a variation
func RecordVariationMatch(tier string) {
	VariationMatchesTotal.WithLabelValues(tier).Inc()
}

// RecordCategoryResolution records how a category label was resolved
func RecordCategoryResolution(outcome string) {
	CategoryResolutionsTotal.WithLabelValues(outcome).Inc()
}

// RecordOracleCall records an oracle call
func RecordOracleCall(operation, status string) {
	OracleCallsTotal.WithLabelValues(operation, status).Inc()
}

// RecordCrawlSession records a crawl session and how long it waited for a slot
func RecordCrawlSession(status string, waitSeconds float64) {
	CrawlSessionsTotal.WithLabelValues(status).Inc()
	CrawlGateWait.Observe(waitSeconds)
}

// RecordPriceCorrection records a corrected listing price
func RecordPriceCorrection() {
	PriceCorrectionsTotal.Inc()
}

// RecordOfferCache records an offer cache hit or miss
func RecordOfferCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	OfferCacheTotal.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records an outbound HTTP request metric
func RecordHTTPRequest(method, statusCode string, durationSeconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method).Observe(durationSeconds)
}

// RecordAPIRequest records an inbound API request
func RecordAPIRequest(method, route, statusCode string, durationSeconds float64) {
	APIRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}

// RecordKafkaPublish records a Kafka publish operation
func RecordKafkaPublish(topic, status string) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
}

// RecordKafkaConsume records a consumed Kafka message
func RecordKafkaConsume(topic, status string) {
	KafkaMessagesConsumed.WithLabelValues(topic, status).Inc()
}
