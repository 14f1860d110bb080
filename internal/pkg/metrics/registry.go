package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Database/Repository Metrics
var (
	// DBOperations tracks total database operations
	DBOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preventix_db_operations_total",
			Help: "Total database operations by repository, operation, and status",
		},
		[]string{"repo", "operation", "status"},
	)

	// DBDuration tracks database operation latency
	DBDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:                            "preventix_db_operation_duration_ms",
			Help:                            "Database operation duration in milliseconds",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 1 * time.Hour,
		},
		[]string{"repo", "operation"},
	)

	// DBRowsAffected tracks rows affected by write operations
	DBRowsAffected = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:                            "preventix_db_rows_affected",
			Help:                            "Number of rows affected by database write operations",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 1 * time.Hour,
		},
		[]string{"repo", "operation"},
	)

	// DBErrors tracks database errors by type
	DBErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preventix_db_errors_total",
			Help: "Total database errors by repository, operation, and error type",
		},
		[]string{"repo", "operation", "error_type"},
	)
)

// HTTP Handler Metrics
var (
	// HTTPRequests tracks HTTP requests
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preventix_http_requests_total",
			Help: "Total HTTP requests by method, path, and status",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPDuration tracks HTTP request duration
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:                            "preventix_http_request_duration_ms",
			Help:                            "HTTP request duration in milliseconds",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 1 * time.Hour,
		},
		[]string{"method", "path"},
	)

	// HTTPActiveRequests tracks active HTTP requests
	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "preventix_http_active_requests",
			Help: "Number of active HTTP requests",
		},
	)
)

// Outbound API Client Metrics
var (
	// APIClientCalls tracks outbound API calls by method, route (normalized path), and status code
	APIClientCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preventix_api_client_calls_total",
			Help: "Total outbound API calls by method, route (normalized path), and status code",
		},
		[]string{"method", "route", "status_code"},
	)

	// APIClientDuration tracks outbound API call latency
	APIClientDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:                            "preventix_api_client_duration_ms",
			Help:                            "Outbound API call duration in milliseconds",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 1 * time.Hour,
		},
		[]string{"method", "route"},
	)

	// APIClientErrors tracks outbound API errors
	APIClientErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preventix_api_client_errors_total",
			Help: "Total outbound API errors by route and error type",
		},
		[]string{"route", "error_type"},
	)

	// TokenRefreshes tracks credential refresh attempts by outcome
	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preventix_token_refreshes_total",
			Help: "Total credential refresh attempts by status",
		},
		[]string{"status"},
	)
)

// Scoring and Business Metrics
var (
	// Assessments tracks risk assessments computed by risk category
	Assessments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preventix_assessments_total",
			Help: "Total risk assessments by diabetes and hypertension category",
		},
		[]string{"diabetes_category", "hypertension_category"},
	)

	// ScoringDuration tracks scoring computation duration
	ScoringDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:                            "preventix_scoring_duration_ms",
			Help:                            "Risk scoring computation duration in milliseconds",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 1 * time.Hour,
		},
		[]string{"model"},
	)

	// ReportsGenerated tracks PDF reports rendered
	ReportsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preventix_reports_generated_total",
			Help: "Total PDF reports generated by status",
		},
		[]string{"status"},
	)

	// RegisteredUsers tracks registered user accounts
	RegisteredUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "preventix_registered_users",
			Help: "Number of registered user accounts",
		},
	)
)
