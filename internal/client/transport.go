package client

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/preventix/preventix/internal/pkg/metrics"
)

// metricsTransport wraps an http.RoundTripper to collect metrics on API calls
type metricsTransport struct {
	base http.RoundTripper
}

// NewMetricsTransport creates a transport wrapper that records request counts,
// latency and error classes for every outbound API call. Pass nil to wrap
// http.DefaultTransport.
func NewMetricsTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &metricsTransport{base: base}
}

// RoundTrip implements http.RoundTripper, wrapping the base transport with metrics collection
func (t *metricsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	duration := time.Since(start)

	// Normalize the route to keep metric cardinality bounded
	route := normalizeRoute(req.URL.Path)

	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
	}

	metrics.APIClientCalls.WithLabelValues(req.Method, route, strconv.Itoa(statusCode)).Inc()
	metrics.APIClientDuration.WithLabelValues(req.Method, route).Observe(float64(duration.Milliseconds()))

	if err != nil || statusCode >= 400 {
		errorType := classifyCallError(statusCode, err)
		metrics.APIClientErrors.WithLabelValues(route, errorType).Inc()
	}

	return resp, err
}

var assessmentIDPattern = regexp.MustCompile(`/assessments/[0-9]+`)

// normalizeRoute replaces resource IDs in API paths with placeholders
func normalizeRoute(path string) string {
	return assessmentIDPattern.ReplaceAllString(path, "/assessments/:id")
}

// classifyCallError categorizes API call errors for metrics
func classifyCallError(statusCode int, err error) string {
	if err != nil {
		errStr := err.Error()
		switch {
		case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline"):
			return "timeout"
		case strings.Contains(errStr, "connection") || strings.Contains(errStr, "refused"):
			return "connection"
		case strings.Contains(errStr, "tls") || strings.Contains(errStr, "certificate"):
			return "tls"
		default:
			return "network"
		}
	}

	switch {
	case statusCode == 400:
		return "bad_request"
	case statusCode == 401:
		return "unauthorized"
	case statusCode == 403:
		return "forbidden"
	case statusCode == 404:
		return "not_found"
	case statusCode == 422:
		return "validation"
	case statusCode >= 500:
		return "server_error"
	case statusCode >= 400:
		return "client_error"
	default:
		return "unknown"
	}
}
