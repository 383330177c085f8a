package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Success labels for metrics
const (
	SuccessTrue  = "true"
	SuccessFalse = "false"
)

// Upload outcome labels
const (
	OutcomeUploaded = "uploaded"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

var (
	// Backend calls made by the client. status_code is "error" when the
	// request never produced a response.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ragdesk_api_request_duration_seconds",
		Help:    "Duration of backend API requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "status_code"})

	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragdesk_api_requests_total",
		Help: "Total number of backend API requests",
	}, []string{"endpoint", "status_code"})

	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragdesk_uploads_total",
		Help: "Files handled by the upload pipeline by outcome",
	}, []string{"outcome"})

	ChatDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ragdesk_chat_duration_seconds",
		Help:    "Time from sending a chat message to its reply settling",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"success"})

	DocumentsListed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ragdesk_documents_listed",
		Help: "Number of documents in the most recent successful list fetch",
	})

	// Dev server side
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ragdesk_http_request_duration_seconds",
		Help:    "Duration of HTTP requests served by the dev backend in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status_code"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragdesk_http_requests_total",
		Help: "Total number of HTTP requests served by the dev backend",
	}, []string{"method", "endpoint", "status_code"})
)

func RecordAPIRequest(endpoint string, statusCode int, duration time.Duration) {
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	APIRequestDuration.WithLabelValues(endpoint, status).Observe(duration.Seconds())
	APIRequestsTotal.WithLabelValues(endpoint, status).Inc()
}

func RecordUpload(outcome string) {
	UploadsTotal.WithLabelValues(outcome).Inc()
}

func RecordChat(duration time.Duration, success bool) {
	successLabel := SuccessFalse
	if success {
		successLabel = SuccessTrue
	}
	ChatDuration.WithLabelValues(successLabel).Observe(duration.Seconds())
}

func UpdateDocumentCount(count int) {
	DocumentsListed.Set(float64(count))
}

func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	status := prometheus.Labels{
		"method":      method,
		"endpoint":    endpoint,
		"status_code": strconv.Itoa(statusCode),
	}
	HTTPRequestDuration.With(status).Observe(duration.Seconds())
	HTTPRequestsTotal.With(status).Inc()
}
