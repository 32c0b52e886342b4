package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Mail metrics
	MailSendSuccess = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "csvmailer_mail_send_success_total",
		Help: "Total number of messages accepted by the mail provider",
	}, []string{"provider"})
	MailSendFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "csvmailer_mail_send_failure_total",
		Help: "Total number of messages the mail provider failed to send",
	}, []string{"provider"})

	// Dispatch metrics
	DispatchBatches = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "csvmailer_dispatch_batches_total",
		Help: "Total number of send batches issued",
	})
	// outcome is one of "success", "partial", "failed"
	DispatchRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "csvmailer_dispatch_runs_total",
		Help: "Total number of completed dispatch runs grouped by outcome",
	}, []string{"outcome"})
	DispatchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "csvmailer_dispatch_duration_seconds",
		Help:    "Wall-clock duration of dispatch runs",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	ExtractAddresses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "csvmailer_extract_addresses_total",
		Help: "Total number of unique addresses extracted from uploaded CSV files",
	})

	APIRateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "csvmailer_api_rate_limited_total",
		Help: "Total number of API requests rejected by the rate limiter",
	}, []string{"path"})

	// API endpoint metrics, labelled by handler name
	APIEndpointRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "csvmailer_api_endpoint_requests_total",
		Help: "Total number of requests per API endpoint",
	}, []string{"endpoint"})
	APIEndpointDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "csvmailer_api_endpoint_duration_seconds",
		Help:    "Request handling latency per API endpoint",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
	APIEndpointErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "csvmailer_api_endpoint_errors_total",
		Help: "Total number of API responses with status >= 400 per endpoint",
	}, []string{"endpoint", "status_code"})

	AuditSinkErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "csvmailer_audit_sink_errors_total",
		Help: "Total number of audit events a sink failed to write",
	}, []string{"sink"})
)

func init() {
	prometheus.MustRegister(MailSendSuccess)
	prometheus.MustRegister(MailSendFailure)
	prometheus.MustRegister(DispatchBatches)
	prometheus.MustRegister(DispatchRuns)
	prometheus.MustRegister(DispatchDuration)
	prometheus.MustRegister(ExtractAddresses)
	prometheus.MustRegister(APIRateLimited)
	prometheus.MustRegister(APIEndpointRequests)
	prometheus.MustRegister(APIEndpointDuration)
	prometheus.MustRegister(APIEndpointErrors)
	prometheus.MustRegister(AuditSinkErrors)
}

// MetricsHandler returns an http.Handler exposing Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
