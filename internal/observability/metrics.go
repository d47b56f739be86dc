package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce         sync.Once
	httpRequestsTotal    *prometheus.CounterVec
	httpLatencySeconds   *prometheus.HistogramVec
	httpErrorsTotal      *prometheus.CounterVec
	scheduleChecksTotal  *prometheus.CounterVec
	scheduleViolations   *prometheus.CounterVec
	workflowTransitions  *prometheus.CounterVec
	notificationsTotal   *prometheus.CounterVec
	sseClientsActive     prometheus.Gauge
	venueCacheRequests   *prometheus.CounterVec
	outboundEventsFailed *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agenda_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agenda_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agenda_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		scheduleChecksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agenda_schedule_validations_total",
			Help: "Schedule validations by subject and outcome.",
		}, []string{"subject", "outcome"})

		scheduleViolations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agenda_schedule_violations_total",
			Help: "Field violations reported by schedule validation.",
		}, []string{"field"})

		workflowTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agenda_change_request_transitions_total",
			Help: "Change request workflow operations by action and outcome.",
		}, []string{"action", "outcome"})

		notificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agenda_notifications_published_total",
			Help: "Notifications delivered to live inboxes by type.",
		}, []string{"type"})

		sseClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agenda_sse_clients_active",
			Help: "Currently connected notification stream clients.",
		})

		venueCacheRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agenda_venue_cache_requests_total",
			Help: "Venue hierarchy lookups by cache result.",
		}, []string{"result"})

		outboundEventsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agenda_outbound_events_failed_total",
			Help: "Outbound events that could not be delivered, by transport.",
		}, []string{"transport"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			scheduleChecksTotal,
			scheduleViolations,
			workflowTransitions,
			notificationsTotal,
			sseClientsActive,
			venueCacheRequests,
			outboundEventsFailed,
		)
	})
}

// MetricsHandler serves the default registry in the Prometheus text or
// OpenMetrics format, whichever the scraper negotiates.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// ScheduleValidations counts validations by subject (activity, event) and outcome (ok, invalid).
func ScheduleValidations() *prometheus.CounterVec {
	RegisterMetrics()
	return scheduleChecksTotal
}

// ScheduleViolations counts violations per field key.
func ScheduleViolations() *prometheus.CounterVec {
	RegisterMetrics()
	return scheduleViolations
}

// WorkflowTransitions counts change request operations.
func WorkflowTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return workflowTransitions
}

// NotificationsPublishedTotal counts notifications pushed to live inboxes.
func NotificationsPublishedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsTotal
}

// SSEClientsActive tracks open notification streams.
func SSEClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return sseClientsActive
}

// VenueCacheRequests counts venue lookups by hit, miss or error.
func VenueCacheRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return venueCacheRequests
}

// OutboundEventsFailed counts undeliverable outbound events.
func OutboundEventsFailed() *prometheus.CounterVec {
	RegisterMetrics()
	return outboundEventsFailed
}
