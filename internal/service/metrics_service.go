package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates prometheus instrumentation for the HTTP
// surface and the enrollment workflow.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	transitionTotal *prometheus.CounterVec
	interviewTotal  *prometheus.CounterVec
	contactTotal    *prometheus.CounterVec
	dbQueryDuration *prometheus.HistogramVec
}

// NewMetricsService registers the core collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	transitionTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_transitions_total",
		Help: "Applied enrollment pipeline transitions by target status",
	}, []string{"to"})

	interviewTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_reservations_total",
		Help: "Interview slot reservation outcomes",
	}, []string{"outcome"})

	contactTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "guardian_contacts_total",
		Help: "Guardian contact events by reason",
	}, []string{"reason"})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, transitionTotal, interviewTotal, contactTotal, dbQueryDuration, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		transitionTotal: transitionTotal,
		interviewTotal:  interviewTotal,
		contactTotal:    contactTotal,
		dbQueryDuration: dbQueryDuration,
	}
}

// Handler exposes the prometheus scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveTransition counts an applied enrollment transition.
func (m *MetricsService) ObserveTransition(to string) {
	if m == nil {
		return
	}
	m.transitionTotal.WithLabelValues(to).Inc()
}

// ObserveReservation counts an interview reservation outcome
// ("won", "lost" or "exhausted").
func (m *MetricsService) ObserveReservation(outcome string) {
	if m == nil {
		return
	}
	m.interviewTotal.WithLabelValues(outcome).Inc()
}

// ObserveContact counts a dispatched guardian contact.
func (m *MetricsService) ObserveContact(reason string) {
	if m == nil {
		return
	}
	m.contactTotal.WithLabelValues(reason).Inc()
}

// ObserveDBQuery records one query duration under a stable label.
func (m *MetricsService) ObserveDBQuery(query string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(query).Observe(duration.Seconds())
}
