package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/enrolldesk/enrolldesk-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface and the lifecycle engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	transitionTotal *prometheus.CounterVec
	cascadeSpread   prometheus.Histogram
	collectionSize  prometheus.Gauge
}

// NewMetricsService registers core Prometheus collectors.
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
		Help: "Enrollment status transitions by target status and result",
	}, []string{"target", "result"})

	cascadeSpread := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "enrollment_transition_batch_size",
		Help:    "Number of enrollments written per transition batch",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
	})

	collectionSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "enrollment_collection_size",
		Help: "Records currently held in the cached enrollment collection",
	})

	registry.MustRegister(requestDuration, requestTotal, transitionTotal, cascadeSpread, collectionSize)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		transitionTotal: transitionTotal,
		cascadeSpread:   cascadeSpread,
		collectionSize:  collectionSize,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one served request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := prometheus.Labels{"method": method, "path": path, "status": strconv.Itoa(status)}
	s.requestDuration.With(labels).Observe(duration.Seconds())
	s.requestTotal.With(labels).Inc()
}

// RecordTransition counts one transition attempt and its batch size.
func (s *MetricsService) RecordTransition(target models.EnrollmentStatus, result TransitionResult, batchSize int) {
	s.transitionTotal.With(prometheus.Labels{"target": string(target), "result": string(result)}).Inc()
	if result == TransitionApplied {
		s.cascadeSpread.Observe(float64(batchSize))
	}
}

// TrackCollection keeps the collection-size gauge in step with the cached
// collection by subscribing to its change events.
func (s *MetricsService) TrackCollection(collection *EnrollmentCollection) {
	if collection == nil {
		return
	}
	collection.Subscribe(func(event ChangeEvent) {
		s.collectionSize.Set(float64(event.Size))
	})
}
