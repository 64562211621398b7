package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// scheduling engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	bookingsCreated prometheus.Counter
	bookingConflict *prometheus.CounterVec
	slotDuration    prometheus.Observer
	slotCount       prometheus.Histogram
	dbQueryDuration *prometheus.HistogramVec
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

	bookingsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bookings_created_total",
		Help: "Total number of appointment rows created",
	})

	bookingConflict := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_conflicts_total",
		Help: "Booking requests rejected by the conflict checker",
	}, []string{"dimension"})

	slotDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "slot_generation_seconds",
		Help:    "Duration of free-slot generation requests",
		Buckets: prometheus.DefBuckets,
	})

	slotCount := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "slot_generation_slots",
		Help:    "Number of free slots produced per generation request",
		Buckets: []float64{0, 5, 10, 25, 50, 100, 250},
	})

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

	registry.MustRegister(requestDuration, requestTotal, bookingsCreated, bookingConflict, slotDuration, slotCount, dbQueryDuration, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		bookingsCreated: bookingsCreated,
		bookingConflict: bookingConflict,
		slotDuration:    slotDuration,
		slotCount:       slotCount,
		dbQueryDuration: dbQueryDuration,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// AddBookingsCreated counts successfully persisted appointment rows.
func (m *MetricsService) AddBookingsCreated(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.bookingsCreated.Add(float64(count))
}

// IncBookingConflict counts a rejected booking by conflict dimension.
func (m *MetricsService) IncBookingConflict(dimension string) {
	if m == nil {
		return
	}
	m.bookingConflict.WithLabelValues(dimension).Inc()
}

// ObserveSlotGeneration records the latency and yield of a slot generation run.
func (m *MetricsService) ObserveSlotGeneration(duration time.Duration, slots int) {
	if m == nil {
		return
	}
	m.slotDuration.Observe(duration.Seconds())
	m.slotCount.Observe(float64(slots))
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}
