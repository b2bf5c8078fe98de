package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "airwave",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status code.",
		},
		[]string{"endpoint", "status"},
	)

	bookingsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "airwave",
			Name:      "bookings_created_total",
			Help:      "Bookings successfully allocated, by catalog entry.",
		},
		[]string{"catalog_entry"},
	)

	allocationConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "airwave",
			Name:      "allocation_conflicts_total",
			Help:      "Booking attempts rejected because nothing was free.",
		},
	)

	availabilityDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "airwave",
			Name:      "availability_check_seconds",
			Help:      "Latency of availability checks.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingsCreated, allocationConflicts, availabilityDuration)
	})
}

// IncHTTP increments the request counter for an endpoint/status pair.
func IncHTTP(endpoint, status string) {
	httpRequests.WithLabelValues(endpoint, status).Inc()
}

// IncBookingCreated counts a successful allocation.
func IncBookingCreated(catalogID string) {
	bookingsCreated.WithLabelValues(catalogID).Inc()
}

// IncAllocationConflict counts a NoAvailableUnit rejection.
func IncAllocationConflict() {
	allocationConflicts.Inc()
}

// ObserveAvailability records availability check latency.
func ObserveAvailability(d time.Duration) {
	availabilityDuration.Observe(d.Seconds())
}
