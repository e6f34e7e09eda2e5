package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tennisluv"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status class.",
		},
		[]string{"route", "status"},
	)

	backendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Duration of calls to the booking backend.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "outcome"},
	)

	selectionRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selection_rejections_total",
			Help:      "Grid clicks and submits rejected by a local rule.",
		},
		[]string{"reason"},
	)

	bookingsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_submitted_total",
			Help:      "Submitted selections by result.",
		},
		[]string{"result"},
	)

	bookedHours = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booked_hours_total",
			Help:      "Court hours booked through this front end.",
		},
	)

	botUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bot_updates_total",
			Help:      "Telegram updates by kind.",
		},
		[]string{"kind"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, backendDuration, selectionRejections, bookingsSubmitted, bookedHours, botUpdates)
	})
}

// IncHTTP counts one served request.
func IncHTTP(route, status string) {
	httpRequests.WithLabelValues(route, status).Inc()
}

// ObserveBackend records the duration of one backend call.
func ObserveBackend(operation, outcome string, d time.Duration) {
	backendDuration.WithLabelValues(operation, outcome).Observe(d.Seconds())
}

func IncRejection(reason string) {
	selectionRejections.WithLabelValues(reason).Inc()
}

// IncSubmitted counts a submit; hours is only added for successful ones.
func IncSubmitted(result string, hours int) {
	bookingsSubmitted.WithLabelValues(result).Inc()
	if result == "ok" && hours > 0 {
		bookedHours.Add(float64(hours))
	}
}

func IncBotUpdate(kind string) {
	botUpdates.WithLabelValues(kind).Inc()
}
