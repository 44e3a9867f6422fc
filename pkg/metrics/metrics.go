package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Booking and token allocation
	Bookings         *prometheus.CounterVec
	TokenRetries     prometheus.Counter
	BookingLatency   prometheus.Histogram
	TokensIssued     prometheus.Counter
	CurrentToken     *prometheus.GaugeVec
	QueueActions     *prometheus.CounterVec
	RemindersCreated prometheus.Counter

	// Notification and SMS side effects
	Notifications *prometheus.CounterVec
	SMS           *prometheus.CounterVec

	// Queue status cache
	CacheLookups *prometheus.CounterVec

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
	DatabaseLatency    *prometheus.HistogramVec
}

// NewMetrics creates and registers all application metrics on reg.
// A nil reg registers on the default registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		Bookings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		TokenRetries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_allocation_retries_total",
			Help:      "Token allocations retried after a uniqueness violation",
		}),
		BookingLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "booking_duration_seconds",
			Help:      "Time spent in the booking transaction",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		TokensIssued: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Tokens handed out by the allocator",
		}),
		// One series per rostered doctor. Only call-next on an existing
		// doctor sets it, so the label set is bounded by the doctors table.
		CurrentToken: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_current_token",
			Help:      "Token most recently called per doctor",
		}, []string{"doctor_id"}),
		QueueActions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_actions_total",
			Help:      "Queue progression actions by kind and outcome",
		}, []string{"action", "outcome"}),
		RemindersCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_created_total",
			Help:      "Appointment reminders materialised on feed polls",
		}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications emitted by type and outcome",
		}, []string{"type", "outcome"}),
		SMS: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sms_total",
			Help:      "SMS dispatch attempts by outcome",
		}, []string{"outcome"}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_status_cache_lookups_total",
			Help:      "Queue status cache lookups by result",
		}, []string{"result"}),
		DatabaseOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
		DatabaseLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "database_operation_duration_seconds",
			Help:      "Duration of database operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),
	}
}

// NewNop returns metrics registered on a throwaway registry.
func NewNop() *Metrics {
	return NewMetrics("test", prometheus.NewRegistry())
}

// Outcome turns an error into a label value.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
