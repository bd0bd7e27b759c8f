package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stillwater",
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by handler.",
		},
		[]string{"handler"},
	)

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stillwater",
			Name:      "booking_created_total",
			Help:      "Count of reservations created by kind.",
		},
		[]string{"kind"}, // free | paid
	)

	bookingConflict = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stillwater",
			Name:      "booking_conflict_total",
			Help:      "Count of reservations lost to the slot uniqueness constraint.",
		},
	)

	paymentVerified = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stillwater",
			Name:      "payment_verified_total",
			Help:      "Count of payment verification attempts by result.",
		},
		[]string{"result"}, // ok | invalid
	)

	slotReleased = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stillwater",
			Name:      "slot_released_total",
			Help:      "Count of slots released back to availability by reason.",
		},
		[]string{"reason"}, // failed | swept | cancelled
	)

	availabilityFallback = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stillwater",
			Name:      "availability_fallback_total",
			Help:      "Count of availability reads served from the cache fallback.",
		},
	)

	reminderSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stillwater",
			Name:      "reminder_sent_total",
			Help:      "Count of session reminder emails sent.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			bookingCreated,
			bookingConflict,
			paymentVerified,
			slotReleased,
			availabilityFallback,
			reminderSent,
		)
	})
}

func IncHTTP(handler string) {
	httpRequests.WithLabelValues(handler).Inc()
}

func IncBookingCreated(kind string) {
	bookingCreated.WithLabelValues(kind).Inc()
}

func IncBookingConflict() {
	bookingConflict.Inc()
}

func IncPaymentVerified(result string) {
	paymentVerified.WithLabelValues(result).Inc()
}

func IncSlotReleased(reason string) {
	slotReleased.WithLabelValues(reason).Inc()
}

func IncAvailabilityFallback() {
	availabilityFallback.Inc()
}

func IncReminderSent() {
	reminderSent.Inc()
}
