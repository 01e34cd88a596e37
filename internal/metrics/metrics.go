package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	reservationCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "kladovka",
			Name:      "reservation_created_total",
			Help:      "Count of reservations successfully written to the ledger.",
		},
	)

	reservationConflict = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "kladovka",
			Name:      "reservation_conflict_total",
			Help:      "Count of reservation attempts rejected due to an overlapping window.",
		},
	)

	searches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kladovka",
			Name:      "search_total",
			Help:      "Count of entry searches by cache outcome.",
		},
		[]string{"source"},
	)

	sessionCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "kladovka",
			Name:      "session_created_total",
			Help:      "Count of sessions created on login.",
		},
	)

	sessionsSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "kladovka",
			Name:      "sessions_swept_total",
			Help:      "Count of expired sessions removed by the sweeper.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(reservationCreated, reservationConflict, searches, sessionCreated, sessionsSwept)
	})
}

func IncReservationCreated() {
	reservationCreated.Inc()
}

func IncReservationConflict() {
	reservationConflict.Inc()
}

// IncSearch records a search; source is "db", "cache" or similar.
func IncSearch(source string) {
	searches.WithLabelValues(source).Inc()
}

func IncSessionCreated() {
	sessionCreated.Inc()
}

func AddSessionsSwept(n int) {
	sessionsSwept.Add(float64(n))
}
