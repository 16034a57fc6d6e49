package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SupplyMetrics records reservation outcomes and stock mutations.
type SupplyMetrics struct {
	reservationDuration *prometheus.HistogramVec
	reservationOutcomes *prometheus.CounterVec
	stockMovements      *prometheus.CounterVec
	outboxPublished     prometheus.Counter
	outboxFailures      prometheus.Counter
}

// NewSupplyMetrics registers the supply metrics on the provided registerer.
func NewSupplyMetrics(reg prometheus.Registerer) *SupplyMetrics {
	if reg == nil {
		return &SupplyMetrics{}
	}
	reservationDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reservation_duration_seconds",
		Help:    "Duration of reservation transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reservationOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_outcomes_total",
		Help: "Reservation transaction outcomes by operation and result.",
	}, []string{"operation", "result"})
	stockMovements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_movements_total",
		Help: "Stock ledger movements by type.",
	}, []string{"type"})
	outboxPublished := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_events_published_total",
		Help: "Outbox events delivered to the broker.",
	})
	outboxFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_publish_failures_total",
		Help: "Outbox publish attempts that failed.",
	})
	reg.MustRegister(reservationDuration, reservationOutcomes, stockMovements, outboxPublished, outboxFailures)
	return &SupplyMetrics{
		reservationDuration: reservationDuration,
		reservationOutcomes: reservationOutcomes,
		stockMovements:      stockMovements,
		outboxPublished:     outboxPublished,
		outboxFailures:      outboxFailures,
	}
}

// ObserveReservation records the duration for a reservation operation.
func (m *SupplyMetrics) ObserveReservation(operation string, duration time.Duration) {
	if m == nil || m.reservationDuration == nil {
		return
	}
	m.reservationDuration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncReservationOutcome counts one reservation result for the operation.
func (m *SupplyMetrics) IncReservationOutcome(operation, result string) {
	if m == nil || m.reservationOutcomes == nil {
		return
	}
	m.reservationOutcomes.WithLabelValues(normalizeLabel(operation), normalizeLabel(result)).Inc()
}

// IncStockMovement counts one ledger movement of the given type.
func (m *SupplyMetrics) IncStockMovement(movementType string) {
	if m == nil || m.stockMovements == nil {
		return
	}
	m.stockMovements.WithLabelValues(normalizeLabel(movementType)).Inc()
}

// IncOutboxPublished counts one delivered outbox event.
func (m *SupplyMetrics) IncOutboxPublished() {
	if m == nil || m.outboxPublished == nil {
		return
	}
	m.outboxPublished.Inc()
}

// IncOutboxFailure counts one failed outbox publish attempt.
func (m *SupplyMetrics) IncOutboxFailure() {
	if m == nil || m.outboxFailures == nil {
		return
	}
	m.outboxFailures.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
