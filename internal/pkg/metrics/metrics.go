// internal/pkg/metrics/metrics.go
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records order, stock and outbox activity.
type EngineMetrics struct {
	ordersCreated    prometheus.Counter
	orderFailures    *prometheus.CounterVec
	orderDuration    prometheus.Histogram
	transitions      *prometheus.CounterVec
	stockMovements   *prometheus.CounterVec
	invoicesIssued   prometheus.Counter
	outboxDispatched *prometheus.CounterVec
}

// NewEngineMetrics registers the engine metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	m := &EngineMetrics{
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders committed by the creation transaction.",
		}),
		orderFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_create_failures_total",
			Help: "Order creation attempts that rolled back, by error code.",
		}, []string{"code"}),
		orderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "order_create_duration_seconds",
			Help:    "Duration of the order creation transaction.",
			Buckets: prometheus.DefBuckets,
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_status_transitions_total",
			Help: "Applied order status transitions.",
		}, []string{"from", "to"}),
		stockMovements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stock_movements_total",
			Help: "Stock ledger movements by type.",
		}, []string{"type"}),
		invoicesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "invoices_issued_total",
			Help: "Invoices issued.",
		}),
		outboxDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outbox_dispatch_total",
			Help: "Outbox events handled, by event type and result.",
		}, []string{"event_type", "result"}),
	}
	reg.MustRegister(
		m.ordersCreated,
		m.orderFailures,
		m.orderDuration,
		m.transitions,
		m.stockMovements,
		m.invoicesIssued,
		m.outboxDispatched,
	)
	return m
}

func (m *EngineMetrics) ObserveOrderCreated(duration time.Duration) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.Inc()
	m.orderDuration.Observe(duration.Seconds())
}

func (m *EngineMetrics) IncOrderFailure(code string) {
	if m == nil || m.orderFailures == nil {
		return
	}
	m.orderFailures.WithLabelValues(normalizeLabel(code)).Inc()
}

func (m *EngineMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

func (m *EngineMetrics) IncStockMovement(movementType string) {
	if m == nil || m.stockMovements == nil {
		return
	}
	m.stockMovements.WithLabelValues(normalizeLabel(movementType)).Inc()
}

func (m *EngineMetrics) IncInvoiceIssued() {
	if m == nil || m.invoicesIssued == nil {
		return
	}
	m.invoicesIssued.Inc()
}

func (m *EngineMetrics) IncOutboxDispatch(eventType, result string) {
	if m == nil || m.outboxDispatched == nil {
		return
	}
	m.outboxDispatched.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return value
}
