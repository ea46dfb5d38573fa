package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics counts business outcomes of the checkout flow.
type CheckoutMetrics struct {
	ordersCreated        *prometheus.CounterVec
	authorizations       *prometheus.CounterVec
	inventoryConflicts   *prometheus.CounterVec
	notificationFailures *prometheus.CounterVec
	statusTransitions    *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout collectors on reg. A nil registerer
// yields a recorder whose methods are no-ops.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	m := &CheckoutMetrics{
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders persisted, by initial status.",
		}, []string{"status"}),
		authorizations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_authorizations_total",
			Help: "Simulated payment authorizations, by result and error code.",
		}, []string{"result", "code"}),
		inventoryConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_conflicts_total",
			Help: "Stock mutations rejected because the conditional update matched no row.",
		}, []string{"operation"}),
		notificationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_failures_total",
			Help: "Order notifications that failed to send inline.",
		}, []string{"kind"}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_status_transitions_total",
			Help: "Order status changes applied after creation.",
		}, []string{"from", "to"}),
	}
	reg.MustRegister(
		m.ordersCreated,
		m.authorizations,
		m.inventoryConflicts,
		m.notificationFailures,
		m.statusTransitions,
	)
	return m
}

// OrderCreated increments orders_created_total for status.
func (m *CheckoutMetrics) OrderCreated(status string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(status)).Inc()
}

// PaymentAuthorized records a simulator decision.
func (m *CheckoutMetrics) PaymentAuthorized(result, code string) {
	if m == nil || m.authorizations == nil {
		return
	}
	if code == "" {
		code = "none"
	}
	m.authorizations.WithLabelValues(normalizeLabel(result), code).Inc()
}

// InventoryConflict records a lost stock race or shortage detected at write time.
func (m *CheckoutMetrics) InventoryConflict(operation string) {
	if m == nil || m.inventoryConflicts == nil {
		return
	}
	m.inventoryConflicts.WithLabelValues(normalizeLabel(operation)).Inc()
}

func (m *CheckoutMetrics) NotificationFailed(kind string) {
	if m == nil || m.notificationFailures == nil {
		return
	}
	m.notificationFailures.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (m *CheckoutMetrics) StatusTransition(from, to string) {
	if m == nil || m.statusTransitions == nil {
		return
	}
	m.statusTransitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
