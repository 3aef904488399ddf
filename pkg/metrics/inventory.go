package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Reservation outcomes.
const (
	OutcomeReserved     = "reserved"
	OutcomeInsufficient = "insufficient"
	OutcomeNotFound     = "not_found"
	OutcomeReleased     = "released"
	OutcomeConfirmed    = "confirmed"
)

// Guard outcomes.
const (
	GuardAcquired  = "acquired"
	GuardContended = "contended"
	GuardExhausted = "exhausted"
)

// InventoryMetrics tracks ledger mutations, guard contention and planning results.
type InventoryMetrics struct {
	reservations *prometheus.CounterVec
	guard        *prometheus.CounterVec
	corrections  prometheus.Counter
	reorders     *prometheus.CounterVec
	forecasts    *prometheus.CounterVec
	stockoutRisk *prometheus.GaugeVec
}

// NewInventoryMetrics registers the inventory metrics on the provided registerer.
// A nil registerer yields a no-op collector.
func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	if reg == nil {
		return &InventoryMetrics{}
	}
	m := &InventoryMetrics{
		reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_reservation_total",
			Help: "Reservation ledger operations by outcome.",
		}, []string{"outcome"}),
		guard: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_guard_attempts_total",
			Help: "Per-product lock acquisition attempts by outcome.",
		}, []string{"outcome"}),
		corrections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inventory_reconcile_corrections_total",
			Help: "Inventory records rewritten by reconciliation.",
		}),
		reorders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_auto_reorders_total",
			Help: "Auto-reorders triggered by priority.",
		}, []string{"priority"}),
		forecasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_forecasts_total",
			Help: "Demand forecasts computed by source.",
		}, []string{"source"}),
		stockoutRisk: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "inventory_stockout_risk_products",
			Help: "Products at risk of selling out in the last report, by risk level.",
		}, []string{"risk"}),
	}
	reg.MustRegister(m.reservations, m.guard, m.corrections, m.reorders, m.forecasts, m.stockoutRisk)
	return m
}

// IncReservation counts a reservation ledger operation.
func (m *InventoryMetrics) IncReservation(outcome string) {
	if m == nil || m.reservations == nil {
		return
	}
	m.reservations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncGuard counts a lock acquisition attempt.
func (m *InventoryMetrics) IncGuard(outcome string) {
	if m == nil || m.guard == nil {
		return
	}
	m.guard.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncCorrection counts a reconciled record that had drifted.
func (m *InventoryMetrics) IncCorrection() {
	if m == nil || m.corrections == nil {
		return
	}
	m.corrections.Inc()
}

// IncReorder counts a triggered auto-reorder.
func (m *InventoryMetrics) IncReorder(priority string) {
	if m == nil || m.reorders == nil {
		return
	}
	m.reorders.WithLabelValues(normalizeLabel(priority)).Inc()
}

// IncForecast counts a computed forecast.
func (m *InventoryMetrics) IncForecast(source string) {
	if m == nil || m.forecasts == nil {
		return
	}
	m.forecasts.WithLabelValues(normalizeLabel(source)).Inc()
}

// SetStockoutRisk replaces the per-level counts from the latest report.
func (m *InventoryMetrics) SetStockoutRisk(counts map[string]int) {
	if m == nil || m.stockoutRisk == nil {
		return
	}
	m.stockoutRisk.Reset()
	for risk, n := range counts {
		m.stockoutRisk.WithLabelValues(normalizeLabel(risk)).Set(float64(n))
	}
}
