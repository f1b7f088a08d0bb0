// Package metrics exposes the bot's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors updated by the evaluation loop. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	TicksTotal      *prometheus.CounterVec
	TickErrorsTotal *prometheus.CounterVec
	OrdersTotal     *prometheus.CounterVec
	TaskBalance     *prometheus.GaugeVec
	Tasks           *prometheus.GaugeVec
	CycleDuration   prometheus.Histogram
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		TicksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "shadow_ticks_total", Help: "Count of market ticks ingested"},
			[]string{"symbol"},
		),
		TickErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "shadow_tick_errors_total", Help: "Count of failed market data fetches"},
			[]string{"symbol"},
		),
		OrdersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "shadow_orders_total", Help: "Simulated orders executed"},
			[]string{"symbol", "side"},
		),
		TaskBalance: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "shadow_task_balance", Help: "Current marked balance per task"},
			[]string{"task"},
		),
		Tasks: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "shadow_tasks", Help: "Number of tasks per status"},
			[]string{"status"},
		),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "shadow_cycle_duration_seconds",
			Help:    "Wall time of one evaluation cycle",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(m.TicksTotal, m.TickErrorsTotal, m.OrdersTotal, m.TaskBalance, m.Tasks, m.CycleDuration)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveTick counts one tick fetch for symbol.
func (m *Metrics) ObserveTick(symbol string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.TickErrorsTotal.WithLabelValues(symbol).Inc()
		return
	}
	m.TicksTotal.WithLabelValues(symbol).Inc()
}

// ObserveOrder counts one simulated fill.
func (m *Metrics) ObserveOrder(symbol, side string) {
	if m == nil {
		return
	}
	m.OrdersTotal.WithLabelValues(symbol, side).Inc()
}

// SetBalance records a task's marked balance.
func (m *Metrics) SetBalance(taskID string, balance float64) {
	if m == nil {
		return
	}
	m.TaskBalance.WithLabelValues(taskID).Set(balance)
}

// SetTaskCounts replaces the per-status task gauge.
func (m *Metrics) SetTaskCounts(counts map[string]int) {
	if m == nil {
		return
	}
	m.Tasks.Reset()
	for status, n := range counts {
		m.Tasks.WithLabelValues(status).Set(float64(n))
	}
}

// ObserveCycle records how long an evaluation cycle took.
func (m *Metrics) ObserveCycle(d time.Duration) {
	if m == nil {
		return
	}
	m.CycleDuration.Observe(d.Seconds())
}
