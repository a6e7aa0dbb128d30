package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"spreadmaster/internal/application/port"
)

// Metrics Prometheus 运行指标，实现 port.Instruments
type Metrics struct {
	registry *prometheus.Registry

	pollsTotal      *prometheus.CounterVec
	snapshotQuotes  prometheus.Gauge
	contractsOpened *prometheus.CounterVec
	contractsClosed *prometheus.CounterVec
	activeContracts prometheus.Gauge
	totalProfit     prometheus.Gauge
	advisoryBatches prometheus.Counter
	fetchErrors     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		pollsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "spreadmaster_polls_total", Help: "Poll responses by outcome"},
			[]string{"outcome"},
		),
		snapshotQuotes: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "spreadmaster_snapshot_quotes", Help: "Quotes in the last applied snapshot"},
		),
		contractsOpened: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "spreadmaster_contracts_opened_total", Help: "Contracts opened"},
			[]string{"mode"},
		),
		contractsClosed: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "spreadmaster_contracts_closed_total", Help: "Contracts closed"},
			[]string{"mode"},
		),
		activeContracts: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "spreadmaster_active_contracts", Help: "Currently active virtual contracts"},
		),
		totalProfit: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "spreadmaster_total_profit_percent", Help: "Aggregate instantaneous profit of active contracts"},
		),
		advisoryBatches: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "spreadmaster_advisory_batches_total", Help: "Significant-change advisory batches emitted"},
		),
		fetchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "spreadmaster_exchange_fetch_errors_total", Help: "Exchange fetch failures"},
			[]string{"exchange"},
		),
	}
	m.registry.MustRegister(
		m.pollsTotal, m.snapshotQuotes,
		m.contractsOpened, m.contractsClosed,
		m.activeContracts, m.totalProfit,
		m.advisoryBatches, m.fetchErrors,
	)
	return m
}

// Handler /metrics 的 HTTP 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) PollApplied(quotes int) {
	m.pollsTotal.WithLabelValues("ok").Inc()
	m.snapshotQuotes.Set(float64(quotes))
}
func (m *Metrics) PollStale() { m.pollsTotal.WithLabelValues("stale").Inc() }
func (m *Metrics) PollError() { m.pollsTotal.WithLabelValues("error").Inc() }

func (m *Metrics) ContractOpened(auto bool) { m.contractsOpened.WithLabelValues(mode(auto)).Inc() }
func (m *Metrics) ContractClosed(auto bool) { m.contractsClosed.WithLabelValues(mode(auto)).Inc() }

func (m *Metrics) SetActiveContracts(n int)   { m.activeContracts.Set(float64(n)) }
func (m *Metrics) SetTotalProfit(p float64)   { m.totalProfit.Set(p) }
func (m *Metrics) AdvisoryBatch()             { m.advisoryBatches.Inc() }
func (m *Metrics) FetchError(exchange string) { m.fetchErrors.WithLabelValues(exchange).Inc() }

func mode(auto bool) string {
	if auto {
		return "auto"
	}
	return "manual"
}

var _ port.Instruments = (*Metrics)(nil)
