package reactor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts selector activity. A nil *Metrics records nothing.
type Metrics struct {
	Polls           prometheus.Counter
	SpuriousWakeUps prometheus.Counter
	Interrupts      prometheus.Counter
	ReadyEvents     prometheus.Counter
	Registrations   prometheus.Gauge
}

func NewMetrics(name string) *Metrics {
	labels := prometheus.Labels{"selector": name}
	return &Metrics{
		Polls: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "sing_rpc_selector_polls_total",
			Help:        "Number of completed platform waits.",
			ConstLabels: labels,
		}),
		SpuriousWakeUps: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "sing_rpc_selector_spurious_wakeups_total",
			Help:        "Number of waits that returned without readiness or timeout.",
			ConstLabels: labels,
		}),
		Interrupts: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "sing_rpc_selector_interrupts_total",
			Help:        "Number of waits interrupted to apply registration changes.",
			ConstLabels: labels,
		}),
		ReadyEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "sing_rpc_selector_ready_events_total",
			Help:        "Number of readiness notifications reported to handlers.",
			ConstLabels: labels,
		}),
		Registrations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "sing_rpc_selector_registrations",
			Help:        "Number of live registrations.",
			ConstLabels: labels,
		}),
	}
}

func (m *Metrics) Register(registerer prometheus.Registerer) error {
	for _, collector := range m.collectors() {
		if err := registerer.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) Unregister(registerer prometheus.Registerer) {
	for _, collector := range m.collectors() {
		registerer.Unregister(collector)
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.Polls, m.SpuriousWakeUps, m.Interrupts, m.ReadyEvents, m.Registrations}
}

func (m *Metrics) poll() {
	if m != nil {
		m.Polls.Inc()
	}
}

func (m *Metrics) spuriousWakeUp() {
	if m != nil {
		m.SpuriousWakeUps.Inc()
	}
}

func (m *Metrics) interrupt() {
	if m != nil {
		m.Interrupts.Inc()
	}
}

func (m *Metrics) ready(n int) {
	if m != nil && n > 0 {
		m.ReadyEvents.Add(float64(n))
	}
}

func (m *Metrics) registrations(delta float64) {
	if m != nil {
		m.Registrations.Add(delta)
	}
}
