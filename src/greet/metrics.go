package greet

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts greeting activity.
type Metrics struct {
	commands    *prometheus.CounterVec
	invitations prometheus.Gauge
	admitted    prometheus.Counter
}

// NewMetrics creates the greeter metrics and registers them with registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := Metrics{
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "greeter_commands_total",
				Help: "Number of greeting commands handled, by command and result",
			},
			[]string{"command", "result"},
		),
		invitations: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "greeter_live_invitations",
				Help: "Number of invitations held by the greeter",
			},
		),
		admitted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "greeter_admitted_messages_total",
				Help: "Number of admission messages handed to the party writer",
			},
		),
	}
	registerer.MustRegister(m.commands)
	registerer.MustRegister(m.invitations)
	registerer.MustRegister(m.admitted)

	return &m
}

func (m *Metrics) command(cmd, result string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(cmd, result).Inc()
}

func (m *Metrics) setInvitations(n int) {
	if m == nil {
		return
	}
	m.invitations.Set(float64(n))
}

func (m *Metrics) addAdmitted(n int) {
	if m == nil {
		return
	}
	m.admitted.Add(float64(n))
}
