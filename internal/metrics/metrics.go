package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	AdmissionDecisions *prometheus.CounterVec
	AdmissionFailures  prometheus.Counter
	AuthOutcomes       *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		AdmissionDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authgate",
			Subsystem: "admission",
			Name:      "decisions_total",
			Help:      "Admission decisions by role and reason.",
		}, []string{"role", "reason", "enforced"}),
		AdmissionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "authgate",
			Subsystem: "admission",
			Name:      "failures_total",
			Help:      "Requests denied because the admission check itself failed.",
		}),
		AuthOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authgate",
			Subsystem: "auth",
			Name:      "outcomes_total",
			Help:      "Sign-up, sign-in and sign-out results.",
		}, []string{"operation", "result"}),
	}

	m.registry.MustRegister(
		m.AdmissionDecisions,
		m.AdmissionFailures,
		m.AuthOutcomes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
