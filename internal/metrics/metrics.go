package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts relocator outcomes.
type Metrics interface {
	IncEvents(outcome string)
	IncCopies(status string)
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) IncEvents(string) {}
func (Noop) IncCopies(string) {}

// Prom implements Metrics with Prometheus counters on its own registry.
type Prom struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
	copies   *prometheus.CounterVec
}

func NewProm(namespace string) *Prom {
	p := &Prom{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Build events by outcome",
		}, []string{"outcome"}),
		copies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "badge_copies_total",
			Help:      "Badges copied by build status",
		}, []string{"status"}),
	}
	p.registry.MustRegister(p.events, p.copies)
	return p
}

func (p *Prom) IncEvents(outcome string) {
	p.events.WithLabelValues(outcome).Inc()
}

func (p *Prom) IncCopies(status string) {
	p.copies.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (p *Prom) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
