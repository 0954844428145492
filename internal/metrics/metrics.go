package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the game collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	transitions     *prometheus.CounterVec
	compensations   *prometheus.CounterVec
	scoring         *prometheus.CounterVec
	scoringDuration prometheus.Histogram
	requests        *prometheus.CounterVec
	wsClients       prometheus.Gauge
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hot_seat_transitions_total",
			Help: "Game transitions by operation and outcome (applied, noop, conflict, failed).",
		}, []string{"operation", "outcome"}),
		compensations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hot_seat_compensations_total",
			Help: "Compensating writes by step and result.",
		}, []string{"step", "result"}),
		scoring: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hot_seat_answers_scored_total",
			Help: "Scored answers by result (scored, fallback).",
		}, []string{"result"}),
		scoringDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hot_seat_scoring_duration_seconds",
			Help:    "Time spent waiting for one scoring call.",
			Buckets: prometheus.DefBuckets,
		}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hot_seat_http_requests_total",
			Help: "HTTP requests by route pattern and status code.",
		}, []string{"route", "status"}),
		wsClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hot_seat_websocket_clients",
			Help: "Connected websocket clients.",
		}),
	}
}

func (m *Metrics) Transition(operation, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) Compensation(step, result string) {
	if m == nil {
		return
	}
	m.compensations.WithLabelValues(step, result).Inc()
}

func (m *Metrics) Scored(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.scoring.WithLabelValues(result).Inc()
	m.scoringDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) Request(route string, status int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

func (m *Metrics) ClientConnected() {
	if m == nil {
		return
	}
	m.wsClients.Inc()
}

func (m *Metrics) ClientDisconnected() {
	if m == nil {
		return
	}
	m.wsClients.Dec()
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
