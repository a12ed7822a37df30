package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes counters for the RPC surface, the document triggers, mail
// dispatch and push fan-out.
type Metrics struct {
	rpcTotal     *prometheus.CounterVec
	rpcLatency   *prometheus.HistogramVec
	triggerTotal *prometheus.CounterVec
	mailTotal    *prometheus.CounterVec
	pushTotal    *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rpcTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dentalflow",
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "Total RPC calls by method and status code",
		}, []string{"method", "code"}),
		rpcLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dentalflow",
			Subsystem: "rpc",
			Name:      "latency_seconds",
			Help:      "RPC handling latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		triggerTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dentalflow",
			Subsystem: "trigger",
			Name:      "events_total",
			Help:      "Document events handled by trigger and outcome",
		}, []string{"trigger", "outcome"}),
		mailTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dentalflow",
			Subsystem: "mail",
			Name:      "deliveries_total",
			Help:      "Mail envelopes processed by final delivery state",
		}, []string{"state"}),
		pushTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dentalflow",
			Subsystem: "push",
			Name:      "published_total",
			Help:      "Push messages published by topic and status",
		}, []string{"topic", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.rpcTotal, m.rpcLatency, m.triggerTotal, m.mailTotal, m.pushTotal)
	return m
}

func (m *Metrics) ObserveRPC(method, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.rpcTotal.WithLabelValues(method, code).Inc()
	m.rpcLatency.WithLabelValues(method).Observe(d.Seconds())
}

func (m *Metrics) ObserveTrigger(trigger, outcome string) {
	if m == nil {
		return
	}
	m.triggerTotal.WithLabelValues(trigger, outcome).Inc()
}

func (m *Metrics) ObserveMail(state string) {
	if m == nil {
		return
	}
	m.mailTotal.WithLabelValues(state).Inc()
}

func (m *Metrics) ObservePush(topic string, ok bool) {
	if m == nil {
		return
	}
	label := "ok"
	if !ok {
		label = "error"
	}
	m.pushTotal.WithLabelValues(topic, label).Inc()
}
