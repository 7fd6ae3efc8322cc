package observability

import (
	"context"
	"sync"

	"github.com/aretw0/ttystep/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for ttystep sessions.
type Metrics struct {
	Steps        *prometheus.CounterVec
	Resets       *prometheus.CounterVec
	Active       prometheus.Gauge
	Records      prometheus.Counter
	Bytes        prometheus.Counter
	StepDuration *prometheus.HistogramVec
	Fatal        *prometheus.CounterVec

	mu   sync.Mutex
	seen map[string]seen // last record totals per live session
}

type seen struct {
	records int
	bytes   int64
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ttystep_steps_total",
			Help: "Total number of actions fed to sessions.",
		}, []string{"program", "strategy"}),
		Resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ttystep_resets_total",
			Help: "Total number of session resets.",
		}, []string{"program", "strategy"}),
		Active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ttystep_sessions_active",
			Help: "Number of sessions started and not yet ended.",
		}),
		Records: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ttystep_records_total",
			Help: "Total number of ttyrec records written.",
		}),
		Bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ttystep_recorded_bytes_total",
			Help: "Total payload bytes written to recordings.",
		}),
		StepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ttystep_step_duration_seconds",
			Help:    "Time from feeding an action to the next yield.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"strategy"}),
		Fatal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ttystep_fatal_total",
			Help: "Total number of sessions torn down by a fatal failure.",
		}, []string{"program"}),
		seen: make(map[string]seen),
	}
	if reg != nil {
		reg.MustRegister(m.Steps, m.Resets, m.Active, m.Records, m.Bytes, m.StepDuration, m.Fatal)
	}
	return m
}

// Hooks returns lifecycle hooks that update the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStart: func(ctx context.Context, e *domain.SessionEvent) {
			m.Active.Inc()
			m.account(e)
		},
		OnStep: func(ctx context.Context, e *domain.SessionEvent) {
			m.Steps.WithLabelValues(e.Program, string(e.Strategy)).Inc()
			m.StepDuration.WithLabelValues(string(e.Strategy)).Observe(e.Duration.Seconds())
			m.account(e)
		},
		OnReset: func(ctx context.Context, e *domain.SessionEvent) {
			m.Resets.WithLabelValues(e.Program, string(e.Strategy)).Inc()
			m.account(e)
		},
		OnFatal: func(ctx context.Context, e *domain.SessionEvent) {
			m.Fatal.WithLabelValues(e.Program).Inc()
		},
		OnEnd: func(ctx context.Context, e *domain.SessionEvent) {
			m.Active.Dec()
			m.account(e)
			m.mu.Lock()
			delete(m.seen, e.SessionID)
			m.mu.Unlock()
		},
	}
}

// account adds the growth of the session's record totals since the last event.
func (m *Metrics) account(e *domain.SessionEvent) {
	m.mu.Lock()
	prev := m.seen[e.SessionID]
	m.seen[e.SessionID] = seen{records: e.Records, bytes: e.Bytes}
	m.mu.Unlock()

	if d := e.Records - prev.records; d > 0 {
		m.Records.Add(float64(d))
	}
	if d := e.Bytes - prev.bytes; d > 0 {
		m.Bytes.Add(float64(d))
	}
}
