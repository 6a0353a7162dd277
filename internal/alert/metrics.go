package alert

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the engine's prometheus collectors. They are persisted to
// the sqlite metrics table across restarts from cmd.
type Metrics struct {
	CheckCycles prometheus.Counter
	AlertsFired *prometheus.CounterVec
	CheckErrors *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		CheckCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ionmining",
			Subsystem: "alerts",
			Name:      "check_cycles_total",
			Help:      "The total number of completed alert check cycles",
		}),
		AlertsFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ionmining",
			Subsystem: "alerts",
			Name:      "fired_total",
			Help:      "The total number of alerts fired, by type",
		}, []string{"type"}),
		CheckErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ionmining",
			Subsystem: "alerts",
			Name:      "check_errors_total",
			Help:      "The total number of degraded sub-checks, by signal",
		}, []string{"signal"}),
	}

	prometheus.MustRegister(m.CheckCycles)
	prometheus.MustRegister(m.AlertsFired)
	prometheus.MustRegister(m.CheckErrors)

	return m
}
