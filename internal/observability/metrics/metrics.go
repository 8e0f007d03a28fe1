package metrics

import "github.com/prometheus/client_golang/prometheus"

// FormMetrics exposes counters/histograms for the questionnaire and the
// logging endpoint.
type FormMetrics struct {
	submissionsTotal *prometheus.CounterVec
	submitLatency    *prometheus.HistogramVec
	rowsTotal        *prometheus.CounterVec
	wizardEvents     *prometheus.CounterVec
}

func NewFormMetrics(reg prometheus.Registerer) *FormMetrics {
	m := &FormMetrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "awwwe",
			Subsystem: "submission",
			Name:      "total",
			Help:      "Total questionnaire submissions by pool and outcome",
		}, []string{"pool", "outcome"}),
		submitLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "awwwe",
			Subsystem: "submission",
			Name:      "latency_seconds",
			Help:      "Latency of the outbound submission request",
			Buckets:   prometheus.DefBuckets,
		}, []string{"pool"}),
		rowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "awwwe",
			Subsystem: "sheet",
			Name:      "rows_total",
			Help:      "Rows received by the logging endpoint by backend and status",
		}, []string{"backend", "status"}),
		wizardEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "awwwe",
			Subsystem: "wizard",
			Name:      "events_total",
			Help:      "Sequencer events published to respondents",
		}, []string{"event"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissionsTotal, m.submitLatency, m.rowsTotal, m.wizardEvents)
	return m
}

func (m *FormMetrics) ObserveSubmission(pool, outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(pool, outcome).Inc()
}

func (m *FormMetrics) ObserveSubmitLatency(pool string, seconds float64) {
	if m == nil {
		return
	}
	m.submitLatency.WithLabelValues(pool).Observe(seconds)
}

func (m *FormMetrics) ObserveRow(backend string, ok bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	m.rowsTotal.WithLabelValues(backend, status).Inc()
}

func (m *FormMetrics) ObserveWizardEvent(event string) {
	if m == nil {
		return
	}
	m.wizardEvents.WithLabelValues(event).Inc()
}
