package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters and histograms for health-bot turns.
type ChatMetrics struct {
	turnsTotal       *prometheus.CounterVec
	turnLatency      *prometheus.HistogramVec
	submissionsTotal *prometheus.CounterVec
	safetyBlocks     *prometheus.CounterVec
	llmLatency       *prometheus.HistogramVec
	llmErrors        *prometheus.CounterVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthbot",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Chat turns by intent, phase and outcome",
		}, []string{"intent", "phase", "outcome"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "healthbot",
			Subsystem: "chat",
			Name:      "turn_latency_seconds",
			Help:      "End-to-end latency of a chat turn",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"outcome"}),
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthbot",
			Subsystem: "flow",
			Name:      "submissions_total",
			Help:      "Domain submissions by flow phase and outcome",
		}, []string{"phase", "outcome"}),
		safetyBlocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthbot",
			Subsystem: "safety",
			Name:      "blocked_total",
			Help:      "Messages refused by the safety filter",
		}, []string{"severity"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "healthbot",
			Subsystem: "llm",
			Name:      "call_latency_seconds",
			Help:      "Latency of model calls by provider and operation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "operation"}),
		llmErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthbot",
			Subsystem: "llm",
			Name:      "errors_total",
			Help:      "Failed model calls by provider and operation",
		}, []string{"provider", "operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.turnLatency, m.submissionsTotal, m.safetyBlocks, m.llmLatency, m.llmErrors)
	return m
}

func (m *ChatMetrics) ObserveTurn(intent, phase, outcome string, seconds float64) {
	if m == nil {
		return
	}
	if intent == "" {
		intent = "none"
	}
	if phase == "" {
		phase = "none"
	}
	m.turnsTotal.WithLabelValues(intent, phase, outcome).Inc()
	m.turnLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *ChatMetrics) ObserveSubmission(phase, outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(phase, outcome).Inc()
}

func (m *ChatMetrics) ObserveSafetyBlock(severity string) {
	if m == nil {
		return
	}
	m.safetyBlocks.WithLabelValues(severity).Inc()
}

// ObserveLLMCall records one model call. A non-nil err also counts a failure.
func (m *ChatMetrics) ObserveLLMCall(provider, operation string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.llmLatency.WithLabelValues(provider, operation).Observe(seconds)
	if err != nil {
		m.llmErrors.WithLabelValues(provider, operation).Inc()
	}
}
