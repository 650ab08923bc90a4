package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the containment gateway.
// A nil *Metrics records nothing.
type Metrics struct {
	RequestTotal        *prometheus.CounterVec
	RequestDurationMs   *prometheus.HistogramVec
	TokensTotal         *prometheus.CounterVec
	CacheLookupTotal    *prometheus.CounterVec
	CoalescedTotal      prometheus.Counter
	CrisisDetectTotal   *prometheus.CounterVec
	CrisisBlockedTotal  prometheus.Counter
	CrisisFailureTotal  prometheus.Counter
	SideEffectFailTotal *prometheus.CounterVec
	RedactionTotal      *prometheus.CounterVec
	PolicyDenialTotal   prometheus.Counter
	RateLimitHitTotal   *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "containment_request_total",
			Help: "Total number of AI requests handled by the gateway.",
		}, []string{"type", "provider", "status"}),

		RequestDurationMs: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "containment_request_duration_ms",
			Help:    "Total request duration in milliseconds (including provider latency).",
			Buckets: []float64{5, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		}, []string{"type", "provider"}),

		TokensTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "containment_tokens_total",
			Help: "Total tokens reported by providers.",
		}, []string{"provider"}),

		CacheLookupTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "containment_cache_lookup_total",
			Help: "Response cache lookups by result.",
		}, []string{"result"}),

		CoalescedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "containment_coalesced_total",
			Help: "Requests served by joining an identical in-flight provider call.",
		}),

		CrisisDetectTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "containment_crisis_detection_total",
			Help: "Crisis detections by category and aggregate severity.",
		}, []string{"category", "severity"}),

		CrisisBlockedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "containment_crisis_blocked_total",
			Help: "Requests answered with a supportive message instead of a provider call.",
		}),

		CrisisFailureTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "containment_crisis_failure_total",
			Help: "Crisis analysis failures.",
		}),

		SideEffectFailTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "containment_side_effect_failure_total",
			Help: "Failed audit writes and guardian notifications.",
		}, []string{"kind"}),

		RedactionTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "containment_redaction_total",
			Help: "Sensitive items redacted by the sanitizer.",
		}, []string{"stage", "kind"}),

		PolicyDenialTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "containment_policy_denial_total",
			Help: "Requests denied by permission checks or tenant policy.",
		}),

		RateLimitHitTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "containment_rate_limit_hit_total",
			Help: "Requests rejected by rate limits or token quotas.",
		}, []string{"dimension"}),
	}
}

// RequestLabels holds the label values for recording a request.
type RequestLabels struct {
	Type       string
	Provider   string
	Status     string
	DurationMs float64
	Tokens     int
}

// RecordRequest records metrics for a completed request.
func (m *Metrics) RecordRequest(labels RequestLabels) {
	if m == nil {
		return
	}
	m.RequestTotal.WithLabelValues(labels.Type, labels.Provider, labels.Status).Inc()
	m.RequestDurationMs.WithLabelValues(labels.Type, labels.Provider).Observe(labels.DurationMs)
	if labels.Tokens > 0 {
		m.TokensTotal.WithLabelValues(labels.Provider).Add(float64(labels.Tokens))
	}
}

func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordCoalesced() {
	if m == nil {
		return
	}
	m.CoalescedTotal.Inc()
}

// RecordCrisisDetection counts one detection per matched category.
func (m *Metrics) RecordCrisisDetection(categories []string, severity string) {
	if m == nil {
		return
	}
	for _, c := range categories {
		m.CrisisDetectTotal.WithLabelValues(c, severity).Inc()
	}
}

func (m *Metrics) RecordCrisisBlocked() {
	if m == nil {
		return
	}
	m.CrisisBlockedTotal.Inc()
}

func (m *Metrics) RecordCrisisFailure() {
	if m == nil {
		return
	}
	m.CrisisFailureTotal.Inc()
}

// RecordSideEffectFailure records a failed audit write ("audit") or notification ("notify").
func (m *Metrics) RecordSideEffectFailure(kind string) {
	if m == nil {
		return
	}
	m.SideEffectFailTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordRedaction(stage, kind string) {
	if m == nil {
		return
	}
	m.RedactionTotal.WithLabelValues(stage, kind).Inc()
}

func (m *Metrics) RecordPolicyDenial() {
	if m == nil {
		return
	}
	m.PolicyDenialTotal.Inc()
}

func (m *Metrics) RecordRateLimitHit(dimension string) {
	if m == nil {
		return
	}
	m.RateLimitHitTotal.WithLabelValues(dimension).Inc()
}
