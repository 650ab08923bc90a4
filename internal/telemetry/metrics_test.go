package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return metric.GetCounter().GetValue()
}

func TestNewMetrics_RegistersAll(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	// Vectors only appear once a label set is observed.
	m.RecordRequest(RequestLabels{Type: "chat", Provider: "openai", Status: "ok", DurationMs: 12, Tokens: 3})
	m.RecordCacheLookup(true)
	m.RecordCoalesced()
	m.RecordCrisisDetection([]string{"self_harm"}, "high")
	m.RecordCrisisBlocked()
	m.RecordCrisisFailure()
	m.RecordSideEffectFailure("audit")
	m.RecordRedaction("prompt", "EMAIL")
	m.RecordPolicyDenial()
	m.RecordRateLimitHit("session")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) != 12 {
		t.Errorf("expected 12 metric families, got %d", len(families))
	}
}

func TestNewMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	NewMetrics(reg)
}

func TestRecordRequest(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordRequest(RequestLabels{
		Type:       "chat",
		Provider:   "openai",
		Status:     "ok",
		DurationMs: 150,
		Tokens:     100,
	})
	m.RecordRequest(RequestLabels{Type: "chat", Provider: "openai", Status: "ok", DurationMs: 20})

	if v := counterValue(t, m.RequestTotal.WithLabelValues("chat", "openai", "ok")); v != 2 {
		t.Errorf("expected request count 2, got %v", v)
	}
	if v := counterValue(t, m.TokensTotal.WithLabelValues("openai")); v != 100 {
		t.Errorf("expected 100 tokens, got %v", v)
	}
}

func TestRecordCrisisDetection_PerCategory(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.RecordCrisisDetection([]string{"suicide_ideation", "emotional_distress"}, "critical")

	if v := counterValue(t, m.CrisisDetectTotal.WithLabelValues("suicide_ideation", "critical")); v != 1 {
		t.Errorf("suicide_ideation = %v, want 1", v)
	}
	if v := counterValue(t, m.CrisisDetectTotal.WithLabelValues("emotional_distress", "critical")); v != 1 {
		t.Errorf("emotional_distress = %v, want 1", v)
	}
}

func TestRecordCacheLookup(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)
	m.RecordCacheLookup(false)

	if v := counterValue(t, m.CacheLookupTotal.WithLabelValues("miss")); v != 2 {
		t.Errorf("misses = %v, want 2", v)
	}
}

func TestNilMetrics_NoPanic(t *testing.T) {
	var m *Metrics
	m.RecordRequest(RequestLabels{})
	m.RecordCacheLookup(true)
	m.RecordCoalesced()
	m.RecordCrisisDetection([]string{"x"}, "low")
	m.RecordCrisisBlocked()
	m.RecordCrisisFailure()
	m.RecordSideEffectFailure("notify")
	m.RecordRedaction("response", "SSN")
	m.RecordPolicyDenial()
	m.RecordRateLimitHit("key")
}
