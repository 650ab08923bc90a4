package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/af-corp/containment-gateway/internal/config"
	"github.com/af-corp/containment-gateway/internal/crisis"
	"github.com/af-corp/containment-gateway/internal/types"
)

var testContext = types.ContainmentContext{
	SessionID:        "sess-1",
	UserID:           "student-7",
	IsMinor:          true,
	ParentGuardianID: "guardian-3",
	SchoolID:         "school-1",
}

func testResult() *crisis.Result {
	return &crisis.Result{
		Detected:   true,
		Severity:   crisis.SeverityCritical,
		Categories: []crisis.Category{crisis.CategorySuicideIdeation},
		AuditID:    "audit-1",
		Response: crisis.Response{
			Resources: []crisis.Resource{crisis.ResourceLifeline},
		},
	}
}

func newTestWebhook(url, format string) *Webhook {
	w := NewWebhook(func() config.NotifyConfig {
		return config.NotifyConfig{WebhookURL: url, Format: format, Headers: map[string]string{"X-Token": "t"}}
	}, NewThrottle(nil))
	w.backoff = time.Millisecond
	w.now = func() time.Time { return time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC) }
	return w
}

func TestWebhook_GenericPayload(t *testing.T) {
	var got Event
	var token string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = r.Header.Get("X-Token")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	if err := newTestWebhook(srv.URL, "generic").Notify(context.Background(), testContext, testResult()); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if token != "t" {
		t.Errorf("custom header not sent")
	}
	if got.GuardianID != "guardian-3" || got.Severity != "critical" || got.AuditID != "audit-1" {
		t.Errorf("unexpected event: %+v", got)
	}
	if len(got.Categories) != 1 || got.Categories[0] != "suicide_ideation" {
		t.Errorf("categories = %v", got.Categories)
	}
	if got.Timestamp != "2026-05-01T08:00:00Z" {
		t.Errorf("timestamp = %s", got.Timestamp)
	}
}

func TestWebhook_SlackPayload(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
	}))
	defer srv.Close()

	if err := newTestWebhook(srv.URL, "slack").Notify(context.Background(), testContext, testResult()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(body, `"blocks"`) || !strings.Contains(body, "Wellbeing alert: critical") {
		t.Errorf("unexpected slack body: %s", body)
	}
}

func TestWebhook_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := newTestWebhook(srv.URL, "").Notify(context.Background(), testContext, testResult()); err != nil {
		t.Fatalf("expected success on third attempt: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestWebhook_GivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := newTestWebhook(srv.URL, "").Notify(context.Background(), testContext, testResult())
	if err == nil || calls.Load() != maxAttempts {
		t.Fatalf("expected failure after %d attempts, got calls=%d err=%v", maxAttempts, calls.Load(), err)
	}
}

func TestWebhook_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	if err := newTestWebhook(srv.URL, "").Notify(context.Background(), testContext, testResult()); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("4xx must not be retried, calls=%d", calls.Load())
	}
}

func TestWebhook_Disabled(t *testing.T) {
	w := newTestWebhook("", "")
	if w.Enabled() {
		t.Error("expected disabled without url")
	}
	if err := w.Notify(context.Background(), testContext, testResult()); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("disabled webhook must report nothing was sent, got %v", err)
	}
}

// memThrottle is an in-process stand-in for the Redis window.
type memThrottle struct {
	mu       sync.Mutex
	held     map[string]bool
	released int
}

func (m *memThrottle) Allow(_ context.Context, key string, _ time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held == nil {
		m.held = map[string]bool{}
	}
	if m.held[key] {
		return false
	}
	m.held[key] = true
	return true
}

func (m *memThrottle) Release(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, key)
	m.released++
}

func TestWebhook_ThrottleWindow(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		wantFirstErr bool
		wantSecond   error
		wantCalls    int32
	}{
		{"delivered notification holds the window", http.StatusOK, false, ErrThrottled, 1},
		{"failed delivery releases the window", http.StatusServiceUnavailable, true, nil, 2 * maxAttempts},
		{"rejected delivery releases the window", http.StatusBadRequest, true, nil, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			th := &memThrottle{}
			w := newTestWebhook(srv.URL, "")
			w.throttle = th
			w.cfg = func() config.NotifyConfig {
				return config.NotifyConfig{WebhookURL: srv.URL, ThrottleWindow: time.Hour}
			}

			err := w.Notify(context.Background(), testContext, testResult())
			if (err != nil) != tt.wantFirstErr {
				t.Fatalf("first Notify err = %v", err)
			}

			err = w.Notify(context.Background(), testContext, testResult())
			switch {
			case tt.wantSecond == nil && errors.Is(err, ErrThrottled):
				t.Fatal("a failed notification must not suppress the next one")
			case tt.wantSecond != nil && !errors.Is(err, tt.wantSecond):
				t.Fatalf("second Notify err = %v, want %v", err, tt.wantSecond)
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("webhook calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestThrottle_NilRedisAllows(t *testing.T) {
	th := NewThrottle(nil)
	for range 3 {
		if !th.Allow(context.Background(), "k", time.Hour) {
			t.Fatal("nil redis must allow")
		}
	}
	var nilThrottle *Throttle
	if !nilThrottle.Allow(context.Background(), "k", time.Hour) {
		t.Fatal("nil throttle must allow")
	}
	nilThrottle.Release(context.Background(), "k")
	th.Release(context.Background(), "k")
}
