package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/af-corp/containment-gateway/internal/config"
	"github.com/af-corp/containment-gateway/internal/crisis"
	"github.com/af-corp/containment-gateway/internal/types"
)

const (
	requestTimeout = 5 * time.Second
	maxAttempts    = 3
)

// throttler claims and releases the per-guardian throttle window.
type throttler interface {
	Allow(ctx context.Context, key string, window time.Duration) bool
	Release(ctx context.Context, key string)
}

// Webhook posts guardian notifications to an HTTP endpoint.
type Webhook struct {
	cfg      func() config.NotifyConfig
	client   *http.Client
	throttle throttler
	backoff  time.Duration
	now      func() time.Time
}

func NewWebhook(cfg func() config.NotifyConfig, throttle *Throttle) *Webhook {
	return &Webhook{
		cfg:      cfg,
		client:   &http.Client{Timeout: requestTimeout},
		throttle: throttle,
		backoff:  time.Second,
		now:      time.Now,
	}
}

// Enabled reports whether a webhook URL is configured.
func (w *Webhook) Enabled() bool {
	return w.cfg().WebhookURL != ""
}

// Notify implements Callback. 5xx replies and transport errors are retried
// with linear backoff; 4xx replies are not. A nil error means the guardian
// endpoint accepted the notification. The throttle window is released again
// when delivery fails.
func (w *Webhook) Notify(ctx context.Context, cc types.ContainmentContext, res *crisis.Result) (err error) {
	cfg := w.cfg()
	if cfg.WebhookURL == "" {
		return ErrNotConfigured
	}

	key := cc.ParentGuardianID + ":" + cc.UserID + ":" + string(res.Severity)
	if !w.throttle.Allow(ctx, key, cfg.ThrottleWindow) {
		return ErrThrottled
	}
	defer func() {
		if err != nil {
			w.throttle.Release(ctx, key)
		}
	}()

	body, err := FormatPayload(cfg.Format, NewEvent(cc, res, w.now()))
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	var lastErr error
	for attempt := range maxAttempts {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * w.backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.WebhookURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range cfg.Headers {
			req.Header.Set(k, v)
		}

		resp, err := w.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("webhook returned %d", resp.StatusCode)
		default:
			return fmt.Errorf("webhook returned %d", resp.StatusCode)
		}
	}
	return fmt.Errorf("webhook failed after %d attempts: %w", maxAttempts, lastErr)
}

var _ Callback = (*Webhook)(nil).Notify
