// Package gateway mediates every AI call issued from a contained session:
// crisis screening, permission checks, redaction, caching and routing.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/af-corp/containment-gateway/internal/audit"
	"github.com/af-corp/containment-gateway/internal/cache"
	"github.com/af-corp/containment-gateway/internal/config"
	"github.com/af-corp/containment-gateway/internal/crisis"
	"github.com/af-corp/containment-gateway/internal/notify"
	"github.com/af-corp/containment-gateway/internal/policy"
	"github.com/af-corp/containment-gateway/internal/router"
	"github.com/af-corp/containment-gateway/internal/router/adapters"
	"github.com/af-corp/containment-gateway/internal/sanitize"
	"github.com/af-corp/containment-gateway/internal/telemetry"
	"github.com/af-corp/containment-gateway/internal/types"
)

// ErrClosed is returned by Request after Close has been called.
var ErrClosed = errors.New("gateway closed")

const sideEffectTimeout = 10 * time.Second

// Analyzer classifies user text for crisis signals.
type Analyzer interface {
	Analyze(text string, cc types.ContainmentContext) (*crisis.Result, error)
}

// PolicyEvaluator is consulted after the built-in permission checks pass.
type PolicyEvaluator interface {
	Enabled() bool
	Evaluate(ctx context.Context, input policy.Input) (bool, string, error)
}

// TokenRecorder accumulates provider token usage per tenant.
type TokenRecorder interface {
	Record(ctx context.Context, tenantID string, tokens int) error
}

// Options are the collaborators of a Gateway. Detector, Sanitizer and Router
// are required; the rest may be nil.
type Options struct {
	Detector  Analyzer
	Sanitizer sanitize.Sanitizer
	Router    *router.Router
	Policy    PolicyEvaluator
	Audit     audit.Sink
	Notify    notify.Callback
	Tokens    TokenRecorder
	Metrics   *telemetry.Metrics
}

// Gateway is built once per process and shared by all requests.
type Gateway struct {
	cfg       func() *config.Config
	detector  Analyzer
	sanitizer sanitize.Sanitizer
	router    *router.Router
	policy    PolicyEvaluator
	audit     audit.Sink
	notify    notify.Callback
	tokens    TokenRecorder
	metrics   *telemetry.Metrics

	store     *cache.Store
	coalescer *cache.Coalescer
	now       func() time.Time

	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

func New(cfg func() *config.Config, opts Options) (*Gateway, error) {
	if opts.Detector == nil || opts.Sanitizer == nil || opts.Router == nil {
		return nil, errors.New("gateway: detector, sanitizer and router are required")
	}
	gc := cfg().Gateway
	g := &Gateway{
		cfg:       cfg,
		detector:  opts.Detector,
		sanitizer: opts.Sanitizer,
		router:    opts.Router,
		policy:    opts.Policy,
		audit:     opts.Audit,
		notify:    opts.Notify,
		tokens:    opts.Tokens,
		metrics:   opts.Metrics,
		coalescer: cache.NewCoalescer(),
		now:       time.Now,
	}
	g.store = cache.NewStoreWithClock(gc.CacheTTL(), gc.CacheSweepThreshold, func() time.Time { return g.now() })
	return g, nil
}

// Reconfigure applies settings that live outside the per-request config read.
func (g *Gateway) Reconfigure() {
	g.store.SetTTL(g.cfg().Gateway.CacheTTL())
}

// Close stops accepting requests and waits for pending audit writes and
// guardian notifications.
func (g *Gateway) Close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	g.pending.Wait()
}

// Request runs one AI call through the containment pipeline. Errors are
// *types.PermissionDeniedError, *types.SanitizationError,
// *types.ConfigurationError or *types.ProviderError.
func (g *Gateway) Request(ctx context.Context, req types.AIRequest, cc types.ContainmentContext) (*types.AIResponse, error) {
	start := g.now()
	g.mu.Lock()
	closed := g.closed
	g.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	cfg := g.cfg()

	detection, blocked := g.screen(req, cc, cfg.Crisis)
	if blocked != nil {
		g.metrics.RecordCrisisBlocked()
		blocked.ProcessingTime = g.now().Sub(start)
		g.finish(req, blocked, "blocked", start)
		return blocked, nil
	}

	if err := g.authorize(ctx, req, cc); err != nil {
		g.metrics.RecordPolicyDenial()
		g.finish(req, nil, "denied", start)
		return nil, err
	}

	prompt, err := g.sanitize(ctx, sanitize.StagePrompt, req.Prompt, cc)
	if err != nil {
		g.finish(req, nil, "error", start)
		return nil, err
	}
	reqContext, err := g.sanitize(ctx, sanitize.StageContext, truncateRunes(req.Context, cfg.Gateway.MaxContextLength), cc)
	if err != nil {
		g.finish(req, nil, "error", start)
		return nil, err
	}

	route, err := g.router.Decide(cc.Level, req.Type)
	if err != nil {
		g.finish(req, nil, "error", start)
		return nil, err
	}

	key := cache.Key(string(route), req.Type, prompt, reqContext)
	if cfg.Gateway.CacheEnabled {
		if resp, ok := g.store.Get(key); ok {
			g.metrics.RecordCacheLookup(true)
			resp.Cached = true
			attachCrisis(resp, detection)
			resp.ProcessingTime = g.now().Sub(start)
			g.finish(req, resp, "cached", start)
			return resp, nil
		}
		g.metrics.RecordCacheLookup(false)
	}

	resp, shared, err := g.coalescer.Do(ctx, key, func() (*types.AIResponse, error) {
		return g.callProvider(ctx, req, cc, route, prompt, reqContext, key)
	})
	if shared {
		g.metrics.RecordCoalesced()
	}
	if err != nil {
		g.finish(req, nil, "error", start)
		return nil, err
	}

	attachCrisis(resp, detection)
	resp.ProcessingTime = g.now().Sub(start)
	g.finish(req, resp, "ok", start)
	return resp, nil
}

// screen runs crisis analysis and schedules its side effects. A non-nil
// response means the request must not reach a provider.
func (g *Gateway) screen(req types.AIRequest, cc types.ContainmentContext, cfg config.CrisisConfig) (*crisis.Result, *types.AIResponse) {
	if !cfg.Enabled {
		return nil, nil
	}

	res, err := g.analyze(req, cc)
	if err != nil {
		g.metrics.RecordCrisisFailure()
		slog.Error("crisis analysis failed",
			"session_id", cc.SessionID,
			"fail_closed", cfg.FailClosed,
			"error", err,
		)
		if cfg.FailClosed {
			return nil, supportiveResponse(crisis.UnavailableResponse(), false)
		}
		return nil, nil
	}

	if res.Detected {
		g.metrics.RecordCrisisDetection(categoryNames(res.Categories), string(res.Severity))
		slog.Warn("crisis detected",
			"audit_id", res.AuditID,
			"session_id", cc.SessionID,
			"severity", res.Severity,
			"categories", res.Categories,
			"is_minor", cc.IsMinor,
			"blocked", res.Response.BlockContent,
		)
	}
	g.dispatch(cc, res, cfg)

	switch {
	case !res.Detected:
		return nil, nil
	case res.Response.BlockContent:
		return res, supportiveResponse(res.Response, true)
	default:
		return res, nil
	}
}

func (g *Gateway) analyze(req types.AIRequest, cc types.ContainmentContext) (res *crisis.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("crisis detector panic: %v", r)
		}
	}()
	text := req.Prompt
	if req.Context != "" {
		text += "\n" + req.Context
	}
	res, err = g.detector.Analyze(text, cc)
	if err == nil && res == nil {
		err = errors.New("crisis detector returned no result")
	}
	return res, err
}

// dispatch notifies the guardian and then writes the audit entry in the
// background. The entry records whether the notification was delivered.
func (g *Gateway) dispatch(cc types.ContainmentContext, res *crisis.Result, cfg config.CrisisConfig) {
	wantNotify := res.RequiresParentNotification && cfg.ParentNotificationEnabled && g.notify != nil
	writeAudit := g.audit != nil && (res.Detected || cfg.AuditAllDetections)
	if !wantNotify && !writeAudit {
		return
	}

	detectedAt := g.now()
	g.background(func(ctx context.Context) {
		notified := wantNotify && g.notifyGuardian(ctx, cc, res)
		if !writeAudit {
			return
		}
		auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
		defer cancel()
		entry := newAuditEntry(cc, res, notified, detectedAt)
		if err := g.audit.Record(auditCtx, entry); err != nil {
			g.metrics.RecordSideEffectFailure("audit")
			slog.Error("crisis audit write failed", "audit_id", entry.AuditID, "error", err)
		}
	})
}

// notifyGuardian reports whether the notification was delivered.
func (g *Gateway) notifyGuardian(ctx context.Context, cc types.ContainmentContext, res *crisis.Result) bool {
	err := g.notify(ctx, cc, res)
	switch {
	case err == nil:
		return true
	case errors.Is(err, notify.ErrThrottled):
		slog.Info("guardian notification throttled", "audit_id", res.AuditID)
	case errors.Is(err, notify.ErrNotConfigured):
		slog.Warn("guardian notification not sent, no target configured", "audit_id", res.AuditID)
	default:
		g.metrics.RecordSideEffectFailure("notify")
		slog.Error("guardian notification failed", "audit_id", res.AuditID, "error", err)
	}
	return false
}

// background runs fn on its own goroutine, detached from any request, and
// tracks it for Close.
func (g *Gateway) background(fn func(ctx context.Context)) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.pending.Add(1)
	g.mu.Unlock()

	go func() {
		defer g.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		fn(ctx)
	}()
}

func (g *Gateway) authorize(ctx context.Context, req types.AIRequest, cc types.ContainmentContext) error {
	op := req.Type.Operation()
	if _, ok := types.ParseRequestType(string(req.Type)); !ok {
		return &types.PermissionDeniedError{Operation: op, Reason: "unknown request type"}
	}
	if req.SessionID != cc.SessionID {
		return &types.PermissionDeniedError{Operation: op, Reason: "session does not match containment context"}
	}
	if !cc.Allows(op) {
		return &types.PermissionDeniedError{Operation: op, Reason: "operation not allowed in this session"}
	}

	if g.policy == nil || !g.policy.Enabled() {
		return nil
	}
	allowed, reason, err := g.policy.Evaluate(ctx, policy.NewInput(req, cc, g.now()))
	if err != nil {
		slog.Error("policy evaluation failed", "session_id", cc.SessionID, "error", err)
		return &types.PermissionDeniedError{Operation: op, Reason: "policy evaluation failed"}
	}
	if !allowed {
		if reason == "" {
			reason = "denied by tenant policy"
		}
		return &types.PermissionDeniedError{Operation: op, Reason: reason}
	}
	return nil
}

func (g *Gateway) sanitize(ctx context.Context, stage sanitize.Stage, text string, cc types.ContainmentContext) (string, error) {
	if text == "" {
		return "", nil
	}
	res, err := g.sanitizer.Sanitize(ctx, text, sanitize.Meta{
		Stage:     stage,
		SessionID: cc.SessionID,
		TenantID:  cc.TenantID,
		SchoolID:  cc.SchoolID,
		IsMinor:   cc.IsMinor,
	})
	if err != nil {
		return "", &types.SanitizationError{Stage: string(stage), Err: err}
	}
	for _, item := range res.DetectedItems {
		g.metrics.RecordRedaction(string(stage), item.Type)
	}
	return res.SanitizedContent, nil
}

// callProvider is the coalesced leader. It runs detached from the caller so
// that one caller giving up does not fail the others; routing.default_timeout
// bounds it instead.
func (g *Gateway) callProvider(ctx context.Context, req types.AIRequest, cc types.ContainmentContext, route router.Route, prompt, reqContext, key string) (*types.AIResponse, error) {
	cfg := g.cfg()
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Routing.DefaultTimeout)
	defer cancel()

	out, err := g.router.Call(callCtx, route, adapters.CallRequest{
		Prompt:      prompt,
		Context:     reqContext,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, err
	}

	content, err := g.sanitize(callCtx, sanitize.StageResponse, out.Content, cc)
	if err != nil {
		return nil, err
	}

	resp := &types.AIResponse{
		Content:    content,
		TokensUsed: out.TokensUsed,
		Provider:   string(out.Route),
	}
	if cfg.Gateway.CacheEnabled {
		g.store.Set(key, resp)
	}
	if g.tokens != nil {
		if err := g.tokens.Record(callCtx, cc.TenantID, out.TokensUsed); err != nil {
			slog.Warn("token usage not recorded", "tenant_id", cc.TenantID, "error", err)
		}
	}
	return resp, nil
}

func (g *Gateway) finish(req types.AIRequest, resp *types.AIResponse, status string, start time.Time) {
	labels := telemetry.RequestLabels{
		Type:       string(req.Type),
		Status:     status,
		DurationMs: float64(g.now().Sub(start).Milliseconds()),
	}
	if resp != nil {
		labels.Provider = resp.Provider
		if status == "ok" {
			labels.Tokens = resp.TokensUsed
		}
	}
	g.metrics.RecordRequest(labels)
}

// supportiveResponse answers a request with crisis guidance instead of model output.
func supportiveResponse(r crisis.Response, detected bool) *types.AIResponse {
	return &types.AIResponse{
		Content:         r.Message,
		Provider:        string(router.RouteLocal),
		CrisisDetected:  detected,
		CrisisResources: r.Resources,
		CrisisMessage:   r.Message,
	}
}

func attachCrisis(resp *types.AIResponse, res *crisis.Result) {
	if res == nil || !res.Detected {
		return
	}
	resp.CrisisDetected = true
	resp.CrisisResources = res.Response.Resources
	resp.CrisisMessage = res.Response.Message
}

func newAuditEntry(cc types.ContainmentContext, res *crisis.Result, parentNotified bool, now time.Time) audit.Entry {
	resources := make([]string, len(res.Response.Resources))
	for i, r := range res.Response.Resources {
		resources[i] = r.Name
	}
	return audit.Entry{
		AuditID:        res.AuditID,
		Timestamp:      now.UTC(),
		UserID:         cc.UserID,
		SessionID:      cc.SessionID,
		IsMinor:        cc.IsMinor,
		TenantID:       cc.TenantID,
		SchoolID:       cc.SchoolID,
		Severity:       string(res.Severity),
		Categories:     categoryNames(res.Categories),
		Confidence:     res.Confidence,
		ResourcesShown: resources,
		ParentNotified: parentNotified,
		ContentBlocked: res.Response.BlockContent,
		Escalated:      res.Response.Escalate,
	}
}

func categoryNames(cs []crisis.Category) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = string(c)
	}
	return out
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
