package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/af-corp/containment-gateway/internal/auth"
	"github.com/af-corp/containment-gateway/internal/config"
	"github.com/af-corp/containment-gateway/internal/crisis"
	"github.com/af-corp/containment-gateway/internal/httputil"
	"github.com/af-corp/containment-gateway/internal/ratelimit"
	"github.com/af-corp/containment-gateway/internal/router"
	"github.com/af-corp/containment-gateway/internal/telemetry"
	"github.com/af-corp/containment-gateway/internal/types"
)

const maxBodyBytes = 1 << 20

// Handler holds dependencies for the gateway HTTP handlers.
type Handler struct {
	gateway       *Gateway
	limiter       *ratelimit.Limiter
	healthTracker *router.HealthTracker
	cfg           func() config.RateLimitConfig
	metrics       *telemetry.Metrics
	version       string
}

func NewHandler(gw *Gateway, limiter *ratelimit.Limiter, healthTracker *router.HealthTracker, cfg func() config.RateLimitConfig, metrics *telemetry.Metrics, version string) *Handler {
	return &Handler{
		gateway:       gw,
		limiter:       limiter,
		healthTracker: healthTracker,
		cfg:           cfg,
		metrics:       metrics,
		version:       version,
	}
}

// aiRequestBody is the payload of POST /v1/ai/requests.
type aiRequestBody struct {
	Request     types.AIRequest          `json:"request"`
	Containment types.ContainmentContext `json:"containment"`
}

// AIRequest handles POST /v1/ai/requests
func (h *Handler) AIRequest(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	receivedAt := time.Now()

	authInfo, ok := auth.AuthFromContext(r.Context())
	if !ok {
		httputil.WriteAuthError(w, reqID, "Not authenticated")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		httputil.WriteBadRequestError(w, reqID, "Failed to read request body")
		return
	}
	defer r.Body.Close()

	var in aiRequestBody
	if err := json.Unmarshal(body, &in); err != nil {
		httputil.WriteBadRequestError(w, reqID, "Invalid JSON: "+err.Error())
		return
	}
	if msg := validate(in); msg != "" {
		httputil.WriteBadRequestError(w, reqID, msg)
		return
	}

	cc, err := scopeToKey(in.Containment, authInfo)
	if err != nil {
		slog.Warn("containment scope rejected",
			"request_id", reqID,
			"key_id", authInfo.KeyID,
			"tenant_id", authInfo.TenantID,
			"error", err,
		)
		httputil.WriteForbiddenError(w, reqID, err.Error())
		return
	}

	if rl := h.cfg(); rl.Enabled && rl.RequestsPerMinute > 0 {
		result, _ := h.limiter.CheckSession(r.Context(), cc.SessionID, rl.RequestsPerMinute)
		if !result.Allowed {
			slog.Warn("rate limit exceeded",
				"request_id", reqID,
				"session_id", cc.SessionID,
				"dimension", "session",
				"limit", rl.RequestsPerMinute,
			)
			h.metrics.RecordRateLimitHit("session")
			w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
			httputil.WriteRateLimitError(w, reqID, "Session rate limit exceeded")
			return
		}
	}

	resp, err := h.gateway.Request(r.Context(), in.Request, cc)
	if err != nil {
		if errors.Is(err, ErrClosed) {
			httputil.WriteServiceUnavailableError(w, reqID, "Gateway is shutting down")
			return
		}
		slog.Warn("ai request failed",
			"request_id", reqID,
			"session_id", cc.SessionID,
			"type", in.Request.Type,
			"error", err,
		)
		httputil.WriteGatewayError(w, reqID, err)
		return
	}

	slog.Info("ai request completed",
		"request_id", reqID,
		"session_id", cc.SessionID,
		"tenant_id", cc.TenantID,
		"type", in.Request.Type,
		"containment_level", cc.Level,
		"provider", resp.Provider,
		"cached", resp.Cached,
		"crisis_detected", resp.CrisisDetected,
		"tokens_used", resp.TokensUsed,
		"duration_ms", time.Since(receivedAt).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, resp)
}

func validate(in aiRequestBody) string {
	if _, ok := types.ParseRequestType(string(in.Request.Type)); !ok {
		return "request.type must be one of completion, chat, embedding, code_review, writing_check"
	}
	if in.Request.Prompt == "" {
		return "request.prompt is required"
	}
	if in.Containment.SessionID == "" {
		return "containment.session_id is required"
	}
	if _, ok := types.ParseContainmentLevel(string(in.Containment.Level)); !ok {
		return "containment.containment_level must be one of strict, standard, relaxed"
	}
	return ""
}

// scopeToKey binds the containment context to the caller's tenant and school.
// A key may fill in an empty scope but never act for another tenant.
func scopeToKey(cc types.ContainmentContext, info *auth.AuthInfo) (types.ContainmentContext, error) {
	switch {
	case cc.TenantID == "":
		cc.TenantID = info.TenantID
	case cc.TenantID != info.TenantID:
		return cc, errors.New("containment tenant does not match API key")
	}
	if info.SchoolID == "" {
		return cc, nil
	}
	switch {
	case cc.SchoolID == "":
		cc.SchoolID = info.SchoolID
	case cc.SchoolID != info.SchoolID:
		return cc, errors.New("containment school does not match API key")
	}
	return cc, nil
}

type resourcesResponse struct {
	Resources []crisis.Resource `json:"resources"`
	Formatted string            `json:"formatted"`
}

// CrisisResources handles GET /v1/crisis/resources
func (h *Handler) CrisisResources(w http.ResponseWriter, r *http.Request) {
	resources := crisis.Catalogue()
	httputil.WriteJSON(w, http.StatusOK, resourcesResponse{
		Resources: resources,
		Formatted: crisis.FormatResources(resources),
	})
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	providers := map[string]string{}
	if h.healthTracker != nil {
		for route, state := range h.healthTracker.States() {
			providers[string(route)] = state.String()
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"version":   h.version,
		"providers": providers,
	})
}
