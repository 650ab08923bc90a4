package ratelimit

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/af-corp/containment-gateway/internal/auth"
	"github.com/af-corp/containment-gateway/internal/config"
	"github.com/af-corp/containment-gateway/internal/httputil"
	"github.com/af-corp/containment-gateway/internal/telemetry"
)

const (
	headerRateLimitRequests          = "X-RateLimit-Limit-Requests"
	headerRateLimitRemainingRequests = "X-RateLimit-Remaining-Requests"
	headerRateLimitReset             = "X-RateLimit-Reset-Requests"
	headerRetryAfter                 = "Retry-After"
)

// Middleware enforces the per-key request rate and the tenant's daily token quota.
func Middleware(limiter *Limiter, quota *TokenQuota, cfg func() config.RateLimitConfig, metrics *telemetry.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := w.Header().Get("X-Request-ID")

			authInfo, ok := auth.AuthFromContext(r.Context())
			if !ok || !cfg().Enabled {
				next.ServeHTTP(w, r)
				return
			}

			rpm := cfg().KeyRequestsPerMinute
			if authInfo.RPMLimit != nil {
				rpm = *authInfo.RPMLimit
			}

			result, _ := limiter.Check(r.Context(), "key:"+authInfo.KeyID, int64(rpm), time.Minute)

			w.Header().Set(headerRateLimitRequests, strconv.Itoa(rpm))
			w.Header().Set(headerRateLimitRemainingRequests, strconv.FormatInt(result.Remaining, 10))
			w.Header().Set(headerRateLimitReset, result.ResetAt.Format(time.RFC3339))

			if !result.Allowed {
				slog.Warn("rate limit exceeded",
					"request_id", reqID,
					"key_id", authInfo.KeyID,
					"tenant_id", authInfo.TenantID,
					"dimension", "key",
					"limit", rpm,
				)
				metrics.RecordRateLimitHit("key")
				w.Header().Set(headerRetryAfter, strconv.Itoa(int(result.RetryAfter.Seconds())))
				httputil.WriteRateLimitError(w, reqID,
					fmt.Sprintf("Rate limit exceeded: %d requests per minute. Retry after %s", rpm, result.ResetAt.Format(time.RFC3339)))
				return
			}

			if authInfo.DailyTokenLimit != nil {
				qr, _ := quota.Check(r.Context(), authInfo.TenantID, *authInfo.DailyTokenLimit)
				if !qr.Allowed {
					slog.Warn("daily token quota exceeded",
						"request_id", reqID,
						"key_id", authInfo.KeyID,
						"tenant_id", authInfo.TenantID,
						"used", qr.Used,
						"limit", qr.Limit,
					)
					metrics.RecordRateLimitHit("tokens")
					httputil.WriteQuotaExceededError(w, reqID,
						fmt.Sprintf("Daily token quota exceeded: used %d of %d", qr.Used, qr.Limit))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
