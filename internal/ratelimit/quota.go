package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// QuotaResult is the outcome of a daily token quota check.
type QuotaResult struct {
	Allowed bool
	Used    int64
	Limit   int64
}

// TokenQuota tracks provider tokens consumed per tenant per UTC day.
type TokenQuota struct {
	rdb *redis.Client
	now func() time.Time
}

// NewTokenQuota creates a quota tracker. If rdb is nil, all checks pass.
func NewTokenQuota(rdb *redis.Client) *TokenQuota {
	return &TokenQuota{rdb: rdb, now: time.Now}
}

func (q *TokenQuota) key(tenantID string) string {
	day := q.now().UTC().Format("2006-01-02")
	return fmt.Sprintf("containment:tokens:daily:%s:%s", tenantID, day)
}

// Check reports whether the tenant is still under limit for today.
func (q *TokenQuota) Check(ctx context.Context, tenantID string, limit int64) (QuotaResult, error) {
	if q == nil || q.rdb == nil {
		return QuotaResult{Allowed: true, Limit: limit}, nil
	}

	used, err := q.rdb.Get(ctx, q.key(tenantID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		slog.Warn("token quota check failed, allowing request", "tenant_id", tenantID, "error", err)
		return QuotaResult{Allowed: true, Limit: limit}, nil
	}

	return QuotaResult{Allowed: used < limit, Used: used, Limit: limit}, nil
}

// Record adds tokens to the tenant's counter for today.
func (q *TokenQuota) Record(ctx context.Context, tenantID string, tokens int) error {
	if q == nil || q.rdb == nil || tokens <= 0 || tenantID == "" {
		return nil
	}

	now := q.now().UTC()
	endOfDay := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)

	pipe := q.rdb.Pipeline()
	pipe.IncrBy(ctx, q.key(tenantID), int64(tokens))
	pipe.Expire(ctx, q.key(tenantID), endOfDay.Sub(now)+time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record tokens: %w", err)
	}
	return nil
}
