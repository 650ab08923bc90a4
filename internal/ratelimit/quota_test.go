package ratelimit

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestTokenQuota_NilRedis_FailOpen(t *testing.T) {
	q := NewTokenQuota(nil)
	result, err := q.Check(context.Background(), "tenant-1", 10000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Allowed {
		t.Error("expected allowed when Redis is nil")
	}
	if result.Limit != 10000 {
		t.Errorf("expected limit=10000, got %d", result.Limit)
	}
	if err := q.Record(context.Background(), "tenant-1", 500); err != nil {
		t.Fatalf("Record should be a no-op with nil Redis: %v", err)
	}
}

func TestTokenQuota_NilReceiver(t *testing.T) {
	var q *TokenQuota
	if r, _ := q.Check(context.Background(), "t", 1); !r.Allowed {
		t.Error("nil quota must allow")
	}
	if err := q.Record(context.Background(), "t", 1); err != nil {
		t.Error(err)
	}
}

func TestTokenQuota_RedisError(t *testing.T) {
	q := NewTokenQuota(unreachableRedis(t))
	result, err := q.Check(context.Background(), "tenant-1", 10)
	if err != nil || !result.Allowed {
		t.Errorf("expected fail-open check, got %+v %v", result, err)
	}
	if err := q.Record(context.Background(), "tenant-1", 3); err == nil {
		t.Error("expected record error to surface")
	}
	if err := q.Record(context.Background(), "", 3); err != nil {
		t.Errorf("records without tenant are skipped, got %v", err)
	}
}

func TestTokenQuota_KeyRollsDaily(t *testing.T) {
	q := NewTokenQuota(nil)
	q.now = func() time.Time { return time.Date(2026, 3, 9, 23, 59, 0, 0, time.UTC) }
	first := q.key("t1")
	q.now = func() time.Time { return time.Date(2026, 3, 10, 0, 1, 0, 0, time.UTC) }
	second := q.key("t1")

	if first == second {
		t.Error("expected a new bucket after midnight UTC")
	}
	if !strings.HasSuffix(second, ":t1:2026-03-10") {
		t.Errorf("unexpected key %q", second)
	}
}
