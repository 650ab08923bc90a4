package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const throttleKeyPrefix = "containment:notify:"

// Throttle suppresses repeat notifications inside a window.
type Throttle struct {
	rdb *redis.Client
}

// NewThrottle creates a throttle. If rdb is nil every notification is sent.
func NewThrottle(rdb *redis.Client) *Throttle {
	return &Throttle{rdb: rdb}
}

// Allow reports whether key may notify now and claims the window if so.
// Redis errors let the notification through.
func (t *Throttle) Allow(ctx context.Context, key string, window time.Duration) bool {
	if t == nil || t.rdb == nil || window <= 0 {
		return true
	}
	ok, err := t.rdb.SetNX(ctx, throttleKeyPrefix+key, time.Now().Unix(), window).Result()
	if err != nil {
		slog.Warn("notification throttle unavailable", "error", err)
		return true
	}
	return ok
}

// Release gives the window back after a notification that was not delivered.
func (t *Throttle) Release(ctx context.Context, key string) {
	if t == nil || t.rdb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := t.rdb.Del(ctx, throttleKeyPrefix+key).Err(); err != nil {
		slog.Warn("notification throttle release failed", "error", err)
	}
}
