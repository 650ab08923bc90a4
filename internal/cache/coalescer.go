package cache

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/af-corp/containment-gateway/internal/types"
)

// Coalescer allows at most one outstanding call per key. Callers that arrive
// while a call is running wait for its result.
type Coalescer struct {
	group singleflight.Group
}

func NewCoalescer() *Coalescer {
	return &Coalescer{}
}

// Do runs fn for key unless a call for key is already running. shared reports
// whether the result was delivered to more than one caller. The key is released
// as soon as fn returns, whatever the outcome. A caller whose ctx ends stops
// waiting but does not cancel fn.
func (c *Coalescer) Do(ctx context.Context, key string, fn func() (*types.AIResponse, error)) (resp *types.AIResponse, shared bool, err error) {
	ch := c.group.DoChan(key, func() (any, error) {
		return fn()
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Shared, r.Err
		}
		v, _ := r.Val.(*types.AIResponse)
		if v == nil {
			return nil, r.Shared, nil
		}
		// Each caller gets its own copy.
		out := *v
		return &out, r.Shared, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}
