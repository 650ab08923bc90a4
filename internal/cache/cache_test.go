package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/af-corp/containment-gateway/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(ttl time.Duration, threshold int) (*Store, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	return NewStoreWithClock(ttl, threshold, clock.Now), clock
}

func TestKey(t *testing.T) {
	a := Key("local", types.TypeChat, "hello", "ctx")
	if a != Key("local", types.TypeChat, "hello", "ctx") {
		t.Error("key must be stable")
	}
	if len(a) != 64 {
		t.Errorf("expected hex sha256, got %q", a)
	}
	distinct := []string{
		Key("openai", types.TypeChat, "hello", "ctx"),
		Key("local", types.TypeCompletion, "hello", "ctx"),
		Key("local", types.TypeChat, "hello", ""),
		Key("local", types.TypeChat, "hell", "octx"),
		Key("local", types.TypeChat, "", "helloctx"),
	}
	for _, k := range distinct {
		if k == a {
			t.Errorf("unexpected collision for %q", k)
		}
	}
}

func TestStore_GetSet(t *testing.T) {
	s, clock := newTestStore(time.Minute, 0)
	if _, ok := s.Get("k"); ok {
		t.Fatal("empty store returned a hit")
	}

	s.Set("k", &types.AIResponse{Content: "answer", TokensUsed: 7, Provider: "local"})
	got, ok := s.Get("k")
	if !ok || got.Content != "answer" || got.TokensUsed != 7 {
		t.Fatalf("Get = %+v, %v", got, ok)
	}

	got.Content = "mutated"
	again, _ := s.Get("k")
	if again.Content != "answer" {
		t.Error("callers must not be able to mutate the cached entry")
	}

	clock.Advance(59 * time.Second)
	if _, ok := s.Get("k"); !ok {
		t.Fatal("entry expired early")
	}
	clock.Advance(time.Second)
	if _, ok := s.Get("k"); ok {
		t.Fatal("entry visible at expiry")
	}
	if s.Len() != 0 {
		t.Errorf("expired entry not evicted on lookup, len=%d", s.Len())
	}
}

func TestStore_SweepOnThreshold(t *testing.T) {
	s, clock := newTestStore(time.Minute, 3)
	for _, k := range []string{"a", "b", "c"} {
		s.Set(k, &types.AIResponse{Content: k})
	}
	clock.Advance(2 * time.Minute)
	s.Set("d", &types.AIResponse{Content: "d"})

	if n := s.Len(); n != 1 {
		t.Errorf("expected sweep to leave 1 entry, got %d", n)
	}
	if _, ok := s.Get("d"); !ok {
		t.Error("fresh entry swept")
	}
}

func TestStore_SweepBelowThreshold(t *testing.T) {
	s, clock := newTestStore(time.Minute, 10)
	s.Set("a", &types.AIResponse{})
	clock.Advance(2 * time.Minute)
	s.Set("b", &types.AIResponse{})
	if n := s.Len(); n != 2 {
		t.Errorf("no sweep expected below threshold, len=%d", n)
	}
	if removed := s.Sweep(); removed != 1 {
		t.Errorf("Sweep removed %d, want 1", removed)
	}
}

func TestCoalescer_SingleCallForConcurrentCallers(t *testing.T) {
	c := NewCoalescer()
	var calls atomic.Int32
	release := make(chan struct{})

	fn := func() (*types.AIResponse, error) {
		calls.Add(1)
		<-release
		return &types.AIResponse{Content: "shared", TokensUsed: 3}, nil
	}

	const n = 8
	var started, done sync.WaitGroup
	results := make([]*types.AIResponse, n)
	errs := make([]error, n)
	for i := range n {
		started.Add(1)
		done.Add(1)
		go func() {
			defer done.Done()
			started.Done()
			results[i], _, errs[i] = c.Do(context.Background(), "key", fn)
		}()
	}
	started.Wait()
	time.Sleep(50 * time.Millisecond)
	close(release)
	done.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("fn called %d times, want 1", got)
	}
	for i := range n {
		if errs[i] != nil || results[i] == nil || results[i].Content != "shared" {
			t.Errorf("caller %d: %+v, %v", i, results[i], errs[i])
		}
	}
}

func TestCoalescer_DistinctKeysRunInParallel(t *testing.T) {
	c := NewCoalescer()
	var calls atomic.Int32
	var wg sync.WaitGroup
	for _, k := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Do(context.Background(), k, func() (*types.AIResponse, error) {
				calls.Add(1)
				return &types.AIResponse{Content: k}, nil
			})
		}()
	}
	wg.Wait()
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestCoalescer_FailureReleasesKey(t *testing.T) {
	c := NewCoalescer()
	boom := errors.New("provider down")

	_, _, err := c.Do(context.Background(), "k", func() (*types.AIResponse, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected provider error, got %v", err)
	}

	resp, _, err := c.Do(context.Background(), "k", func() (*types.AIResponse, error) {
		return &types.AIResponse{Content: "recovered"}, nil
	})
	if err != nil || resp.Content != "recovered" {
		t.Fatalf("second call = %+v, %v", resp, err)
	}
}

func TestCoalescer_WaiterContextEnds(t *testing.T) {
	c := NewCoalescer()
	release := make(chan struct{})
	leaderDone := make(chan struct{})

	go func() {
		defer close(leaderDone)
		c.Do(context.Background(), "k", func() (*types.AIResponse, error) {
			<-release
			return &types.AIResponse{Content: "late"}, nil
		})
	}()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, _, err := c.Do(ctx, "k", func() (*types.AIResponse, error) {
		t.Error("waiter must not start its own call")
		return nil, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}

	close(release)
	<-leaderDone
}
