package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iconidentify/tweetframe/internal/config"
	"github.com/iconidentify/tweetframe/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.CacheConfig {
	return config.CacheConfig{
		TTL:            10 * time.Minute,
		GraceTTL:       3*time.Minute + 20*time.Second,
		MaxEntries:     300,
		ResolveTimeout: 5 * time.Second,
	}
}

// fakeClock is a mutex-guarded clock; the refresh goroutine reads it
// concurrently with test advances.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func newTestCache(cfg config.CacheConfig) (*Cache, *fakeClock) {
	c := New(cfg, testLogger())
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c.now = clock.Now
	return c, clock
}

func tree(id string) *domain.PostTree {
	return &domain.PostTree{Post: domain.Post{ID: domain.PostID(id)}}
}

func resolveOnce(value *domain.PostTree, calls *int32) ResolveFunc {
	return func(ctx context.Context) (*domain.PostTree, error) {
		atomic.AddInt32(calls, 1)
		return value, nil
	}
}

func TestGetOrResolveCachesValue(t *testing.T) {
	c, _ := newTestCache(testConfig())
	var calls int32
	resolve := resolveOnce(tree("1"), &calls)

	for i := 0; i < 3; i++ {
		got, err := c.GetOrResolve(context.Background(), "1", resolve)
		if err != nil {
			t.Fatalf("GetOrResolve: %v", err)
		}
		if got.ID != "1" {
			t.Fatalf("ID = %q", got.ID)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("resolved %d times, want 1", n)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestGetOrResolveCoalescesConcurrentCallers(t *testing.T) {
	c, _ := newTestCache(testConfig())

	var calls int32
	release := make(chan struct{})
	resolve := func(ctx context.Context) (*domain.PostTree, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return tree("1"), nil
	}

	const workers = 16
	var wg sync.WaitGroup
	results := make([]*domain.PostTree, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrResolve(context.Background(), "1", resolve)
		}(i)
	}

	// Give every worker time to reach the shared handle before releasing.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("resolved %d times, want 1", n)
	}
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if results[i] != results[0] {
			t.Fatalf("worker %d received a different tree", i)
		}
	}
}

func TestGetOrResolveServesStaleAndRefreshesOnce(t *testing.T) {
	c, clock := newTestCache(testConfig())

	var calls int32
	release := make(chan struct{})
	resolve := func(ctx context.Context) (*domain.PostTree, error) {
		n := atomic.AddInt32(&calls, 1)
		if n > 1 {
			<-release
		}
		return tree(fmt.Sprintf("gen-%d", n)), nil
	}

	if _, err := c.GetOrResolve(context.Background(), "1", resolve); err != nil {
		t.Fatal(err)
	}

	// Expire the entry; the next reads serve stale and start one refresh.
	clock.Advance(11 * time.Minute)
	for i := 0; i < 5; i++ {
		got, err := c.GetOrResolve(context.Background(), "1", resolve)
		if err != nil {
			t.Fatal(err)
		}
		if got.ID != "gen-1" {
			t.Fatalf("stale read returned %q, want gen-1", got.ID)
		}
	}
	close(release)

	// Wait for the background refresh to land.
	deadline := time.After(2 * time.Second)
	for {
		if got, _ := c.GetOrResolve(context.Background(), "1", resolve); got.ID == "gen-2" {
			break
		}
		select {
		case <-deadline:
			t.Fatal("refresh never landed")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("resolved %d times, want 2 (initial + one refresh)", n)
	}
}

func TestGetOrResolveGraceTTLOnRefreshFailure(t *testing.T) {
	c, clock := newTestCache(testConfig())

	var calls int32
	resolve := func(ctx context.Context) (*domain.PostTree, error) {
		if atomic.AddInt32(&calls, 1) > 1 {
			return nil, errors.New("upstream down")
		}
		return tree("1"), nil
	}

	if _, err := c.GetOrResolve(context.Background(), "1", resolve); err != nil {
		t.Fatal(err)
	}

	clock.Advance(11 * time.Minute)
	got, err := c.GetOrResolve(context.Background(), "1", resolve)
	if err != nil || got.ID != "1" {
		t.Fatalf("stale read: %v %v", got, err)
	}

	// Wait for the failed refresh to re-arm the entry under the grace TTL.
	waitFor(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		e := c.entries["1"]
		return e != nil && e.pending == nil
	})

	c.mu.Lock()
	e := c.entries["1"]
	wantExpiry := clock.Now().Add(c.graceTTL)
	if !e.expiresAt.Equal(wantExpiry) {
		t.Errorf("expiresAt = %v, want grace expiry %v", e.expiresAt, wantExpiry)
	}
	c.mu.Unlock()

	// The stale value keeps being served, no error surfaces.
	got, err = c.GetOrResolve(context.Background(), "1", resolve)
	if err != nil || got.ID != "1" {
		t.Fatalf("grace read: %v %v", got, err)
	}
}

func TestGetOrResolveDeletesNeverPopulatedEntry(t *testing.T) {
	c, _ := newTestCache(testConfig())

	resolve := func(ctx context.Context) (*domain.PostTree, error) {
		return nil, errors.New("upstream down")
	}
	_, err := c.GetOrResolve(context.Background(), "1", resolve)
	if err == nil {
		t.Fatal("want error from failed first resolution")
	}

	waitFor(t, func() bool { return c.Len() == 0 })
}

func TestGetOrResolveAbandonedWaiterDoesNotCancelResolution(t *testing.T) {
	c, _ := newTestCache(testConfig())

	release := make(chan struct{})
	resolve := func(ctx context.Context) (*domain.PostTree, error) {
		<-release
		return tree("1"), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := c.GetOrResolve(ctx, "1", resolve)
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("abandoned waiter err = %v, want context.Canceled", err)
	}

	// The resolution completes and the value lands despite the cancellation.
	close(release)
	waitFor(t, func() bool {
		got, err := c.GetOrResolve(context.Background(), "1", func(ctx context.Context) (*domain.PostTree, error) {
			return nil, errors.New("should not re-resolve")
		})
		return err == nil && got != nil && got.ID == "1"
	})
}

func TestEvictionOldestFirst(t *testing.T) {
	cfg := testConfig()
	cfg.MaxEntries = 3
	c, _ := newTestCache(cfg)

	for i := 1; i <= 4; i++ {
		key := fmt.Sprintf("%d", i)
		if _, err := c.GetOrResolve(context.Background(), key, func(ctx context.Context) (*domain.PostTree, error) {
			return tree(key), nil
		}); err != nil {
			t.Fatal(err)
		}
	}

	waitFor(t, func() bool { return c.Len() == 3 })

	c.mu.Lock()
	_, hasOldest := c.entries["1"]
	_, hasNewest := c.entries["4"]
	c.mu.Unlock()
	if hasOldest {
		t.Error("oldest entry survived eviction")
	}
	if !hasNewest {
		t.Error("newest entry was evicted")
	}
}

func TestTouchProtectsRecentlyReadEntries(t *testing.T) {
	cfg := testConfig()
	cfg.MaxEntries = 2
	c, _ := newTestCache(cfg)

	put := func(key string) {
		t.Helper()
		if _, err := c.GetOrResolve(context.Background(), key, func(ctx context.Context) (*domain.PostTree, error) {
			return tree(key), nil
		}); err != nil {
			t.Fatal(err)
		}
	}

	put("1")
	put("2")
	put("1") // cache hit, moves "1" to the back
	put("3") // evicts "2", the oldest untouched entry

	waitFor(t, func() bool { return c.Len() == 2 })

	c.mu.Lock()
	_, hasTouched := c.entries["1"]
	_, hasEvicted := c.entries["2"]
	c.mu.Unlock()
	if !hasTouched {
		t.Error("touched entry was evicted")
	}
	if hasEvicted {
		t.Error("oldest untouched entry survived")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatal("condition never became true")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
