package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flyctl-dev/flymcp/internal/mcperr"
	"github.com/flyctl-dev/flymcp/internal/template"
)

func newTestCache(t *testing.T, opts Options) *Cache {
	t.Helper()
	opts.Root = t.TempDir()
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestAcquireOnlineFetchesAndCaches(t *testing.T) {
	calls := 0
	c := newTestCache(t, Options{
		DefaultTTL: time.Hour,
		Fetch: func(ctx context.Context, name string) (*template.Descriptor, error) {
			calls++
			return &template.Descriptor{Name: name, Version: "1.0.0"}, nil
		},
	})

	result, err := c.Acquire(context.Background(), "counter_app", AcquireOptions{})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if result.Stale {
		t.Fatal("freshly fetched result should not be stale")
	}
	if result.Descriptor.Version != "1.0.0" {
		t.Fatalf("Version = %q, want 1.0.0", result.Descriptor.Version)
	}
	if calls != 1 {
		t.Fatalf("fetch called %d times, want 1", calls)
	}
}

func TestAcquireExplicitVersionHitsCacheWithoutFetch(t *testing.T) {
	calls := 0
	c := newTestCache(t, Options{
		DefaultTTL: time.Hour,
		Fetch: func(ctx context.Context, name string) (*template.Descriptor, error) {
			calls++
			return &template.Descriptor{Name: name, Version: "1.0.0"}, nil
		},
	})
	ctx := context.Background()

	if _, err := c.Acquire(ctx, "counter_app", AcquireOptions{}); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if _, err := c.Acquire(ctx, "counter_app", AcquireOptions{Version: "1.0.0"}); err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if calls != 1 {
		t.Fatalf("fetch called %d times, want 1 (second call should hit cache)", calls)
	}
}

func TestAcquireFallsBackToStaleOnFetchError(t *testing.T) {
	fail := false
	c := newTestCache(t, Options{
		DefaultTTL: time.Hour,
		Fetch: func(ctx context.Context, name string) (*template.Descriptor, error) {
			if fail {
				return nil, errors.New("upstream unreachable")
			}
			return &template.Descriptor{Name: name, Version: "1.0.0"}, nil
		},
	})
	ctx := context.Background()

	if _, err := c.Acquire(ctx, "counter_app", AcquireOptions{}); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}

	fail = true
	result, err := c.Acquire(ctx, "counter_app", AcquireOptions{})
	if err != nil {
		t.Fatalf("Acquire with fetch failure: %v", err)
	}
	if !result.Stale {
		t.Fatal("result should be marked stale when served from cache after a fetch error")
	}
}

func TestAcquireNoCacheAndFetchFailsIsNetworkFatal(t *testing.T) {
	c := newTestCache(t, Options{
		DefaultTTL: time.Hour,
		Fetch: func(ctx context.Context, name string) (*template.Descriptor, error) {
			return nil, errors.New("dns failure")
		},
	})

	_, err := c.Acquire(context.Background(), "counter_app", AcquireOptions{})
	if err == nil {
		t.Fatal("expected an error")
	}
	rich, ok := mcperr.As(err)
	if !ok || rich.Code != mcperr.CodeNetworkFatal {
		t.Fatalf("err = %v, want a NETWORK_FATAL *mcperr.Error", err)
	}
}

func TestAcquireOfflineServesCache(t *testing.T) {
	c := newTestCache(t, Options{
		DefaultTTL: time.Hour,
		Fetch: func(ctx context.Context, name string) (*template.Descriptor, error) {
			return &template.Descriptor{Name: name, Version: "1.0.0"}, nil
		},
	})
	ctx := context.Background()
	if _, err := c.Acquire(ctx, "counter_app", AcquireOptions{}); err != nil {
		t.Fatalf("priming Acquire: %v", err)
	}

	c.offline = true
	result, err := c.Acquire(ctx, "counter_app", AcquireOptions{})
	if err != nil {
		t.Fatalf("offline Acquire: %v", err)
	}
	if result.Descriptor.Version != "1.0.0" {
		t.Fatalf("Version = %q, want 1.0.0", result.Descriptor.Version)
	}
}

func TestAcquireOfflineNoCacheIsOfflineUnavailable(t *testing.T) {
	c := newTestCache(t, Options{DefaultTTL: time.Hour, Offline: true})

	_, err := c.Acquire(context.Background(), "counter_app", AcquireOptions{})
	if err == nil {
		t.Fatal("expected an error")
	}
	rich, ok := mcperr.As(err)
	if !ok || rich.Code != mcperr.CodeOfflineUnavailable {
		t.Fatalf("err = %v, want an OFFLINE_UNAVAILABLE *mcperr.Error", err)
	}
}

func TestCleanupRemovesExpiredEntries(t *testing.T) {
	c := newTestCache(t, Options{
		DefaultTTL: time.Millisecond,
		Fetch: func(ctx context.Context, name string) (*template.Descriptor, error) {
			return &template.Descriptor{Name: name, Version: "1.0.0"}, nil
		},
	})
	if _, err := c.Acquire(context.Background(), "counter_app", AcquireOptions{}); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if err := c.Cleanup(0); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	c2, err := New(Options{Root: c.root, DefaultTTL: time.Hour, Offline: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, status := c2.lookup("counter_app", "1.0.0"); status != Miss {
		t.Fatalf("lookup status = %v, want miss: expired entry should have been removed by Cleanup", status)
	}
}
