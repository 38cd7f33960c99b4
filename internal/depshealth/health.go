// Package depshealth implements spec §4.6: bounded-parallelism package
// health lookups against a pub.dev-shaped index, with retry/backoff and a
// 24h per-package cache.
package depshealth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/semaphore"
)

// Result is one package's health record (spec §4.6).
type Result struct {
	Name           string   `json:"name"`
	HealthScore    int      `json:"health_score"`
	Vulnerabilities []string `json:"vulnerabilities"`
	License        string   `json:"license"`
	IsMaintained   bool     `json:"is_maintained"`
	Popularity     int      `json:"popularity"`
}

// packageInfo is the subset of the upstream index response this package
// needs to compute a health score.
type packageInfo struct {
	LastUpdated    time.Time `json:"last_updated"`
	Popularity     int       `json:"popularity"`
	License        string    `json:"license"`
	HasDocs        bool      `json:"has_documentation"`
	HasExample     bool      `json:"has_example"`
	Vulnerabilities []string `json:"vulnerabilities"`
}

const (
	defaultConcurrency    = 10
	defaultRequestTimeout = 10 * time.Second
	cacheTTL              = 24 * time.Hour
	maxRetries            = 3
)

type cacheEntry struct {
	result    Result
	expiresAt time.Time
}

// Checker looks up package health with bounded concurrency, retry, and a
// TTL cache (spec §4.6).
type Checker struct {
	baseURL string
	client  *retryablehttp.Client
	sem     *semaphore.Weighted

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// New builds a Checker against baseURL (e.g. "https://pub.dev").
func New(baseURL string) *Checker {
	rc := retryablehttp.NewClient()
	rc.RetryMax = maxRetries
	rc.Logger = nil
	rc.HTTPClient.Timeout = defaultRequestTimeout
	rc.CheckRetry = checkRetry
	rc.Backoff = exponentialBackoffWithJitter

	return &Checker{
		baseURL: baseURL,
		client:  rc,
		sem:     semaphore.NewWeighted(defaultConcurrency),
		cache:   make(map[string]cacheEntry),
	}
}

// checkRetry retries only on timeout, connection reset, 5xx, and 429
// (spec §4.6), never on other 4xx which indicate a genuinely missing
// package.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return true, nil
		}
		return errors.Is(err, syscall.ECONNRESET), nil
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return true, nil
	}
	return false, nil
}

// exponentialBackoffWithJitter adapts cenkalti/backoff/v4's
// ExponentialBackOff into retryablehttp's per-attempt Backoff hook
// (initial 1s, multiplier 2, cap 30s per spec §4.6).
func exponentialBackoffWithJitter(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 1 * time.Second
	eb.Multiplier = 2
	eb.MaxInterval = 30 * time.Second
	eb.MaxElapsedTime = 0

	var d time.Duration
	for i := 0; i <= attemptNum; i++ {
		d = eb.NextBackOff()
	}
	if d > 30*time.Second || d == backoff.Stop {
		d = 30 * time.Second
	}
	return d
}

// CheckAll fetches health for every name in names, bounded by the
// checker's concurrency limit. Unreachable packages never fail the batch
// (spec §4.6's fallback record).
func (c *Checker) CheckAll(ctx context.Context, names []string) ([]Result, error) {
	results := make([]Result, len(names))
	var wg sync.WaitGroup

	for i, name := range names {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			defer c.sem.Release(1)
			results[i] = c.check(ctx, name)
		}(i, name)
	}
	wg.Wait()
	return results, nil
}

func (c *Checker) check(ctx context.Context, name string) Result {
	if cached, ok := c.cached(name); ok {
		return cached
	}

	info, err := c.fetch(ctx, name)
	if err != nil {
		return Result{Name: name, HealthScore: 50, IsMaintained: false, Popularity: 0, License: "Unknown"}
	}

	result := Result{
		Name:            name,
		HealthScore:     scoreOf(info, time.Now()),
		Vulnerabilities: info.Vulnerabilities,
		License:         info.License,
		IsMaintained:    time.Since(info.LastUpdated) <= 365*24*time.Hour,
		Popularity:      info.Popularity,
	}
	c.store(name, result)
	return result
}

func (c *Checker) cached(name string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.cache[name]
	if !ok || time.Now().After(e.expiresAt) {
		return Result{}, false
	}
	return e.result, true
}

func (c *Checker) store(name string, r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[name] = cacheEntry{result: r, expiresAt: time.Now().Add(cacheTTL)}
}

func (c *Checker) fetch(ctx context.Context, name string) (*packageInfo, error) {
	url := fmt.Sprintf("%s/api/packages/%s", c.baseURL, name)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for package %s", resp.StatusCode, name)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var info packageInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// scoreOf is the deterministic health heuristic from spec §4.6, documented
// there for the test suite.
func scoreOf(info *packageInfo, now time.Time) int {
	score := 100
	age := now.Sub(info.LastUpdated)

	maintained := age <= 365*24*time.Hour
	if !maintained {
		score -= 30
	}
	switch {
	case age > 365*24*time.Hour:
		score -= 20
	case age > 180*24*time.Hour:
		score -= 10
	}

	switch {
	case info.Popularity < 10:
		score -= 15
	case info.Popularity < 50:
		score -= 5
	}

	if !info.HasDocs {
		score -= 10
	}
	if !info.HasExample {
		score -= 5
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}
