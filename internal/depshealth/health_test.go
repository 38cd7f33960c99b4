package depshealth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestScoreOfFreshWellDocumentedPackage(t *testing.T) {
	now := time.Now()
	info := &packageInfo{LastUpdated: now.Add(-time.Hour), Popularity: 80, HasDocs: true, HasExample: true}
	if got := scoreOf(info, now); got != 100 {
		t.Fatalf("scoreOf = %d, want 100", got)
	}
}

func TestScoreOfStalePackage(t *testing.T) {
	now := time.Now()
	info := &packageInfo{LastUpdated: now.Add(-400 * 24 * time.Hour), Popularity: 80, HasDocs: true, HasExample: true}
	// not maintained (-30) and age > 365d (-20) stack.
	if got := scoreOf(info, now); got != 50 {
		t.Fatalf("scoreOf = %d, want 50", got)
	}
}

func TestScoreOfUnpopularUndocumentedPackage(t *testing.T) {
	now := time.Now()
	info := &packageInfo{LastUpdated: now.Add(-time.Hour), Popularity: 3, HasDocs: false, HasExample: false}
	// -15 (popularity<10) -10 (no docs) -5 (no example) = 70
	if got := scoreOf(info, now); got != 70 {
		t.Fatalf("scoreOf = %d, want 70", got)
	}
}

func TestScoreOfClampsToZero(t *testing.T) {
	now := time.Now()
	info := &packageInfo{LastUpdated: now.Add(-1000 * 24 * time.Hour), Popularity: 0, HasDocs: false, HasExample: false}
	if got := scoreOf(info, now); got < 0 {
		t.Fatalf("scoreOf = %d, must not go below 0", got)
	}
}

func TestCheckAllUsesUpstreamAndCaches(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_ = json.NewEncoder(w).Encode(packageInfo{
			LastUpdated: time.Now(),
			Popularity:  90,
			License:     "MIT",
			HasDocs:     true,
			HasExample:  true,
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	results, err := c.CheckAll(context.Background(), []string{"http", "http"})
	if err != nil {
		t.Fatalf("CheckAll: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	for _, r := range results {
		if r.Name != "http" || r.License != "MIT" || !r.IsMaintained {
			t.Fatalf("unexpected result: %+v", r)
		}
	}
	if hits != 1 {
		t.Fatalf("upstream hit %d times, want 1 (second lookup should be cached)", hits)
	}
}

func TestCheckAllFallsBackOnUnreachableUpstream(t *testing.T) {
	c := New("http://127.0.0.1:0")
	results, err := c.CheckAll(context.Background(), []string{"whatever"})
	if err != nil {
		t.Fatalf("CheckAll: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].HealthScore != 50 || results[0].IsMaintained {
		t.Fatalf("unexpected fallback result: %+v", results[0])
	}
}
