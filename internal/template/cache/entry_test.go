package cache

import (
	"testing"
	"time"

	"github.com/flyctl-dev/flymcp/internal/template"
)

func TestNewEntryVerifies(t *testing.T) {
	tpl := &template.Descriptor{Name: "counter_app", Version: "1.0.0"}
	now := time.Now()
	entry, err := newEntry("counter_app", "1.0.0", tpl, time.Hour, now)
	if err != nil {
		t.Fatalf("newEntry: %v", err)
	}
	if !entry.verify() {
		t.Fatal("freshly built entry should verify")
	}
	if !entry.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("ExpiresAt = %v, want %v", entry.ExpiresAt, now.Add(time.Hour))
	}
}

func TestEntryVerifyDetectsTamperedTemplate(t *testing.T) {
	tpl := &template.Descriptor{Name: "counter_app", Version: "1.0.0"}
	entry, err := newEntry("counter_app", "1.0.0", tpl, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("newEntry: %v", err)
	}
	entry.Template.Version = "2.0.0" // mutate after the checksum was taken
	if entry.verify() {
		t.Fatal("entry should not verify after its template was mutated")
	}
}

func TestEntryVerifyDetectsVersionMismatch(t *testing.T) {
	tpl := &template.Descriptor{Name: "counter_app", Version: "1.0.0"}
	entry, err := newEntry("counter_app", "1.0.0", tpl, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("newEntry: %v", err)
	}
	entry.CacheVersion = entryCacheVersion + 1
	if entry.verify() {
		t.Fatal("entry should not verify with a mismatched cache_version")
	}
}

func TestChecksumOfIsDeterministic(t *testing.T) {
	tpl := &template.Descriptor{Name: "a", Version: "1.0.0"}
	first, err := checksumOf(tpl)
	if err != nil {
		t.Fatalf("checksumOf: %v", err)
	}
	second, err := checksumOf(tpl)
	if err != nil {
		t.Fatalf("checksumOf: %v", err)
	}
	if first != second {
		t.Fatalf("checksumOf is not deterministic: %q != %q", first, second)
	}
}
