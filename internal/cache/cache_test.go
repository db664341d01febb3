package cache

import (
	"testing"

	"github.com/byteowlz/factscan/internal/classifier"
)

func result(label string) *classifier.Result {
	return &classifier.Result{Classification: label, Confidence: 0.5}
}

func TestResultCache_RoundTrip(t *testing.T) {
	c := New(2)
	r := result("verified")
	c.Set("fp1", r)

	got, ok := c.Get("fp1")
	if !ok {
		t.Fatal("expected hit")
	}
	if got != r {
		t.Error("expected the stored result back")
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for unknown fingerprint")
	}
}

func TestResultCache_DefaultCapacity(t *testing.T) {
	c := New(0)
	if c.Stats().Capacity != DefaultCapacity {
		t.Errorf("expected capacity %d, got %d", DefaultCapacity, c.Stats().Capacity)
	}
}

func TestResultCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2)
	c.Set("a", result("a"))
	c.Set("b", result("b"))

	// Touch a so b becomes the eviction candidate.
	c.Get("a")
	c.Set("c", result("c"))

	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to survive")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c to be present")
	}
	if c.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", c.Len())
	}
	if c.Stats().Evictions != 1 {
		t.Errorf("expected 1 eviction, got %d", c.Stats().Evictions)
	}
}

func TestResultCache_IgnoresNil(t *testing.T) {
	c := New(2)
	c.Set("a", nil)
	if c.Len() != 0 {
		t.Error("nil results should not be cached")
	}
}

func TestResultCache_Stats(t *testing.T) {
	c := New(3)
	c.Set("a", result("a"))
	c.Get("a")
	c.Get("a")
	c.Get("b")

	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 || s.Entries != 1 {
		t.Errorf("unexpected stats %+v", s)
	}

	c.Clear()
	s = c.Stats()
	if s.Entries != 0 || s.Hits != 0 || s.Misses != 0 {
		t.Errorf("expected reset stats, got %+v", s)
	}
}
