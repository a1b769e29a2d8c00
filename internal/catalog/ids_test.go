package catalog

import (
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestCounterIsMonotonic(t *testing.T) {
	c := NewCounter()
	for i, want := range []string{"1", "2", "3"} {
		if got := c.NextID(); got != want {
			t.Errorf("NextID() call %d = %q, want %q", i, got, want)
		}
	}
}

func TestCounterConcurrentUnique(t *testing.T) {
	c := NewCounter()
	var (
		mu   sync.Mutex
		seen = map[string]bool{}
		wg   sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := c.NextID()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(seen) != 800 {
		t.Errorf("unique ids = %d, want 800", len(seen))
	}
}

func TestUUIDGenerator(t *testing.T) {
	g := NewUUIDGenerator()
	a, b := g.NextID(), g.NextID()
	if a == b {
		t.Fatalf("NextID() repeated %q", a)
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("NextID() = %q is not a UUID: %v", a, err)
	}
}

func TestUUIDGeneratorInjectedSource(t *testing.T) {
	fixed := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	g := &UUIDGenerator{newUUID: func() uuid.UUID { return fixed }}
	if got := g.NextID(); got != fixed.String() {
		t.Errorf("NextID() = %q, want %q", got, fixed.String())
	}
}
