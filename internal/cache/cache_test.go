package cache

import (
	"errors"
	"fmt"
	"testing"
)

func TestGetSet(t *testing.T) {
	c := New[string, int](0)
	if _, ok := c.Get("missing"); ok {
		t.Error("empty cache returned a value")
	}
	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v", v, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[string, int](2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // refresh a, making b the eviction candidate
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry survived eviction")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("recently touched entry was evicted")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want soft limit 2", c.Len())
	}
}

func TestOnEvictReleasesValues(t *testing.T) {
	var released []int
	c := New[string, int](2)
	c.SetOnEvict(func(v int) { released = append(released, v) })

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3) // evicts a
	if len(released) != 1 || released[0] != 1 {
		t.Fatalf("eviction released %v, want [1]", released)
	}

	// Overwriting a key releases the replaced value.
	c.Set("b", 20)
	if len(released) != 2 || released[1] != 2 {
		t.Fatalf("overwrite released %v, want [1 2]", released)
	}

	if !c.Delete("c") {
		t.Fatal("Delete(c) reported missing")
	}
	if released[len(released)-1] != 3 {
		t.Errorf("Delete released %v", released)
	}

	c.Clear()
	if len(released) != 4 {
		t.Errorf("Clear released %d values total, want 4", len(released))
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear", c.Len())
	}
}

func TestGetOrCreate(t *testing.T) {
	c := New[string, int](0)
	calls := 0
	create := func() (int, error) {
		calls++
		return 7, nil
	}
	for i := 0; i < 3; i++ {
		v, err := c.GetOrCreate("k", create)
		if err != nil || v != 7 {
			t.Fatalf("GetOrCreate = %d, %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("create ran %d times, want 1", calls)
	}
}

func TestGetOrCreateErrorStoresNothing(t *testing.T) {
	c := New[string, int](0)
	boom := errors.New("boom")
	if _, err := c.GetOrCreate("k", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("got %v, want creation error", err)
	}
	if c.Len() != 0 {
		t.Errorf("failed creation left %d entries", c.Len())
	}
}

func TestUnlimitedCacheNeverEvicts(t *testing.T) {
	c := New[string, int](0)
	c.SetOnEvict(func(int) { t.Error("unlimited cache evicted") })
	for i := 0; i < 100; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	if c.Len() != 100 {
		t.Errorf("Len() = %d, want 100", c.Len())
	}
}
