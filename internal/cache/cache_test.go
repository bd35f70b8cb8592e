package cache

import (
	"strconv"
	"sync"
	"testing"
)

func TestNew(t *testing.T) {
	c := New[string, int](100, nil)
	if c.Capacity() != 100 {
		t.Errorf("expected capacity 100, got %d", c.Capacity())
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", c.Len())
	}
}

func TestGetSet(t *testing.T) {
	c := New[string, int](10, nil)
	c.Set("a", 1)

	v, ok := c.Get("a")
	if !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v; want 1, true", v, ok)
	}
	if _, ok := c.Get("b"); ok {
		t.Error("Get(b) found missing key")
	}

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.HitRate != 0.5 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	var evicted []string
	c := New[string, int](3, func(k string, _ int) {
		evicted = append(evicted, k)
	})

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)
	c.Get("a") // b is now the oldest
	c.Set("d", 4)

	if len(evicted) != 1 || evicted[0] != "b" {
		t.Fatalf("evicted = %v, want [b]", evicted)
	}
	if _, ok := c.Peek("b"); ok {
		t.Error("b still present after eviction")
	}
	for _, k := range []string{"a", "c", "d"} {
		if _, ok := c.Peek(k); !ok {
			t.Errorf("%s missing", k)
		}
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
	if c.Stats().Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", c.Stats().Evictions)
	}
}

func TestReplaceNotifiesOldValue(t *testing.T) {
	var got []int
	c := New[string, int](2, func(_ string, v int) { got = append(got, v) })

	c.Set("a", 1)
	c.Set("a", 2)

	if len(got) != 1 || got[0] != 1 {
		t.Errorf("evict callback got %v, want [1]", got)
	}
	if v, _ := c.Get("a"); v != 2 {
		t.Errorf("Get(a) = %d, want 2", v)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestDeleteAndClear(t *testing.T) {
	count := 0
	c := New[int, int](0, func(int, int) { count++ })
	for i := 0; i < 5; i++ {
		c.Set(i, i)
	}

	if !c.Delete(2) {
		t.Error("Delete(2) = false")
	}
	if c.Delete(2) {
		t.Error("second Delete(2) = true")
	}
	c.Clear()

	if count != 5 {
		t.Errorf("callback count = %d, want 5", count)
	}
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d", c.Len())
	}
	if s := c.Stats(); s.Hits != 0 || s.Misses != 0 {
		t.Errorf("Clear() kept stats %+v", s)
	}
}

func TestGetOrCreate(t *testing.T) {
	c := New[string, int](10, nil)
	calls := 0
	create := func() int { calls++; return 7 }

	if v := c.GetOrCreate("k", create); v != 7 {
		t.Errorf("GetOrCreate() = %d", v)
	}
	if v := c.GetOrCreate("k", create); v != 7 {
		t.Errorf("GetOrCreate() = %d", v)
	}
	if calls != 1 {
		t.Errorf("create called %d times, want 1", calls)
	}
}

func TestConcurrentAccess(t *testing.T) {
	var mu sync.Mutex
	evicted := 0
	c := New[string, int](50, func(string, int) {
		mu.Lock()
		evicted++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				k := strconv.Itoa(g*1000 + i)
				c.Set(k, i)
				c.Get(k)
			}
		}(g)
	}
	wg.Wait()

	if c.Len() != 50 {
		t.Errorf("Len() = %d, want 50", c.Len())
	}
	if evicted != 8*200-50 {
		t.Errorf("evicted = %d, want %d", evicted, 8*200-50)
	}
}

func TestConcurrentReplaceSameKey(t *testing.T) {
	c := New[string, int](4, nil)
	c.Set("k", 0)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(2)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				c.Set("k", g*1000+i)
			}
		}(g)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				if _, ok := c.Get("k"); !ok {
					t.Error("Get(k) missed a key that is always present")
					return
				}
			}
		}()
	}
	wg.Wait()

	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}
