package tilecache

import (
	"bytes"
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/gsts/elevation"
	"github.com/gogpu/gsts/raster"
	"github.com/gogpu/gsts/tile"
)

const testTemplate = tile.Template("mem://{z}/{x}/{y}")

// pngTile returns a terrarium PNG of a flat tile at height h.
func pngTile(t *testing.T, size int, h float32) []byte {
	t.Helper()
	f := elevation.NewField(size, size)
	for i := range f.Data {
		f.Data[i] = h
	}
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	copy(img.Pix, elevation.PackField(f))
	var buf bytes.Buffer
	if err := raster.EncodePNG(&buf, img); err != nil {
		t.Fatalf("EncodePNG() error = %v", err)
	}
	return buf.Bytes()
}

// countingFetcher serves data for every locator and records calls.
type countingFetcher struct {
	mu    sync.Mutex
	calls map[string]int
	data  []byte
	err   error
}

func (f *countingFetcher) Fetch(_ context.Context, locator string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[locator]++
	return f.data, f.err
}

func (f *countingFetcher) count(locator string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[locator]
}

func newCache(t *testing.T, f Fetcher, opts ...Option) *Cache {
	t.Helper()
	c, err := New(f, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestGetCachesTile(t *testing.T) {
	f := &countingFetcher{data: pngTile(t, 8, 100)}
	c := newCache(t, f)
	idx := tile.Index{Z: 3, X: 2, Y: 5}

	a, ok := c.Get(context.Background(), idx, testTemplate)
	if !ok {
		t.Fatal("Get() ok = false")
	}
	if a.Refs() != 2 {
		t.Errorf("Refs() = %d, want 2 (cache and caller)", a.Refs())
	}
	b, ok := c.Get(context.Background(), idx, testTemplate)
	if !ok || b != a {
		t.Fatal("second Get() did not return the cached tile")
	}
	if n := f.count("mem://3/2/5"); n != 1 {
		t.Errorf("fetched %d times, want 1", n)
	}
	a.Release()
	b.Release()

	s := c.Stats()
	if s.Entries != 1 || s.Hits != 1 || s.Misses != 1 || s.Fetches != 1 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestGetInvalidIndex(t *testing.T) {
	f := &countingFetcher{data: pngTile(t, 8, 0)}
	c := newCache(t, f)

	for _, idx := range []tile.Index{
		{Z: 31, X: 0, Y: 0},
		{Z: 2, X: 0, Y: -1},
		{Z: 2, X: 0, Y: 4},
		{Z: -1, X: 0, Y: 0},
	} {
		if _, ok := c.Get(context.Background(), idx, testTemplate); ok {
			t.Errorf("Get(%v) ok = true", idx)
		}
	}
	if c.Stats().Fetches != 0 {
		t.Errorf("invalid indices were fetched")
	}
}

func TestGetWrapsX(t *testing.T) {
	f := &countingFetcher{data: pngTile(t, 8, 0)}
	c := newCache(t, f)

	tl, ok := c.Get(context.Background(), tile.Index{Z: 1, X: -1, Y: 0}, testTemplate)
	if !ok {
		t.Fatal("Get() ok = false")
	}
	defer tl.Release()
	if f.count("mem://1/1/0") != 1 {
		t.Errorf("wrapped locator not fetched: %v", f.calls)
	}
}

func TestFailureRemembered(t *testing.T) {
	f := &countingFetcher{err: errors.New("boom")}
	c := newCache(t, f)
	idx := tile.Index{Z: 4, X: 1, Y: 1}

	for range 3 {
		if _, ok := c.Get(context.Background(), idx, testTemplate); ok {
			t.Fatal("Get() ok = true for failing fetcher")
		}
	}
	if n := f.count("mem://4/1/1"); n != 1 {
		t.Errorf("fetched %d times, want 1", n)
	}
	if s := c.Stats(); s.Failures != 1 {
		t.Errorf("Failures = %d, want 1", s.Failures)
	}

	c.Forget("mem://4/1/1")
	c.Get(context.Background(), idx, testTemplate)
	if n := f.count("mem://4/1/1"); n != 2 {
		t.Errorf("after Forget fetched %d times, want 2", n)
	}
}

func TestDecodeFailureRemembered(t *testing.T) {
	f := &countingFetcher{data: []byte("not an image")}
	c := newCache(t, f)
	idx := tile.Index{Z: 1, X: 0, Y: 0}

	c.Get(context.Background(), idx, testTemplate)
	c.Get(context.Background(), idx, testTemplate)
	if n := f.count("mem://1/0/0"); n != 1 {
		t.Errorf("fetched %d times, want 1", n)
	}
}

func TestCanceledFetchNotRemembered(t *testing.T) {
	var calls atomic.Int32
	data := pngTile(t, 8, 0)
	f := FetcherFunc(func(ctx context.Context, _ string) ([]byte, error) {
		calls.Add(1)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return data, nil
	})
	c := newCache(t, f)
	idx := tile.Index{Z: 2, X: 1, Y: 1}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := c.Get(ctx, idx, testTemplate); ok {
		t.Fatal("Get() with canceled context ok = true")
	}

	tl, ok := c.Get(context.Background(), idx, testTemplate)
	if !ok {
		t.Fatal("Get() after cancellation ok = false, failure was remembered")
	}
	tl.Release()
	if calls.Load() != 2 {
		t.Errorf("fetch calls = %d, want 2", calls.Load())
	}
	if c.Stats().Failures != 0 {
		t.Errorf("Failures = %d, want 0", c.Stats().Failures)
	}
}

func TestEvictionReleasesTile(t *testing.T) {
	pool := raster.NewPool(4)
	f := &countingFetcher{data: pngTile(t, 8, 0)}
	c := newCache(t, f, WithSize(1), WithPool(pool))

	a, ok := c.Get(context.Background(), tile.Index{Z: 1, X: 0, Y: 0}, testTemplate)
	if !ok {
		t.Fatal("Get(a) ok = false")
	}
	held, ok := c.Get(context.Background(), tile.Index{Z: 1, X: 1, Y: 0}, testTemplate)
	if !ok {
		t.Fatal("Get(b) ok = false")
	}
	defer held.Release()

	// a is evicted but still owned by this test.
	if a.Refs() != 1 {
		t.Fatalf("evicted tile Refs() = %d, want 1", a.Refs())
	}
	if a.Image() == nil {
		t.Fatal("evicted tile lost its image while held")
	}
	if pool.Len(8, 8) != 0 {
		t.Fatalf("buffer returned while held")
	}

	a.Release()
	if pool.Len(8, 8) != 1 {
		t.Errorf("pool.Len = %d, want 1 after last release", pool.Len(8, 8))
	}
	if s := c.Stats(); s.Evictions != 1 || s.Entries != 1 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestClear(t *testing.T) {
	f := &countingFetcher{data: pngTile(t, 8, 0)}
	c := newCache(t, f)
	idx := tile.Index{Z: 1, X: 0, Y: 0}

	tl, _ := c.Get(context.Background(), idx, testTemplate)
	c.Clear()
	if tl.Refs() != 1 {
		t.Errorf("Refs() after Clear = %d, want 1", tl.Refs())
	}
	tl.Release()

	if c.Stats().Entries != 0 {
		t.Errorf("Entries after Clear = %d", c.Stats().Entries)
	}
	again, ok := c.Get(context.Background(), idx, testTemplate)
	if !ok {
		t.Fatal("Get() after Clear ok = false")
	}
	again.Release()
	if f.count("mem://1/0/0") != 2 {
		t.Errorf("Clear did not force a refetch")
	}
}

func TestNewErrors(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrNoFetcher) {
		t.Errorf("New(nil) error = %v", err)
	}
	if _, err := New(FileFetcher{}, WithSize(0)); err == nil {
		t.Error("New(WithSize(0)) error = nil")
	}
}

func TestConcurrentGet(t *testing.T) {
	f := &countingFetcher{data: pngTile(t, 16, 50)}
	c := newCache(t, f, WithSize(4))

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				idx := tile.Index{Z: 3, X: (g + i) % 8, Y: i % 8}
				tl, ok := c.Get(context.Background(), idx, testTemplate)
				if !ok {
					t.Errorf("Get(%v) ok = false", idx)
					return
				}
				if v := elevation.Unpack(uint32(tl.Image().Pix[0]) | uint32(tl.Image().Pix[1])<<8 | uint32(tl.Image().Pix[2])<<16); v != 50 {
					t.Errorf("tile %v decoded %v, want 50", idx, v)
				}
				tl.Release()
			}
		}()
	}
	wg.Wait()
	if c.Stats().Entries > 4 {
		t.Errorf("Entries = %d, want <= 4", c.Stats().Entries)
	}
}

func TestConcurrentMissSameTile(t *testing.T) {
	data := pngTile(t, 16, 75)
	var n atomic.Int32
	f := FetcherFunc(func(context.Context, string) ([]byte, error) {
		time.Sleep(time.Duration(n.Add(1)%4) * time.Millisecond)
		return data, nil
	})
	c := newCache(t, f)
	idx := tile.Index{Z: 2, X: 1, Y: 1}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				tl, ok := c.Get(context.Background(), idx, testTemplate)
				if !ok {
					t.Error("Get() ok = false")
					return
				}
				if tl.Size() != 16 {
					t.Errorf("tile size = %d, want 16", tl.Size())
				}
				tl.Release()
			}
		}()
	}
	wg.Wait()

	if st := c.Stats(); st.Entries != 1 || st.Failures != 0 {
		t.Errorf("Stats() = %+v, want one entry and no failures", st)
	}
}
