package tilecache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/maypok86/otter/v2"

	"github.com/gogpu/gsts/internal/cache"
	"github.com/gogpu/gsts/raster"
	"github.com/gogpu/gsts/tile"
)

// Defaults.
const (
	DefaultSize         = 1000
	DefaultNegativeSize = 10000
	DefaultNegativeTTL  = time.Hour
)

// ErrNoFetcher is returned by New when fetcher is nil.
var ErrNoFetcher = errors.New("tilecache: nil fetcher")

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries     int    // decoded tiles held
	Unavailable int    // locators remembered as failed (approximate)
	Hits        uint64 // Get served from the tile cache
	Misses      uint64 // Get that had to fetch
	Fetches     uint64 // fetch attempts started
	Failures    uint64 // fetches or decodes recorded as unavailable
	Evictions   uint64 // tiles dropped for capacity
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	size    int
	negSize int
	negTTL  time.Duration
	pool    *raster.Pool
	logger  *slog.Logger
}

// WithSize bounds the number of decoded tiles held.
func WithSize(n int) Option {
	return func(o *options) { o.size = n }
}

// WithNegativeSize bounds the number of failed locators remembered.
func WithNegativeSize(n int) Option {
	return func(o *options) { o.negSize = n }
}

// WithNegativeTTL sets how long a failed locator is remembered.
func WithNegativeTTL(d time.Duration) Option {
	return func(o *options) { o.negTTL = d }
}

// WithPool sets the buffer pool decoded tiles are drawn from.
func WithPool(p *raster.Pool) Option {
	return func(o *options) { o.pool = p }
}

// WithLogger sets the logger for cache diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Cache is a concurrent cache of decoded source tiles keyed by locator.
//
// Concurrent misses on the same locator each fetch; the last decoded tile
// wins and the others are released when replaced.
type Cache struct {
	fetcher Fetcher
	tiles   *cache.LRU[string, *raster.Tile]
	missing *otter.Cache[string, struct{}]
	pool    *raster.Pool
	log     *slog.Logger

	fetches  atomic.Uint64
	failures atomic.Uint64
}

// New creates a cache that loads tiles with fetcher.
func New(fetcher Fetcher, opts ...Option) (*Cache, error) {
	if fetcher == nil {
		return nil, ErrNoFetcher
	}
	o := options{
		size:    DefaultSize,
		negSize: DefaultNegativeSize,
		negTTL:  DefaultNegativeTTL,
		pool:    raster.DefaultPool,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.size <= 0 || o.negSize <= 0 || o.negTTL <= 0 {
		return nil, fmt.Errorf("tilecache: sizes and TTL must be positive (size %d, negative size %d, ttl %v)",
			o.size, o.negSize, o.negTTL)
	}
	if o.logger == nil {
		o.logger = slog.New(nopHandler{})
	}

	missing, err := otter.New(&otter.Options[string, struct{}]{
		MaximumSize:      o.negSize,
		ExpiryCalculator: otter.ExpiryWriting[string, struct{}](o.negTTL),
	})
	if err != nil {
		return nil, fmt.Errorf("tilecache: negative cache: %w", err)
	}

	c := &Cache{
		fetcher: fetcher,
		missing: missing,
		pool:    o.pool,
		log:     o.logger,
	}
	c.tiles = cache.New[string, *raster.Tile](o.size, func(_ string, t *raster.Tile) {
		t.Release()
	})
	return c, nil
}

// Get returns the tile at idx resolved through tmpl. X is wrapped first.
//
// ok is false when the index is invalid, the locator is known to fail, the
// fetch or decode fails, or ctx ends first. Only real failures are
// remembered; a canceled fetch is retried by the next Get. On success the
// caller owns one reference to the returned tile.
func (c *Cache) Get(ctx context.Context, idx tile.Index, tmpl tile.Template) (*raster.Tile, bool) {
	idx = idx.Wrap()
	if !idx.Valid() {
		return nil, false
	}
	locator := tmpl.Resolve(idx)

	if _, failed := c.missing.GetIfPresent(locator); failed {
		return nil, false
	}
	if t, ok := c.tiles.Get(locator); ok && t.TryRetain() {
		return t, true
	}

	c.fetches.Add(1)
	data, err := c.fetcher.Fetch(ctx, locator)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false
		}
		c.markFailed(locator, "fetch", err)
		return nil, false
	}
	if ctx.Err() != nil {
		return nil, false
	}

	t, err := raster.Decode(data, c.pool)
	if err != nil {
		c.markFailed(locator, "decode", err)
		return nil, false
	}
	// One reference for the caller, one for the cache.
	t.Retain()
	c.tiles.Set(locator, t)
	c.log.Debug("tilecache: loaded", "tile", idx.String(), "size", t.Size())
	return t, true
}

func (c *Cache) markFailed(locator, stage string, err error) {
	c.failures.Add(1)
	c.missing.Set(locator, struct{}{})
	c.log.Debug("tilecache: unavailable", "locator", locator, "stage", stage, "err", err)
}

// Forget drops locator from the negative cache so the next Get fetches it.
func (c *Cache) Forget(locator string) {
	c.missing.Invalidate(locator)
}

// Clear empties both caches. Tiles held by callers stay valid until they
// are released.
func (c *Cache) Clear() {
	c.tiles.Clear()
	c.missing.InvalidateAll()
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	s := c.tiles.Stats()
	return Stats{
		Entries:     s.Len,
		Unavailable: c.missing.EstimatedSize(),
		Hits:        s.Hits,
		Misses:      s.Misses,
		Fetches:     c.fetches.Load(),
		Failures:    c.failures.Load(),
		Evictions:   s.Evictions,
	}
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }
