// Package cache provides a generic LRU cache with a hard capacity.
//
// Values leaving the cache are passed to an optional eviction callback,
// which lets reference-counted values such as decoded tiles return their
// pixel buffers to a pool:
//
//	c := cache.New[tile.Index, *raster.Tile](1000, func(_ tile.Index, t *raster.Tile) {
//		t.Release()
//	})
//	c.Set(idx, t)
//	t, ok := c.Get(idx)
//
// # Thread Safety
//
// LRU is safe for concurrent use and must not be copied after creation.
package cache
