package raster

import (
	"image"
	"sync/atomic"
)

// Tile is a decoded, immutable, square source tile with a reference count.
//
// A new Tile holds one reference. Pixels may be read only while holding a
// reference.
type Tile struct {
	img  *image.NRGBA
	pool *Pool
	refs atomic.Int32
}

// NewTile wraps img with a single reference. When the last reference is
// released img is returned to pool; a nil pool leaves it to the GC.
func NewTile(img *image.NRGBA, pool *Pool) *Tile {
	t := &Tile{img: img, pool: pool}
	t.refs.Store(1)
	return t
}

// Size returns the tile edge length in pixels.
func (t *Tile) Size() int {
	return t.img.Bounds().Dx()
}

// Image returns the pixel buffer. The caller must hold a reference and must
// not modify the pixels.
func (t *Tile) Image() *image.NRGBA {
	return t.img
}

// View returns a read-only view of the pixels.
func (t *Tile) View() image.Image {
	return readOnly{t.img}
}

// Retain adds a reference. The caller must already hold one.
func (t *Tile) Retain() {
	t.refs.Add(1)
}

// TryRetain adds a reference unless the tile has already been freed.
// It is used to borrow a tile found through a shared structure such as a
// cache, where the owner's reference may be dropped concurrently.
func (t *Tile) TryRetain() bool {
	for {
		n := t.refs.Load()
		if n <= 0 {
			return false
		}
		if t.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Release drops a reference. Dropping the last one returns the pixel buffer
// to the pool. Releasing an already freed tile is a no-op.
func (t *Tile) Release() {
	for {
		n := t.refs.Load()
		if n <= 0 {
			return
		}
		if t.refs.CompareAndSwap(n, n-1) {
			if n == 1 && t.pool != nil {
				t.pool.Put(t.img)
			}
			return
		}
	}
}

// Refs returns the current reference count.
func (t *Tile) Refs() int {
	return int(t.refs.Load())
}

// readOnly hides the concrete type so callers cannot write through Set.
type readOnly struct {
	image.Image
}
