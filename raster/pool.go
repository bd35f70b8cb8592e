package raster

import (
	"image"
	"sync"
)

// Pool is a thread-safe pool of NRGBA buffers grouped by dimensions.
//
// Decoded tiles and mosaics are the same handful of sizes for the life of a
// process, so reusing their pixel buffers keeps a busy shader from churning
// through the garbage collector.
type Pool struct {
	mu      sync.Mutex
	buckets map[image.Point][]*image.NRGBA
	maxSize int
}

// NewPool creates a pool retaining at most maxPerBucket buffers of each size.
// A maxPerBucket of 0 means unlimited.
func NewPool(maxPerBucket int) *Pool {
	return &Pool{
		buckets: make(map[image.Point][]*image.NRGBA),
		maxSize: maxPerBucket,
	}
}

// Get returns a zeroed width×height buffer with bounds at the origin.
func (p *Pool) Get(width, height int) *image.NRGBA {
	key := image.Pt(width, height)

	p.mu.Lock()
	bucket := p.buckets[key]
	if n := len(bucket); n > 0 {
		img := bucket[n-1]
		bucket[n-1] = nil
		p.buckets[key] = bucket[:n-1]
		p.mu.Unlock()

		clear(img.Pix)
		return img
	}
	p.mu.Unlock()

	return image.NewNRGBA(image.Rect(0, 0, width, height))
}

// Put returns img to the pool. Images not anchored at the origin, or with a
// stride other than 4*width, are discarded.
func (p *Pool) Put(img *image.NRGBA) {
	if img == nil {
		return
	}
	b := img.Bounds()
	if b.Min != (image.Point{}) || img.Stride != 4*b.Dx() {
		return
	}
	key := image.Pt(b.Dx(), b.Dy())

	p.mu.Lock()
	defer p.mu.Unlock()

	bucket := p.buckets[key]
	if p.maxSize > 0 && len(bucket) >= p.maxSize {
		return
	}
	p.buckets[key] = append(bucket, img)
}

// Len returns the number of pooled buffers of the given size.
func (p *Pool) Len(width, height int) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.buckets[image.Pt(width, height)])
}

// DefaultPool is the pool used when no pool is given.
var DefaultPool = NewPool(16)
