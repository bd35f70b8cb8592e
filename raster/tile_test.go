package raster

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
)

func TestTileRefcount(t *testing.T) {
	pool := NewPool(0)
	tl := NewTile(pool.Get(4, 4), pool)

	if !tl.TryRetain() {
		t.Fatal("TryRetain() on live tile = false")
	}
	tl.Retain()
	if tl.Refs() != 3 {
		t.Fatalf("Refs() = %d, want 3", tl.Refs())
	}

	tl.Release()
	tl.Release()
	if pool.Len(4, 4) != 0 {
		t.Fatal("buffer returned while a reference is held")
	}
	tl.Release()
	if pool.Len(4, 4) != 1 {
		t.Fatal("buffer not returned after last release")
	}

	tl.Release()
	if tl.Refs() != 0 || pool.Len(4, 4) != 1 {
		t.Error("extra Release() changed state")
	}
	if tl.TryRetain() {
		t.Error("TryRetain() on freed tile = true")
	}
}

func TestTileConcurrentBorrow(t *testing.T) {
	pool := NewPool(0)
	tl := NewTile(pool.Get(2, 2), pool)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tl.TryRetain() {
				_ = tl.Image().Pix[0]
				tl.Release()
			}
		}()
	}
	tl.Release()
	wg.Wait()

	if tl.Refs() != 0 || pool.Len(2, 2) != 1 {
		t.Errorf("after borrowers: refs=%d pooled=%d", tl.Refs(), pool.Len(2, 2))
	}
}

func TestTileView(t *testing.T) {
	tl := NewTile(image.NewNRGBA(image.Rect(0, 0, 3, 3)), nil)
	v := tl.View()
	if _, ok := v.(*image.NRGBA); ok {
		t.Error("View() exposes the mutable buffer")
	}
	if v.Bounds().Dx() != 3 || tl.Size() != 3 {
		t.Errorf("View bounds = %v", v.Bounds())
	}
}

func TestPoolClearsReusedBuffers(t *testing.T) {
	pool := NewPool(1)
	img := pool.Get(2, 2)
	img.Pix[0] = 200
	pool.Put(img)
	pool.Put(image.NewNRGBA(image.Rect(0, 0, 2, 2)))

	if pool.Len(2, 2) != 1 {
		t.Errorf("bucket cap not honored: %d", pool.Len(2, 2))
	}
	again := pool.Get(2, 2)
	if again.Pix[0] != 0 {
		t.Error("reused buffer not cleared")
	}

	pool.Put(image.NewNRGBA(image.Rect(1, 1, 3, 3)))
	if pool.Len(2, 2) != 0 {
		t.Error("offset image should not be pooled")
	}
}

func TestDecode(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	src.Set(1, 2, color.RGBA{R: 128, G: 7, B: 9, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}

	tl, err := Decode(buf.Bytes(), NewPool(0))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if tl.Size() != 4 {
		t.Errorf("Size() = %d", tl.Size())
	}
	if c := tl.Image().NRGBAAt(1, 2); c != (color.NRGBA{R: 128, G: 7, B: 9, A: 255}) {
		t.Errorf("pixel = %v", c)
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Decode(nil, nil); !errors.Is(err, ErrEmptyData) {
		t.Errorf("Decode(nil) error = %v", err)
	}
	if _, err := Decode([]byte("not an image"), nil); err == nil {
		t.Error("Decode(garbage) succeeded")
	}

	var buf bytes.Buffer
	if err := EncodePNG(&buf, image.NewNRGBA(image.Rect(0, 0, 4, 2))); err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(buf.Bytes(), nil); !errors.Is(err, ErrNotSquare) {
		t.Errorf("Decode(4x2) error = %v, want ErrNotSquare", err)
	}
}
