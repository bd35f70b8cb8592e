package filter

import (
	"context"
	"sync"

	"github.com/gogpu/gsts/elevation"
	"github.com/gogpu/gsts/internal/parallel"
)

// Blur convolves f with the blur kernel for radius, horizontally then
// vertically, and returns a new field. f is not modified.
//
// A radius of 0 or less returns an identical copy. pool may be nil, in which
// case both passes run on the calling goroutine.
func Blur(ctx context.Context, f elevation.Field, radius int, pool *parallel.WorkerPool) (elevation.Field, error) {
	if err := ctx.Err(); err != nil {
		return elevation.Field{}, err
	}
	if radius <= 0 || f.Width == 0 || f.Height == 0 {
		return f.Clone(), nil
	}

	kernel := RadiusKernel(radius)

	temp := getTemp(len(f.Data))
	defer putTemp(temp)

	err := pool.Rows(ctx, f.Height, func(lo, hi int) {
		blurRows(f.Data, temp.data, f.Width, lo, hi, kernel)
	})
	if err != nil {
		return elevation.Field{}, err
	}

	out := elevation.NewField(f.Width, f.Height)
	err = pool.Rows(ctx, f.Width, func(lo, hi int) {
		blurColumns(temp.data, out.Data, f.Width, f.Height, lo, hi, kernel)
	})
	if err != nil {
		return elevation.Field{}, err
	}
	return out, nil
}

// blurRows runs the horizontal pass for rows [lo, hi).
func blurRows(src, dst []float32, width, lo, hi int, kernel []float32) {
	r := len(kernel) / 2
	for y := lo; y < hi; y++ {
		row := src[y*width : (y+1)*width]
		out := dst[y*width : (y+1)*width]
		for x := range out {
			var sum float32
			if x >= r && x+r < width {
				window := row[x-r : x+r+1]
				for k, w := range kernel {
					sum += window[k] * w
				}
			} else {
				for k, w := range kernel {
					sum += row[clamp(x+k-r, width)] * w
				}
			}
			out[x] = sum
		}
	}
}

// blurColumns runs the vertical pass for columns [lo, hi).
func blurColumns(src, dst []float32, width, height, lo, hi int, kernel []float32) {
	r := len(kernel) / 2
	for y := 0; y < height; y++ {
		out := dst[y*width : (y+1)*width]
		for x := lo; x < hi; x++ {
			var sum float32
			for k, w := range kernel {
				sum += src[clamp(y+k-r, height)*width+x] * w
			}
			out[x] = sum
		}
	}
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

type floatBuffer struct {
	data []float32
}

var tempPool = sync.Pool{
	New: func() any { return &floatBuffer{} },
}

// getTemp returns a scratch buffer of exactly n values. Contents are
// undefined; every value is written by the horizontal pass.
func getTemp(n int) *floatBuffer {
	b := tempPool.Get().(*floatBuffer)
	if cap(b.data) < n {
		b.data = make([]float32, n)
	}
	b.data = b.data[:n]
	return b
}

func putTemp(b *floatBuffer) {
	tempPool.Put(b)
}
