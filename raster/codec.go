package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"

	_ "image/jpeg"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Decode errors.
var (
	// ErrEmptyData is returned when there are no bytes to decode.
	ErrEmptyData = errors.New("raster: empty data")

	// ErrNotSquare is returned for source tiles that are not square.
	ErrNotSquare = errors.New("raster: tile is not square")
)

// Decode decodes a PNG, JPEG or WebP source tile into a Tile whose buffer
// comes from pool (DefaultPool if nil).
func Decode(data []byte, pool *Pool) (*Tile, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("raster: decode: %w", err)
	}
	b := img.Bounds()
	if b.Dx() != b.Dy() || b.Dx() == 0 {
		return nil, fmt.Errorf("%w: %s %dx%d", ErrNotSquare, format, b.Dx(), b.Dy())
	}
	if pool == nil {
		pool = DefaultPool
	}
	dst := pool.Get(b.Dx(), b.Dy())
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return NewTile(dst, pool), nil
}

// EncodePNG writes img as a PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(w, img); err != nil {
		return fmt.Errorf("raster: encode PNG: %w", err)
	}
	return nil
}
