package raster

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/gogpu/gsts/tile"
)

// Mosaic errors.
var (
	// ErrNoCenter is returned when the center tile is missing.
	ErrNoCenter = errors.New("raster: no center tile")

	// ErrInvalidPadding is returned for a padding outside [0, tileSize].
	ErrInvalidPadding = errors.New("raster: invalid padding")
)

// Mosaic is a padded canvas built around a center tile.
type Mosaic struct {
	// Image is (TileSize+2*Padding)² pixels with the center at (Padding, Padding).
	Image *image.NRGBA

	TileSize int
	Padding  int

	// Placed lists the neighbors that contributed pixels.
	Placed []tile.Direction

	// Mismatched lists neighbors skipped because their size differs from
	// the center tile.
	Mismatched []tile.Direction

	pool *Pool
}

// Release returns the canvas to its pool. The mosaic must not be used after.
func (m *Mosaic) Release() {
	if m == nil || m.Image == nil {
		return
	}
	if m.pool != nil {
		m.pool.Put(m.Image)
	}
	m.Image = nil
}

// Assemble copies center and the padding-wide borders of its neighbors onto a
// new canvas taken from pool (DefaultPool if nil). neighbors is indexed by
// tile.Direction; nil entries leave their region transparent.
//
// Assemble borrows its own reference on each tile while copying, so the
// caller's references may be released concurrently by a cache.
func Assemble(center *Tile, neighbors [8]*Tile, padding int, pool *Pool) (*Mosaic, error) {
	if center == nil {
		return nil, ErrNoCenter
	}
	if !center.TryRetain() {
		return nil, ErrNoCenter
	}
	defer center.Release()

	ts := center.Size()
	if padding < 0 || padding > ts {
		return nil, fmt.Errorf("%w: %d (tile size %d)", ErrInvalidPadding, padding, ts)
	}
	if pool == nil {
		pool = DefaultPool
	}

	size := ts + 2*padding
	m := &Mosaic{
		Image:    pool.Get(size, size),
		TileSize: ts,
		Padding:  padding,
		pool:     pool,
	}

	src := center.Image()
	draw.Copy(m.Image, image.Pt(padding, padding), src, src.Bounds(), draw.Src, nil)

	if padding == 0 {
		return m, nil
	}

	for _, d := range tile.Directions {
		n := neighbors[d]
		if n == nil || !n.TryRetain() {
			continue
		}
		if n.Size() != ts || n.Image().Bounds().Dy() != ts {
			m.Mismatched = append(m.Mismatched, d)
			n.Release()
			continue
		}
		sr, dp := stripFor(d, ts, padding)
		img := n.Image()
		sr = sr.Add(img.Bounds().Min)
		draw.Copy(m.Image, dp, img, sr, draw.Src, nil)
		m.Placed = append(m.Placed, d)
		n.Release()
	}
	return m, nil
}

// stripFor returns the source rectangle within a neighbor and the destination
// point on the canvas for direction d.
func stripFor(d tile.Direction, ts, p int) (image.Rectangle, image.Point) {
	far := ts - p
	switch d {
	case tile.North:
		return image.Rect(0, far, ts, ts), image.Pt(p, 0)
	case tile.NorthEast:
		return image.Rect(0, far, p, ts), image.Pt(p+ts, 0)
	case tile.East:
		return image.Rect(0, 0, p, ts), image.Pt(p+ts, p)
	case tile.SouthEast:
		return image.Rect(0, 0, p, p), image.Pt(p+ts, p+ts)
	case tile.South:
		return image.Rect(0, 0, ts, p), image.Pt(p, p+ts)
	case tile.SouthWest:
		return image.Rect(far, 0, ts, p), image.Pt(0, p+ts)
	case tile.West:
		return image.Rect(far, 0, ts, ts), image.Pt(0, p)
	case tile.NorthWest:
		return image.Rect(far, far, ts, ts), image.Pt(0, 0)
	}
	return image.Rectangle{}, image.Point{}
}

// Trim cuts the central tileSize² region out of a padded raster into a new
// image owned by the caller.
func Trim(padded *image.NRGBA, tileSize, padding int) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, tileSize, tileSize))
	sr := image.Rect(padding, padding, padding+tileSize, padding+tileSize).Add(padded.Bounds().Min)
	draw.Copy(out, image.Point{}, padded, sr, draw.Src, nil)
	return out
}
