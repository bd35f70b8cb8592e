// Package tile provides XYZ tile addressing: index normalization across the
// antimeridian, 8-directional neighbor lookup and source locator templates.
package tile

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// MaxZoom is the deepest zoom level an Index may address.
const MaxZoom = 30

// Index addresses one tile of the web mercator pyramid.
//
// X wraps modulo 2^Z (antimeridian). Y does not wrap: an Index with Y outside
// [0, 2^Z) does not address any tile.
type Index struct {
	Z int
	X int
	Y int
}

// Size returns the number of tiles per axis at the index zoom level.
func (i Index) Size() int {
	return 1 << i.Z
}

// Wrap normalizes X into [0, 2^Z). Y and Z are left unchanged.
// Wrap is idempotent.
func (i Index) Wrap() Index {
	if i.Z < 0 || i.Z > MaxZoom {
		return i
	}
	n := i.Size()
	x := i.X % n
	if x < 0 {
		x += n
	}
	return Index{Z: i.Z, X: x, Y: i.Y}
}

// Valid reports whether the index addresses an existing tile.
func (i Index) Valid() bool {
	if i.Z < 0 || i.Z > MaxZoom {
		return false
	}
	n := i.Size()
	return i.X >= 0 && i.X < n && i.Y >= 0 && i.Y < n
}

// Neighbor returns the adjacent index in direction d.
// The result is neither wrapped nor validated.
func (i Index) Neighbor(d Direction) Index {
	dx, dy := d.Offset()
	return Index{Z: i.Z, X: i.X + dx, Y: i.Y + dy}
}

// String returns the index as "z/x/y".
func (i Index) String() string {
	return fmt.Sprintf("%d/%d/%d", i.Z, i.X, i.Y)
}

// MapTile converts the wrapped index into an orb maptile.
// Returns false if the index does not address a tile.
func (i Index) MapTile() (maptile.Tile, bool) {
	w := i.Wrap()
	if !w.Valid() {
		return maptile.Tile{}, false
	}
	return maptile.New(uint32(w.X), uint32(w.Y), maptile.Zoom(w.Z)), true //nolint:gosec // validated above
}

// FromMapTile converts an orb maptile into an Index.
func FromMapTile(t maptile.Tile) Index {
	return Index{Z: int(t.Z), X: int(t.X), Y: int(t.Y)}
}

// At returns the index of the tile containing the lon/lat point at zoom z.
func At(lon, lat float64, z int) Index {
	return FromMapTile(maptile.At(orb.Point{lon, lat}, maptile.Zoom(z))) //nolint:gosec // zoom is small
}
