// Package raster holds decoded source tiles and assembles padded mosaics.
//
// A Tile is an immutable square *image.NRGBA with an atomic reference count.
// Whoever holds a reference may read the pixels; when the last reference is
// released the buffer goes back to the Pool it came from. The tile cache owns
// one reference, and every mosaic assembly borrows its own for the duration
// of the copy, so eviction never frees a tile that is still being read.
//
// Assemble lays the center tile and slices of its eight neighbors out on a
// (tileSize+2*padding)² canvas:
//
//	+----+--------+----+
//	| NW |   N    | NE |
//	+----+--------+----+
//	|    |        |    |
//	| W  | center | E  |
//	|    |        |    |
//	+----+--------+----+
//	| SW |   S    | SE |
//	+----+--------+----+
//
// Missing neighbors leave their region transparent black.
package raster
