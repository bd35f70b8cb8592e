package gsts

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/gsts/raster"
	"github.com/gogpu/gsts/tile"
)

// neighborhood holds caller references to a tile and its eight neighbors.
// Absent tiles are nil.
type neighborhood struct {
	center    *raster.Tile
	neighbors [8]*raster.Tile
}

// errNoCenter reports that the center tile of a neighborhood is absent.
var errNoCenter = errors.New("gsts: center tile unavailable")

// fetchNeighborhood loads the 3x3 block around idx concurrently and waits
// for every fetch to settle. Failures leave the slot empty; a missing center
// is reported as errNoCenter once all fetches are done.
func (s *Shader) fetchNeighborhood(ctx context.Context, idx tile.Index) (*neighborhood, error) {
	n := &neighborhood{}
	var g errgroup.Group

	g.Go(func() error {
		var ok bool
		if n.center, ok = s.cache.Get(ctx, idx, s.tmpl); !ok {
			return errNoCenter
		}
		return nil
	})
	if s.padding > 0 {
		for _, d := range tile.Directions {
			g.Go(func() error {
				n.neighbors[d], _ = s.cache.Get(ctx, idx.Neighbor(d), s.tmpl)
				return nil
			})
		}
	}
	return n, g.Wait()
}

// release gives back every reference. It is safe to call more than once.
func (n *neighborhood) release() {
	if n.center != nil {
		n.center.Release()
		n.center = nil
	}
	for i, t := range n.neighbors {
		if t != nil {
			t.Release()
			n.neighbors[i] = nil
		}
	}
}
