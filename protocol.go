package gsts

import (
	"context"
	"image"

	"github.com/gogpu/gsts/tile"
)

// ProtocolFunc serves one tile for a host map renderer. Unlike ComputeTile
// it never returns (nil, nil): a missing tile is ErrNoTile, distinct from
// ErrCanceled.
type ProtocolFunc func(ctx context.Context, idx tile.Index) (*image.NRGBA, error)

// Protocol returns a ProtocolFunc backed by ComputeTileGPU when accelerated
// is set and by ComputeTile otherwise.
func (s *Shader) Protocol(accelerated bool) ProtocolFunc {
	compute := s.ComputeTile
	if accelerated {
		compute = s.ComputeTileGPU
	}
	return func(ctx context.Context, idx tile.Index) (*image.NRGBA, error) {
		img, err := compute(ctx, idx)
		if err != nil {
			return nil, err
		}
		if img == nil {
			return nil, ErrNoTile
		}
		return img, nil
	}
}
