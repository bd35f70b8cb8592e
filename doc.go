// Package gsts renders Gaussian scale-space terrain shading tiles.
//
// # Overview
//
// gsts turns elevation tiles in the terrarium encoding into a translucent
// overlay that darkens concave terrain: valleys, gullies and basins. Each
// output tile is computed from the source tile and its eight neighbors so
// that shading is continuous across tile seams.
//
// # Quick Start
//
//	import "github.com/gogpu/gsts"
//
//	s, err := gsts.New(gsts.Config{
//	    SourcePattern: "https://tiles.mapterhorn.com/{z}/{x}/{y}.webp",
//	    Encoding:      "terrarium",
//	    Tint:          shading.RGB{R: 20, G: 30, B: 60},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	img, err := s.ComputeTile(ctx, tile.Index{Z: 12, X: 2132, Y: 1420})
//	// img == nil && err == nil: no source tile at this index.
//
// # Pipeline
//
// For one tile:
//
//	fetch 3x3 neighborhood (concurrent, cached)
//	  -> padded mosaic -> decode elevation
//	  -> blur at radii 3, 7, 15, 30, 60
//	  -> delta = max(0, blurred - original) per radius
//	  -> weighted sum (weights per zoom) -> response curve -> alpha
//	  -> crop padding -> tint RGB + alpha
//
// # Backends
//
// ComputeTile runs on the CPU. ComputeTileGPU runs the same math as WGSL
// compute shaders through gogpu/wgpu. Results agree within a few alpha
// levels; they are not bit-identical.
//
// # Cancellation
//
// Every compute call takes a context. Cancellation is observed before the
// neighbor fetch, after it settles, and between pipeline stages, and is
// reported as ErrCanceled.
package gsts

// Version is the current version of the library.
const Version = "0.1.0"
