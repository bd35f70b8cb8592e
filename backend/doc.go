// Package backend provides the pluggable execution backends of the shading
// pipeline.
//
// A backend receives a Job carrying a padded elevation mosaic and returns the
// finished, trimmed tile. Every backend evaluates the same math (see package
// shading); they differ only in where it runs.
//
// # Registration
//
// Backends register a Factory from init(). The CPU backend is registered by
// this package; the GPU backend registers itself when its package is linked:
//
//	import _ "github.com/gogpu/gsts/internal/gpu"
//
//	b, err := backend.New(backend.GPU, cfg)
//
// # Ownership
//
// A Job transfers its mosaic to the backend. Take hands the mosaic out once
// and leaves the job empty, so a job cannot be computed twice and the canvas
// is returned to its pool exactly once.
package backend
