package gsts

import (
	"log/slog"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/gsts/raster"
	"github.com/gogpu/gsts/tilecache"
)

// Option configures a Shader during creation.
//
// Example:
//
//	s, err := gsts.New(cfg,
//	    gsts.WithLogger(logger),
//	    gsts.WithWorkers(4),
//	)
type Option func(*shaderOptions)

// shaderOptions holds optional configuration for Shader creation.
type shaderOptions struct {
	logger        *slog.Logger
	fetcher       tilecache.Fetcher
	workers       int
	maxConcurrent int
	provider      gpucontext.DeviceProvider
	pool          *raster.Pool
}

// WithLogger sets the logger of the shader and its backends. Without it the
// package logger from SetLogger is used.
func WithLogger(l *slog.Logger) Option {
	return func(o *shaderOptions) {
		o.logger = l
	}
}

// WithFetcher replaces the default fetcher chosen from the source pattern.
//
// Example:
//
//	fetch := tilecache.FetcherFunc(func(ctx context.Context, loc string) ([]byte, error) {
//	    return bucket.Read(ctx, loc)
//	})
//	s, err := gsts.New(cfg, gsts.WithFetcher(fetch))
func WithFetcher(f tilecache.Fetcher) Option {
	return func(o *shaderOptions) {
		o.fetcher = f
	}
}

// WithWorkers bounds CPU parallelism within one tile. 0 means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *shaderOptions) {
		o.workers = n
	}
}

// WithMaxConcurrent bounds the number of tiles the CPU backend computes at
// once.
func WithMaxConcurrent(n int) Option {
	return func(o *shaderOptions) {
		o.maxConcurrent = n
	}
}

// WithDeviceProvider makes the GPU backend share the provider's device
// instead of opening its own. The provider must expose HalDevice() and
// HalQueue().
func WithDeviceProvider(p gpucontext.DeviceProvider) Option {
	return func(o *shaderOptions) {
		o.provider = p
	}
}

// WithPool sets the image buffer pool for source tiles and mosaics.
func WithPool(p *raster.Pool) Option {
	return func(o *shaderOptions) {
		o.pool = p
	}
}
