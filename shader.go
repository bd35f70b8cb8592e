package gsts

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gsts/backend"
	"github.com/gogpu/gsts/raster"
	"github.com/gogpu/gsts/shading"
	"github.com/gogpu/gsts/tile"
	"github.com/gogpu/gsts/tilecache"

	// Registers the "gpu" backend.
	_ "github.com/gogpu/gsts/internal/gpu"
)

// ErrClosed is returned by compute calls after Close.
var ErrClosed = errors.New("gsts: shader closed")

// Shader computes shading tiles for one source.
//
// Shader is safe for concurrent use. Tiles are independent; concurrent
// calls share the source tile cache.
type Shader struct {
	cfg     Config
	tmpl    tile.Template
	weights shading.WeightsTable
	padding int
	pool    *raster.Pool
	cache   *tilecache.Cache
	logPtr  atomic.Pointer[slog.Logger]

	bcfg backend.Config
	cpu  backend.Backend

	gpuMu  sync.Mutex
	gpu    backend.Backend
	gpuErr error

	closed atomic.Bool
}

// New validates cfg and creates a Shader with a CPU backend. The GPU backend
// is created on the first ComputeTileGPU call.
func New(cfg Config, opts ...Option) (*Shader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o shaderOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = Logger()
	}
	if o.pool == nil {
		o.pool = raster.DefaultPool
	}

	tmpl, err := tile.ParseTemplate(cfg.SourcePattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	enc, err := cfg.encoding()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	fetcher := o.fetcher
	if fetcher == nil {
		fetcher = tilecache.NewFetcher(tmpl)
	}
	cacheOpts := append(cfg.cacheOptions(), tilecache.WithPool(o.pool), tilecache.WithLogger(o.logger))
	tc, err := tilecache.New(fetcher, cacheOpts...)
	if err != nil {
		return nil, fmt.Errorf("gsts: %w", err)
	}

	s := &Shader{
		cfg:     cfg,
		tmpl:    tmpl,
		weights: shading.DefaultWeights().Merge(cfg.Weights),
		padding: cfg.padding(),
		pool:    o.pool,
		cache:   tc,
		bcfg: backend.Config{
			Encoding:       enc,
			Response:       cfg.response(),
			Tint:           cfg.Tint,
			Workers:        o.workers,
			MaxConcurrent:  o.maxConcurrent,
			DeviceProvider: o.provider,
			Logger:         o.logger,
		},
	}
	s.logPtr.Store(o.logger)

	s.cpu, err = backend.New(backend.CPU, s.bcfg)
	if err != nil {
		return nil, fmt.Errorf("gsts: %w", err)
	}
	return s, nil
}

func (s *Shader) log() *slog.Logger {
	return s.logPtr.Load()
}

// SetLogger replaces the logger of the shader and its backends.
// Nil restores silent behavior.
func (s *Shader) SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	s.logPtr.Store(l)
	propagateLogger(s.cpu, l)

	s.gpuMu.Lock()
	if s.gpu != nil {
		propagateLogger(s.gpu, l)
	}
	s.gpuMu.Unlock()
}

// ComputeTile shades the tile at idx on the CPU.
//
// It returns (nil, nil) when the index is invalid, outside the zoom range,
// or has no source tile, and (nil, ErrCanceled) when ctx ends first.
func (s *Shader) ComputeTile(ctx context.Context, idx tile.Index) (*image.NRGBA, error) {
	return s.compute(ctx, idx, s.cpu)
}

// ComputeTileGPU shades the tile at idx with the GPU backend. Its results
// follow ComputeTile; an error wrapping ErrBackendUnavailable means no GPU
// could be initialized, in which case every later call fails the same way.
func (s *Shader) ComputeTileGPU(ctx context.Context, idx tile.Index) (*image.NRGBA, error) {
	b, err := s.gpuBackend()
	if err != nil {
		return nil, err
	}
	return s.compute(ctx, idx, b)
}

func (s *Shader) gpuBackend() (backend.Backend, error) {
	s.gpuMu.Lock()
	defer s.gpuMu.Unlock()
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if s.gpu == nil && s.gpuErr == nil {
		cfg := s.bcfg
		cfg.Logger = s.log()
		s.gpu, s.gpuErr = backend.New(backend.GPU, cfg)
		if s.gpuErr != nil {
			s.gpuErr = fmt.Errorf("gsts: %w", s.gpuErr)
			s.log().Warn("gsts: GPU backend unavailable", "err", s.gpuErr)
		}
	}
	return s.gpu, s.gpuErr
}

func (s *Shader) compute(ctx context.Context, idx tile.Index, b backend.Backend) (*image.NRGBA, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	idx = idx.Wrap()
	if !idx.Valid() || idx.Z < s.cfg.MinZoom || idx.Z > s.cfg.maxZoom() {
		return nil, nil
	}
	if ctx.Err() != nil {
		return nil, ErrCanceled
	}

	start := time.Now()
	n, err := s.fetchNeighborhood(ctx, idx)
	defer n.release()
	if ctx.Err() != nil {
		return nil, ErrCanceled
	}
	if errors.Is(err, errNoCenter) {
		return nil, nil
	}
	if s.cfg.TileSize > 0 && n.center.Size() != s.cfg.TileSize {
		s.log().Warn("gsts: source tile size mismatch",
			"tile", idx.String(), "size", n.center.Size(), "want", s.cfg.TileSize)
		return nil, nil
	}

	m, err := raster.Assemble(n.center, n.neighbors, s.padding, s.pool)
	n.release()
	if err != nil {
		return nil, fmt.Errorf("gsts: %s: %w", idx, err)
	}
	if len(m.Mismatched) > 0 {
		s.log().Warn("gsts: neighbor size mismatch", "tile", idx.String(), "directions", m.Mismatched)
	}
	fetched := time.Since(start)

	job := backend.NewJob(m, s.weights.For(idx.Z))
	job.Label = idx.String()
	defer job.Release()

	img, err := b.Compute(ctx, job)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrCanceled
		}
		return nil, fmt.Errorf("gsts: %s: %w", idx, err)
	}
	s.log().Debug("gsts: tile shaded",
		"tile", idx.String(),
		"backend", b.Name(),
		"neighbors", len(m.Placed),
		"fetch", fetched,
		"elapsed", time.Since(start))
	return img, nil
}

// ClearCache drops every cached source tile and remembered failure.
func (s *Shader) ClearCache() {
	s.cache.Clear()
}

// CacheStats returns the source tile cache counters.
func (s *Shader) CacheStats() tilecache.Stats {
	return s.cache.Stats()
}

// Close releases the backends and the cache. Calls in flight finish;
// later calls return ErrClosed. Close is safe to call multiple times.
func (s *Shader) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	var errs []error
	if err := s.cpu.Close(); err != nil {
		errs = append(errs, err)
	}
	s.gpuMu.Lock()
	if s.gpu != nil {
		if err := s.gpu.Close(); err != nil {
			errs = append(errs, err)
		}
		s.gpu = nil
	}
	s.gpuMu.Unlock()
	s.cache.Clear()
	return errors.Join(errs...)
}
