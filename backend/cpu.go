package backend

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/gogpu/gsts/elevation"
	"github.com/gogpu/gsts/internal/filter"
	"github.com/gogpu/gsts/internal/parallel"
	"github.com/gogpu/gsts/raster"
	"github.com/gogpu/gsts/shading"
)

func init() {
	Register(CPU, func(cfg Config) (Backend, error) {
		return NewCPU(cfg)
	})
}

// CPUBackend runs the pipeline on background goroutines.
//
// Each tile runs on its own goroutine, so Compute returns as soon as its
// context is done. The blur passes split rows across a shared worker pool,
// and a semaphore bounds how many tiles are in flight.
type CPUBackend struct {
	cfg    Config
	pool   *parallel.WorkerPool
	sem    *semaphore.Weighted
	log    atomic.Pointer[slog.Logger]
	closed atomic.Bool
}

// NewCPU creates a CPU backend.
func NewCPU(cfg Config) (*CPUBackend, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Encoding.Check(); err != nil {
		return nil, fmt.Errorf("backend: cpu: %w", err)
	}
	b := &CPUBackend{
		cfg:  cfg,
		pool: parallel.NewWorkerPool(cfg.Workers),
		sem:  semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
	}
	b.log.Store(cfg.Logger)
	return b, nil
}

// Name implements Backend.
func (b *CPUBackend) Name() string { return CPU }

// SetLogger replaces the backend logger. Nil disables logging.
func (b *CPUBackend) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	b.log.Store(l)
}

type result struct {
	img *image.NRGBA
	err error
}

// Compute implements Backend.
func (b *CPUBackend) Compute(ctx context.Context, job *Job) (*image.NRGBA, error) {
	m := job.Take()
	if m == nil {
		return nil, ErrJobConsumed
	}
	if b.closed.Load() {
		m.Release()
		return nil, ErrClosed
	}
	if err := b.sem.Acquire(ctx, 1); err != nil {
		m.Release()
		return nil, err
	}

	done := make(chan result, 1)
	go func() {
		defer b.sem.Release(1)
		img, err := b.run(ctx, m, job)
		done <- result{img, err}
	}()

	select {
	case r := <-done:
		return r.img, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *CPUBackend) run(ctx context.Context, m *raster.Mosaic, job *Job) (*image.NRGBA, error) {
	start := time.Now()
	tileSize, padding := m.TileSize, m.Padding

	orig, err := elevation.Decode(m.Image, b.cfg.Encoding)
	m.Release()
	if err != nil {
		return nil, fmt.Errorf("backend: cpu: %w", err)
	}

	var blurred [shading.NumScales]elevation.Field
	for i, r := range shading.Radii {
		blurred[i], err = filter.Blur(ctx, orig, r, b.pool)
		if err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	padded := shading.Composite(orig, blurred, job.Weights, b.cfg.Response, b.cfg.Tint)
	out := raster.Trim(padded, tileSize, padding)

	b.log.Load().Debug("cpu tile computed",
		"tile", job.Label,
		"size", tileSize,
		"padding", padding,
		"elapsed", time.Since(start))
	return out, nil
}

// Close stops the worker pool. In-flight computations finish on the
// calling goroutines.
func (b *CPUBackend) Close() error {
	if b.closed.CompareAndSwap(false, true) {
		b.pool.Close()
	}
	return nil
}
