package backend

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/gsts/elevation"
	"github.com/gogpu/gsts/raster"
	"github.com/gogpu/gsts/shading"
)

// Common backend errors.
var (
	// ErrUnavailable is returned when a backend is not registered or cannot
	// acquire its device.
	ErrUnavailable = errors.New("backend: not available")

	// ErrJobConsumed is returned when a job's mosaic has already been taken.
	ErrJobConsumed = errors.New("backend: job already consumed")

	// ErrClosed is returned by Compute after Close.
	ErrClosed = errors.New("backend: closed")
)

// Backend computes shaded tiles.
type Backend interface {
	// Name returns the registry name of the backend.
	Name() string

	// Compute runs the pipeline on the job's mosaic and returns a
	// TileSize×TileSize image owned by the caller. It takes ownership of the
	// mosaic. If ctx is done first, Compute returns ctx.Err() and abandons
	// the computation.
	Compute(ctx context.Context, job *Job) (*image.NRGBA, error)

	// Close releases backend resources.
	Close() error
}

// Config is shared by all backend factories.
type Config struct {
	// Encoding of the source tiles.
	Encoding elevation.Encoding

	// Response maps weighted sums to alpha. Nil means shading.DefaultResponse().
	Response shading.Response

	// Tint is the RGB of every output pixel.
	Tint shading.RGB

	// Workers bounds CPU parallelism within one tile. 0 means GOMAXPROCS.
	Workers int

	// MaxConcurrent bounds the number of tiles computed at once. 0 means 2.
	MaxConcurrent int

	// DeviceProvider shares an existing GPU device. Ignored by the CPU backend.
	DeviceProvider gpucontext.DeviceProvider

	// Logger receives diagnostics. Nil disables logging.
	Logger *slog.Logger
}

// WithDefaults returns a copy of c with zero fields filled in.
func (c Config) WithDefaults() Config {
	if c.Encoding == 0 {
		c.Encoding = elevation.Terrarium
	}
	if c.Response == nil {
		c.Response = shading.DefaultResponse()
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 2
	}
	if c.Logger == nil {
		c.Logger = slog.New(nopHandler{})
	}
	return c
}

// Job is one tile computation.
type Job struct {
	mosaic atomic.Pointer[raster.Mosaic]

	// Weights for the tile's zoom level.
	Weights shading.Weights

	// Label identifies the tile in logs.
	Label string
}

// NewJob wraps m. The job owns m until Take is called.
func NewJob(m *raster.Mosaic, w shading.Weights) *Job {
	j := &Job{Weights: w}
	j.mosaic.Store(m)
	return j
}

// Take returns the mosaic and leaves the job empty. It returns nil if the
// mosaic was already taken.
func (j *Job) Take() *raster.Mosaic {
	return j.mosaic.Swap(nil)
}

// Release frees the mosaic if nobody took it.
func (j *Job) Release() {
	if m := j.Take(); m != nil {
		m.Release()
	}
}

// nopHandler discards all records.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }
