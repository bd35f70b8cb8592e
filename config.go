package gsts

import (
	"fmt"
	"time"

	"github.com/gogpu/gsts/elevation"
	"github.com/gogpu/gsts/shading"
	"github.com/gogpu/gsts/tile"
	"github.com/gogpu/gsts/tilecache"
)

// Defaults.
const (
	DefaultPadding = 60
	DefaultMaxZoom = 22
)

// Config is the shading configuration of a Shader.
type Config struct {
	// SourcePattern locates source tiles, e.g.
	// "https://tiles.example.com/{z}/{x}/{y}.webp" or "/data/{z}/{x}/{y}.png".
	SourcePattern string

	// Encoding of the source tiles. Only "terrarium" is supported.
	// Empty means terrarium.
	Encoding string

	// Weights overrides the built-in per-zoom weights. Zooms not present
	// keep their defaults.
	Weights shading.WeightsTable

	// Tint is the RGB of the overlay. Zero is black.
	Tint shading.RGB

	// Padding is the neighbor border in pixels. 0 means DefaultPadding;
	// use NoPadding to disable neighbors.
	Padding int

	// TileSize, if set, is the expected source tile edge. Source tiles of
	// another size are treated as absent. 0 accepts the size of each
	// center tile.
	TileSize int

	// MinZoom and MaxZoom bound the served zooms. MaxZoom 0 means
	// DefaultMaxZoom; use MaxZoomZero to serve zoom 0 only.
	MinZoom, MaxZoom int

	// Response maps weighted sums to alpha. Nil means
	// shading.DefaultResponse().
	Response shading.Response

	// CacheSize bounds decoded source tiles held. 0 means
	// tilecache.DefaultSize.
	CacheSize int

	// NegativeCacheSize and NegativeCacheTTL bound remembered failures.
	// 0 means the tilecache defaults.
	NegativeCacheSize int
	NegativeCacheTTL  time.Duration
}

// NoPadding disables neighbor padding when set as Config.Padding.
const NoPadding = -1

// MaxZoomZero limits a Shader to zoom 0 when set as Config.MaxZoom.
const MaxZoomZero = -1

// padding returns the effective padding.
func (c Config) padding() int {
	switch c.Padding {
	case 0:
		return DefaultPadding
	case NoPadding:
		return 0
	default:
		return c.Padding
	}
}

func (c Config) maxZoom() int {
	switch c.MaxZoom {
	case 0:
		return DefaultMaxZoom
	case MaxZoomZero:
		return 0
	default:
		return c.MaxZoom
	}
}

func (c Config) encoding() (elevation.Encoding, error) {
	if c.Encoding == "" {
		return elevation.Terrarium, nil
	}
	return elevation.ParseEncoding(c.Encoding)
}

func (c Config) response() shading.Response {
	if c.Response == nil {
		return shading.DefaultResponse()
	}
	return c.Response
}

// Validate checks the configuration. Errors wrap ErrInvalidConfig and,
// where one applies, a more specific sentinel such as
// ErrUnsupportedEncoding or ErrInvalidPadding.
func (c Config) Validate() error {
	if c.SourcePattern == "" {
		return fmt.Errorf("%w: source pattern is required", ErrInvalidConfig)
	}
	if _, err := tile.ParseTemplate(c.SourcePattern); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	enc, err := c.encoding()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := enc.Check(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	p := c.padding()
	if p < 0 {
		return fmt.Errorf("%w: %w: %d", ErrInvalidConfig, ErrInvalidPadding, c.Padding)
	}
	if c.TileSize < 0 {
		return fmt.Errorf("%w: tile size %d", ErrInvalidConfig, c.TileSize)
	}
	if c.TileSize > 0 && p > c.TileSize {
		return fmt.Errorf("%w: %w: %d exceeds tile size %d", ErrInvalidConfig, ErrInvalidPadding, p, c.TileSize)
	}

	maxZ := c.maxZoom()
	if c.MinZoom < 0 || maxZ > tile.MaxZoom || c.MinZoom > maxZ {
		return fmt.Errorf("%w: zoom range [%d, %d]", ErrInvalidConfig, c.MinZoom, maxZ)
	}

	for z := range c.Weights {
		if z < 0 {
			return fmt.Errorf("%w: weights for negative zoom %d", ErrInvalidConfig, z)
		}
	}

	if v, ok := c.Response.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}

	if c.CacheSize < 0 || c.NegativeCacheSize < 0 || c.NegativeCacheTTL < 0 {
		return fmt.Errorf("%w: cache sizes and TTL must not be negative", ErrInvalidConfig)
	}
	return nil
}

// cacheOptions translates the cache settings.
func (c Config) cacheOptions() []tilecache.Option {
	var opts []tilecache.Option
	if c.CacheSize > 0 {
		opts = append(opts, tilecache.WithSize(c.CacheSize))
	}
	if c.NegativeCacheSize > 0 {
		opts = append(opts, tilecache.WithNegativeSize(c.NegativeCacheSize))
	}
	if c.NegativeCacheTTL > 0 {
		opts = append(opts, tilecache.WithNegativeTTL(c.NegativeCacheTTL))
	}
	return opts
}
