package main

import (
	"github.com/spf13/cobra"

	"github.com/gogpu/gsts"
	"github.com/gogpu/gsts/shading"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gsts",
		Short: "Gaussian scale-space terrain shading",
		Long: `gsts turns terrarium elevation tiles into a translucent overlay that
shades concave terrain (valleys, gullies, basins).

Configuration can be set via GSTS_* environment variables or command-line
flags. Flags take precedence over environment variables.`,
		SilenceUsage: true,
		Version:      gsts.Version,
	}

	f := root.PersistentFlags()
	f.StringP("source", "s", "", "source tile pattern with {z}, {x}, {y} (env GSTS_SOURCE)")
	f.String("encoding", "terrarium", "source elevation encoding (env GSTS_ENCODING)")
	f.String("tint", "#000000", "overlay color as hex (env GSTS_TINT)")
	f.Int("padding", gsts.DefaultPadding, "neighbor padding in pixels, -1 for none (env GSTS_PADDING)")
	f.Int("tile-size", 0, "expected source tile size, 0 accepts any (env GSTS_TILE_SIZE)")
	f.Int("min-zoom", 0, "minimum served zoom (env GSTS_MIN_ZOOM)")
	f.Int("max-zoom", gsts.DefaultMaxZoom, "maximum served zoom (env GSTS_MAX_ZOOM)")
	f.String("weights", "", "JSON file overriding per-zoom weights (env GSTS_WEIGHTS)")
	f.String("response-shape", shading.EaseOutSine.String(), "response curve shape (env GSTS_RESPONSE_SHAPE)")
	f.Float64("response-max", shading.DefaultMax, "weighted sum at which the response saturates (env GSTS_RESPONSE_MAX)")
	f.Float64("response-scale", shading.DefaultScale, "alpha at saturation (env GSTS_RESPONSE_SCALE)")
	f.Int("cache-size", 0, "decoded source tiles kept in memory (env GSTS_CACHE_SIZE)")
	f.Int("negative-cache-size", 0, "failed locators remembered (env GSTS_NEGATIVE_CACHE_SIZE)")
	f.Duration("negative-ttl", 0, "how long failed locators are remembered (env GSTS_NEGATIVE_TTL)")
	f.Int("workers", 0, "CPU workers per tile, 0 for GOMAXPROCS (env GSTS_WORKERS)")
	f.Bool("gpu", false, "compute tiles on the GPU (env GSTS_GPU)")
	f.String("log-level", "warn", "log level: debug, info, warn, error (env GSTS_LOG_LEVEL)")

	root.AddCommand(newRenderCmd(), newServeCmd(), newWeightsCmd())
	return root
}
