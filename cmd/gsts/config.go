package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/spf13/cobra"

	"github.com/gogpu/gsts"
	"github.com/gogpu/gsts/shading"
)

// Config holds the command configuration.
type Config struct {
	Shader  gsts.Config
	Workers int
	GPU     bool
	Logger  *slog.Logger
}

// LoadConfig resolves every setting from flag, then environment, then
// default.
func LoadConfig(cmd *cobra.Command) (Config, error) {
	var cfg Config

	level, err := parseLevel(getConfigString(cmd, "log-level", "GSTS_LOG_LEVEL", "warn"))
	if err != nil {
		return cfg, err
	}
	cfg.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	tint, err := parseTint(getConfigString(cmd, "tint", "GSTS_TINT", "#000000"))
	if err != nil {
		return cfg, err
	}

	shape, err := shading.ParseShape(getConfigString(cmd, "response-shape", "GSTS_RESPONSE_SHAPE", shading.EaseOutSine.String()))
	if err != nil {
		return cfg, err
	}
	response := shading.Curve{
		Shape: shape,
		Max:   float32(getConfigFloat(cmd, "response-max", "GSTS_RESPONSE_MAX", shading.DefaultMax)),
		Scale: float32(getConfigFloat(cmd, "response-scale", "GSTS_RESPONSE_SCALE", shading.DefaultScale)),
	}

	var weights shading.WeightsTable
	if path := getConfigString(cmd, "weights", "GSTS_WEIGHTS", ""); path != "" {
		weights, err = loadWeights(path)
		if err != nil {
			return cfg, err
		}
	}

	cfg.Shader = gsts.Config{
		SourcePattern:     getConfigString(cmd, "source", "GSTS_SOURCE", ""),
		Encoding:          getConfigString(cmd, "encoding", "GSTS_ENCODING", "terrarium"),
		Weights:           weights,
		Tint:              tint,
		Padding:           getConfigInt(cmd, "padding", "GSTS_PADDING", gsts.DefaultPadding),
		TileSize:          getConfigInt(cmd, "tile-size", "GSTS_TILE_SIZE", 0),
		MinZoom:           getConfigInt(cmd, "min-zoom", "GSTS_MIN_ZOOM", 0),
		MaxZoom:           maxZoom(getConfigInt(cmd, "max-zoom", "GSTS_MAX_ZOOM", gsts.DefaultMaxZoom)),
		Response:          response,
		CacheSize:         getConfigInt(cmd, "cache-size", "GSTS_CACHE_SIZE", 0),
		NegativeCacheSize: getConfigInt(cmd, "negative-cache-size", "GSTS_NEGATIVE_CACHE_SIZE", 0),
		NegativeCacheTTL:  getConfigDuration(cmd, "negative-ttl", "GSTS_NEGATIVE_TTL", 0),
	}
	cfg.Workers = getConfigInt(cmd, "workers", "GSTS_WORKERS", 0)
	cfg.GPU = getConfigBool(cmd, "gpu", "GSTS_GPU", false)

	if err := cfg.Shader.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// NewShader creates the shader described by c.
func (c *Config) NewShader() (*gsts.Shader, error) {
	return gsts.New(c.Shader, gsts.WithLogger(c.Logger), gsts.WithWorkers(c.Workers))
}

// maxZoom maps an explicit zoom 0 onto gsts.MaxZoomZero, since a zero
// Config.MaxZoom selects the default.
func maxZoom(z int) int {
	if z == 0 {
		return gsts.MaxZoomZero
	}
	return z
}

func loadWeights(path string) (shading.WeightsTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("weights: %w", err)
	}
	defer f.Close()
	return shading.LoadWeightsTable(f)
}

// parseTint parses a hex color such as "#1e3250" or "1e3250".
func parseTint(s string) (shading.RGB, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return shading.RGB{}, fmt.Errorf("tint %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return shading.RGB{R: r, G: g, B: b}, nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", s, err)
	}
	return l, nil
}

// getConfigString gets a string value from flag, then env, then default.
func getConfigString(cmd *cobra.Command, flagName, envName, defaultValue string) string {
	if cmd.Flags().Changed(flagName) {
		val, _ := cmd.Flags().GetString(flagName)
		return val
	}
	if v := os.Getenv(envName); v != "" {
		return v
	}
	return defaultValue
}

// getConfigInt gets an int value from flag, then env, then default.
func getConfigInt(cmd *cobra.Command, flagName, envName string, defaultValue int) int {
	if cmd.Flags().Changed(flagName) {
		val, _ := cmd.Flags().GetInt(flagName)
		return val
	}
	if v := os.Getenv(envName); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

// getConfigFloat gets a float64 value from flag, then env, then default.
func getConfigFloat(cmd *cobra.Command, flagName, envName string, defaultValue float64) float64 {
	if cmd.Flags().Changed(flagName) {
		val, _ := cmd.Flags().GetFloat64(flagName)
		return val
	}
	if v := os.Getenv(envName); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getConfigBool gets a bool value from flag, then env, then default.
func getConfigBool(cmd *cobra.Command, flagName, envName string, defaultValue bool) bool {
	if cmd.Flags().Changed(flagName) {
		val, _ := cmd.Flags().GetBool(flagName)
		return val
	}
	if v := os.Getenv(envName); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

// getConfigDuration gets a duration from flag, then env, then default.
func getConfigDuration(cmd *cobra.Command, flagName, envName string, defaultValue time.Duration) time.Duration {
	if cmd.Flags().Changed(flagName) {
		val, _ := cmd.Flags().GetDuration(flagName)
		return val
	}
	if v := os.Getenv(envName); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
