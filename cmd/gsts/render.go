package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/gogpu/gsts"
	"github.com/gogpu/gsts/tile"
)

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render [z/x/y]",
		Short: "Render one shading tile to an image file",
		Long: `Render one shading tile and save it. The tile is given as z/x/y or
located with --lon, --lat and --zoom.

Examples:
  gsts render 12/2132/1420 -s 'https://tiles.mapterhorn.com/{z}/{x}/{y}.webp'
  gsts render --lon 7.65 --lat 45.97 --zoom 13 --tint '#1e3250' -o matterhorn.png
  gsts render 12/2132/1420 --base osm.png --resize 256 -o preview.jpg

The output format follows the file extension.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRender,
	}
	f := cmd.Flags()
	f.StringP("out", "o", "", "output file (default z-x-y.png)")
	f.Float64("lon", 0, "longitude of the tile to render")
	f.Float64("lat", 0, "latitude of the tile to render")
	f.IntP("zoom", "z", 12, "zoom used with --lon and --lat")
	f.String("base", "", "image to draw the shading over")
	f.Int("resize", 0, "resize the output to this edge in pixels")
	f.Duration("timeout", time.Minute, "give up after this long")
	return cmd
}

func runRender(cmd *cobra.Command, args []string) error {
	idx, err := renderIndex(cmd, args)
	if err != nil {
		return err
	}
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return err
	}
	s, err := cfg.NewShader()
	if err != nil {
		return err
	}
	defer s.Close()

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	compute := s.ComputeTile
	if cfg.GPU {
		compute = s.ComputeTileGPU
	}
	start := time.Now()
	img, err := compute(ctx, idx)
	switch {
	case errors.Is(err, gsts.ErrCanceled):
		return fmt.Errorf("render %s: %w", idx, ctx.Err())
	case err != nil:
		return err
	case img == nil:
		return fmt.Errorf("render %s: %w", idx, gsts.ErrNoTile)
	}

	var out image.Image = img
	if base, _ := cmd.Flags().GetString("base"); base != "" {
		bg, err := imaging.Open(base)
		if err != nil {
			return fmt.Errorf("base image: %w", err)
		}
		if bg.Bounds().Dx() != img.Bounds().Dx() || bg.Bounds().Dy() != img.Bounds().Dy() {
			bg = imaging.Resize(bg, img.Bounds().Dx(), img.Bounds().Dy(), imaging.Lanczos)
		}
		out = imaging.Overlay(bg, img, image.Point{}, 1)
	}
	if size, _ := cmd.Flags().GetInt("resize"); size > 0 {
		out = imaging.Resize(out, size, size, imaging.Lanczos)
	}

	path, _ := cmd.Flags().GetString("out")
	if path == "" {
		path = fmt.Sprintf("%d-%d-%d.png", idx.Z, idx.X, idx.Y)
	}
	if err := imaging.Save(out, path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Tile: %s\nOutput: %s\nTime: %v\n", idx, path, time.Since(start).Round(time.Millisecond))
	return nil
}

// renderIndex takes the tile from a z/x/y argument or from --lon/--lat.
func renderIndex(cmd *cobra.Command, args []string) (tile.Index, error) {
	if len(args) == 1 {
		return parseTileArg(args[0])
	}
	if !cmd.Flags().Changed("lon") || !cmd.Flags().Changed("lat") {
		return tile.Index{}, errors.New("render: give z/x/y or both --lon and --lat")
	}
	lon, _ := cmd.Flags().GetFloat64("lon")
	lat, _ := cmd.Flags().GetFloat64("lat")
	zoom, _ := cmd.Flags().GetInt("zoom")
	if lat < -85.0511 || lat > 85.0511 || lon < -180 || lon > 180 {
		return tile.Index{}, fmt.Errorf("render: %.4f, %.4f is outside web mercator", lon, lat)
	}
	if zoom < 0 || zoom > tile.MaxZoom {
		return tile.Index{}, fmt.Errorf("render: zoom %d out of range", zoom)
	}
	return tile.At(lon, lat, zoom), nil
}

// parseTileArg parses "z/x/y".
func parseTileArg(s string) (tile.Index, error) {
	parts := strings.Split(strings.TrimSuffix(s, ".png"), "/")
	if len(parts) != 3 {
		return tile.Index{}, fmt.Errorf("tile %q: want z/x/y", s)
	}
	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return tile.Index{}, fmt.Errorf("tile %q: %w", s, err)
		}
		v[i] = n
	}
	return tile.Index{Z: v[0], X: v[1], Y: v[2]}, nil
}
