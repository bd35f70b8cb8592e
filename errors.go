package gsts

import (
	"errors"

	"github.com/gogpu/gsts/backend"
	"github.com/gogpu/gsts/elevation"
	"github.com/gogpu/gsts/raster"
)

var (
	// ErrNoTile is returned by a ProtocolFunc when no source tile exists at
	// the requested index. ComputeTile reports the same case as (nil, nil).
	ErrNoTile = errors.New("gsts: no tile")

	// ErrCanceled is returned when the context ends before the tile is done.
	ErrCanceled = errors.New("gsts: canceled")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("gsts: invalid config")

	// ErrInvalidPadding is returned for a padding outside [0, tile size].
	ErrInvalidPadding = raster.ErrInvalidPadding

	// ErrUnsupportedEncoding is returned for the mapbox encoding.
	ErrUnsupportedEncoding = elevation.ErrUnsupportedEncoding

	// ErrBackendUnavailable is returned when the GPU cannot be initialized.
	ErrBackendUnavailable = backend.ErrUnavailable
)
