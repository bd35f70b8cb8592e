// Package elevation converts between RGBA-encoded elevation rasters and dense
// float32 elevation fields.
//
// Only the terrarium encoding is implemented:
//
//	elevation = r*256 + g + b/256 - 32768
//
// The mapbox encoding is recognized so that configurations naming it fail
// early instead of producing a zeroed field.
package elevation

// Field is a dense row-major grid of elevations in meters.
type Field struct {
	Width  int
	Height int
	Data   []float32
}

// NewField allocates a zeroed field.
func NewField(width, height int) Field {
	return Field{
		Width:  width,
		Height: height,
		Data:   make([]float32, width*height),
	}
}

// At returns the elevation at (x, y). Coordinates outside the field are
// clamped to the nearest edge.
func (f Field) At(x, y int) float32 {
	if x < 0 {
		x = 0
	} else if x >= f.Width {
		x = f.Width - 1
	}
	if y < 0 {
		y = 0
	} else if y >= f.Height {
		y = f.Height - 1
	}
	return f.Data[y*f.Width+x]
}

// Clone returns a deep copy of the field.
func (f Field) Clone() Field {
	out := Field{Width: f.Width, Height: f.Height, Data: make([]float32, len(f.Data))}
	copy(out.Data, f.Data)
	return out
}

// SameSize reports whether both fields share dimensions.
func (f Field) SameSize(o Field) bool {
	return f.Width == o.Width && f.Height == o.Height
}

// MinMax returns the smallest and largest value of the field.
func (f Field) MinMax() (lo, hi float32) {
	if len(f.Data) == 0 {
		return 0, 0
	}
	lo, hi = f.Data[0], f.Data[0]
	for _, v := range f.Data[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
