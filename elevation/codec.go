package elevation

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"math"
	"strings"
)

// Terrarium constants.
const (
	// Offset is added to the elevation before splitting it into channels.
	Offset = 32768

	// Step is the elevation quantum carried by one unit of the blue channel.
	Step = 1.0 / 256

	// MinElevation and MaxElevation bound the representable range.
	MinElevation = -Offset
	MaxElevation = Offset - Step
)

// Encoding identifies how elevation is packed into RGB channels.
type Encoding uint8

const (
	// Terrarium is the Mapzen terrarium encoding.
	Terrarium Encoding = iota + 1

	// Mapbox is the Mapbox Terrain-RGB encoding. Recognized, not implemented.
	Mapbox
)

// Errors returned by the codec.
var (
	// ErrUnknownEncoding is returned for an encoding name that is not recognized.
	ErrUnknownEncoding = errors.New("elevation: unknown encoding")

	// ErrUnsupportedEncoding is returned for a recognized encoding that has no decoder.
	ErrUnsupportedEncoding = errors.New("elevation: unsupported encoding")
)

// ParseEncoding maps a configuration value to an Encoding.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "terrarium":
		return Terrarium, nil
	case "mapbox", "terrain-rgb":
		return Mapbox, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownEncoding, s)
	}
}

// String returns the configuration name of the encoding.
func (e Encoding) String() string {
	switch e {
	case Terrarium:
		return "terrarium"
	case Mapbox:
		return "mapbox"
	default:
		return fmt.Sprintf("Encoding(%d)", uint8(e))
	}
}

// Check returns nil if the encoding can be decoded.
func (e Encoding) Check() error {
	switch e {
	case Terrarium:
		return nil
	case Mapbox:
		return fmt.Errorf("%w: %s", ErrUnsupportedEncoding, e)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownEncoding, e)
	}
}

// Decode converts every pixel of img into an elevation.
func Decode(img *image.NRGBA, enc Encoding) (Field, error) {
	if err := enc.Check(); err != nil {
		return Field{}, err
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	f := NewField(w, h)
	for y := 0; y < h; y++ {
		i := img.PixOffset(b.Min.X, b.Min.Y+y)
		row := f.Data[y*w : (y+1)*w]
		for x := range row {
			row[x] = DecodeRGB(img.Pix[i], img.Pix[i+1], img.Pix[i+2])
			i += 4
		}
	}
	return f, nil
}

// DecodeRGB decodes one terrarium pixel.
func DecodeRGB(r, g, b uint8) float32 {
	return float32(float64(r)*256 + float64(g) + float64(b)/256 - Offset)
}

// Encode splits an elevation into terrarium channels normalized to [0, 1].
// Elevations outside the representable range are clamped.
func Encode(e float32) (r, g, b float32) {
	rb, gb, bb := encodeBytes(e)
	return float32(rb) / 255, float32(gb) / 255, float32(bb) / 255
}

// Pack encodes an elevation into a little-endian RGBA8 word with opaque alpha,
// the byte order of an NRGBA pixel.
func Pack(e float32) uint32 {
	r, g, b := encodeBytes(e)
	return uint32(r) | uint32(g)<<8 | uint32(b)<<16 | 0xFF<<24
}

// Unpack decodes a word produced by Pack.
func Unpack(p uint32) float32 {
	return DecodeRGB(uint8(p), uint8(p>>8), uint8(p>>16)) //nolint:gosec // byte extraction
}

// PackField encodes every value of f as terrarium NRGBA pixels, 4 bytes per
// pixel, ready to copy into an image.NRGBA of the same size.
func PackField(f Field) []byte {
	out := make([]byte, len(f.Data)*4)
	for i, v := range f.Data {
		binary.LittleEndian.PutUint32(out[i*4:], Pack(v))
	}
	return out
}

func encodeBytes(e float32) (r, g, b uint8) {
	v := float64(e) + Offset
	if v < 0 {
		v = 0
	} else if v > Offset*2-Step {
		v = Offset*2 - Step
	}
	rf := math.Floor(v / 256)
	gf := math.Floor(v - rf*256)
	bf := math.Floor((v-rf*256-gf)*256 + 0.5)
	if bf > 255 {
		bf = 255
	}
	return uint8(rf), uint8(gf), uint8(bf)
}
