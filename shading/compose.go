package shading

import (
	"fmt"
	"image"

	"github.com/gogpu/gsts/elevation"
)

// RGB is the constant tint of the shading wash.
type RGB struct {
	R, G, B uint8
}

// String formats the color as #rrggbb.
func (c RGB) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Delta returns max(0, blurred - original) per pixel.
func Delta(blurred, original elevation.Field) elevation.Field {
	out := elevation.NewField(original.Width, original.Height)
	for i, o := range original.Data {
		if d := blurred.Data[i] - o; d > 0 {
			out.Data[i] = d
		}
	}
	return out
}

// WeightedSum returns Σ deltas[i] * w[i] per pixel, with deltas in Radii order.
func WeightedSum(deltas [NumScales]elevation.Field, w Weights) elevation.Field {
	wv := w.Values()
	out := elevation.NewField(deltas[0].Width, deltas[0].Height)
	for s, d := range deltas {
		for i, v := range d.Data {
			out.Data[i] += v * wv[s]
		}
	}
	return out
}

// Respond maps every value of f through r.
func Respond(f elevation.Field, r Response) elevation.Field {
	out := elevation.NewField(f.Width, f.Height)
	for i, v := range f.Data {
		out.Data[i] = r.Respond(v)
	}
	return out
}

// Tint builds an image with the tint color in every pixel and alpha taken
// from the field, clamped to [0, 255] and rounded.
func Tint(alpha elevation.Field, c RGB) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, alpha.Width, alpha.Height))
	tintInto(img, alpha.Data, c)
	return img
}

// Shade evaluates the whole per-pixel formula for one pixel:
//
//	respond(Σ max(0, blurred[i] - orig) * w[i])
func Shade(orig float32, blurred [NumScales]float32, w [NumScales]float32, r Response) float32 {
	var sum float32
	for i, b := range blurred {
		if d := b - orig; d > 0 {
			sum += d * w[i]
		}
	}
	return r.Respond(sum)
}

// Composite applies Shade to every pixel and tints the result. It produces
// the same image as Tint(Respond(WeightedSum(deltas), r), c) without the
// intermediate fields.
func Composite(orig elevation.Field, blurred [NumScales]elevation.Field, w Weights, r Response, c RGB) *image.NRGBA {
	wv := w.Values()
	alpha := make([]float32, len(orig.Data))
	var px [NumScales]float32
	for i, o := range orig.Data {
		for s := range blurred {
			px[s] = blurred[s].Data[i]
		}
		alpha[i] = Shade(o, px, wv, r)
	}
	img := image.NewNRGBA(image.Rect(0, 0, orig.Width, orig.Height))
	tintInto(img, alpha, c)
	return img
}

func tintInto(img *image.NRGBA, alpha []float32, c RGB) {
	for i, a := range alpha {
		p := img.Pix[i*4 : i*4+4 : i*4+4]
		p[0] = c.R
		p[1] = c.G
		p[2] = c.B
		p[3] = toByte(a)
	}
}

func toByte(v float32) uint8 {
	switch {
	case !(v > 0):
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
