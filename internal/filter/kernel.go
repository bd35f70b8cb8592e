package filter

import (
	"math"

	"github.com/gogpu/gsts/internal/cache"
)

// Central mass fractions used to derive sigma from a radius.
const (
	// DefaultKernelMass is used when a kernel is built directly.
	DefaultKernelMass = 0.95

	// BlurMass is used for the scale-space blur radii.
	BlurMass = 0.99
)

// minSigma keeps degenerate kernels finite.
const minSigma = 1e-6

// SigmaFromRadius returns the standard deviation for which centralMass of a
// normal distribution lies within ±radius.
//
//	sigma = radius / (sqrt(2) * erfinv(centralMass))
func SigmaFromRadius(radius int, centralMass float64) float64 {
	if radius <= 0 || centralMass <= 0 || centralMass >= 1 {
		return minSigma
	}
	z := math.Sqrt2 * math.Erfinv(centralMass)
	return float64(radius) / z
}

// Kernel builds a normalized 1D Gaussian kernel of length 2*radius+1.
// For radius <= 0 it returns the identity kernel [1].
func Kernel(radius int, centralMass float64) []float32 {
	if radius <= 0 {
		return []float32{1}
	}

	sigma := SigmaFromRadius(radius, centralMass)
	twoSigmaSq := 2 * sigma * sigma

	weights := make([]float64, 2*radius+1)
	sum := 0.0
	for i := range weights {
		x := float64(i - radius)
		weights[i] = math.Exp(-(x * x) / twoSigmaSq)
		sum += weights[i]
	}

	kernel := make([]float32, len(weights))
	for i, w := range weights {
		kernel[i] = float32(w / sum)
	}
	return kernel
}

var radiusKernels = cache.New[int, []float32](32, nil)

// RadiusKernel returns the cached blur kernel for radius, built with BlurMass.
// The returned slice is shared and must not be modified.
func RadiusKernel(radius int) []float32 {
	return radiusKernels.GetOrCreate(radius, func() []float32 {
		return Kernel(radius, BlurMass)
	})
}
