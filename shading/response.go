package shading

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Response maps a non-negative weighted sum to an alpha value.
//
// Implementations must return 0 for 0 and be monotonically non-decreasing.
type Response interface {
	Respond(v float32) float32

	// WGSL returns the same function as WGSL source declaring
	// fn respond(v: f32) -> f32.
	WGSL() string
}

// Shape is the easing function of a Curve.
type Shape uint8

// Curve shapes.
const (
	EaseOutSine Shape = iota
	Linear
	EaseOutQuad
	EaseOutCubic
	EaseInOutSine
)

var shapeNames = map[Shape]string{
	EaseOutSine:   "ease-out-sine",
	Linear:        "linear",
	EaseOutQuad:   "ease-out-quad",
	EaseOutCubic:  "ease-out-cubic",
	EaseInOutSine: "ease-in-out-sine",
}

// String returns the configuration name of the shape.
func (s Shape) String() string {
	if n, ok := shapeNames[s]; ok {
		return n
	}
	return "Shape(" + strconv.Itoa(int(s)) + ")"
}

// ErrUnknownShape is returned by ParseShape.
var ErrUnknownShape = errors.New("shading: unknown response shape")

// ParseShape maps a configuration name to a Shape.
func ParseShape(s string) (Shape, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for shape, name := range shapeNames {
		if s == name || s == strings.ReplaceAll(name, "-", "") {
			return shape, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownShape, s)
}

// Default response parameters.
const (
	DefaultMax   = 3000
	DefaultScale = 255
)

// Curve is a saturating response: the input is clamped to [0, Max],
// normalized, eased by Shape and multiplied by Scale.
type Curve struct {
	Shape Shape
	Max   float32
	Scale float32
}

// DefaultResponse returns the ease-out-sine curve saturating at 3000.
func DefaultResponse() Curve {
	return Curve{Shape: EaseOutSine, Max: DefaultMax, Scale: DefaultScale}
}

// Validate checks the curve parameters.
func (c Curve) Validate() error {
	if _, ok := shapeNames[c.Shape]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownShape, c.Shape)
	}
	if !(c.Max > 0) || math.IsInf(float64(c.Max), 0) {
		return fmt.Errorf("shading: response max must be positive, got %v", c.Max)
	}
	if c.Scale < 0 || math.IsNaN(float64(c.Scale)) {
		return fmt.Errorf("shading: response scale must be non-negative, got %v", c.Scale)
	}
	return nil
}

// Respond implements Response.
func (c Curve) Respond(v float32) float32 {
	x := float64(v) / float64(c.Max)
	if !(x > 0) {
		return 0
	}
	if x > 1 {
		x = 1
	}

	var y float64
	switch c.Shape {
	case Linear:
		y = x
	case EaseOutQuad:
		y = 1 - (1-x)*(1-x)
	case EaseOutCubic:
		y = 1 - (1-x)*(1-x)*(1-x)
	case EaseInOutSine:
		y = -(math.Cos(math.Pi*x) - 1) / 2
	default:
		y = math.Sin(x * math.Pi / 2)
	}
	return float32(y * float64(c.Scale))
}

// WGSL implements Response.
func (c Curve) WGSL() string {
	var ease string
	switch c.Shape {
	case Linear:
		ease = "x"
	case EaseOutQuad:
		ease = "1.0 - (1.0 - x) * (1.0 - x)"
	case EaseOutCubic:
		ease = "1.0 - (1.0 - x) * (1.0 - x) * (1.0 - x)"
	case EaseInOutSine:
		ease = "-(cos(PI * x) - 1.0) / 2.0"
	default:
		ease = "sin(x * PI / 2.0)"
	}
	return fmt.Sprintf(`fn respond(v: f32) -> f32 {
    let x = clamp(v / %s, 0.0, 1.0);
    return (%s) * %s;
}
`, wgslFloat(c.Max), ease, wgslFloat(c.Scale))
}

// wgslFloat formats f as a WGSL abstract float literal.
func wgslFloat(f float32) string {
	s := strconv.FormatFloat(float64(f), 'f', -1, 32)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
