package shading

import (
	"errors"
	"math"
	"strings"
	"testing"
)

var allShapes = []Shape{EaseOutSine, Linear, EaseOutQuad, EaseOutCubic, EaseInOutSine}

func TestCurveProperties(t *testing.T) {
	for _, shape := range allShapes {
		c := Curve{Shape: shape, Max: 3000, Scale: 255}
		t.Run(shape.String(), func(t *testing.T) {
			if got := c.Respond(0); got != 0 {
				t.Errorf("Respond(0) = %v, want 0", got)
			}
			prev := float32(0)
			for v := float32(0); v <= 4000; v += 25 {
				got := c.Respond(v)
				if got < prev {
					t.Fatalf("Respond(%v) = %v decreased from %v", v, got, prev)
				}
				prev = got
			}
			top := c.Respond(3000)
			if math.Abs(float64(top-255)) > 1e-3 {
				t.Errorf("Respond(max) = %v, want 255", top)
			}
			if c.Respond(3001) != top || c.Respond(1e9) != top {
				t.Error("Respond does not saturate above max")
			}
			if c.Respond(-10) != 0 {
				t.Errorf("Respond(-10) = %v, want 0", c.Respond(-10))
			}
		})
	}
}

func TestCurveValues(t *testing.T) {
	tests := []struct {
		shape Shape
		x     float64
		want  float64
	}{
		{EaseOutSine, 0.5, math.Sin(math.Pi / 4)},
		{Linear, 0.25, 0.25},
		{EaseOutQuad, 0.5, 0.75},
		{EaseOutCubic, 0.5, 0.875},
		{EaseInOutSine, 0.5, 0.5},
	}
	for _, tt := range tests {
		c := Curve{Shape: tt.shape, Max: 100, Scale: 1}
		got := c.Respond(float32(tt.x * 100))
		if math.Abs(float64(got)-tt.want) > 1e-6 {
			t.Errorf("%v.Respond(%v) = %v, want %v", tt.shape, tt.x*100, got, tt.want)
		}
	}
}

func TestDefaultResponse(t *testing.T) {
	c := DefaultResponse()
	if c.Shape != EaseOutSine || c.Max != 3000 || c.Scale != 255 {
		t.Errorf("DefaultResponse() = %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestCurveValidate(t *testing.T) {
	bad := []Curve{
		{Shape: EaseOutSine, Max: 0, Scale: 255},
		{Shape: EaseOutSine, Max: -1, Scale: 255},
		{Shape: EaseOutSine, Max: 10, Scale: -1},
		{Shape: Shape(42), Max: 10, Scale: 1},
	}
	for _, c := range bad {
		if err := c.Validate(); err == nil {
			t.Errorf("Validate(%+v) = nil, want error", c)
		}
	}
}

func TestParseShape(t *testing.T) {
	for _, s := range allShapes {
		got, err := ParseShape(s.String())
		if err != nil || got != s {
			t.Errorf("ParseShape(%q) = %v, %v", s.String(), got, err)
		}
	}
	if got, err := ParseShape("EaseOutCubic"); err != nil || got != EaseOutCubic {
		t.Errorf("ParseShape(EaseOutCubic) = %v, %v", got, err)
	}
	if _, err := ParseShape("bounce"); !errors.Is(err, ErrUnknownShape) {
		t.Errorf("ParseShape(bounce) error = %v", err)
	}
}

func TestCurveWGSL(t *testing.T) {
	src := Curve{Shape: EaseOutSine, Max: 3000, Scale: 255}.WGSL()
	for _, want := range []string{"fn respond(v: f32) -> f32", "3000.0", "255.0", "sin("} {
		if !strings.Contains(src, want) {
			t.Errorf("WGSL() missing %q:\n%s", want, src)
		}
	}
	if got := wgslFloat(0.5); got != "0.5" {
		t.Errorf("wgslFloat(0.5) = %q", got)
	}
}
