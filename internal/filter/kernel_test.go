package filter

import (
	"math"
	"testing"
)

func TestKernelIdentity(t *testing.T) {
	for _, r := range []int{0, -3} {
		k := Kernel(r, DefaultKernelMass)
		if len(k) != 1 || k[0] != 1 {
			t.Errorf("Kernel(%d) = %v, want [1]", r, k)
		}
	}
}

func TestKernelProperties(t *testing.T) {
	masses := []float64{DefaultKernelMass, BlurMass, 0.5}
	for _, mass := range masses {
		for _, r := range []int{1, 2, 3, 7, 15, 30, 60} {
			k := Kernel(r, mass)
			if len(k) != 2*r+1 {
				t.Fatalf("Kernel(%d, %v) len = %d, want %d", r, mass, len(k), 2*r+1)
			}

			var sum float64
			for i, v := range k {
				if v < 0 {
					t.Fatalf("Kernel(%d, %v)[%d] = %v is negative", r, mass, i, v)
				}
				sum += float64(v)
				if j := len(k) - 1 - i; math.Abs(float64(k[i]-k[j])) > 1e-7 {
					t.Fatalf("Kernel(%d, %v) asymmetric at %d", r, mass, i)
				}
			}
			if math.Abs(sum-1) > 1e-5 {
				t.Errorf("Kernel(%d, %v) sum = %v, want 1", r, mass, sum)
			}
			if k[r] < k[0] {
				t.Errorf("Kernel(%d, %v) center %v below tail %v", r, mass, k[r], k[0])
			}
		}
	}
}

func TestSigmaFromRadius(t *testing.T) {
	tests := []struct {
		mass float64
		z    float64
	}{
		{0.99, 2.575829},
		{0.95, 1.959964},
	}
	for _, tt := range tests {
		got := SigmaFromRadius(10, tt.mass)
		want := 10 / tt.z
		if math.Abs(got-want) > 1e-5 {
			t.Errorf("SigmaFromRadius(10, %v) = %v, want %v", tt.mass, got, want)
		}
	}

	if SigmaFromRadius(0, 0.99) != minSigma {
		t.Error("SigmaFromRadius(0) should return the minimum sigma")
	}
}

func TestHigherMassIsNarrower(t *testing.T) {
	wide := Kernel(10, 0.5)
	narrow := Kernel(10, BlurMass)
	if narrow[10] <= wide[10] {
		t.Errorf("center weight at 0.99 (%v) should exceed center at 0.5 (%v)", narrow[10], wide[10])
	}
}

func TestRadiusKernelCached(t *testing.T) {
	a := RadiusKernel(15)
	b := RadiusKernel(15)
	if &a[0] != &b[0] {
		t.Error("RadiusKernel(15) returned a new slice on second call")
	}
	want := Kernel(15, BlurMass)
	for i := range want {
		if a[i] != want[i] {
			t.Fatalf("RadiusKernel(15)[%d] = %v, want %v", i, a[i], want[i])
		}
	}
}
