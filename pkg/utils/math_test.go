package utils

import (
	"math"
	"testing"
)

func TestNormalizeL2(t *testing.T) {
	x := []float32{3, 4}
	NormalizeL2(x)
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(sum)-1) > 1e-6 {
		t.Errorf("norm after NormalizeL2 = %v, want 1", math.Sqrt(sum))
	}

	zero := []float32{0, 0, 0}
	NormalizeL2(zero)
	for i, v := range zero {
		if v != 0 {
			t.Errorf("zero vector changed at %d: %v", i, v)
		}
	}
}

func TestRoundTo(t *testing.T) {
	tests := []struct {
		x        float64
		decimals int
		want     float64
	}{
		{0.87654321, 4, 0.8765},
		{0.86956521, 4, 0.8696},
		{-0.12344, 4, -0.1234},
		{1.0, 4, 1.0},
		{0.5, 0, 1.0},
		{0.25, 1, 0.3},
		{-0.25, 1, -0.3},
	}
	for _, tt := range tests {
		got := RoundTo(tt.x, tt.decimals)
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("RoundTo(%v, %d) = %v, want %v", tt.x, tt.decimals, got, tt.want)
		}
	}
}
