package geom

import (
	"math"
	"testing"
)

func TestLerp(t *testing.T) {
	a := Pt(0, 0, 0)
	b := Pt(10, -4, 2)

	tests := []struct {
		name string
		t    float64
		want Point
	}{
		{"start", 0, a},
		{"end", 1, b},
		{"middle", 0.5, Pt(5, -2, 1)},
		{"quarter", 0.25, Pt(2.5, -1, 0.5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Lerp(a, b, tt.t); got != tt.want {
				t.Errorf("Lerp(%v) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}
}

func TestDistance(t *testing.T) {
	if got := Distance(Pt(1, 2, 3), Pt(4, 6, 3)); got != 5 {
		t.Errorf("Distance() = %v, want 5", got)
	}
	if got := Distance(Pt(1, 1, 1), Pt(1, 1, 1)); got != 0 {
		t.Errorf("Distance() = %v, want 0", got)
	}
}

func TestFinite(t *testing.T) {
	if !Finite(Pt(1, 2, 3)) {
		t.Error("Finite(1,2,3) = false, want true")
	}
	if Finite(Pt(math.NaN(), 0, 0)) {
		t.Error("Finite(NaN) = true, want false")
	}
	if Finite(Pt(0, 0, math.Inf(-1))) {
		t.Error("Finite(-Inf) = true, want false")
	}
}

func TestFormat(t *testing.T) {
	if got := Format(Pt(1, 2.5, -3), 2); got != "(1.00, 2.50, -3.00)" {
		t.Errorf("Format() = %q", got)
	}
}
