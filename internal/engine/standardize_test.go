package engine

import (
	"errors"
	"math"
	"testing"
)

func TestFitMinMax(t *testing.T) {
	min, max, err := fitMinMax("gdp", []float64{3, 1, 2, 5, 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if min != 1 || max != 5 {
		t.Errorf("got min=%f max=%f, want 1 and 5", min, max)
	}
}

func TestFitRejectsDegenerateColumn(t *testing.T) {
	_, _, err := fitMinMax("gdp", []float64{2, 2, 2})
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected insufficient data error, got %v", err)
	}
	_, _, err = fitZScore("gdp", []float64{7})
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected insufficient data error, got %v", err)
	}
}

func TestFitRejectsMissingValue(t *testing.T) {
	_, _, err := fitMinMax("gdp", []float64{1, math.NaN(), 3})
	if !errors.Is(err, ErrMissingValue) {
		t.Errorf("expected missing value error, got %v", err)
	}
}

func TestApplyMinMaxBoundsAndClamping(t *testing.T) {
	tests := []struct {
		name string
		v    float64
		want float64
	}{
		{"training min maps to 0", 10, 0},
		{"training max maps to 1", 20, 1},
		{"midpoint", 15, 0.5},
		{"below range clamps", 5, 0},
		{"above range clamps", 25, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := applyMinMax(tt.v, 10, 20); got != tt.want {
				t.Errorf("applyMinMax(%f) = %f, want %f", tt.v, got, tt.want)
			}
		})
	}
}

func TestApplyDegenerateParamsAreNeutral(t *testing.T) {
	if got := applyMinMax(7, 3, 3); got != 0.5 {
		t.Errorf("min==max should map to 0.5, got %f", got)
	}
	if got := applyZScore(7, 3, 0); got != 0 {
		t.Errorf("stddev==0 should map to 0, got %f", got)
	}
}

func TestFitZScore(t *testing.T) {
	mean, stddev, err := fitZScore("gdp", []float64{2, 4, 4, 4, 5, 5, 7, 9})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(mean-5) > 1e-12 {
		t.Errorf("mean = %f, want 5", mean)
	}
	// sample stddev with n-1 denominator
	if math.Abs(stddev-math.Sqrt(32.0/7.0)) > 1e-12 {
		t.Errorf("stddev = %f, want %f", stddev, math.Sqrt(32.0/7.0))
	}
	z := applyZScore(5, mean, stddev)
	if math.Abs(z) > 1e-12 {
		t.Errorf("z of the mean should be 0, got %f", z)
	}
}

func TestApplyDirection(t *testing.T) {
	if got := applyDirection(3, DirectionNegative); got != -3 {
		t.Errorf("negative direction should negate, got %f", got)
	}
	if got := applyDirection(3, DirectionPositive); got != 3 {
		t.Errorf("positive direction should pass through, got %f", got)
	}
}
