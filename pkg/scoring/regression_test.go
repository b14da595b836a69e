package scoring

import (
	"math"
	"testing"
)

func TestMAE(t *testing.T) {
	got := MAE([]float64{1, 2, 3}, []float64{1, 4, 6})
	want := (0.0 + 2.0 + 3.0) / 3.0
	if got != want {
		t.Fatalf("expected MAE %v, got %v", want, got)
	}
}

func TestMAEEmptyIsNaN(t *testing.T) {
	if got := MAE(nil, nil); !math.IsNaN(got) {
		t.Fatalf("expected NaN for empty input, got %v", got)
	}
}

func TestRMSE(t *testing.T) {
	got := RMSE([]float64{0, 0}, []float64{3, 4})
	want := math.Sqrt((9.0 + 16.0) / 2.0)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected RMSE %v, got %v", want, got)
	}
}

func TestRSquaredPerfectFit(t *testing.T) {
	got := RSquared([]float64{1, 2, 3}, []float64{1, 2, 3})
	if got != 1 {
		t.Fatalf("expected R2 of 1 for a perfect fit, got %v", got)
	}
}

func TestRSquaredConstantActualIsZero(t *testing.T) {
	got := RSquared([]float64{1, 2, 3}, []float64{5, 5, 5})
	if got != 0 {
		t.Fatalf("expected R2 of 0 when actual has zero variance, got %v", got)
	}
}

func TestRSquaredWorseThanMeanIsNegative(t *testing.T) {
	got := RSquared([]float64{10, -10, 10}, []float64{1, 2, 3})
	if got >= 0 {
		t.Fatalf("expected a negative R2 for predictions worse than the mean baseline, got %v", got)
	}
}
