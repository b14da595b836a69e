package predictor

import (
	"math"
	"testing"

	"fastprop/pkg/fastprop"
)

func matrixFrom(rows, cols int, data []float64) *fastprop.Matrix {
	return &fastprop.Matrix{Rows: rows, Cols: cols, Data: data}
}

func TestLinearFitRecoversExactLine(t *testing.T) {
	// y = 2x + 1, noiseless, should be recovered near-exactly with a tiny ridge.
	x := matrixFrom(4, 1, []float64{0, 1, 2, 3})
	y := matrixFrom(4, 1, []float64{1, 3, 5, 7})

	l := NewLinear(1e-8)
	if err := l.Fit(x, y, []string{"outcome"}); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	weights := l.FeatureWeights()
	if len(weights) != 1 {
		t.Fatalf("expected one feature weight, got %d", len(weights))
	}
	if math.Abs(weights[0]-2) > 1e-4 {
		t.Fatalf("expected slope ~2, got %v", weights[0])
	}

	pred, err := l.Predict(matrixFrom(1, 1, []float64{10}))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if math.Abs(pred.Get(0, 0)-21) > 1e-3 {
		t.Fatalf("expected prediction ~21 at x=10, got %v", pred.Get(0, 0))
	}
}

func TestLinearPredictBeforeFitErrors(t *testing.T) {
	l := NewLinear(1.0)
	if _, err := l.Predict(matrixFrom(1, 1, []float64{1})); err == nil {
		t.Fatal("expected Predict before Fit to error")
	}
}

func TestLinearFitRowMismatchErrors(t *testing.T) {
	l := NewLinear(1.0)
	x := matrixFrom(3, 1, []float64{1, 2, 3})
	y := matrixFrom(2, 1, []float64{1, 2})
	if err := l.Fit(x, y, []string{"outcome"}); err == nil {
		t.Fatal("expected a row-count mismatch between x and y to error")
	}
}

func TestLinearSaveLoadRoundTrip(t *testing.T) {
	x := matrixFrom(3, 1, []float64{1, 2, 3})
	y := matrixFrom(3, 1, []float64{2, 4, 6})
	l := NewLinear(0.1)
	if err := l.Fit(x, y, []string{"outcome"}); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	blob, err := l.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	restored := NewLinear(0)
	if err := restored.Load(blob); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if restored.Ridge != 0.1 {
		t.Fatalf("expected restored ridge 0.1, got %v", restored.Ridge)
	}
	pred, err := restored.Predict(matrixFrom(1, 1, []float64{4}))
	if err != nil {
		t.Fatalf("Predict on restored predictor: %v", err)
	}
	// Ridge 0.1 also shrinks the intercept: the augmented normal equations
	// give w = (0.1556, 1.9196), so x=4 predicts 7.834, not the
	// unregularized 8.
	if math.Abs(pred.Get(0, 0)-7.834) > 1e-2 {
		t.Fatalf("expected restored predictor to reproduce fitted weights, got %v", pred.Get(0, 0))
	}
}

func TestLinearKindReportsLinear(t *testing.T) {
	if got := NewLinear(1).Kind(); got != string(KindLinear) {
		t.Fatalf("expected kind %q, got %q", KindLinear, got)
	}
}
