package preprocess

import (
	"math"
	"testing"

	"fastprop/pkg/columnstore"
	"fastprop/pkg/dataframe"
	"fastprop/pkg/encoding"
)

func newFrame(t *testing.T, nrows int) *dataframe.DataFrame {
	t.Helper()
	reg := encoding.NewRegistry()
	return dataframe.New("t", nrows, reg.JoinKeys(), reg.Categorical)
}

func TestImputationFillsNaNWithMean(t *testing.T) {
	df := newFrame(t, 4)
	col := columnstore.FromSlice("amount", []float64{1, 2, math.NaN(), 5})
	if err := df.AddNumerical("amount", col); err != nil {
		t.Fatalf("AddNumerical: %v", err)
	}

	imp := NewImputation(true)
	out, warnings, err := imp.FitTransform(df)
	if err != nil {
		t.Fatalf("FitTransform: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}

	got, ok := out.Numerical("amount")
	if !ok {
		t.Fatal("expected the imputed column to still be present")
	}
	want := (1.0 + 2.0 + 5.0) / 3.0
	if got.Get(2) != want {
		t.Fatalf("expected NaN replaced with mean %v, got %v", want, got.Get(2))
	}

	dummy, ok := out.Numerical("amount_imputed")
	if !ok {
		t.Fatal("expected a dummy column when AddDummies is set")
	}
	if dummy.Get(2) != 1 || dummy.Get(0) != 0 {
		t.Fatalf("expected dummy column to flag only the imputed row, got %v", []float64{dummy.Get(0), dummy.Get(1), dummy.Get(2), dummy.Get(3)})
	}
}

func TestImputationRejectsInfinite(t *testing.T) {
	df := newFrame(t, 2)
	col := columnstore.FromSlice("amount", []float64{1, math.Inf(1)})
	if err := df.AddNumerical("amount", col); err != nil {
		t.Fatalf("AddNumerical: %v", err)
	}

	imp := NewImputation(false)
	if _, _, err := imp.FitTransform(df); err == nil {
		t.Fatal("expected infinite values to be rejected")
	}
}

func TestImputationRejectsAllNaN(t *testing.T) {
	df := newFrame(t, 2)
	col := columnstore.FromSlice("amount", []float64{math.NaN(), math.NaN()})
	if err := df.AddNumerical("amount", col); err != nil {
		t.Fatalf("AddNumerical: %v", err)
	}

	imp := NewImputation(false)
	if _, _, err := imp.FitTransform(df); err == nil {
		t.Fatal("expected an all-NaN column to be rejected")
	}
}

func TestImputationTransformReusesFittedMean(t *testing.T) {
	train := newFrame(t, 3)
	col := columnstore.FromSlice("amount", []float64{1, 3, math.NaN()})
	if err := train.AddNumerical("amount", col); err != nil {
		t.Fatalf("AddNumerical: %v", err)
	}
	imp := NewImputation(false)
	if _, _, err := imp.FitTransform(train); err != nil {
		t.Fatalf("FitTransform: %v", err)
	}

	test := newFrame(t, 1)
	testCol := columnstore.FromSlice("amount", []float64{math.NaN()})
	if err := test.AddNumerical("amount", testCol); err != nil {
		t.Fatalf("AddNumerical: %v", err)
	}
	out, err := imp.Transform(test)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	got, _ := out.Numerical("amount")
	if got.Get(0) != 2 {
		t.Fatalf("expected the training mean (2) to be reused, got %v", got.Get(0))
	}
}

func TestImputationSaveLoadRoundTrip(t *testing.T) {
	df := newFrame(t, 3)
	col := columnstore.FromSlice("amount", []float64{1, 3, math.NaN()})
	if err := df.AddNumerical("amount", col); err != nil {
		t.Fatalf("AddNumerical: %v", err)
	}
	imp := NewImputation(true)
	if _, _, err := imp.FitTransform(df); err != nil {
		t.Fatalf("FitTransform: %v", err)
	}

	blob, err := imp.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	restored := NewImputation(false)
	if err := restored.Load(blob); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !restored.AddDummies {
		t.Fatal("expected AddDummies restored from snapshot")
	}
	if restored.means["amount"] != 2 {
		t.Fatalf("expected restored mean 2, got %v", restored.means["amount"])
	}
}
