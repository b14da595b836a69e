package preprocess

import (
	"math"
	"testing"

	"fastprop/pkg/cache"
	"fastprop/pkg/columnstore"
	"fastprop/pkg/sqltranspiler"
)

func TestChainRunsStagesInOrder(t *testing.T) {
	df := newFrame(t, 3)
	col := columnstore.FromSlice("amount", []float64{1, 2, math.NaN()})
	if err := df.AddNumerical("amount", col); err != nil {
		t.Fatalf("AddNumerical: %v", err)
	}

	chain := NewChain(NewImputation(true))
	out, warnings, err := chain.FitTransform(df)
	if err != nil {
		t.Fatalf("FitTransform: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	got, ok := out.Numerical("amount")
	if !ok || got.Get(2) != 1.5 {
		t.Fatalf("expected imputation stage to fill the NaN with the mean 1.5, got %v ok=%v", got, ok)
	}
	if _, ok := out.Numerical("amount_imputed"); !ok {
		t.Fatal("expected the imputation stage's dummy column to survive the chain")
	}
}

func TestChainFingerprintFoldsOverStages(t *testing.T) {
	single := NewChain(NewImputation(true))
	double := NewChain(NewImputation(true), NewCategoryTrimmer(5, 1))

	base := cache.New("test.input", nil)
	fp1 := single.Fingerprint(base)
	fp2 := double.Fingerprint(base)
	if fp1.Equal(fp2) {
		t.Fatal("expected chains with a different stage count to fingerprint differently")
	}
	if !single.Fingerprint(base).Equal(fp1) {
		t.Fatal("expected the same chain to fingerprint deterministically")
	}
}

func TestChainCloneIsIndependent(t *testing.T) {
	df := newFrame(t, 3)
	col := columnstore.FromSlice("amount", []float64{1, 3, math.NaN()})
	if err := df.AddNumerical("amount", col); err != nil {
		t.Fatalf("AddNumerical: %v", err)
	}
	chain := NewChain(NewImputation(false))
	if _, _, err := chain.FitTransform(df); err != nil {
		t.Fatalf("FitTransform: %v", err)
	}

	clone := chain.Clone()
	imp := clone.Stages[0].(*Imputation)
	imp.means["amount"] = 999

	original := chain.Stages[0].(*Imputation)
	if original.means["amount"] == 999 {
		t.Fatal("expected cloning a chain to deep-copy its stages")
	}
}

func TestChainToSQLConcatenatesStages(t *testing.T) {
	chain := NewChain(NewMapping())
	sql := chain.ToSQL(sqltranspiler.ByName("ansi"))
	if sql == "" {
		t.Fatal("expected a non-empty SQL fragment from the chain")
	}
}
