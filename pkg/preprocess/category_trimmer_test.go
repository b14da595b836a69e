package preprocess

import (
	"testing"

	"fastprop/pkg/columnstore"
	"fastprop/pkg/dataframe"
	"fastprop/pkg/encoding"
)

func newCategoricalFrame(t *testing.T, values []string) (*dataframe.DataFrame, *encoding.Registry) {
	t.Helper()
	reg := encoding.NewRegistry()
	df := dataframe.New("t", len(values), reg.JoinKeys(), reg.Categorical)
	enc := reg.Categorical("status")
	ids := make([]int64, len(values))
	for i, v := range values {
		ids[i] = int64(enc.Intern(v))
	}
	col := &dataframe.CatColumn{Column: columnstore.FromSlice("status", ids), Domain: "status"}
	if err := df.AddCategorical("status", col); err != nil {
		t.Fatalf("AddCategorical: %v", err)
	}
	return df, reg
}

func TestCategoryTrimmerKeepsMostFrequent(t *testing.T) {
	df, reg := newCategoricalFrame(t, []string{"a", "a", "a", "b", "b", "c"})
	trimmer := NewCategoryTrimmer(2, 1)

	out, _, err := trimmer.FitTransform(df)
	if err != nil {
		t.Fatalf("FitTransform: %v", err)
	}

	col, ok := out.Categorical("status")
	if !ok {
		t.Fatal("expected status column to survive trimming")
	}

	aID := int64(reg.Categorical("status").Intern("a"))
	bID := int64(reg.Categorical("status").Intern("b"))
	cID := int64(reg.Categorical("status").Intern("c"))

	for i, want := range []int64{aID, aID, aID, bID, bID} {
		if got := col.Get(i); got != want {
			t.Fatalf("row %d: expected kept id %d, got %d", i, want, got)
		}
	}
	if got := col.Get(5); got == cID {
		t.Fatal("expected the least frequent category to be trimmed away")
	}
	if got := col.Get(5); got != int64(encoding.Trimmed) {
		t.Fatalf("expected trimmed row to map to the Trimmed sentinel, got %d", got)
	}
}

func TestCategoryTrimmerTransformReusesFittedSet(t *testing.T) {
	train, reg := newCategoricalFrame(t, []string{"a", "a", "b"})
	trimmer := NewCategoryTrimmer(1, 1)
	if _, _, err := trimmer.FitTransform(train); err != nil {
		t.Fatalf("FitTransform: %v", err)
	}

	test := dataframe.New("t", 1, reg.JoinKeys(), reg.Categorical)
	bID := int64(reg.Categorical("status").Intern("b"))
	col := &dataframe.CatColumn{Column: columnstore.FromSlice("status", []int64{bID}), Domain: "status"}
	if err := test.AddCategorical("status", col); err != nil {
		t.Fatalf("AddCategorical: %v", err)
	}

	out, err := trimmer.Transform(test)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	got, _ := out.Categorical("status")
	if got.Get(0) != int64(encoding.Trimmed) {
		t.Fatalf("expected 'b' (not in the fitted top-1 set) to be trimmed on transform, got %d", got.Get(0))
	}
}

func TestCategoryTrimmerSaveLoadRoundTrip(t *testing.T) {
	df, _ := newCategoricalFrame(t, []string{"a", "a", "b"})
	trimmer := NewCategoryTrimmer(1, 1)
	if _, _, err := trimmer.FitTransform(df); err != nil {
		t.Fatalf("FitTransform: %v", err)
	}

	blob, err := trimmer.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	restored := NewCategoryTrimmer(0, 0)
	if err := restored.Load(blob); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if restored.MaxNumCategories != 1 || restored.MinFreq != 1 {
		t.Fatalf("expected restored hyperparameters, got max=%d min=%d", restored.MaxNumCategories, restored.MinFreq)
	}
	if len(restored.kept["status"]) != 1 {
		t.Fatalf("expected the kept set for status to round-trip, got %v", restored.kept["status"])
	}
}
