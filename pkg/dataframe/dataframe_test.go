package dataframe

import (
	"testing"

	"fastprop/pkg/columnstore"
	"fastprop/pkg/encoding"
)

func newTestFrame(t *testing.T, nrows int) (*DataFrame, *encoding.Registry) {
	t.Helper()
	reg := encoding.NewRegistry()
	df := New("t", nrows, reg.JoinKeys(), reg.Categorical)
	return df, reg
}

func TestAddAndFreeze(t *testing.T) {
	df, _ := newTestFrame(t, 2)
	col, _ := columnstore.New[float64]("x", 2, nil)
	col.Set(0, 1)
	col.Set(1, 2)
	if err := df.AddNumerical("x", col); err != nil {
		t.Fatalf("AddNumerical: %v", err)
	}

	df.Freeze()
	if !df.Frozen() {
		t.Fatal("expected frame to be frozen")
	}
	other, _ := columnstore.New[float64]("y", 2, nil)
	if err := df.AddNumerical("y", other); err == nil {
		t.Fatal("expected FrameFrozen error on frozen frame")
	}
}

func TestSchemaLengthMismatch(t *testing.T) {
	df, _ := newTestFrame(t, 3)
	col, _ := columnstore.New[float64]("x", 2, nil)
	if err := df.AddNumerical("x", col); err == nil {
		t.Fatal("expected schema length mismatch error")
	}
}

func TestSortByKeyAndCreateIndices(t *testing.T) {
	df, reg := newTestFrame(t, 4)
	jkCol, _ := columnstore.New[int64]("parent_id", 4, nil)
	ids := []int64{int64(reg.JoinKeys().Intern("b")), int64(reg.JoinKeys().Intern("a")), int64(reg.JoinKeys().Intern("a")), int64(reg.JoinKeys().Intern("b"))}
	for i, id := range ids {
		jkCol.Set(i, id)
	}
	tsCol, _ := columnstore.New[float64]("ts", 4, nil)
	tsVals := []float64{300, 100, 50, 200}
	for i, v := range tsVals {
		tsCol.Set(i, v)
	}
	if err := df.AddJoinKey("parent_id", &CatColumn{Column: jkCol, Domain: "join"}); err != nil {
		t.Fatal(err)
	}
	if err := df.AddTimeStamp("ts", tsCol); err != nil {
		t.Fatal(err)
	}

	if err := df.SortByKey("parent_id", "ts"); err != nil {
		t.Fatalf("SortByKey: %v", err)
	}
	if err := df.CreateIndices("parent_id"); err != nil {
		t.Fatalf("CreateIndices: %v", err)
	}

	aID, _ := reg.JoinKeys().Lookup("a")
	rangeA, ok := df.LookupKeyRange("parent_id", int64(aID))
	if !ok || rangeA.End-rangeA.Start != 2 {
		t.Fatalf("expected 2 rows for id 'a', got range %+v ok=%v", rangeA, ok)
	}
	sortedTS, _ := df.TimeStamp("ts")
	if sortedTS.Get(rangeA.Start) > sortedTS.Get(rangeA.Start+1) {
		t.Fatal("expected ascending ts within a join-key bucket")
	}
}

func TestCloneSharesStorage(t *testing.T) {
	df, _ := newTestFrame(t, 1)
	col, _ := columnstore.New[float64]("x", 1, nil)
	col.Set(0, 7)
	df.AddNumerical("x", col)

	clone := df.Clone("t_clone")
	cloned, ok := clone.Numerical("x")
	if !ok || cloned.Get(0) != 7 {
		t.Fatal("expected clone to share underlying column storage")
	}
}
