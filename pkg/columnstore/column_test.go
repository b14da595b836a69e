package columnstore

import (
	"math"
	"testing"
)

func TestColumnHeapGetSet(t *testing.T) {
	col, err := New[float64]("x", 3, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if col.Len() != 3 {
		t.Fatalf("expected len 3, got %d", col.Len())
	}
	if err := col.Set(1, 4.5); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := col.Get(1); got != 4.5 {
		t.Errorf("expected 4.5, got %v", got)
	}
}

func TestColumnFrozenRejectsWrite(t *testing.T) {
	col, _ := New[int64]("id", 2, nil)
	col.Freeze()
	if err := col.Set(0, 1); err == nil {
		t.Fatal("expected FrameFrozen error on frozen column")
	}
}

func TestColumnMmapRoundTrip(t *testing.T) {
	dir := t.TempDir()
	col, err := New[float64]("mm", 4, &Pool{Dir: dir})
	if err != nil {
		t.Fatalf("New mmap: %v", err)
	}
	defer col.Close()

	for i := 0; i < 4; i++ {
		if err := col.Set(i, float64(i)*1.5); err != nil {
			t.Fatalf("Set(%d): %v", i, err)
		}
	}
	for i := 0; i < 4; i++ {
		if got, want := col.Get(i), float64(i)*1.5; got != want {
			t.Errorf("index %d: got %v want %v", i, got, want)
		}
	}
}

func TestColumnWithSubrolesSharesStorage(t *testing.T) {
	col, _ := New[float64]("y", 1, nil)
	col.Set(0, 9.0)
	tagged := col.WithSubroles("exclude_preprocessors")
	if !tagged.HasSubrole("exclude_preprocessors") {
		t.Fatal("expected subrole to be present")
	}
	if got := tagged.Get(0); got != 9.0 {
		t.Errorf("expected shared storage to see 9.0, got %v", got)
	}
	if col.HasSubrole("exclude_preprocessors") {
		t.Fatal("original column must not be mutated by WithSubroles")
	}
}

func TestStringColumnNullFlag(t *testing.T) {
	col := NewStringColumn("name", 2)
	col.Set(0, "alice", false)
	col.Set(1, "", true)

	v, isNull := col.Get(0)
	if v != "alice" || isNull {
		t.Errorf("expected (alice,false), got (%q,%v)", v, isNull)
	}
	_, isNull = col.Get(1)
	if !isNull {
		t.Error("expected null flag for index 1")
	}
}

func TestFloatNullIsNaN(t *testing.T) {
	if !math.IsNaN(math.NaN()) {
		t.Fatal("sanity check failed")
	}
}
