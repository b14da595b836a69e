package preprocess

import (
	"testing"

	"fastprop/pkg/columnstore"
	"fastprop/pkg/dataframe"
	"fastprop/pkg/encoding"
)

func TestTextFieldSplitterExplodesWords(t *testing.T) {
	reg := encoding.NewRegistry()
	df := dataframe.New("t", 2, reg.JoinKeys(), reg.Categorical)
	col := columnstore.StringColumnFromSlice("notes", []string{"hello world", "foo"})
	if err := df.AddText("notes", col); err != nil {
		t.Fatalf("AddText: %v", err)
	}

	splitter := NewTextFieldSplitter()
	out, warnings, err := splitter.FitTransform(df)
	if err != nil {
		t.Fatalf("FitTransform: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if _, ok := out.JoinKey("notes_row_id"); !ok {
		t.Fatal("expected a synthetic row-id join key on the source frame")
	}

	result, ok := splitter.Exploded("notes")
	if !ok {
		t.Fatal("expected the notes column to be recorded as affected")
	}
	if result.PeripheralName != "notes_exploded" {
		t.Fatalf("expected peripheral table name notes_exploded, got %s", result.PeripheralName)
	}
}

func TestTextFieldSplitterEmptyVocabularyWarns(t *testing.T) {
	reg := encoding.NewRegistry()
	df := dataframe.New("t", 1, reg.JoinKeys(), reg.Categorical)
	col := columnstore.NewStringColumn("notes", 1)
	if err := col.Set(0, "", true); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := df.AddText("notes", col); err != nil {
		t.Fatalf("AddText: %v", err)
	}

	splitter := NewTextFieldSplitter()
	_, warnings, err := splitter.FitTransform(df)
	if err != nil {
		t.Fatalf("FitTransform: %v", err)
	}
	if len(warnings) != 1 || warnings[0].Code != "TEXT_FIELD_EMPTY_VOCABULARY" {
		t.Fatalf("expected an empty-vocabulary warning, got %v", warnings)
	}
}

func TestTextFieldSplitterSaveLoadRoundTrip(t *testing.T) {
	reg := encoding.NewRegistry()
	df := dataframe.New("t", 1, reg.JoinKeys(), reg.Categorical)
	col := columnstore.StringColumnFromSlice("notes", []string{"hello"})
	if err := df.AddText("notes", col); err != nil {
		t.Fatalf("AddText: %v", err)
	}
	splitter := NewTextFieldSplitter()
	if _, _, err := splitter.FitTransform(df); err != nil {
		t.Fatalf("FitTransform: %v", err)
	}

	blob, err := splitter.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	restored := NewTextFieldSplitter()
	if err := restored.Load(blob); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := restored.Exploded("notes"); !ok {
		t.Fatal("expected the restored splitter to remember the notes column")
	}
}
