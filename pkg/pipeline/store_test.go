package pipeline

import (
	"testing"

	"fastprop/pkg/dataframe"
	"fastprop/pkg/encoding"
)

func TestFrameStorePutAndGet(t *testing.T) {
	store := NewFrameStore()
	reg := encoding.NewRegistry()
	df := dataframe.New("p", 0, reg.JoinKeys(), reg.Categorical)
	store.Put("p", df)

	got, err := store.Get("p")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != df {
		t.Fatal("expected Get to return the exact frame that was Put")
	}
}

func TestFrameStoreGetMissingErrors(t *testing.T) {
	store := NewFrameStore()
	if _, err := store.Get("nope"); err == nil {
		t.Fatal("expected an error for an unregistered frame name")
	}
}

func TestFrameStoreDeleteRemovesFrame(t *testing.T) {
	store := NewFrameStore()
	reg := encoding.NewRegistry()
	df := dataframe.New("p", 0, reg.JoinKeys(), reg.Categorical)
	store.Put("p", df)
	store.Delete("p")
	if _, ok := store.Lookup("p"); ok {
		t.Fatal("expected the frame to be gone after Delete")
	}
}

func TestFrameStoreNamesListsRegistered(t *testing.T) {
	store := NewFrameStore()
	reg := encoding.NewRegistry()
	store.Put("p", dataframe.New("p", 0, reg.JoinKeys(), reg.Categorical))
	store.Put("q", dataframe.New("q", 0, reg.JoinKeys(), reg.Categorical))

	names := store.Names()
	if len(names) != 2 {
		t.Fatalf("expected 2 registered names, got %v", names)
	}
}
