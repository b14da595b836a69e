package wire

import (
	"math"
	"testing"
)

func TestEncodeDecodeNumericColumnRoundTrip(t *testing.T) {
	values := []float64{1.5, -2.25, 0, 100.125}
	body, err := EncodeNumericColumn("amount", values)
	if err != nil {
		t.Fatalf("EncodeNumericColumn: %v", err)
	}
	got, err := DecodeNumericColumn(body)
	if err != nil {
		t.Fatalf("DecodeNumericColumn: %v", err)
	}
	if len(got) != len(values) {
		t.Fatalf("expected %d values, got %d", len(values), len(got))
	}
	for i := range values {
		if got[i] != values[i] {
			t.Fatalf("row %d: expected %v, got %v", i, values[i], got[i])
		}
	}
}

func TestEncodeDecodeTimeStampColumnRoundTrip(t *testing.T) {
	seconds := []float64{0, 1_700_000_000, 1_700_000_000.5}
	body, err := EncodeTimeStampColumn("event_ts", seconds)
	if err != nil {
		t.Fatalf("EncodeTimeStampColumn: %v", err)
	}
	got, err := DecodeTimeStampColumn(body)
	if err != nil {
		t.Fatalf("DecodeTimeStampColumn: %v", err)
	}
	if len(got) != len(seconds) {
		t.Fatalf("expected %d values, got %d", len(seconds), len(got))
	}
	for i := range seconds {
		if math.Abs(got[i]-seconds[i]) > 1e-6 {
			t.Fatalf("row %d: expected %v, got %v", i, seconds[i], got[i])
		}
	}
}

func TestDecodeNumericColumnEmptyStream(t *testing.T) {
	body, err := EncodeNumericColumn("amount", nil)
	if err != nil {
		t.Fatalf("EncodeNumericColumn: %v", err)
	}
	got, err := DecodeNumericColumn(body)
	if err != nil {
		t.Fatalf("DecodeNumericColumn: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no values for an empty column, got %v", got)
	}
}
