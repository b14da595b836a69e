package datamodel

import "testing"

func TestNewPlaceholderArityCheck(t *testing.T) {
	child := &Placeholder{Name: "peripheral"}
	if _, err := NewPlaceholder("pop", []*Placeholder{child}, nil); err == nil {
		t.Fatal("expected arity mismatch error")
	}
	if _, err := NewPlaceholder("pop", []*Placeholder{child}, []JoinSpec{{}}); err != nil {
		t.Fatalf("expected valid placeholder, got %v", err)
	}
}

func TestAbstractFeatureValidateAggregationCompatibility(t *testing.T) {
	f := AbstractFeature{Aggregation: CountDistinct, DataUsed: DataCategorical}
	if err := f.Validate(false); err != nil {
		t.Fatalf("expected COUNT DISTINCT compatible with categorical: %v", err)
	}
	bad := AbstractFeature{Aggregation: Trend, DataUsed: DataCategorical}
	if err := bad.Validate(true); err == nil {
		t.Fatal("expected TREND incompatible with categorical data_used")
	}
}

func TestAbstractFeatureValidateRequiresTimeStamps(t *testing.T) {
	f := AbstractFeature{Aggregation: Trend, DataUsed: DataSameUnitsNumericalTS}
	if err := f.Validate(false); err == nil {
		t.Fatal("expected TREND to require time stamps")
	}
	if err := f.Validate(true); err != nil {
		t.Fatalf("expected TREND to validate with time stamps present: %v", err)
	}
}

func TestMemoKeySharedAcrossAggregations(t *testing.T) {
	a := AbstractFeature{PeripheralIx: 0, InputCol: "amount", DataUsed: DataNumerical, Aggregation: Sum}
	b := AbstractFeature{PeripheralIx: 0, InputCol: "amount", DataUsed: DataNumerical, Aggregation: Avg}
	if a.MemoKey() != b.MemoKey() {
		t.Fatal("expected same memo key for features sharing peripheral/input/data_used")
	}
}
