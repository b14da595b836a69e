package datamodel

import "fmt"

// AbstractFeature is a recipe for computing one feature: an aggregation
// applied to an input column (or category pin) over a peripheral table,
// narrowed by AND-combined conditions (§3, GLOSSARY).
type AbstractFeature struct {
	Aggregation      Aggregation
	Conditions       []Condition
	DataUsed         DataUsed
	InputCol         string
	OutputCol        string // same-units output column; empty when not applicable
	PeripheralIx     int    // index into the Placeholder's Children
	CategoricalValue int64  // set when pinned to a top-K category

	// SubfeatureIndex, when DataUsed == DataSubfeatures, names the child
	// FastProp feature index this abstract feature consumes as its input
	// column (§4.5.4's "subfeatures are evaluated first" rule).
	SubfeatureIndex int

	// enumeration index, used to break R² ties deterministically (§4.5.3,
	// §5's determinism guarantee).
	EnumIndex int
}

// Validate enforces the two invariants named directly on AbstractFeature in
// §3: aggregation/data_used compatibility, and time-stamp requirements for
// time-anchored aggregations. hasTimeStamps reports whether both sides of
// the join carry a time-stamp column.
func (f AbstractFeature) Validate(hasTimeStamps bool) error {
	if f.Aggregation.RequiresTimeStamps() && !hasTimeStamps {
		return fmt.Errorf("aggregation %s requires time stamps on both sides", f.Aggregation)
	}
	if f.DataUsed == DataSubfeatures || f.DataUsed == DataNA {
		return nil
	}
	compat := f.DataUsed.CompatibleAggregations()
	for _, a := range compat {
		if a == f.Aggregation {
			return nil
		}
	}
	return fmt.Errorf("aggregation %s is not compatible with data_used %v", f.Aggregation, f.DataUsed)
}

// Key is the value MemoKey returns, stable across identical enumerations, used to dedupe
// candidates that memoization can share within one row (§4.5.5): features
// sharing (peripheral table, conditions, input projection) up to
// aggregation reuse the same filtered-and-projected numeric range.
type Key struct {
	PeripheralIx int
	ConditionKey string
	InputCol     string
	DataUsed     DataUsed
}

func (f AbstractFeature) MemoKey() Key {
	ck := ""
	for _, c := range f.Conditions {
		ck += c.String() + ";"
	}
	return Key{PeripheralIx: f.PeripheralIx, ConditionKey: ck, InputCol: f.InputCol, DataUsed: f.DataUsed}
}

// String renders a human-readable feature name, e.g. for logging and for
// naming the SQL table the transpiler emits.
func (f AbstractFeature) String() string {
	return fmt.Sprintf("%s(%s)[peripheral=%d]", f.Aggregation, f.InputCol, f.PeripheralIx)
}
