package sqltranspiler

import (
	"strings"
	"testing"

	"fastprop/pkg/datamodel"
)

func testContext() FeatureContext {
	return FeatureContext{
		PopulationTable:   "population",
		PopulationJoinKey: "id",
		PeripheralTable:   "orders",
		PeripheralJoinKey: "customer_id",
		PopulationTS:      "population_ts",
		PeripheralTS:      "order_ts",
	}
}

func TestMakeFeatureSQLSumAggregation(t *testing.T) {
	f := datamodel.AbstractFeature{
		PeripheralIx: 0,
		InputCol:     "amount",
		DataUsed:     datamodel.DataNumerical,
		Aggregation:  datamodel.Sum,
	}
	sql := MakeFeatureSQL(ByName("ansi"), "feature_0_0", f, testContext(), 0)
	if !strings.Contains(sql, "SUM(\"orders\".\"amount\")") {
		t.Fatalf("expected SUM aggregation over the peripheral column, got:\n%s", sql)
	}
	if !strings.Contains(sql, "LEFT JOIN \"orders\"") {
		t.Fatalf("expected a LEFT JOIN against the peripheral table, got:\n%s", sql)
	}
}

func TestMakeFeatureSQLWithCondition(t *testing.T) {
	f := datamodel.AbstractFeature{
		PeripheralIx: 0,
		InputCol:     "amount",
		DataUsed:     datamodel.DataNumerical,
		Aggregation:  datamodel.Count,
		Conditions: []datamodel.Condition{
			{Kind: datamodel.CategoricalEquality, PeripheralColumn: "status", CategoricalValue: 3},
		},
	}
	sql := MakeFeatureSQL(ByName("ansi"), "feature_0_1", f, testContext(), 0)
	if !strings.Contains(sql, `"orders"."status" = 3`) {
		t.Fatalf("expected the equality condition in WHERE, got:\n%s", sql)
	}
}

func TestMakeFeatureSQLStubsWhenOverSizeThreshold(t *testing.T) {
	f := datamodel.AbstractFeature{
		PeripheralIx: 0,
		InputCol:     "amount",
		DataUsed:     datamodel.DataNumerical,
		Aggregation:  datamodel.Sum,
	}
	full := MakeFeatureSQL(ByName("ansi"), "feature_0_0", f, testContext(), 0)
	stubbed := MakeFeatureSQL(ByName("ansi"), "feature_0_0", f, testContext(), len(full)-1)
	if !strings.Contains(stubbed, "stubbed") {
		t.Fatalf("expected a stub comment when sql exceeds size_threshold, got:\n%s", stubbed)
	}
	if strings.Contains(stubbed, "LEFT JOIN") {
		t.Fatalf("expected the stub to omit the real query body, got:\n%s", stubbed)
	}
}

func TestMakeFeatureSQLTextContainment(t *testing.T) {
	f := datamodel.AbstractFeature{
		PeripheralIx: 0,
		InputCol:     "description:refund",
		DataUsed:     datamodel.DataText,
		Aggregation:  datamodel.Sum,
	}
	sql := MakeFeatureSQL(ByName("ansi"), "feature_0_2", f, testContext(), 0)
	if !strings.Contains(sql, `LIKE '%refund%'`) {
		t.Fatalf("expected a LIKE clause for the text substring, got:\n%s", sql)
	}
}
