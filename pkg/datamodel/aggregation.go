package datamodel

// Aggregation enumerates the reductions FastProp can apply to a projected
// numeric stream over a match set (§4.5.2, plus the SPEC_FULL §4.5.7
// supplements NumMin/NumMax/Kurtosis/Skew/CountAboveMean/CountBelowMean).
type Aggregation int

const (
	Count Aggregation = iota
	CountDistinct
	CountMinusCountDistinct
	Sum
	Avg
	Min
	Max
	Median
	Stddev
	Var
	First
	Last
	TimeSinceFirstEvent
	TimeSinceLastEvent
	AvgTimeBetween
	Trend
	EWMA1
	EWMA05
	EWMA025
	EWMA0125
	NumMin
	NumMax
	Kurtosis
	Skew
	CountAboveMean
	CountBelowMean
)

var aggregationNames = map[Aggregation]string{
	Count: "COUNT", CountDistinct: "COUNT DISTINCT", CountMinusCountDistinct: "COUNT MINUS COUNT DISTINCT",
	Sum: "SUM", Avg: "AVG", Min: "MIN", Max: "MAX", Median: "MEDIAN", Stddev: "STDDEV", Var: "VAR",
	First: "FIRST", Last: "LAST", TimeSinceFirstEvent: "TIME SINCE FIRST EVENT", TimeSinceLastEvent: "TIME SINCE LAST EVENT",
	AvgTimeBetween: "AVG TIME BETWEEN", Trend: "TREND",
	EWMA1: "EWMA_1", EWMA05: "EWMA_0.5", EWMA025: "EWMA_0.25", EWMA0125: "EWMA_0.125",
	NumMin: "NUM MIN", NumMax: "NUM MAX", Kurtosis: "KURTOSIS", Skew: "SKEW",
	CountAboveMean: "COUNT ABOVE MEAN", CountBelowMean: "COUNT BELOW MEAN",
}

func (a Aggregation) String() string {
	if s, ok := aggregationNames[a]; ok {
		return s
	}
	return "UNKNOWN"
}

// EWMAAlphas is the fixed set of decay constants EWMA_alpha aggregations
// are enumerated for (§4.5.2).
var EWMAAlphas = map[Aggregation]float64{
	EWMA1: 1.0, EWMA05: 0.5, EWMA025: 0.25, EWMA0125: 0.125,
}

// RequiresTimeStamps reports whether this aggregation is time-anchored and
// therefore requires time stamps on both population and peripheral sides
// (§4.5.1's "disallow time-anchored aggregations" rule).
func (a Aggregation) RequiresTimeStamps() bool {
	switch a {
	case First, Last, TimeSinceFirstEvent, TimeSinceLastEvent, AvgTimeBetween, Trend,
		EWMA1, EWMA05, EWMA025, EWMA0125:
		return true
	default:
		return false
	}
}

// DataUsed names the kind of input an AbstractFeature projects (§3).
type DataUsed int

const (
	DataCategorical DataUsed = iota
	DataDiscrete
	DataNumerical
	DataSameUnitsCategorical
	DataSameUnitsDiscrete
	DataSameUnitsNumerical
	DataSameUnitsDiscreteTS
	DataSameUnitsNumericalTS
	DataSubfeatures
	DataText
	DataNA
)

// CompatibleAggregations lists which aggregations are legal for a DataUsed
// kind (§3's "aggregation is compatible with data_used" invariant).
func (d DataUsed) CompatibleAggregations() []Aggregation {
	switch d {
	case DataCategorical, DataSameUnitsCategorical:
		return []Aggregation{CountDistinct, CountMinusCountDistinct}
	case DataText:
		return []Aggregation{Count, Sum, Avg}
	case DataDiscrete, DataNumerical, DataSameUnitsDiscrete, DataSameUnitsNumerical,
		DataSameUnitsDiscreteTS, DataSameUnitsNumericalTS:
		out := []Aggregation{Sum, Avg, Min, Max, Median, Stddev, Var, NumMin, NumMax,
			Kurtosis, Skew, CountAboveMean, CountBelowMean}
		if d == DataSameUnitsDiscreteTS || d == DataSameUnitsNumericalTS {
			out = append(out, First, Last, TimeSinceFirstEvent, TimeSinceLastEvent, AvgTimeBetween, Trend,
				EWMA1, EWMA05, EWMA025, EWMA0125)
		}
		return out
	case DataSubfeatures:
		return nil // subfeature outputs are themselves already-aggregated columns
	default:
		return nil
	}
}
