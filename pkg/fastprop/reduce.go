// Package fastprop implements the relational feature generator: candidate
// enumeration, univariate R² selection, parallel transform, memoization,
// and SQL emission (§4.5).
package fastprop

import (
	"math"
	"sort"

	"fastprop/pkg/datamodel"
)

// projected is one peripheral row's value plus its time stamp, used by the
// time-anchored aggregations (§4.5.2). ts is NaN when the peripheral has no
// time-stamp column.
type projected struct {
	value float64
	ts    float64
}

// Reduce applies aggregation over a projected numeric stream, following the
// definitions in §4.5.2 exactly, including the empty-match-set rule: COUNT
// yields 0, every value aggregation yields NaN (the caller — WriteCell —
// replaces NaN/±Inf with 0.0 before it reaches the feature matrix, per
// §4.5.2's edge cases and §8's aggregation-null-safety property).
//
// distinctIDs is only consulted by COUNT DISTINCT / COUNT MINUS COUNT
// DISTINCT and may be nil otherwise. popTS is the population row's time
// stamp, used by the TIME SINCE ... aggregations.
func Reduce(agg datamodel.Aggregation, rows []projected, distinctIDs []int64, popTS float64) float64 {
	n := len(rows)
	switch agg {
	case datamodel.Count:
		return float64(n)
	case datamodel.CountDistinct:
		return float64(countDistinct(distinctIDs))
	case datamodel.CountMinusCountDistinct:
		return float64(n - countDistinct(distinctIDs))
	}
	if n == 0 {
		return math.NaN()
	}
	switch agg {
	case datamodel.Sum:
		return sumSkipNaN(rows)
	case datamodel.Avg:
		s, c := sumCountSkipNaN(rows)
		if c == 0 {
			return math.NaN()
		}
		return s / float64(c)
	case datamodel.Min:
		return minMaxSkipNaN(rows, true)
	case datamodel.Max:
		return minMaxSkipNaN(rows, false)
	case datamodel.Median:
		return median(rows)
	case datamodel.Stddev:
		_, sd := meanStddev(rows)
		return sd
	case datamodel.Var:
		_, sd := meanStddev(rows)
		return sd * sd
	case datamodel.Skew:
		return skewness(rows)
	case datamodel.Kurtosis:
		return kurtosis(rows)
	case datamodel.NumMin:
		return float64(numAtExtreme(rows, true))
	case datamodel.NumMax:
		return float64(numAtExtreme(rows, false))
	case datamodel.CountAboveMean:
		return float64(countRelativeToMean(rows, true))
	case datamodel.CountBelowMean:
		return float64(countRelativeToMean(rows, false))
	case datamodel.First:
		return valueAtExtremeTS(rows, true)
	case datamodel.Last:
		return valueAtExtremeTS(rows, false)
	case datamodel.TimeSinceFirstEvent:
		return timeSince(rows, popTS, true)
	case datamodel.TimeSinceLastEvent:
		return timeSince(rows, popTS, false)
	case datamodel.AvgTimeBetween:
		return avgTimeBetween(rows)
	case datamodel.Trend:
		return trend(rows)
	case datamodel.EWMA1, datamodel.EWMA05, datamodel.EWMA025, datamodel.EWMA0125:
		return ewma(rows, datamodel.EWMAAlphas[agg])
	default:
		return math.NaN()
	}
}

// WriteCell is the edge-case guard named in §4.5.2 and tested by §8's
// aggregation-null-safety property: no NaN or ±Inf ever reaches the feature
// matrix.
func WriteCell(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0.0
	}
	return v
}

func countDistinct(ids []int64) int {
	seen := map[int64]struct{}{}
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}

func sumSkipNaN(rows []projected) float64 {
	var s float64
	for _, r := range rows {
		if !math.IsNaN(r.value) {
			s += r.value
		}
	}
	return s
}

func sumCountSkipNaN(rows []projected) (float64, int) {
	var s float64
	var c int
	for _, r := range rows {
		if !math.IsNaN(r.value) {
			s += r.value
			c++
		}
	}
	return s, c
}

func minMaxSkipNaN(rows []projected, wantMin bool) float64 {
	best := math.NaN()
	for _, r := range rows {
		if math.IsNaN(r.value) {
			continue
		}
		if math.IsNaN(best) || (wantMin && r.value < best) || (!wantMin && r.value > best) {
			best = r.value
		}
	}
	return best
}

func values(rows []projected) []float64 {
	out := make([]float64, 0, len(rows))
	for _, r := range rows {
		if !math.IsNaN(r.value) {
			out = append(out, r.value)
		}
	}
	return out
}

func median(rows []projected) float64 {
	v := values(rows)
	if len(v) == 0 {
		return math.NaN()
	}
	sort.Float64s(v)
	mid := len(v) / 2
	if len(v)%2 == 1 {
		return v[mid]
	}
	return (v[mid-1] + v[mid]) / 2
}

func meanStddev(rows []projected) (mean, stddev float64) {
	v := values(rows)
	if len(v) == 0 {
		return math.NaN(), math.NaN()
	}
	var s float64
	for _, x := range v {
		s += x
	}
	mean = s / float64(len(v))
	var ss float64
	for _, x := range v {
		d := x - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(v)))
}

func skewness(rows []projected) float64 {
	v := values(rows)
	if len(v) < 2 {
		return math.NaN()
	}
	mean, sd := meanStddev(rows)
	if sd == 0 {
		return 0
	}
	var m3 float64
	for _, x := range v {
		d := (x - mean) / sd
		m3 += d * d * d
	}
	return m3 / float64(len(v))
}

func kurtosis(rows []projected) float64 {
	v := values(rows)
	if len(v) < 2 {
		return math.NaN()
	}
	mean, sd := meanStddev(rows)
	if sd == 0 {
		return 0
	}
	var m4 float64
	for _, x := range v {
		d := (x - mean) / sd
		m4 += d * d * d * d
	}
	return m4/float64(len(v)) - 3
}

func numAtExtreme(rows []projected, wantMin bool) int {
	best := minMaxSkipNaN(rows, wantMin)
	if math.IsNaN(best) {
		return 0
	}
	n := 0
	for _, r := range rows {
		if r.value == best {
			n++
		}
	}
	return n
}

func countRelativeToMean(rows []projected, above bool) int {
	mean, _ := meanStddev(rows)
	if math.IsNaN(mean) {
		return 0
	}
	n := 0
	for _, r := range rows {
		if math.IsNaN(r.value) {
			continue
		}
		if (above && r.value > mean) || (!above && r.value < mean) {
			n++
		}
	}
	return n
}

func valueAtExtremeTS(rows []projected, wantFirst bool) float64 {
	bestTS := math.NaN()
	bestVal := math.NaN()
	for _, r := range rows {
		if math.IsNaN(r.ts) {
			continue
		}
		if math.IsNaN(bestTS) || (wantFirst && r.ts < bestTS) || (!wantFirst && r.ts > bestTS) {
			bestTS = r.ts
			bestVal = r.value
		}
	}
	return bestVal
}

func timeSince(rows []projected, popTS float64, wantFirst bool) float64 {
	bestTS := math.NaN()
	for _, r := range rows {
		if math.IsNaN(r.ts) {
			continue
		}
		if math.IsNaN(bestTS) || (wantFirst && r.ts < bestTS) || (!wantFirst && r.ts > bestTS) {
			bestTS = r.ts
		}
	}
	if math.IsNaN(bestTS) {
		return math.NaN()
	}
	return popTS - bestTS
}

func avgTimeBetween(rows []projected) float64 {
	minTS, maxTS := math.Inf(1), math.Inf(-1)
	n := 0
	for _, r := range rows {
		if math.IsNaN(r.ts) {
			continue
		}
		n++
		if r.ts < minTS {
			minTS = r.ts
		}
		if r.ts > maxTS {
			maxTS = r.ts
		}
	}
	if n == 0 {
		return math.NaN()
	}
	denom := n - 1
	if denom < 1 {
		denom = 1
	}
	return (maxTS - minTS) / float64(denom)
}

// trend is the slope of the least-squares line of value over time stamp.
func trend(rows []projected) float64 {
	var n, sx, sy, sxx, sxy float64
	for _, r := range rows {
		if math.IsNaN(r.ts) || math.IsNaN(r.value) {
			continue
		}
		n++
		sx += r.ts
		sy += r.value
		sxx += r.ts * r.ts
		sxy += r.ts * r.value
	}
	if n < 2 {
		return math.NaN()
	}
	denom := n*sxx - sx*sx
	if denom == 0 {
		return math.NaN()
	}
	return (n*sxy - sx*sy) / denom
}

// ewma computes an exponentially-weighted mean over rows ordered ascending
// by time stamp (the Matchmaker's contract), most recent row weighted by
// (1-alpha)^0.
func ewma(rows []projected, alpha float64) float64 {
	ordered := make([]projected, 0, len(rows))
	for _, r := range rows {
		if !math.IsNaN(r.value) {
			ordered = append(ordered, r)
		}
	}
	if len(ordered) == 0 {
		return math.NaN()
	}
	var num, den float64
	// ordered[len-1] is most recent (rows arrive in peripheral ts order).
	for i := len(ordered) - 1; i >= 0; i-- {
		age := len(ordered) - 1 - i
		w := math.Pow(1-alpha, float64(age))
		num += w * ordered[i].value
		den += w
	}
	return num / den
}
