package fastprop

import (
	"sort"

	"fastprop/pkg/dataframe"
	"fastprop/pkg/datamodel"
)

// Config holds the tunables §4.5.1/§4.5.3 name: how many top categories to
// pin, how many lag bands to enumerate, the selection cap, and the sampling
// factor used when the candidate count exceeds it.
type Config struct {
	NumFeatures    int
	SamplingFactor float64
	MaxLag         int
	DeltaT         float64
	TopKCategories int
	NumThreads     int
	SizeThreshold  int // §4.5.6; 0 disables stubbing
}

// DefaultConfig mirrors getML's documented FastProp defaults.
func DefaultConfig() Config {
	return Config{NumFeatures: 100, SamplingFactor: 1.0, MaxLag: 0, DeltaT: 0, TopKCategories: 10, NumThreads: 1}
}

// edge bundles one peripheral join's static enumeration inputs.
type edge struct {
	ix              int
	table           *dataframe.DataFrame
	spec            datamodel.JoinSpec
	popJK, periphJK string
	popTS, periphTS string
	subfeatureCount int // number of child FastProp output columns, 0 if propositionalization
}

// enumerate builds every AbstractFeature candidate for one peripheral edge
// per §4.5.1. Candidates are returned in a fixed, deterministic order —
// EnumIndex is assigned by the caller across all edges once enumeration is
// complete, so ties in §4.5.3's selection break the same way every run.
func enumerate(pop *dataframe.DataFrame, e edge, cfg Config) []datamodel.AbstractFeature {
	hasTS := e.popTS != "" && e.periphTS != ""
	var out []datamodel.AbstractFeature

	add := func(f datamodel.AbstractFeature) {
		f.PeripheralIx = e.ix
		out = append(out, f)
	}

	// Count and AVG TIME BETWEEN are always admitted (§4.5.1).
	add(datamodel.AbstractFeature{Aggregation: datamodel.Count, DataUsed: datamodel.DataNA})
	if hasTS {
		add(datamodel.AbstractFeature{Aggregation: datamodel.AvgTimeBetween, DataUsed: datamodel.DataNA})
	}

	if e.subfeatureCount > 0 {
		for i := 0; i < e.subfeatureCount; i++ {
			add(datamodel.AbstractFeature{Aggregation: datamodel.Sum, DataUsed: datamodel.DataSubfeatures, SubfeatureIndex: i})
		}
	}

	conditionSets := conditionSets(pop, e, cfg)

	for _, cs := range conditionSets {
		pinned := pinnedColumn(cs)
		// Categorical inputs, unconditioned: COUNT DISTINCT / COUNT MINUS
		// COUNT DISTINCT.
		if len(cs) == 0 {
			for _, name := range sortedCatColumns(e.table) {
				add(datamodel.AbstractFeature{InputCol: name, DataUsed: datamodel.DataCategorical, Aggregation: datamodel.CountDistinct, Conditions: cs})
				add(datamodel.AbstractFeature{InputCol: name, DataUsed: datamodel.DataCategorical, Aggregation: datamodel.CountMinusCountDistinct, Conditions: cs})
			}
		}

		// Discrete/numerical inputs (and pinned/lag/same-units-conditioned
		// variants of the same) x numerical aggregations.
		for _, name := range sortedNumColumns(e.table) {
			if name == pinned {
				continue
			}
			du := datamodel.DataNumerical
			if hasSubroleDiscrete(e.table, name) {
				du = datamodel.DataDiscrete
			}
			for _, agg := range du.CompatibleAggregations() {
				if agg.RequiresTimeStamps() && !hasTS {
					continue
				}
				add(datamodel.AbstractFeature{InputCol: name, DataUsed: du, Aggregation: agg, Conditions: cs})
			}
		}
	}

	// Same-units matches: population and peripheral numerical columns
	// sharing a Unit() tag, and categorical columns sharing a Domain.
	for _, m := range sameUnitsNumerical(pop, e.table) {
		du := datamodel.DataSameUnitsNumerical
		switch {
		case m.discrete && hasTS:
			du = datamodel.DataSameUnitsDiscreteTS
		case m.discrete:
			du = datamodel.DataSameUnitsDiscrete
		case hasTS:
			du = datamodel.DataSameUnitsNumericalTS
		}
		for _, agg := range du.CompatibleAggregations() {
			if agg.RequiresTimeStamps() && !hasTS {
				continue
			}
			add(datamodel.AbstractFeature{InputCol: m.periphCol, OutputCol: m.popCol, DataUsed: du, Aggregation: agg})
		}
	}
	// Same-units categorical matches contribute only condition sets (see
	// conditionSets below), not features of their own — pinning a
	// peripheral category to the population row's own value and then
	// counting it is degenerate (COUNT DISTINCT is always 0 or 1).

	// Text: one indicator feature per vocabulary word.
	for _, name := range sortedTextColumns(e.table) {
		for _, word := range vocabulary(e.table, name) {
			for _, agg := range []datamodel.Aggregation{datamodel.Count, datamodel.Sum, datamodel.Avg} {
				add(datamodel.AbstractFeature{InputCol: name + ":" + word, DataUsed: datamodel.DataText, Aggregation: agg})
			}
		}
	}

	return out
}

func pinnedColumn(cs []datamodel.Condition) string {
	for _, c := range cs {
		if c.Kind == datamodel.CategoricalEquality {
			return c.PeripheralColumn
		}
	}
	return ""
}

// conditionSets enumerates the allowed condition sets named in §4.5.1: the
// empty set, one categorical-equality condition per top-K category value,
// one lag band per k in [0, max_lag) when both sides carry time stamps, and
// one same-units categorical equality per matched pair.
func conditionSets(pop *dataframe.DataFrame, e edge, cfg Config) [][]datamodel.Condition {
	sets := [][]datamodel.Condition{{}}

	for _, name := range sortedCatColumns(e.table) {
		col, _ := e.table.Categorical(name)
		for _, id := range topKCategories(col.Column, cfg.TopKCategories) {
			sets = append(sets, []datamodel.Condition{{Kind: datamodel.CategoricalEquality, PeripheralColumn: name, CategoricalValue: id}})
		}
	}

	if e.popTS != "" && e.periphTS != "" {
		for k := 0; k < cfg.MaxLag; k++ {
			sets = append(sets, []datamodel.Condition{{Kind: datamodel.LagBand, LagK: k, LagDelta: cfg.DeltaT}})
		}
	}

	for _, m := range sameUnitsCategorical(pop, e.table) {
		sets = append(sets, []datamodel.Condition{{Kind: datamodel.SameUnitsEquality, PopulationColumn: m.popCol, PeripheralColumn: m.periphCol}})
	}

	return sets
}

func sortedCatColumns(df *dataframe.DataFrame) []string {
	s := df.Schema()
	var out []string
	for _, c := range s.Columns {
		if c.Role == dataframe.RoleCategorical {
			out = append(out, c.Name)
		}
	}
	sort.Strings(out)
	return out
}

func sortedNumColumns(df *dataframe.DataFrame) []string {
	s := df.Schema()
	var out []string
	for _, c := range s.Columns {
		if c.Role == dataframe.RoleNumerical {
			out = append(out, c.Name)
		}
	}
	sort.Strings(out)
	return out
}

func sortedTextColumns(df *dataframe.DataFrame) []string {
	s := df.Schema()
	var out []string
	for _, c := range s.Columns {
		if c.Role == dataframe.RoleText {
			out = append(out, c.Name)
		}
	}
	sort.Strings(out)
	return out
}

func hasSubroleDiscrete(df *dataframe.DataFrame, name string) bool {
	c, ok := df.Numerical(name)
	return ok && c.HasSubrole("discrete")
}

type sameUnitsMatch struct {
	popCol, periphCol string
	discrete          bool
}

func sameUnitsNumerical(pop, periph *dataframe.DataFrame) []sameUnitsMatch {
	var out []sameUnitsMatch
	for _, pn := range sortedNumColumns(pop) {
		pc, _ := pop.Numerical(pn)
		if pc.Unit() == "" {
			continue
		}
		for _, cn := range sortedNumColumns(periph) {
			cc, _ := periph.Numerical(cn)
			if cc.Unit() == pc.Unit() {
				out = append(out, sameUnitsMatch{popCol: pn, periphCol: cn, discrete: cc.HasSubrole("discrete")})
			}
		}
	}
	return out
}

func sameUnitsCategorical(pop, periph *dataframe.DataFrame) []sameUnitsMatch {
	var out []sameUnitsMatch
	for _, pn := range sortedCatColumns(pop) {
		pc, _ := pop.Categorical(pn)
		for _, cn := range sortedCatColumns(periph) {
			cc, _ := periph.Categorical(cn)
			if cc.Domain == pc.Domain {
				out = append(out, sameUnitsMatch{popCol: pn, periphCol: cn})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].popCol+out[i].periphCol < out[j].popCol+out[j].periphCol })
	return out
}

// topKCategories returns the k most frequent ids in a categorical column,
// most frequent first, ties broken by ascending id for determinism.
func topKCategories(col interface{ Len() int; Get(int) int64 }, k int) []int64 {
	counts := map[int64]int{}
	for i := 0; i < col.Len(); i++ {
		counts[col.Get(i)]++
	}
	ids := make([]int64, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if counts[ids[i]] != counts[ids[j]] {
			return counts[ids[i]] > counts[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > k {
		ids = ids[:k]
	}
	return ids
}

// vocabulary tokenizes every row of a text column into a sorted, deduped
// word list. A production build would cap vocabulary size; FastProp's
// caller is expected to bound text-column cardinality upstream via
// preprocess.TextFieldSplitter (§4.4).
func vocabulary(df *dataframe.DataFrame, name string) []string {
	col, ok := df.Text(name)
	if !ok {
		return nil
	}
	seen := map[string]struct{}{}
	for v, isNull := range col.Iter() {
		if isNull {
			continue
		}
		for _, w := range splitWords(v) {
			seen[w] = struct{}{}
		}
	}
	words := make([]string, 0, len(seen))
	for w := range seen {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

func splitWords(s string) []string {
	var words []string
	start := -1
	for i, r := range s {
		if r == ' ' || r == '\t' || r == '\n' {
			if start >= 0 {
				words = append(words, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, s[start:])
	}
	return words
}
