// Package matchmaker implements the join-key + temporal-window matching
// described in §4.3: given a population row and a peripheral DataFrame, it
// yields the matching peripheral row indices.
package matchmaker

import (
	"math"
	"sort"

	"fastprop/pkg/dataframe"
	"fastprop/pkg/datamodel"
	"fastprop/pkg/errs"
)

// Columns names the join-key/time-stamp columns a Matchmaker call needs on
// each side, resolved once by the caller (the Pipeline orchestrator or
// FastProp) from the Placeholder tree (§3).
type Columns struct {
	PopulationJoinKey string
	PeripheralJoinKey string
	PopulationTS      string // empty when no time stamp is declared
	PeripheralTS      string
	PeripheralUpperTS string // empty when no upper-time-stamp column exists
}

// Matchmaker resolves match sets for one (population, peripheral) pair.
// The peripheral frame must already be sorted and indexed by
// dataframe.SortByKey/CreateIndices on cols.PeripheralJoinKey (with the
// time-stamp secondary sort applied when cols.PeripheralTS is set), so that
// each join-key bucket is a contiguous, time-ascending run.
type Matchmaker struct {
	population *dataframe.DataFrame
	peripheral *dataframe.DataFrame
	cols       Columns
	spec       datamodel.JoinSpec
}

// New constructs a Matchmaker for one join edge.
func New(population, peripheral *dataframe.DataFrame, cols Columns, spec datamodel.JoinSpec) *Matchmaker {
	return &Matchmaker{population: population, peripheral: peripheral, cols: cols, spec: spec}
}

// Match computes the match set for population row ixPopulation (§4.3's
// algorithm). Matches are returned in peripheral time-stamp order when time
// stamps are present, otherwise in peripheral row order.
func (m *Matchmaker) Match(ixPopulation int) (datamodel.MatchSet, error) {
	popJK, ok := m.population.JoinKey(m.cols.PopulationJoinKey)
	if !ok {
		return datamodel.MatchSet{}, errs.ColumnNotFound(m.population.Name(), m.cols.PopulationJoinKey, "join_key")
	}
	id := popJK.Get(ixPopulation)

	rng, ok := m.peripheral.LookupKeyRange(m.cols.PeripheralJoinKey, id)
	if !ok {
		return datamodel.MatchSet{Population: ixPopulation}, nil // step 1: no matching bucket
	}

	if m.cols.PopulationTS == "" || m.cols.PeripheralTS == "" {
		// step 2: no time stamps — the whole bucket matches, in peripheral
		// row order.
		out := make([]int, 0, rng.End-rng.Start)
		for i := rng.Start; i < rng.End; i++ {
			out = append(out, i)
		}
		return datamodel.MatchSet{Population: ixPopulation, Peripheral: out}, nil
	}

	popTSCol, ok := m.population.TimeStamp(m.cols.PopulationTS)
	if !ok {
		return datamodel.MatchSet{}, errs.ColumnNotFound(m.population.Name(), m.cols.PopulationTS, "time_stamp")
	}
	periphTSCol, ok := m.peripheral.TimeStamp(m.cols.PeripheralTS)
	if !ok {
		return datamodel.MatchSet{}, errs.ColumnNotFound(m.peripheral.Name(), m.cols.PeripheralTS, "time_stamp")
	}
	popTS := popTSCol.Get(ixPopulation)

	// step 3: band edges per §3's Match invariant:
	// peripheral.ts ∈ (population.ts - memory - horizon, population.ts - horizon]
	// with allow_lagged_targets governing the upper bound's inclusivity —
	// false (the default) excludes the horizon=0 leakage boundary.
	lower := popTS - m.spec.Horizon
	if !math.IsInf(m.spec.Memory, 1) {
		lower -= m.spec.Memory
	} else {
		lower = math.Inf(-1)
	}
	upper := popTS - m.spec.Horizon

	n := rng.End - rng.Start
	loIdx := sort.Search(n, func(i int) bool { return periphTSCol.Get(rng.Start+i) > lower })
	var hiIdx int
	if m.spec.AllowLaggedTargets {
		hiIdx = sort.Search(n, func(i int) bool { return periphTSCol.Get(rng.Start+i) > upper })
	} else {
		hiIdx = sort.Search(n, func(i int) bool { return periphTSCol.Get(rng.Start+i) >= upper })
	}

	var upperTSCol dataframe.NumColumn
	if m.cols.PeripheralUpperTS != "" {
		upperTSCol, ok = m.peripheral.TimeStamp(m.cols.PeripheralUpperTS)
		if !ok {
			return datamodel.MatchSet{}, errs.ColumnNotFound(m.peripheral.Name(), m.cols.PeripheralUpperTS, "time_stamp")
		}
	}

	out := make([]int, 0, hiIdx-loIdx)
	for i := loIdx; i < hiIdx; i++ {
		row := rng.Start + i
		if upperTSCol != nil && !(popTS < upperTSCol.Get(row)) {
			continue
		}
		out = append(out, row)
	}
	return datamodel.MatchSet{Population: ixPopulation, Peripheral: out}, nil
}
