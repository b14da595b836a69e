package fastprop

import (
	"math"
	"strconv"
	"sync"

	"fastprop/pkg/dataframe"
	"fastprop/pkg/datamodel"
	"fastprop/pkg/errs"
	"fastprop/pkg/matchmaker"
)

// edgeRuntime is one peripheral join resolved to live columns, ready for
// repeated Match/project/reduce calls (§4.5.4).
type edgeRuntime struct {
	edge
	mm             *matchmaker.Matchmaker
	popTSCol       dataframe.NumColumn
	periphTSCol    dataframe.NumColumn
	subfeatureVals [][]float64 // [featureIx][peripheralRow], filled by a child FastProp
}

// Matrix is the dense row-major feature matrix produced by Transform.
type Matrix struct {
	Rows, Cols int
	Data       []float64
}

func newMatrix(rows, cols int) *Matrix { return &Matrix{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)} }

func (m *Matrix) Get(r, c int) float64  { return m.Data[r*m.Cols+c] }
func (m *Matrix) Set(r, c int, v float64) { m.Data[r*m.Cols+c] = v }

// rowScratch is the per-goroutine memoization structure named in §4.5.5: a
// cache of filtered-and-projected numeric ranges keyed by
// (peripheral, condition signature), reused across consecutive selected
// features within the same row.
type rowScratch struct {
	popRow int
	cache  map[string][]int
}

func conditionSignature(peripheralIx int, conds []datamodel.Condition) string {
	sig := strconv.Itoa(peripheralIx) + "|"
	for _, c := range conds {
		sig += c.String() + ";"
	}
	return sig
}

func newRowScratch() *rowScratch { return &rowScratch{popRow: -1, cache: map[string][]int{}} }

func (s *rowScratch) forRow(popRow int) {
	if s.popRow != popRow {
		s.popRow = popRow
		s.cache = map[string][]int{}
	}
}

// filterMatches applies an AbstractFeature's AND-combined conditions to a
// raw match set, per §3's Condition semantics.
func filterMatches(f datamodel.AbstractFeature, matches []int, pop, periph *dataframe.DataFrame, popRow int, popTS, periphTS dataframe.NumColumn) ([]int, error) {
	if len(f.Conditions) == 0 {
		return matches, nil
	}
	out := matches
	for _, c := range f.Conditions {
		var next []int
		switch c.Kind {
		case datamodel.CategoricalEquality:
			col, ok := periph.Categorical(c.PeripheralColumn)
			if !ok {
				return nil, errs.ColumnNotFound(periph.Name(), c.PeripheralColumn, "categorical")
			}
			for _, r := range out {
				if col.Get(r) == c.CategoricalValue {
					next = append(next, r)
				}
			}
		case datamodel.SameUnitsEquality:
			popCol, ok := pop.Categorical(c.PopulationColumn)
			if !ok {
				return nil, errs.ColumnNotFound(pop.Name(), c.PopulationColumn, "categorical")
			}
			periphCol, ok := periph.Categorical(c.PeripheralColumn)
			if !ok {
				return nil, errs.ColumnNotFound(periph.Name(), c.PeripheralColumn, "categorical")
			}
			want := popCol.Get(popRow)
			for _, r := range out {
				if periphCol.Get(r) == want {
					next = append(next, r)
				}
			}
		case datamodel.LagBand:
			if popTS == nil || periphTS == nil {
				return nil, errs.New(errs.Consistency, "LAG_BAND_WITHOUT_TIMESTAMPS", "lag band condition requires time stamps on both sides")
			}
			lo := float64(c.LagK) * c.LagDelta
			hi := float64(c.LagK+1) * c.LagDelta
			pts := popTS.Get(popRow)
			for _, r := range out {
				age := pts - periphTS.Get(r)
				if age >= lo && age < hi {
					next = append(next, r)
				}
			}
		}
		out = next
	}
	return out, nil
}

// project turns a filtered match set into the numeric stream Reduce expects,
// resolving the AbstractFeature's DataUsed into a concrete column lookup.
func project(f datamodel.AbstractFeature, rows []int, periph *dataframe.DataFrame, periphTS dataframe.NumColumn, subVals [][]float64) ([]projected, []int64, error) {
	switch f.DataUsed {
	case datamodel.DataNA:
		out := make([]projected, len(rows))
		for i, r := range rows {
			ts := math.NaN()
			if periphTS != nil {
				ts = periphTS.Get(r)
			}
			out[i] = projected{value: 0, ts: ts}
		}
		return out, nil, nil

	case datamodel.DataCategorical, datamodel.DataSameUnitsCategorical:
		col, ok := periph.Categorical(f.InputCol)
		if !ok {
			return nil, nil, errs.ColumnNotFound(periph.Name(), f.InputCol, "categorical")
		}
		ids := make([]int64, len(rows))
		for i, r := range rows {
			ids[i] = col.Get(r)
		}
		return nil, ids, nil

	case datamodel.DataDiscrete, datamodel.DataNumerical,
		datamodel.DataSameUnitsDiscrete, datamodel.DataSameUnitsNumerical,
		datamodel.DataSameUnitsDiscreteTS, datamodel.DataSameUnitsNumericalTS:
		col, ok := periph.Numerical(f.InputCol)
		if !ok {
			return nil, nil, errs.ColumnNotFound(periph.Name(), f.InputCol, "numerical")
		}
		out := make([]projected, len(rows))
		for i, r := range rows {
			ts := math.NaN()
			if periphTS != nil {
				ts = periphTS.Get(r)
			}
			out[i] = projected{value: col.Get(r), ts: ts}
		}
		return out, nil, nil

	case datamodel.DataText:
		name, word := splitTextInput(f.InputCol)
		col, ok := periph.Text(name)
		if !ok {
			return nil, nil, errs.ColumnNotFound(periph.Name(), name, "text")
		}
		out := make([]projected, len(rows))
		for i, r := range rows {
			v, isNull := col.Get(r)
			ind := 0.0
			if !isNull && containsWord(v, word) {
				ind = 1.0
			}
			ts := math.NaN()
			if periphTS != nil {
				ts = periphTS.Get(r)
			}
			out[i] = projected{value: ind, ts: ts}
		}
		return out, nil, nil

	case datamodel.DataSubfeatures:
		vals := subVals[f.SubfeatureIndex]
		out := make([]projected, len(rows))
		for i, r := range rows {
			ts := math.NaN()
			if periphTS != nil {
				ts = periphTS.Get(r)
			}
			out[i] = projected{value: vals[r], ts: ts}
		}
		return out, nil, nil

	default:
		return nil, nil, errs.New(errs.Internal, "UNKNOWN_DATA_USED", "no projection defined for this data_used kind")
	}
}

func splitTextInput(inputCol string) (col, word string) {
	for i := len(inputCol) - 1; i >= 0; i-- {
		if inputCol[i] == ':' {
			return inputCol[:i], inputCol[i+1:]
		}
	}
	return inputCol, ""
}

func containsWord(text, word string) bool {
	for _, w := range splitWords(text) {
		if w == word {
			return true
		}
	}
	return false
}

// evalOne computes one AbstractFeature's value for population row popRow
// against one edge, applying WriteCell's null-safety rule. scratch caches
// the (peripheral, conditions)-filtered row set across consecutive features
// within the same row that share it (§4.5.5).
func evalOne(f datamodel.AbstractFeature, popRow int, pop *dataframe.DataFrame, er *edgeRuntime, scratch *rowScratch) (float64, error) {
	scratch.forRow(popRow)
	sig := conditionSignature(f.PeripheralIx, f.Conditions)
	filtered, ok := scratch.cache[sig]
	if !ok {
		ms, err := er.mm.Match(popRow)
		if err != nil {
			return 0, err
		}
		filtered, err = filterMatches(f, ms.Peripheral, pop, er.table, popRow, er.popTSCol, er.periphTSCol)
		if err != nil {
			return 0, err
		}
		scratch.cache[sig] = filtered
	}
	rows, ids, err := project(f, filtered, er.table, er.periphTSCol, er.subfeatureVals)
	if err != nil {
		return 0, err
	}
	popTS := math.NaN()
	if er.popTSCol != nil {
		popTS = er.popTSCol.Get(popRow)
	}
	return WriteCell(Reduce(f.Aggregation, rows, ids, popTS)), nil
}

// TransformAll computes the dense feature matrix for every population row
// against the given selected features and edges, partitioning rows across
// numThreads goroutines (§5, §4.9).
func TransformAll(pop *dataframe.DataFrame, edges []*edgeRuntime, features []datamodel.AbstractFeature, numThreads int) (*Matrix, error) {
	nrows := pop.NRows()
	out := newMatrix(nrows, len(features))
	if numThreads < 1 {
		numThreads = 1
	}
	if numThreads > nrows {
		numThreads = maxInt(nrows, 1)
	}

	var wg sync.WaitGroup
	errCh := make(chan error, numThreads)
	chunk := (nrows + numThreads - 1) / numThreads
	if chunk < 1 {
		chunk = 1
	}
	for start := 0; start < nrows; start += chunk {
		end := start + chunk
		if end > nrows {
			end = nrows
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			scratch := newRowScratch()
			for r := start; r < end; r++ {
				for j, f := range features {
					er := edges[f.PeripheralIx]
					v, err := evalOne(f, r, pop, er, scratch)
					if err != nil {
						select {
						case errCh <- err:
						default:
						}
						return
					}
					out.Set(r, j, v)
				}
			}
		}(start, end)
	}
	wg.Wait()
	close(errCh)
	if err := <-errCh; err != nil {
		return nil, err
	}
	return out, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
