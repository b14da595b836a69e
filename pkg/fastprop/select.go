package fastprop

import (
	"math"
	"math/rand"
	"sort"

	"fastprop/pkg/dataframe"
	"fastprop/pkg/datamodel"
)

const selectionBatchSize = 100

// scoredCandidate pairs a candidate with its univariate R² against one
// target, retaining EnumIndex for the tie-break rule in §4.5.3.
type scoredCandidate struct {
	feature datamodel.AbstractFeature
	score   float64
}

// sampleRows draws a deterministic sample of population row indices sized
// by sampling_factor (§4.5.3). A samplingFactor >= 1 uses every row.
func sampleRows(nrows int, samplingFactor float64, seed int64) []int {
	if samplingFactor >= 1 || nrows == 0 {
		out := make([]int, nrows)
		for i := range out {
			out[i] = i
		}
		return out
	}
	n := int(math.Ceil(float64(nrows) * samplingFactor))
	if n < 1 {
		n = 1
	}
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(nrows)[:n]
	sort.Ints(perm)
	return perm
}

// univariateR2 computes R² of x explaining y over the sampled rows: the
// squared Pearson correlation, matching a single-variable OLS fit.
func univariateR2(x, y []float64) float64 {
	n := len(x)
	if n < 2 {
		return 0
	}
	var sx, sy float64
	for i := 0; i < n; i++ {
		sx += x[i]
		sy += y[i]
	}
	mx, my := sx/float64(n), sy/float64(n)
	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		dx, dy := x[i]-mx, y[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0
	}
	r := sxy / math.Sqrt(sxx*syy)
	return r * r
}

// selectFeatures implements §4.5.3: when the candidate count exceeds
// num_features, batches of 100 candidates are transformed on the sampled
// row set, scored by the best univariate R² across every target, and the
// num_features highest scorers are kept — ties broken by ascending
// EnumIndex (enumeration order).
func selectFeatures(pop *dataframe.DataFrame, edges []*edgeRuntime, candidates []datamodel.AbstractFeature, targetNames []string, cfg Config) ([]datamodel.AbstractFeature, error) {
	if len(candidates) <= cfg.NumFeatures {
		return candidates, nil
	}

	sample := sampleRows(pop.NRows(), cfg.SamplingFactor, 1469598103934665603)
	targets := make([][]float64, 0, len(targetNames))
	for _, name := range targetNames {
		col, ok := pop.Target(name)
		if !ok {
			continue
		}
		vals := make([]float64, len(sample))
		for i, r := range sample {
			vals[i] = col.Get(r)
		}
		targets = append(targets, vals)
	}
	if len(targets) == 0 {
		// No target to score against: keep the first num_features candidates
		// in enumeration order, deterministically.
		out := make([]datamodel.AbstractFeature, cfg.NumFeatures)
		copy(out, candidates[:cfg.NumFeatures])
		return out, nil
	}

	scored := make([]scoredCandidate, 0, len(candidates))
	for start := 0; start < len(candidates); start += selectionBatchSize {
		end := start + selectionBatchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batch := candidates[start:end]

		values := make([][]float64, len(batch))
		for i := range values {
			values[i] = make([]float64, len(sample))
		}
		for si, r := range sample {
			for fi, f := range batch {
				er := edges[f.PeripheralIx]
				v, err := evalOne(f, r, pop, er, newRowScratch())
				if err != nil {
					return nil, err
				}
				values[fi][si] = v
			}
		}
		for fi, f := range batch {
			best := 0.0
			for _, t := range targets {
				if r2 := univariateR2(values[fi], t); r2 > best {
					best = r2
				}
			}
			scored = append(scored, scoredCandidate{feature: f, score: best})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].feature.EnumIndex < scored[j].feature.EnumIndex
	})

	n := cfg.NumFeatures
	if n > len(scored) {
		n = len(scored)
	}
	out := make([]datamodel.AbstractFeature, n)
	for i := 0; i < n; i++ {
		out[i] = scored[i].feature
	}
	return out, nil
}
