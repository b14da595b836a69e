package fastprop

import (
	"encoding/binary"
	"math"

	"fastprop/pkg/cache"
	"fastprop/pkg/dataframe"
	"fastprop/pkg/datamodel"
	"fastprop/pkg/errs"
	"fastprop/pkg/matchmaker"
)

// FastProp is the fitted feature generator for one placeholder node: its
// own selected AbstractFeatures plus, recursively, one child FastProp per
// non-propositionalization joined table (§4.5.1's "subfeatures" rule).
// A FastProp is immutable once Fit returns, matching FittedPipeline's
// "immutable once fitted" invariant (§3).
type FastProp struct {
	placeholder *datamodel.Placeholder
	cfg         Config

	children map[int]*FastProp // keyed by child index, only for non-propositionalization edges
	features []datamodel.AbstractFeature

	// resolved at Fit time, reused by Transform so the edge set (join-key
	// index, matchmaker columns) is identical between fit and transform —
	// required for the determinism property in §8.
	edgeCols []edgeColumns
}

type edgeColumns struct {
	popJK, periphJK string
	popTS, periphTS string
	periphUpperTS   string
}

// New constructs an unfitted FastProp for one placeholder node.
func New(placeholder *datamodel.Placeholder, cfg Config) *FastProp {
	return &FastProp{placeholder: placeholder, cfg: cfg, children: map[int]*FastProp{}}
}

// resolveEdgeColumns picks the single join-key/time-stamp pair named by a
// JoinSpec's parallel vectors. Only the first declared pair is used; a
// data model with multiple simultaneous join-key vectors on one edge is
// otherwise valid (§3) but FastProp enumerates over one matchmaker per
// edge, matching the source engine's own restriction.
func resolveEdgeColumns(spec datamodel.JoinSpec) (edgeColumns, error) {
	if len(spec.JoinKeysUsed) == 0 || len(spec.OtherJoinKeysUsed) == 0 {
		return edgeColumns{}, errs.New(errs.UserInput, "MISSING_JOIN_KEY",
			"placeholder edge declares no join keys")
	}
	ec := edgeColumns{popJK: spec.JoinKeysUsed[0], periphJK: spec.OtherJoinKeysUsed[0]}
	if len(spec.TimeStampsUsed) > 0 && len(spec.OtherTimeStampsUsed) > 0 {
		ec.popTS = spec.TimeStampsUsed[0]
		ec.periphTS = spec.OtherTimeStampsUsed[0]
	}
	if len(spec.UpperTimeStampsUsed) > 0 {
		ec.periphUpperTS = spec.UpperTimeStampsUsed[0]
	}
	return ec, nil
}

// buildEdges resolves the placeholder's children into edgeRuntimes against
// the live frames map (keyed by placeholder name), sorting/indexing each
// peripheral frame by its join key (and, when present, secondarily by time
// stamp) so the Matchmaker's contiguous-bucket contract holds.
func (fp *FastProp) buildEdges(pop *dataframe.DataFrame, frames map[string]*dataframe.DataFrame, fit bool) ([]*edgeRuntime, error) {
	children := fp.placeholder.Children
	specs := fp.placeholder.JoinSpecs
	edges := make([]*edgeRuntime, len(children))

	if fit {
		fp.edgeCols = make([]edgeColumns, len(children))
	}

	for i, child := range children {
		spec := specs[i]
		periph, ok := frames[child.Name]
		if !ok {
			return nil, errs.New(errs.Consistency, "MISSING_PERIPHERAL_FRAME",
				"no bound DataFrame for placeholder "+child.Name)
		}

		var ec edgeColumns
		var err error
		if fit {
			ec, err = resolveEdgeColumns(spec)
			if err != nil {
				return nil, err
			}
			fp.edgeCols[i] = ec
		} else {
			ec = fp.edgeCols[i]
		}

		if err := periph.SortByKey(ec.periphJK, ec.periphTS); err != nil {
			return nil, err
		}
		if err := periph.CreateIndices(ec.periphJK); err != nil {
			return nil, err
		}

		mmCols := matchmaker.Columns{
			PopulationJoinKey: ec.popJK, PeripheralJoinKey: ec.periphJK,
			PopulationTS: ec.popTS, PeripheralTS: ec.periphTS,
			PeripheralUpperTS: ec.periphUpperTS,
		}
		mm := matchmaker.New(pop, periph, mmCols, spec)

		var popTSCol, periphTSCol dataframe.NumColumn
		if ec.popTS != "" {
			popTSCol, _ = pop.TimeStamp(ec.popTS)
			periphTSCol, _ = periph.TimeStamp(ec.periphTS)
		}

		subCount := 0
		var subVals [][]float64
		if spec.Relationship != datamodel.Propositionalization && !child.IsLeaf() {
			var sub *FastProp
			if fit {
				sub = New(child, fp.cfg)
				if err := sub.Fit(periph, frames, nil); err != nil {
					return nil, err
				}
				fp.children[i] = sub
			} else {
				sub = fp.children[i]
			}
			if sub != nil {
				m, err := sub.Transform(periph, frames)
				if err != nil {
					return nil, err
				}
				subCount = len(sub.features)
				subVals = make([][]float64, subCount)
				for j := 0; j < subCount; j++ {
					col := make([]float64, m.Rows)
					for r := 0; r < m.Rows; r++ {
						col[r] = m.Get(r, j)
					}
					subVals[j] = col
				}
			}
		}

		edges[i] = &edgeRuntime{
			edge: edge{
				ix: i, table: periph, spec: spec,
				popJK: ec.popJK, periphJK: ec.periphJK,
				popTS: ec.popTS, periphTS: ec.periphTS,
				subfeatureCount: subCount,
			},
			mm: mm, popTSCol: popTSCol, periphTSCol: periphTSCol, subfeatureVals: subVals,
		}
	}
	return edges, nil
}

// Fit enumerates candidates over every child edge (recursing into
// subfeatures first, per §4.5.1), then applies §4.5.3's R² selection.
// frames must contain, by placeholder name, the DataFrame bound to every
// descendant of fp.placeholder.
func (fp *FastProp) Fit(pop *dataframe.DataFrame, frames map[string]*dataframe.DataFrame, targetNames []string) error {
	edges, err := fp.buildEdges(pop, frames, true)
	if err != nil {
		return err
	}

	var candidates []datamodel.AbstractFeature
	for i, er := range edges {
		hasTS := er.popTS != "" && er.periphTS != ""
		for _, f := range enumerate(pop, er.edge, fp.cfg) {
			if err := f.Validate(hasTS); err != nil {
				continue // §4.5.1: silently drop invalid combinations at enumeration time
			}
			f.PeripheralIx = i
			candidates = append(candidates, f)
		}
	}
	for i := range candidates {
		candidates[i].EnumIndex = i
	}

	selected, err := selectFeatures(pop, edges, candidates, targetNames, fp.cfg)
	if err != nil {
		return err
	}
	fp.features = selected
	return nil
}

// Transform computes the dense feature matrix for pop against fp's fitted
// feature set, recomputing every descendant's subfeature matrix first
// (§4.5.4).
func (fp *FastProp) Transform(pop *dataframe.DataFrame, frames map[string]*dataframe.DataFrame) (*Matrix, error) {
	if fp.features == nil {
		return newMatrix(pop.NRows(), 0), nil
	}
	edges, err := fp.buildEdges(pop, frames, false)
	if err != nil {
		return nil, err
	}
	return TransformAll(pop, edges, fp.features, fp.cfg.NumThreads)
}

// Features returns the fitted, selected AbstractFeature set in feature-index
// order (the order values are written into the Matrix's columns).
func (fp *FastProp) Features() []datamodel.AbstractFeature { return fp.features }

// Child returns the subfeature FastProp fitted for placeholder child i, or
// nil if that edge was propositionalization or a leaf.
func (fp *FastProp) Child(i int) *FastProp { return fp.children[i] }

// Fingerprint identifies this feature generator's hyperparameters plus its
// preprocessed population input and, since Fit/Transform also read every
// peripheral frame reachable from fp.placeholder, each of those frames'
// fingerprints (§4.6's dependency DAG). Callers pass peripheral
// fingerprints in the same order used to build the frames map so the
// digest is reproducible run to run.
func (fp *FastProp) Fingerprint(input cache.Fingerprint, peripheralDeps ...cache.Fingerprint) cache.Fingerprint {
	payload := make([]byte, 36)
	binary.LittleEndian.PutUint32(payload[0:4], uint32(fp.cfg.NumFeatures))
	binary.LittleEndian.PutUint64(payload[4:12], math.Float64bits(fp.cfg.SamplingFactor))
	binary.LittleEndian.PutUint32(payload[12:16], uint32(fp.cfg.MaxLag))
	binary.LittleEndian.PutUint64(payload[16:24], math.Float64bits(fp.cfg.DeltaT))
	binary.LittleEndian.PutUint32(payload[24:28], uint32(fp.cfg.TopKCategories))
	binary.LittleEndian.PutUint32(payload[28:32], uint32(fp.cfg.NumThreads))
	binary.LittleEndian.PutUint32(payload[32:36], uint32(fp.cfg.SizeThreshold))
	deps := append([]cache.Fingerprint{input}, peripheralDeps...)
	return cache.New("fastprop.Core", payload, deps...)
}

// NumFeatures reports the number of selected features, used by a parent
// FastProp to size its own subfeature edge (§4.5.1).
func (fp *FastProp) NumFeatures() int { return len(fp.features) }
