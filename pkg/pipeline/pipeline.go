package pipeline

import (
	"encoding/binary"
	"math"
	"sort"
	"sync"

	"fastprop/pkg/cache"
	"fastprop/pkg/dataframe"
	"fastprop/pkg/datamodel"
	"fastprop/pkg/errs"
	"fastprop/pkg/fastprop"
	"fastprop/pkg/predictor"
	"fastprop/pkg/preprocess"
	"fastprop/pkg/scoring"
	"fastprop/pkg/sqltranspiler"

	"go.uber.org/zap"
)

// frameFingerprint computes a content-addressable Fingerprint identifying a
// DataFrame by name and last_change (§4.6): two calls against the same
// frame object return equal fingerprints until the frame is mutated, at
// which point LastChange moves forward and the fingerprint changes with
// it — the input the rest of the dependency DAG (preprocessing, feature
// generation) is built on top of.
func frameFingerprint(df *dataframe.DataFrame) cache.Fingerprint {
	payload := []byte(df.Name())
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(df.LastChange().UnixNano()))
	return cache.New("dataframe", append(payload, buf[:]...))
}

// peripheralFingerprints returns the fingerprints of frames, sorted by name
// for a reproducible digest (§8's determinism property).
func peripheralFingerprints(frames map[string]*dataframe.DataFrame) []cache.Fingerprint {
	names := make([]string, 0, len(frames))
	for name := range frames {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]cache.Fingerprint, len(names))
	for i, name := range names {
		out[i] = frameFingerprint(frames[name])
	}
	return out
}

// State is a pipeline's position in the Unfitted -> Fitted lifecycle
// (§4.7).
type State int

const (
	Unfitted State = iota
	Fitted
)

func (s State) String() string {
	if s == Fitted {
		return "fitted"
	}
	return "unfitted"
}

// Pipeline binds a join-graph Placeholder, a preprocessor Chain, a FastProp
// feature generator, and one Predictor per target into a single fit/
// transform/score unit addressed by name in a Manager.
type Pipeline struct {
	mu sync.RWMutex

	Name        string
	Placeholder *datamodel.Placeholder
	Config      fastprop.Config
	Preprocess  *preprocess.Chain
	Core        *fastprop.FastProp
	Predictors  map[string]predictor.Predictor // keyed by target name

	state       State
	populationName string
	targetNames []string
	fingerprint cache.Fingerprint

	// matrixCache gates Core.Transform behind the fingerprint DAG (§4.6):
	// a repeated Transform against unchanged frames recomputes the same
	// Fingerprint and is answered from cache instead of re-running
	// preprocessing and feature computation (§8 scenario 6).
	matrixCache *cache.Tracker[*fastprop.Matrix]
}

// New constructs an unfitted pipeline. Fit looks the population frame up
// under the Placeholder root's name and each peripheral frame under its
// child node's name; those frames must be registered in a FrameStore before
// Fit runs.
func New(name string, root *datamodel.Placeholder, cfg fastprop.Config, chain *preprocess.Chain) *Pipeline {
	return &Pipeline{
		Name:        name,
		Placeholder: root,
		Config:      cfg,
		Preprocess:  chain,
		Core:        fastprop.New(root, cfg),
		Predictors:  map[string]predictor.Predictor{},
		matrixCache: cache.NewTracker[*fastprop.Matrix](),
	}
}

func (p *Pipeline) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Check validates the pipeline's data model against the bound frames
// without fitting anything: schema presence, role coverage, and join-graph
// resolvability. Returns the warnings a subsequent Fit would raise as
// non-fatal, per SPEC_FULL §4.7.1.
func Check(root *datamodel.Placeholder, store *FrameStore) ([]cache.Warning, error) {
	var warnings []cache.Warning
	var walkErr error
	root.Walk(func(node *datamodel.Placeholder, spec datamodel.JoinSpec, depth int) {
		if walkErr != nil {
			return
		}
		df, ok := store.Lookup(node.Name)
		if !ok {
			walkErr = errs.New(errs.UserInput, "CHECK_FRAME_MISSING", "join graph references an unregistered frame").WithColumn(node.Name, "", "")
			return
		}
		if depth == 0 {
			return
		}
		for _, jk := range spec.JoinKeysUsed {
			if _, ok := df.JoinKey(jk); !ok {
				warnings = append(warnings, cache.Warning{
					Code: "CHECK_JOIN_KEY_MISSING", Table: node.Name, Column: jk,
					Message: "join key named in the placeholder edge is not present on the bound frame",
				})
			}
		}
		for _, ts := range spec.TimeStampsUsed {
			if _, ok := df.TimeStamp(ts); !ok {
				warnings = append(warnings, cache.Warning{
					Code: "CHECK_TIMESTAMP_MISSING", Table: node.Name, Column: ts,
					Message: "time stamp named in the placeholder edge is not present on the bound frame",
				})
			}
		}
	})
	return warnings, walkErr
}

// Fit runs the full data-flow: gather bound frames, preprocess the
// population, fit the FastProp core, transform to a feature matrix, and
// fit one Predictor per target. Frames referenced by the placeholder tree
// but not the population itself are looked up as-is (peripheral tables are
// not preprocessed independently, matching the original's staging step
// operating only on the population before the join-graph traversal).
func (p *Pipeline) Fit(store *FrameStore, targetNames []string, predictors map[string]predictor.Predictor, logger *zap.Logger) ([]cache.Warning, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pop, err := store.Get(p.Placeholder.Name)
	if err != nil {
		return nil, err
	}

	frames := map[string]*dataframe.DataFrame{}
	p.Placeholder.Walk(func(node *datamodel.Placeholder, _ datamodel.JoinSpec, depth int) {
		if depth == 0 {
			return
		}
		if df, ok := store.Lookup(node.Name); ok {
			frames[node.Name] = df
		}
	})

	baseFP := frameFingerprint(pop)
	var warnings []cache.Warning
	preprocessed := pop
	chainFP := baseFP
	if p.Preprocess != nil {
		preprocessed, warnings, err = p.Preprocess.FitTransform(pop)
		if err != nil {
			return nil, err
		}
		chainFP = p.Preprocess.Fingerprint(baseFP)
	}

	if err := p.Core.Fit(preprocessed, frames, targetNames); err != nil {
		return nil, err
	}

	coreFP := p.Core.Fingerprint(chainFP, peripheralFingerprints(frames)...)
	matrix, _, err := p.matrixCache.GetOrBuild(coreFP, func() (*fastprop.Matrix, error) {
		return p.Core.Transform(preprocessed, frames)
	})
	if err != nil {
		return nil, err
	}

	for _, t := range targetNames {
		target, ok := preprocessed.Target(t)
		if !ok {
			return nil, errs.New(errs.UserInput, "FIT_TARGET_MISSING", "target column not present on population frame").WithColumn(preprocessed.Name(), t, "target")
		}
		y := &fastprop.Matrix{Rows: target.Len(), Cols: 1, Data: make([]float64, target.Len())}
		for i := 0; i < target.Len(); i++ {
			y.Set(i, 0, target.Get(i))
		}
		pred, ok := predictors[t]
		if !ok {
			continue
		}
		if err := pred.Fit(matrix, y, []string{t}); err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.Predictors[t] = pred
		p.mu.Unlock()
	}

	p.mu.Lock()
	p.state = Fitted
	p.populationName = p.Placeholder.Name
	p.targetNames = append([]string(nil), targetNames...)
	p.fingerprint = coreFP
	p.mu.Unlock()

	logger.Info("pipeline fit complete", zap.String("pipeline", p.Name), zap.Int("num_features", p.Core.NumFeatures()))
	return warnings, nil
}

// Transform runs the fitted preprocessor chain and FastProp core against a
// (possibly new) population frame, without touching predictors.
// retrievedFromCache reports whether the resulting Matrix answered from the
// fingerprint cache instead of recomputing (§8 scenario 6): true whenever
// populationName and every peripheral frame reachable from the placeholder
// are unchanged (by LastChange) since the last Fit or Transform call that
// produced this same Fingerprint.
func (p *Pipeline) Transform(store *FrameStore, populationName string) (matrix *fastprop.Matrix, retrievedFromCache bool, err error) {
	p.mu.RLock()
	state := p.state
	p.mu.RUnlock()
	if state != Fitted {
		return nil, false, errs.New(errs.Consistency, "PIPELINE_NOT_FITTED", "Transform called before Fit")
	}

	pop, err := store.Get(populationName)
	if err != nil {
		return nil, false, err
	}
	frames := map[string]*dataframe.DataFrame{}
	p.Placeholder.Walk(func(node *datamodel.Placeholder, _ datamodel.JoinSpec, depth int) {
		if depth == 0 {
			return
		}
		if df, ok := store.Lookup(node.Name); ok {
			frames[node.Name] = df
		}
	})

	baseFP := frameFingerprint(pop)
	preprocessed := pop
	chainFP := baseFP
	if p.Preprocess != nil {
		preprocessed, err = p.Preprocess.Transform(pop)
		if err != nil {
			return nil, false, err
		}
		chainFP = p.Preprocess.Fingerprint(baseFP)
	}

	coreFP := p.Core.Fingerprint(chainFP, peripheralFingerprints(frames)...)
	matrix, retrievedFromCache, err = p.matrixCache.GetOrBuild(coreFP, func() (*fastprop.Matrix, error) {
		return p.Core.Transform(preprocessed, frames)
	})
	if err != nil {
		return nil, false, err
	}

	p.mu.Lock()
	p.fingerprint = coreFP
	p.mu.Unlock()
	return matrix, retrievedFromCache, nil
}

// Score transforms populationName and evaluates every fitted predictor
// against its target column, returning MAE/RMSE/R2 (numeric targets are
// assumed; classification metrics are available via ROC/PR/Lift below once
// a caller has predicted probabilities).
type Score struct {
	Target string
	MAE    float64
	RMSE   float64
	R2     float64
}

func (p *Pipeline) Score(store *FrameStore, populationName string) ([]Score, error) {
	matrix, _, err := p.Transform(store, populationName)
	if err != nil {
		return nil, err
	}
	pop, err := store.Get(populationName)
	if err != nil {
		return nil, err
	}

	p.mu.RLock()
	targets := append([]string(nil), p.targetNames...)
	predictors := make(map[string]predictor.Predictor, len(p.Predictors))
	for k, v := range p.Predictors {
		predictors[k] = v
	}
	p.mu.RUnlock()

	var scores []Score
	for _, t := range targets {
		pred, ok := predictors[t]
		if !ok {
			continue
		}
		predicted, err := pred.Predict(matrix)
		if err != nil {
			return nil, err
		}
		target, ok := pop.Target(t)
		if !ok {
			continue
		}
		actual := make([]float64, target.Len())
		predSlice := make([]float64, target.Len())
		for i := 0; i < target.Len(); i++ {
			actual[i] = target.Get(i)
			predSlice[i] = predicted.Get(i, 0)
		}
		scores = append(scores, Score{
			Target: t,
			MAE:    scoring.MAE(predSlice, actual),
			RMSE:   scoring.RMSE(predSlice, actual),
			R2:     scoring.RSquared(predSlice, actual),
		})
	}
	return scores, nil
}

// ToSQL emits the SQL reproducing this pipeline's staging, preprocessing,
// and feature computation for the given dialect (§4.8).
func (p *Pipeline) ToSQL(d sqltranspiler.Dialect, sizeThreshold int) string {
	sql := ""
	if p.Preprocess != nil {
		sql += p.Preprocess.ToSQL(d)
	}
	for _, f := range p.Core.ToSQL(d, p.Placeholder.Name, "", sizeThreshold) {
		sql += f.SQL + "\n"
	}
	return sql
}

// ColumnImportances attributes each fitted target's Linear predictor
// weights (when the predictor is *predictor.Linear) back to source
// columns via scoring.ColumnImportances.
func (p *Pipeline) ColumnImportances(targetName string) ([]scoring.ColumnImportance, error) {
	p.mu.RLock()
	pred, ok := p.Predictors[targetName]
	p.mu.RUnlock()
	if !ok {
		return nil, errs.New(errs.UserInput, "IMPORTANCES_UNKNOWN_TARGET", "no fitted predictor for this target").WithColumn(p.Name, "", targetName)
	}
	lin, ok := pred.(*predictor.Linear)
	if !ok {
		return nil, errs.New(errs.UserInput, "IMPORTANCES_UNSUPPORTED_PREDICTOR", "column importances require a linear predictor")
	}
	weights := lin.FeatureWeights()
	fw := make([]scoring.FeatureWeight, len(weights))
	for i, w := range weights {
		fw[i] = scoring.FeatureWeight{FeatureIndex: i, Weight: absf(w)}
	}
	return scoring.ColumnImportances(p.Core, fw, p.Placeholder.Name), nil
}

// predictedAndActual transforms populationName, scores it with the fitted
// predictor for targetName, and returns the aligned (predicted, actual)
// slices the classification curve functions in pkg/scoring consume.
func (p *Pipeline) predictedAndActual(store *FrameStore, populationName, targetName string) (predicted, actual []float64, err error) {
	matrix, _, err := p.Transform(store, populationName)
	if err != nil {
		return nil, nil, err
	}
	pop, err := store.Get(populationName)
	if err != nil {
		return nil, nil, err
	}
	p.mu.RLock()
	pred, ok := p.Predictors[targetName]
	p.mu.RUnlock()
	if !ok {
		return nil, nil, errs.New(errs.UserInput, "SCORE_UNKNOWN_TARGET", "no fitted predictor for this target").WithColumn(p.Name, "", targetName)
	}
	scored, err := pred.Predict(matrix)
	if err != nil {
		return nil, nil, err
	}
	target, ok := pop.Target(targetName)
	if !ok {
		return nil, nil, errs.New(errs.UserInput, "SCORE_TARGET_MISSING", "target column not present on population frame").WithColumn(populationName, targetName, "target")
	}
	predicted = make([]float64, target.Len())
	actual = make([]float64, target.Len())
	for i := 0; i < target.Len(); i++ {
		predicted[i] = scored.Get(i, 0)
		actual[i] = target.Get(i)
	}
	return predicted, actual, nil
}

// ROCCurve returns the ROC points and AUC for a binary target.
func (p *Pipeline) ROCCurve(store *FrameStore, populationName, targetName string) ([]scoring.Point, float64, error) {
	predicted, actual, err := p.predictedAndActual(store, populationName, targetName)
	if err != nil {
		return nil, 0, err
	}
	points, auc := scoring.ROCCurve(predicted, actual)
	return points, auc, nil
}

// PrecisionRecallCurve returns the precision-recall points for a binary
// target.
func (p *Pipeline) PrecisionRecallCurve(store *FrameStore, populationName, targetName string) ([]scoring.Point, error) {
	predicted, actual, err := p.predictedAndActual(store, populationName, targetName)
	if err != nil {
		return nil, err
	}
	return scoring.PrecisionRecallCurve(predicted, actual), nil
}

// LiftCurve returns the decile lift points for a binary target.
func (p *Pipeline) LiftCurve(store *FrameStore, populationName, targetName string, numBuckets int) ([]scoring.Point, error) {
	predicted, actual, err := p.predictedAndActual(store, populationName, targetName)
	if err != nil {
		return nil, err
	}
	return scoring.LiftCurve(predicted, actual, numBuckets), nil
}

// FeatureImportances returns |coefficient| per abstract feature for a
// fitted Linear predictor, without back-propagating to source columns
// (contrast ColumnImportances).
func (p *Pipeline) FeatureImportances(targetName string) ([]scoring.FeatureWeight, error) {
	p.mu.RLock()
	pred, ok := p.Predictors[targetName]
	p.mu.RUnlock()
	if !ok {
		return nil, errs.New(errs.UserInput, "IMPORTANCES_UNKNOWN_TARGET", "no fitted predictor for this target").WithColumn(p.Name, "", targetName)
	}
	lin, ok := pred.(*predictor.Linear)
	if !ok {
		return nil, errs.New(errs.UserInput, "IMPORTANCES_UNSUPPORTED_PREDICTOR", "feature importances require a linear predictor")
	}
	weights := lin.FeatureWeights()
	out := make([]scoring.FeatureWeight, len(weights))
	for i, w := range weights {
		out[i] = scoring.FeatureWeight{FeatureIndex: i, Weight: absf(w)}
	}
	return out, nil
}

// FeatureCorrelation is one abstract feature's Pearson correlation against
// a target column.
type FeatureCorrelation struct {
	FeatureIndex int
	Correlation  float64
}

// FeatureCorrelations computes each feature's raw Pearson correlation
// against targetName over populationName, independent of any fitted
// predictor.
func (p *Pipeline) FeatureCorrelations(store *FrameStore, populationName, targetName string) ([]FeatureCorrelation, error) {
	matrix, _, err := p.Transform(store, populationName)
	if err != nil {
		return nil, err
	}
	pop, err := store.Get(populationName)
	if err != nil {
		return nil, err
	}
	target, ok := pop.Target(targetName)
	if !ok {
		return nil, errs.New(errs.UserInput, "CORRELATIONS_TARGET_MISSING", "target column not present on population frame").WithColumn(populationName, targetName, "target")
	}
	y := make([]float64, target.Len())
	for i := 0; i < target.Len(); i++ {
		y[i] = target.Get(i)
	}

	out := make([]FeatureCorrelation, matrix.Cols)
	for c := 0; c < matrix.Cols; c++ {
		col := make([]float64, matrix.Rows)
		for r := 0; r < matrix.Rows; r++ {
			col[r] = matrix.Get(r, c)
		}
		out[c] = FeatureCorrelation{FeatureIndex: c, Correlation: pearson(col, y)}
	}
	return out, nil
}

func pearson(a, b []float64) float64 {
	n := len(a)
	if n == 0 {
		return 0
	}
	var meanA, meanB float64
	for i := 0; i < n; i++ {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= float64(n)
	meanB /= float64(n)

	var num, sa, sb float64
	for i := 0; i < n; i++ {
		da, db := a[i]-meanA, b[i]-meanB
		num += da * db
		sa += da * da
		sb += db * db
	}
	if sa == 0 || sb == 0 {
		return 0
	}
	return num / (math.Sqrt(sa) * math.Sqrt(sb))
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
