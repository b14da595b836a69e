package predictor

import (
	"fastprop/pkg/cache"
	"fastprop/pkg/errs"
	"fastprop/pkg/fastprop"

	"github.com/goccy/go-json"
)

// Linear is a ridge-regularized least-squares baseline predictor. Serious
// predictor algorithms are external collaborators (§1); this one exists so
// the pipeline orchestrator's fit/transform/score contract has something
// concrete to exercise end to end without a third-party model dependency.
type Linear struct {
	Ridge float64

	weights [][]float64 // weights[target][feature+1], last entry is the intercept
	targets []string
}

func NewLinear(ridge float64) *Linear { return &Linear{Ridge: ridge} }

func (l *Linear) Kind() string { return string(KindLinear) }

func (l *Linear) Fingerprint(input cache.Fingerprint) cache.Fingerprint {
	return cache.New("predictor.Linear", nil, input)
}

// Fit solves (X^TX + ridge*I) w = X^Ty per target via Gauss-Jordan
// elimination on the augmented normal-equations matrix. X is implicitly
// augmented with a leading intercept column of ones.
func (l *Linear) Fit(x *fastprop.Matrix, y *fastprop.Matrix, targetNames []string) error {
	if x.Rows != y.Rows {
		return errs.New(errs.UserInput, "PREDICTOR_ROW_MISMATCH", "feature and target matrices have different row counts")
	}
	p := x.Cols + 1
	xtx := make([][]float64, p)
	for i := range xtx {
		xtx[i] = make([]float64, p)
	}
	xty := make([][]float64, p)
	for i := range xty {
		xty[i] = make([]float64, y.Cols)
	}

	augCol := func(r, c int) float64 {
		if c == 0 {
			return 1
		}
		return x.Get(r, c-1)
	}

	for r := 0; r < x.Rows; r++ {
		for i := 0; i < p; i++ {
			vi := augCol(r, i)
			for j := 0; j < p; j++ {
				xtx[i][j] += vi * augCol(r, j)
			}
			for t := 0; t < y.Cols; t++ {
				xty[i][t] += vi * y.Get(r, t)
			}
		}
	}
	for i := 0; i < p; i++ {
		xtx[i][i] += l.Ridge
	}

	weights, err := solveLinearSystem(xtx, xty)
	if err != nil {
		return err
	}

	l.weights = make([][]float64, y.Cols)
	for t := 0; t < y.Cols; t++ {
		row := make([]float64, p)
		for i := 0; i < p; i++ {
			row[i] = weights[i][t]
		}
		l.weights[t] = row
	}
	l.targets = append([]string(nil), targetNames...)
	return nil
}

// FeatureWeights returns the fitted coefficients for the first (and, for a
// single-target fit, only) target, excluding the intercept — one entry per
// input feature column, in the order Fit received them.
func (l *Linear) FeatureWeights() []float64 {
	if len(l.weights) == 0 {
		return nil
	}
	return l.weights[0][1:]
}

func (l *Linear) Predict(x *fastprop.Matrix) (*fastprop.Matrix, error) {
	if l.weights == nil {
		return nil, errs.New(errs.Consistency, "PREDICTOR_NOT_FITTED", "Predict called before Fit")
	}
	out := &fastprop.Matrix{Rows: x.Rows, Cols: len(l.weights), Data: make([]float64, x.Rows*len(l.weights))}
	for r := 0; r < x.Rows; r++ {
		for t, w := range l.weights {
			v := w[0]
			for c := 0; c < x.Cols; c++ {
				v += w[c+1] * x.Get(r, c)
			}
			out.Set(r, t, v)
		}
	}
	return out, nil
}

// solveLinearSystem solves a X = b for X via Gauss-Jordan elimination with
// partial pivoting, where a is square and b has one column per right-hand
// side.
func solveLinearSystem(a [][]float64, b [][]float64) ([][]float64, error) {
	n := len(a)
	m := make([][]float64, n)
	for i := range a {
		row := make([]float64, n+len(b[i]))
		copy(row, a[i])
		copy(row[n:], b[i])
		m[i] = row
	}

	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if abs(m[r][col]) > abs(m[pivot][col]) {
				pivot = r
			}
		}
		if abs(m[pivot][col]) < 1e-12 {
			return nil, errs.New(errs.Consistency, "PREDICTOR_SINGULAR", "normal-equations matrix is singular; try a larger ridge value")
		}
		m[col], m[pivot] = m[pivot], m[col]

		pv := m[col][col]
		for c := range m[col] {
			m[col][c] /= pv
		}
		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			factor := m[r][col]
			for c := range m[r] {
				m[r][c] -= factor * m[col][c]
			}
		}
	}

	nrhs := len(m[0]) - n
	x := make([][]float64, n)
	for i := 0; i < n; i++ {
		x[i] = append([]float64(nil), m[i][n:n+nrhs]...)
	}
	return x, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

type linearSnapshot struct {
	Ridge   float64
	Weights [][]float64
	Targets []string
}

func (l *Linear) Save() ([]byte, error) {
	return json.Marshal(linearSnapshot{Ridge: l.Ridge, Weights: l.weights, Targets: l.targets})
}

func (l *Linear) Load(data []byte) error {
	var snap linearSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	l.Ridge, l.weights, l.targets = snap.Ridge, snap.Weights, snap.Targets
	return nil
}
