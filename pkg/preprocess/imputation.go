package preprocess

import (
	"math"
	"sort"
	"strconv"

	"fastprop/pkg/cache"
	"fastprop/pkg/columnstore"
	"fastprop/pkg/dataframe"
	"fastprop/pkg/errs"
	"fastprop/pkg/sqltranspiler"

	"github.com/goccy/go-json"
)

// Imputation replaces NaN values in numerical columns with the fitted mean,
// optionally emitting a 0/1 dummy column marking which rows were imputed
// (§4.4).
type Imputation struct {
	AddDummies bool

	means map[string]float64
}

func NewImputation(addDummies bool) *Imputation {
	return &Imputation{AddDummies: addDummies, means: map[string]float64{}}
}

func (p *Imputation) Name() string { return "Imputation" }

func (p *Imputation) Fingerprint(input cache.Fingerprint) cache.Fingerprint {
	payload := []byte{0}
	if p.AddDummies {
		payload[0] = 1
	}
	return cache.New("preprocess.Imputation", payload, input)
}

func (p *Imputation) FitTransform(in *dataframe.DataFrame) (*dataframe.DataFrame, []cache.Warning, error) {
	out := in.Clone(in.Name())
	var warnings []cache.Warning
	for _, ci := range in.Schema().ByRole(dataframe.RoleNumerical) {
		col, ok := in.Numerical(ci.Name)
		if !ok || skip(col, "imputation") {
			continue
		}
		sum, n, hasNaN := 0.0, 0, false
		for i := 0; i < col.Len(); i++ {
			v := col.Get(i)
			if math.IsInf(v, 0) {
				return nil, nil, errs.New(errs.UserInput, "IMPUTE_INFINITE",
					"column contains an infinite value, which imputation rejects").WithColumn(in.Name(), ci.Name, "numerical")
			}
			if math.IsNaN(v) {
				hasNaN = true
				continue
			}
			sum += v
			n++
		}
		if n == 0 {
			return nil, nil, errs.New(errs.UserInput, "IMPUTE_ALL_NAN",
				"column is entirely NaN and cannot be imputed").WithColumn(in.Name(), ci.Name, "numerical")
		}
		if !hasNaN {
			continue
		}
		mean := sum / float64(n)
		p.means[ci.Name] = mean

		vals := make([]float64, col.Len())
		dummy := make([]float64, col.Len())
		for i := 0; i < col.Len(); i++ {
			v := col.Get(i)
			if math.IsNaN(v) {
				vals[i] = mean
				dummy[i] = 1
			} else {
				vals[i] = v
			}
		}
		if err := out.AddNumerical(ci.Name, columnstore.FromSlice(ci.Name, vals)); err != nil {
			return nil, nil, err
		}
		if p.AddDummies {
			dummyName := ci.Name + "_imputed"
			if err := out.AddNumerical(dummyName, columnstore.FromSlice(dummyName, dummy)); err != nil {
				return nil, nil, err
			}
		}
	}
	return out, warnings, nil
}

func (p *Imputation) Transform(in *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	out := in.Clone(in.Name())
	names := make([]string, 0, len(p.means))
	for name := range p.means {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		mean := p.means[name]
		col, ok := in.Numerical(name)
		if !ok {
			continue
		}
		vals := make([]float64, col.Len())
		dummy := make([]float64, col.Len())
		for i := 0; i < col.Len(); i++ {
			v := col.Get(i)
			if math.IsNaN(v) {
				vals[i] = mean
				dummy[i] = 1
			} else {
				vals[i] = v
			}
		}
		if err := out.AddNumerical(name, columnstore.FromSlice(name, vals)); err != nil {
			return nil, err
		}
		if p.AddDummies {
			dummyName := name + "_imputed"
			if err := out.AddNumerical(dummyName, columnstore.FromSlice(dummyName, dummy)); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (p *Imputation) ToSQL(d sqltranspiler.Dialect) string {
	var sql string
	names := make([]string, 0, len(p.means))
	for name := range p.means {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sql += "UPDATE " + d.Quotechar1("staging") + " SET " + d.Quotechar1(name) +
			" = COALESCE(" + d.Quotechar1(name) + ", " + strconv.FormatFloat(p.means[name], 'g', -1, 64) + ");\n"
	}
	return sql
}

type imputationSnapshot struct {
	AddDummies bool
	Means      map[string]float64
}

func (p *Imputation) Save() ([]byte, error) {
	return json.Marshal(imputationSnapshot{AddDummies: p.AddDummies, Means: p.means})
}

func (p *Imputation) Load(data []byte) error {
	var snap imputationSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	p.AddDummies, p.means = snap.AddDummies, snap.Means
	if p.means == nil {
		p.means = map[string]float64{}
	}
	return nil
}

func (p *Imputation) Clone() Preprocessor {
	clone := &Imputation{AddDummies: p.AddDummies, means: map[string]float64{}}
	for k, v := range p.means {
		clone.means[k] = v
	}
	return clone
}
